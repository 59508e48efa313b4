// Package refresh renews the stored credential pair against the remote refresh
// endpoint.
//
// Coordinator guarantees that at most one refresh call is in flight at a time:
// the first caller performs the call, every concurrent caller waits for and
// receives the same Outcome. A failed refresh is terminal for the current
// credentials; the coordinator hands it to the configured Invalidator once.
package refresh
