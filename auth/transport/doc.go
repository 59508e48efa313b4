// Package transport implements the authenticated request pipeline as an
// http.RoundTripper.
//
// Every outgoing request is decorated with the stored bearer credential. When the
// server answers 401 Unauthorized the RoundTripper refreshes the credentials
// through the refresh Coordinator, shared by all concurrent requests, and
// resubmits the request once. A second 401, or a failed refresh, is returned to
// the caller as the original response.
package transport
