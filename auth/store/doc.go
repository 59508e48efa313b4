// Package store defines the credential store used by the request pipeline to hold
// the current access/refresh token pair.
//
// It ships with an in-memory implementation, a file implementation persisted
// through viant/afs (so any afs scheme can back it) and a redis implementation.
// Any other medium can be used by implementing Store.
package store
