// Package mock provides an httptest based stand-in for the remote API used to
// exercise the request pipeline: login, refresh, logout and account endpoints
// (register, current user, delete) plus a protected resource.
//
// Access tokens are HS256 JWTs, refresh tokens are opaque uuids that rotate and
// can be revoked. Tests can hold refresh calls, force refresh rejection and
// expire every access token issued so far.
package mock
