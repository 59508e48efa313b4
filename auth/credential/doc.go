// Package credential defines the bearer credential pair carried by the request
// pipeline: an opaque access token and the refresh token used to renew it.
package credential
