// Package session owns the lifecycle of the stored credentials around the request
// pipeline: it establishes them on login, tears them down on logout, and clears
// them when a refresh fails, notifying the hosting application through
// registered Listeners so it can return the user to its login surface.
package session
