package session

import (
	"net/http"

	"github.com/goliatone/go-logger/glog"
)

type Option func(c *Client)

// WithLoginURL sets the login endpoint
func WithLoginURL(URL string) Option {
	return func(c *Client) {
		c.loginURL = URL
	}
}

// WithLogoutURL sets the logout endpoint; when empty logout is local only
func WithLogoutURL(URL string) Option {
	return func(c *Client) {
		c.logoutURL = URL
	}
}

// WithRegisterURL sets the account registration endpoint
func WithRegisterURL(URL string) Option {
	return func(c *Client) {
		c.registerURL = URL
	}
}

// WithUserURL sets the current user endpoint
func WithUserURL(URL string) Option {
	return func(c *Client) {
		c.userURL = URL
	}
}

// WithDeleteURL sets the account deletion endpoint
func WithDeleteURL(URL string) Option {
	return func(c *Client) {
		c.deleteURL = URL
	}
}

// WithHTTPClient sets the unauthenticated client used for login
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithAuthenticatedClient sets the client used for logout, normally one built on the pipeline transport
func WithAuthenticatedClient(client *http.Client) Option {
	return func(c *Client) {
		c.authClient = client
	}
}

// WithLogger sets logger
func WithLogger(logger glog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}
