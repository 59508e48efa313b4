package bearer

import (
	"net/http"

	"github.com/goliatone/go-logger/glog"
	"github.com/viant/bearer/auth/session"
	"github.com/viant/bearer/auth/store"
)

// Option represents option
type Option func(c *Client)

// WithStore sets the credential store, overriding Config.StoreURL
func WithStore(aStore store.Store) Option {
	return func(c *Client) {
		c.Store = aStore
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

// WithListener registers a listener notified when the session ends
func WithListener(listener session.Listener) Option {
	return func(c *Client) {
		c.listeners = append(c.listeners, listener)
	}
}

// WithTransport sets the transport requests are finally sent with
func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		if transport != nil {
			c.inner = transport
		}
	}
}
