package transport

import (
	"net/http"

	"github.com/goliatone/go-logger/glog"
	"github.com/viant/bearer/auth/store"
)

type Option func(*RoundTripper)

// WithStore sets store
func WithStore(store store.Store) Option {
	return func(t *RoundTripper) {
		t.store = store
	}
}

// WithCoordinator sets the refresh coordinator; without one a 401 is always returned as is
func WithCoordinator(coordinator Coordinator) Option {
	return func(t *RoundTripper) {
		t.coordinator = coordinator
	}
}

// WithTransport sets the inner transport requests are sent with
func WithTransport(transport http.RoundTripper) Option {
	return func(t *RoundTripper) {
		t.transport = transport
	}
}

// WithLogger sets logger
func WithLogger(logger glog.Logger) Option {
	return func(t *RoundTripper) {
		if logger != nil {
			t.logger = logger
		}
	}
}
