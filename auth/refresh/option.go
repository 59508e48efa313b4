package refresh

import (
	"time"

	"github.com/goliatone/go-logger/glog"
)

type Option func(c *Coordinator)

// WithInvalidator sets the collaborator notified when refresh fails
func WithInvalidator(invalidator Invalidator) Option {
	return func(c *Coordinator) {
		c.invalidator = invalidator
	}
}

// WithTimeout bounds a refresh flight; zero means no bound
func WithTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		c.timeout = timeout
	}
}

// WithLogger sets logger
func WithLogger(logger glog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}
