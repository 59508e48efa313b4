package refresh

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-logger/glog"
	"github.com/viant/bearer/auth/credential"
	"github.com/viant/bearer/auth/store"
	"golang.org/x/sync/singleflight"
)

const flightKey = "refresh:"

// Invalidator tears down the session after a failed refresh
type Invalidator interface {
	Invalidate(ctx context.Context, cause error) error
}

// Coordinator performs refresh calls, at most one in flight at a time
type Coordinator struct {
	store       store.Store
	refresher   Refresher
	invalidator Invalidator
	timeout     time.Duration
	logger      glog.Logger
	group       singleflight.Group
	mu          sync.Mutex
	flights     atomic.Int64
}

// NewCoordinator creates a coordinator refreshing credentials held by aStore
func NewCoordinator(aStore store.Store, refresher Refresher, options ...Option) *Coordinator {
	ret := &Coordinator{
		store:     aStore,
		refresher: refresher,
		logger:    glog.Nop(),
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Refresh renews the stored pair after stale, the rejected access token, or joins
// the refresh of stale already in flight. When the stored access token is no longer
// stale the stored pair is returned without a remote call; an empty stale always refreshes.
// Cancelling ctx only stops this caller from waiting; the flight itself runs
// until it completes or the configured timeout expires.
func (c *Coordinator) Refresh(ctx context.Context, stale string) Outcome {
	flight := c.group.DoChan(flightKey+stale, func() (interface{}, error) {
		return c.refresh(context.WithoutCancel(ctx), stale)
	})
	select {
	case result := <-flight:
		if result.Err != nil {
			return Failed(result.Err)
		}
		pair, _ := result.Val.(*credential.Pair)
		return Refreshed(pair.Clone())
	case <-ctx.Done():
		return Failed(ctx.Err())
	}
}

// Flights returns the number of refresh calls made to the refresher
func (c *Coordinator) Flights() int64 {
	return c.flights.Load()
}

// refresh holds mu from the store read to the store write, so at most one
// remote call is made per credential generation
func (c *Coordinator) refresh(ctx context.Context, stale string) (*credential.Pair, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	current, err := c.store.Get(callCtx)
	if err != nil {
		return nil, c.fail(ctx, err)
	}
	if current == nil || current.RefreshToken == "" {
		return nil, c.fail(ctx, ErrNoRefreshToken)
	}
	if stale != "" && current.AccessToken != stale {
		c.logger.Debug("credentials already refreshed")
		return current, nil
	}
	c.flights.Add(1)
	started := time.Now()
	next, err := c.call(callCtx, current.RefreshToken)
	if err != nil {
		return nil, c.fail(ctx, err)
	}
	if next == nil || next.AccessToken == "" {
		return nil, c.fail(ctx, ErrMissingAccessToken)
	}
	rotated := current.Rotate(next)
	if err = c.store.Set(ctx, rotated); err != nil {
		return nil, c.fail(ctx, err)
	}
	c.logger.Debug("credentials refreshed",
		"elapsed", time.Since(started),
		"refresh_rotated", next.RefreshToken != "")
	return rotated, nil
}

// call returns once the refresher does or ctx ends, whichever comes first
func (c *Coordinator) call(ctx context.Context, refreshToken string) (*credential.Pair, error) {
	type result struct {
		pair *credential.Pair
		err  error
	}
	done := make(chan result, 1)
	go func() {
		pair, err := c.refresher.Refresh(ctx, refreshToken)
		done <- result{pair: pair, err: err}
	}()
	select {
	case ret := <-done:
		return ret.pair, ret.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fail invalidates the session once for the whole flight
func (c *Coordinator) fail(ctx context.Context, cause error) error {
	ret := refreshFailed(cause)
	c.logger.Warn("credential refresh failed", "error", cause)
	if c.invalidator == nil {
		return ret
	}
	if err := c.invalidator.Invalidate(ctx, ret); err != nil {
		c.logger.Error("failed to invalidate session", "error", err)
	}
	return ret
}
