package session

import (
	"context"
	"errors"
	"sync"

	"github.com/goliatone/go-logger/glog"
	"github.com/viant/bearer/auth/store"
)

type loggingOutKey struct{}

// withLoggingOut marks ctx as belonging to a logout; invalidations made with it carry ErrLoggedOut
func withLoggingOut(ctx context.Context) context.Context {
	return context.WithValue(ctx, loggingOutKey{}, true)
}

func isLoggingOut(ctx context.Context) bool {
	loggingOut, _ := ctx.Value(loggingOutKey{}).(bool)
	return loggingOut
}

// Listener is notified once each time an authenticated session ends
type Listener interface {
	OnInvalidated(ctx context.Context, cause error)
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(ctx context.Context, cause error)

func (f ListenerFunc) OnInvalidated(ctx context.Context, cause error) {
	f(ctx, cause)
}

// Invalidator clears the store and notifies listeners; invalidating an empty store is a no-op
type Invalidator struct {
	store     store.Store
	mu        sync.Mutex
	listeners []Listener
	logger    glog.Logger
}

type InvalidatorOption func(i *Invalidator)

// WithListener registers listener
func WithListener(listener Listener) InvalidatorOption {
	return func(i *Invalidator) {
		i.listeners = append(i.listeners, listener)
	}
}

// WithInvalidatorLogger sets logger
func WithInvalidatorLogger(logger glog.Logger) InvalidatorOption {
	return func(i *Invalidator) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// NewInvalidator creates an invalidator for aStore
func NewInvalidator(aStore store.Store, options ...InvalidatorOption) *Invalidator {
	ret := &Invalidator{store: aStore, logger: glog.Nop()}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Subscribe registers listener
func (i *Invalidator) Subscribe(listener Listener) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.listeners = append(i.listeners, listener)
}

// Invalidate clears stored credentials and notifies listeners with cause
func (i *Invalidator) Invalidate(ctx context.Context, cause error) error {
	i.mu.Lock()
	pair, err := i.store.Get(ctx)
	if err != nil {
		i.mu.Unlock()
		return err
	}
	if pair == nil {
		i.mu.Unlock()
		return nil
	}
	if err = i.store.Clear(ctx); err != nil {
		i.mu.Unlock()
		return err
	}
	listeners := make([]Listener, len(i.listeners))
	copy(listeners, i.listeners)
	i.mu.Unlock()

	if isLoggingOut(ctx) && !errors.Is(cause, ErrLoggedOut) {
		cause = errors.Join(ErrLoggedOut, cause)
	}
	i.logger.Info("session invalidated", "cause", cause)
	for _, listener := range listeners {
		listener.OnInvalidated(ctx, cause)
	}
	return nil
}
