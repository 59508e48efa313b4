package bearer

import (
	"context"
	"net/http"
	"strings"

	"github.com/goliatone/go-logger/glog"
	"github.com/redis/go-redis/v9"
	"github.com/viant/bearer/auth/refresh"
	"github.com/viant/bearer/auth/session"
	"github.com/viant/bearer/auth/store"
	"github.com/viant/bearer/auth/transport"
)

const redisCredentialKey = "bearer:credentials"

// Client is the assembled pipeline
type Client struct {
	Config      *Config
	Store       store.Store
	Coordinator *refresh.Coordinator
	Invalidator *session.Invalidator
	Transport   *transport.RoundTripper
	Session     *session.Client
	// HTTP authenticates every request and retries once after a refresh
	HTTP *http.Client

	logger    glog.Logger
	listeners []session.Listener
	inner     http.RoundTripper
	plain     *http.Client
}

// New creates a pipeline client for config
func New(ctx context.Context, config *Config, options ...Option) (*Client, error) {
	config.Init()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	ret := &Client{Config: config, logger: glog.Nop(), inner: http.DefaultTransport}
	for _, opt := range options {
		opt(ret)
	}
	if ret.plain == nil {
		ret.plain = &http.Client{Transport: ret.inner}
	}
	if ret.Store == nil {
		aStore, err := newStore(ctx, config.StoreURL)
		if err != nil {
			return nil, err
		}
		ret.Store = aStore
	}
	invalidatorOptions := []session.InvalidatorOption{session.WithInvalidatorLogger(ret.logger)}
	for _, listener := range ret.listeners {
		invalidatorOptions = append(invalidatorOptions, session.WithListener(listener))
	}
	ret.Invalidator = session.NewInvalidator(ret.Store, invalidatorOptions...)
	ret.Coordinator = refresh.NewCoordinator(ret.Store,
		refresh.NewClient(config.Endpoint(config.RefreshPath),
			refresh.WithHTTPClient(ret.plain),
			refresh.WithClientLogger(ret.logger)),
		refresh.WithInvalidator(ret.Invalidator),
		refresh.WithTimeout(config.RefreshTimeout()),
		refresh.WithLogger(ret.logger))
	roundTripper, err := transport.New(
		transport.WithStore(ret.Store),
		transport.WithCoordinator(ret.Coordinator),
		transport.WithTransport(ret.inner),
		transport.WithLogger(ret.logger))
	if err != nil {
		return nil, err
	}
	ret.Transport = roundTripper
	ret.HTTP = &http.Client{Transport: roundTripper}
	ret.Session = session.New(ret.Store, ret.Invalidator,
		session.WithLoginURL(config.Endpoint(config.LoginPath)),
		session.WithLogoutURL(config.Endpoint(config.LogoutPath)),
		session.WithRegisterURL(config.Endpoint(config.RegisterPath)),
		session.WithUserURL(config.Endpoint(config.UserPath)),
		session.WithDeleteURL(config.Endpoint(config.DeletePath)),
		session.WithHTTPClient(ret.plain),
		session.WithAuthenticatedClient(ret.HTTP),
		session.WithLogger(ret.logger))
	return ret, nil
}

// Endpoint resolves a path relative to the configured base url
func (c *Client) Endpoint(relative string) string {
	return c.Config.Endpoint(relative)
}

func newStore(ctx context.Context, URL string) (store.Store, error) {
	switch {
	case URL == "":
		return store.NewMemoryStore(), nil
	case strings.HasPrefix(URL, "redis://"), strings.HasPrefix(URL, "rediss://"):
		redisOptions, err := redis.ParseURL(URL)
		if err != nil {
			return nil, err
		}
		return store.NewRedisStore(redis.NewClient(redisOptions), redisCredentialKey), nil
	}
	fileStore, err := store.NewFileStore(ctx, URL)
	if err != nil {
		return nil, err
	}
	return fileStore, nil
}
