package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/goliatone/go-logger/glog"
	"github.com/viant/bearer/auth/credential"
	"github.com/viant/bearer/auth/store"
	"golang.org/x/oauth2"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type logoutRequest struct {
	Refresh string `json:"refresh"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// User is the account the stored credentials belong to
type User struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Client logs users in and out of the remote API and manages their account
type Client struct {
	loginURL    string
	logoutURL   string
	registerURL string
	userURL     string
	deleteURL   string
	store       store.Store
	invalidator *Invalidator
	client      *http.Client
	authClient  *http.Client
	logger      glog.Logger
}

// New creates a session client; login and logout endpoints are set with options
func New(aStore store.Store, invalidator *Invalidator, options ...Option) *Client {
	ret := &Client{
		store:       aStore,
		invalidator: invalidator,
		client:      http.DefaultClient,
		logger:      glog.Nop(),
	}
	for _, opt := range options {
		opt(ret)
	}
	if ret.authClient == nil {
		ret.authClient = ret.client
	}
	return ret
}

// Login exchanges email and password for a credential pair and stores it
func (c *Client) Login(ctx context.Context, email, password string) (*credential.Pair, error) {
	if c.loginURL == "" {
		return nil, fmt.Errorf("session: login endpoint was not configured")
	}
	response, err := c.send(ctx, c.client, http.MethodPost, c.loginURL, &loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()
	switch {
	case response.StatusCode == http.StatusUnauthorized, response.StatusCode == http.StatusBadRequest:
		return nil, ErrInvalidCredentials
	case response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices:
		return nil, &EndpointError{Endpoint: c.loginURL, StatusCode: response.StatusCode}
	}
	pair := &credential.Pair{}
	if err = json.NewDecoder(io.LimitReader(response.Body, 1<<20)).Decode(pair); err != nil {
		return nil, fmt.Errorf("invalid login response: %w", err)
	}
	if err = c.store.Set(ctx, pair); err != nil {
		return nil, err
	}
	c.logger.Info("session established")
	return pair.Clone(), nil
}

// Register creates an account; it does not log in
func (c *Client) Register(ctx context.Context, email, username, password string) error {
	if c.registerURL == "" {
		return fmt.Errorf("session: register endpoint was not configured")
	}
	response, err := c.send(ctx, c.client, http.MethodPost, c.registerURL, &registerRequest{Email: email, Username: username, Password: password})
	if err != nil {
		return err
	}
	defer response.Body.Close()
	switch {
	case response.StatusCode == http.StatusBadRequest:
		var rejection struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(response.Body, 1<<20)).Decode(&rejection)
		return &RegistrationError{Reason: rejection.Error}
	case response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices:
		return &EndpointError{Endpoint: c.registerURL, StatusCode: response.StatusCode}
	}
	c.logger.Info("account registered")
	return nil
}

// CurrentUser returns the account of the stored credentials
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	if c.userURL == "" {
		return nil, fmt.Errorf("session: user endpoint was not configured")
	}
	response, err := c.send(ctx, c.authClient, http.MethodGet, c.userURL, nil)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()
	if err = c.expectOK(response, c.userURL); err != nil {
		return nil, err
	}
	user := &User{}
	if err = json.NewDecoder(io.LimitReader(response.Body, 1<<20)).Decode(user); err != nil {
		return nil, fmt.Errorf("invalid user response: %w", err)
	}
	return user, nil
}

// DeleteAccount deletes the account remotely, then ends the local session with ErrAccountDeleted
func (c *Client) DeleteAccount(ctx context.Context) error {
	if c.deleteURL == "" {
		return fmt.Errorf("session: delete endpoint was not configured")
	}
	response, err := c.send(ctx, c.authClient, http.MethodDelete, c.deleteURL, nil)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, 1<<20))
	if err = c.expectOK(response, c.deleteURL); err != nil {
		return err
	}
	c.logger.Info("account deleted")
	return c.invalidator.Invalidate(ctx, ErrAccountDeleted)
}

// Logout revokes the refresh token remotely when a logout endpoint is configured,
// then ends the local session. The local session ends even if the remote call fails.
// An invalidation caused by a refresh failing during logout carries ErrLoggedOut.
func (c *Client) Logout(ctx context.Context) error {
	pair, err := c.store.Get(ctx)
	if err != nil {
		return err
	}
	if pair == nil {
		return nil
	}
	ctx = withLoggingOut(ctx)
	var remoteErr error
	if c.logoutURL != "" {
		remoteErr = c.revoke(ctx, pair)
		// the revoke call refreshed the pair on its way: revoke the rotated refresh token
		if current, err := c.store.Get(ctx); err == nil && current != nil && current.RefreshToken != pair.RefreshToken {
			remoteErr = c.revoke(ctx, current)
		}
		if remoteErr != nil {
			c.logger.Warn("remote logout failed", "error", remoteErr)
		}
	}
	if err = c.invalidator.Invalidate(ctx, ErrLoggedOut); err != nil {
		return err
	}
	return remoteErr
}

func (c *Client) revoke(ctx context.Context, pair *credential.Pair) error {
	response, err := c.send(ctx, c.authClient, http.MethodPost, c.logoutURL, &logoutRequest{Refresh: pair.RefreshToken})
	if err != nil {
		return err
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, 1<<20))
	switch {
	case response.StatusCode == http.StatusUnauthorized:
		// credentials are no longer accepted, there is nothing left to revoke
		return nil
	case response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices:
		return &EndpointError{Endpoint: c.logoutURL, StatusCode: response.StatusCode}
	}
	return nil
}

func (c *Client) expectOK(response *http.Response, URL string) error {
	switch {
	case response.StatusCode == http.StatusUnauthorized:
		return ErrNotAuthenticated
	case response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices:
		return &EndpointError{Endpoint: URL, StatusCode: response.StatusCode}
	}
	return nil
}

// Authenticated reports whether credentials are stored
func (c *Client) Authenticated(ctx context.Context) (bool, error) {
	pair, err := c.store.Get(ctx)
	if err != nil {
		return false, err
	}
	return pair != nil, nil
}

// TokenSource exposes the stored credentials as an oauth2.TokenSource
func (c *Client) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, store: c.store}
}

func (c *Client) send(ctx context.Context, client *http.Client, method, URL string, payload interface{}) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}
	request, err := http.NewRequestWithContext(ctx, method, URL, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set("Accept", "application/json")
	return client.Do(request)
}

type tokenSource struct {
	ctx   context.Context
	store store.Store
}

func (t *tokenSource) Token() (*oauth2.Token, error) {
	pair, err := t.store.Get(t.ctx)
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, ErrNotAuthenticated
	}
	return pair.Token(), nil
}
