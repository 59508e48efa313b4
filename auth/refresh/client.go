package refresh

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/goliatone/go-logger/glog"
	"github.com/viant/bearer/auth/credential"
)

const maxResponseSize = 1 << 20

// Refresher exchanges a refresh token for a new pair; the returned refresh token may be empty
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*credential.Pair, error)
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// Client calls the remote refresh endpoint
type Client struct {
	endpoint string
	client   *http.Client
	logger   glog.Logger
}

type ClientOption func(c *Client)

// WithHTTPClient sets the http client used for refresh calls; it must not authenticate through the pipeline itself
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithClientLogger sets logger
func WithClientLogger(logger glog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a refresher posting to endpoint
func NewClient(endpoint string, options ...ClientOption) *Client {
	ret := &Client{endpoint: endpoint, client: http.DefaultClient, logger: glog.Nop()}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Refresh posts {"refresh": token} and expects {"access": ..., "refresh": ...}
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*credential.Pair, error) {
	body, err := json.Marshal(&refreshRequest{Refresh: refreshToken})
	if err != nil {
		return nil, err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	response, err := c.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	defer response.Body.Close()
	data, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read refresh response: %w", err)
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		c.logger.Debug("refresh endpoint rejected request", "endpoint", c.endpoint, "status", response.StatusCode)
		return nil, &StatusError{StatusCode: response.StatusCode, Body: string(data)}
	}
	pair := &credential.Pair{}
	if err = json.Unmarshal(data, pair); err != nil {
		return nil, fmt.Errorf("invalid refresh response: %w", err)
	}
	if pair.AccessToken == "" {
		return nil, ErrMissingAccessToken
	}
	return pair, nil
}
