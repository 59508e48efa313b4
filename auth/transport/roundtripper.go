package transport

import (
	"context"
	"net/http"

	"github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
	"github.com/viant/bearer/auth/credential"
	"github.com/viant/bearer/auth/refresh"
	"github.com/viant/bearer/auth/store"
)

// Coordinator refreshes the stored credentials rejected with the stale access token,
// sharing one refresh among concurrent callers
type Coordinator interface {
	Refresh(ctx context.Context, stale string) refresh.Outcome
}

type RoundTripper struct {
	store       store.Store
	coordinator Coordinator
	transport   http.RoundTripper
	logger      glog.Logger
}

func New(options ...Option) (*RoundTripper, error) {
	ret := &RoundTripper{
		transport: http.DefaultTransport,
		store:     store.NewMemoryStore(),
		logger:    glog.Nop(),
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret, nil
}

func (r *RoundTripper) Store() store.Store {
	return r.store
}

func (r *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	logical, err := newRequest(uuid.NewString(), req)
	if err != nil {
		return nil, err
	}
	// 1) Send with whatever credentials are stored.
	sent, err := r.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := r.send(logical, sent)
	if err != nil {
		return nil, err
	}
	// 2) Anything but a 401 goes back as is.
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	return r.guard(ctx, logical, sent, resp)
}

// guard handles a 401: at most one refresh-and-resubmit per logical request
func (r *RoundTripper) guard(ctx context.Context, logical *request, sent *credential.Pair, rejected *http.Response) (*http.Response, error) {
	if logical.retried {
		r.logger.Debug("request rejected after retry", "request_id", logical.id)
		return rejected, nil
	}
	current, err := r.store.Get(ctx)
	if err != nil {
		discard(rejected)
		return nil, err
	}
	if current == nil || current.RefreshToken == "" || r.coordinator == nil {
		return rejected, nil
	}
	logical.retried = true

	next := current
	// 3) Refresh only if the rejected token is still the stored one; otherwise
	// another request refreshed meanwhile, or credentials arrived after sending.
	if sent != nil && sent.AccessToken == current.AccessToken {
		outcome := r.coordinator.Refresh(ctx, sent.AccessToken)
		if !outcome.Refreshed() {
			r.logger.Info("credential refresh failed, returning rejection",
				"request_id", logical.id,
				"error", outcome.Err)
			return rejected, nil
		}
		next = outcome.Pair
	}
	discard(rejected)

	// 4) Replay once with the new credentials; its outcome is final.
	r.logger.Debug("retrying request with refreshed credentials",
		"request_id", logical.id,
		"method", logical.original.Method,
		"url", logical.original.URL.Redacted())
	return r.send(logical, next)
}

func (r *RoundTripper) send(logical *request, pair *credential.Pair) (*http.Response, error) {
	outgoing, err := logical.next()
	if err != nil {
		return nil, err
	}
	return r.transport.RoundTrip(Authenticate(outgoing, pair))
}
