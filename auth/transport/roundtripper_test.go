package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/bearer/auth/credential"
	"github.com/viant/bearer/auth/mock"
	"github.com/viant/bearer/auth/refresh"
	"github.com/viant/bearer/auth/session"
	"github.com/viant/bearer/auth/store"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// hookStore intercepts reads of the wrapped store
type hookStore struct {
	store.Store
	get func(ctx context.Context, pair *credential.Pair, err error) (*credential.Pair, error)
}

func (h *hookStore) Get(ctx context.Context) (*credential.Pair, error) {
	pair, err := h.Store.Get(ctx)
	if h.get != nil {
		return h.get(ctx, pair, err)
	}
	return pair, err
}

type pipeline struct {
	store         store.Store
	coordinator   *refresh.Coordinator
	roundTripper  *RoundTripper
	client        *http.Client
	invalidations atomic.Int32
	cause         error
}

func newPipeline(t *testing.T, server *mock.Server, initial *credential.Pair, options ...Option) *pipeline {
	t.Helper()
	return newStorePipeline(t, server, store.NewMemoryStore(store.WithPair(initial)), options...)
}

func newStorePipeline(t *testing.T, server *mock.Server, aStore store.Store, options ...Option) *pipeline {
	t.Helper()
	ret := &pipeline{store: aStore}
	invalidator := session.NewInvalidator(ret.store, session.WithListener(session.ListenerFunc(func(ctx context.Context, cause error) {
		ret.invalidations.Add(1)
		ret.cause = cause
	})))
	ret.coordinator = refresh.NewCoordinator(ret.store,
		refresh.NewClient(server.URL+mock.RefreshPath),
		refresh.WithInvalidator(invalidator))
	options = append([]Option{WithStore(ret.store), WithCoordinator(ret.coordinator)}, options...)
	roundTripper, err := New(options...)
	require.NoError(t, err)
	ret.roundTripper = roundTripper
	ret.client = &http.Client{Transport: roundTripper}
	return ret
}

func (p *pipeline) get(t *testing.T, URL string) (int, string) {
	resp, err := p.client.Get(URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

// bearerResource accepts only the given access token
func bearerResource(accessToken string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+accessToken {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Given token not valid for any token type"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}
}

func refreshResponse(t *testing.T, expectRefresh string, response string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var request map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		assert.Equal(t, expectRefresh, request["refresh"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}
}

func TestRoundTripper_RefreshAccessOnly(t *testing.T) {
	server := mock.NewServer()
	defer server.Close()
	server.ResourceHandler = bearerResource("A2")
	server.RefreshHandler = refreshResponse(t, "R1", `{"access":"A2"}`)

	p := newPipeline(t, server, credential.New("A1", "R1"))
	status, body := p.get(t, server.URL+mock.ResourcePath)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, `{"status":"success"}`, body)
	assert.Equal(t, []string{"Bearer A1", "Bearer A2"}, server.Authorizations())
	assert.Equal(t, 1, server.RefreshCalls())
	pair, _ := p.store.Get(context.Background())
	assert.EqualValues(t, credential.New("A2", "R1"), pair)
	assert.EqualValues(t, 0, p.invalidations.Load())
}

func TestRoundTripper_ConcurrentRejections(t *testing.T) {
	server := mock.NewServer()
	defer server.Close()
	release := make(chan struct{})
	server.ResourceHandler = bearerResource("A2")
	refreshHandler := refreshResponse(t, "R1", `{"access":"A2","refresh":"R2"}`)
	server.RefreshHandler = func(w http.ResponseWriter, r *http.Request) {
		<-release
		refreshHandler(w, r)
	}

	p := newPipeline(t, server, credential.New("A1", "R1"))
	const requests = 3
	statuses := make([]int, requests)
	wg := sync.WaitGroup{}
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := p.client.Get(server.URL + mock.ResourcePath)
			if !assert.NoError(t, err) {
				return
			}
			statuses[i] = resp.StatusCode
			_ = resp.Body.Close()
		}(i)
	}
	require.Eventually(t, func() bool {
		return server.ResourceCalls() == requests && server.RefreshCalls() == 1
	}, 2*time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusOK}, statuses)
	assert.Equal(t, 1, server.RefreshCalls())
	assert.EqualValues(t, 1, p.coordinator.Flights())
	retried := 0
	for _, authorization := range server.Authorizations() {
		if authorization == "Bearer A2" {
			retried++
		}
	}
	assert.Equal(t, requests, retried)
	pair, _ := p.store.Get(context.Background())
	assert.EqualValues(t, credential.New("A2", "R2"), pair)
}

func TestRoundTripper_RefreshRejected(t *testing.T) {
	server := mock.NewServer()
	defer server.Close()
	server.ResourceHandler = bearerResource("A2")
	server.RejectRefresh(true)

	p := newPipeline(t, server, credential.New("A1", "R1"))
	status, body := p.get(t, server.URL+mock.ResourcePath)

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, `{"detail":"Given token not valid for any token type"}`, body)
	assert.Equal(t, 1, server.RefreshCalls())
	assert.Equal(t, []string{"Bearer A1"}, server.Authorizations())
	pair, _ := p.store.Get(context.Background())
	assert.Nil(t, pair)
	assert.EqualValues(t, 1, p.invalidations.Load())
	assert.ErrorIs(t, p.cause, refresh.ErrRefreshFailed)
}

func TestRoundTripper_ConcurrentRefreshRejected(t *testing.T) {
	server := mock.NewServer()
	defer server.Close()
	server.ResourceHandler = bearerResource("A2")
	server.RejectRefresh(true)
	release := server.HoldRefresh()

	p := newPipeline(t, server, credential.New("A1", "R1"))
	const requests = 4
	statuses := make([]int, requests)
	wg := sync.WaitGroup{}
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := p.client.Get(server.URL + mock.ResourcePath)
			if !assert.NoError(t, err) {
				return
			}
			statuses[i] = resp.StatusCode
			_ = resp.Body.Close()
		}(i)
	}
	require.Eventually(t, func() bool {
		return server.ResourceCalls() == requests && server.RefreshCalls() == 1
	}, 2*time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	release()
	wg.Wait()

	for _, status := range statuses {
		assert.Equal(t, http.StatusUnauthorized, status)
	}
	assert.Equal(t, 1, server.RefreshCalls())
	assert.EqualValues(t, 1, p.invalidations.Load())
	pair, _ := p.store.Get(context.Background())
	assert.Nil(t, pair)
}

func TestRoundTripper_RetriedOnce(t *testing.T) {
	server := mock.NewServer()
	defer server.Close()
	server.ResourceHandler = bearerResource("never")
	server.RefreshHandler = refreshResponse(t, "R1", `{"access":"A2","refresh":"R2"}`)

	p := newPipeline(t, server, credential.New("A1", "R1"))
	status, _ := p.get(t, server.URL+mock.ResourcePath)

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 1, server.RefreshCalls())
	assert.Equal(t, []string{"Bearer A1", "Bearer A2"}, server.Authorizations())
	pair, _ := p.store.Get(context.Background())
	assert.EqualValues(t, credential.New("A2", "R2"), pair)
	assert.EqualValues(t, 0, p.invalidations.Load())
}

func TestRoundTripper_PassThrough(t *testing.T) {
	testCases := []struct {
		description string
		initial     *credential.Pair
		status      int
		retried     bool
		expectAuth  string
	}{
		{description: "authorized", initial: credential.New("A1", "R1"), status: http.StatusOK, expectAuth: "Bearer A1"},
		{description: "forbidden is not a refresh signal", initial: credential.New("A1", "R1"), status: http.StatusForbidden, expectAuth: "Bearer A1"},
		{description: "server error", initial: credential.New("A1", "R1"), status: http.StatusInternalServerError, expectAuth: "Bearer A1"},
		{description: "no credentials", status: http.StatusUnauthorized},
		{description: "already retried", initial: credential.New("A1", "R1"), status: http.StatusUnauthorized, retried: true, expectAuth: "Bearer A1"},
	}

	for _, testCase := range testCases {
		server := mock.NewServer()
		server.ResourceHandler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(testCase.status)
		}
		p := newPipeline(t, server, testCase.initial)
		ctx := context.Background()
		if testCase.retried {
			ctx = WithRetried(ctx)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+mock.ResourcePath, nil)
		require.NoError(t, err)
		resp, err := p.client.Do(req)
		require.NoError(t, err, testCase.description)
		_ = resp.Body.Close()
		server.Close()

		assert.Equal(t, testCase.status, resp.StatusCode, testCase.description)
		assert.Equal(t, 0, server.RefreshCalls(), testCase.description)
		assert.Equal(t, []string{testCase.expectAuth}, server.Authorizations(), testCase.description)
		pair, _ := p.store.Get(ctx)
		assert.EqualValues(t, testCase.initial, pair, testCase.description)
	}
}

func TestRoundTripper_TransportError(t *testing.T) {
	server := mock.NewServer()
	defer server.Close()
	transportErr := errors.New("connection reset by peer")
	p := newPipeline(t, server, credential.New("A1", "R1"), WithTransport(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return nil, transportErr
	})))
	_, err := p.client.Get(server.URL + mock.ResourcePath)
	require.Error(t, err)
	assert.ErrorIs(t, err, transportErr)
	assert.Equal(t, 0, server.RefreshCalls())
	pair, _ := p.store.Get(context.Background())
	assert.EqualValues(t, credential.New("A1", "R1"), pair)
}

func TestRoundTripper_AlreadyRefreshedByAnotherRequest(t *testing.T) {
	server := mock.NewServer()
	defer server.Close()
	server.ResourceHandler = bearerResource("A2")

	var p *pipeline
	var first atomic.Bool
	inner := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		resp, err := http.DefaultTransport.RoundTrip(r)
		if err == nil && first.CompareAndSwap(false, true) {
			// another request completed a refresh while this one was in flight
			_ = p.store.Set(r.Context(), credential.New("A2", "R2"))
		}
		return resp, err
	})
	p = newPipeline(t, server, credential.New("A1", "R1"), WithTransport(inner))
	status, _ := p.get(t, server.URL+mock.ResourcePath)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, server.RefreshCalls())
	assert.Equal(t, []string{"Bearer A1", "Bearer A2"}, server.Authorizations())
}

func TestRoundTripper_ReplaysBody(t *testing.T) {
	testCases := []struct {
		description string
		body        func(payload string) io.Reader
	}{
		{description: "replayable body", body: func(payload string) io.Reader { return strings.NewReader(payload) }},
		{description: "one shot body", body: func(payload string) io.Reader { return io.NopCloser(strings.NewReader(payload)) }},
	}

	for _, testCase := range testCases {
		server := mock.NewServer()
		server.RefreshHandler = refreshResponse(t, "R1", `{"access":"A2"}`)
		var bodies []string
		mux := sync.Mutex{}
		server.ResourceHandler = func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)
			mux.Lock()
			bodies = append(bodies, string(data))
			mux.Unlock()
			bearerResource("A2")(w, r)
		}
		p := newPipeline(t, server, credential.New("A1", "R1"))
		payload := `{"symbol":"AAPL"}`
		resp, err := p.client.Post(server.URL+mock.ResourcePath, "application/json", testCase.body(payload))
		require.NoError(t, err, testCase.description)
		_ = resp.Body.Close()
		server.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode, testCase.description)
		assert.Equal(t, []string{payload, payload}, bodies, testCase.description)
	}
}

func TestRoundTripper_MockServerRotation(t *testing.T) {
	server := mock.NewServer()
	defer server.Close()
	issued, err := server.Issue("user@example.com")
	require.NoError(t, err)

	p := newPipeline(t, server, issued)
	status, _ := p.get(t, server.URL+mock.ResourcePath)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, server.RefreshCalls())

	server.ExpireAccessTokens()
	status, body := p.get(t, server.URL+mock.ResourcePath)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "user@example.com")
	assert.Equal(t, 1, server.RefreshCalls())

	rotated, _ := p.store.Get(context.Background())
	require.NotNil(t, rotated)
	assert.NotEqual(t, issued.AccessToken, rotated.AccessToken)
	assert.NotEqual(t, issued.RefreshToken, rotated.RefreshToken)
}

type delayedReadKey struct{}

func TestRoundTripper_RefreshCompletedBeforeGuard(t *testing.T) {
	ctx := context.Background()
	server := mock.NewServer()
	defer server.Close()
	server.ResourceHandler = bearerResource("A2")
	server.RefreshHandler = refreshResponse(t, "R1", `{"access":"A2","refresh":"R2"}`)

	reached := make(chan struct{})
	resume := make(chan struct{})
	var reads atomic.Int32
	aStore := &hookStore{Store: store.NewMemoryStore(store.WithPair(credential.New("A1", "R1")))}
	// the second read of the delayed request is its guard read: it observes A1,
	// then stalls until the other request has completed a refresh
	aStore.get = func(ctx context.Context, pair *credential.Pair, err error) (*credential.Pair, error) {
		if ctx.Value(delayedReadKey{}) != nil && reads.Add(1) == 2 {
			close(reached)
			<-resume
		}
		return pair, err
	}
	p := newStorePipeline(t, server, aStore)

	delayed := make(chan int, 1)
	go func() {
		req, err := http.NewRequestWithContext(context.WithValue(ctx, delayedReadKey{}, true), http.MethodGet, server.URL+mock.ResourcePath, nil)
		if !assert.NoError(t, err) {
			delayed <- 0
			return
		}
		resp, err := p.client.Do(req)
		if !assert.NoError(t, err) {
			delayed <- 0
			return
		}
		_ = resp.Body.Close()
		delayed <- resp.StatusCode
	}()
	<-reached
	status, _ := p.get(t, server.URL+mock.ResourcePath)
	assert.Equal(t, http.StatusOK, status)
	close(resume)

	assert.Equal(t, http.StatusOK, <-delayed)
	assert.Equal(t, 1, server.RefreshCalls())
	assert.EqualValues(t, 1, p.coordinator.Flights())
	pair, _ := p.store.Get(ctx)
	assert.EqualValues(t, credential.New("A2", "R2"), pair)
}

func TestRoundTripper_StoreReadError(t *testing.T) {
	server := mock.NewServer()
	defer server.Close()
	server.ResourceHandler = bearerResource("A2")
	readErr := errors.New("store unavailable")
	var reads atomic.Int32
	aStore := &hookStore{Store: store.NewMemoryStore(store.WithPair(credential.New("A1", "R1")))}
	aStore.get = func(ctx context.Context, pair *credential.Pair, err error) (*credential.Pair, error) {
		if reads.Add(1) > 1 {
			return nil, readErr
		}
		return pair, err
	}
	p := newStorePipeline(t, server, aStore)

	_, err := p.client.Get(server.URL + mock.ResourcePath)
	require.Error(t, err)
	assert.ErrorIs(t, err, readErr)
	assert.Equal(t, 0, server.RefreshCalls())
}

func TestRoundTripper_CallerCancelledWhileRefreshing(t *testing.T) {
	server := mock.NewServer()
	defer server.Close()
	release := make(chan struct{})
	server.ResourceHandler = bearerResource("A2")
	refreshHandler := refreshResponse(t, "R1", `{"access":"A2","refresh":"R2"}`)
	server.RefreshHandler = func(w http.ResponseWriter, r *http.Request) {
		<-release
		refreshHandler(w, r)
	}
	p := newPipeline(t, server, credential.New("A1", "R1"))

	const requests = 2
	statuses := make([]int, requests)
	wg := sync.WaitGroup{}
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := p.client.Get(server.URL + mock.ResourcePath)
			if !assert.NoError(t, err) {
				return
			}
			statuses[i] = resp.StatusCode
			_ = resp.Body.Close()
		}(i)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan *http.Response, 1)
	go func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+mock.ResourcePath, nil)
		if !assert.NoError(t, err) {
			cancelled <- nil
			return
		}
		resp, err := p.roundTripper.RoundTrip(req)
		assert.NoError(t, err)
		cancelled <- resp
	}()
	require.Eventually(t, func() bool {
		return server.ResourceCalls() == requests+1 && server.RefreshCalls() == 1
	}, 2*time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	cancel()
	resp := <-cancelled
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()

	close(release)
	wg.Wait()
	assert.Equal(t, []int{http.StatusOK, http.StatusOK}, statuses)
	assert.Equal(t, 1, server.RefreshCalls())
	assert.EqualValues(t, 1, p.coordinator.Flights())
	assert.EqualValues(t, 0, p.invalidations.Load())
	pair, _ := p.store.Get(context.Background())
	assert.EqualValues(t, credential.New("A2", "R2"), pair)
}
