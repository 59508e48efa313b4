package transport

import (
	"bytes"
	"io"
	"net/http"
)

const maxDrainSize = 64 << 10

// request is one logical request: the original descriptor, its replayable body and whether it was retried
type request struct {
	id       string
	original *http.Request
	body     []byte
	retried  bool
}

func newRequest(id string, r *http.Request) (*request, error) {
	ret := &request{id: id, original: r, retried: isRetried(r.Context())}
	if r.Body == nil || r.Body == http.NoBody {
		return ret, nil
	}
	if r.GetBody != nil {
		// every submission opens its own body
		_ = r.Body.Close()
		return ret, nil
	}
	// deep-copy body for replay
	data, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	if err != nil {
		return nil, err
	}
	ret.body = data
	return ret, nil
}

// next returns a fresh copy of the original request for one submission
func (r *request) next() (*http.Request, error) {
	cloned := r.original.Clone(r.original.Context())
	switch {
	case r.body != nil:
		cloned.Body = io.NopCloser(bytes.NewReader(r.body))
		cloned.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(r.body)), nil
		}
	case r.original.GetBody != nil && r.original.Body != nil && r.original.Body != http.NoBody:
		body, err := r.original.GetBody()
		if err != nil {
			return nil, err
		}
		cloned.Body = body
	}
	return cloned, nil
}

// discard drains a bounded amount of the body so the connection can be reused, then closes it
func discard(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainSize))
	_ = resp.Body.Close()
}
