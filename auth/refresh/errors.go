package refresh

import (
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeRefreshFailed   = "REFRESH_FAILED"
	TextCodeRefreshRejected = "REFRESH_REJECTED"
	TextCodeRefreshEndpoint = "REFRESH_ENDPOINT_ERROR"
	maxErrorBodyLength      = 512
)

var (
	// ErrRefreshFailed is matched by every *RefreshError
	ErrRefreshFailed = errors.New("refresh: credential refresh failed")
	// ErrNoRefreshToken is returned when no refresh token is stored
	ErrNoRefreshToken = errors.New("refresh: no refresh token")
	// ErrMissingAccessToken is returned when the endpoint response carries no access token
	ErrMissingAccessToken = errors.New("refresh: response without access token")
)

// StatusError is returned for a non 2xx refresh endpoint response
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("refresh: endpoint responded %d", e.StatusCode)
	}
	body := e.Body
	if len(body) > maxErrorBodyLength {
		body = body[:maxErrorBodyLength]
	}
	return fmt.Sprintf("refresh: endpoint responded %d: %s", e.StatusCode, body)
}

// Unauthorized reports whether the endpoint rejected the refresh token
func (e *StatusError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

func (e *StatusError) ToServiceError() *goerrors.Error {
	if e.Unauthorized() {
		return goerrors.Wrap(e, goerrors.CategoryAuth, e.Error()).
			WithCode(http.StatusUnauthorized).
			WithTextCode(TextCodeRefreshRejected)
	}
	return goerrors.Wrap(e, goerrors.CategoryExternal, e.Error()).
		WithCode(http.StatusBadGateway).
		WithTextCode(TextCodeRefreshEndpoint)
}

// RefreshError is the terminal failure of a refresh flight
type RefreshError struct {
	Cause error
}

func (e *RefreshError) Error() string {
	if e == nil || e.Cause == nil {
		return ErrRefreshFailed.Error()
	}
	return ErrRefreshFailed.Error() + ": " + e.Cause.Error()
}

func (e *RefreshError) Unwrap() error {
	if e == nil {
		return nil
	}
	if e.Cause == nil {
		return ErrRefreshFailed
	}
	return errors.Join(ErrRefreshFailed, e.Cause)
}

func (e *RefreshError) ToServiceError() *goerrors.Error {
	return goerrors.Wrap(e, goerrors.CategoryAuth, e.Error()).
		WithCode(http.StatusUnauthorized).
		WithTextCode(TextCodeRefreshFailed)
}

func refreshFailed(cause error) *RefreshError {
	return &RefreshError{Cause: cause}
}
