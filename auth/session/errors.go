package session

import (
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeNotAuthenticated   = "NOT_AUTHENTICATED"
	TextCodeRegistration       = "REGISTRATION_REJECTED"
)

var (
	// ErrInvalidCredentials is returned when the login endpoint rejects the user
	ErrInvalidCredentials = errors.New("session: invalid credentials")
	// ErrLoggedOut is the invalidation cause of an explicit logout
	ErrLoggedOut = errors.New("session: logged out")
	// ErrNotAuthenticated is returned when no credentials are stored or the API no longer accepts them
	ErrNotAuthenticated = errors.New("session: not authenticated")
	// ErrAccountDeleted is the invalidation cause after the account was deleted
	ErrAccountDeleted = errors.New("session: account deleted")
	// ErrRegistrationRejected is matched by every *RegistrationError
	ErrRegistrationRejected = errors.New("session: registration rejected")
)

// RegistrationError is returned when the register endpoint refuses the account
type RegistrationError struct {
	Reason string
}

func (e *RegistrationError) Error() string {
	if e.Reason == "" {
		return ErrRegistrationRejected.Error()
	}
	return ErrRegistrationRejected.Error() + ": " + e.Reason
}

func (e *RegistrationError) Unwrap() error {
	return ErrRegistrationRejected
}

// EndpointError is returned for an unexpected login or logout endpoint response
type EndpointError struct {
	Endpoint   string
	StatusCode int
}

func (e *EndpointError) Error() string {
	return fmt.Sprintf("session: %v responded %d", e.Endpoint, e.StatusCode)
}

func (e *EndpointError) ToServiceError() *goerrors.Error {
	return goerrors.Wrap(e, goerrors.CategoryExternal, e.Error()).
		WithCode(http.StatusBadGateway).
		WithTextCode("SESSION_ENDPOINT_ERROR")
}

type serviceError interface {
	ToServiceError() *goerrors.Error
}

// ToServiceError maps session and pipeline errors to categorized service errors;
// the mapped error unwraps to err
func ToServiceError(err error) *goerrors.Error {
	var mapped *goerrors.Error
	var typed serviceError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &mapped):
		return mapped
	case errors.As(err, &typed):
		return typed.ToServiceError()
	case errors.Is(err, ErrRegistrationRejected):
		return goerrors.Wrap(err, goerrors.CategoryBadInput, err.Error()).
			WithCode(http.StatusBadRequest).
			WithTextCode(TextCodeRegistration)
	case errors.Is(err, ErrInvalidCredentials):
		return goerrors.Wrap(err, goerrors.CategoryAuth, err.Error()).
			WithCode(http.StatusUnauthorized).
			WithTextCode(TextCodeInvalidCredentials)
	case errors.Is(err, ErrNotAuthenticated), errors.Is(err, ErrLoggedOut), errors.Is(err, ErrAccountDeleted):
		return goerrors.Wrap(err, goerrors.CategoryAuth, err.Error()).
			WithCode(http.StatusUnauthorized).
			WithTextCode(TextCodeNotAuthenticated)
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, err.Error()).
		WithCode(http.StatusInternalServerError)
}
