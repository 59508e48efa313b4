package mock

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	LoginPath    = "/api/token/"
	RefreshPath  = "/api/token/refresh/"
	LogoutPath   = "/api/logout/"
	RegisterPath = "/api/register/"
	UserPath     = "/api/user/"
	DeletePath   = "/api/delete/"
	ResourcePath = "/api/resource/"
)

type account struct {
	Username string
	Password string
}

// Server is a mock remote API
type Server struct {
	*httptest.Server
	Secret    []byte
	AccessTTL time.Duration
	Rotate    bool

	// optional overrides
	LoginHandler    http.HandlerFunc
	RefreshHandler  http.HandlerFunc
	LogoutHandler   http.HandlerFunc
	ResourceHandler http.HandlerFunc

	mu            sync.Mutex
	users         map[string]*account
	refreshTokens map[string]string
	generation    int64
	gate          chan struct{}
	rejectRefresh atomic.Bool
	refreshCalls  atomic.Int32
	resourceCalls atomic.Int32
	authorization []string
}

type Option func(s *Server)

// WithUser registers a user able to log in; the username is the local part of email
func WithUser(email, password string) Option {
	return func(s *Server) {
		s.users[email] = &account{Username: strings.Split(email, "@")[0], Password: password}
	}
}

// WithAccessTTL sets access token lifetime
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.AccessTTL = ttl
	}
}

// WithoutRotation makes refresh responses carry only a new access token
func WithoutRotation() Option {
	return func(s *Server) {
		s.Rotate = false
	}
}

// NewServer starts a mock server; Close it when done
func NewServer(options ...Option) *Server {
	ret := &Server{
		Secret:        []byte("mock-secret"),
		AccessTTL:     5 * time.Minute,
		Rotate:        true,
		users:         map[string]*account{},
		refreshTokens: map[string]string{},
	}
	for _, opt := range options {
		opt(ret)
	}
	ret.Server = httptest.NewServer(&Handler{Server: ret})
	return ret
}

// BaseURL returns the api root
func (s *Server) BaseURL() string {
	return s.URL + "/api/"
}

// RefreshCalls returns the number of refresh requests received
func (s *Server) RefreshCalls() int {
	return int(s.refreshCalls.Load())
}

// ResourceCalls returns the number of protected resource requests received
func (s *Server) ResourceCalls() int {
	return int(s.resourceCalls.Load())
}

// ActiveRefreshTokens returns the number of issued refresh tokens not yet spent or revoked
func (s *Server) ActiveRefreshTokens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.refreshTokens)
}

// HasUser reports whether email is a registered account
func (s *Server) HasUser(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[email]
	return ok
}

// Authorizations returns Authorization headers received by the protected resource
func (s *Server) Authorizations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.authorization...)
}

// RejectRefresh makes the refresh endpoint answer 401
func (s *Server) RejectRefresh(reject bool) {
	s.rejectRefresh.Store(reject)
}

// HoldRefresh blocks refresh requests until the returned release is called
func (s *Server) HoldRefresh() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()
	once := sync.Once{}
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.gate == gate {
				s.gate = nil
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

// ExpireAccessTokens rejects every access token issued so far
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

// Handler routes requests to the mock endpoints
type Handler struct {
	Server *Server
}

// ServeHTTP dispatches incoming HTTP requests based on URL path.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/") + "/"
	switch path {
	case LoginPath:
		if h.Server.LoginHandler != nil {
			h.Server.LoginHandler(w, r)
		} else {
			h.Server.defaultLoginHandler(w, r)
		}
	case RefreshPath:
		h.Server.refreshCalls.Add(1)
		if h.Server.RefreshHandler != nil {
			h.Server.RefreshHandler(w, r)
		} else {
			h.Server.defaultRefreshHandler(w, r)
		}
	case LogoutPath:
		if h.Server.LogoutHandler != nil {
			h.Server.LogoutHandler(w, r)
		} else {
			h.Server.defaultLogoutHandler(w, r)
		}
	case RegisterPath:
		h.Server.registerHandler(w, r)
	case UserPath:
		h.Server.userHandler(w, r)
	case DeletePath:
		h.Server.deleteHandler(w, r)
	case ResourcePath:
		h.Server.resourceCalls.Add(1)
		h.Server.mu.Lock()
		h.Server.authorization = append(h.Server.authorization, r.Header.Get("Authorization"))
		h.Server.mu.Unlock()
		if h.Server.ResourceHandler != nil {
			h.Server.ResourceHandler(w, r)
		} else {
			h.Server.defaultResourceHandler(w, r)
		}
	default:
		http.NotFound(w, r)
	}
}
