package mock

import (
	"encoding/json"
	"net/http"

	"github.com/viant/bearer/auth/credential"
)

func (s *Server) defaultLoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request")
		return
	}
	s.mu.Lock()
	user, ok := s.users[request.Email]
	s.mu.Unlock()
	if !ok || user.Password != request.Password {
		writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}
	pair, err := s.Issue(request.Email)
	if err != nil {
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) defaultRefreshHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var request struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.Refresh == "" {
		writeDetail(w, http.StatusBadRequest, "refresh is required")
		return
	}
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	if s.rejectRefresh.Load() {
		writeDetail(w, http.StatusUnauthorized, errInvalidToken.Error())
		return
	}
	var subject string
	var ok bool
	if s.Rotate {
		subject, ok = s.revoke(request.Refresh)
	} else {
		s.mu.Lock()
		subject, ok = s.refreshTokens[request.Refresh]
		s.mu.Unlock()
	}
	if !ok {
		writeDetail(w, http.StatusUnauthorized, errInvalidToken.Error())
		return
	}
	access, err := s.accessToken(subject)
	if err != nil {
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	response := &credential.Pair{AccessToken: access}
	if s.Rotate {
		response.RefreshToken = s.refreshToken(subject)
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) defaultLogoutHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Authenticate(r); err != nil {
		writeDetail(w, http.StatusUnauthorized, err.Error())
		return
	}
	var request struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.Refresh == "" {
		writeDetail(w, http.StatusBadRequest, "refresh is required")
		return
	}
	s.revoke(request.Refresh)
	w.WriteHeader(http.StatusResetContent)
}

// defaultResourceHandler simulates a protected resource
func (s *Server) defaultResourceHandler(w http.ResponseWriter, r *http.Request) {
	subject, err := s.Authenticate(r)
	if err != nil {
		w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
		writeDetail(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "This is a protected resource", "subject": subject})
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var request struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if request.Email == "" || request.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[request.Email]; ok {
		writeError(w, http.StatusBadRequest, "email is already registered")
		return
	}
	s.users[request.Email] = &account{Username: request.Username, Password: request.Password}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "registered"})
}

// userHandler returns the account of the authenticated user
func (s *Server) userHandler(w http.ResponseWriter, r *http.Request) {
	email, err := s.Authenticate(r)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, err.Error())
		return
	}
	s.mu.Lock()
	user, ok := s.users[email]
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"username": user.Username, "email": email})
}

func (s *Server) deleteHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	email, err := s.Authenticate(r)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, err.Error())
		return
	}
	s.mu.Lock()
	_, ok := s.users[email]
	delete(s.users, email)
	for token, subject := range s.refreshTokens {
		if subject == email {
			delete(s.refreshTokens, token)
		}
	}
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "account deleted"})
}
