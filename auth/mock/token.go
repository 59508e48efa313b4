package mock

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/viant/bearer/auth/credential"
)

var errInvalidToken = errors.New("Token is invalid or expired")

// Issue creates a valid pair for subject without going through login
func (s *Server) Issue(subject string) (*credential.Pair, error) {
	access, err := s.accessToken(subject)
	if err != nil {
		return nil, err
	}
	return credential.New(access, s.refreshToken(subject)), nil
}

// accessToken creates a signed JWT access token for subject
func (s *Server) accessToken(subject string) (string, error) {
	s.mu.Lock()
	generation := s.generation
	s.mu.Unlock()
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": now.Add(s.AccessTTL).Unix(),
		"iat": now.Unix(),
		"jti": uuid.NewString(),
		"typ": "access",
		"gen": generation,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.Secret)
}

func (s *Server) refreshToken(subject string) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.refreshTokens[token] = subject
	s.mu.Unlock()
	return token
}

func (s *Server) revoke(refreshToken string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subject, ok := s.refreshTokens[refreshToken]
	delete(s.refreshTokens, refreshToken)
	return subject, ok
}

// Authenticate validates the bearer access token of r and returns its subject
func (s *Server) Authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", errors.New("Authentication credentials were not provided")
	}
	token, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(token *jwt.Token) (interface{}, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["typ"] != "access" {
		return "", errInvalidToken
	}
	generation, _ := claims["gen"].(float64)
	s.mu.Lock()
	current := s.generation
	s.mu.Unlock()
	if int64(generation) < current {
		return "", errInvalidToken
	}
	subject, _ := claims.GetSubject()
	return subject, nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
