package credential

import (
	"golang.org/x/oauth2"
)

// Pair is the access/refresh token pair. Both tokens are opaque.
type Pair struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh,omitempty"`
}

// New creates a pair
func New(accessToken, refreshToken string) *Pair {
	return &Pair{AccessToken: accessToken, RefreshToken: refreshToken}
}

// Valid reports whether both tokens are present
func (p *Pair) Valid() bool {
	return p != nil && p.AccessToken != "" && p.RefreshToken != ""
}

// Clone returns a copy of the pair, nil for nil
func (p *Pair) Clone() *Pair {
	if p == nil {
		return nil
	}
	ret := *p
	return &ret
}

// Rotate returns the pair that follows p after a refresh returned next.
// A missing refresh token in next keeps the current one.
func (p *Pair) Rotate(next *Pair) *Pair {
	if next == nil {
		return p.Clone()
	}
	ret := &Pair{AccessToken: next.AccessToken, RefreshToken: next.RefreshToken}
	if ret.RefreshToken == "" && p != nil {
		ret.RefreshToken = p.RefreshToken
	}
	return ret
}

// Token converts the pair to an oauth2 bearer token
func (p *Pair) Token() *oauth2.Token {
	if p == nil {
		return nil
	}
	return &oauth2.Token{
		TokenType:    "Bearer",
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
	}
}

// FromToken converts an oauth2 token to a pair, nil for nil
func FromToken(token *oauth2.Token) *Pair {
	if token == nil {
		return nil
	}
	return &Pair{AccessToken: token.AccessToken, RefreshToken: token.RefreshToken}
}
