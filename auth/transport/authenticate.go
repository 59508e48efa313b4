package transport

import (
	"net/http"

	"github.com/viant/bearer/auth/credential"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
)

// Authenticate returns a copy of req carrying the pair's access token as its only
// Authorization header. Without credentials req is returned unchanged.
func Authenticate(req *http.Request, pair *credential.Pair) *http.Request {
	if pair == nil || pair.AccessToken == "" {
		return req
	}
	ret := req.Clone(req.Context())
	if ret.Header == nil {
		ret.Header = http.Header{}
	}
	ret.Header.Set(authorizationHeader, bearerPrefix+pair.AccessToken)
	return ret
}
