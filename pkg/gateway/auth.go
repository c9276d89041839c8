package gateway

import (
	"crypto/subtle"
	"errors"
	"net/http"
)

var (
	errMissingAuth = errors.New("Missing Authorization in headers")
	errBadToken    = errors.New("Invalid token for Authorization")
)

// Authenticator decides whether a request may reach a protected handler.
type Authenticator interface {
	Authenticate(r *http.Request) error
}

// StaticTokenAuth checks the Authorization header against one shared token.
// No per-user credentials, no expiry.
type StaticTokenAuth struct {
	Token string
}

func (a StaticTokenAuth) Authenticate(r *http.Request) error {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return errMissingAuth
	}
	if subtle.ConstantTimeCompare([]byte(auth), []byte(a.Token)) != 1 {
		return errBadToken
	}
	return nil
}

// authMiddleware gates a handler behind the server's authenticator.
// Missing credentials are 401, rejected ones are 403.
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.Authenticate(r); err != nil {
			code := http.StatusForbidden
			if errors.Is(err, errMissingAuth) {
				code = http.StatusUnauthorized
			}
			writeStatus(w, code, err.Error())
			return
		}
		next(w, r)
	}
}
