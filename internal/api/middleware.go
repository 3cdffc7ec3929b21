package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

// Authorizer decides whether a request may use the API. Implementations see
// the full request so they can check headers or source address.
type Authorizer interface {
	Authorize(r *http.Request) error
}

// AllowAll authorizes every request. The service normally sits behind the
// platform's own gateway, which is where real authentication happens.
type AllowAll struct{}

func (AllowAll) Authorize(*http.Request) error { return nil }

// TokenAuthorizer checks a static bearer token
type TokenAuthorizer struct {
	Token string
}

func (a TokenAuthorizer) Authorize(r *http.Request) error {
	if r.Header.Get("Authorization") != "Bearer "+a.Token {
		return errUnauthorized
	}
	return nil
}

type authError string

func (e authError) Error() string { return string(e) }

const errUnauthorized = authError("invalid or missing token")

func authMiddleware(auth Authorizer) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := auth.Authorize(r); err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitMiddleware applies one shared token bucket to the wrapped routes
func rateLimitMiddleware(perMinute, burst int) mux.MiddlewareFunc {
	limiter := rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "too many trigger requests, slow down")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
