package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
)

var (
	ErrNoSession = errors.New("no valid session found")
)

// SessionClient resolves the signed-in user for incoming requests.
type SessionClient interface {
	GetUserIDFromRequest(r *http.Request) (string, error)
	WithAuthHTTP(handler http.Handler) http.Handler
}

type clerkClient struct {
	secretKey string
}

var _ SessionClient = (*clerkClient)(nil)

func NewClient(secretKey string) (*clerkClient, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("clerk secret key is required")
	}

	clerk.SetKey(secretKey)

	return &clerkClient{secretKey: secretKey}, nil
}

func (c *clerkClient) GetUserIDFromRequest(r *http.Request) (string, error) {
	sessionClaims, ok := clerk.SessionClaimsFromContext(r.Context())
	if !ok || sessionClaims == nil {
		return "", ErrNoSession
	}
	return sessionClaims.Subject, nil
}

// WithAuthHTTP wraps a handler with Clerk's session verification. Browser
// clients only carry the __session cookie, so shim it into the Authorization
// header before the middleware runs.
func (c *clerkClient) WithAuthHTTP(handler http.Handler) http.Handler {
	purgeAndRetry := clerkhttp.AuthorizationFailureHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// expire any stale session cookie so the client re-authenticates
		http.SetCookie(w, &http.Cookie{
			Name:  "__session",
			Value: "",
		})
		http.Error(w, "session expired", http.StatusUnauthorized)
	}))

	wrapped := clerkhttp.WithHeaderAuthorization(purgeAndRetry)(handler)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			if cookie, err := r.Cookie("__session"); err == nil && cookie.Value != "" {
				r.Header.Set("Authorization", "Bearer "+cookie.Value)
			}
		}
		wrapped.ServeHTTP(w, r)
	})
}
