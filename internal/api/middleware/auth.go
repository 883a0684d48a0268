package middleware

import (
	"net/http"

	"github.com/phrazzld/scry-live/internal/api/shared"
	"github.com/phrazzld/scry-live/internal/auth"
)

// AuthMiddleware attaches the caller's identity to requests.
type AuthMiddleware struct {
	verifier *auth.Verifier
}

// NewAuthMiddleware creates an AuthMiddleware backed by verifier.
func NewAuthMiddleware(verifier *auth.Verifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Authenticate resolves the caller's identity and stores it in the request
// context. It never rejects a request; pair it with RequireIdentity on
// routes that need a caller. When the identity came from a token a session
// cookie is set so later requests can skip the token.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := m.verifier.Resolve(r)
		if !res.Authenticated() {
			next.ServeHTTP(w, r)
			return
		}
		if res.Cookie != nil {
			http.SetCookie(w, res.Cookie)
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), res.Identity)))
	})
}

// RequireIdentity answers 401 unless Authenticate found an identity.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.IdentityFromContext(r.Context()); !ok {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
