package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ampere-erp/ampere-erp/internal/platform/httpx"
	"github.com/ampere-erp/ampere-erp/internal/shared"
)

// IdentityResolver maps verified token claims to a local user identity,
// creating the profile row on first sight.
type IdentityResolver interface {
	Resolve(ctx context.Context, claims Claims) (shared.Identity, error)
}

// Middleware authenticates requests and installs the identity in context.
type Middleware struct {
	Verifier *Verifier
	Resolver IdentityResolver
	Logger   *slog.Logger
}

// Authenticate rejects requests without a valid bearer token.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}
		claims, err := m.Verifier.Verify(token)
		if err != nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid bearer token")
			return
		}
		identity, err := m.Resolver.Resolve(r.Context(), claims)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Error("resolve identity", slog.Any("error", err), slog.String("subject", claims.Subject))
			}
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		ctx := shared.ContextWithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrNoToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrNoToken
	}
	return parts[1], nil
}
