package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/kubarr/pkg/slogx"
)

// PermissionChecker answers whether an account holds a permission. It is
// consulted on every request, so role changes apply immediately.
type PermissionChecker interface {
	HasPermission(ctx context.Context, accountID, perm string) (bool, error)
}

// RequirePermission rejects requests whose authenticated account lacks perm.
// It must run after a middleware that stores the account id.
func RequirePermission(pc PermissionChecker, perm string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			accountID, ok := AccountID(ctx)
			if !ok {
				WriteBearerError(w, "authentication required")
				return
			}

			allowed, err := pc.HasPermission(ctx, accountID, perm)
			if err != nil {
				slogx.FromContext(ctx).Error("permission check failed", "perm", perm, "err", err)
				WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
				return
			}
			if !allowed {
				WriteJSON(w, http.StatusForbidden, map[string]string{
					"error":             "forbidden",
					"error_description": "missing permission " + perm,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyScope the caller must have at least one of the provided scopes.
func RequireAnyScope(required ...string) Middleware {
	want := make(map[string]struct{}, len(required))
	for _, s := range required {
		want[s] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, s := range scopesFromCtx(r.Context()) {
				if _, ok := want[s]; ok {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeBearerScopeError(w, http.StatusForbidden, required...)
		})
	}
}

// RFC 6750-compliant error response for bearer insufficient_scope.
func writeBearerScopeError(w http.ResponseWriter, code int, required ...string) {
	w.Header().
		Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+strings.Join(required, " ")+`"`)
	WriteJSON(w, code, map[string]string{"error": "insufficient_scope"})
}
