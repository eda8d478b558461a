package authz

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/virtuallab/virtuallab/internal/observability"
	"github.com/virtuallab/virtuallab/internal/platform/httpx"
	"github.com/virtuallab/virtuallab/internal/shared"
)

// PrincipalSource hydrates a Principal for the session's user id. The auth
// module implements this against Postgres.
type PrincipalSource interface {
	PrincipalByID(ctx context.Context, userID string) (*Principal, error)
}

// Middleware wires authorization guards for HTTP handlers. API guards
// answer 401 when no principal could be resolved and 403 on denial; the
// page guard redirects to the rule's fallback instead.
type Middleware struct {
	Source  PrincipalSource
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context, nil when the
// request is unauthenticated.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}

func (m Middleware) resolve(r *http.Request) *Principal {
	if p := PrincipalFromContext(r.Context()); p != nil {
		return p
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return nil
	}
	userID := strings.TrimSpace(sess.User())
	if userID == "" {
		return nil
	}
	p, err := m.Source.PrincipalByID(r.Context(), userID)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("resolve principal", slog.String("user_id", userID), slog.Any("error", err))
		}
		return nil
	}
	return p
}

// WithPrincipal resolves the session user into a Principal and stores it
// in the request context. It never rejects: enforcement belongs to the
// Require* guards and to handlers.
func (m Middleware) WithPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := m.resolve(r); p != nil {
			r = r.WithContext(ContextWithPrincipal(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission admits principals holding at least one of the given
// permission atoms.
func (m Middleware) RequirePermission(permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := m.resolve(r)
			if p == nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			if len(permissions) > 0 && !HasAnyPermission(p, permissions...) {
				m.Metrics.RecordDenial("permission")
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
		})
	}
}

// RequireRole admits principals holding at least one of the given roles.
func (m Middleware) RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := m.resolve(r)
			if p == nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			if len(roles) > 0 && !HasAnyRole(p, roles...) {
				m.Metrics.RecordDenial("role")
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient role access")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
		})
	}
}

// RequireResource admits principals allowed to perform the CRUD action on
// the resource. When the route carries an {id} parameter the instance is
// named in the check, so registered ownership predicates apply.
func (m Middleware) RequireResource(resource string, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := m.resolve(r)
			if p == nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			verdict := CheckResourceAccess(p, resource, action, chi.URLParam(r, "id"))
			if !verdict.Allowed {
				m.Metrics.RecordDenial("resource")
				httpx.Problem(w, http.StatusForbidden, "Forbidden", verdict.Reason)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
		})
	}
}

// GuardPage enforces the page registry for the request path. Anonymous
// visitors are sent to the login page, denied principals to the rule's
// fallback.
func (m Middleware) GuardPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := m.resolve(r)
		if p == nil {
			http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
			return
		}
		verdict := CheckPageAccess(p, r.URL.Path)
		if !verdict.Allowed {
			m.Metrics.RecordDenial("page")
			if m.Logger != nil {
				m.Logger.Info("page access denied",
					slog.String("path", r.URL.Path),
					slog.String("user_id", p.ID),
					slog.String("reason", verdict.Reason))
			}
			http.Redirect(w, r, verdict.Fallback, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
	})
}
