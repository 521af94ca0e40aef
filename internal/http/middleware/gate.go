package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/verimart/verimart/internal/domain"
	"github.com/verimart/verimart/internal/http/response"
	"github.com/verimart/verimart/pkg/auth"
	"github.com/verimart/verimart/pkg/logger"
)

type ctxKey string

const ctxUsername ctxKey = "username"

// AttributeResolver maps requirement names to catalog identifiers.
type AttributeResolver interface {
	ResolveIDs(ctx context.Context, names []string) ([]int64, error)
}

// CapabilitySource loads a caller's capability set. The gate only ever reads;
// it never mutates state.
type CapabilitySource interface {
	AttributeIDs(ctx context.Context, username string) (domain.AttributeSet, error)
}

// Gate decides whether a request may reach its handler: first the bearer
// credential, then the declared attribute requirement. Requirements come in
// two distinct forms, RequireAttributes (caller must hold all) and
// ForbidAttributes (caller must hold none). They are separate predicates on
// purpose: one is set containment, the other disjointness.
type Gate struct {
	secret string
	attrs  AttributeResolver
	users  CapabilitySource
}

func NewGate(secret string, attrs AttributeResolver, users CapabilitySource) *Gate {
	return &Gate{secret: secret, attrs: attrs, users: users}
}

// RequireAuth validates the bearer token and attaches the authenticated
// username to the request context. A missing credential is reported
// distinctly from an invalid or expired one.
func (g *Gate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			response.WriteError(w, http.StatusUnauthorized, "No credential provided", response.CodeNoToken)
			return
		}

		raw := strings.TrimPrefix(authz, "Bearer ")
		claims, err := auth.Parse(raw, g.secret)
		if err != nil {
			response.WriteError(w, http.StatusUnauthorized, "Invalid credential", response.CodeInvalidToken)
			return
		}

		ctx := context.WithValue(r.Context(), ctxUsername, claims.Username)
		ctx = context.WithValue(ctx, logger.UsernameKey, claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAttributes passes iff the resolved requirement set is a subset of
// the caller's capability set.
func (g *Gate) RequireAttributes(names ...string) func(http.Handler) http.Handler {
	return g.check(names, domain.AttributeSet.ContainsAll)
}

// ForbidAttributes passes iff the caller holds none of the named attributes.
func (g *Gate) ForbidAttributes(names ...string) func(http.Handler) http.Handler {
	return g.check(names, domain.AttributeSet.Disjoint)
}

func (g *Gate) check(names []string, pass func(domain.AttributeSet, []int64) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username := Username(r)
			if username == "" {
				// Gate mounted without RequireAuth in front; deny rather
				// than guess at an identity.
				response.WriteError(w, http.StatusUnauthorized, "No credential provided", response.CodeNoToken)
				return
			}

			ids, err := g.attrs.ResolveIDs(r.Context(), names)
			if err != nil {
				if errors.Is(err, domain.ErrUnknownAttribute) {
					// Misdeclared requirement: operator error, not the caller's.
					logger.ErrorContext(r.Context(), "Gate requirement names unknown attribute", "attributes", names)
				} else {
					logger.ErrorContext(r.Context(), "Failed to resolve gate requirement", "error", err)
				}
				response.InternalError(w, "Internal server error")
				return
			}

			set, err := g.users.AttributeIDs(r.Context(), username)
			if err != nil {
				logger.ErrorContext(r.Context(), "Failed to load capability set", "error", err, "username", username)
				response.InternalError(w, "Internal server error")
				return
			}

			if !pass(set, ids) {
				response.Forbidden(w, "User is not eligible for this action")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Username returns the authenticated username, or "" when RequireAuth has
// not run for this request.
func Username(r *http.Request) string {
	if v, ok := r.Context().Value(ctxUsername).(string); ok {
		return v
	}
	return ""
}
