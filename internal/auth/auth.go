// Package auth resolves the caller of an API request into a Session.
package auth

import (
	"context"
	"net/http"
	"slices"
	"strings"
)

// PermUseThreads grants access to viewing and posting in threads.
const PermUseThreads = "use_threads"

// Session describes the caller of a request. The zero value is an anonymous
// caller.
type Session struct {
	UserID      int64
	LanguageID  int64
	Permissions []string
}

// LoggedIn reports whether the session belongs to a known user.
func (s Session) LoggedIn() bool {
	return s.UserID > 0
}

// HasPermission reports whether the session was granted perm.
func (s Session) HasPermission(perm string) bool {
	return slices.Contains(s.Permissions, perm)
}

// Resolver maps a bearer token to a session.
type Resolver interface {
	Resolve(ctx context.Context, token string) (Session, bool)
}

// StaticResolver resolves tokens from a fixed table, usually loaded from config.
type StaticResolver map[string]Session

func (r StaticResolver) Resolve(_ context.Context, token string) (Session, bool) {
	s, ok := r[token]
	return s, ok
}

type sessionKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session stored in ctx, or an anonymous session.
func FromContext(ctx context.Context) Session {
	s, _ := ctx.Value(sessionKey{}).(Session)
	return s
}

// Middleware attaches the session for the request's bearer token. Requests
// without a token, or with an unknown one, continue as anonymous.
func Middleware(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver == nil {
				next.ServeHTTP(w, r)
				return
			}
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			if s, ok := resolver.Resolve(r.Context(), token); ok {
				r = r.WithContext(WithSession(r.Context(), s))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
