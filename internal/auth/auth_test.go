package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type AuthSuite struct {
	suite.Suite
	resolver StaticResolver
}

func TestAuthSuite(t *testing.T) {
	suite.Run(t, new(AuthSuite))
}

func (s *AuthSuite) SetupTest() {
	s.resolver = StaticResolver{
		"tok-alice": {UserID: 1, LanguageID: 2, Permissions: []string{PermUseThreads}},
	}
}

// serve runs the middleware with the given Authorization header and returns
// the session the handler saw.
func (s *AuthSuite) serve(resolver Resolver, header string) Session {
	var got Session
	h := Middleware(resolver)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func (s *AuthSuite) TestSessionZeroValue() {
	var sess Session
	require.False(s.T(), sess.LoggedIn())
	require.False(s.T(), sess.HasPermission(PermUseThreads))
}

func (s *AuthSuite) TestHasPermission() {
	sess := Session{UserID: 5, Permissions: []string{"other", PermUseThreads}}
	require.True(s.T(), sess.LoggedIn())
	require.True(s.T(), sess.HasPermission(PermUseThreads))
	require.False(s.T(), sess.HasPermission("admin"))
}

func (s *AuthSuite) TestFromContextMissing() {
	require.Equal(s.T(), Session{}, FromContext(context.Background()))
}

func (s *AuthSuite) TestMiddlewareKnownToken() {
	sess := s.serve(s.resolver, "Bearer tok-alice")
	require.Equal(s.T(), int64(1), sess.UserID)
	require.Equal(s.T(), int64(2), sess.LanguageID)
}

func (s *AuthSuite) TestMiddlewareSchemeCaseInsensitive() {
	sess := s.serve(s.resolver, "bearer tok-alice")
	require.True(s.T(), sess.LoggedIn())
}

func (s *AuthSuite) TestMiddlewareAnonymous() {
	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"unknown token", "Bearer nope"},
		{"basic scheme", "Basic dG9rLWFsaWNl"},
		{"no scheme", "tok-alice"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			sess := s.serve(s.resolver, tt.header)
			require.False(s.T(), sess.LoggedIn())
		})
	}
}

func (s *AuthSuite) TestMiddlewareNilResolver() {
	sess := s.serve(nil, "Bearer tok-alice")
	require.False(s.T(), sess.LoggedIn())
}
