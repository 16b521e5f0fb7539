package middlewarectx

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peternemser-ui/font-scanner-sub010/internal/lib/jwt"
)

type mockAuth struct {
	claims *jwt.CustomClaims
	err    error
}

func (m *mockAuth) ValidateToken(_ context.Context, _ string) (*jwt.CustomClaims, error) {
	return m.claims, m.err
}

func TestJWTMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		header         string
		auth           *mockAuth
		expectedStatus int
		expectNext     bool
	}{
		{
			name:   "валидный токен",
			header: "Bearer good-token",
			auth: &mockAuth{claims: &jwt.CustomClaims{
				Username: "alice",
				Role:     "user",
				UserUID:  "uid-1",
			}},
			expectedStatus: http.StatusOK,
			expectNext:     true,
		},
		{
			name:           "отсутствует заголовок",
			header:         "",
			auth:           &mockAuth{},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "неверная схема",
			header:         "Basic abc",
			auth:           &mockAuth{},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "невалидный токен",
			header:         "Bearer bad-token",
			auth:           &mockAuth{err: errors.New("token expired")},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var nextCalled bool
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				assert.Equal(t, "alice", r.Context().Value(User))
				assert.Equal(t, "user", r.Context().Value(Role))
				assert.Equal(t, "uid-1", r.Context().Value(UserUID))
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			JWTMiddleware(tt.auth, logger)(next).ServeHTTP(w, req)

			require.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectNext, nextCalled)
		})
	}
}
