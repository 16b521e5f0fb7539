package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peternemser-ui/font-scanner-sub010/internal/lib/jwt"
	"github.com/peternemser-ui/font-scanner-sub010/internal/lib/password"
	"github.com/peternemser-ui/font-scanner-sub010/internal/models"
)

type mockUsers struct {
	RegisterUserFunc      func(ctx context.Context, user models.User) (string, error)
	GetUserByUsernameFunc func(ctx context.Context, username string) (*models.User, error)
}

func (m *mockUsers) RegisterUser(ctx context.Context, user models.User) (string, error) {
	return m.RegisterUserFunc(ctx, user)
}

func (m *mockUsers) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.GetUserByUsernameFunc(ctx, username)
}

func TestService_Register(t *testing.T) {
	users := &mockUsers{
		RegisterUserFunc: func(_ context.Context, user models.User) (string, error) {
			assert.Equal(t, "newuser", user.Username)
			assert.Equal(t, "user", user.Role)
			assert.Equal(t, models.PlanFree, user.Plan)
			assert.NoError(t, password.CompareHash(user.PasswordHash, "pass123"))
			return "uid-1", nil
		},
	}
	svc := New(users, jwt.NewJWTMaker("secret", time.Hour))

	uid, err := svc.Register(context.Background(), "new@example.com", "newuser", "pass123")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", uid)
}

func TestService_Login(t *testing.T) {
	hashed, err := password.GetHash("pass123")
	require.NoError(t, err)

	users := &mockUsers{
		GetUserByUsernameFunc: func(_ context.Context, username string) (*models.User, error) {
			if username != "known" {
				return nil, errors.New("user not found")
			}
			return &models.User{
				UID:          "uid-1",
				Username:     "known",
				PasswordHash: hashed,
				Role:         "user",
			}, nil
		},
	}
	svc := New(users, jwt.NewJWTMaker("secret", time.Hour))

	t.Run("success", func(t *testing.T) {
		token, role, err := svc.Login(context.Background(), "known", "pass123")
		require.NoError(t, err)
		assert.Equal(t, "user", role)

		claims, err := svc.ValidateToken(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "known", claims.Username)
		assert.Equal(t, "uid-1", claims.UserUID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(context.Background(), "known", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, _, err := svc.Login(context.Background(), "ghost", "pass123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
