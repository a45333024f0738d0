package services

import (
	"context"
	"testing"
	"time"

	"scamazon_go/config"
	"scamazon_go/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newAuthService(t *testing.T, rdb *redis.Client) *AuthService {
	jwtService := config.NewJWTService(&config.JWTConfig{
		SecretKey:      "test-secret",
		ExpirationTime: time.Hour,
		Issuer:         "scamazon-test",
	})
	return NewAuthService(newTestDB(t), rdb, jwtService, zaptest.NewLogger(t))
}

func TestRegisterAndLogin(t *testing.T) {
	as := newAuthService(t, newMiniRedis(t))
	ctx := context.Background()

	user, token, err := as.Register(ctx, &RegisterRequest{
		Username: "alice", Email: "Alice@Example.com", Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleBuyer, user.Role)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "password123", user.Password)
	assert.NotEmpty(t, token)

	claims, err := as.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleBuyer, claims.Role)

	_, _, err = as.Register(ctx, &RegisterRequest{Username: "alice", Email: "other@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrUserExists)
	_, _, err = as.Register(ctx, &RegisterRequest{Username: "bob", Email: "alice@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrUserExists)

	seller, _, err := as.Register(ctx, &RegisterRequest{
		Username: "carol", Email: "carol@example.com", Password: "password123", Role: models.RoleSeller,
	})
	require.NoError(t, err)
	assert.True(t, seller.IsSeller())

	loggedIn, loginToken, err := as.Login(ctx, &LoginRequest{Email: "ALICE@example.com", Password: "password123"}, "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotEmpty(t, loginToken)

	_, _, err = as.Login(ctx, &LoginRequest{Email: "alice@example.com", Password: "wrong-password"}, "127.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = as.Login(ctx, &LoginRequest{Email: "nobody@example.com", Password: "password123"}, "127.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_TooManyAttempts(t *testing.T) {
	as := newAuthService(t, newMiniRedis(t))
	ctx := context.Background()
	_, _, err := as.Register(ctx, &RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	bad := &LoginRequest{Email: "alice@example.com", Password: "nope-nope"}
	for i := 0; i < as.authConfig.MaxLoginAttempts; i++ {
		_, _, err := as.Login(ctx, bad, "10.0.0.1")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	good := &LoginRequest{Email: "alice@example.com", Password: "password123"}
	_, _, err = as.Login(ctx, good, "10.0.0.1")
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	// 限流按IP区分
	_, _, err = as.Login(ctx, good, "10.0.0.2")
	assert.NoError(t, err)
}

func TestLogout_RevokesToken(t *testing.T) {
	as := newAuthService(t, newMiniRedis(t))
	ctx := context.Background()
	_, token, err := as.Register(ctx, &RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, as.Logout(ctx, token))
	_, err = as.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	assert.Error(t, as.Logout(ctx, "not-a-token"))
	_, err = as.Authenticate(ctx, "not-a-token")
	assert.Error(t, err)
}

func TestAuthWithoutRedis(t *testing.T) {
	as := newAuthService(t, nil)
	ctx := context.Background()
	_, token, err := as.Register(ctx, &RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, as.Logout(ctx, token))
	_, err = as.Authenticate(ctx, token)
	assert.NoError(t, err, "without redis there is no blacklist")
}
