package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cheers-go/internal/auth"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.Auth.Register(ctx, RegisterInput{Username: " alice ", Email: "Alice@Example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "hunter22", user.PasswordHash)

	for _, identifier := range []string{"alice", "alice@example.com", "ALICE@example.com"} {
		token, got, err := env.Auth.Login(ctx, identifier, "hunter22")
		require.NoError(t, err, identifier)
		assert.Equal(t, user.ID, got.ID)

		claims, err := auth.ValidateToken(ctx, token, env.cfg.Auth.JWTSecretKey, env.blacklist)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
	}
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := map[string]RegisterInput{
		"missing username":        {Email: "a@example.com", Password: "hunter22"},
		"bad email":               {Username: "a", Email: "not-an-email", Password: "hunter22"},
		"display name":            {Username: "a", Email: "Alice <a@example.com>", Password: "hunter22"},
		"short password":          {Username: "a", Email: "a@example.com", Password: "12345"},
		"long password":           {Username: "a", Email: "a@example.com", Password: strings.Repeat("x", 80)},
		"long multibyte password": {Username: "a", Email: "a@example.com", Password: strings.Repeat("啤", 25)},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.Auth.Register(ctx, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestRegister_PasswordAtBcryptLimit(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Auth.Register(context.Background(), RegisterInput{
		Username: "a", Email: "a@example.com", Password: strings.Repeat("x", MaxPasswordBytes),
	})
	require.NoError(t, err)
}

func TestRegister_Conflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "alice")

	_, err := env.Auth.Register(ctx, RegisterInput{Username: "alice", Email: "other@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = env.Auth.Register(ctx, RegisterInput{Username: "alice2", Email: "ALICE@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.Auth.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)

	// 未知用户和错误密码返回同一个错误
	_, _, err = env.Auth.Login(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = env.Auth.Login(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = env.Auth.Login(ctx, "", "hunter22")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLogout_RevokesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.Auth.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)

	token, _, err := env.Auth.Login(ctx, "alice", "hunter22")
	require.NoError(t, err)
	claims, err := auth.ValidateToken(ctx, token, env.cfg.Auth.JWTSecretKey, env.blacklist)
	require.NoError(t, err)

	require.NoError(t, env.Auth.Logout(ctx, claims))

	_, err = auth.ValidateToken(ctx, token, env.cfg.Auth.JWTSecretKey, env.blacklist)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	// 其他会话不受影响
	other, _, err := env.Auth.Login(ctx, "alice", "hunter22")
	require.NoError(t, err)
	_, err = auth.ValidateToken(ctx, other, env.cfg.Auth.JWTSecretKey, env.blacklist)
	assert.NoError(t, err)
}
