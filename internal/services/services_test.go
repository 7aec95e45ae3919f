package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cheers-go/internal/auth"
	"cheers-go/internal/config"
	"cheers-go/internal/logger"
	"cheers-go/internal/models"
)

type testEnv struct {
	store     *memStore
	users     memUserRepo
	publisher *recordingPublisher
	blacklist auth.TokenBlacklist
	cfg       config.Config

	Auth     AuthService
	Users    UserService
	Friends  FriendshipService
	Reviews  ReviewService
	Cheers   CheerService
	Comments CommentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	users := memUserRepo{store}
	friends := memFriendshipRepo{store}
	reviews := memReviewRepo{store}
	comments := memCommentRepo{store}
	pub := &recordingPublisher{}
	bl := auth.NewMemoryTokenBlacklist()
	log := logger.Discard()

	cfg := config.Config{
		Server: config.ServerConfig{WriteTimeout: 5 * time.Second},
		Auth: config.AuthConfig{
			JWTSecretKey:   "test-secret",
			JWTExpiry:      time.Hour,
			Issuer:         "cheers-test",
			CookieName:     "accessToken",
			RevokeOnLogout: true,
		},
	}
	wt := cfg.Server.WriteTimeout

	return &testEnv{
		store:     store,
		users:     users,
		publisher: pub,
		blacklist: bl,
		cfg:       cfg,
		Auth:      NewAuthService(users, bl, cfg, log),
		Users:     NewUserService(users, pub, wt, log),
		Friends:   NewFriendshipService(users, friends, pub, wt, log),
		Reviews:   NewReviewService(users, reviews, pub, wt, log),
		Cheers:    NewCheerService(reviews, pub, wt, log),
		Comments:  NewCommentService(users, reviews, comments, pub, wt, log),
	}
}

// addUser inserts a user directly, skipping bcrypt.
func (e *testEnv) addUser(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

func (e *testEnv) addAdmin(t *testing.T, username string) *models.User {
	t.Helper()
	u := e.addUser(t, username)
	require.NoError(t, e.users.SetAdmin(context.Background(), u.ID, true))
	u.IsAdmin = true
	return u
}

func (e *testEnv) addReview(t *testing.T, owner uint, name string) *models.Review {
	t.Helper()
	style, rating := "Pale Ale", 4.5
	rv, err := e.Reviews.Create(context.Background(), owner, ReviewInput{Name: &name, Style: &style, Rating: &rating})
	require.NoError(t, err)
	return rv
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }
