package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"cheers-go/internal/auth"
	"cheers-go/internal/config"
	"cheers-go/internal/metrics"
	"cheers-go/internal/models"
	"cheers-go/internal/storage"

	"github.com/sirupsen/logrus"
)

// MinPasswordLength is the shortest password accepted at registration and password change.
const MinPasswordLength = 6

// MaxPasswordBytes is bcrypt's input limit; longer passwords are rejected rather than truncated.
const MaxPasswordBytes = 72

// RegisterInput 是注册请求的字段。
type RegisterInput struct {
	Username      string
	Email         string
	Password      string
	DateOfBirth   *time.Time
	ProfilePicURL string
}

// AuthService 定义了用户认证服务的接口。
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	// Login accepts either an email or a username as identifier.
	Login(ctx context.Context, identifier, password string) (token string, user *models.User, err error)
	// Logout revokes the session described by claims.
	Logout(ctx context.Context, claims *auth.Claims) error
}

type authService struct {
	userRepo  storage.UserRepository
	blacklist auth.TokenBlacklist
	cfg       config.Config
	log       logrus.FieldLogger
}

// NewAuthService 创建一个新的 AuthService 实例。
func NewAuthService(userRepo storage.UserRepository, blacklist auth.TokenBlacklist, cfg config.Config, log logrus.FieldLogger) AuthService {
	return &authService{
		userRepo:  userRepo,
		blacklist: blacklist,
		cfg:       cfg,
		log:       log.WithField("component", "auth-service"),
	}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" {
		return nil, validationError("username is required")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	ctx, cancel := detach(ctx, s.cfg.Server.WriteTimeout)
	defer cancel()

	if err := ensureUnique(ctx, s.userRepo, 0, username, email); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("密码哈希失败: %w", err)
	}

	user := &models.User{
		Username:      username,
		Email:         email,
		PasswordHash:  hash,
		DateOfBirth:   in.DateOfBirth,
		ProfilePicURL: strings.TrimSpace(in.ProfilePicURL),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if storage.IsDuplicate(err) {
			return nil, fmt.Errorf("%w: username or email already taken", ErrConflict)
		}
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}
	s.log.WithField("user_id", user.ID).Info("user registered")
	return user, nil
}

func (s *authService) Login(ctx context.Context, identifier, password string) (string, *models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return "", nil, validationError("email or username and password are required")
	}

	var (
		user *models.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.userRepo.GetByEmail(ctx, identifier)
	} else {
		user, err = s.userRepo.GetByUsername(ctx, identifier)
	}
	if err != nil {
		if storage.IsNotFound(err) {
			metrics.RecordAuthFailure("unknown_user")
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("查找用户失败: %w", err)
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		metrics.RecordAuthFailure("bad_password")
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, user.Email, s.cfg.Auth)
	if err != nil {
		return "", nil, fmt.Errorf("生成令牌失败: %w", err)
	}
	return token, user, nil
}

func (s *authService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || !s.cfg.Auth.RevokeOnLogout || s.blacklist == nil {
		return nil
	}
	ctx, cancel := detach(ctx, s.cfg.Server.WriteTimeout)
	defer cancel()
	if err := s.blacklist.Add(ctx, claims.ID, claims.ExpiresAtTime()); err != nil {
		return fmt.Errorf("吊销令牌失败: %w", err)
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return validationError("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return validationError("email is not a valid address")
	}
	return nil
}

func validatePassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return validationError("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordBytes {
		return validationError("password must be at most %d bytes", MaxPasswordBytes)
	}
	return nil
}

// ensureUnique checks that username and email are free, ignoring the user selfID.
func ensureUnique(ctx context.Context, users storage.UserRepository, selfID uint, username, email string) error {
	if username != "" {
		existing, err := users.GetByUsername(ctx, username)
		if err == nil && existing.ID != selfID {
			return fmt.Errorf("%w: username already taken", ErrConflict)
		}
		if err != nil && !storage.IsNotFound(err) {
			return fmt.Errorf("检查用户名时出错: %w", err)
		}
	}
	if email != "" {
		existing, err := users.GetByEmail(ctx, email)
		if err == nil && existing.ID != selfID {
			return fmt.Errorf("%w: email already registered", ErrConflict)
		}
		if err != nil && !storage.IsNotFound(err) {
			return fmt.Errorf("检查邮箱时出错: %w", err)
		}
	}
	return nil
}
