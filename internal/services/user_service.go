package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cheers-go/internal/apptypes"
	"cheers-go/internal/auth"
	"cheers-go/internal/models"
	"cheers-go/internal/storage"

	"github.com/sirupsen/logrus"
)

// UpdateUserInput holds the profile fields to change; nil fields are left as they are.
type UpdateUserInput struct {
	Username      *string
	Email         *string
	Password      *string
	DateOfBirth   *time.Time
	ProfilePicURL *string
}

// UserService 定义了用户相关服务的接口。
type UserService interface {
	GetUser(ctx context.Context, userID uint) (*models.User, error)
	GetPublicProfile(ctx context.Context, userID uint) (*models.UserBasicInfo, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, callerID, userID uint, in UpdateUserInput) (*models.User, error)
	// DeleteUser removes the user and everything it owns in one transaction.
	DeleteUser(ctx context.Context, callerID, userID uint) error
}

type userService struct {
	userRepo     storage.UserRepository
	publisher    ActivityPublisher
	writeTimeout time.Duration
	log          logrus.FieldLogger
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo storage.UserRepository, publisher ActivityPublisher, writeTimeout time.Duration, log logrus.FieldLogger) UserService {
	return &userService{
		userRepo:     userRepo,
		publisher:    publisher,
		writeTimeout: writeTimeout,
		log:          log.WithField("component", "user-service"),
	}
}

func (s *userService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("user %d", userID))
	}
	return user, nil
}

func (s *userService) GetPublicProfile(ctx context.Context, userID uint) (*models.UserBasicInfo, error) {
	info, err := s.userRepo.GetBasicInfoByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("user %d", userID))
	}
	return info, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *userService) UpdateUser(ctx context.Context, callerID, userID uint, in UpdateUserInput) (*models.User, error) {
	ctx, cancel := detach(ctx, s.writeTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("user %d", userID))
	}
	if err := authorizeOwnerOrAdmin(ctx, s.userRepo, callerID, user.ID); err != nil {
		return nil, err
	}

	var newUsername, newEmail string
	if in.Username != nil {
		newUsername = strings.TrimSpace(*in.Username)
		if newUsername == "" {
			return nil, validationError("username must not be empty")
		}
		if newUsername == user.Username {
			newUsername = ""
		}
	}
	if in.Email != nil {
		newEmail = strings.ToLower(strings.TrimSpace(*in.Email))
		if err := validateEmail(newEmail); err != nil {
			return nil, err
		}
		if newEmail == user.Email {
			newEmail = ""
		}
	}
	if err := ensureUnique(ctx, s.userRepo, user.ID, newUsername, newEmail); err != nil {
		return nil, err
	}
	if newUsername != "" {
		user.Username = newUsername
	}
	if newEmail != "" {
		user.Email = newEmail
	}

	// 空密码表示不修改
	if in.Password != nil && *in.Password != "" {
		if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("密码哈希失败: %w", err)
		}
		user.PasswordHash = hash
	}
	if in.DateOfBirth != nil {
		user.DateOfBirth = in.DateOfBirth
	}
	if in.ProfilePicURL != nil {
		user.ProfilePicURL = strings.TrimSpace(*in.ProfilePicURL)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if storage.IsDuplicate(err) {
			return nil, fmt.Errorf("%w: username or email already taken", ErrConflict)
		}
		return nil, notFoundOr(err, fmt.Sprintf("user %d", userID))
	}
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, callerID, userID uint) error {
	ctx, cancel := detach(ctx, s.writeTimeout)
	defer cancel()

	if err := authorizeOwnerOrAdmin(ctx, s.userRepo, callerID, userID); err != nil {
		return err
	}
	images, err := s.userRepo.DeleteCascade(ctx, userID)
	if err != nil {
		return notFoundOr(err, fmt.Sprintf("user %d", userID))
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "deleted_by": callerID}).Info("user deleted")
	s.publisher.Publish(ctx, apptypes.ActivityEvent{
		Type:      apptypes.ActivityUserDeleted,
		ActorID:   callerID,
		ImageURLs: images,
	})
	return nil
}
