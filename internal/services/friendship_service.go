package services

import (
	"context"
	"fmt"
	"time"

	"cheers-go/internal/apptypes"
	"cheers-go/internal/metrics"
	"cheers-go/internal/models"
	"cheers-go/internal/storage"

	"github.com/sirupsen/logrus"
)

// FriendshipService manages the symmetric friend relation.
type FriendshipService interface {
	// AddFriend makes a and b friends in both directions. Repeating it is a no-op.
	AddFriend(ctx context.Context, a, b uint) error
	// RemoveFriend ends the friendship in both directions; succeeds if they were not friends.
	RemoveFriend(ctx context.Context, a, b uint) error
	ListFriends(ctx context.Context, userID uint) ([]models.UserBasicInfo, error)
}

type friendshipService struct {
	userRepo       storage.UserRepository
	friendshipRepo storage.FriendshipRepository
	publisher      ActivityPublisher
	writeTimeout   time.Duration
	log            logrus.FieldLogger
}

// NewFriendshipService 创建好友服务。
func NewFriendshipService(userRepo storage.UserRepository, friendshipRepo storage.FriendshipRepository, publisher ActivityPublisher, writeTimeout time.Duration, log logrus.FieldLogger) FriendshipService {
	return &friendshipService{
		userRepo:       userRepo,
		friendshipRepo: friendshipRepo,
		publisher:      publisher,
		writeTimeout:   writeTimeout,
		log:            log.WithField("component", "friendship-service"),
	}
}

func (s *friendshipService) AddFriend(ctx context.Context, a, b uint) error {
	if b == 0 {
		return validationError("friendId is required")
	}
	if a == b {
		return validationError("cannot add yourself as a friend")
	}

	ctx, cancel := detach(ctx, s.writeTimeout)
	defer cancel()

	if _, err := s.userRepo.GetByID(ctx, b); err != nil {
		return notFoundOr(err, fmt.Sprintf("user %d", b))
	}
	created, err := s.friendshipRepo.AddPair(ctx, a, b)
	if err != nil {
		return fmt.Errorf("add friend %d<->%d: %w", a, b, err)
	}
	if !created {
		return nil
	}

	metrics.RecordFriendChange("add")
	s.log.WithFields(logrus.Fields{"user_id": a, "friend_id": b}).Debug("friendship created")
	s.publisher.Publish(ctx, apptypes.ActivityEvent{
		Type:        apptypes.ActivityFriendAdded,
		ActorID:     a,
		RecipientID: b,
	})
	return nil
}

func (s *friendshipService) RemoveFriend(ctx context.Context, a, b uint) error {
	if b == 0 {
		return validationError("friendId is required")
	}
	if a == b {
		return validationError("cannot remove yourself as a friend")
	}

	ctx, cancel := detach(ctx, s.writeTimeout)
	defer cancel()

	if err := s.friendshipRepo.RemovePair(ctx, a, b); err != nil {
		return fmt.Errorf("remove friend %d<->%d: %w", a, b, err)
	}
	metrics.RecordFriendChange("remove")
	return nil
}

func (s *friendshipService) ListFriends(ctx context.Context, userID uint) ([]models.UserBasicInfo, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("user %d", userID))
	}
	friends, err := s.friendshipRepo.ListFriends(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list friends of %d: %w", userID, err)
	}
	return friends, nil
}
