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

// CheerService manages the per-review set of users who cheered it.
type CheerService interface {
	// ToggleCheer adds the caller's cheer if absent, removes it otherwise.
	ToggleCheer(ctx context.Context, reviewID, userID uint) (*models.Review, bool, error)
	HasCheered(ctx context.Context, reviewID, userID uint) (bool, error)
	ListCheerers(ctx context.Context, reviewID uint) ([]models.UserBasicInfo, error)
}

type cheerService struct {
	reviewRepo   storage.ReviewRepository
	publisher    ActivityPublisher
	writeTimeout time.Duration
	log          logrus.FieldLogger
}

// NewCheerService 创建 cheer 服务。
func NewCheerService(reviewRepo storage.ReviewRepository, publisher ActivityPublisher, writeTimeout time.Duration, log logrus.FieldLogger) CheerService {
	return &cheerService{
		reviewRepo:   reviewRepo,
		publisher:    publisher,
		writeTimeout: writeTimeout,
		log:          log.WithField("component", "cheer-service"),
	}
}

func (s *cheerService) ToggleCheer(ctx context.Context, reviewID, userID uint) (*models.Review, bool, error) {
	if userID == 0 {
		return nil, false, ErrAuthenticationRequired
	}
	ctx, cancel := detach(ctx, s.writeTimeout)
	defer cancel()

	review, cheered, err := s.reviewRepo.ToggleCheer(ctx, reviewID, userID)
	if err != nil {
		return nil, false, notFoundOr(err, fmt.Sprintf("review %d", reviewID))
	}
	metrics.RecordCheerToggle(cheered)

	if cheered {
		s.publisher.Publish(ctx, apptypes.ActivityEvent{
			Type:        apptypes.ActivityReviewCheered,
			ActorID:     userID,
			RecipientID: review.UserID,
			ReviewID:    review.ID,
			Summary:     review.Name,
		})
	}
	return review, cheered, nil
}

func (s *cheerService) HasCheered(ctx context.Context, reviewID, userID uint) (bool, error) {
	if _, err := s.reviewRepo.GetByID(ctx, reviewID); err != nil {
		return false, notFoundOr(err, fmt.Sprintf("review %d", reviewID))
	}
	ok, err := s.reviewRepo.HasCheered(ctx, reviewID, userID)
	if err != nil {
		return false, fmt.Errorf("check cheer on review %d: %w", reviewID, err)
	}
	return ok, nil
}

func (s *cheerService) ListCheerers(ctx context.Context, reviewID uint) ([]models.UserBasicInfo, error) {
	if _, err := s.reviewRepo.GetByID(ctx, reviewID); err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("review %d", reviewID))
	}
	cheerers, err := s.reviewRepo.ListCheerers(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("list cheerers of review %d: %w", reviewID, err)
	}
	return cheerers, nil
}
