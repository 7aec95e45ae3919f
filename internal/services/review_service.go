package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"cheers-go/internal/apptypes"
	"cheers-go/internal/models"
	"cheers-go/internal/storage"

	"github.com/sirupsen/logrus"
)

const (
	MinRating = 0.0
	MaxRating = 5.0
)

// ReviewInput holds review fields from a create or update request.
// On update nil fields are left unchanged; on create Name, Style and Rating are required.
type ReviewInput struct {
	Name     *string
	Style    *string
	Rating   *float64
	ImageURL *string
	Location *string
}

// ReviewService 定义评测的增删改查。读取无需登录，修改需为作者或管理员。
type ReviewService interface {
	Create(ctx context.Context, ownerID uint, in ReviewInput) (*models.Review, error)
	Get(ctx context.Context, reviewID uint) (*models.Review, error)
	List(ctx context.Context) ([]models.Review, error)
	Update(ctx context.Context, callerID, reviewID uint, in ReviewInput) (*models.Review, error)
	Delete(ctx context.Context, callerID, reviewID uint) error
}

type reviewService struct {
	userRepo     storage.UserRepository
	reviewRepo   storage.ReviewRepository
	publisher    ActivityPublisher
	writeTimeout time.Duration
	log          logrus.FieldLogger
}

// NewReviewService 创建评测服务。
func NewReviewService(userRepo storage.UserRepository, reviewRepo storage.ReviewRepository, publisher ActivityPublisher, writeTimeout time.Duration, log logrus.FieldLogger) ReviewService {
	return &reviewService{
		userRepo:     userRepo,
		reviewRepo:   reviewRepo,
		publisher:    publisher,
		writeTimeout: writeTimeout,
		log:          log.WithField("component", "review-service"),
	}
}

func (s *reviewService) Create(ctx context.Context, ownerID uint, in ReviewInput) (*models.Review, error) {
	if ownerID == 0 {
		return nil, ErrAuthenticationRequired
	}
	if in.Name == nil || in.Style == nil || in.Rating == nil {
		return nil, validationError("name, style and rating are required")
	}
	review := &models.Review{UserID: ownerID}
	if err := applyReviewInput(review, in); err != nil {
		return nil, err
	}

	ctx, cancel := detach(ctx, s.writeTimeout)
	defer cancel()

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	return review, nil
}

func (s *reviewService) Get(ctx context.Context, reviewID uint) (*models.Review, error) {
	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("review %d", reviewID))
	}
	return review, nil
}

func (s *reviewService) List(ctx context.Context) ([]models.Review, error) {
	reviews, err := s.reviewRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

func (s *reviewService) Update(ctx context.Context, callerID, reviewID uint, in ReviewInput) (*models.Review, error) {
	ctx, cancel := detach(ctx, s.writeTimeout)
	defer cancel()

	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("review %d", reviewID))
	}
	if err := authorizeOwnerOrAdmin(ctx, s.userRepo, callerID, review.UserID); err != nil {
		return nil, err
	}
	if err := applyReviewInput(review, in); err != nil {
		return nil, err
	}
	if err := s.reviewRepo.Update(ctx, review); err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("review %d", reviewID))
	}
	return review, nil
}

func (s *reviewService) Delete(ctx context.Context, callerID, reviewID uint) error {
	ctx, cancel := detach(ctx, s.writeTimeout)
	defer cancel()

	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		return notFoundOr(err, fmt.Sprintf("review %d", reviewID))
	}
	if err := authorizeOwnerOrAdmin(ctx, s.userRepo, callerID, review.UserID); err != nil {
		return err
	}
	// 只有不再被任何评测或头像引用的图片才会交给清理消费者
	images, err := s.reviewRepo.Delete(ctx, reviewID)
	if err != nil {
		return notFoundOr(err, fmt.Sprintf("review %d", reviewID))
	}

	s.publisher.Publish(ctx, apptypes.ActivityEvent{
		Type:        apptypes.ActivityReviewDeleted,
		ActorID:     callerID,
		RecipientID: review.UserID,
		ReviewID:    reviewID,
		Summary:     review.Name,
		ImageURLs:   images,
	})
	return nil
}

func applyReviewInput(review *models.Review, in ReviewInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return validationError("name must not be empty")
		}
		review.Name = name
	}
	if in.Style != nil {
		style := strings.TrimSpace(*in.Style)
		if style == "" {
			return validationError("style must not be empty")
		}
		review.Style = style
	}
	if in.Rating != nil {
		r := *in.Rating
		if math.IsNaN(r) || r < MinRating || r > MaxRating {
			return validationError("rating must be between %.0f and %.0f", MinRating, MaxRating)
		}
		review.Rating = r
	}
	if in.ImageURL != nil {
		review.ImageURL = strings.TrimSpace(*in.ImageURL)
	}
	if in.Location != nil {
		review.Location = strings.TrimSpace(*in.Location)
	}
	return nil
}
