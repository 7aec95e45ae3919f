package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"cheers-go/internal/apptypes"
	"cheers-go/internal/metrics"
	"cheers-go/internal/models"
	"cheers-go/internal/storage"

	"github.com/sirupsen/logrus"
)

// CommentService 管理评测下的评论。
type CommentService interface {
	Create(ctx context.Context, reviewID, authorID uint, text string) (*models.Comment, error)
	// Delete removes a comment of reviewID; only its author or an admin may do so.
	Delete(ctx context.Context, reviewID, commentID, requesterID uint) error
	// List returns the review's comments, newest first.
	List(ctx context.Context, reviewID uint) ([]models.Comment, error)
}

type commentService struct {
	userRepo     storage.UserRepository
	reviewRepo   storage.ReviewRepository
	commentRepo  storage.CommentRepository
	publisher    ActivityPublisher
	writeTimeout time.Duration
	log          logrus.FieldLogger
}

// NewCommentService 创建评论服务。
func NewCommentService(userRepo storage.UserRepository, reviewRepo storage.ReviewRepository, commentRepo storage.CommentRepository, publisher ActivityPublisher, writeTimeout time.Duration, log logrus.FieldLogger) CommentService {
	return &commentService{
		userRepo:     userRepo,
		reviewRepo:   reviewRepo,
		commentRepo:  commentRepo,
		publisher:    publisher,
		writeTimeout: writeTimeout,
		log:          log.WithField("component", "comment-service"),
	}
}

func (s *commentService) Create(ctx context.Context, reviewID, authorID uint, text string) (*models.Comment, error) {
	if authorID == 0 {
		return nil, ErrAuthenticationRequired
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validationError("comment text must not be empty")
	}
	if utf8.RuneCountInString(text) > models.MaxCommentLength {
		return nil, validationError("comment text must be at most %d characters", models.MaxCommentLength)
	}

	ctx, cancel := detach(ctx, s.writeTimeout)
	defer cancel()

	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("review %d", reviewID))
	}
	author, err := s.userRepo.GetByID(ctx, authorID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrAuthenticationRequired
		}
		return nil, fmt.Errorf("load author %d: %w", authorID, err)
	}

	comment := &models.Comment{
		ReviewID: reviewID,
		UserID:   authorID,
		Username: author.Username,
		Text:     text,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	metrics.RecordCommentCreated()
	s.publisher.Publish(ctx, apptypes.ActivityEvent{
		Type:        apptypes.ActivityCommentCreated,
		ActorID:     authorID,
		RecipientID: review.UserID,
		ReviewID:    reviewID,
		CommentID:   comment.ID,
		Summary:     review.Name,
	})
	return comment, nil
}

func (s *commentService) Delete(ctx context.Context, reviewID, commentID, requesterID uint) error {
	ctx, cancel := detach(ctx, s.writeTimeout)
	defer cancel()

	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return notFoundOr(err, fmt.Sprintf("comment %d", commentID))
	}
	if comment.ReviewID != reviewID {
		return fmt.Errorf("%w: comment %d on review %d", ErrNotFound, commentID, reviewID)
	}
	if err := authorizeOwnerOrAdmin(ctx, s.userRepo, requesterID, comment.UserID); err != nil {
		return err
	}
	if err := s.commentRepo.Delete(ctx, commentID); err != nil {
		return notFoundOr(err, fmt.Sprintf("comment %d", commentID))
	}
	return nil
}

func (s *commentService) List(ctx context.Context, reviewID uint) ([]models.Comment, error) {
	if _, err := s.reviewRepo.GetByID(ctx, reviewID); err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("review %d", reviewID))
	}
	comments, err := s.commentRepo.ListByReview(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("list comments of review %d: %w", reviewID, err)
	}
	return comments, nil
}
