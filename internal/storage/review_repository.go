package storage

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cheers-go/internal/models"
)

// ReviewRepository defines the persistence operations for reviews and their cheers.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id uint) (*models.Review, error)
	List(ctx context.Context) ([]models.Review, error)
	Update(ctx context.Context, review *models.Review) error
	// Delete removes the review with its cheers and comments and returns
	// its image URL if no other review or user still references it.
	Delete(ctx context.Context, id uint) ([]string, error)
	// IsImageReferenced reports whether any review or profile still points at url.
	IsImageReferenced(ctx context.Context, url string) (bool, error)

	// ToggleCheer flips userID's cheer on the review and returns the review
	// with its updated count plus whether the user now cheers it.
	ToggleCheer(ctx context.Context, reviewID, userID uint) (*models.Review, bool, error)
	HasCheered(ctx context.Context, reviewID, userID uint) (bool, error)
	ListCheerers(ctx context.Context, reviewID uint) ([]models.UserBasicInfo, error)
	// RecountCheers rewrites every count that disagrees with its cheer rows.
	RecountCheers(ctx context.Context) (int64, error)
}

type gormReviewRepository struct {
	db *gorm.DB
}

// NewGormReviewRepository creates a new GORM-based ReviewRepository.
func NewGormReviewRepository(db *gorm.DB) ReviewRepository {
	return &gormReviewRepository{db: db}
}

func (r *gormReviewRepository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *gormReviewRepository) GetByID(ctx context.Context, id uint) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// List returns all reviews, newest first.
func (r *gormReviewRepository) List(ctx context.Context) ([]models.Review, error) {
	reviews := []models.Review{}
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&reviews).Error
	return reviews, err
}

// Update writes the editable columns. Owner and cheer count are never changed here.
func (r *gormReviewRepository) Update(ctx context.Context, review *models.Review) error {
	res := r.db.WithContext(ctx).Model(review).
		Select("name", "style", "rating", "image_url", "location").
		Updates(review)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormReviewRepository) Delete(ctx context.Context, id uint) ([]string, error) {
	var orphaned []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var images []string
		if err := tx.Model(&models.Review{}).
			Where("id = ? AND image_url <> ''", id).
			Pluck("image_url", &images).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM review_cheers WHERE review_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM comments WHERE review_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Exec("DELETE FROM reviews WHERE id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		var err error
		orphaned, err = unreferencedImages(tx, images)
		return err
	})
	if err != nil {
		return nil, err
	}
	return orphaned, nil
}

func (r *gormReviewRepository) IsImageReferenced(ctx context.Context, url string) (bool, error) {
	return imageReferenced(r.db.WithContext(ctx), url)
}

// ToggleCheer 锁定评测行后执行条件删除；删除成功则计数减一，
// 否则插入 cheer 行并仅在确实插入时计数加一。
func (r *gormReviewRepository) ToggleCheer(ctx context.Context, reviewID, userID uint) (*models.Review, bool, error) {
	var (
		review  models.Review
		cheered bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&review, reviewID).Error; err != nil {
			return err
		}

		delta := 0
		res := tx.Exec("DELETE FROM review_cheers WHERE review_id = ? AND user_id = ?", reviewID, userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			delta = -1
		} else {
			cheered = true
			res = tx.Exec(
				"INSERT INTO review_cheers (review_id, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
				reviewID, userID,
			)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				delta = 1
			}
		}

		if delta == 0 {
			return nil
		}
		now := time.Now()
		if err := tx.Exec(
			"UPDATE reviews SET cheers = cheers + ?, updated_at = ? WHERE id = ?", delta, now, reviewID,
		).Error; err != nil {
			return err
		}
		review.Cheers += delta
		review.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &review, cheered, nil
}

func (r *gormReviewRepository) HasCheered(ctx context.Context, reviewID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ReviewCheer{}).
		Where("review_id = ? AND user_id = ?", reviewID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gormReviewRepository) ListCheerers(ctx context.Context, reviewID uint) ([]models.UserBasicInfo, error) {
	cheerers := []models.UserBasicInfo{}
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("users.id", "users.username", "users.profile_pic_url").
		Joins("JOIN review_cheers ON review_cheers.user_id = users.id").
		Where("review_cheers.review_id = ?", reviewID).
		Order("users.username ASC").
		Scan(&cheerers).Error
	return cheerers, err
}

func (r *gormReviewRepository) RecountCheers(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE reviews SET cheers = c.n
		FROM (
			SELECT reviews.id AS review_id, COUNT(review_cheers.user_id) AS n
			FROM reviews LEFT JOIN review_cheers ON review_cheers.review_id = reviews.id
			GROUP BY reviews.id
		) c
		WHERE reviews.id = c.review_id AND reviews.cheers <> c.n`)
	return res.RowsAffected, res.Error
}
