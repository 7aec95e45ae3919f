package storage

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cheers-go/internal/models"
)

// FriendshipRepository stores symmetric friendships as pairs of directed links.
type FriendshipRepository interface {
	// AddPair inserts (a,b) and (b,a); existing links are left untouched.
	// Returns whether any link was created.
	AddPair(ctx context.Context, a, b uint) (bool, error)
	// RemovePair deletes both directions. Absent links are not an error.
	RemovePair(ctx context.Context, a, b uint) error
	ListFriends(ctx context.Context, userID uint) ([]models.UserBasicInfo, error)
	// RepairAsymmetric inserts the missing mirror of every one-directional link.
	RepairAsymmetric(ctx context.Context) (int64, error)
}

type gormFriendshipRepository struct {
	db *gorm.DB
}

// NewGormFriendshipRepository creates a new GormFriendshipRepository.
func NewGormFriendshipRepository(db *gorm.DB) FriendshipRepository {
	return &gormFriendshipRepository{db: db}
}

func (r *gormFriendshipRepository) AddPair(ctx context.Context, a, b uint) (bool, error) {
	var created int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		link := models.FriendLink{UserID: a, FriendID: b}
		for _, l := range []models.FriendLink{link, link.Mirror()} {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&l)
			if res.Error != nil {
				return res.Error
			}
			created += res.RowsAffected
		}
		return nil
	})
	return created > 0, err
}

func (r *gormFriendshipRepository) RemovePair(ctx context.Context, a, b uint) error {
	return r.db.WithContext(ctx).
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)", a, b, b, a).
		Delete(&models.FriendLink{}).Error
}

func (r *gormFriendshipRepository) ListFriends(ctx context.Context, userID uint) ([]models.UserBasicInfo, error) {
	friends := []models.UserBasicInfo{}
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("users.id", "users.username", "users.profile_pic_url").
		Joins("JOIN friend_links ON friend_links.friend_id = users.id").
		Where("friend_links.user_id = ?", userID).
		Order("users.username ASC").
		Scan(&friends).Error
	return friends, err
}

func (r *gormFriendshipRepository) RepairAsymmetric(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		INSERT INTO friend_links (user_id, friend_id, created_at)
		SELECT fl.friend_id, fl.user_id, fl.created_at
		FROM friend_links fl
		WHERE NOT EXISTS (
			SELECT 1 FROM friend_links m WHERE m.user_id = fl.friend_id AND m.friend_id = fl.user_id
		)
		ON CONFLICT DO NOTHING`)
	return res.RowsAffected, res.Error
}
