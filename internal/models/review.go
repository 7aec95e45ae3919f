package models

// Review is a user's review of a beer.
// Cheers always equals the number of review_cheers rows for the review.
type Review struct {
	BaseModel
	UserID   uint    `gorm:"not null;index" json:"userId"`
	Name     string  `gorm:"type:varchar(255);not null" json:"name"`
	Style    string  `gorm:"type:varchar(255);not null" json:"style"`
	Rating   float64 `gorm:"not null" json:"rating"`
	ImageURL string  `gorm:"type:varchar(512)" json:"imageUrl,omitempty"`
	Location string  `gorm:"type:varchar(255)" json:"location,omitempty"`
	Cheers   int     `gorm:"not null;default:0" json:"cheers"`
}

// TableName 指定 Review 模型的表名。
func (Review) TableName() string {
	return "reviews"
}

// ReviewCheer records that a user cheered a review. One row per (review, user).
type ReviewCheer struct {
	ReviewID uint `gorm:"primaryKey;autoIncrement:false"`
	UserID   uint `gorm:"primaryKey;autoIncrement:false;index"`
}

// TableName 指定 ReviewCheer 模型的表名。
func (ReviewCheer) TableName() string {
	return "review_cheers"
}
