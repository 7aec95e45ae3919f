package models

// MaxCommentLength is the comment length limit in Unicode code points.
const MaxCommentLength = 1000

// Comment is a comment on a review.
// Username is copied from the author at creation time and never refreshed.
type Comment struct {
	BaseModel
	ReviewID uint   `gorm:"not null;index" json:"reviewId"`
	UserID   uint   `gorm:"not null;index" json:"userId"`
	Username string `gorm:"type:varchar(100);not null" json:"username"`
	Text     string `gorm:"type:text;not null" json:"text"`
}

// TableName 指定 Comment 模型的表名。
func (Comment) TableName() string {
	return "comments"
}
