package models

import "time"

// FriendLink is one direction of a friendship.
// A friendship between A and B is stored as both (A,B) and (B,A).
type FriendLink struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	FriendID  uint      `gorm:"primaryKey;autoIncrement:false;index" json:"friendId"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName 指定 FriendLink 模型的表名。
func (FriendLink) TableName() string {
	return "friend_links"
}

// Mirror returns the opposite direction of the link.
func (f FriendLink) Mirror() FriendLink {
	return FriendLink{UserID: f.FriendID, FriendID: f.UserID, CreatedAt: f.CreatedAt}
}
