package models

import "time"

// User 代表系统中的用户。好友关系保存在 friend_links 表中。
type User struct {
	BaseModel
	Username      string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	Email         string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash  string     `gorm:"type:varchar(255);not null" json:"-"` // 不暴露密码哈希
	DateOfBirth   *time.Time `gorm:"type:date" json:"dateOfBirth,omitempty"`
	ProfilePicURL string     `gorm:"type:varchar(512)" json:"profilePicUrl,omitempty"`
	IsAdmin       bool       `gorm:"not null;default:false" json:"isAdmin"`
}

// UserBasicInfo holds the public subset of a user.
// Returned by friend lists, cheerer lists and the public profile endpoint.
type UserBasicInfo struct {
	ID            uint   `json:"id"`
	Username      string `json:"username"`
	ProfilePicURL string `json:"profilePicUrl,omitempty"`
}

// BasicInfo projects the user onto its public fields.
func (u *User) BasicInfo() UserBasicInfo {
	return UserBasicInfo{ID: u.ID, Username: u.Username, ProfilePicURL: u.ProfilePicURL}
}

// TableName 指定 User 模型的表名。
func (User) TableName() string {
	return "users"
}
