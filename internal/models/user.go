package models

import "time"

// User is the subset of the platform's user record needed to render comment authors.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// Profile returns the author display metadata for the user.
func (u *User) Profile() AuthorProfile {
	name := u.DisplayName
	if name == "" {
		name = u.Username
	}
	return AuthorProfile{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: name,
		AvatarURL:   u.AvatarURL,
	}
}

// Post is the owning entity of comments. Only its identity is used here.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
}
