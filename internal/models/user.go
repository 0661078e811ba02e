package models

import (
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

type User struct {
	ID             uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	Email          string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash   string    `json:"-"`
	DisplayName    string    `json:"display_name"`
	Provider       string    `json:"provider" gorm:"not null;default:'password'"`
	ProviderUserID string    `json:"-" gorm:"index"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	return assignID(&u.ID)
}

// GreetingName is the display name, the local part of the email, or "Student".
func (u User) GreetingName() string {
	if name := strings.TrimSpace(u.DisplayName); name != "" {
		return name
	}
	if local, _, _ := strings.Cut(u.Email, "@"); local != "" {
		return local
	}
	return "Student"
}

// UserStats is created on the first XP award and only ever grows.
type UserStats struct {
	OwnerID   uuid.UUID `json:"owner_id" gorm:"primaryKey;type:uuid"`
	XP        int64     `json:"xp" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserStats) TableName() string { return "user_stats" }

// All lists every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{&User{}, &Subject{}, &Topic{}, &Task{}, &UserStats{}}
}
