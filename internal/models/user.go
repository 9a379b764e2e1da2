package models

import "time"

// UserType selects the daily message entitlement.
type UserType string

const (
	UserGuest   UserType = "guest"
	UserRegular UserType = "regular"
)

type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"type:varchar(191);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	Type         UserType  `gorm:"type:varchar(16);not null;default:regular" json:"type"`
	CreatedAt    time.Time `json:"created_at"`
}

func (User) TableName() string { return "users" }
