package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents the user model stored in the database. The OTP fields hold
// the outstanding password-reset challenge: either both are set or both are
// nil, never one without the other.
type User struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Name         string         `json:"name" gorm:"type:varchar(100);not null"`
	Email        string         `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Password     string         `json:"-" gorm:"type:varchar(255)"`
	OTPCode      *string        `json:"-" gorm:"type:varchar(10)"`
	OTPExpiresAt *time.Time     `json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// Profile is the non-sensitive projection of a user returned by the API
type Profile struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Profile returns the user's non-sensitive fields
func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email}
}

// SetChallenge stores a fresh OTP challenge, replacing any outstanding one
func (u *User) SetChallenge(code string, expiresAt time.Time) {
	u.OTPCode = &code
	u.OTPExpiresAt = &expiresAt
}

// ClearChallenge removes the outstanding OTP challenge
func (u *User) ClearChallenge() {
	u.OTPCode = nil
	u.OTPExpiresAt = nil
}

// HasChallenge reports whether a challenge is currently outstanding
func (u *User) HasChallenge() bool {
	return u.OTPCode != nil && u.OTPExpiresAt != nil
}
