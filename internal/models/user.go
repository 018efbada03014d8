package models

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID              uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	Name            string     `json:"name" gorm:"size:255;not null"`
	Email           string     `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Password        string     `json:"-" gorm:"not null"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	return assignID(&u.ID)
}

func (u *User) HasVerifiedEmail() bool {
	return u.EmailVerifiedAt != nil
}

// RefreshToken is an opaque, single-use credential exchanged for a new
// access token.
type RefreshToken struct {
	ID           uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	UserID       uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	RefreshToken uuid.UUID `json:"refresh_token" gorm:"type:uuid;uniqueIndex;not null"`
	ExpiresAt    time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt    time.Time `json:"created_at"`
}

func (t *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	return assignID(&t.ID)
}

// VerificationToken holds at most one pending email verification per
// address. Only a hash of the token is persisted.
type VerificationToken struct {
	Email     string    `json:"email" gorm:"primaryKey;size:255"`
	TokenHash string    `json:"-" gorm:"size:64;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

func (VerificationToken) TableName() string {
	return "email_verification_tokens"
}

func assignID(id *uuid.UUID) error {
	if *id != uuid.Nil {
		return nil
	}
	generated, err := uuid.NewV4()
	if err != nil {
		return err
	}
	*id = generated
	return nil
}
