// Package entity defines the domain entities for the auth feature.
package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a registered user in the system.
// Users are created only through registration and are never updated or deleted.
type User struct {
	// ID is the unique identifier for the user.
	ID uuid.UUID `gorm:"type:char(36);primaryKey"`

	// Email is the user's email address used for authentication.
	// It must be unique across all users and is matched exactly.
	Email string `gorm:"uniqueIndex;size:256;not null"`

	// PasswordHash is the bcrypt digest of the user's password.
	// This should never store plaintext passwords.
	PasswordHash string `gorm:"size:255;not null"`

	// FullName is the display name given at registration.
	FullName string `gorm:"size:100"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time

	// UpdatedAt is the timestamp when the user was last updated.
	UpdatedAt time.Time
}

// BeforeCreate assigns a new ID when none is set.
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
