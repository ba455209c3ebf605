package models

import (
	"fmt"
	"time"
)

// AccessToken is an opaque bearer credential bound to a user. Each user has a
// single session slot named after their ID; issuing a token for the slot
// revokes whatever token previously occupied it. Tokens carry no expiry and
// die only by revocation.
type AccessToken struct {
	ID         string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string     `json:"user_id" gorm:"index;type:varchar(36)"`
	User       *User      `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Name       string     `json:"name" gorm:"index;type:varchar(100)"`
	TokenHash  string     `json:"-" gorm:"type:varchar(64)"` // hex sha256 of the secret half
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TokenSlotName returns the per-user session slot name. One live token exists
// per slot at any time.
func TokenSlotName(userID string) string {
	return fmt.Sprintf("UserAccessToken.%s", userID)
}
