package models

import "time"

// User statuses. A user only ever moves forward: pending -> active -> deleted.
const (
	StatusPending = "pending"
	StatusActive  = "active"
	StatusDeleted = "deleted"
)

// User represents an account identity record.
type User struct {
	ID              string     `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	// Uniqueness is scoped to non-deleted rows: a retired account keeps its
	// row for history but releases its email and username.
	Email           string     `json:"email" gorm:"type:varchar(255);uniqueIndex:udx_users_email,where:status <> 'deleted'" validate:"required,email"`
	Username        string     `json:"username" gorm:"type:varchar(100);uniqueIndex:udx_users_username,where:status <> 'deleted'" validate:"required,min=3,max=100"`
	PasswordHash    string     `json:"-" gorm:"type:varchar(255)"` // Never serialized
	Status          string     `json:"status" gorm:"type:varchar(20);default:pending"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	LastLoginAt     *time.Time `json:"last_login_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsPending reports whether the user has registered but not yet verified their email.
func (u *User) IsPending() bool {
	return u.Status == StatusPending
}

// IsActive reports whether the user is allowed to log in.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// UserProfile holds display fields and activity counters, 1:1 with User.
// Created when the account is activated; the counters only ever grow.
type UserProfile struct {
	ID                 string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID             string    `json:"user_id" gorm:"uniqueIndex;type:varchar(36)"`
	User               *User     `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	FirstName          *string   `json:"first_name"`
	LastName           *string   `json:"last_name"`
	PhoneNumber        *string   `json:"phone_number"`
	AvatarURL          *string   `json:"avatar_url"`
	Bio                *string   `json:"bio"`
	TotalCoinsEarned   int64     `json:"total_coins_earned" gorm:"default:0"`
	TotalCoinsSpent    int64     `json:"total_coins_spent" gorm:"default:0"`
	CurrentCoins       int64     `json:"current_coins" gorm:"default:0"`
	TotalVideosWatched int64     `json:"total_videos_watched" gorm:"default:0"`
	TotalWatchTime     int64     `json:"total_watch_time" gorm:"default:0"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// UserSecurity holds PIN verification state, 1:1 with User.
type UserSecurity struct {
	ID              string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string     `json:"user_id" gorm:"uniqueIndex;type:varchar(36)"`
	User            *User      `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	PinCodeHash     *string    `json:"-"`
	PinAttempts     int64      `json:"pin_attempts" gorm:"default:0"`
	PinBlockedUntil *time.Time `json:"pin_blocked_until"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
