package repositories

import (
	"authapi/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines the interface for user, profile and security data access.
type UserRepository interface {
	// WithTx returns a copy of the repository bound to the given transaction.
	WithTx(tx *gorm.DB) UserRepository

	CreatePending(user *models.User) error
	GetByID(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	GetByEmailAndUsername(email, username string) (*models.User, error)

	// Activate moves a pending user to active, stamps EmailVerifiedAt and
	// creates the 1:1 profile and security rows. Fails with
	// models.ErrUserNotPending unless the user is currently pending.
	Activate(id string) (*models.User, error)

	GetProfile(userID string) (*models.UserProfile, error)
	UpdateEmail(id, newEmail string) error
	UpdatePasswordHash(id, hash string) error
	TouchLastLogin(id string) error

	// SoftDelete marks the user deleted without removing the row, so history
	// referenced by issued codes and tokens stays intact.
	SoftDelete(id string) error
}
