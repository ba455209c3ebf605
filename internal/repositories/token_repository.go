package repositories

import (
	"authapi/internal/models"

	"gorm.io/gorm"
)

// TokenRepository defines the interface for access-token data access.
type TokenRepository interface {
	// WithTx returns a copy of the repository bound to the given transaction.
	WithTx(tx *gorm.DB) TokenRepository

	Create(token *models.AccessToken) error
	GetByID(id string) (*models.AccessToken, error)

	// DeleteByName removes the token occupying the given slot for the user.
	DeleteByName(userID, name string) error
	DeleteByID(id string) error

	// DeleteByUser removes every outstanding token for the user.
	DeleteByUser(userID string) error

	TouchLastUsed(id string) error
}
