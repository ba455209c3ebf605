package repositories

import (
	"errors"
	"fmt"
	"time"

	"authapi/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMTokenRepository is a GORM implementation of TokenRepository.
type GORMTokenRepository struct {
	db *gorm.DB
}

// NewGORMTokenRepository creates a new instance of GORMTokenRepository.
func NewGORMTokenRepository(db *gorm.DB) *GORMTokenRepository {
	return &GORMTokenRepository{
		db: db,
	}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *GORMTokenRepository) WithTx(tx *gorm.DB) TokenRepository {
	return &GORMTokenRepository{db: tx}
}

// Create inserts a new access token row.
func (r *GORMTokenRepository) Create(token *models.AccessToken) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if err := r.db.Create(token).Error; err != nil {
		return fmt.Errorf("failed to create access token for user %s: %w", token.UserID, err)
	}
	return nil
}

// GetByID retrieves a token row by its ID.
func (r *GORMTokenRepository) GetByID(id string) (*models.AccessToken, error) {
	var token models.AccessToken
	if err := r.db.First(&token, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to query access token %s: %w", id, err)
	}
	return &token, nil
}

// DeleteByName removes the token occupying the given slot for the user.
func (r *GORMTokenRepository) DeleteByName(userID, name string) error {
	if err := r.db.
		Where("user_id = ? AND name = ?", userID, name).
		Delete(&models.AccessToken{}).Error; err != nil {
		return fmt.Errorf("failed to delete token slot %s for user %s: %w", name, userID, err)
	}
	return nil
}

// DeleteByID removes a single token row.
func (r *GORMTokenRepository) DeleteByID(id string) error {
	if err := r.db.Delete(&models.AccessToken{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete access token %s: %w", id, err)
	}
	return nil
}

// DeleteByUser removes every outstanding token for the user.
func (r *GORMTokenRepository) DeleteByUser(userID string) error {
	if err := r.db.Delete(&models.AccessToken{}, "user_id = ?", userID).Error; err != nil {
		return fmt.Errorf("failed to delete access tokens for user %s: %w", userID, err)
	}
	return nil
}

// TouchLastUsed stamps the token's last resolution time.
func (r *GORMTokenRepository) TouchLastUsed(id string) error {
	if err := r.db.Model(&models.AccessToken{}).
		Where("id = ?", id).
		Update("last_used_at", time.Now()).Error; err != nil {
		return fmt.Errorf("failed to touch access token %s: %w", id, err)
	}
	return nil
}
