package repositories

import (
	"errors"
	"fmt"
	"time"

	"authapi/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMVerificationRepository is a GORM implementation of VerificationRepository.
type GORMVerificationRepository struct {
	db *gorm.DB
}

// NewGORMVerificationRepository creates a new instance of GORMVerificationRepository.
func NewGORMVerificationRepository(db *gorm.DB) *GORMVerificationRepository {
	return &GORMVerificationRepository{
		db: db,
	}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *GORMVerificationRepository) WithTx(tx *gorm.DB) VerificationRepository {
	return &GORMVerificationRepository{db: tx}
}

// Issue supersedes any unused code for (userID, codeType) and inserts a new one.
func (r *GORMVerificationRepository) Issue(userID, email, code, codeType string, data models.CodeData, ttl time.Duration) (*models.VerificationCode, error) {
	if err := r.db.
		Where("user_id = ? AND type = ? AND is_used = ?", userID, codeType, false).
		Delete(&models.VerificationCode{}).Error; err != nil {
		return nil, fmt.Errorf("failed to delete superseded %s codes for user %s: %w", codeType, userID, err)
	}

	verification := models.VerificationCode{
		ID:        uuid.New().String(),
		UserID:    userID,
		Email:     email,
		Code:      code,
		Type:      codeType,
		Data:      data,
		IsUsed:    false,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := r.db.Create(&verification).Error; err != nil {
		return nil, fmt.Errorf("failed to create %s code for user %s: %w", codeType, userID, err)
	}
	return &verification, nil
}

// FindValid looks up an unused, unexpired code without consuming it.
func (r *GORMVerificationRepository) FindValid(userID, code, codeType string) (*models.VerificationCode, error) {
	var verification models.VerificationCode
	err := r.db.First(&verification,
		"user_id = ? AND code = ? AND type = ? AND is_used = ? AND expires_at > ?",
		userID, code, codeType, false, time.Now()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrCodeInvalidOrExpired
		}
		return nil, fmt.Errorf("failed to query %s code for user %s: %w", codeType, userID, err)
	}
	return &verification, nil
}

// Consume marks a matching valid code as used, exactly once.
func (r *GORMVerificationRepository) Consume(userID, code, codeType string) (*models.VerificationCode, error) {
	verification, err := r.FindValid(userID, code, codeType)
	if err != nil {
		return nil, err
	}
	return r.markUsed(verification)
}

// ConsumeByID marks the code with the given ID as used, exactly once.
func (r *GORMVerificationRepository) ConsumeByID(id, codeType string) (*models.VerificationCode, error) {
	var verification models.VerificationCode
	err := r.db.First(&verification,
		"id = ? AND type = ? AND is_used = ? AND expires_at > ?",
		id, codeType, false, time.Now()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrCodeInvalidOrExpired
		}
		return nil, fmt.Errorf("failed to query %s code %s: %w", codeType, id, err)
	}
	return r.markUsed(&verification)
}

// markUsed flips is_used under a guard so that two racing consumers resolve to
// exactly one success.
func (r *GORMVerificationRepository) markUsed(verification *models.VerificationCode) (*models.VerificationCode, error) {
	res := r.db.Model(&models.VerificationCode{}).
		Where("id = ? AND is_used = ?", verification.ID, false).
		Update("is_used", true)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to consume code %s: %w", verification.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.ErrCodeInvalidOrExpired
	}
	verification.IsUsed = true
	return verification, nil
}

// DeleteExpired removes codes whose expiry predates the cutoff.
func (r *GORMVerificationRepository) DeleteExpired(before time.Time) (int64, error) {
	res := r.db.Where("expires_at < ?", before).Delete(&models.VerificationCode{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired codes: %w", res.Error)
	}
	return res.RowsAffected, nil
}
