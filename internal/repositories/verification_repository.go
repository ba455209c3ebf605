package repositories

import (
	"time"

	"authapi/internal/models"

	"gorm.io/gorm"
)

// VerificationRepository defines the interface for verification-code data
// access. It enforces the one-unused-code-per-(user,type) rule and the
// exactly-once consumption semantics.
type VerificationRepository interface {
	// WithTx returns a copy of the repository bound to the given transaction.
	WithTx(tx *gorm.DB) VerificationRepository

	// Issue deletes any unused codes for (userID, codeType) and inserts a
	// fresh one that expires after ttl.
	Issue(userID, email, code, codeType string, data models.CodeData, ttl time.Duration) (*models.VerificationCode, error)

	// FindValid looks up an unused, unexpired code without consuming it.
	// Returns models.ErrCodeInvalidOrExpired when no such code exists.
	FindValid(userID, code, codeType string) (*models.VerificationCode, error)

	// Consume marks a matching valid code as used. Exactly one of two racing
	// consumers succeeds; the loser gets models.ErrCodeInvalidOrExpired.
	Consume(userID, code, codeType string) (*models.VerificationCode, error)

	// ConsumeByID is Consume keyed by the code's ID, for flows where the ID
	// acts as a short-lived capability token.
	ConsumeByID(id, codeType string) (*models.VerificationCode, error)

	// DeleteExpired removes codes that expired before the cutoff. Optional
	// housekeeping; correctness never depends on it.
	DeleteExpired(before time.Time) (int64, error)
}
