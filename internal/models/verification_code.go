package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Verification code types. Each one authorizes a different account transition.
const (
	CodeTypeEmailVerification = "email_verification"
	CodeTypeEmailChange       = "email_change"
	CodeTypePasswordReset     = "password_reset"
)

// Keys used in the CodeData payload of email_change codes.
const (
	DataKeyNewEmail = "new_email"
	DataKeyOldEmail = "old_email"
)

// CodeData is the opaque key-value payload attached to a verification code,
// stored as a JSON text column.
type CodeData map[string]string

// Value implements driver.Valuer so GORM can persist the payload as JSON.
func (d CodeData) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal code data: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner for reading the JSON payload back.
func (d *CodeData) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported code data column type %T", value)
	}
	return json.Unmarshal(raw, d)
}

// VerificationCode is a short-lived, single-use numeric credential that
// authorizes one account-state transition. At most one unused code exists per
// (UserID, Type); issuing a new one deletes earlier unused codes of that type.
type VerificationCode struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user_id" gorm:"index;type:varchar(36)"`
	User      *User     `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Email     string    `json:"email" gorm:"type:varchar(255)"` // Target address; for email_change this is the new address
	Code      string    `json:"-" gorm:"type:varchar(6);index"`
	Type      string    `json:"type" gorm:"type:varchar(32);index"`
	Data      CodeData  `json:"-" gorm:"type:text"`
	IsUsed    bool      `json:"is_used" gorm:"default:false"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsValid reports whether the code can still be consumed.
func (v *VerificationCode) IsValid() bool {
	return !v.IsUsed && time.Now().Before(v.ExpiresAt)
}
