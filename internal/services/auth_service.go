package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"authapi/internal/models"
	"authapi/internal/repositories"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultCodeTTL is how long a verification code stays redeemable.
const DefaultCodeTTL = 10 * time.Minute

// AuthService orchestrates the account-lifecycle flows: registration, email
// verification, login/logout, email change and password reset/change. Every
// flow runs its state mutations in a single transaction; verification emails
// are dispatched best-effort after commit.
type AuthService struct {
	db           *gorm.DB
	userRepo     repositories.UserRepository
	verification repositories.VerificationRepository
	tokens       *TokenService
	notifier     Notifier
	codeTTL      time.Duration
}

// NewAuthService creates a new AuthService. A nil notifier disables outbound
// email (useful in tests); codeTTL <= 0 falls back to DefaultCodeTTL.
func NewAuthService(db *gorm.DB, userRepo repositories.UserRepository, verification repositories.VerificationRepository, tokens *TokenService, notifier Notifier, codeTTL time.Duration) *AuthService {
	if codeTTL <= 0 {
		codeTTL = DefaultCodeTTL
	}
	return &AuthService{
		db:           db,
		userRepo:     userRepo,
		verification: verification,
		tokens:       tokens,
		notifier:     notifier,
		codeTTL:      codeTTL,
	}
}

// SessionResult carries the outcome of a flow that authenticates a user.
type SessionResult struct {
	User    *models.User
	Profile *models.UserProfile
	Token   string
}

// Register creates a pending user and issues an email_verification code.
// Returns models.ErrEmailTaken or models.ErrUsernameTaken on conflict.
func (s *AuthService) Register(email, username, password string) (*models.VerificationCode, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	var verification *models.VerificationCode
	user := models.User{Email: email, Username: username, PasswordHash: hash}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.WithTx(tx).CreatePending(&user); err != nil {
			return err
		}
		var txErr error
		verification, txErr = s.issueCode(tx, user.ID, user.Email, models.CodeTypeEmailVerification, nil)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.notify(user.Email, verification.Code, models.CodeTypeEmailVerification, user.Username)
	return verification, nil
}

// VerifyEmail consumes an email_verification code, activates the pending user
// and issues their first access token.
func (s *AuthService) VerifyEmail(email, code string) (*SessionResult, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if !user.IsPending() {
		return nil, models.ErrUserNotPending
	}

	result := SessionResult{}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.verification.WithTx(tx).Consume(user.ID, code, models.CodeTypeEmailVerification); err != nil {
			return err
		}

		users := s.userRepo.WithTx(tx)
		activated, err := users.Activate(user.ID)
		if err != nil {
			return err
		}
		result.User = activated

		if result.Profile, err = users.GetProfile(user.ID); err != nil {
			return err
		}

		_, plaintext, err := s.tokens.WithTx(tx).Issue(user.ID)
		if err != nil {
			return err
		}
		result.Token = plaintext
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Login authenticates by email, username and password, rotates the user's
// slot token and stamps last_login_at. Unknown users, wrong passwords and
// inactive accounts all collapse into models.ErrInvalidCredentials.
func (s *AuthService) Login(email, username, password string) (*SessionResult, error) {
	user, err := s.userRepo.GetByEmailAndUsername(email, username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive() || !checkPassword(user.PasswordHash, password) {
		return nil, models.ErrInvalidCredentials
	}

	result := SessionResult{User: user}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		_, plaintext, err := s.tokens.WithTx(tx).Issue(user.ID)
		if err != nil {
			return err
		}
		result.Token = plaintext
		return s.userRepo.WithTx(tx).TouchLastLogin(user.ID)
	})
	if err != nil {
		return nil, err
	}

	if result.Profile, err = s.userRepo.GetProfile(user.ID); err != nil {
		return nil, err
	}
	return &result, nil
}

// Logout marks the account deleted and revokes the presented token in one
// transaction.
func (s *AuthService) Logout(user *models.User, token *models.AccessToken) (*SessionResult, error) {
	profile, err := s.userRepo.GetProfile(user.ID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.WithTx(tx).SoftDelete(user.ID); err != nil {
			return err
		}
		return s.tokens.WithTx(tx).Revoke(token.ID)
	})
	if err != nil {
		return nil, err
	}

	user.Status = models.StatusDeleted
	return &SessionResult{User: user, Profile: profile}, nil
}

// RequestEmailChange issues an email_change code addressed to the new email.
// The old and new addresses ride along in the code's data payload so the
// verify step needs nothing but the code.
func (s *AuthService) RequestEmailChange(user *models.User, oldEmail, newEmail string) (*models.VerificationCode, error) {
	if oldEmail != user.Email {
		return nil, models.ErrEmailMismatch
	}
	if _, err := s.userRepo.GetByEmail(newEmail); err == nil {
		return nil, models.ErrEmailTaken
	} else if !errors.Is(err, models.ErrUserNotFound) {
		return nil, err
	}

	data := models.CodeData{
		models.DataKeyNewEmail: newEmail,
		models.DataKeyOldEmail: oldEmail,
	}

	var verification *models.VerificationCode
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		verification, txErr = s.issueCode(tx, user.ID, newEmail, models.CodeTypeEmailChange, data)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.notify(newEmail, verification.Code, models.CodeTypeEmailChange, user.Username)
	return verification, nil
}

// VerifyEmailChange consumes an email_change code and moves the account to
// the new address recorded in the code's payload. The old address becomes
// free for reuse.
func (s *AuthService) VerifyEmailChange(user *models.User, code string) (*models.User, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		verification, err := s.verification.WithTx(tx).Consume(user.ID, code, models.CodeTypeEmailChange)
		if err != nil {
			return err
		}

		newEmail, ok := verification.Data[models.DataKeyNewEmail]
		if !ok || newEmail == "" {
			return fmt.Errorf("email_change code %s has no new_email payload", verification.ID)
		}

		// The address may have been claimed since the request step.
		users := s.userRepo.WithTx(tx)
		if _, err := users.GetByEmail(newEmail); err == nil {
			return models.ErrEmailTaken
		} else if !errors.Is(err, models.ErrUserNotFound) {
			return err
		}

		if err := users.UpdateEmail(user.ID, newEmail); err != nil {
			return err
		}
		user.Email = newEmail
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// RequestPasswordReset issues a password_reset code for the account behind
// the email. When no such account exists it reports success without sending
// anything, so the endpoint cannot be used to probe for registered addresses.
func (s *AuthService) RequestPasswordReset(email string) (*models.VerificationCode, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var verification *models.VerificationCode
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		verification, txErr = s.issueCode(tx, user.ID, user.Email, models.CodeTypePasswordReset, nil)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.notify(user.Email, verification.Code, models.CodeTypePasswordReset, user.Username)
	return verification, nil
}

// VerifyResetCode checks a password_reset code without consuming it and
// returns the matching record. Its ID serves as the reset token for the
// ResetPassword step, so the client never re-transmits the raw code.
func (s *AuthService) VerifyResetCode(email, code string) (*models.VerificationCode, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			// Indistinguishable from a bad code, for the same reason
			// RequestPasswordReset never confirms account existence.
			return nil, models.ErrCodeInvalidOrExpired
		}
		return nil, err
	}
	return s.verification.FindValid(user.ID, code, models.CodeTypePasswordReset)
}

// ResetPassword consumes the reset code behind the capability token, stores
// the new password hash and revokes every outstanding session.
func (s *AuthService) ResetPassword(resetToken, newPassword string) error {
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		verification, err := s.verification.WithTx(tx).ConsumeByID(resetToken, models.CodeTypePasswordReset)
		if err != nil {
			return err
		}
		if err := s.userRepo.WithTx(tx).UpdatePasswordHash(verification.UserID, hash); err != nil {
			return err
		}
		return s.tokens.WithTx(tx).RevokeAll(verification.UserID)
	})
}

// ChangePassword replaces the password of an authenticated user after
// re-checking the current one. Existing sessions stay valid.
func (s *AuthService) ChangePassword(user *models.User, oldPassword, newPassword string) error {
	if !checkPassword(user.PasswordHash, oldPassword) {
		return models.ErrPasswordMismatch
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.userRepo.UpdatePasswordHash(user.ID, hash)
}

// issueCode generates a fresh 6-digit code and writes it through the
// verification repository bound to tx.
func (s *AuthService) issueCode(tx *gorm.DB, userID, email, codeType string, data models.CodeData) (*models.VerificationCode, error) {
	code, err := GenerateCode()
	if err != nil {
		return nil, err
	}
	return s.verification.WithTx(tx).Issue(userID, email, code, codeType, data, s.codeTTL)
}

// notify dispatches a verification email best-effort. Failures are logged and
// never surfaced: the state change has already committed.
func (s *AuthService) notify(toEmail, code, codeType, username string) {
	if s.notifier == nil {
		log.Println("Notifier is not configured. Skipping verification email.")
		return
	}
	if err := s.notifier.SendVerificationCode(toEmail, code, codeType, username); err != nil {
		log.Printf("Warning: Failed to send %s code to %s: %v", codeType, toEmail, err)
	}
}

func hashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
