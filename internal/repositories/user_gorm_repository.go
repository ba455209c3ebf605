package repositories

import (
	"errors"
	"fmt"
	"time"

	"authapi/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *GORMUserRepository) WithTx(tx *gorm.DB) UserRepository {
	return &GORMUserRepository{db: tx}
}

// CreatePending inserts a new user in pending status. The unique indexes on
// email and username back up the explicit conflict checks here.
func (r *GORMUserRepository) CreatePending(user *models.User) error {
	var count int64
	if err := r.db.Model(&models.User{}).
		Where("email = ? AND status <> ?", user.Email, models.StatusDeleted).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	if count > 0 {
		return models.ErrEmailTaken
	}

	if err := r.db.Model(&models.User{}).
		Where("username = ? AND status <> ?", user.Username, models.StatusDeleted).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check username uniqueness: %w", err)
	}
	if count > 0 {
		return models.ErrUsernameTaken
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Status = models.StatusPending

	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by their ID.
func (r *GORMUserRepository) GetByID(id string) (*models.User, error) {
	return r.first("id = ?", id)
}

// GetByEmail retrieves a non-deleted user by email.
func (r *GORMUserRepository) GetByEmail(email string) (*models.User, error) {
	return r.first("email = ? AND status <> ?", email, models.StatusDeleted)
}

// GetByUsername retrieves a non-deleted user by username.
func (r *GORMUserRepository) GetByUsername(username string) (*models.User, error) {
	return r.first("username = ? AND status <> ?", username, models.StatusDeleted)
}

// GetByEmailAndUsername retrieves the user matching both identifiers, as the
// login flow requires.
func (r *GORMUserRepository) GetByEmailAndUsername(email, username string) (*models.User, error) {
	return r.first("email = ? AND username = ? AND status <> ?", email, username, models.StatusDeleted)
}

func (r *GORMUserRepository) first(query string, args ...interface{}) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, append([]interface{}{query}, args...)...).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// Activate flips a pending user to active and creates the profile and
// security rows that accompany a live account.
func (r *GORMUserRepository) Activate(id string) (*models.User, error) {
	user, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !user.IsPending() {
		return nil, models.ErrUserNotPending
	}

	now := time.Now()
	res := r.db.Model(&models.User{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Updates(map[string]interface{}{
			"status":            models.StatusActive,
			"email_verified_at": now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to activate user %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost a race with a concurrent activation.
		return nil, models.ErrUserNotPending
	}

	profile := models.UserProfile{ID: uuid.New().String(), UserID: id}
	if err := r.db.Create(&profile).Error; err != nil {
		return nil, fmt.Errorf("failed to create profile for user %s: %w", id, err)
	}
	security := models.UserSecurity{ID: uuid.New().String(), UserID: id}
	if err := r.db.Create(&security).Error; err != nil {
		return nil, fmt.Errorf("failed to create security record for user %s: %w", id, err)
	}

	user.Status = models.StatusActive
	user.EmailVerifiedAt = &now
	return user, nil
}

// GetProfile retrieves the profile row for a user, if one exists.
func (r *GORMUserRepository) GetProfile(userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := r.db.First(&profile, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Pending users have no profile yet; callers treat nil as absent.
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query profile for user %s: %w", userID, err)
	}
	return &profile, nil
}

// UpdateEmail sets a new email address for the user.
func (r *GORMUserRepository) UpdateEmail(id, newEmail string) error {
	return r.update(id, map[string]interface{}{"email": newEmail})
}

// UpdatePasswordHash replaces the stored password hash.
func (r *GORMUserRepository) UpdatePasswordHash(id, hash string) error {
	return r.update(id, map[string]interface{}{"password_hash": hash})
}

// TouchLastLogin stamps the user's last successful login time.
func (r *GORMUserRepository) TouchLastLogin(id string) error {
	return r.update(id, map[string]interface{}{"last_login_at": time.Now()})
}

// SoftDelete marks the user deleted, keeping the row for referential history.
func (r *GORMUserRepository) SoftDelete(id string) error {
	return r.update(id, map[string]interface{}{"status": models.StatusDeleted})
}

func (r *GORMUserRepository) update(id string, values map[string]interface{}) error {
	res := r.db.Model(&models.User{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("failed to update user %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrUserNotFound
	}
	return nil
}
