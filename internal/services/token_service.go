package services

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	"authapi/internal/models"
	"authapi/internal/repositories"

	"gorm.io/gorm"
)

const tokenSecretBytes = 32

// TokenService issues and resolves opaque bearer tokens. Tokens occupy a
// deterministic per-user slot: issuing for a slot revokes its previous
// occupant. The plaintext form "<id>|<secret>" is returned exactly once; only
// a sha256 of the secret half is stored.
type TokenService struct {
	tokenRepo repositories.TokenRepository
	userRepo  repositories.UserRepository
}

// NewTokenService creates a new TokenService.
func NewTokenService(tokenRepo repositories.TokenRepository, userRepo repositories.UserRepository) *TokenService {
	return &TokenService{
		tokenRepo: tokenRepo,
		userRepo:  userRepo,
	}
}

// WithTx returns a copy of the service whose repositories are bound to the
// given transaction.
func (s *TokenService) WithTx(tx *gorm.DB) *TokenService {
	return &TokenService{
		tokenRepo: s.tokenRepo.WithTx(tx),
		userRepo:  s.userRepo.WithTx(tx),
	}
}

// Issue rotates the user's slot token: the old token row is deleted and a new
// one inserted. Callers run this inside a transaction so the slot never holds
// zero or two live tokens. Returns the token row and its plaintext form.
func (s *TokenService) Issue(userID string) (*models.AccessToken, string, error) {
	slot := models.TokenSlotName(userID)
	if err := s.tokenRepo.DeleteByName(userID, slot); err != nil {
		return nil, "", err
	}

	secret := make([]byte, tokenSecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, "", fmt.Errorf("failed to generate token secret: %w", err)
	}
	secretHex := hex.EncodeToString(secret)
	hash := sha256.Sum256([]byte(secretHex))

	token := models.AccessToken{
		UserID:    userID,
		Name:      slot,
		TokenHash: hex.EncodeToString(hash[:]),
	}
	if err := s.tokenRepo.Create(&token); err != nil {
		return nil, "", err
	}

	plaintext := fmt.Sprintf("%s|%s", token.ID, secretHex)
	return &token, plaintext, nil
}

// Revoke deletes a single token.
func (s *TokenService) Revoke(tokenID string) error {
	return s.tokenRepo.DeleteByID(tokenID)
}

// RevokeAll deletes every outstanding token for the user, invalidating all of
// their sessions at once.
func (s *TokenService) RevokeAll(userID string) error {
	return s.tokenRepo.DeleteByUser(userID)
}

// Resolve validates a plaintext bearer token and returns the owning user and
// the token row. Any malformed, unknown, or mismatched token yields
// models.ErrInvalidToken.
func (s *TokenService) Resolve(plaintext string) (*models.User, *models.AccessToken, error) {
	id, secret, ok := strings.Cut(plaintext, "|")
	if !ok || id == "" || secret == "" {
		return nil, nil, models.ErrInvalidToken
	}

	token, err := s.tokenRepo.GetByID(id)
	if err != nil {
		return nil, nil, models.ErrInvalidToken
	}

	hash := sha256.Sum256([]byte(secret))
	if subtle.ConstantTimeCompare([]byte(hex.EncodeToString(hash[:])), []byte(token.TokenHash)) != 1 {
		return nil, nil, models.ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(token.UserID)
	if err != nil || user.Status == models.StatusDeleted {
		return nil, nil, models.ErrInvalidToken
	}

	if err := s.tokenRepo.TouchLastUsed(token.ID); err != nil {
		log.Printf("Warning: failed to touch last_used_at for token %s: %v", token.ID, err)
	}
	return user, token, nil
}
