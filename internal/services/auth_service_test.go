package services_test

import (
	"testing"
	"time"

	"authapi/internal/models"
	"authapi/internal/repositories"
	"authapi/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// MockNotifier is a mock implementation of services.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendVerificationCode(toEmail, code, codeType, username string) error {
	args := m.Called(toEmail, code, codeType, username)
	return args.Error(0)
}

type authFixture struct {
	db       *gorm.DB
	service  *services.AuthService
	tokens   *services.TokenService
	notifier *MockNotifier
}

func newAuthFixture(t *testing.T, codeTTL time.Duration) *authFixture {
	t.Helper()
	db := setupTestDB(t)
	userRepo := repositories.NewGORMUserRepository(db)
	verificationRepo := repositories.NewGORMVerificationRepository(db)
	tokenRepo := repositories.NewGORMTokenRepository(db)
	tokens := services.NewTokenService(tokenRepo, userRepo)

	notifier := new(MockNotifier)
	notifier.On("SendVerificationCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	return &authFixture{
		db:       db,
		service:  services.NewAuthService(db, userRepo, verificationRepo, tokens, notifier, codeTTL),
		tokens:   tokens,
		notifier: notifier,
	}
}

// latestCode fetches the stored code for (userID, codeType) straight from the
// database, standing in for the email the user would have received.
func (f *authFixture) latestCode(t *testing.T, userID, codeType string) *models.VerificationCode {
	t.Helper()
	var verification models.VerificationCode
	err := f.db.Order("created_at desc").
		First(&verification, "user_id = ? AND type = ?", userID, codeType).Error
	if err != nil {
		t.Fatalf("no %s code found for user %s: %v", codeType, userID, err)
	}
	return &verification
}

func (f *authFixture) registerAndVerify(t *testing.T, email, username, password string) (*models.User, string) {
	t.Helper()
	_, err := f.service.Register(email, username, password)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	var user models.User
	if err := f.db.First(&user, "email = ?", email).Error; err != nil {
		t.Fatalf("registered user not found: %v", err)
	}
	code := f.latestCode(t, user.ID, models.CodeTypeEmailVerification)
	result, err := f.service.VerifyEmail(email, code.Code)
	if err != nil {
		t.Fatalf("verify email failed: %v", err)
	}
	return result.User, result.Token
}

func TestAuthService_Register(t *testing.T) {
	f := newAuthFixture(t, 0)

	verification, err := f.service.Register("a@x.com", "alice", "pw123456")
	assert.NoError(t, err)
	assert.Len(t, verification.Code, 6)
	assert.WithinDuration(t, time.Now().Add(services.DefaultCodeTTL), verification.ExpiresAt, 5*time.Second)

	// Exactly one pending user and one unused verification code exist.
	var users []models.User
	assert.NoError(t, f.db.Find(&users, "email = ?", "a@x.com").Error)
	assert.Len(t, users, 1)
	assert.Equal(t, models.StatusPending, users[0].Status)
	assert.Nil(t, users[0].EmailVerifiedAt)
	assert.NotEqual(t, "pw123456", users[0].PasswordHash)

	var codes []models.VerificationCode
	assert.NoError(t, f.db.Find(&codes, "user_id = ?", users[0].ID).Error)
	assert.Len(t, codes, 1)
	assert.False(t, codes[0].IsUsed)

	f.notifier.AssertCalled(t, "SendVerificationCode",
		"a@x.com", verification.Code, models.CodeTypeEmailVerification, "alice")
}

func TestAuthService_RegisterConflicts(t *testing.T) {
	f := newAuthFixture(t, 0)

	_, err := f.service.Register("a@x.com", "alice", "pw123456")
	assert.NoError(t, err)

	_, err = f.service.Register("a@x.com", "bob", "pw123456")
	assert.ErrorIs(t, err, models.ErrEmailTaken)
	_, err = f.service.Register("b@x.com", "alice", "pw123456")
	assert.ErrorIs(t, err, models.ErrUsernameTaken)
}

func TestAuthService_VerifyEmail(t *testing.T) {
	f := newAuthFixture(t, 0)

	_, err := f.service.Register("a@x.com", "alice", "pw123456")
	assert.NoError(t, err)
	var user models.User
	assert.NoError(t, f.db.First(&user, "email = ?", "a@x.com").Error)

	// Wrong code: uniform invalid-or-expired, user stays pending.
	_, err = f.service.VerifyEmail("a@x.com", "000000")
	assert.ErrorIs(t, err, models.ErrCodeInvalidOrExpired)
	assert.NoError(t, f.db.First(&user, "id = ?", user.ID).Error)
	assert.Equal(t, models.StatusPending, user.Status)

	// Correct code: activation, profile creation, first token.
	code := f.latestCode(t, user.ID, models.CodeTypeEmailVerification)
	result, err := f.service.VerifyEmail("a@x.com", code.Code)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusActive, result.User.Status)
	assert.NotNil(t, result.User.EmailVerifiedAt)
	assert.NotNil(t, result.Profile)
	assert.NotEmpty(t, result.Token)

	resolved, _, err := f.tokens.Resolve(result.Token)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)

	// The already-active user cannot re-enter the verification flow.
	_, err = f.service.VerifyEmail("a@x.com", code.Code)
	assert.ErrorIs(t, err, models.ErrUserNotPending)

	// Unknown email is a plain not-found.
	_, err = f.service.VerifyEmail("nobody@x.com", "123456")
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestAuthService_ExpiredCodeRejected(t *testing.T) {
	f := newAuthFixture(t, time.Millisecond)

	_, err := f.service.Register("a@x.com", "alice", "pw123456")
	assert.NoError(t, err)
	var user models.User
	assert.NoError(t, f.db.First(&user, "email = ?", "a@x.com").Error)
	code := f.latestCode(t, user.ID, models.CodeTypeEmailVerification)

	time.Sleep(10 * time.Millisecond)

	_, err = f.service.VerifyEmail("a@x.com", code.Code)
	assert.ErrorIs(t, err, models.ErrCodeInvalidOrExpired)
}

func TestAuthService_Login(t *testing.T) {
	f := newAuthFixture(t, 0)
	user, verifyToken := f.registerAndVerify(t, "a@x.com", "alice", "pw123456")

	result, err := f.service.Login("a@x.com", "alice", "pw123456")
	assert.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.NotEqual(t, verifyToken, result.Token)
	assert.NotNil(t, result.Profile)

	// Logging in rotated the slot: the verification-step token is dead.
	_, _, err = f.tokens.Resolve(verifyToken)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
	_, _, err = f.tokens.Resolve(result.Token)
	assert.NoError(t, err)

	var stored models.User
	assert.NoError(t, f.db.First(&stored, "id = ?", user.ID).Error)
	assert.NotNil(t, stored.LastLoginAt)

	// Bad password, wrong username pairing and unknown address all produce
	// the same error.
	_, err = f.service.Login("a@x.com", "alice", "wrongpass")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	_, err = f.service.Login("a@x.com", "bob", "pw123456")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	_, err = f.service.Login("nobody@x.com", "alice", "pw123456")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestAuthService_LoginRequiresActiveUser(t *testing.T) {
	f := newAuthFixture(t, 0)

	_, err := f.service.Register("a@x.com", "alice", "pw123456")
	assert.NoError(t, err)

	_, err = f.service.Login("a@x.com", "alice", "pw123456")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestAuthService_Logout(t *testing.T) {
	f := newAuthFixture(t, 0)
	_, plaintext := f.registerAndVerify(t, "a@x.com", "alice", "pw123456")

	user, token, err := f.tokens.Resolve(plaintext)
	assert.NoError(t, err)

	result, err := f.service.Logout(user, token)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusDeleted, result.User.Status)

	_, _, err = f.tokens.Resolve(plaintext)
	assert.ErrorIs(t, err, models.ErrInvalidToken)

	// A retired account releases its email and username.
	_, err = f.service.Register("a@x.com", "alice", "pw123456")
	assert.NoError(t, err)
}

func TestAuthService_EmailChangeFlow(t *testing.T) {
	f := newAuthFixture(t, 0)
	user, _ := f.registerAndVerify(t, "a@x.com", "alice", "pw123456")

	// Preconditions: the old address must match and the new one must be free.
	_, err := f.service.RequestEmailChange(user, "wrong@x.com", "new@x.com")
	assert.ErrorIs(t, err, models.ErrEmailMismatch)

	f.registerAndVerify(t, "taken@x.com", "taken", "pw123456")
	_, err = f.service.RequestEmailChange(user, "a@x.com", "taken@x.com")
	assert.ErrorIs(t, err, models.ErrEmailTaken)

	verification, err := f.service.RequestEmailChange(user, "a@x.com", "new@x.com")
	assert.NoError(t, err)
	// The code targets the new address and carries both emails.
	assert.Equal(t, "new@x.com", verification.Email)
	f.notifier.AssertCalled(t, "SendVerificationCode",
		"new@x.com", verification.Code, models.CodeTypeEmailChange, "alice")

	updated, err := f.service.VerifyEmailChange(user, verification.Code)
	assert.NoError(t, err)
	assert.Equal(t, "new@x.com", updated.Email)

	var stored models.User
	assert.NoError(t, f.db.First(&stored, "id = ?", user.ID).Error)
	assert.Equal(t, "new@x.com", stored.Email)

	// The old address is free again for a different registration.
	_, err = f.service.Register("a@x.com", "newcomer", "pw123456")
	assert.NoError(t, err)
}

func TestAuthService_PasswordResetFlow(t *testing.T) {
	f := newAuthFixture(t, 0)
	user, loginToken := f.registerAndVerify(t, "a@x.com", "alice", "pw123456")

	verification, err := f.service.RequestPasswordReset("a@x.com")
	assert.NoError(t, err)
	f.notifier.AssertCalled(t, "SendVerificationCode",
		"a@x.com", verification.Code, models.CodeTypePasswordReset, "alice")

	// Step one looks the code up without consuming it, so it can be checked
	// more than once.
	found, err := f.service.VerifyResetCode("a@x.com", verification.Code)
	assert.NoError(t, err)
	assert.Equal(t, verification.ID, found.ID)
	_, err = f.service.VerifyResetCode("a@x.com", verification.Code)
	assert.NoError(t, err)

	_, err = f.service.VerifyResetCode("a@x.com", "000000")
	assert.ErrorIs(t, err, models.ErrCodeInvalidOrExpired)

	assert.NoError(t, f.service.ResetPassword(found.ID, "newpass789"))

	// Every session died with the reset.
	_, _, err = f.tokens.Resolve(loginToken)
	assert.ErrorIs(t, err, models.ErrInvalidToken)

	// The capability token is single-use.
	assert.ErrorIs(t, f.service.ResetPassword(found.ID, "anotherpass"), models.ErrCodeInvalidOrExpired)

	// Old password is gone, the new one works.
	_, err = f.service.Login("a@x.com", "alice", "pw123456")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	result, err := f.service.Login("a@x.com", "alice", "newpass789")
	assert.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
}

func TestAuthService_ResetRequestSupersedesPriorCode(t *testing.T) {
	f := newAuthFixture(t, 0)
	f.registerAndVerify(t, "a@x.com", "alice", "pw123456")

	first, err := f.service.RequestPasswordReset("a@x.com")
	assert.NoError(t, err)
	second, err := f.service.RequestPasswordReset("a@x.com")
	assert.NoError(t, err)

	_, err = f.service.VerifyResetCode("a@x.com", first.Code)
	assert.ErrorIs(t, err, models.ErrCodeInvalidOrExpired)
	found, err := f.service.VerifyResetCode("a@x.com", second.Code)
	assert.NoError(t, err)
	assert.Equal(t, second.ID, found.ID)
}

func TestAuthService_ResetRequestUnknownEmailLeaksNothing(t *testing.T) {
	f := newAuthFixture(t, 0)

	verification, err := f.service.RequestPasswordReset("ghost@x.com")
	assert.NoError(t, err)
	assert.Nil(t, verification)
	f.notifier.AssertNotCalled(t, "SendVerificationCode",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	// The verify step is equally uniform for unknown addresses.
	_, err = f.service.VerifyResetCode("ghost@x.com", "123456")
	assert.ErrorIs(t, err, models.ErrCodeInvalidOrExpired)
}

func TestAuthService_ChangePassword(t *testing.T) {
	f := newAuthFixture(t, 0)
	user, plaintext := f.registerAndVerify(t, "a@x.com", "alice", "pw123456")

	assert.ErrorIs(t, f.service.ChangePassword(user, "wrongpass", "newpass789"), models.ErrPasswordMismatch)

	assert.NoError(t, f.service.ChangePassword(user, "pw123456", "newpass789"))

	// Unlike a reset, a password change keeps the current session alive.
	_, _, err := f.tokens.Resolve(plaintext)
	assert.NoError(t, err)

	_, err = f.service.Login("a@x.com", "alice", "newpass789")
	assert.NoError(t, err)
}

func TestAuthService_NotifierFailureDoesNotFailFlow(t *testing.T) {
	db := setupTestDB(t)
	userRepo := repositories.NewGORMUserRepository(db)
	verificationRepo := repositories.NewGORMVerificationRepository(db)
	tokens := services.NewTokenService(repositories.NewGORMTokenRepository(db), userRepo)

	notifier := new(MockNotifier)
	notifier.On("SendVerificationCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(assert.AnError)
	service := services.NewAuthService(db, userRepo, verificationRepo, tokens, notifier, 0)

	// The registration commits even though the email could not be sent.
	_, err := service.Register("a@x.com", "alice", "pw123456")
	assert.NoError(t, err)

	var count int64
	db.Model(&models.User{}).Where("email = ?", "a@x.com").Count(&count)
	assert.EqualValues(t, 1, count)
}
