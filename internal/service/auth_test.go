package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/satrapit/db-conn/internal/auth"
	"github.com/satrapit/db-conn/internal/domain"
	"github.com/satrapit/db-conn/internal/ratelimit"
	apperrors "github.com/satrapit/db-conn/pkg/errors"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// --- Mock OTP Repository ---

type mockOTPRepository struct {
	mock.Mock
}

func (m *mockOTPRepository) Create(ctx context.Context, phone, codeHash string, createdAt time.Time) (*domain.OneTimeCode, error) {
	args := m.Called(ctx, phone, codeHash, createdAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OneTimeCode), args.Error(1)
}

func (m *mockOTPRepository) LatestByPhone(ctx context.Context, phone string) (*domain.OneTimeCode, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OneTimeCode), args.Error(1)
}

func (m *mockOTPRepository) Consume(ctx context.Context, id int64, consumedAt time.Time) error {
	args := m.Called(ctx, id, consumedAt)
	return args.Error(0)
}

// --- Mock Session Repository ---

type mockSessionRepository struct {
	mock.Mock
}

func (m *mockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockSessionRepository) GetActive(ctx context.Context, userID, tokenHash string, now time.Time) (*domain.Session, error) {
	args := m.Called(ctx, userID, tokenHash, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *mockSessionRepository) ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]domain.Session, error) {
	args := m.Called(ctx, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Session), args.Error(1)
}

func (m *mockSessionRepository) Revoke(ctx context.Context, tokenHash string, revokedAt time.Time) error {
	args := m.Called(ctx, tokenHash, revokedAt)
	return args.Error(0)
}

func (m *mockSessionRepository) RevokeAllByUser(ctx context.Context, userID string, revokedAt time.Time) error {
	args := m.Called(ctx, userID, revokedAt)
	return args.Error(0)
}

// --- Mock Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishOTPRequested(ctx context.Context, phone string, issuedAt time.Time) error {
	args := m.Called(ctx, phone, issuedAt)
	return args.Error(0)
}

func (m *mockPublisher) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockPublisher) PublishSessionRevoked(ctx context.Context, userID string, revokedAt time.Time) error {
	args := m.Called(ctx, userID, revokedAt)
	return args.Error(0)
}

// --- Test Helpers ---

const testPhone = "09121234567"

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestTokenManager(ttl time.Duration) *auth.TokenManager {
	return auth.NewTokenManager("test-secret-key-for-testing", "phoneauth", "phoneauth-app", ttl)
}

type testDeps struct {
	userRepo    *mockUserRepository
	otpRepo     *mockOTPRepository
	sessionRepo *mockSessionRepository
	publisher   *mockPublisher
}

func newTestService(t *testing.T, opts ...func(*AuthService)) (*AuthService, *testDeps) {
	t.Helper()
	deps := &testDeps{
		userRepo:    new(mockUserRepository),
		otpRepo:     new(mockOTPRepository),
		sessionRepo: new(mockSessionRepository),
		publisher:   new(mockPublisher),
	}
	svc := NewAuthService(
		deps.userRepo,
		deps.otpRepo,
		deps.sessionRepo,
		newTestTokenManager(720*time.Hour),
		ratelimit.New(nil, newTestLogger(), 0, 0),
		deps.publisher,
		newTestLogger(),
		Config{ResendWindow: 120 * time.Second},
	)
	for _, opt := range opts {
		opt(svc)
	}
	return svc, deps
}

func withDebugExpose() func(*AuthService) {
	return func(s *AuthService) { s.cfg.DebugExpose = true }
}

func strPtr(s string) *string {
	return &s
}

// hashCodeForTest creates a bcrypt hash with cost 4 for fast tests.
func hashCodeForTest(code string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(code), 4)
	if err != nil {
		panic(err)
	}
	return string(h)
}

// --- RequestCode Tests ---

func TestRequestCode_InvalidPhone(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	for _, phone := range []string{"", "12345", "0912123456", "+989121234567", "02121234567"} {
		result, err := svc.RequestCode(ctx, phone, ClientInfo{})
		assert.Nil(t, result)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput, "phone %q", phone)
	}

	deps.otpRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestCode_IssuesNewCode(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	deps.otpRepo.On("LatestByPhone", ctx, testPhone).Return(nil, apperrors.ErrNotFound)
	deps.otpRepo.On("Create", ctx, testPhone, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Return(&domain.OneTimeCode{ID: 1, Phone: testPhone}, nil)
	deps.publisher.On("PublishOTPRequested", ctx, testPhone, mock.AnythingOfType("time.Time")).Return(nil)

	result, err := svc.RequestCode(ctx, testPhone, ClientInfo{IP: "10.0.0.1"})

	require.NoError(t, err)
	assert.False(t, result.Resent)
	assert.Empty(t, result.DebugCode, "plaintext code must not leak outside debug mode")

	deps.otpRepo.AssertExpectations(t)
	deps.publisher.AssertExpectations(t)
}

func TestRequestCode_DebugModeEchoesMatchingCode(t *testing.T) {
	svc, deps := newTestService(t, withDebugExpose())
	ctx := context.Background()

	var storedHash string
	deps.otpRepo.On("LatestByPhone", ctx, testPhone).Return(nil, apperrors.ErrNotFound)
	deps.otpRepo.On("Create", ctx, testPhone, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) {
			storedHash = args.String(2)
		}).
		Return(&domain.OneTimeCode{ID: 1, Phone: testPhone}, nil)
	deps.publisher.On("PublishOTPRequested", ctx, testPhone, mock.AnythingOfType("time.Time")).Return(nil)

	result, err := svc.RequestCode(ctx, testPhone, ClientInfo{})

	require.NoError(t, err)
	require.Len(t, result.DebugCode, 6)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(result.DebugCode)),
		"stored hash must match the echoed plaintext")
}

func TestRequestCode_ResendInsideWindow(t *testing.T) {
	svc, deps := newTestService(t, withDebugExpose())
	ctx := context.Background()

	deps.otpRepo.On("LatestByPhone", ctx, testPhone).Return(&domain.OneTimeCode{
		ID:        1,
		Phone:     testPhone,
		CodeHash:  hashCodeForTest("123456"),
		CreatedAt: time.Now().UTC().Add(-60 * time.Second),
	}, nil)

	result, err := svc.RequestCode(ctx, testPhone, ClientInfo{})

	require.NoError(t, err)
	assert.True(t, result.Resent)
	assert.Empty(t, result.DebugCode, "a resent code's plaintext is unrecoverable")

	deps.otpRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestCode_NewCodeAfterWindow(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	deps.otpRepo.On("LatestByPhone", ctx, testPhone).Return(&domain.OneTimeCode{
		ID:        1,
		Phone:     testPhone,
		CodeHash:  hashCodeForTest("123456"),
		CreatedAt: time.Now().UTC().Add(-121 * time.Second),
	}, nil)
	deps.otpRepo.On("Create", ctx, testPhone, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Return(&domain.OneTimeCode{ID: 2, Phone: testPhone}, nil)
	deps.publisher.On("PublishOTPRequested", ctx, testPhone, mock.AnythingOfType("time.Time")).Return(nil)

	result, err := svc.RequestCode(ctx, testPhone, ClientInfo{})

	require.NoError(t, err)
	assert.False(t, result.Resent)
	deps.otpRepo.AssertExpectations(t)
}

func TestRequestCode_NewCodeAfterConsumption(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	consumedAt := time.Now().UTC().Add(-10 * time.Second)
	deps.otpRepo.On("LatestByPhone", ctx, testPhone).Return(&domain.OneTimeCode{
		ID:         1,
		Phone:      testPhone,
		CodeHash:   hashCodeForTest("123456"),
		CreatedAt:  time.Now().UTC().Add(-30 * time.Second),
		ConsumedAt: &consumedAt,
	}, nil)
	deps.otpRepo.On("Create", ctx, testPhone, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Return(&domain.OneTimeCode{ID: 2, Phone: testPhone}, nil)
	deps.publisher.On("PublishOTPRequested", ctx, testPhone, mock.AnythingOfType("time.Time")).Return(nil)

	result, err := svc.RequestCode(ctx, testPhone, ClientInfo{})

	require.NoError(t, err)
	assert.False(t, result.Resent)
	deps.otpRepo.AssertExpectations(t)
}

func TestRequestCode_PublishFailureDoesNotFail(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	deps.otpRepo.On("LatestByPhone", ctx, testPhone).Return(nil, apperrors.ErrNotFound)
	deps.otpRepo.On("Create", ctx, testPhone, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Return(&domain.OneTimeCode{ID: 1, Phone: testPhone}, nil)
	deps.publisher.On("PublishOTPRequested", ctx, testPhone, mock.AnythingOfType("time.Time")).
		Return(assert.AnError)

	_, err := svc.RequestCode(ctx, testPhone, ClientInfo{})
	assert.NoError(t, err)
}

// --- VerifyCode Tests ---

func TestVerifyCode_MissingFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, tc := range []struct{ phone, code string }{
		{"", "123456"},
		{testPhone, ""},
		{"", ""},
	} {
		token, user, err := svc.VerifyCode(ctx, tc.phone, tc.code, ClientInfo{})
		assert.Empty(t, token)
		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	}
}

func TestVerifyCode_NoCodeIssued(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	deps.otpRepo.On("LatestByPhone", ctx, testPhone).Return(nil, apperrors.ErrNotFound)

	token, user, err := svc.VerifyCode(ctx, testPhone, "123456", ClientInfo{})
	assert.Empty(t, token)
	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestVerifyCode_AlreadyConsumed(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	consumedAt := time.Now().UTC().Add(-time.Minute)
	deps.otpRepo.On("LatestByPhone", ctx, testPhone).Return(&domain.OneTimeCode{
		ID:         1,
		Phone:      testPhone,
		CodeHash:   hashCodeForTest("123456"),
		CreatedAt:  time.Now().UTC().Add(-2 * time.Minute),
		ConsumedAt: &consumedAt,
	}, nil)

	_, _, err := svc.VerifyCode(ctx, testPhone, "123456", ClientInfo{})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	deps.otpRepo.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyCode_WrongCode(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	deps.otpRepo.On("LatestByPhone", ctx, testPhone).Return(&domain.OneTimeCode{
		ID:        1,
		Phone:     testPhone,
		CodeHash:  hashCodeForTest("123456"),
		CreatedAt: time.Now().UTC(),
	}, nil)

	_, _, err := svc.VerifyCode(ctx, testPhone, "000000", ClientInfo{})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	deps.otpRepo.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyCode_ConsumeRaceLoses(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	deps.otpRepo.On("LatestByPhone", ctx, testPhone).Return(&domain.OneTimeCode{
		ID:        1,
		Phone:     testPhone,
		CodeHash:  hashCodeForTest("123456"),
		CreatedAt: time.Now().UTC(),
	}, nil)
	// The compare-and-swap failed: another request consumed the code first.
	deps.otpRepo.On("Consume", ctx, int64(1), mock.AnythingOfType("time.Time")).
		Return(apperrors.ErrUnauthorized)

	token, user, err := svc.VerifyCode(ctx, testPhone, "123456", ClientInfo{})
	assert.Empty(t, token)
	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestVerifyCode_Success_ExistingUser(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	existing := &domain.User{ID: "user-1", Phone: testPhone}
	deps.otpRepo.On("LatestByPhone", ctx, testPhone).Return(&domain.OneTimeCode{
		ID:        1,
		Phone:     testPhone,
		CodeHash:  hashCodeForTest("123456"),
		CreatedAt: time.Now().UTC(),
	}, nil)
	deps.otpRepo.On("Consume", ctx, int64(1), mock.AnythingOfType("time.Time")).Return(nil)
	deps.userRepo.On("GetByPhone", ctx, testPhone).Return(existing, nil)

	var stored *domain.Session
	deps.sessionRepo.On("Create", ctx, mock.AnythingOfType("*domain.Session")).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(*domain.Session)
		}).
		Return(nil)

	token, user, err := svc.VerifyCode(ctx, testPhone, "123456", ClientInfo{IP: "10.0.0.1", UserAgent: "curl/8.0"})

	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "user-1", user.ID)

	// The token must verify and carry the identity payload.
	claims, err := newTestTokenManager(720 * time.Hour).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Data.ID)
	assert.Equal(t, testPhone, claims.Data.Phone)

	// The stored session records the token hash and client metadata.
	require.NotNil(t, stored)
	assert.Equal(t, hashToken(token), stored.TokenHash)
	assert.Equal(t, "10.0.0.1", stored.IPAddress)
	assert.Equal(t, "curl/8.0", stored.UserAgent)
	assert.Equal(t, claims.ExpiresAt.Time.Unix(), stored.ExpiresAt.Unix())

	deps.userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestVerifyCode_Success_ProvisionsNewUser(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	deps.otpRepo.On("LatestByPhone", ctx, testPhone).Return(&domain.OneTimeCode{
		ID:        1,
		Phone:     testPhone,
		CodeHash:  hashCodeForTest("123456"),
		CreatedAt: time.Now().UTC(),
	}, nil)
	deps.otpRepo.On("Consume", ctx, int64(1), mock.AnythingOfType("time.Time")).Return(nil)
	deps.userRepo.On("GetByPhone", ctx, testPhone).Return(nil, apperrors.ErrNotFound)
	deps.userRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)
	deps.publisher.On("PublishUserRegistered", ctx, mock.AnythingOfType("*domain.User")).Return(nil)
	deps.sessionRepo.On("Create", ctx, mock.AnythingOfType("*domain.Session")).Return(nil)

	token, user, err := svc.VerifyCode(ctx, testPhone, "123456", ClientInfo{})

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, testPhone, user.Phone)
	assert.Empty(t, user.FirstName)
	assert.Empty(t, user.LastName)

	deps.userRepo.AssertExpectations(t)
	deps.publisher.AssertExpectations(t)
}

func TestVerifyCode_SessionStoreFailure(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	deps.otpRepo.On("LatestByPhone", ctx, testPhone).Return(&domain.OneTimeCode{
		ID:        1,
		Phone:     testPhone,
		CodeHash:  hashCodeForTest("123456"),
		CreatedAt: time.Now().UTC(),
	}, nil)
	deps.otpRepo.On("Consume", ctx, int64(1), mock.AnythingOfType("time.Time")).Return(nil)
	deps.userRepo.On("GetByPhone", ctx, testPhone).Return(&domain.User{ID: "user-1", Phone: testPhone}, nil)
	deps.sessionRepo.On("Create", ctx, mock.AnythingOfType("*domain.Session")).Return(assert.AnError)

	token, user, err := svc.VerifyCode(ctx, testPhone, "123456", ClientInfo{})
	assert.Empty(t, token)
	assert.Nil(t, user)
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.NotErrorIs(t, err, apperrors.ErrInvalidInput)
}

// --- Token Validation Tests ---

// issueTestToken mints a token through the service so the session hash
// bookkeeping matches production behavior.
func issueTestToken(t *testing.T, svc *AuthService, deps *testDeps, userID string) string {
	t.Helper()
	deps.otpRepo.On("LatestByPhone", mock.Anything, testPhone).Return(&domain.OneTimeCode{
		ID:        1,
		Phone:     testPhone,
		CodeHash:  hashCodeForTest("123456"),
		CreatedAt: time.Now().UTC(),
	}, nil).Once()
	deps.otpRepo.On("Consume", mock.Anything, int64(1), mock.AnythingOfType("time.Time")).Return(nil).Once()
	deps.userRepo.On("GetByPhone", mock.Anything, testPhone).Return(&domain.User{ID: userID, Phone: testPhone}, nil).Once()
	deps.sessionRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil).Once()

	token, _, err := svc.VerifyCode(context.Background(), testPhone, "123456", ClientInfo{})
	require.NoError(t, err)
	return token
}

func TestValidateToken_Missing(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.ValidateToken(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestValidateToken_Invalid(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.ValidateToken(context.Background(), "not.a.token")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestValidateToken_Success(t *testing.T) {
	svc, deps := newTestService(t)
	token := issueTestToken(t, svc, deps, "user-1")

	deps.sessionRepo.On("GetActive", mock.Anything, "user-1", hashToken(token), mock.AnythingOfType("time.Time")).
		Return(&domain.Session{ID: 1, UserID: "user-1"}, nil)

	err := svc.ValidateToken(context.Background(), token)
	assert.NoError(t, err)
}

func TestValidateToken_Revoked(t *testing.T) {
	svc, deps := newTestService(t)
	token := issueTestToken(t, svc, deps, "user-1")

	deps.sessionRepo.On("GetActive", mock.Anything, "user-1", hashToken(token), mock.AnythingOfType("time.Time")).
		Return(nil, apperrors.ErrNotFound)

	err := svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestValidateToken_Expired(t *testing.T) {
	svc, _ := newTestService(t)

	// Same secret, negative lifetime: the token's expiry is already behind
	// the service's clock when validated.
	expiredToken, _, err := newTestTokenManager(-time.Minute).Issue("user-1", testPhone)
	require.NoError(t, err)

	valErr := svc.ValidateToken(context.Background(), expiredToken)
	assert.ErrorIs(t, valErr, apperrors.ErrUnauthorized)

	var appErr *apperrors.AppError
	require.ErrorAs(t, valErr, &appErr)
	assert.Contains(t, appErr.Message, "expired")
}

func TestProfile_Success(t *testing.T) {
	svc, deps := newTestService(t)
	token := issueTestToken(t, svc, deps, "user-1")

	user := &domain.User{ID: "user-1", Phone: testPhone, FirstName: "Sara"}
	deps.sessionRepo.On("GetActive", mock.Anything, "user-1", hashToken(token), mock.AnythingOfType("time.Time")).
		Return(&domain.Session{ID: 1, UserID: "user-1"}, nil)
	deps.userRepo.On("GetByID", mock.Anything, "user-1").Return(user, nil)

	got, err := svc.Profile(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.ID)
	assert.Equal(t, testPhone, got.Phone)
}

func TestProfile_UserMissing(t *testing.T) {
	svc, deps := newTestService(t)
	token := issueTestToken(t, svc, deps, "user-1")

	deps.sessionRepo.On("GetActive", mock.Anything, "user-1", hashToken(token), mock.AnythingOfType("time.Time")).
		Return(&domain.Session{ID: 1, UserID: "user-1"}, nil)
	deps.userRepo.On("GetByID", mock.Anything, "user-1").Return(nil, apperrors.ErrNotFound)

	got, err := svc.Profile(context.Background(), token)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProfile_TamperedToken(t *testing.T) {
	svc, deps := newTestService(t)
	token := issueTestToken(t, svc, deps, "user-1")

	tampered := token[:len(token)-2] + "xx"

	got, err := svc.Profile(context.Background(), tampered)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	deps.userRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestProfile_MalformedPayload(t *testing.T) {
	svc, _ := newTestService(t)

	// A validly signed token with an empty identity is a payload defect, not
	// a credential failure.
	token, _, err := newTestTokenManager(720 * time.Hour).Issue("", testPhone)
	require.NoError(t, err)

	got, err := svc.Profile(context.Background(), token)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestUpdateProfile_Success(t *testing.T) {
	svc, deps := newTestService(t)
	token := issueTestToken(t, svc, deps, "user-1")

	user := &domain.User{ID: "user-1", Phone: testPhone}
	deps.sessionRepo.On("GetActive", mock.Anything, "user-1", hashToken(token), mock.AnythingOfType("time.Time")).
		Return(&domain.Session{ID: 1, UserID: "user-1"}, nil)
	deps.userRepo.On("GetByID", mock.Anything, "user-1").Return(user, nil)
	deps.userRepo.On("Update", mock.Anything, user).Return(nil)

	got, err := svc.UpdateProfile(context.Background(), token, UpdateProfileInput{
		FirstName: strPtr("Sara"),
		LastName:  strPtr("Ahmadi"),
		Email:     strPtr("sara@example.com"),
		BirthDate: strPtr("1375/01/15"),
	})

	require.NoError(t, err)
	assert.Equal(t, "Sara", got.FirstName)
	assert.Equal(t, "Ahmadi", got.LastName)
	assert.Equal(t, "sara@example.com", got.Email)
	assert.Equal(t, "1375/01/15", got.BirthDate)
	assert.Equal(t, testPhone, got.Phone, "phone is immutable")
}

func TestSessions_Success(t *testing.T) {
	svc, deps := newTestService(t)
	token := issueTestToken(t, svc, deps, "user-1")

	deps.sessionRepo.On("GetActive", mock.Anything, "user-1", hashToken(token), mock.AnythingOfType("time.Time")).
		Return(&domain.Session{ID: 1, UserID: "user-1"}, nil)
	deps.sessionRepo.On("ListActiveByUser", mock.Anything, "user-1", mock.AnythingOfType("time.Time")).
		Return([]domain.Session{
			{ID: 2, UserID: "user-1", IPAddress: "10.0.0.2"},
			{ID: 1, UserID: "user-1", IPAddress: "10.0.0.1"},
		}, nil)

	sessions, err := svc.Sessions(context.Background(), token)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestLogout_Success(t *testing.T) {
	svc, deps := newTestService(t)
	token := issueTestToken(t, svc, deps, "user-1")

	deps.sessionRepo.On("GetActive", mock.Anything, "user-1", hashToken(token), mock.AnythingOfType("time.Time")).
		Return(&domain.Session{ID: 1, UserID: "user-1"}, nil)
	deps.sessionRepo.On("Revoke", mock.Anything, hashToken(token), mock.AnythingOfType("time.Time")).Return(nil)
	deps.publisher.On("PublishSessionRevoked", mock.Anything, "user-1", mock.AnythingOfType("time.Time")).Return(nil)

	err := svc.Logout(context.Background(), token)
	assert.NoError(t, err)

	deps.sessionRepo.AssertExpectations(t)
	deps.publisher.AssertExpectations(t)
}
