package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/satrapit/db-conn/internal/auth"
	"github.com/satrapit/db-conn/internal/domain"
	"github.com/satrapit/db-conn/internal/event"
	"github.com/satrapit/db-conn/internal/ratelimit"
	"github.com/satrapit/db-conn/internal/repository"
	apperrors "github.com/satrapit/db-conn/pkg/errors"
)

// bcryptCost is the cost factor for hashing one-time codes.
const bcryptCost = 10

// codeSpace bounds the numeric code space: codes are six digits, zero-padded.
const codeSpace = 1000000

// Config holds the tunable behavior of the auth service.
type Config struct {
	// ResendWindow is how long an unconsumed code suppresses issuing a new one.
	ResendWindow time.Duration

	// DebugExpose echoes freshly generated plaintext codes in responses.
	// Must never be enabled in production; config loading enforces that.
	DebugExpose bool
}

// AuthService implements phone-number OTP authentication: code issuance and
// verification, session token minting, and token validation.
type AuthService struct {
	userRepo    repository.UserRepository
	otpRepo     repository.OTPRepository
	sessionRepo repository.SessionRepository
	tokens      *auth.TokenManager
	limiter     *ratelimit.Limiter
	publisher   event.Publisher
	logger      *slog.Logger
	cfg         Config

	// now is injectable for expiry and rate-window tests.
	now func() time.Time
}

// NewAuthService creates a new auth service.
func NewAuthService(
	userRepo repository.UserRepository,
	otpRepo repository.OTPRepository,
	sessionRepo repository.SessionRepository,
	tokens *auth.TokenManager,
	limiter *ratelimit.Limiter,
	publisher event.Publisher,
	logger *slog.Logger,
	cfg Config,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		otpRepo:     otpRepo,
		sessionRepo: sessionRepo,
		tokens:      tokens,
		limiter:     limiter,
		publisher:   publisher,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// --- Input/Output types ---

// ClientInfo carries the best-effort request metadata recorded on sessions
// and used for abuse throttling. Advisory only; never trusted for identity.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// RequestCodeResult is the outcome of a code issuance request.
type RequestCodeResult struct {
	// Resent is true when an unconsumed code inside the resend window already
	// existed, so no new code was generated.
	Resent bool

	// DebugCode carries the plaintext code in debug mode, and only for
	// freshly generated codes; a resent code's plaintext is unrecoverable
	// from its hash.
	DebugCode string
}

// UpdateProfileInput holds the parameters for updating a user's profile.
// The phone number is the account identity and cannot be changed here.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	BirthDate *string
}

// --- Code issuance ---

// RequestCode issues a one-time code for the phone number. An unconsumed code
// younger than the resend window makes the call a no-op success: the caller is
// told the code was resent and no new row is created.
func (s *AuthService) RequestCode(ctx context.Context, phone string, client ClientInfo) (*RequestCodeResult, error) {
	if !domain.ValidPhone(phone) {
		return nil, apperrors.InvalidInput("invalid phone number")
	}

	if !s.limiter.Allow(ctx, ratelimit.PhoneKey(phone)) || !s.limiter.Allow(ctx, ratelimit.IPKey(client.IP)) {
		return nil, apperrors.TooManyRequests("too many code requests, try again later")
	}

	now := s.now().UTC()

	latest, err := s.otpRepo.LatestByPhone(ctx, phone)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("look up active code: %w", err)
	}

	if latest != nil && !latest.Consumed() && now.Sub(latest.CreatedAt) < s.cfg.ResendWindow {
		s.logger.InfoContext(ctx, "code request inside resend window, no new code issued",
			slog.String("phone", phone),
		)
		return &RequestCodeResult{Resent: true}, nil
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash code: %w", err)
	}

	if _, err := s.otpRepo.Create(ctx, phone, string(codeHash), now); err != nil {
		return nil, fmt.Errorf("store code: %w", err)
	}

	// The SMS gateway consumer picks this up and delivers the code. Publish
	// failures are logged, never surfaced: the code is already issued.
	if err := s.publisher.PublishOTPRequested(ctx, phone, now); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish otp.requested event",
			slog.String("phone", phone),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "one-time code issued",
		slog.String("phone", phone),
	)

	result := &RequestCodeResult{}
	if s.cfg.DebugExpose {
		result.DebugCode = code
	}

	return result, nil
}

// --- Code verification ---

// VerifyCode checks the submitted code against the latest stored hash for the
// phone number, consumes it, provisions the user on first authentication, and
// mints a session token. Consumption happens before token issuance and uses
// compare-and-swap semantics so a code can never be spent twice.
func (s *AuthService) VerifyCode(ctx context.Context, phone, code string, client ClientInfo) (string, *domain.User, error) {
	if phone == "" || code == "" {
		return "", nil, apperrors.InvalidInput("phone and code are required")
	}

	now := s.now().UTC()

	latest, err := s.otpRepo.LatestByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", nil, apperrors.Unauthorized("invalid or expired code")
		}
		return "", nil, fmt.Errorf("look up code: %w", err)
	}

	if latest.Consumed() {
		return "", nil, apperrors.Unauthorized("invalid or expired code")
	}

	// bcrypt comparison is constant-time over the hash.
	if err := bcrypt.CompareHashAndPassword([]byte(latest.CodeHash), []byte(code)); err != nil {
		return "", nil, apperrors.Unauthorized("invalid or expired code")
	}

	if err := s.otpRepo.Consume(ctx, latest.ID, now); err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			// A concurrent verification spent the code first.
			return "", nil, apperrors.Unauthorized("invalid or expired code")
		}
		return "", nil, fmt.Errorf("consume code: %w", err)
	}

	user, err := s.resolveUser(ctx, phone, now)
	if err != nil {
		return "", nil, err
	}

	token, err := s.issueSession(ctx, user, client, now)
	if err != nil {
		return "", nil, err
	}

	s.logger.InfoContext(ctx, "code verified, session issued",
		slog.String("user_id", user.ID),
		slog.String("phone", phone),
	)

	return token, user, nil
}

// resolveUser looks up the account for the phone number, creating a blank
// profile on first successful authentication.
func (s *AuthService) resolveUser(ctx context.Context, phone string, now time.Time) (*domain.User, error) {
	user, err := s.userRepo.GetByPhone(ctx, phone)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("look up user: %w", err)
	}

	user = &domain.User{
		ID:        uuid.New().String(),
		Phone:     phone,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.publisher.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user provisioned on first authentication",
		slog.String("user_id", user.ID),
		slog.String("phone", phone),
	)

	return user, nil
}

// issueSession mints a signed token for the user and records its hash for
// later revocation checks.
func (s *AuthService) issueSession(ctx context.Context, user *domain.User, client ClientInfo, now time.Time) (string, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Phone)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	session := &domain.Session{
		UserID:    user.ID,
		TokenHash: hashToken(token),
		IPAddress: client.IP,
		UserAgent: client.UserAgent,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}

	return token, nil
}

// --- Token validation ---

// authenticate verifies the bearer token end to end: signature, explicit
// expiry, payload shape, and the server-side revocation record.
func (s *AuthService) authenticate(ctx context.Context, rawToken string) (*auth.Claims, error) {
	if rawToken == "" {
		return nil, apperrors.Unauthorized("authorization token required")
	}

	claims, err := s.tokens.Verify(rawToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, apperrors.Unauthorized("token has expired")
		}
		return nil, apperrors.Unauthorized("invalid token")
	}

	if claims.Data.ID == "" {
		return nil, apperrors.InvalidInput("malformed token payload")
	}

	_, err = s.sessionRepo.GetActive(ctx, claims.Data.ID, hashToken(rawToken), s.now().UTC())
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("token is not valid or has been revoked")
		}
		return nil, fmt.Errorf("check session: %w", err)
	}

	return claims, nil
}

// ValidateToken reports whether the bearer token is live. It is the
// lightweight liveness check: no profile data is loaded.
func (s *AuthService) ValidateToken(ctx context.Context, rawToken string) error {
	_, err := s.authenticate(ctx, rawToken)
	return err
}

// Profile resolves the bearer token to the full user record.
func (s *AuthService) Profile(ctx context.Context, rawToken string) (*domain.User, error) {
	claims, err := s.authenticate(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, claims.Data.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", claims.Data.ID)
		}
		return nil, fmt.Errorf("get user profile: %w", err)
	}

	return user, nil
}

// UpdateProfile updates the authenticated user's profile fields.
func (s *AuthService) UpdateProfile(ctx context.Context, rawToken string, input UpdateProfileInput) (*domain.User, error) {
	claims, err := s.authenticate(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, claims.Data.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", claims.Data.ID)
		}
		return nil, fmt.Errorf("get user for update: %w", err)
	}

	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.Email != nil {
		user.Email = *input.Email
	}
	if input.BirthDate != nil {
		user.BirthDate = *input.BirthDate
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.InfoContext(ctx, "user profile updated",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// Sessions returns the caller's live sessions, newest first. Token hashes are
// stripped by the domain type's JSON mapping; only client metadata is exposed.
func (s *AuthService) Sessions(ctx context.Context, rawToken string) ([]domain.Session, error) {
	claims, err := s.authenticate(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	sessions, err := s.sessionRepo.ListActiveByUser(ctx, claims.Data.ID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	return sessions, nil
}

// Logout revokes the presented session token.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	claims, err := s.authenticate(ctx, rawToken)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	if err := s.sessionRepo.Revoke(ctx, hashToken(rawToken), now); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	if err := s.publisher.PublishSessionRevoked(ctx, claims.Data.ID, now); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish session.revoked event",
			slog.String("user_id", claims.Data.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "session revoked",
		slog.String("user_id", claims.Data.ID),
	)

	return nil
}

// --- Helpers ---

// generateCode returns a cryptographically random six-digit code, zero-padded.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpace))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// hashToken returns the SHA-256 hex digest of the signed token string.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
