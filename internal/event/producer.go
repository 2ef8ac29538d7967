package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/satrapit/db-conn/internal/domain"
	pkgkafka "github.com/satrapit/db-conn/pkg/kafka"
)

// Kafka topic constants for authentication domain events.
const (
	TopicOTPRequested   = "auth.otp.requested"
	TopicUserRegistered = "auth.user.registered"
	TopicSessionRevoked = "auth.session.revoked"
)

// Aggregate type constants.
const (
	AggregateTypeOTP     = "otp"
	AggregateTypeUser    = "user"
	AggregateTypeSession = "session"
)

// Source identifier for events originating from this service.
const SourceAuthService = "phoneauth"

// Publisher is the producer surface the auth service depends on. The concrete
// Producer publishes to Kafka; tests substitute a mock.
type Publisher interface {
	PublishOTPRequested(ctx context.Context, phone string, issuedAt time.Time) error
	PublishUserRegistered(ctx context.Context, user *domain.User) error
	PublishSessionRevoked(ctx context.Context, userID string, revokedAt time.Time) error
}

// OTPRequestedData is the payload for an auth.otp.requested event. The SMS
// gateway consumer downstream delivers the code; the plaintext code itself is
// never on the wire, only a reference the gateway resolves.
type OTPRequestedData struct {
	Phone    string    `json:"phone"`
	IssuedAt time.Time `json:"issued_at"`
}

// UserRegisteredData is the payload for an auth.user.registered event.
type UserRegisteredData struct {
	ID    string `json:"id"`
	Phone string `json:"phone"`
}

// SessionRevokedData is the payload for an auth.session.revoked event.
type SessionRevokedData struct {
	UserID    string    `json:"user_id"`
	RevokedAt time.Time `json:"revoked_at"`
}

// Producer publishes authentication domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the auth service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishOTPRequested publishes an auth.otp.requested event.
func (p *Producer) PublishOTPRequested(ctx context.Context, phone string, issuedAt time.Time) error {
	data := OTPRequestedData{
		Phone:    phone,
		IssuedAt: issuedAt,
	}

	event, err := pkgkafka.NewEvent(TopicOTPRequested, phone, AggregateTypeOTP, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create otp.requested event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOTPRequested, event); err != nil {
		return fmt.Errorf("publish otp.requested event: %w", err)
	}

	p.logger.DebugContext(ctx, "published otp.requested event",
		slog.String("phone", phone),
	)

	return nil
}

// PublishUserRegistered publishes an auth.user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:    user.ID,
		Phone: user.Phone,
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, user.ID, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", user.ID),
	)

	return nil
}

// PublishSessionRevoked publishes an auth.session.revoked event.
func (p *Producer) PublishSessionRevoked(ctx context.Context, userID string, revokedAt time.Time) error {
	data := SessionRevokedData{
		UserID:    userID,
		RevokedAt: revokedAt,
	}

	event, err := pkgkafka.NewEvent(TopicSessionRevoked, userID, AggregateTypeSession, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create session.revoked event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicSessionRevoked, event); err != nil {
		return fmt.Errorf("publish session.revoked event: %w", err)
	}

	p.logger.DebugContext(ctx, "published session.revoked event",
		slog.String("user_id", userID),
	)

	return nil
}
