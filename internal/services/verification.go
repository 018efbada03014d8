package services

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"task-platform/backend/internal/clock"
	"task-platform/backend/internal/models"
	"task-platform/backend/internal/repositories"

	"gorm.io/gorm"
)

const msgInvalidVerificationToken = "Invalid or expired verification token"

// VerificationNotifier delivers the verification link to the user.
type VerificationNotifier interface {
	NotifyVerification(ctx context.Context, email, verificationURL string) error
}

type VerificationTicket struct {
	Token     string    `json:"verification_token"`
	URL       string    `json:"verification_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type VerifyEmailInput struct {
	Email string `json:"email" form:"email" validate:"required,email"`
	Token string `json:"token" form:"token" validate:"required"`
}

type ResendVerificationInput struct {
	Email string `json:"email" validate:"required,email"`
}

type VerificationService interface {
	Issue(ctx context.Context, user *models.User) (*VerificationTicket, error)
	Verify(ctx context.Context, input VerifyEmailInput) (*models.User, error)
	Resend(ctx context.Context, input ResendVerificationInput) (*VerificationTicket, error)
}

type VerificationServiceImpl struct {
	db        *gorm.DB
	users     repositories.UserRepository
	tokens    repositories.VerificationTokenRepository
	hasher    *TokenHasher
	notifier  VerificationNotifier
	validator *Validator
	clock     clock.Clock
	logger    *slog.Logger
	baseURL   string
	ttl       time.Duration
}

type VerificationConfig struct {
	Secret  string
	BaseURL string
	TTL     time.Duration
}

func NewVerificationService(db *gorm.DB, cfg VerificationConfig, notifier VerificationNotifier, clk clock.Clock, logger *slog.Logger) *VerificationServiceImpl {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &VerificationServiceImpl{
		db:        db,
		users:     repositories.NewUserRepository(db),
		tokens:    repositories.NewVerificationTokenRepository(db),
		hasher:    NewTokenHasher(cfg.Secret),
		notifier:  notifier,
		validator: NewValidator(),
		clock:     clk,
		logger:    logger,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		ttl:       ttl,
	}
}

// Issue replaces any pending token for the user's email with a new one.
func (s *VerificationServiceImpl) Issue(ctx context.Context, user *models.User) (*VerificationTicket, error) {
	token, err := newOpaqueToken()
	if err != nil {
		return nil, Unexpected("Failed to issue verification token", err)
	}

	now := s.clock.Now()
	record := models.VerificationToken{
		Email:     user.Email,
		TokenHash: s.hasher.Hash(token),
		CreatedAt: now,
	}
	if err := s.tokens.Upsert(ctx, &record); err != nil {
		return nil, Unexpected("Failed to issue verification token", err)
	}

	ticket := &VerificationTicket{
		Token:     token,
		URL:       s.verificationURL(user.Email, token),
		ExpiresAt: now.Add(s.ttl),
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyVerification(ctx, user.Email, ticket.URL); err != nil {
			s.logger.Warn("verification notification not queued",
				slog.String("user_id", user.ID.String()),
				slog.Any("error", err))
		}
	}
	return ticket, nil
}

// Verify consumes the token. A token verifies at most once.
func (s *VerificationServiceImpl) Verify(ctx context.Context, input VerifyEmailInput) (*models.User, error) {
	input.Email = normalizeEmail(input.Email)
	input.Token = strings.TrimSpace(input.Token)
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}

	var verified *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()

		consumed, err := s.tokens.WithTx(tx).Consume(ctx, input.Email, s.hasher.Hash(input.Token), now.Add(-s.ttl))
		if err != nil {
			return Unexpected("Email verification failed", err)
		}
		if !consumed {
			return NotFound(msgInvalidVerificationToken)
		}

		users := s.users.WithTx(tx)
		user, err := users.FindByEmail(ctx, input.Email)
		if err != nil {
			return lookupError(err, "User not found")
		}
		if !user.HasVerifiedEmail() {
			if err := users.MarkEmailVerified(ctx, user.ID, now); err != nil {
				return Unexpected("Email verification failed", err)
			}
			user.EmailVerifiedAt = &now
		}
		verified = user
		return nil
	})
	if err != nil {
		return nil, asServiceError(err, "Email verification failed")
	}

	s.logger.Info("email verified", slog.String("user_id", verified.ID.String()))
	return verified, nil
}

func (s *VerificationServiceImpl) Resend(ctx context.Context, input ResendVerificationInput) (*VerificationTicket, error) {
	input.Email = normalizeEmail(input.Email)
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, FieldError("email", "The selected email is invalid.")
		}
		return nil, Unexpected("Failed to send verification email", err)
	}
	if user.HasVerifiedEmail() {
		return nil, Conflict("Email is already verified")
	}

	return s.Issue(ctx, user)
}

func (s *VerificationServiceImpl) verificationURL(email, token string) string {
	query := url.Values{}
	query.Set("token", token)
	query.Set("email", email)
	return s.baseURL + "/api/auth/verify-email?" + query.Encode()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
