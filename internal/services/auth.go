package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"task-platform/backend/internal/clock"
	"task-platform/backend/internal/models"
	"task-platform/backend/internal/repositories"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgInvalidToken       = "Invalid or expired token"
	msgInvalidRefresh     = "Invalid or expired refresh token"
)

// TokenDenylist records revoked access tokens until they would have expired
// anyway.
type TokenDenylist interface {
	Deny(ctx context.Context, tokenID string, ttl time.Duration) error
	IsDenied(ctx context.Context, tokenID string) (bool, error)
}

type AccessClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type RegisterInput struct {
	Name                 string `json:"name" validate:"required,notblank,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=6"`
	PasswordConfirmation string `json:"password_confirmation" validate:"eqfield=Password"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Registration is the outcome of a sign-up. Ticket carries the raw
// verification token and is only meant to be shown outside production.
type Registration struct {
	User   *models.User
	Ticket *VerificationTicket
}

type Session struct {
	User   *models.User
	Tokens *AuthTokens
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*Registration, error)
	Authenticate(ctx context.Context, input LoginInput) (*Session, error)
	IssueTokens(ctx context.Context, user *models.User) (*AuthTokens, error)
	CurrentUser(ctx context.Context, accessToken string) (*models.User, error)
	Invalidate(ctx context.Context, accessToken string) error
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
}

type AuthConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BCryptCost int
}

type AuthServiceImpl struct {
	db            *gorm.DB
	users         repositories.UserRepository
	refreshTokens repositories.RefreshTokenRepository
	verification  VerificationService
	denylist      TokenDenylist
	validator     *Validator
	clock         clock.Clock
	logger        *slog.Logger
	config        AuthConfig
}

func NewAuthService(db *gorm.DB, cfg AuthConfig, verification VerificationService, denylist TokenDenylist, clk clock.Clock, logger *slog.Logger) *AuthServiceImpl {
	if cfg.BCryptCost == 0 {
		cfg.BCryptCost = bcrypt.DefaultCost
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &AuthServiceImpl{
		db:            db,
		users:         repositories.NewUserRepository(db),
		refreshTokens: repositories.NewRefreshTokenRepository(db),
		verification:  verification,
		denylist:      denylist,
		validator:     NewValidator(),
		clock:         clk,
		logger:        logger,
		config:        cfg,
	}
}

func VerifyPassword(hashedPassword, plainPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword))
	return err == nil
}

func (s *AuthServiceImpl) Register(ctx context.Context, input RegisterInput) (*Registration, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}

	exists, err := s.users.EmailExists(ctx, input.Email)
	if err != nil {
		return nil, Unexpected("Registration failed", err)
	}
	if exists {
		return nil, FieldError("email", "The email has already been taken.")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.config.BCryptCost)
	if err != nil {
		return nil, Unexpected("Registration failed", err)
	}

	now := s.clock.Now()
	user := &models.User{
		Name:      input.Name,
		Email:     input.Email,
		Password:  string(hashed),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, Unexpected("Registration failed", err)
	}

	ticket, err := s.verification.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID.String()))
	return &Registration{User: user, Ticket: ticket}, nil
}

// Authenticate checks credentials and issues a token pair. Unknown emails and wrong
// passwords fail identically.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, input LoginInput) (*Session, error) {
	input.Email = normalizeEmail(input.Email)
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, Unauthenticated(msgInvalidCredentials)
		}
		return nil, Unexpected("Login failed", err)
	}
	if !VerifyPassword(user.Password, input.Password) {
		s.logger.Info("login rejected", slog.String("user_id", user.ID.String()))
		return nil, Unauthenticated(msgInvalidCredentials)
	}
	if !user.HasVerifiedEmail() {
		return nil, ErrUnverified
	}

	tokens, err := s.issueTokens(ctx, s.refreshTokens, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", slog.String("user_id", user.ID.String()))
	return &Session{User: user, Tokens: tokens}, nil
}

// CurrentUser resolves a bearer access token to its user.
func (s *AuthServiceImpl) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.parseAccessToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	userID, err := uuid.FromString(claims.UserID)
	if err != nil {
		return nil, Unauthenticated(msgInvalidToken)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, Unauthenticated(msgInvalidToken)
		}
		return nil, Unexpected("Failed to load user", err)
	}
	return user, nil
}

// Invalidate revokes the access token and every refresh token of its user.
func (s *AuthServiceImpl) Invalidate(ctx context.Context, accessToken string) error {
	claims, err := s.parseAccessToken(ctx, accessToken)
	if err != nil {
		return err
	}

	ttl := claims.ExpiresAt.Time.Sub(s.clock.Now())
	if s.denylist != nil {
		if err := s.denylist.Deny(ctx, claims.ID, ttl); err != nil {
			s.logger.Warn("token revocation not shared", slog.String("user_id", claims.UserID), slog.Any("error", err))
		}
	}

	if userID, err := uuid.FromString(claims.UserID); err == nil {
		if err := s.refreshTokens.DeleteForUser(ctx, userID); err != nil {
			return Unexpected("Failed to logout", err)
		}
	}

	s.logger.Info("user logged out", slog.String("user_id", claims.UserID))
	return nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// consumed whether or not the user still exists.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	token, err := uuid.FromString(strings.TrimSpace(refreshToken))
	if err != nil {
		return nil, Unauthenticated(msgInvalidRefresh)
	}

	var session *Session
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		refreshTokens := repositories.NewRefreshTokenRepository(tx)

		stored, err := refreshTokens.Consume(ctx, token, s.clock.Now())
		if err != nil {
			return lookupUnauthenticated(err, msgInvalidRefresh)
		}

		user, err := s.users.WithTx(tx).FindByID(ctx, stored.UserID)
		if err != nil {
			return lookupUnauthenticated(err, msgInvalidRefresh)
		}

		tokens, err := s.issueTokens(ctx, refreshTokens, user)
		if err != nil {
			return err
		}
		session = &Session{User: user, Tokens: tokens}
		return nil
	})
	if err != nil {
		return nil, asServiceError(err, "Failed to refresh token")
	}
	return session, nil
}

// IssueTokens signs an access token and stores a new refresh token for user.
func (s *AuthServiceImpl) IssueTokens(ctx context.Context, user *models.User) (*AuthTokens, error) {
	return s.issueTokens(ctx, s.refreshTokens, user)
}

func (s *AuthServiceImpl) issueTokens(ctx context.Context, refreshTokens repositories.RefreshTokenRepository, user *models.User) (*AuthTokens, error) {
	now := s.clock.Now()

	tokenID, err := uuid.NewV4()
	if err != nil {
		return nil, Unexpected("Failed to generate token", err)
	}
	claims := AccessClaims{
		UserID: user.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID.String(),
			Issuer:    s.config.Issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessTTL)),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return nil, Unexpected("Failed to generate token", err)
	}

	refreshTokenUUID, err := uuid.NewV4()
	if err != nil {
		return nil, Unexpected("Failed to generate token", err)
	}
	record := models.RefreshToken{
		UserID:       user.ID,
		RefreshToken: refreshTokenUUID,
		ExpiresAt:    now.Add(s.config.RefreshTTL),
		CreatedAt:    now,
	}
	if err := refreshTokens.Create(ctx, &record); err != nil {
		return nil, Unexpected("Failed to generate token", err)
	}

	return &AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenUUID.String(),
		TokenType:    "bearer",
		ExpiresIn:    int64(s.config.AccessTTL / time.Second),
	}, nil
}

// parseAccessToken validates signature, issuer and expiry and rejects
// revoked tokens. A denylist that cannot be reached does not block
// authentication.
func (s *AuthServiceImpl) parseAccessToken(ctx context.Context, raw string) (*AccessClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrUnauthenticated
	}

	var claims AccessClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil || claims.ID == "" {
		return nil, Unauthenticated(msgInvalidToken)
	}

	if s.denylist != nil {
		denied, err := s.denylist.IsDenied(ctx, claims.ID)
		if err != nil {
			s.logger.Warn("token denylist unavailable", slog.Any("error", err))
		} else if denied {
			return nil, Unauthenticated(msgInvalidToken)
		}
	}
	return &claims, nil
}

func lookupUnauthenticated(err error, message string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return Unauthenticated(message)
	}
	return Unexpected(message, err)
}
