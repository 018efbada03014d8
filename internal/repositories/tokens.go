package repositories

import (
	"context"
	"time"

	"task-platform/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VerificationTokenRepository interface {
	Upsert(ctx context.Context, token *models.VerificationToken) error
	Consume(ctx context.Context, email, tokenHash string, issuedAfter time.Time) (bool, error)
	DeleteByEmail(ctx context.Context, email string) error
	DeleteIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	WithTx(tx *gorm.DB) VerificationTokenRepository
}

type GormVerificationTokenRepository struct {
	db *gorm.DB
}

func NewVerificationTokenRepository(db *gorm.DB) *GormVerificationTokenRepository {
	return &GormVerificationTokenRepository{db: db}
}

func (r *GormVerificationTokenRepository) WithTx(tx *gorm.DB) VerificationTokenRepository {
	return &GormVerificationTokenRepository{db: tx}
}

// Upsert keeps a single pending token per email; the latest write wins.
func (r *GormVerificationTokenRepository) Upsert(ctx context.Context, token *models.VerificationToken) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"token_hash", "created_at"}),
	}).Create(token).Error
}

// Consume deletes the matching unexpired token and reports whether one was
// found. Only one concurrent caller can consume a given token.
func (r *GormVerificationTokenRepository) Consume(ctx context.Context, email, tokenHash string, issuedAfter time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("email = ? AND token_hash = ? AND created_at > ?", email, tokenHash, issuedAfter).
		Delete(&models.VerificationToken{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *GormVerificationTokenRepository) DeleteByEmail(ctx context.Context, email string) error {
	return r.db.WithContext(ctx).Where("email = ?", email).Delete(&models.VerificationToken{}).Error
}

func (r *GormVerificationTokenRepository) DeleteIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at <= ?", cutoff).Delete(&models.VerificationToken{})
	return result.RowsAffected, result.Error
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	Consume(ctx context.Context, token uuid.UUID, now time.Time) (*models.RefreshToken, error)
	DeleteForUser(ctx context.Context, userID uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type GormRefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *GormRefreshTokenRepository {
	return &GormRefreshTokenRepository{db: db}
}

func (r *GormRefreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// Consume removes an unexpired refresh token and returns it. Each token can
// be consumed once.
func (r *GormRefreshTokenRepository) Consume(ctx context.Context, token uuid.UUID, now time.Time) (*models.RefreshToken, error) {
	var stored models.RefreshToken
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("refresh_token = ? AND expires_at > ?", token, now).First(&stored).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.RefreshToken{}, "id = ?", stored.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return &stored, nil
}

func (r *GormRefreshTokenRepository) DeleteForUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error
}

func (r *GormRefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.RefreshToken{})
	return result.RowsAffected, result.Error
}
