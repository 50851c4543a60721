package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/opsmind/auth/internal/domain"
	"github.com/opsmind/auth/internal/models"
)

// CreateOTPChallenge invalidates every unused challenge of the account for the
// purpose and stores a fresh one. The account row is locked for the duration,
// so concurrent calls for the same account and purpose serialize and the
// later one wins. The plaintext code is returned once and never stored.
func (r *GormRepo) CreateOTPChallenge(ctx context.Context, userID string, purpose domain.Purpose) (string, *models.EmailOTP, error) {
	code, err := r.Codes.Generate()
	if err != nil {
		return "", nil, err
	}
	digest, err := r.Hasher.Hash(code)
	if err != nil {
		return "", nil, fmt.Errorf("hash otp: %w", err)
	}

	now := r.now()
	rec := &models.EmailOTP{
		UserID:    userID,
		OTPHash:   digest,
		Purpose:   string(purpose),
		ExpiresAt: r.Codes.ExpiryAt(now),
		CreatedAt: now,
	}

	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").Where("id = ?", userID).First(&owner).Error
		if err != nil {
			return notFound(err)
		}
		if err := invalidateOTPs(tx, userID, purpose); err != nil {
			return err
		}
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("insert otp: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return code, rec, nil
}

func invalidateOTPs(db *gorm.DB, userID string, purpose domain.Purpose) error {
	err := db.Model(&models.EmailOTP{}).
		Where("user_id = ? AND purpose = ? AND is_used = ?", userID, string(purpose), false).
		Update("is_used", true).Error
	if err != nil {
		return fmt.Errorf("invalidate otps: %w", err)
	}
	return nil
}

// FindLatestValidOTP never returns a used or expired challenge. A challenge
// is still valid at the exact expiry instant.
func (r *GormRepo) FindLatestValidOTP(ctx context.Context, userID string, purpose domain.Purpose) (*models.EmailOTP, error) {
	var rec models.EmailOTP
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND purpose = ? AND is_used = ? AND expires_at >= ?", userID, string(purpose), false, r.now()).
		Order("created_at DESC").
		First(&rec).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

// MarkOTPUsed consumes a challenge exactly once; a second consumer gets
// domain.ErrOTPAlreadyUsed.
func (r *GormRepo) MarkOTPUsed(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Model(&models.EmailOTP{}).
		Where("id = ? AND is_used = ?", id, false).
		Update("is_used", true)
	if res.Error != nil {
		return fmt.Errorf("mark otp used: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrOTPAlreadyUsed
	}
	return nil
}

// PurgeExpiredOrUsedOTPs deletes dead challenges and returns how many went.
func (r *GormRepo) PurgeExpiredOrUsedOTPs(ctx context.Context) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("is_used = ? OR expires_at < ?", true, r.now()).
		Delete(&models.EmailOTP{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge otps: %w", res.Error)
	}
	return res.RowsAffected, nil
}
