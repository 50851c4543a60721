package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/opsmind/auth/internal/models"
)

// at most one unused challenge per account and purpose
const liveOTPIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_email_otps_live
ON email_otps (user_id, purpose) WHERE is_used = false`

func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	if err := db.WithContext(ctx).Exec(liveOTPIndex).Error; err != nil {
		return fmt.Errorf("create live otp index: %w", err)
	}
	return nil
}
