package repository

import (
	"time"

	"github.com/yukikurage/taskscope/internal/models"
	"gorm.io/gorm"
)

// GormPasscodeRepository is a GORM implementation of PasscodeRepository
type GormPasscodeRepository struct {
	db *gorm.DB
}

// NewPasscodeRepository creates a new PasscodeRepository
func NewPasscodeRepository(db *gorm.DB) PasscodeRepository {
	return &GormPasscodeRepository{db: db}
}

// Create stores a freshly issued passcode
func (r *GormPasscodeRepository) Create(passcode *models.OneTimePasscode) error {
	return r.db.Omit("User").Create(passcode).Error
}

// FindLatest finds the most recently issued passcode of a user with the given code
func (r *GormPasscodeRepository) FindLatest(userID uint64, code string) (*models.OneTimePasscode, error) {
	var passcode models.OneTimePasscode
	err := r.db.
		Where("user_id = ? AND code = ?", userID, code).
		Order("created_at DESC").
		Order("id DESC").
		First(&passcode).Error
	if err != nil {
		return nil, err
	}
	return &passcode, nil
}

// RecordFailedAttempt bumps the attempt counter of every live passcode of a user
func (r *GormPasscodeRepository) RecordFailedAttempt(userID uint64, now time.Time) error {
	return r.db.Model(&models.OneTimePasscode{}).
		Where("user_id = ? AND used_at IS NULL AND expires_at > ?", userID, now).
		Update("attempts", gorm.Expr("attempts + ?", 1)).Error
}

// Consume marks a passcode used with a single conditional update, so two
// concurrent verifications of the same code cannot both succeed.
func (r *GormPasscodeRepository) Consume(id uint64, now time.Time, maxAttempts int) (bool, error) {
	result := r.db.Model(&models.OneTimePasscode{}).
		Where("id = ? AND used_at IS NULL AND expires_at > ? AND attempts < ?", id, now, maxAttempts).
		Update("used_at", now)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
