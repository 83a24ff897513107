package models

import "time"

// OneTimePasscode is an emailed numeric code used for passwordless login.
// A user may hold several outstanding codes at once.
type OneTimePasscode struct {
	ID        uint64     `gorm:"primarykey" json:"id"`
	UserID    uint64     `gorm:"not null;index" json:"user_id"`
	Code      string     `gorm:"type:varchar(6);not null" json:"-"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
	Attempts  int        `gorm:"not null;default:0" json:"attempts"`

	// Relations
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// IsValidAt reports whether the passcode can still be redeemed at now.
func (p *OneTimePasscode) IsValidAt(now time.Time, maxAttempts int) bool {
	return p.UsedAt == nil && now.Before(p.ExpiresAt) && p.Attempts < maxAttempts
}

// IsExpiredAt reports whether the passcode lifetime has elapsed at now.
func (p *OneTimePasscode) IsExpiredAt(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}
