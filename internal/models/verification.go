package models

import (
	"time"
)

// ExternalCode is stored as the verification code when a managed provider
// (Twilio Verify) generates and checks the code itself. The real code never
// touches this system in that mode.
const ExternalCode = "external"

// PhoneVerification is one code-delivery attempt for a (user, phone) pair.
// Rows are never deleted: verified and expired attempts stay behind as
// history, and expiry is always computed from ExpiresAt at read time.
type PhoneVerification struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"user_id" gorm:"index;not null"`
	PhoneNumber string    `json:"phone_number" gorm:"not null"` // E.164
	Code        string    `json:"-" gorm:"column:verification_code;not null"`
	ProviderRef string    `json:"provider_reference,omitempty" gorm:"column:provider_reference"`
	Verified    bool      `json:"verified" gorm:"default:false"`
	ExpiresAt   time.Time `json:"expires_at" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsExpired reports whether the attempt's code window has closed.
func (v *PhoneVerification) IsExpired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}

// ProviderManaged reports whether a managed provider owns this attempt's
// code. When true, checks must go back to the provider; local comparison
// would only ever see the ExternalCode placeholder.
func (v *PhoneVerification) ProviderManaged() bool {
	return v.ProviderRef != ""
}
