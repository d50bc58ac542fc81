package models

import (
	"time"
)

// User is an account holder. Accounts are created with an email and a name;
// the phone fields are only ever populated through the verification flow
// (or an explicit admin-style update).
type User struct {
	ID        uint    `json:"id" gorm:"primaryKey"`
	Email     string  `json:"email" gorm:"uniqueIndex;not null"`
	FirstName string  `json:"first_name" gorm:"not null"`
	Phone     *string `json:"phone_number" gorm:"column:phone_number"` // nil until a number is verified or set
	Verified  bool    `json:"phone_verified" gorm:"column:phone_verified;default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasVerifiedPhone reports whether the account already proved ownership of
// the given (normalized) number.
func (u *User) HasVerifiedPhone(phone string) bool {
	return u.Verified && u.Phone != nil && *u.Phone == phone
}
