package storage

import (
	"errors"

	"github.com/example/phoneproof/internal/models"
)

// Sentinel errors returned by Store implementations. Callers branch on these
// with errors.Is; anything else coming out of a Store is an infrastructure
// fault.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// Store defines the interface for storage operations
type Store interface {
	// User operations
	CreateUser(user *models.User) (*models.User, error)
	GetUser(id uint) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	UpdateUser(user *models.User) error

	// Verification operations. The three "latest" lookups order by
	// created_at descending with id descending as the tie-break, and they
	// deliberately stay separate: starting filters by phone, verifying looks
	// at the newest attempt of any state, resending only considers
	// unverified ones.
	CreateVerification(v *models.PhoneVerification) (*models.PhoneVerification, error)
	UpdateVerification(v *models.PhoneVerification) error
	GetLatestVerification(userID uint) (*models.PhoneVerification, error)
	GetLatestVerificationForPhone(userID uint, phone string) (*models.PhoneVerification, error)
	GetLatestUnverifiedVerification(userID uint) (*models.PhoneVerification, error)

	// Counts for the health endpoints.
	CountUsers() (int64, error)
	CountVerifications() (int64, error)
}
