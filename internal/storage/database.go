package storage

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/example/phoneproof/internal/models"
)

// DatabaseStore persists users and verification attempts in PostgreSQL
// through GORM.
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore wraps an already-connected GORM handle.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// User operations

func (s *DatabaseStore) CreateUser(user *models.User) (*models.User, error) {
	// Read-then-write uniqueness check; the unique index on email backs it
	// up, a lost race just surfaces as a generic create failure.
	var existing models.User
	err := s.db.Where("email = ?", user.Email).First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateEmail
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email uniqueness: %w", err)
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *DatabaseStore) GetUser(id uint) (*models.User, error) {
	var user models.User
	err := s.db.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

func (s *DatabaseStore) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user by email: %w", err)
	}
	return &user, nil
}

func (s *DatabaseStore) UpdateUser(user *models.User) error {
	// Same read-then-check as CreateUser, minus the user's own row, so a
	// rename onto a taken email surfaces as the sentinel rather than a
	// driver-specific constraint error.
	var existing models.User
	err := s.db.Where("email = ? AND id <> ?", user.Email, user.ID).First(&existing).Error
	if err == nil {
		return ErrDuplicateEmail
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check email uniqueness: %w", err)
	}

	// Save writes every field, which is what updates here need: clearing the
	// phone column means writing NULL, and Updates-with-struct would skip it.
	if err := s.db.Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// Verification operations

func (s *DatabaseStore) CreateVerification(v *models.PhoneVerification) (*models.PhoneVerification, error) {
	if err := s.db.Create(v).Error; err != nil {
		return nil, fmt.Errorf("failed to create verification: %w", err)
	}
	return v, nil
}

func (s *DatabaseStore) UpdateVerification(v *models.PhoneVerification) error {
	// Full-field save on purpose: resending rewrites created_at to re-arm
	// the cooldown, and partial updates would leave it stale.
	if err := s.db.Save(v).Error; err != nil {
		return fmt.Errorf("failed to update verification: %w", err)
	}
	return nil
}

func (s *DatabaseStore) GetLatestVerification(userID uint) (*models.PhoneVerification, error) {
	var v models.PhoneVerification
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest verification: %w", err)
	}
	return &v, nil
}

func (s *DatabaseStore) GetLatestVerificationForPhone(userID uint, phone string) (*models.PhoneVerification, error) {
	var v models.PhoneVerification
	err := s.db.Where("user_id = ? AND phone_number = ?", userID, phone).
		Order("created_at DESC, id DESC").
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest verification for phone: %w", err)
	}
	return &v, nil
}

func (s *DatabaseStore) GetLatestUnverifiedVerification(userID uint) (*models.PhoneVerification, error) {
	var v models.PhoneVerification
	err := s.db.Where("user_id = ? AND verified = ?", userID, false).
		Order("created_at DESC, id DESC").
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest unverified verification: %w", err)
	}
	return &v, nil
}

// Counts

func (s *DatabaseStore) CountUsers() (int64, error) {
	var n int64
	if err := s.db.Model(&models.User{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (s *DatabaseStore) CountVerifications() (int64, error) {
	var n int64
	if err := s.db.Model(&models.PhoneVerification{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count verifications: %w", err)
	}
	return n, nil
}
