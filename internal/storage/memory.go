package storage

import (
	"sync"
	"time"

	"github.com/example/phoneproof/internal/models"
)

// MemoryStore holds all data in memory. It backs automated tests and the
// USE_MEMORY_STORE mode, and behaves like the database store: callers get
// copies, so nothing they hold aliases internal state.
type MemoryStore struct {
	users         map[uint]*models.User
	emailIndex    map[string]uint
	verifications map[uint]*models.PhoneVerification

	// Mutexes for thread safety
	userMu         sync.RWMutex
	verificationMu sync.RWMutex

	// Counters for ID generation
	userCounter         uint
	verificationCounter uint
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[uint]*models.User),
		emailIndex:    make(map[string]uint),
		verifications: make(map[uint]*models.PhoneVerification),
	}
}

func copyUser(u *models.User) *models.User {
	cp := *u
	if u.Phone != nil {
		phone := *u.Phone
		cp.Phone = &phone
	}
	return &cp
}

func copyVerification(v *models.PhoneVerification) *models.PhoneVerification {
	cp := *v
	return &cp
}

// User operations

func (m *MemoryStore) CreateUser(user *models.User) (*models.User, error) {
	m.userMu.Lock()
	defer m.userMu.Unlock()

	if _, taken := m.emailIndex[user.Email]; taken {
		return nil, ErrDuplicateEmail
	}

	m.userCounter++
	now := time.Now()

	stored := copyUser(user)
	stored.ID = m.userCounter
	stored.CreatedAt = now
	stored.UpdatedAt = now

	m.users[stored.ID] = stored
	m.emailIndex[stored.Email] = stored.ID
	return copyUser(stored), nil
}

func (m *MemoryStore) GetUser(id uint) (*models.User, error) {
	m.userMu.RLock()
	defer m.userMu.RUnlock()

	user, exists := m.users[id]
	if !exists {
		return nil, ErrNotFound
	}
	return copyUser(user), nil
}

func (m *MemoryStore) GetUserByEmail(email string) (*models.User, error) {
	m.userMu.RLock()
	defer m.userMu.RUnlock()

	id, exists := m.emailIndex[email]
	if !exists {
		return nil, ErrNotFound
	}
	return copyUser(m.users[id]), nil
}

func (m *MemoryStore) UpdateUser(user *models.User) error {
	m.userMu.Lock()
	defer m.userMu.Unlock()

	current, exists := m.users[user.ID]
	if !exists {
		return ErrNotFound
	}
	if user.Email != current.Email {
		if owner, taken := m.emailIndex[user.Email]; taken && owner != user.ID {
			return ErrDuplicateEmail
		}
		delete(m.emailIndex, current.Email)
		m.emailIndex[user.Email] = user.ID
	}

	stored := copyUser(user)
	stored.CreatedAt = current.CreatedAt
	stored.UpdatedAt = time.Now()
	m.users[user.ID] = stored

	user.UpdatedAt = stored.UpdatedAt
	return nil
}

// Verification operations

func (m *MemoryStore) CreateVerification(v *models.PhoneVerification) (*models.PhoneVerification, error) {
	m.verificationMu.Lock()
	defer m.verificationMu.Unlock()

	m.verificationCounter++

	stored := copyVerification(v)
	stored.ID = m.verificationCounter
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	m.verifications[stored.ID] = stored
	return copyVerification(stored), nil
}

func (m *MemoryStore) UpdateVerification(v *models.PhoneVerification) error {
	m.verificationMu.Lock()
	defer m.verificationMu.Unlock()

	if _, exists := m.verifications[v.ID]; !exists {
		return ErrNotFound
	}
	m.verifications[v.ID] = copyVerification(v)
	return nil
}

// latestLocked returns the newest matching verification, newest meaning the
// greatest created_at with the greater id breaking ties. Callers hold the
// read lock.
func (m *MemoryStore) latestLocked(match func(*models.PhoneVerification) bool) *models.PhoneVerification {
	var latest *models.PhoneVerification
	for _, v := range m.verifications {
		if !match(v) {
			continue
		}
		if latest == nil ||
			v.CreatedAt.After(latest.CreatedAt) ||
			(v.CreatedAt.Equal(latest.CreatedAt) && v.ID > latest.ID) {
			latest = v
		}
	}
	return latest
}

func (m *MemoryStore) GetLatestVerification(userID uint) (*models.PhoneVerification, error) {
	m.verificationMu.RLock()
	defer m.verificationMu.RUnlock()

	latest := m.latestLocked(func(v *models.PhoneVerification) bool {
		return v.UserID == userID
	})
	if latest == nil {
		return nil, ErrNotFound
	}
	return copyVerification(latest), nil
}

func (m *MemoryStore) GetLatestVerificationForPhone(userID uint, phone string) (*models.PhoneVerification, error) {
	m.verificationMu.RLock()
	defer m.verificationMu.RUnlock()

	latest := m.latestLocked(func(v *models.PhoneVerification) bool {
		return v.UserID == userID && v.PhoneNumber == phone
	})
	if latest == nil {
		return nil, ErrNotFound
	}
	return copyVerification(latest), nil
}

func (m *MemoryStore) GetLatestUnverifiedVerification(userID uint) (*models.PhoneVerification, error) {
	m.verificationMu.RLock()
	defer m.verificationMu.RUnlock()

	latest := m.latestLocked(func(v *models.PhoneVerification) bool {
		return v.UserID == userID && !v.Verified
	})
	if latest == nil {
		return nil, ErrNotFound
	}
	return copyVerification(latest), nil
}

// Counts

func (m *MemoryStore) CountUsers() (int64, error) {
	m.userMu.RLock()
	defer m.userMu.RUnlock()
	return int64(len(m.users)), nil
}

func (m *MemoryStore) CountVerifications() (int64, error) {
	m.verificationMu.RLock()
	defer m.verificationMu.RUnlock()
	return int64(len(m.verifications)), nil
}
