package storage

import (
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/phoneproof/internal/models"
)

// newTestDatabaseStore runs the GORM store against an in-memory SQLite
// database migrated with the production models, so the SQL paths see a real
// driver instead of Postgres.
func newTestDatabaseStore(t *testing.T) *DatabaseStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.PhoneVerification{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewDatabaseStore(db)
}

func TestDatabaseStoreUsers(t *testing.T) {
	store := newTestDatabaseStore(t)

	user := mustCreateUser(t, store, "a@example.com")
	if user.ID == 0 {
		t.Fatal("expected assigned ID")
	}

	if _, err := store.CreateUser(&models.User{Email: "a@example.com", FirstName: "Dup"}); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("duplicate email: want ErrDuplicateEmail, got %v", err)
	}

	got, err := store.GetUser(user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Email != "a@example.com" {
		t.Errorf("GetUser email = %q", got.Email)
	}
	if _, err := store.GetUser(999); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing user: want ErrNotFound, got %v", err)
	}

	byEmail, err := store.GetUserByEmail("a@example.com")
	if err != nil || byEmail.ID != user.ID {
		t.Errorf("GetUserByEmail = %+v, %v", byEmail, err)
	}
	if _, err := store.GetUserByEmail("missing@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing email: want ErrNotFound, got %v", err)
	}
}

func TestDatabaseStoreUpdateUser(t *testing.T) {
	store := newTestDatabaseStore(t)
	user := mustCreateUser(t, store, "a@example.com")
	mustCreateUser(t, store, "taken@example.com")

	// Keeping your own email is not a collision
	phone := "+15551234567"
	user.Phone = &phone
	user.Verified = true
	if err := store.UpdateUser(user); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	got, err := store.GetUser(user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Phone == nil || *got.Phone != phone || !got.Verified {
		t.Errorf("update not applied: %+v", got)
	}

	// Clearing the phone must write NULL, not an empty string
	user.Phone = nil
	user.Verified = false
	if err := store.UpdateUser(user); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	got, err = store.GetUser(user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Phone != nil || got.Verified {
		t.Errorf("clear not applied: %+v", got)
	}

	// Renaming onto another account's email surfaces the same sentinel the
	// memory store returns, not a raw constraint error
	user.Email = "taken@example.com"
	if err := store.UpdateUser(user); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("email collision: want ErrDuplicateEmail, got %v", err)
	}
}

func TestDatabaseStoreLatestVerificationOrdering(t *testing.T) {
	store := newTestDatabaseStore(t)
	user := mustCreateUser(t, store, "a@example.com")

	base := time.Now().Add(-time.Hour)
	expires := time.Now().Add(10 * time.Minute)

	first := mustCreateVerification(t, store, &models.PhoneVerification{
		UserID: user.ID, PhoneNumber: "+15550000001", Code: "111111",
		CreatedAt: base, ExpiresAt: expires,
	})
	second := mustCreateVerification(t, store, &models.PhoneVerification{
		UserID: user.ID, PhoneNumber: "+15550000002", Code: "222222",
		CreatedAt: base.Add(time.Minute), ExpiresAt: expires,
	})
	// Same created_at as second: the higher ID must win the tie
	third := mustCreateVerification(t, store, &models.PhoneVerification{
		UserID: user.ID, PhoneNumber: "+15550000003", Code: "333333",
		CreatedAt: base.Add(time.Minute), ExpiresAt: expires,
	})

	latest, err := store.GetLatestVerification(user.ID)
	if err != nil {
		t.Fatalf("GetLatestVerification: %v", err)
	}
	if latest.ID != third.ID {
		t.Errorf("latest = %d, want %d (created_at tie broken by id)", latest.ID, third.ID)
	}

	byPhone, err := store.GetLatestVerificationForPhone(user.ID, "+15550000001")
	if err != nil {
		t.Fatalf("GetLatestVerificationForPhone: %v", err)
	}
	if byPhone.ID != first.ID {
		t.Errorf("latest for phone = %d, want %d", byPhone.ID, first.ID)
	}
	if _, err := store.GetLatestVerificationForPhone(user.ID, "+15559999999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown phone: want ErrNotFound, got %v", err)
	}

	third.Verified = true
	if err := store.UpdateVerification(third); err != nil {
		t.Fatalf("UpdateVerification: %v", err)
	}
	unverified, err := store.GetLatestUnverifiedVerification(user.ID)
	if err != nil {
		t.Fatalf("GetLatestUnverifiedVerification: %v", err)
	}
	if unverified.ID != second.ID {
		t.Errorf("latest unverified = %d, want %d", unverified.ID, second.ID)
	}

	if _, err := store.GetLatestVerification(999); !errors.Is(err, ErrNotFound) {
		t.Errorf("no attempts: want ErrNotFound, got %v", err)
	}
}

func TestDatabaseStoreUpdateVerification(t *testing.T) {
	store := newTestDatabaseStore(t)
	user := mustCreateUser(t, store, "a@example.com")

	attempt := mustCreateVerification(t, store, &models.PhoneVerification{
		UserID: user.ID, PhoneNumber: "+15551234567", Code: "123456",
		ExpiresAt: time.Now().Add(10 * time.Minute),
	})

	// created_at is rewritable on purpose: resends re-arm the cooldown by
	// resetting it
	reset := time.Now().Add(2 * time.Minute)
	attempt.Code = "654321"
	attempt.ProviderRef = "VE123"
	attempt.CreatedAt = reset
	if err := store.UpdateVerification(attempt); err != nil {
		t.Fatalf("UpdateVerification: %v", err)
	}

	got, err := store.GetLatestVerification(user.ID)
	if err != nil {
		t.Fatalf("GetLatestVerification: %v", err)
	}
	if got.Code != "654321" || got.ProviderRef != "VE123" || !got.CreatedAt.Equal(reset) {
		t.Errorf("update not applied: %+v", got)
	}
}
