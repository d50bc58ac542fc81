package services

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/example/phoneproof/internal/models"
	"github.com/example/phoneproof/internal/storage"
	"github.com/example/phoneproof/internal/utils"
)

const (
	startCooldown  = 5 * time.Minute
	resendCooldown = 60 * time.Second
	codeTTL        = 10 * time.Minute
)

// ErrUserUpdateFailed marks the one partial-failure window in the flow: the
// attempt was already marked verified but writing the user record failed.
// The account can be repaired from the attempt row, so this must stay
// distinguishable from ordinary storage faults.
var ErrUserUpdateFailed = errors.New("user update failed after verification was consumed")

// FailureReason labels why an operation was refused. Reasons map onto the
// HTTP layer's status codes; the engine itself only deals in reasons.
type FailureReason string

const (
	ReasonInvalidPhone          FailureReason = "invalid_phone_number"
	ReasonAccountNotFound       FailureReason = "account_not_found"
	ReasonAlreadyVerified       FailureReason = "already_verified"
	ReasonCooldownActive        FailureReason = "cooldown_active"
	ReasonDeliveryFailed        FailureReason = "delivery_failed"
	ReasonNoVerification        FailureReason = "no_verification_found"
	ReasonNoPendingVerification FailureReason = "no_pending_verification"
	ReasonCodeExpired           FailureReason = "code_expired"
	ReasonCodeAlreadyUsed       FailureReason = "code_already_used"
	ReasonInvalidCode           FailureReason = "invalid_code"
	ReasonVerificationExpired   FailureReason = "verification_expired"
)

// StartResult is the outcome of StartVerification. Refusals come back as
// Success=false with a reason; only infrastructure faults surface as errors.
type StartResult struct {
	Success        bool          `json:"success"`
	Message        string        `json:"message"`
	Reason         FailureReason `json:"reason,omitempty"`
	VerificationID uint          `json:"verification_id,omitempty"`
}

// VerifyResult is the outcome of VerifyCode. On success User carries the
// freshly updated account.
type VerifyResult struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Reason  FailureReason `json:"reason,omitempty"`
	User    *models.User  `json:"user,omitempty"`
}

// VerificationService drives the verification code lifecycle: issue,
// deliver, check, consume, expire, retry. It owns every timing rule; the
// store and sender are injected capabilities.
type VerificationService struct {
	store  storage.Store
	sender CodeSender
}

func NewVerificationService(store storage.Store, sender CodeSender) *VerificationService {
	return &VerificationService{store: store, sender: sender}
}

// Sender exposes the configured delivery mode for health reporting.
func (s *VerificationService) Sender() CodeSender {
	return s.sender
}

// StartVerification begins (or restarts) verification of a phone number for
// an account. A fresh attempt for the same number inside the 5-minute window
// is refused while the previous code is still live; expired attempts never
// block.
func (s *VerificationService) StartVerification(userID uint, rawPhone string) (*StartResult, error) {
	phone, err := utils.NormalizePhone(rawPhone)
	if err != nil {
		return &StartResult{
			Reason:  ReasonInvalidPhone,
			Message: "phone number is not a valid E.164 number",
		}, nil
	}

	user, err := s.store.GetUser(userID)
	if errors.Is(err, storage.ErrNotFound) {
		return &StartResult{Reason: ReasonAccountNotFound, Message: "account not found"}, nil
	}
	if err != nil {
		return nil, err
	}

	if user.HasVerifiedPhone(phone) {
		return &StartResult{
			Reason:  ReasonAlreadyVerified,
			Message: "this phone number is already verified",
		}, nil
	}

	now := time.Now()
	latest, err := s.store.GetLatestVerificationForPhone(userID, phone)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if err == nil && now.Sub(latest.CreatedAt) < startCooldown && !latest.IsExpired(now) {
		return &StartResult{
			Reason:  ReasonCooldownActive,
			Message: "a verification code was sent recently, please wait before requesting another",
		}, nil
	}

	code, providerRef, err := s.sender.SendCode(phone)
	if err != nil {
		return &StartResult{Reason: ReasonDeliveryFailed, Message: deliveryFailureMessage(err)}, nil
	}

	attempt, err := s.store.CreateVerification(&models.PhoneVerification{
		UserID:      userID,
		PhoneNumber: phone,
		Code:        code,
		ProviderRef: providerRef,
		ExpiresAt:   now.Add(codeTTL),
	})
	if err != nil {
		return nil, err
	}

	log.Printf("📲 Verification started for user %d, phone %s (attempt %d)", userID, phone, attempt.ID)
	return &StartResult{
		Success:        true,
		Message:        "verification code sent",
		VerificationID: attempt.ID,
	}, nil
}

// VerifyCode checks a submitted code against the account's newest attempt,
// whatever state that attempt is in. Verified attempts refuse replays,
// expired ones refuse outright, and a wrong code leaves the attempt usable
// for another try.
func (s *VerificationService) VerifyCode(userID uint, code string) (*VerifyResult, error) {
	attempt, err := s.store.GetLatestVerification(userID)
	if errors.Is(err, storage.ErrNotFound) {
		return &VerifyResult{
			Reason:  ReasonNoVerification,
			Message: "no verification found for this account",
		}, nil
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if attempt.IsExpired(now) {
		return &VerifyResult{
			Reason:  ReasonCodeExpired,
			Message: "verification code expired, request a new one",
		}, nil
	}
	if attempt.Verified {
		return &VerifyResult{
			Reason:  ReasonCodeAlreadyUsed,
			Message: "verification code already used",
		}, nil
	}

	// An attempt without an account is corrupt storage, not a user error.
	// Loading here also keeps a vanished account from consuming the attempt.
	user, err := s.store.GetUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d for verification: %w", userID, err)
	}

	var valid bool
	if attempt.ProviderManaged() {
		valid, err = s.sender.CheckCode(attempt.PhoneNumber, code)
		if err != nil {
			// Provider unreachable is not a wrong code. The attempt stays
			// live so the user can retry once the provider recovers.
			return &VerifyResult{
				Reason:  ReasonDeliveryFailed,
				Message: "could not check verification code, please try again",
			}, nil
		}
	} else {
		valid = attempt.Code == code
	}
	if !valid {
		return &VerifyResult{Reason: ReasonInvalidCode, Message: "invalid verification code"}, nil
	}

	attempt.Verified = true
	if err := s.store.UpdateVerification(attempt); err != nil {
		return nil, err
	}

	phone := attempt.PhoneNumber
	user.Phone = &phone
	user.Verified = true
	if err := s.store.UpdateUser(user); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUserUpdateFailed, err)
	}

	log.Printf("✅ Phone %s verified for user %d (attempt %d)", phone, userID, attempt.ID)
	return &VerifyResult{Success: true, Message: "phone number verified", User: user}, nil
}

// ResendCode re-issues the code for the account's newest unverified attempt,
// reusing the attempt row. Verified attempts are invisible here; the caller
// has to start over once an attempt has expired.
func (s *VerificationService) ResendCode(userID uint) (*StartResult, error) {
	if _, err := s.store.GetUser(userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &StartResult{Reason: ReasonAccountNotFound, Message: "account not found"}, nil
		}
		return nil, err
	}

	attempt, err := s.store.GetLatestUnverifiedVerification(userID)
	if errors.Is(err, storage.ErrNotFound) {
		return &StartResult{
			Reason:  ReasonNoPendingVerification,
			Message: "no pending verification to resend",
		}, nil
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if elapsed := now.Sub(attempt.CreatedAt); elapsed < resendCooldown {
		remaining := int(math.Ceil((resendCooldown - elapsed).Seconds()))
		return &StartResult{
			Reason:  ReasonCooldownActive,
			Message: fmt.Sprintf("please wait %d seconds before requesting a new code", remaining),
		}, nil
	}
	if attempt.IsExpired(now) {
		return &StartResult{
			Reason:  ReasonVerificationExpired,
			Message: "verification expired, start a new one",
		}, nil
	}

	code, providerRef, err := s.sender.SendCode(attempt.PhoneNumber)
	if err != nil {
		return &StartResult{Reason: ReasonDeliveryFailed, Message: deliveryFailureMessage(err)}, nil
	}

	attempt.Code = code
	attempt.ProviderRef = providerRef
	attempt.CreatedAt = now
	attempt.ExpiresAt = now.Add(codeTTL)
	if err := s.store.UpdateVerification(attempt); err != nil {
		return nil, err
	}

	log.Printf("🔁 Verification code resent for user %d (attempt %d)", userID, attempt.ID)
	return &StartResult{
		Success:        true,
		Message:        "verification code resent",
		VerificationID: attempt.ID,
	}, nil
}

func deliveryFailureMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidDestination):
		return "this phone number cannot receive verification codes"
	case errors.Is(err, ErrRateLimited):
		return "verification codes are being rate limited, please try again later"
	default:
		return "failed to send verification code"
	}
}
