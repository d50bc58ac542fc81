package services

import (
	"errors"
	"fmt"
	"log"
	"os"

	twilioclient "github.com/twilio/twilio-go/client"

	"github.com/example/phoneproof/internal/models"
	"github.com/example/phoneproof/internal/utils"
)

// Delivery failure classifications, so callers can tell a bad destination
// from provider throttling without parsing Twilio error text.
var (
	ErrInvalidDestination = errors.New("destination cannot receive verification codes")
	ErrRateLimited        = errors.New("delivery provider is rate limiting requests")
)

// CodeSender issues verification codes. SendCode returns the code to store
// (or models.ExternalCode when the provider keeps it) plus an opaque provider
// reference. CheckCode is only consulted for attempts that carry a provider
// reference; senders that issue local codes never see it in normal operation
// and report an error if they do (a mode switch between start and check).
type CodeSender interface {
	Mode() string
	SendCode(phone string) (code string, providerRef string, err error)
	CheckCode(phone string, code string) (bool, error)
}

// NewCodeSenderFromEnv picks the delivery mode from Twilio environment
// variables: a Verify service SID means managed verification, a sender
// number means direct SMS, and no credentials at all means local codes with
// no outbound calls.
func NewCodeSenderFromEnv() (CodeSender, error) {
	if os.Getenv("TWILIO_ACCOUNT_SID") == "" || os.Getenv("TWILIO_AUTH_TOKEN") == "" {
		log.Println("📴 No Twilio credentials, using local verification codes")
		return NewLocalSender(), nil
	}

	twilioSvc, err := NewTwilioService()
	if err != nil {
		return nil, err
	}

	switch {
	case twilioSvc.HasVerifyService():
		log.Println("📡 Using Twilio Verify for verification codes")
		return &VerifySender{twilio: twilioSvc}, nil
	case twilioSvc.HasSender():
		log.Println("📱 Using Twilio SMS for verification codes")
		return &SMSSender{twilio: twilioSvc}, nil
	default:
		return nil, fmt.Errorf("TWILIO_VERIFY_SERVICE_SID or TWILIO_FROM_NUMBER must be set when Twilio credentials are present")
	}
}

// classifyDeliveryError maps Twilio REST failures onto the sentinel errors
// above. Codes 21211/21614/60200 are invalid-destination flavors;
// 20429/60203/60212 (or a plain HTTP 429) are throttles.
func classifyDeliveryError(err error) error {
	var restErr *twilioclient.TwilioRestError
	if !errors.As(err, &restErr) {
		return err
	}
	switch restErr.Code {
	case 21211, 21614, 60200:
		return fmt.Errorf("%w: %v", ErrInvalidDestination, err)
	case 20429, 60203, 60212:
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	if restErr.Status == 429 {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return err
}

// VerifySender delegates code generation, delivery and checking to Twilio
// Verify. The stored code is just the ExternalCode placeholder.
type VerifySender struct {
	twilio *TwilioService
}

func (s *VerifySender) Mode() string { return "twilio_verify" }

func (s *VerifySender) SendCode(phone string) (string, string, error) {
	sid, err := s.twilio.StartVerification(phone)
	if err != nil {
		return "", "", classifyDeliveryError(err)
	}
	return models.ExternalCode, sid, nil
}

func (s *VerifySender) CheckCode(phone string, code string) (bool, error) {
	ok, err := s.twilio.CheckVerification(phone, code)
	if err != nil {
		return false, classifyDeliveryError(err)
	}
	return ok, nil
}

// SMSSender generates codes locally and delivers them as plain SMS through
// the Messages API. Checks stay local, so no provider reference is stored.
type SMSSender struct {
	twilio *TwilioService
}

func (s *SMSSender) Mode() string { return "twilio_sms" }

func (s *SMSSender) SendCode(phone string) (string, string, error) {
	code, err := utils.GenerateSecureOTP()
	if err != nil {
		return "", "", err
	}
	body := fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code)
	if err := s.twilio.SendSMS(phone, body); err != nil {
		return "", "", classifyDeliveryError(err)
	}
	return code, "", nil
}

func (s *SMSSender) CheckCode(phone string, code string) (bool, error) {
	return false, fmt.Errorf("no provider check in %s mode", s.Mode())
}

// LocalSender issues codes without any outbound delivery. It keeps the full
// verification flow working in tests and local development.
type LocalSender struct{}

func NewLocalSender() *LocalSender {
	return &LocalSender{}
}

func (s *LocalSender) Mode() string { return "local" }

func (s *LocalSender) SendCode(phone string) (string, string, error) {
	code, err := utils.GenerateSecureOTP()
	if err != nil {
		return "", "", err
	}
	log.Printf("🔢 [local] verification code for %s: %s", phone, code)
	return code, "", nil
}

func (s *LocalSender) CheckCode(phone string, code string) (bool, error) {
	return false, fmt.Errorf("no provider check in %s mode", s.Mode())
}
