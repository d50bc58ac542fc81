package services

import (
	"fmt"
	"log"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	verify "github.com/twilio/twilio-go/rest/verify/v2"
)

// TwilioService wraps the two Twilio surfaces this service uses: the Verify
// V2 API (managed verification codes) and the Messages API (plain SMS).
type TwilioService struct {
	client           *twilio.RestClient
	verifyServiceSID string
	from             string
	statusCallback   string
}

// NewTwilioService creates a new Twilio service instance from environment
// variables. Account SID and auth token are required; the Verify service SID
// and sender number are optional and gate which capabilities are available.
func NewTwilioService() (*TwilioService, error) {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")

	if accountSid == "" || authToken == "" {
		return nil, fmt.Errorf("missing Twilio credentials in environment variables")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	return &TwilioService{
		client:           client,
		verifyServiceSID: os.Getenv("TWILIO_VERIFY_SERVICE_SID"),
		from:             os.Getenv("TWILIO_FROM_NUMBER"),
		statusCallback:   os.Getenv("TWILIO_STATUS_CALLBACK_URL"),
	}, nil
}

// HasVerifyService reports whether a Verify service SID is configured.
func (t *TwilioService) HasVerifyService() bool {
	return t.verifyServiceSID != ""
}

// HasSender reports whether an outbound SMS number is configured.
func (t *TwilioService) HasSender() bool {
	return t.from != ""
}

// StartVerification asks Twilio Verify to generate and deliver a code to the
// given number, returning the Verification SID as the handle for the later
// check.
func (t *TwilioService) StartVerification(phone string) (string, error) {
	params := &verify.CreateVerificationParams{}
	params.SetTo(phone)
	params.SetChannel("sms")

	resp, err := t.client.VerifyV2.CreateVerification(t.verifyServiceSID, params)
	if err != nil {
		log.Printf("❌ Failed to start Twilio verification for %s: %v", phone, err)
		return "", err
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	log.Printf("✅ Twilio verification started! SID: %s", sid)
	return sid, nil
}

// CheckVerification submits a code to Twilio Verify. Only an explicit
// "approved" status counts as a match; "pending" means the code was wrong.
func (t *TwilioService) CheckVerification(phone string, code string) (bool, error) {
	params := &verify.CreateVerificationCheckParams{}
	params.SetTo(phone)
	params.SetCode(code)

	resp, err := t.client.VerifyV2.CreateVerificationCheck(t.verifyServiceSID, params)
	if err != nil {
		log.Printf("❌ Twilio verification check failed for %s: %v", phone, err)
		return false, err
	}

	status := ""
	if resp.Status != nil {
		status = *resp.Status
	}
	return status == "approved", nil
}

// SendSMS sends a plain text message via the Messages API.
func (t *TwilioService) SendSMS(to string, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(to)
	params.SetBody(body)
	if t.statusCallback != "" {
		params.SetStatusCallback(t.statusCallback)
	}

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send SMS: %v", err)
		return err
	}

	if resp.ErrorCode != nil && *resp.ErrorCode != 0 {
		return fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, *resp.ErrorMessage)
	}

	log.Printf("✅ SMS sent! SID: %s", *resp.Sid)
	return nil
}
