package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.twilio.com/2010-04-01"

// Twilio delivers notifications through the Twilio REST API: SMS messages for
// immediate notifications and voice calls for escalations.
type Twilio struct {
	accountSID string
	authToken  string
	from       string

	baseURL string
	client  *http.Client
}

// TwilioOption configures a [Twilio] notifier.
type TwilioOption func(*Twilio)

// WithHTTPClient sets the HTTP client used for API requests.
func WithHTTPClient(client *http.Client) TwilioOption {
	return func(t *Twilio) {
		t.client = client
	}
}

// WithBaseURL overrides the Twilio API base URL.
func WithBaseURL(baseURL string) TwilioOption {
	return func(t *Twilio) {
		t.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// NewTwilio creates a Twilio-backed [Notifier] sending from the given phone
// number.
func NewTwilio(accountSID, authToken, from string, opts ...TwilioOption) *Twilio {
	t := &Twilio{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    defaultBaseURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SendImmediate sends an SMS to the destination number.
func (t *Twilio) SendImmediate(ctx context.Context, to, body string) error {
	form := url.Values{
		"To":   {to},
		"From": {t.from},
		"Body": {body},
	}
	return t.post(ctx, "sms", "Messages.json", to, form)
}

// SendEscalation places a voice call to the destination number. Twilio
// fetches call instructions (TwiML) from voiceURL once the call connects.
func (t *Twilio) SendEscalation(ctx context.Context, to, voiceURL string) error {
	form := url.Values{
		"To":   {to},
		"From": {t.from},
		"Url":  {voiceURL},
	}
	return t.post(ctx, "call", "Calls.json", to, form)
}

func (t *Twilio) post(ctx context.Context, op, resource, to string, form url.Values) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s/%s", t.baseURL, t.accountSID, resource)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver %s to %s: %w", op, to, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		// Twilio error bodies carry a human-readable message.
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)

		return &DeliveryError{
			Op:         op,
			To:         to,
			StatusCode: resp.StatusCode,
			Message:    apiErr.Message,
		}
	}
	return nil
}
