// Package email wraps the outbound email delivery provider behind the
// capability contract. Request shaping and provider error interpretation
// live here; the tool layer only sees receipts and capability errors.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"herald-api/internal/capability"
	"herald-api/internal/normalize"
	"herald-api/internal/shared"

	"go.uber.org/zap"
)

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text,omitempty"`
	HTML    string   `json:"html,omitempty"`
}

type sendResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type Sender struct {
	endpoint    string
	apiKey      string
	defaultFrom string
	client      *http.Client
	log         *zap.SugaredLogger
}

func NewSender(endpoint, apiKey, defaultFrom string, log *zap.SugaredLogger) *Sender {
	return &Sender{
		endpoint:    strings.TrimRight(endpoint, "/"),
		apiKey:      apiKey,
		defaultFrom: defaultFrom,
		client:      &http.Client{Timeout: shared.DefaultHTTPTimeout},
		log:         log,
	}
}

// Send normalizes and delivers one message. The provider is never invoked
// when validation or configuration fails; a provider-reported failure keeps
// the provider's message verbatim.
func (s *Sender) Send(ctx context.Context, msg normalize.EmailMessage) (*capability.EmailReceipt, *capability.Error) {
	hadFrom := strings.TrimSpace(msg.From) != ""
	msg = normalize.Email(msg, normalize.EmailDefaults{From: s.defaultFrom})

	if len(msg.To) == 0 {
		return nil, capability.Errorf(capability.KindInvalidInput, "no valid recipient address")
	}
	for _, addr := range msg.To {
		if !normalize.ValidAddress(addr) {
			return nil, capability.Errorf(capability.KindInvalidInput, "invalid email address format: %s", addr)
		}
	}
	if msg.From == "" {
		return nil, capability.Errorf(capability.KindConfiguration, "no sender address configured")
	}
	if !hadFrom {
		s.log.Infow("Using configured default sender", "from", msg.From)
	}
	if s.apiKey == "" {
		return nil, capability.Errorf(capability.KindConfiguration, "email provider API key is not configured")
	}

	body, err := json.Marshal(sendRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Text:    msg.Text,
		HTML:    msg.HTML,
	})
	if err != nil {
		return nil, capability.Errorf(capability.KindUnexpected, "failed encoding send request: %v", err)
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/emails", bytes.NewBuffer(body))
	if err != nil {
		return nil, capability.Errorf(capability.KindUnexpected, "failed building send request: %v", err)
	}
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Authorization", "Bearer "+s.apiKey)

	res, err := s.client.Do(r)
	if err != nil {
		s.log.Warnw("Email provider request failed", "error", err.Error())
		return nil, capability.Errorf(capability.KindUnexpected, "email provider request failed: %v", err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, capability.Errorf(capability.KindUnexpected, "failed reading provider response: %v", err)
	}

	var parsed sendResponse
	if len(resBody) > 0 {
		// A malformed body on a 2xx is still a successful send, only
		// without a confirmation id.
		_ = json.Unmarshal(resBody, &parsed)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg := parsed.Error.Message
		if msg == "" {
			msg = strings.TrimSpace(string(resBody))
		}
		if msg == "" {
			msg = res.Status
		}
		s.log.Warnw("Email provider reported failure",
			"status_code", res.StatusCode,
			"provider_message", msg)
		return nil, capability.Errorf(capability.KindProviderError, "%s", msg)
	}

	return &capability.EmailReceipt{ID: parsed.Data.ID}, nil
}
