// Package normalize holds the pure field normalization pass each capability
// input goes through before it reaches a provider. All functions here are
// idempotent: normalizing an already normalized value yields the same value.
package normalize

import (
	"strings"

	"herald-api/internal/shared"
)

const DefaultSubject = "(no subject)"

// EmailMessage is the normalized email capability input. To is never empty
// after a successful normalization pass.
type EmailMessage struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

// ImageRequest is the normalized image capability input. Steps is always
// inside [shared.MinImageSteps, shared.MaxImageSteps].
type ImageRequest struct {
	Prompt string
	Steps  int
}

// ValidAddress reports whether s looks like an email address: an @ with a
// non-empty local part, and a dot somewhere in the domain portion. This is
// deliberately a shape check, not RFC validation.
func ValidAddress(s string) bool {
	s = strings.TrimSpace(s)
	at := strings.Index(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	domain := s[at+1:]
	dot := strings.Index(domain, ".")
	return dot > 0 && dot < len(domain)-1
}

// Recipients trims every address and drops empty entries. The result may be
// empty; callers treat that as invalid input.
func Recipients(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, addr := range raw {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		out = append(out, addr)
	}
	return out
}

// EmailDefaults are the configured fallbacks applied during normalization.
type EmailDefaults struct {
	From string
}

// Email trims every field, filters recipients, and applies defaults for the
// subject and sender. It does not reject; empty recipient lists are surfaced
// by the invoker as invalid input.
func Email(msg EmailMessage, defaults EmailDefaults) EmailMessage {
	msg.To = Recipients(msg.To)
	msg.Subject = strings.TrimSpace(msg.Subject)
	if msg.Subject == "" {
		msg.Subject = DefaultSubject
	}
	msg.From = strings.TrimSpace(msg.From)
	if msg.From == "" {
		msg.From = strings.TrimSpace(defaults.From)
	}
	msg.Text = strings.TrimSpace(msg.Text)
	msg.HTML = strings.TrimSpace(msg.HTML)
	return msg
}

// ClampSteps forces n into the supported step range. Out-of-range values are
// clamped, never rejected.
func ClampSteps(n int) int {
	if n < shared.MinImageSteps {
		return shared.MinImageSteps
	}
	if n > shared.MaxImageSteps {
		return shared.MaxImageSteps
	}
	return n
}

// Image trims the prompt and clamps the step count.
func Image(req ImageRequest) ImageRequest {
	req.Prompt = strings.TrimSpace(req.Prompt)
	req.Steps = ClampSteps(req.Steps)
	return req
}
