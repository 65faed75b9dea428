// Package tools implements the fixed tool registry and the dispatch pipeline
// behind it: schema validation, field normalization, capability invocation,
// and mapping of capability results onto the wire envelope.
//
// Protocol convention carried over deliberately: an email tool call that ran
// but whose intent failed still returns the normal envelope shape, with the
// failure described in its text content. Only the image tool, whose success
// payload is binary, reports failure as a non-2xx response.
package tools

import (
	"fmt"
	"math"
	"strings"
)

const (
	ToolSendEmail     = "sendEmail"
	ToolGenerateImage = "generateImage"
)

// Definition describes one registered tool for the tools/list surface.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// CallRequest is one schema-validated tool invocation request.
type CallRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Envelope is the uniform tool-call response shape. IsError marks business
// failure; the call itself still completed.
type Envelope struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

func textEnvelope(text string) *Envelope {
	return &Envelope{Content: []ContentItem{{Type: "text", Text: text}}}
}

func failureEnvelope(format string, args ...any) *Envelope {
	return &Envelope{
		Content: []ContentItem{{Type: "text", Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

// Definitions returns the fixed tool table in registration order. New
// capabilities extend this table, they do not add new gateway variants.
func Definitions() []Definition {
	return []Definition{
		{
			Name:        ToolSendEmail,
			Description: "Compose and send an email through the configured delivery provider.",
			InputSchema: sendEmailInputSchema(),
		},
		{
			Name:        ToolGenerateImage,
			Description: "Generate an image from a text prompt. Returns binary image data.",
			InputSchema: generateImageInputSchema(),
		},
	}
}

func sendEmailInputSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"to": map[string]any{
				"description": "Recipient address, or a list of addresses.",
				"oneOf": []any{
					map[string]any{"type": "string"},
					map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "minItems": 1},
				},
			},
			"subject":  map[string]any{"type": "string"},
			"body":     map[string]any{"type": "string"},
			"htmlBody": map[string]any{"type": "string"},
			"from":     map[string]any{"type": "string"},
		},
		"required": []string{"to"},
	}
}

func generateImageInputSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"prompt": map[string]any{"type": "string", "minLength": 1},
			"steps":  map[string]any{"type": "integer", "minimum": 1, "maximum": 100, "default": 4},
		},
		"required": []string{"prompt"},
	}
}

func assertNoUnknownArguments(args map[string]any, allowed map[string]struct{}) error {
	for key := range args {
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("unknown argument: %s", key)
		}
	}
	return nil
}

func parseRequiredString(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", fmt.Errorf("%s is required", key)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%s must be a non-empty string", key)
	}
	return value, nil
}

func parseOptionalString(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return "", nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	return strings.TrimSpace(value), nil
}

func parseInteger(value any, field string) (int, error) {
	switch v := value.(type) {
	case float64:
		if math.Trunc(v) != v {
			return 0, fmt.Errorf("%s must be an integer", field)
		}
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("%s must be an integer", field)
	}
}

// parseRecipients coerces the to argument into sequence form: a bare string
// becomes a one-element list, arrays must contain only strings.
func parseRecipients(args map[string]any, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, fmt.Errorf("%s is required", key)
	}
	switch typed := raw.(type) {
	case string:
		return []string{typed}, nil
	case []string:
		return typed, nil
	case []any:
		out := make([]string, 0, len(typed))
		for idx, item := range typed {
			v, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", key, idx)
			}
			out = append(out, v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s must be a string or an array of strings", key)
	}
}
