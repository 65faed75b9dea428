// Package model wraps the generative model runner behind the capability
// contract: Run(modelID, params) posts to the runner and interprets its
// response. The runner serves both the language model used for prompt
// rewriting ({response}) and the diffusion model ({image}).
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"herald-api/internal/capability"
	"herald-api/internal/shared"

	"go.uber.org/zap"
)

// Output is the runner's decoded response body. Exactly one of the fields is
// populated depending on the model family.
type Output struct {
	// Image is a base64 encoded payload returned by diffusion models.
	Image string `json:"image"`
	// Response is the completion text returned by language models.
	Response string `json:"response"`
}

type runnerError struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
	Error string `json:"error"`
}

type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
	log      *zap.SugaredLogger
}

func NewClient(endpoint, apiKey string, log *zap.SugaredLogger) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		client:   &http.Client{Timeout: shared.DefaultHTTPTimeout},
		log:      log,
	}
}

// Run invokes one model and returns its decoded output. All failure paths
// come back as a capability error, never a panic or raw transport error.
func (c *Client) Run(ctx context.Context, modelID string, params map[string]any) (*Output, *capability.Error) {
	if c.apiKey == "" {
		return nil, capability.Errorf(capability.KindConfiguration, "model runner API key is not configured")
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, capability.Errorf(capability.KindUnexpected, "failed encoding model params: %v", err)
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/run/"+url.PathEscape(modelID), bytes.NewBuffer(body))
	if err != nil {
		return nil, capability.Errorf(capability.KindUnexpected, "failed building model request: %v", err)
	}
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.client.Do(r)
	if err != nil {
		c.log.Warnw("Model request failed", "model", modelID, "error", err.Error())
		return nil, capability.Errorf(capability.KindUnexpected, "model request failed: %v", err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, capability.Errorf(capability.KindUnexpected, "failed reading model response: %v", err)
	}

	if res.StatusCode != http.StatusOK {
		msg := runnerErrorMessage(resBody)
		c.log.Warnw("Model responded with non-200",
			"model", modelID,
			"status_code", res.StatusCode,
			"provider_message", msg)
		return nil, capability.Errorf(capability.KindProviderError, "%s", msg)
	}

	var out Output
	if err := json.Unmarshal(resBody, &out); err != nil {
		return nil, capability.Errorf(capability.KindDecodeError, "failed decoding model response: %v", err)
	}
	return &out, nil
}

// runnerErrorMessage preserves the provider's own message when one is
// present, falling back to the raw body.
func runnerErrorMessage(body []byte) string {
	var re runnerError
	if err := json.Unmarshal(body, &re); err == nil {
		if len(re.Errors) > 0 && re.Errors[0].Message != "" {
			return re.Errors[0].Message
		}
		if re.Error != "" {
			return re.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = "model runner returned an error with no message"
	}
	return msg
}
