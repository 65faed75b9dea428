package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"herald-api/internal/capability"
	"herald-api/internal/metrics"
	"herald-api/internal/normalize"
	"herald-api/internal/shared"

	"go.uber.org/zap"
)

// EmailSender is the email capability consumed by the pipeline.
type EmailSender interface {
	Send(ctx context.Context, msg normalize.EmailMessage) (*capability.EmailReceipt, *capability.Error)
}

// ImageGenerator is the image capability consumed by the pipeline.
type ImageGenerator interface {
	Generate(ctx context.Context, req normalize.ImageRequest) (*capability.BinaryImage, *capability.Error)
}

// Outcome is the structured exit of a dispatch. Exactly one field is set:
// Envelope for text results (including business failures), Binary for a
// successful image, Err for dispatch exits that must become a non-2xx
// response. No capability fault ever escapes past the pipeline.
type Outcome struct {
	Envelope *Envelope
	Binary   *capability.BinaryImage
	Err      *shared.RequestError
}

type Dispatcher struct {
	email EmailSender
	image ImageGenerator
	log   *zap.SugaredLogger
}

func NewDispatcher(email EmailSender, image ImageGenerator, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{email: email, image: image, log: log}
}

// Dispatch routes one tool call: look up the tool, validate the raw args
// against its schema, normalize, invoke the capability, and map the result.
func (d *Dispatcher) Dispatch(ctx context.Context, call CallRequest) Outcome {
	start := time.Now()
	defer func() {
		metrics.ToolCallDuration.WithLabelValues(call.Name).Observe(time.Since(start).Seconds())
	}()

	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}

	switch call.Name {
	case ToolSendEmail:
		return d.dispatchEmail(ctx, args)
	case ToolGenerateImage:
		return d.dispatchImage(ctx, args)
	default:
		d.log.Warnw("Unknown tool requested", "tool", call.Name)
		metrics.ToolCallCount.WithLabelValues(call.Name, "unknown_tool").Inc()
		return Outcome{Envelope: failureEnvelope("unknown tool: %s", call.Name)}
	}
}

func (d *Dispatcher) dispatchEmail(ctx context.Context, args map[string]any) Outcome {
	msg, err := parseEmailArgs(args)
	if err != nil {
		metrics.ToolCallCount.WithLabelValues(ToolSendEmail, "invalid_input").Inc()
		return Outcome{Envelope: failureEnvelope("Invalid sendEmail arguments: %s", err.Error())}
	}

	receipt, cerr := d.email.Send(ctx, msg)
	if cerr != nil {
		d.log.Warnw("Email send failed", "kind", cerr.Kind, "error", cerr.Message)
		metrics.CapabilityErrors.WithLabelValues("email", string(cerr.Kind)).Inc()
		metrics.ToolCallCount.WithLabelValues(ToolSendEmail, "error").Inc()
		return Outcome{Envelope: failureEnvelope("Failed to send email: %s", cerr.Message)}
	}

	if receipt.ID == "" {
		// Provider accepted the message without a confirmation id. Report
		// distinctly instead of conflating with full success or failure.
		metrics.ToolCallCount.WithLabelValues(ToolSendEmail, "partial_success").Inc()
		return Outcome{Envelope: textEnvelope("Email sent, but the provider returned no confirmation id.")}
	}

	metrics.ToolCallCount.WithLabelValues(ToolSendEmail, "success").Inc()
	return Outcome{Envelope: textEnvelope(fmt.Sprintf("Email sent successfully. Provider id: %s", receipt.ID))}
}

func (d *Dispatcher) dispatchImage(ctx context.Context, args map[string]any) Outcome {
	req, err := parseImageArgs(args)
	if err != nil {
		metrics.ToolCallCount.WithLabelValues(ToolGenerateImage, "invalid_input").Inc()
		return Outcome{Err: &shared.RequestError{StatusCode: 400, Err: err}}
	}

	img, cerr := d.image.Generate(ctx, req)
	if cerr != nil {
		d.log.Warnw("Image generation failed", "kind", cerr.Kind, "error", cerr.Message)
		metrics.CapabilityErrors.WithLabelValues("image", string(cerr.Kind)).Inc()
		metrics.ToolCallCount.WithLabelValues(ToolGenerateImage, "error").Inc()
		return Outcome{Err: &shared.RequestError{
			StatusCode: statusForKind(cerr.Kind),
			Err:        errors.New(cerr.Message),
		}}
	}

	metrics.ToolCallCount.WithLabelValues(ToolGenerateImage, "success").Inc()
	return Outcome{Binary: img}
}

func parseEmailArgs(args map[string]any) (normalize.EmailMessage, error) {
	var msg normalize.EmailMessage

	if err := assertNoUnknownArguments(args, map[string]struct{}{
		"to":       {},
		"subject":  {},
		"body":     {},
		"htmlBody": {},
		"from":     {},
	}); err != nil {
		return msg, err
	}

	to, err := parseRecipients(args, "to")
	if err != nil {
		return msg, err
	}
	recipients := normalize.Recipients(to)
	if len(recipients) == 0 {
		return msg, errors.New("to must contain at least one address")
	}
	for _, addr := range recipients {
		if !normalize.ValidAddress(addr) {
			return msg, fmt.Errorf("invalid email address format: %s", addr)
		}
	}

	subject, err := parseOptionalString(args, "subject")
	if err != nil {
		return msg, err
	}
	body, err := parseOptionalString(args, "body")
	if err != nil {
		return msg, err
	}
	htmlBody, err := parseOptionalString(args, "htmlBody")
	if err != nil {
		return msg, err
	}
	from, err := parseOptionalString(args, "from")
	if err != nil {
		return msg, err
	}

	return normalize.EmailMessage{
		From:    from,
		To:      recipients,
		Subject: subject,
		Text:    body,
		HTML:    htmlBody,
	}, nil
}

func parseImageArgs(args map[string]any) (normalize.ImageRequest, error) {
	var req normalize.ImageRequest

	if err := assertNoUnknownArguments(args, map[string]struct{}{
		"prompt": {},
		"steps":  {},
	}); err != nil {
		return req, err
	}

	prompt, err := parseRequiredString(args, "prompt")
	if err != nil {
		return req, err
	}

	steps := shared.DefaultImageSteps
	if raw, ok := args["steps"]; ok {
		steps, err = parseInteger(raw, "steps")
		if err != nil {
			return req, err
		}
	}

	// Out-of-range steps are clamped during normalization, never rejected.
	return normalize.Image(normalize.ImageRequest{Prompt: prompt, Steps: steps}), nil
}

func statusForKind(kind capability.ErrorKind) int {
	switch kind {
	case capability.KindInvalidInput:
		return 400
	case capability.KindProviderError, capability.KindEmptyResult, capability.KindDecodeError:
		return 502
	default:
		return 500
	}
}
