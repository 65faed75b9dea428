// Package enhance rewrites image prompts before generation. Short bare
// prompts get a deterministic quality suffix without a model call; everything
// else goes through the language model with a fallback to the original
// prompt, so the downstream image call always receives a non-empty prompt.
package enhance

import (
	"context"
	"strings"

	"herald-api/internal/capability"
	"herald-api/internal/capability/model"
	"herald-api/internal/shared"

	"go.uber.org/zap"
)

const (
	// Prompts shorter than this with no quality keyword are rewritten
	// locally instead of paying for a model round trip.
	shortPromptThreshold = 40

	qualitySuffix = ", high resolution, detailed, professional quality"

	systemInstruction = "You improve prompts for an image generation model. " +
		"Rewrite the user's prompt to be vivid and specific, adding style, lighting and composition detail. " +
		"Reply with the rewritten prompt only, no commentary."
)

var qualityKeywords = []string{
	"high resolution",
	"detailed",
	"professional",
	"4k",
	"8k",
	"high quality",
	"photorealistic",
	"sharp focus",
}

// Runner is the language model capability consumed by the stage.
type Runner interface {
	Run(ctx context.Context, modelID string, params map[string]any) (*model.Output, *capability.Error)
}

type Enhancer struct {
	runner  Runner
	modelID string
	log     *zap.SugaredLogger
}

func NewEnhancer(runner Runner, modelID string, log *zap.SugaredLogger) *Enhancer {
	return &Enhancer{runner: runner, modelID: modelID, log: log}
}

// Enhance always succeeds from the caller's perspective: any model failure
// degrades to a fallback value instead of propagating.
func (e *Enhancer) Enhance(ctx context.Context, prompt string) string {
	trimmed := strings.TrimSpace(prompt)

	if isShort(trimmed) && !hasQualityKeyword(trimmed) {
		return trimmed + qualitySuffix
	}

	out, cerr := e.runner.Run(ctx, e.modelID, map[string]any{
		"messages": []map[string]string{
			{"role": "system", "content": systemInstruction},
			{"role": "user", "content": trimmed},
		},
		"max_tokens": shared.EnhanceMaxTokens,
		"stream":     false,
	})
	if cerr != nil {
		e.log.Warnw("Prompt enhancement failed, using fallback", "kind", cerr.Kind, "error", cerr.Message)
		return fallback(trimmed)
	}

	rewritten := strings.TrimSpace(out.Response)
	if rewritten == "" {
		e.log.Warnw("Prompt enhancement returned empty output, using fallback")
		return fallback(trimmed)
	}
	return rewritten
}

func fallback(trimmed string) string {
	if !isShort(trimmed) || hasQualityKeyword(trimmed) {
		return trimmed
	}
	return trimmed + qualitySuffix
}

func isShort(s string) bool {
	return len(s) < shortPromptThreshold
}

func hasQualityKeyword(s string) bool {
	lower := strings.ToLower(s)
	for _, kw := range qualityKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
