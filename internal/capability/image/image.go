// Package image wraps the diffusion model behind the capability contract:
// clamp the step count, enhance the prompt, run the model, and decode the
// base64 payload into servable bytes.
package image

import (
	"context"
	"encoding/base64"

	"herald-api/internal/capability"
	"herald-api/internal/capability/model"
	"herald-api/internal/normalize"
	"herald-api/internal/shared"

	"go.uber.org/zap"
)

type Runner interface {
	Run(ctx context.Context, modelID string, params map[string]any) (*model.Output, *capability.Error)
}

// PromptEnhancer is the enhancement stage; it never fails, only degrades.
type PromptEnhancer interface {
	Enhance(ctx context.Context, prompt string) string
}

type Generator struct {
	runner   Runner
	enhancer PromptEnhancer
	modelID  string
	log      *zap.SugaredLogger
}

func NewGenerator(runner Runner, enhancer PromptEnhancer, modelID string, log *zap.SugaredLogger) *Generator {
	return &Generator{runner: runner, enhancer: enhancer, modelID: modelID, log: log}
}

// Generate produces a finished image for the request. The step count is
// clamped rather than rejected for out-of-range input.
func (g *Generator) Generate(ctx context.Context, req normalize.ImageRequest) (*capability.BinaryImage, *capability.Error) {
	req = normalize.Image(req)
	if req.Prompt == "" {
		return nil, capability.Errorf(capability.KindInvalidInput, "prompt must not be empty")
	}

	prompt := g.enhancer.Enhance(ctx, req.Prompt)
	g.log.Debugw("Running image model", "model", g.modelID, "steps", req.Steps)

	out, cerr := g.runner.Run(ctx, g.modelID, map[string]any{
		"prompt": prompt,
		"steps":  req.Steps,
	})
	if cerr != nil {
		return nil, cerr
	}
	if out.Image == "" {
		return nil, capability.Errorf(capability.KindEmptyResult, "model returned no image payload")
	}

	raw, err := base64.StdEncoding.DecodeString(out.Image)
	if err != nil {
		return nil, capability.Errorf(capability.KindDecodeError, "failed decoding image payload: %v", err)
	}

	return &capability.BinaryImage{
		Bytes:        raw,
		ContentType:  shared.ImageContentType,
		CacheControl: shared.ImageCacheControl,
	}, nil
}
