package enhance

import (
	"context"
	"testing"

	"herald-api/internal/capability"
	"herald-api/internal/capability/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type runnerDouble struct {
	calls    int
	response string
	err      *capability.Error
}

func (r *runnerDouble) Run(_ context.Context, _ string, _ map[string]any) (*model.Output, *capability.Error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &model.Output{Response: r.response}, nil
}

func TestEnhanceShortCircuitsShortPrompts(t *testing.T) {
	runner := &runnerDouble{response: "should not be used"}
	e := NewEnhancer(runner, "text-model", zap.NewNop().Sugar())

	got := e.Enhance(context.Background(), "cat")
	assert.Equal(t, "cat, high resolution, detailed, professional quality", got)
	assert.Zero(t, runner.calls, "short prompt must not invoke the model")
}

func TestEnhanceSkipsRewriteWhenKeywordPresent(t *testing.T) {
	runner := &runnerDouble{response: "a detailed cat, studio lighting"}
	e := NewEnhancer(runner, "text-model", zap.NewNop().Sugar())

	// Short but already carries a quality keyword, so it goes to the model.
	got := e.Enhance(context.Background(), "detailed cat")
	assert.Equal(t, "a detailed cat, studio lighting", got)
	assert.Equal(t, 1, runner.calls)
}

func TestEnhanceUsesModelOutputTrimmed(t *testing.T) {
	runner := &runnerDouble{response: "  a majestic castle on a cliff at golden hour  "}
	e := NewEnhancer(runner, "text-model", zap.NewNop().Sugar())

	got := e.Enhance(context.Background(), "a majestic castle overlooking a stormy sea at dusk")
	assert.Equal(t, "a majestic castle on a cliff at golden hour", got)
	assert.Equal(t, 1, runner.calls)
}

func TestEnhanceFallsBackToOriginalOnModelFailure(t *testing.T) {
	runner := &runnerDouble{err: capability.Errorf(capability.KindProviderError, "model unavailable")}
	e := NewEnhancer(runner, "text-model", zap.NewNop().Sugar())

	long := "a majestic castle overlooking a stormy sea at dusk"
	got := e.Enhance(context.Background(), "  "+long+"  ")
	assert.Equal(t, long, got)
	assert.Equal(t, 1, runner.calls)
}

func TestEnhanceFallsBackToOriginalOnEmptyOutput(t *testing.T) {
	runner := &runnerDouble{response: "   "}
	e := NewEnhancer(runner, "text-model", zap.NewNop().Sugar())

	long := "a majestic castle overlooking a stormy sea at dusk"
	got := e.Enhance(context.Background(), long)
	require.Equal(t, long, got)
}
