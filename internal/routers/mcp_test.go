package routers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"herald-api/internal/capability/email"
	"herald-api/internal/capability/image"
	"herald-api/internal/capability/model"
	"herald-api/internal/enhance"
	"herald-api/internal/middleware"
	"herald-api/internal/session"
	"herald-api/internal/shared"
	"herald-api/internal/tools"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type gateway struct {
	echo     *echo.Echo
	registry *session.Registry

	emailCalls  int
	runnerCalls int
	gotSteps    float64
}

// newGateway wires the full stack against httptest provider doubles: an
// email provider returning emailStatus/emailBody, and a model runner that
// echoes a fixed image payload while recording the steps it received.
func newGateway(t *testing.T, emailStatus int, emailBody map[string]any) *gateway {
	t.Helper()
	g := &gateway{}
	log := zap.NewNop().Sugar()

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.emailCalls++
		w.WriteHeader(emailStatus)
		_ = json.NewEncoder(w).Encode(emailBody)
	}))
	t.Cleanup(provider.Close)

	runner := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.runnerCalls++
		var params map[string]any
		_ = json.NewDecoder(r.Body).Decode(&params)
		if steps, ok := params["steps"].(float64); ok {
			g.gotSteps = steps
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"image": base64.StdEncoding.EncodeToString([]byte("jpeg-bytes")),
		})
	}))
	t.Cleanup(runner.Close)

	runnerClient := model.NewClient(runner.URL, "runner-key", log)
	sender := email.NewSender(provider.URL, "provider-key", "ops@herald.dev", log)
	enhancer := enhance.NewEnhancer(runnerClient, "text-model", log)
	generator := image.NewGenerator(runnerClient, enhancer, "image-model", log)

	g.registry = session.NewRegistry(func() *tools.Dispatcher {
		return tools.NewDispatcher(sender, generator, log)
	}, log)

	e := echo.New()
	base := e.Group("")
	base.Use(middleware.NewTrackMiddleware(log))
	base.Use(middleware.RequireBearer)
	require.NoError(t, RegisterMCPRoutes(base, MCPRouterConfig{DefaultSessionKey: "default"}, g.registry))
	g.echo = e
	return g
}

func (g *gateway) call(t *testing.T, authorized bool, payload map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authorized {
		req.Header.Set("Authorization", "Bearer test-token")
	}
	rec := httptest.NewRecorder()
	g.echo.ServeHTTP(rec, req)
	return rec
}

func toolCall(name string, args map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	}
}

func rpcResult(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var res map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	result, _ := res["result"].(map[string]any)
	return result
}

func envelopeText(t *testing.T, result map[string]any) string {
	t.Helper()
	content, ok := result["content"].([]any)
	require.True(t, ok, "expected content in result: %v", result)
	require.NotEmpty(t, content)
	item := content[0].(map[string]any)
	return item["text"].(string)
}

func TestMissingBearerIsRejectedBeforeSessionCreation(t *testing.T) {
	g := newGateway(t, 200, map[string]any{"data": map[string]any{"id": "msg_123"}})

	rec := g.call(t, false, toolCall(tools.ToolSendEmail, map[string]any{"to": "a@b.com"}))
	assert.Equal(t, 401, rec.Code)
	assert.Zero(t, g.registry.Len(), "no session actor may be constructed for unauthorized connections")
	assert.Zero(t, g.emailCalls)
}

func TestSendEmailEndToEnd(t *testing.T) {
	g := newGateway(t, 200, map[string]any{"data": map[string]any{"id": "msg_123"}})

	rec := g.call(t, true, toolCall(tools.ToolSendEmail, map[string]any{
		"to": "a@b.com", "subject": "Hi", "body": "test",
	}))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, envelopeText(t, rpcResult(t, rec)), "msg_123")
	assert.Equal(t, 1, g.emailCalls)
	assert.Equal(t, 1, g.registry.Len())
}

func TestSendEmailInvalidAddressEndToEnd(t *testing.T) {
	g := newGateway(t, 200, map[string]any{"data": map[string]any{"id": "msg_123"}})

	rec := g.call(t, true, toolCall(tools.ToolSendEmail, map[string]any{
		"to": "not-an-email", "subject": "Hi", "body": "test",
	}))
	require.Equal(t, 200, rec.Code)
	result := rpcResult(t, rec)
	assert.Equal(t, true, result["isError"])
	assert.Contains(t, envelopeText(t, result), "invalid email address format")
	assert.Zero(t, g.emailCalls, "provider double must receive zero calls")
}

func TestGenerateImageEndToEndClampsSteps(t *testing.T) {
	g := newGateway(t, 200, map[string]any{})

	rec := g.call(t, true, toolCall(tools.ToolGenerateImage, map[string]any{
		"prompt": "a castle", "steps": 1000,
	}))
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, shared.ImageContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, shared.ImageCacheControl, rec.Header().Get("Cache-Control"))
	assert.Equal(t, []byte("jpeg-bytes"), rec.Body.Bytes())

	// "a castle" short-circuits enhancement, so the runner sees exactly one
	// call: the diffusion run with the clamped step count.
	assert.Equal(t, 1, g.runnerCalls)
	assert.Equal(t, float64(shared.MaxImageSteps), g.gotSteps)
}

func TestUnknownToolYieldsFailureEnvelope(t *testing.T) {
	g := newGateway(t, 200, map[string]any{})

	rec := g.call(t, true, toolCall("launchRocket", nil))
	require.Equal(t, 200, rec.Code)
	result := rpcResult(t, rec)
	assert.Equal(t, true, result["isError"])
	assert.Contains(t, envelopeText(t, result), "unknown tool")
}

func TestEmailProviderFailureStaysInEnvelope(t *testing.T) {
	g := newGateway(t, 422, map[string]any{"error": map[string]any{"message": "domain is not verified"}})

	rec := g.call(t, true, toolCall(tools.ToolSendEmail, map[string]any{"to": "a@b.com"}))
	require.Equal(t, 200, rec.Code, "tool ran; intent failure rides the envelope")
	result := rpcResult(t, rec)
	assert.Equal(t, true, result["isError"])
	assert.Contains(t, envelopeText(t, result), "domain is not verified")
}

func TestToolsListExposesRegistry(t *testing.T) {
	g := newGateway(t, 200, map[string]any{})

	rec := g.call(t, true, map[string]any{"jsonrpc": "2.0", "id": 7, "method": "tools/list"})
	require.Equal(t, 200, rec.Code)
	result := rpcResult(t, rec)
	list, ok := result["tools"].([]any)
	require.True(t, ok)
	require.Len(t, list, 2)
}

func TestInitializeReportsServerInfo(t *testing.T) {
	g := newGateway(t, 200, map[string]any{})

	rec := g.call(t, true, map[string]any{"jsonrpc": "2.0", "id": 1, "method": "initialize"})
	require.Equal(t, 200, rec.Code)
	result := rpcResult(t, rec)
	assert.Equal(t, shared.ProtocolVersion, result["protocolVersion"])
}

func TestUnknownMethodIsMethodNotFound(t *testing.T) {
	g := newGateway(t, 200, map[string]any{})

	rec := g.call(t, true, map[string]any{"jsonrpc": "2.0", "id": 1, "method": "resources/list"})
	require.Equal(t, 200, rec.Code)
	var res map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	rpcErr, ok := res["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(codeMethodNotFound), rpcErr["code"])
}

func TestSessionHeaderSelectsActor(t *testing.T) {
	g := newGateway(t, 200, map[string]any{"data": map[string]any{"id": "msg_1"}})

	payload := toolCall(tools.ToolSendEmail, map[string]any{"to": "a@b.com"})
	body, _ := json.Marshal(payload)

	for _, key := range []string{"alpha", "alpha", "beta"} {
		req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer test-token")
		req.Header.Set(shared.SessionHeader, key)
		rec := httptest.NewRecorder()
		g.echo.ServeHTTP(rec, req)
		require.Equal(t, 200, rec.Code)
	}
	assert.Equal(t, 2, g.registry.Len())
}
