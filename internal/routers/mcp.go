// Package routers
package routers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"herald-api/internal/session"
	"herald-api/internal/setup"
	"herald-api/internal/shared"
	"herald-api/internal/tools"

	"github.com/labstack/echo/v4"
)

// JSON-RPC error codes used by the MCP surface.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type MCPRouter struct {
	registry   *session.Registry
	defaultKey string
}

type MCPRouterConfig struct {
	// DefaultSessionKey is used when a connection carries no session id
	// header. A single shared key collapses all such connections onto one
	// actor, which is the intended single-session simplification.
	DefaultSessionKey string
}

func RegisterMCPRoutes(e *echo.Group, config MCPRouterConfig, registry *session.Registry) error {
	if config.DefaultSessionKey == "" {
		return errors.New("default session key is required")
	}
	router := &MCPRouter{registry: registry, defaultKey: config.DefaultSessionKey}
	e.POST("/mcp", router.Handle)
	return nil
}

// Handle serves one JSON-RPC message. Tool calls whose result is binary
// (generateImage) leave the JSON-RPC framing: success is served as raw image
// bytes with a cache directive, failure as a non-2xx JSON diagnostic.
func (mr *MCPRouter) Handle(cc echo.Context) error {
	c := cc.(*setup.Context)

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		c.Log.Errorw("Failed to read request body", "error", err.Error())
		return c.JSON(400, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: codeParseError, Message: "failed reading request body"}})
	}

	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(400, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: codeParseError, Message: "invalid JSON"}})
	}
	if req.Method == "" {
		return c.JSON(400, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: codeInvalidRequest, Message: "method is required"}})
	}

	c.Log = c.Log.With("rpc_method", req.Method)

	switch req.Method {
	case "initialize":
		return result(c, req.ID, map[string]any{
			"protocolVersion": shared.ProtocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo": map[string]any{
				"name":    shared.ServerName,
				"version": shared.ServerVersion,
			},
		})
	case "ping":
		return result(c, req.ID, map[string]any{})
	case "tools/list":
		actor := mr.resolve(c)
		return result(c, req.ID, map[string]any{"tools": actor.Tools()})
	case "tools/call":
		return mr.handleToolCall(c, req)
	default:
		return c.JSON(200, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: codeMethodNotFound, Message: "method not found: " + req.Method}})
	}
}

func (mr *MCPRouter) handleToolCall(c *setup.Context, req rpcRequest) error {
	var call tools.CallRequest
	if len(req.Params) == 0 {
		return c.JSON(200, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: codeInvalidParams, Message: "params is required"}})
	}
	if err := json.Unmarshal(req.Params, &call); err != nil || call.Name == "" {
		return c.JSON(200, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: codeInvalidParams, Message: "params.name is required"}})
	}

	actor := mr.resolve(c)
	c.Log = c.Log.With("tool", call.Name, "session_key", actor.Key())

	outcome := actor.Dispatch(c.Request().Context(), call)

	switch {
	case outcome.Binary != nil:
		c.Response().Header().Set("Cache-Control", outcome.Binary.CacheControl)
		return c.Blob(http.StatusOK, outcome.Binary.ContentType, outcome.Binary.Bytes)
	case outcome.Err != nil:
		return c.JSON(outcome.Err.StatusCode, map[string]string{"error": outcome.Err.Err.Error()})
	default:
		return result(c, req.ID, outcome.Envelope)
	}
}

// resolve picks the session actor for this connection: the session header
// when present, the shared default key otherwise. The bearer credential is
// attached to the actor at first construction.
func (mr *MCPRouter) resolve(c *setup.Context) *session.Actor {
	key := c.Request().Header.Get(shared.SessionHeader)
	if key == "" {
		key = mr.defaultKey
	}
	return mr.registry.Resolve(key, c.Credential)
}

func result(c *setup.Context, id any, payload any) error {
	return c.JSON(200, rpcResponse{JSONRPC: "2.0", ID: id, Result: payload})
}
