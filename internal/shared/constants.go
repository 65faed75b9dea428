package shared

import "time"

// HTTP Client Configuration
const (
	DefaultHTTPTimeout     = 180 * time.Second
	DefaultShutdownTimeout = 10 * time.Minute
)

// Capability Configuration
const (
	// Token budget for the prompt rewrite call. Non-streaming, so this
	// bounds the whole model response.
	EnhanceMaxTokens = 256

	MinImageSteps     = 1
	MaxImageSteps     = 100
	DefaultImageSteps = 4

	ImageContentType  = "image/jpeg"
	ImageCacheControl = "public, max-age=3600"
)

// Protocol Configuration
const (
	ProtocolVersion = "2024-11-05"
	ServerName      = "herald-api"
	ServerVersion   = "1.0.0"

	SessionHeader = "Mcp-Session-Id"
)
