package server

// HTTP error messages for middleware responses
const (
	ErrMsgUnauthorized = "Unauthorized"
)

// Log messages for server lifecycle and request handling
const (
	LogMsgServerStarting   = "Server starting"
	LogMsgRequestCompleted = "Request completed"
	LogMsgAuthFailed       = "Authentication failed"
)

// HTTP header names
const (
	HeaderAPIKey    = "X-API-Key"
	HeaderRequestID = "X-Request-ID"
)

// PublicPaths are reachable without an API key
var PublicPaths = []string{
	"/healthz",
	"/readyz",
	"/version",
	"/metrics",
}
