// Package api defines the public HTTP surface of the htnql gateway.
package api

// Version is the gateway API version.
const Version = "0.1.0"

// Endpoints.
const (
	EndpointReport  = "/api/v1/report"
	EndpointExplain = "/api/v1/report/explain"
	EndpointHealth  = "/health"
	EndpointReady   = "/readyz"
)

// HTTP headers.
const (
	HeaderContentType = "Content-Type"
	HeaderRequestID   = "X-Request-ID"
	HeaderQueryID     = "X-Query-ID"
)

// Content types.
const (
	ContentTypeJSON = "application/json"
)
