// Package common contains constants and small helpers shared by the portal
// client packages.
package common

// Outbound request headers.
const (
	AuthorizationHeaderName = "Authorization"
	RequestIDHeaderName     = "X-Request-ID"
	BearerScheme            = "Bearer"
)

// AppName is shown in page titles and the CLI banner.
const AppName = "Learning Portal"
