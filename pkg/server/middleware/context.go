package middleware

import "context"

// contextKey is a private type for context keys defined in this package.
type contextKey string

const (
	// requestIDKey stores the request ID in the request context.
	requestIDKey contextKey = "request_id"
)

// GetRequestID returns the request ID from the context, or "" when the
// request did not pass through RequestIDMiddleware.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
