package web

// ContextKey is a custom type used for creating context keys.
// Using a custom type prevents collisions with keys from other packages.
type ContextKey string

// RequestIDContextKey stores the request ID set by the RequestID middleware.
const RequestIDContextKey = ContextKey("request_id")
