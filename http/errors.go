package http

// Error codes carried in the "error" field of JSON error responses.
const (
	CodeUnauthorized    = "unauthorized"
	CodeNotFound        = "not_found"
	CodeInvalidKey      = "invalid_key"
	CodeInvalidRequest  = "invalid_request"
	CodePayloadTooLarge = "payload_too_large"
	CodeInternal        = "internal_error"
)
