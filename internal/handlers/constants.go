package handlers

const (
	StateCookieName = "oauth_state"

	ErrInvalidRequestBody  = "Invalid request body"
	ErrUnauthorized        = "Unauthorized"
	ErrForbidden           = "Forbidden"
	ErrNotFound            = "Not found"
	ErrProfileRequired     = "Profile setup required"
	ErrTooManyRequests     = "Too many requests"
	ErrInternalServerError = "Internal server error"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20
