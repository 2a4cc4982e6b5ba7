package constants

// Error messages used in API responses.
// These are the human-readable messages returned in the "message" field.
const (
	// Common messages
	MsgInvalidRequestBody = "Invalid request body"
	MsgInternalError      = "An internal error occurred"
	MsgUnauthorized       = "Unauthorized"

	// Link-specific messages
	MsgInvalidURL    = "Invalid URL (must be http or https)"
	MsgInvalidAmount = "Amount must be a positive number of minor units"
	MsgLinkNotFound  = "Link not found"
	MsgLinkArchived  = "Link is archived"
)
