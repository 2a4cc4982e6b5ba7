package constants

// Error codes used in API responses.
// These are the machine-readable codes returned in the "error" field.
const (
	// Common error codes
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInternalError  = "INTERNAL_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeUnauthorized   = "UNAUTHORIZED"

	// Link-specific codes
	CodeInvalidURL    = "INVALID_URL"
	CodeInvalidAmount = "INVALID_AMOUNT"
	CodeLinkNotFound  = "LINK_NOT_FOUND"
	CodeLinkArchived  = "LINK_ARCHIVED"

	// Success codes
	CodeLinkCreated = "LINK_CREATED"
	CodeLinkRenewed = "LINK_RENEWED"
	CodeLinkDeleted = "LINK_DELETED"
	CodeLinksFound  = "LINKS_FOUND"
	CodeLinkFound   = "LINK_FOUND"
	CodeLinkChecked = "LINK_CHECKED"
)
