package constants

import "net/http"

// APISuccess represents a standardized API success response with code and HTTP status.
// Use these predefined success constants for consistent API responses across the application.
type APISuccess struct {
	Code   string
	Status int
}

// Link-related success responses
var (
	SuccessLinkCreated = APISuccess{
		Code:   CodeLinkCreated,
		Status: http.StatusCreated,
	}
	SuccessLinkRenewed = APISuccess{
		Code:   CodeLinkRenewed,
		Status: http.StatusOK,
	}
	SuccessLinkArchived = APISuccess{
		Code:   CodeLinkArchived,
		Status: http.StatusOK,
	}
	SuccessLinkDeleted = APISuccess{
		Code:   CodeLinkDeleted,
		Status: http.StatusOK,
	}
	SuccessLinksFound = APISuccess{
		Code:   CodeLinksFound,
		Status: http.StatusOK,
	}
	SuccessLinkFound = APISuccess{
		Code:   CodeLinkFound,
		Status: http.StatusOK,
	}
	SuccessLinkChecked = APISuccess{
		Code:   CodeLinkChecked,
		Status: http.StatusOK,
	}
)
