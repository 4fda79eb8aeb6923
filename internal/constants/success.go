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
	SuccessLinkCreated = APISuccess{Code: CodeLinkCreated, Status: http.StatusCreated}
	SuccessLinkDeleted = APISuccess{Code: CodeLinkDeleted, Status: http.StatusOK}
	SuccessLinksFound  = APISuccess{Code: CodeLinksFound, Status: http.StatusOK}
	SuccessStatsFound  = APISuccess{Code: CodeStatsFound, Status: http.StatusOK}
)

// Traversal success responses
var (
	SuccessTraversalStarted = APISuccess{Code: CodeTraversalStarted, Status: http.StatusOK}
	SuccessTraversalUpdated = APISuccess{Code: CodeTraversalUpdated, Status: http.StatusOK}
)

// Account and admin success responses
var (
	SuccessUserRegistered = APISuccess{Code: CodeUserRegistered, Status: http.StatusCreated}
	SuccessLoggedIn       = APISuccess{Code: CodeLoggedIn, Status: http.StatusOK}
	SuccessProfileFound   = APISuccess{Code: CodeProfileFound, Status: http.StatusOK}
	SuccessHandoffCreated = APISuccess{Code: CodeHandoffCreated, Status: http.StatusOK}
	SuccessSettingsFound  = APISuccess{Code: CodeSettingsFound, Status: http.StatusOK}
	SuccessSettingsSaved  = APISuccess{Code: CodeSettingsSaved, Status: http.StatusOK}
	SuccessUsersFound     = APISuccess{Code: CodeUsersFound, Status: http.StatusOK}
	SuccessUserUpdated    = APISuccess{Code: CodeUserUpdated, Status: http.StatusOK}
)
