package constants

// Error codes used in API responses.
// These are the machine-readable codes returned in the "error" field.
const (
	// Common error codes
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInternalError  = "INTERNAL_ERROR"
	CodeForbidden      = "FORBIDDEN"
	CodeNotFound       = "NOT_FOUND"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeRateLimited    = "RATE_LIMITED"

	// Shortener-specific codes
	CodeInvalidURL    = "INVALID_URL"
	CodeLinkNotFound  = "LINK_NOT_FOUND"
	CodeQuotaExceeded = "QUOTA_EXCEEDED"
	CodeInvalidRange  = "INVALID_RANGE"

	// Gate codes
	CodeStepLocked        = "STEP_LOCKED"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeTraversalNotFound = "TRAVERSAL_NOT_FOUND"

	// Account codes
	CodeAccountSuspended    = "ACCOUNT_SUSPENDED"
	CodeEmailTaken          = "EMAIL_TAKEN"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeInvalidPlan         = "INVALID_PLAN"
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeInvalidSettings     = "INVALID_SETTINGS"

	// Success codes
	CodeLinkCreated      = "LINK_CREATED"
	CodeLinkDeleted      = "LINK_DELETED"
	CodeLinksFound       = "LINKS_FOUND"
	CodeStatsFound       = "STATS_FOUND"
	CodeTraversalStarted = "TRAVERSAL_STARTED"
	CodeTraversalUpdated = "TRAVERSAL_UPDATED"
	CodeUserRegistered   = "USER_REGISTERED"
	CodeLoggedIn         = "LOGGED_IN"
	CodeProfileFound     = "PROFILE_FOUND"
	CodeHandoffCreated   = "HANDOFF_CREATED"
	CodeSettingsFound    = "SETTINGS_FOUND"
	CodeSettingsSaved    = "SETTINGS_SAVED"
	CodeUsersFound       = "USERS_FOUND"
	CodeUserUpdated      = "USER_UPDATED"
)
