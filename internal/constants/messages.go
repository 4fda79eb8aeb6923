package constants

// Error messages used in API responses.
// These are the human-readable messages returned in the "message" field.
const (
	// Common messages
	MsgInvalidRequestBody = "Invalid request body"
	MsgInternalError      = "An internal error occurred"
	MsgUnauthorized       = "Unauthorized"
	MsgForbidden          = "Admin role required"
	MsgRateLimited        = "Too many requests"

	// Shortener-specific messages
	MsgInvalidURL    = "Invalid URL (must be http or https)"
	MsgLinkNotFound  = "Link not found"
	MsgQuotaExceeded = "Plan limit reached"
	MsgInvalidRange  = "Invalid date range"

	// Gate messages
	MsgStepLocked        = "Current step is not unlocked yet"
	MsgInvalidTransition = "Action not allowed in the current step"
	MsgTraversalNotFound = "Traversal not found or expired"

	// Account messages
	MsgAccountSuspended    = "Account suspended"
	MsgEmailTaken          = "Email already registered"
	MsgInvalidCredentials  = "Invalid email or password"
	MsgInvalidPlan         = "Invalid plan"
	MsgInvalidAmount       = "Amount is below the minimum withdrawal"
	MsgInsufficientBalance = "Amount exceeds available balance"
	MsgUserNotFound        = "User not found"
	MsgInvalidSettings     = "Invalid settings"
)

// Plain-text responses of the token gateway. Integrations match on the
// prefix before the colon.
const (
	GatewayAuthError     = "AUTH_ERROR: Invalid API Token"
	GatewaySuspended     = "AUTH_ERROR: Account suspended"
	GatewayQuotaExceeded = "QUOTA_EXCEEDED: Plan limit reached"
	GatewayParamError    = "PARAM_ERROR: api & url required"
	GatewayInvalidURL    = "PARAM_ERROR: url must be an absolute http(s) url"
	GatewayRateLimited   = "RATE_LIMITED: Too many requests"
	GatewayInternalError = "INTERNAL_ERROR: Try again later"
)
