package constants

import "net/http"

// APIError is what an error response carries: a stable code for clients,
// a human message and the HTTP status.
type APIError struct {
	Code    string
	Message string
	Status  int
}

// WithMessage keeps the code and status but replaces the message.
func (e APIError) WithMessage(message string) APIError {
	e.Message = message
	return e
}

func apiError(code, message string, status int) APIError {
	return APIError{Code: code, Message: message, Status: status}
}

var (
	ErrInvalidRequestBody = apiError(CodeInvalidRequest, MsgInvalidRequestBody, http.StatusBadRequest)
	ErrInternalError      = apiError(CodeInternalError, MsgInternalError, http.StatusInternalServerError)
	ErrUnauthorized       = apiError(CodeUnauthorized, MsgUnauthorized, http.StatusUnauthorized)
	ErrForbidden          = apiError(CodeForbidden, MsgForbidden, http.StatusForbidden)
	ErrRateLimited        = apiError(CodeRateLimited, MsgRateLimited, http.StatusTooManyRequests)
)

// Link errors
var (
	ErrInvalidURL    = apiError(CodeInvalidURL, MsgInvalidURL, http.StatusBadRequest)
	ErrLinkNotFound  = apiError(CodeLinkNotFound, MsgLinkNotFound, http.StatusNotFound)
	ErrQuotaExceeded = apiError(CodeQuotaExceeded, MsgQuotaExceeded, http.StatusForbidden)
	ErrInvalidRange  = apiError(CodeInvalidRange, MsgInvalidRange, http.StatusBadRequest)
)

// Gate errors
var (
	ErrStepLocked        = apiError(CodeStepLocked, MsgStepLocked, http.StatusConflict)
	ErrInvalidTransition = apiError(CodeInvalidTransition, MsgInvalidTransition, http.StatusConflict)
	ErrTraversalNotFound = apiError(CodeTraversalNotFound, MsgTraversalNotFound, http.StatusNotFound)
)

// Account errors
var (
	ErrAccountSuspended    = apiError(CodeAccountSuspended, MsgAccountSuspended, http.StatusForbidden)
	ErrEmailTaken          = apiError(CodeEmailTaken, MsgEmailTaken, http.StatusConflict)
	ErrInvalidCredentials  = apiError(CodeInvalidCredentials, MsgInvalidCredentials, http.StatusUnauthorized)
	ErrInvalidPlan         = apiError(CodeInvalidPlan, MsgInvalidPlan, http.StatusBadRequest)
	ErrInvalidAmount       = apiError(CodeInvalidAmount, MsgInvalidAmount, http.StatusBadRequest)
	ErrInsufficientBalance = apiError(CodeInsufficientBalance, MsgInsufficientBalance, http.StatusBadRequest)
	ErrUserNotFound        = apiError(CodeUserNotFound, MsgUserNotFound, http.StatusNotFound)
	ErrInvalidSettings     = apiError(CodeInvalidSettings, MsgInvalidSettings, http.StatusBadRequest)
)
