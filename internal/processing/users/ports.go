package users

import "errors"

var (
	ErrNotFound            = errors.New("user not found")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidInput        = errors.New("invalid user input")
	ErrSuspended           = errors.New("account suspended")
	ErrInvalidPlan         = errors.New("invalid plan")
	ErrBelowMinimum        = errors.New("amount below minimum withdrawal")
	ErrInsufficientBalance = errors.New("amount exceeds balance")
)

const minPasswordLength = 8
