package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/constants"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/auth"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/logger"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/model"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/users"
	"github.com/r29878448-pixel/Rk-shortner-sub000/pkg/httputils"
	"go.uber.org/zap"
)

type AuthHandler struct {
	users  *users.Service
	tokens *auth.Tokens
}

func NewAuthHandler(usersSvc *users.Service, tokens *auth.Tokens) *AuthHandler {
	return &AuthHandler{users: usersSvc, tokens: tokens}
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type userResponse struct {
	ID             string      `json:"id"`
	Email          string      `json:"email"`
	Role           model.Role  `json:"role"`
	Plan           model.Plan  `json:"plan"`
	APIKey         string      `json:"apiKey"`
	Balance        float64     `json:"balance"`
	IsSuspended    bool        `json:"isSuspended"`
	PendingUpgrade *model.Plan `json:"pendingUpgrade,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

func toUserResponse(u model.User) userResponse {
	return userResponse{
		ID:             u.ID,
		Email:          u.Email,
		Role:           u.Role,
		Plan:           u.Plan,
		APIKey:         u.APIKey,
		Balance:        u.Balance,
		IsSuspended:    u.IsSuspended,
		PendingUpgrade: u.PendingUpgrade,
		CreatedAt:      u.CreatedAt,
	}
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      userResponse `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeAndValidate(w, r, &req, nil) {
		return
	}

	u, err := h.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrEmailTaken):
			httputils.WriteAPIError(w, r, constants.ErrEmailTaken)
		case errors.Is(err, users.ErrInvalidInput):
			httputils.WriteAPIError(w, r, constants.ErrInvalidRequestBody)
		default:
			logger.Error("failed to register user", zap.Error(err))
			httputils.WriteAPIError(w, r, constants.ErrInternalError)
		}
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessUserRegistered, toUserResponse(*u))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeAndValidate(w, r, &req, fieldErrors{
		"email":    constants.ErrInvalidCredentials,
		"password": constants.ErrInvalidCredentials,
	}) {
		return
	}

	u, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrSuspended):
			httputils.WriteAPIError(w, r, constants.ErrAccountSuspended)
		default:
			httputils.WriteAPIError(w, r, constants.ErrInvalidCredentials)
		}
		return
	}

	token, expiresAt, err := h.tokens.Issue(*u)
	if err != nil {
		logger.Error("failed to issue token", zap.Error(err), zap.String("user_id", u.ID))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
		return
	}

	httputils.WriteAPISuccess(w, r, constants.SuccessLoggedIn, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      toUserResponse(*u),
	})
}
