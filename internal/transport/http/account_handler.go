package http

import (
	"errors"
	"net/http"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/constants"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/logger"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/model"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/users"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/transport/http/middleware"
	"github.com/r29878448-pixel/Rk-shortner-sub000/pkg/httputils"
	"go.uber.org/zap"
)

// AccountHandler serves the signed-in owner's own profile and requests.
type AccountHandler struct {
	users *users.Service
}

func NewAccountHandler(usersSvc *users.Service) *AccountHandler {
	return &AccountHandler{users: usersSvc}
}

type upgradeRequest struct {
	Plan string `json:"plan" validate:"required,plan"`
}

type withdrawRequest struct {
	Amount float64 `json:"amount" validate:"gt=0"`
}

type handoffResponse struct {
	URL string `json:"url"`
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	httputils.WriteAPISuccess(w, r, constants.SuccessProfileFound, toUserResponse(*user))
}

func (h *AccountHandler) Upgrade(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	var req upgradeRequest
	if !decodeAndValidate(w, r, &req, fieldErrors{"plan": constants.ErrInvalidPlan}) {
		return
	}
	plan, _ := model.ParsePlan(req.Plan)

	link, err := h.users.RequestUpgrade(r.Context(), user.ID, plan)
	if err != nil {
		writeUserError(w, r, err, user.ID)
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessHandoffCreated, handoffResponse{URL: link})
}

func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	var req withdrawRequest
	if !decodeAndValidate(w, r, &req, fieldErrors{"amount": constants.ErrInvalidAmount}) {
		return
	}

	link, err := h.users.RequestWithdrawal(r.Context(), user.ID, req.Amount)
	if err != nil {
		writeUserError(w, r, err, user.ID)
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessHandoffCreated, handoffResponse{URL: link})
}

func writeUserError(w http.ResponseWriter, r *http.Request, err error, userID string) {
	switch {
	case errors.Is(err, users.ErrNotFound):
		httputils.WriteAPIError(w, r, constants.ErrUserNotFound)
	case errors.Is(err, users.ErrInvalidPlan):
		httputils.WriteAPIError(w, r, constants.ErrInvalidPlan.WithMessage(err.Error()))
	case errors.Is(err, users.ErrBelowMinimum):
		httputils.WriteAPIError(w, r, constants.ErrInvalidAmount)
	case errors.Is(err, users.ErrInsufficientBalance):
		httputils.WriteAPIError(w, r, constants.ErrInsufficientBalance)
	default:
		logger.Error("account request failed", zap.Error(err), zap.String("user_id", userID))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
	}
}
