package http

import (
	"errors"
	"net/http"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/constants"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/logger"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/model"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/settings"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/users"
	"github.com/r29878448-pixel/Rk-shortner-sub000/pkg/httputils"
	"go.uber.org/zap"
)

type AdminHandler struct {
	users    *users.Service
	settings *settings.Service
}

func NewAdminHandler(usersSvc *users.Service, settingsSvc *settings.Service) *AdminHandler {
	return &AdminHandler{users: usersSvc, settings: settingsSvc}
}

type applyPlanRequest struct {
	Plan string `json:"plan" validate:"required,plan"`
}

type suspendRequest struct {
	Suspended *bool `json:"suspended" validate:"required"`
}

func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	httputils.WriteAPISuccess(w, r, constants.SuccessSettingsFound, h.settings.Get(r.Context()))
}

func (h *AdminHandler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var req model.Settings
	if !decodeAndValidate(w, r, &req, nil) {
		return
	}

	saved, err := h.settings.Save(r.Context(), req)
	if err != nil {
		if errors.Is(err, settings.ErrInvalid) {
			httputils.WriteAPIError(w, r, constants.ErrInvalidSettings.WithMessage(err.Error()))
			return
		}
		logger.Error("failed to save settings", zap.Error(err))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
		return
	}
	logger.Info("settings saved",
		zap.Int("total_steps", saved.TotalSteps),
		zap.Int("wait_seconds", saved.WaitSeconds),
		zap.Float64("cpm_rate", saved.CPMRate),
	)
	httputils.WriteAPISuccess(w, r, constants.SuccessSettingsSaved, saved)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	all := h.users.List(r.Context())
	out := make([]userResponse, 0, len(all))
	for _, u := range all {
		out = append(out, toUserResponse(u))
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessUsersFound, out)
}

func (h *AdminHandler) ApplyPlan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req applyPlanRequest
	if !decodeAndValidate(w, r, &req, fieldErrors{"plan": constants.ErrInvalidPlan}) {
		return
	}
	plan, _ := model.ParsePlan(req.Plan)

	u, err := h.users.ApplyPlan(r.Context(), id, plan)
	if err != nil {
		writeUserError(w, r, err, id)
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessUserUpdated, toUserResponse(*u))
}

func (h *AdminHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req suspendRequest
	if !decodeAndValidate(w, r, &req, nil) {
		return
	}

	u, err := h.users.SetSuspended(r.Context(), id, *req.Suspended)
	if err != nil {
		writeUserError(w, r, err, id)
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessUserUpdated, toUserResponse(*u))
}
