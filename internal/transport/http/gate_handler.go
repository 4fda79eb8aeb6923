package http

import (
	"errors"
	"net/http"

	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/constants"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/logger"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/model"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/gate"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/ledger"
	"github.com/r29878448-pixel/Rk-shortner-sub000/pkg/httputils"
	"go.uber.org/zap"
)

// GateHandler exposes the redirect gate: a short code opens a traversal
// which the visitor drives step by step until the destination is revealed.
type GateHandler struct {
	engine *gate.Engine
}

func NewGateHandler(engine *gate.Engine) *GateHandler {
	return &GateHandler{engine: engine}
}

func (h *GateHandler) Start(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	view, err := h.engine.Start(r.Context(), code, model.ClientMeta{
		Referrer:  r.Referer(),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.writeError(w, r, err, code)
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessTraversalStarted, view)
}

func (h *GateHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.engine.Get(r.Context(), r.PathValue("id"))
	h.respond(w, r, view, err)
}

func (h *GateHandler) Verify(w http.ResponseWriter, r *http.Request) {
	view, err := h.engine.Verify(r.Context(), r.PathValue("id"))
	h.respond(w, r, view, err)
}

func (h *GateHandler) Continue(w http.ResponseWriter, r *http.Request) {
	view, err := h.engine.Continue(r.Context(), r.PathValue("id"))
	h.respond(w, r, view, err)
}

func (h *GateHandler) respond(w http.ResponseWriter, r *http.Request, view gate.View, err error) {
	if err != nil {
		h.writeError(w, r, err, r.PathValue("id"))
		return
	}
	httputils.WriteAPISuccess(w, r, constants.SuccessTraversalUpdated, view)
}

func (h *GateHandler) writeError(w http.ResponseWriter, r *http.Request, err error, ref string) {
	switch {
	case errors.Is(err, gate.ErrNotFound), ledger.IsNotFound(err):
		httputils.WriteAPIError(w, r, constants.ErrLinkNotFound)
	case errors.Is(err, gate.ErrSessionNotFound):
		httputils.WriteAPIError(w, r, constants.ErrTraversalNotFound)
	case errors.Is(err, gate.ErrStepLocked):
		httputils.WriteAPIError(w, r, constants.ErrStepLocked)
	case errors.Is(err, gate.ErrInvalidTransition):
		httputils.WriteAPIError(w, r, constants.ErrInvalidTransition)
	default:
		logger.Error("gate request failed", zap.Error(err), zap.String("ref", ref))
		httputils.WriteAPIError(w, r, constants.ErrInternalError)
	}
}
