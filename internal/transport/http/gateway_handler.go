package http

import (
	"errors"
	"net/http"
	"strings"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/constants"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/processing/gateway"
	"github.com/r29878448-pixel/Rk-shortner-sub000/pkg/httputils"
)

// GatewayHandler serves the token-based creation endpoint used by bots and
// scripts. The default format is plain text; format=json wraps the same
// outcome in a small object.
type GatewayHandler struct {
	svc *gateway.Service
}

func NewGatewayHandler(svc *gateway.Service) *GatewayHandler {
	return &GatewayHandler{svc: svc}
}

type gatewayJSONResponse struct {
	Status       string `json:"status"`
	ShortenedURL string `json:"shortenedUrl,omitempty"`
	Message      string `json:"message,omitempty"`
}

func (h *GatewayHandler) Create(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	asJSON := strings.EqualFold(q.Get("format"), "json")

	shortURL, err := h.svc.CreateLinkViaToken(r.Context(), q.Get("api"), q.Get("url"))
	if err != nil {
		status, body := gatewayFailure(err)
		writeGateway(w, r, status, body, "", asJSON)
		return
	}
	writeGateway(w, r, http.StatusOK, shortURL, shortURL, asJSON)
}

func gatewayFailure(err error) (int, string) {
	switch {
	case errors.Is(err, gateway.ErrBadURL):
		return http.StatusBadRequest, constants.GatewayInvalidURL
	case errors.Is(err, gateway.ErrParam):
		return http.StatusBadRequest, constants.GatewayParamError
	case errors.Is(err, gateway.ErrSuspended):
		return http.StatusForbidden, constants.GatewaySuspended
	case errors.Is(err, gateway.ErrAuth):
		return http.StatusUnauthorized, constants.GatewayAuthError
	case errors.Is(err, gateway.ErrQuota):
		return http.StatusForbidden, constants.GatewayQuotaExceeded
	default:
		return http.StatusInternalServerError, constants.GatewayInternalError
	}
}

func writeGateway(w http.ResponseWriter, r *http.Request, status int, text, shortURL string, asJSON bool) {
	if !asJSON {
		httputils.WriteText(w, r, status, text)
		return
	}
	resp := gatewayJSONResponse{Status: "success", ShortenedURL: shortURL}
	if shortURL == "" {
		resp = gatewayJSONResponse{Status: "error", Message: text}
	}
	httputils.WriteJSON(w, r, status, resp)
}

// WriteGatewayLimited is the rate-limit rejection in the gateway's format.
func WriteGatewayLimited(w http.ResponseWriter, r *http.Request, _ *redis_rate.Result) {
	writeGateway(w, r, http.StatusTooManyRequests, constants.GatewayRateLimited, "",
		strings.EqualFold(r.URL.Query().Get("format"), "json"))
}
