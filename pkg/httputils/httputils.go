package httputils

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/constants"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/logger"
	"go.uber.org/zap"
)

const CorrelationIDHeader = "X-Correlation-Id"

// APIResponse is the envelope for dashboard and admin endpoints. The token
// gateway and health check write bare bodies instead.
type APIResponse struct {
	ResponseTime  time.Time `json:"responseTime"`
	CorrelationId string    `json:"correlationId"`
	Code          string    `json:"code,omitempty"`
	Data          any       `json:"data,omitempty"`
	Error         string    `json:"error,omitempty"`
	Message       string    `json:"message,omitempty"`
}

// CorrelationID returns the request's correlation id, minting one when the
// client sent none. The id is stored on the request and echoed on the
// response, so repeated calls for one request agree.
func CorrelationID(w http.ResponseWriter, r *http.Request) string {
	id := r.Header.Get(CorrelationIDHeader)
	if id == "" {
		id = uuid.NewString()
		r.Header.Set(CorrelationIDHeader, id)
	}
	w.Header().Set(CorrelationIDHeader, id)
	return id
}

func WriteAPIError(w http.ResponseWriter, r *http.Request, apiErr constants.APIError) {
	writeEnvelope(w, r, apiErr.Status, APIResponse{
		Error:   apiErr.Code,
		Message: apiErr.Message,
	})
}

func WriteAPISuccess(w http.ResponseWriter, r *http.Request, apiSuccess constants.APISuccess, data any) {
	writeEnvelope(w, r, apiSuccess.Status, APIResponse{
		Code: apiSuccess.Code,
		Data: data,
	})
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, resp APIResponse) {
	resp.CorrelationId = CorrelationID(w, r)
	resp.ResponseTime = time.Now().UTC()
	WriteJSON(w, r, status, resp)
}

// WriteJSON writes v as the whole body.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	CorrelationID(w, r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode json response", zap.Error(err))
	}
}

// WriteText is for integrations that match on a raw string body.
func WriteText(w http.ResponseWriter, r *http.Request, status int, body string) {
	CorrelationID(w, r)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		logger.Warn("failed to write text response", zap.Error(err))
	}
}
