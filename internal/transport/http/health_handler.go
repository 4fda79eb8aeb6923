package http

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/infrastructure/logger"
	"github.com/r29878448-pixel/Rk-shortner-sub000/pkg/httputils"
	"go.uber.org/zap"
)

const readinessTimeout = 2 * time.Second

// Check pings one dependency. A nil error means it is reachable.
type Check func(ctx context.Context) error

type healthBody struct {
	Status    string            `json:"status"`
	Storage   string            `json:"storage"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp string            `json:"timestamp"`
}

type HealthHandler struct {
	storage string
	checks  map[string]Check
}

func NewHealthHandler(storage string, checks map[string]Check) *HealthHandler {
	return &HealthHandler{storage: storage, checks: checks}
}

// Health is the liveness probe and never touches a dependency.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputils.WriteJSON(w, r, http.StatusOK, healthBody{
		Status:    "ok",
		Storage:   h.storage,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready runs every dependency check concurrently and answers 503 if any fails.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = h.checks[name](ctx)
		}()
	}
	wg.Wait()

	body := healthBody{
		Status:    "ready",
		Storage:   h.storage,
		Checks:    make(map[string]string, len(names)),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK
	for i, name := range names {
		if err := results[i]; err != nil {
			logger.Warn("readiness check failed", zap.String("dependency", name), zap.Error(err))
			body.Checks[name] = err.Error()
			body.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		body.Checks[name] = "ok"
	}
	httputils.WriteJSON(w, r, status, body)
}

func (h *HealthHandler) Metrics() http.Handler {
	return promhttp.Handler()
}
