package reconcile

import (
	"encoding/json"
	"net/http"
	"time"
)

// Handler exposes a manual reconcile trigger under /api/v1/reconcile.
type Handler struct {
	runner *Runner
}

// NewHandler constructs a handler.
func NewHandler(runner *Runner) *Handler {
	return &Handler{runner: runner}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.runner == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if r.URL.Path != "/api/v1/reconcile/run" || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	monthStart, err := time.Parse("2006-01", r.URL.Query().Get("month"))
	if err != nil {
		http.Error(w, "invalid month, want YYYY-MM", http.StatusBadRequest)
		return
	}
	report, err := h.runner.Run(r.Context(), monthStart)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}
