package revision

import (
	"encoding/json"
	"net/http"
)

// Handler exposes revision history under /api/v1/revisions.
type Handler struct {
	store Store
}

// NewHandler constructs a handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.store == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if r.URL.Path != "/api/v1/revisions" || r.Method != http.MethodGet {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	subjectType := r.URL.Query().Get("subjectType")
	subjectID := r.URL.Query().Get("subjectId")
	if subjectType != SubjectBilling && subjectType != SubjectSettlement {
		http.Error(w, "subjectType must be billing or settlement", http.StatusBadRequest)
		return
	}
	if subjectID == "" {
		http.Error(w, "subjectId is required", http.StatusBadRequest)
		return
	}

	revisions, err := h.store.ListBySubject(r.Context(), subjectType, subjectID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if revisions == nil {
		revisions = []Revision{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(revisions)
}
