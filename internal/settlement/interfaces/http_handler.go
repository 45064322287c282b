package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"caregiving-cloud/internal/audit"
	"caregiving-cloud/internal/auth"
	billingapp "caregiving-cloud/internal/billing/application"
	"caregiving-cloud/internal/ledger"
	"caregiving-cloud/internal/observability/metrics"
	"caregiving-cloud/internal/patching"
	settlementapp "caregiving-cloud/internal/settlement/application"
	settlement "caregiving-cloud/internal/settlement/domain"
)

// Handler handles settlement APIs under /api/v1/settlements.
type Handler struct {
	service     *settlementapp.SettlementService
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *settlementapp.SettlementService, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("settlement handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/api/v1/settlements" && r.Method == http.MethodGet {
		h.handleList(w, r)
		return
	}
	if path == "/api/v1/settlements/export.xlsx" && r.Method == http.MethodGet {
		h.handleExport(w, r, "xlsx")
		return
	}
	if path == "/api/v1/settlements/export.pdf" && r.Method == http.MethodGet {
		h.handleExport(w, r, "pdf")
		return
	}
	if strings.HasPrefix(path, "/api/v1/settlements/") {
		rest := strings.TrimPrefix(path, "/api/v1/settlements/")
		h.handleByID(w, r, rest)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *Handler) handleByID(w http.ResponseWriter, r *http.Request, rest string) {
	if rest == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, r, id)
			return
		case http.MethodPatch:
			h.handleEdit(w, r, id)
			return
		}
	}
	if len(parts) == 2 && parts[1] == "transactions" && r.Method == http.MethodPost {
		h.handleRecordTransaction(w, r, id)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	agg, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(settlementView(agg))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	monthStart, err := parseMonth(r.URL.Query().Get("month"))
	if err != nil {
		http.Error(w, "invalid month, want YYYY-MM", http.StatusBadRequest)
		return
	}
	list, err := h.service.ListByMonth(r.Context(), monthStart)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	views := make([]map[string]any, 0, len(list))
	for _, agg := range list {
		views = append(views, settlementView(agg))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(views)
}

func (h *Handler) handleRecordTransaction(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		TransactionType      string    `json:"transactionType"`
		Amount               int64     `json:"amount"`
		TransactionDate      time.Time `json:"transactionDate"`
		TransactionSubjectID string    `json:"transactionSubjectId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	cmd := billingapp.RecordTransactionCommand{
		TransactionType:      ledger.TransactionType(req.TransactionType),
		Amount:               req.Amount,
		TransactionDate:      req.TransactionDate,
		TransactionSubjectID: req.TransactionSubjectID,
	}
	if err := h.service.RecordTransaction(r.Context(), id, cmd); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	h.logAudit(r, id, "settlement.transaction.record", map[string]any{
		"transactionType": req.TransactionType,
		"amount":          req.Amount,
	})
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		ProgressingStatus   patching.Field[string] `json:"progressingStatus"`
		SettlementManagerID patching.Field[string] `json:"settlementManagerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	cmd := settlement.EditCommand{
		SettlementManagerID: req.SettlementManagerID,
	}
	if status, ok := req.ProgressingStatus.Get(); ok {
		cmd.ProgressingStatus = patching.Set(settlement.ProgressingStatus(status))
	}
	if err := h.service.Edit(r.Context(), id, cmd); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	status, _ := req.ProgressingStatus.Get()
	h.logAudit(r, id, "settlement.edit", map[string]any{
		"progressingStatus": status,
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, format string) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveSettlementExport(format, result, time.Since(start))
	}()

	monthStart, err := parseMonth(r.URL.Query().Get("month"))
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "invalid month, want YYYY-MM", http.StatusBadRequest)
		return
	}
	list, err := h.service.ListByMonth(r.Context(), monthStart)
	if err != nil {
		result = metrics.ResultError
		respondServiceError(w, err)
		return
	}

	var data []byte
	var contentType string
	switch format {
	case "pdf":
		data, err = BuildMonthlySettlementPDF(monthStart, list)
		contentType = "application/pdf"
	default:
		data, err = BuildMonthlySettlementXLSX(monthStart, list)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	h.logAudit(r, monthStart.Format("2006-01"), "settlement.export", map[string]any{"format": format})
}

func (h *Handler) logAudit(r *http.Request, resourceID, action string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	payload, _ := json.Marshal(meta)
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "settlement",
		ResourceID:   resourceID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

func settlementView(agg *settlement.Settlement) map[string]any {
	view := map[string]any{
		"id":                      agg.ID(),
		"receptionId":             agg.ReceptionID(),
		"accidentNumber":          agg.AccidentNumber(),
		"assignedOrganizationId":  agg.AssignedOrganizationID(),
		"caregivingRoundId":       agg.CaregivingRoundID(),
		"caregivingRoundNumber":   agg.CaregivingRoundNumber(),
		"dailyCaregivingCharge":   agg.DailyCaregivingCharge(),
		"basicAmount":             agg.BasicAmount(),
		"additionalAmount":        agg.AdditionalAmount(),
		"totalAmount":             agg.TotalAmount(),
		"lastCalculationDateTime": formatOptionalDateTime(agg.LastCalculationAt()),
		"expectedSettlementDate":  formatOptionalDate(agg.ExpectedSettlementAt()),
		"progressingStatus":       string(agg.Status()),
		"totalDepositAmount":      agg.TotalDepositAmount(),
		"totalWithdrawalAmount":   agg.TotalWithdrawalAmount(),
		"transactions":            agg.Transactions(),
	}
	if !agg.CompletionAt().IsZero() {
		view["settlementCompletionDateTime"] = agg.CompletionAt().Format(time.RFC3339)
		view["settlementManagerId"] = agg.SettlementManagerID()
	}
	if !agg.LastTransactionAt().IsZero() {
		view["lastTransactionDateTime"] = agg.LastTransactionAt().Format(time.RFC3339)
	}
	return view
}

func formatOptionalDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func parseMonth(raw string) (time.Time, error) {
	return time.Parse("2006-01", raw)
}

func respondServiceError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	var transition *settlement.InvalidTransitionError
	switch {
	case errors.Is(err, auth.ErrAccessDenied):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, settlement.ErrSettlementNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.As(err, &transition), errors.Is(err, settlement.ErrTransactionNotAllowed):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}
