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
	billing "caregiving-cloud/internal/billing/domain"
	"caregiving-cloud/internal/ledger"
)

// Handler handles billing APIs under /api/v1/billings.
type Handler struct {
	service     *billingapp.BillingService
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *billingapp.BillingService, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("billing handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if !strings.HasPrefix(path, "/api/v1/billings/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	rest := strings.TrimPrefix(path, "/api/v1/billings/")
	if rest == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	if len(parts) == 1 && r.Method == http.MethodGet {
		h.handleGet(w, r, id)
		return
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "wait-deposit":
			if r.Method == http.MethodPost {
				h.handleWaitDeposit(w, r, id)
				return
			}
		case "transactions":
			if r.Method == http.MethodPost {
				h.handleRecordTransaction(w, r, id)
				return
			}
		}
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
	_ = json.NewEncoder(w).Encode(billingView(agg))
}

func (h *Handler) handleWaitDeposit(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.service.WaitDeposit(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	h.logAudit(r, id, "billing.wait_deposit", nil)
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
	h.logAudit(r, id, "billing.transaction.record", map[string]any{
		"transactionType": req.TransactionType,
		"amount":          req.Amount,
	})
}

func (h *Handler) logAudit(r *http.Request, billingID, action string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	payload, _ := json.Marshal(meta)
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "billing",
		ResourceID:   billingID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

func billingView(agg *billing.Billing) map[string]any {
	lines := agg.Charge().BasicAmountLines
	var basicAmount int64
	for _, line := range lines {
		basicAmount += line.TotalAmount
	}
	view := map[string]any{
		"id":                     agg.ID(),
		"receptionId":            agg.ReceptionID(),
		"accidentNumber":         agg.AccidentNumber(),
		"subscriptionDate":       agg.SubscriptionDate().Format("2006-01-02"),
		"assignedOrganizationId": agg.AssignedOrganizationID(),
		"caregivingRoundId":      agg.CaregivingRoundID(),
		"caregivingRoundNumber":  agg.RoundNumber(),
		"startDateTime":          agg.Period().Start.Format(time.RFC3339),
		"isCancelAfterArrived":   agg.CancelAfterArrived(),
		"progressingStatus":      string(agg.Status()),
		"basicAmounts":           lines,
		"basicAmount":            basicAmount,
		"additionalAmount":       agg.Charge().AdditionalAmount,
		"totalAmount":            agg.Charge().TotalAmount,
		"additionalHours":        agg.Charge().AdditionalHours,
		"totalDepositAmount":     agg.TotalDepositAmount(),
		"totalWithdrawalAmount":  agg.TotalWithdrawalAmount(),
		"transactions":           agg.Transactions(),
	}
	if !agg.Period().End.IsZero() {
		view["endDateTime"] = agg.Period().End.Format(time.RFC3339)
	}
	if !agg.BillingDate().IsZero() {
		view["billingDate"] = agg.BillingDate().Format("2006-01-02")
	}
	if !agg.LastTransactionDate().IsZero() {
		view["lastTransactionDateTime"] = agg.LastTransactionDate().Format(time.RFC3339)
	}
	return view
}

func respondServiceError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, auth.ErrAccessDenied):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, billing.ErrBillingNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}
