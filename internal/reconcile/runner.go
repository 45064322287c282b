package reconcile

import (
	"context"
	"errors"
	"log"
	"time"

	billing "caregiving-cloud/internal/billing/domain"
	"caregiving-cloud/internal/charging"
	coverage "caregiving-cloud/internal/coverage/domain"
	masterdata "caregiving-cloud/internal/masterdata/domain"
	"caregiving-cloud/internal/observability/metrics"
	settlement "caregiving-cloud/internal/settlement/domain"
)

// Item is one reconciled aggregate.
type Item struct {
	SubjectType    string `json:"subject_type"`
	SubjectID      string `json:"subject_id"`
	RoundID        string `json:"round_id"`
	StoredAmount   int64  `json:"stored_amount"`
	ComputedAmount int64  `json:"computed_amount"`
	Delta          int64  `json:"delta"`
	Flagged        bool   `json:"flagged"`
}

// Report is the outcome of one reconcile run.
type Report struct {
	MonthStart time.Time `json:"month_start"`
	RanAt      time.Time `json:"ran_at"`
	Checked    int       `json:"checked"`
	Flags      []Item    `json:"flags"`
	Truncated  bool      `json:"truncated"`
}

// Runner recomputes charge amounts for a month's settlements and the
// billings of the same rounds, and flags stored totals that diverge.
type Runner struct {
	settlements settlement.Repository
	billings    billing.Repository
	receptions  masterdata.ReceptionLookup
	rounds      masterdata.CaregivingRoundLookup
	coverages   coverage.Lookup
	cfg         Config
	logger      *log.Logger
}

// NewRunner constructs a runner.
func NewRunner(
	settlements settlement.Repository,
	billings billing.Repository,
	receptions masterdata.ReceptionLookup,
	rounds masterdata.CaregivingRoundLookup,
	coverages coverage.Lookup,
	cfg Config,
	logger *log.Logger,
) (*Runner, error) {
	if settlements == nil {
		return nil, errors.New("reconcile runner: nil settlement repository")
	}
	if billings == nil {
		return nil, errors.New("reconcile runner: nil billing repository")
	}
	if receptions == nil || rounds == nil || coverages == nil {
		return nil, errors.New("reconcile runner: nil lookup")
	}
	return &Runner{
		settlements: settlements,
		billings:    billings,
		receptions:  receptions,
		rounds:      rounds,
		coverages:   coverages,
		cfg:         cfg,
		logger:      logger,
	}, nil
}

// Run reconciles the settlements expected in the given month.
func (r *Runner) Run(ctx context.Context, monthStart time.Time) (Report, error) {
	report := Report{MonthStart: monthStart, RanAt: time.Now().UTC()}
	result := metrics.ResultSuccess

	list, err := r.settlements.ListByExpectedSettlementMonth(ctx, monthStart)
	if err != nil {
		metrics.ObserveReconcileRun(metrics.ResultError, 0)
		return report, err
	}

	for _, agg := range list {
		if report.Checked >= r.cfg.BatchSize {
			report.Truncated = true
			break
		}
		round, err := r.rounds.GetCaregivingRound(ctx, agg.CaregivingRoundID())
		if err != nil {
			result = metrics.ResultError
			r.logf("reconcile round_lookup_failed round_id=%s err=%v", agg.CaregivingRoundID(), err)
			continue
		}
		reception, err := r.receptions.GetReception(ctx, round.ReceptionID)
		if err != nil {
			result = metrics.ResultError
			r.logf("reconcile reception_lookup_failed reception_id=%s err=%v", round.ReceptionID, err)
			continue
		}
		billed, err := r.billings.FindByCaregivingRoundID(ctx, round.ID)
		if err != nil {
			result = metrics.ResultError
			r.logf("reconcile billing_lookup_failed round_id=%s err=%v", round.ID, err)
			continue
		}
		cancel := false
		if billed != nil {
			cancel = billed.CancelAfterArrived()
		}
		computed, err := r.recompute(ctx, reception, round.Period, cancel)
		if err != nil {
			result = metrics.ResultError
			r.logf("reconcile recompute_failed settlement_id=%s err=%v", agg.ID(), err)
			continue
		}
		report.Checked++
		r.compare(&report, "settlement", agg.ID(), round.ID, agg.TotalAmount(), computed)
		if billed != nil {
			report.Checked++
			r.compare(&report, "billing", billed.ID(), round.ID, billed.Charge().TotalAmount, computed)
		}
	}

	metrics.ObserveReconcileRun(result, len(report.Flags))
	r.logf("reconcile_run month=%s checked=%d flags=%d truncated=%t",
		monthStart.Format("2006-01"), report.Checked, len(report.Flags), report.Truncated)
	return report, nil
}

func (r *Runner) recompute(ctx context.Context, reception *masterdata.Reception, period charging.Period, cancel bool) (int64, error) {
	cov, err := r.coverages.GetCoverage(ctx, reception.CoverageID)
	if err != nil {
		return 0, err
	}
	table, err := coverage.NewRateTable(cov, reception.SubscriptionDate)
	if err != nil {
		return 0, err
	}
	charge, err := charging.Calculate(period, table, cancel)
	if err != nil {
		return 0, err
	}
	return charge.TotalAmount, nil
}

func (r *Runner) compare(report *Report, subjectType, subjectID, roundID string, stored, computed int64) {
	delta := stored - computed
	if delta < 0 {
		delta = -delta
	}
	if delta <= r.cfg.Thresholds.AmountAbs {
		return
	}
	if r.cfg.Thresholds.MaxFlags > 0 && len(report.Flags) >= r.cfg.Thresholds.MaxFlags {
		report.Truncated = true
		return
	}
	report.Flags = append(report.Flags, Item{
		SubjectType:    subjectType,
		SubjectID:      subjectID,
		RoundID:        roundID,
		StoredAmount:   stored,
		ComputedAmount: computed,
		Delta:          delta,
		Flagged:        true,
	})
}

func (r *Runner) logf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
