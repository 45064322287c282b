package application

import (
	"context"
	"errors"
	"time"

	"caregiving-cloud/internal/auth"
	billingapp "caregiving-cloud/internal/billing/application"
	"caregiving-cloud/internal/caregiving/events"
	"caregiving-cloud/internal/charging"
	coverage "caregiving-cloud/internal/coverage/domain"
	masterdata "caregiving-cloud/internal/masterdata/domain"
	"caregiving-cloud/internal/observability/metrics"
	settlement "caregiving-cloud/internal/settlement/domain"
)

// SettlementService handles settlement use cases.
type SettlementService struct {
	repo       settlement.Repository
	receptions masterdata.ReceptionLookup
	rounds     masterdata.CaregivingRoundLookup
	coverages  coverage.Lookup
	publisher  billingapp.EventPublisher
	access     auth.AccessChecker
	clock      billingapp.Clock
}

// NewSettlementService constructs the service.
func NewSettlementService(
	repo settlement.Repository,
	receptions masterdata.ReceptionLookup,
	rounds masterdata.CaregivingRoundLookup,
	coverages coverage.Lookup,
	publisher billingapp.EventPublisher,
	access auth.AccessChecker,
	clock billingapp.Clock,
) (*SettlementService, error) {
	if repo == nil {
		return nil, errors.New("settlement service: nil repository")
	}
	if receptions == nil {
		return nil, errors.New("settlement service: nil reception lookup")
	}
	if rounds == nil {
		return nil, errors.New("settlement service: nil caregiving round lookup")
	}
	if coverages == nil {
		return nil, errors.New("settlement service: nil coverage lookup")
	}
	if access == nil {
		access = auth.AllowAllChecker{}
	}
	if clock == nil {
		clock = billingapp.SystemClock{}
	}
	return &SettlementService{
		repo:       repo,
		receptions: receptions,
		rounds:     rounds,
		coverages:  coverages,
		publisher:  publisher,
		access:     access,
		clock:      clock,
	}, nil
}

// HandleCaregivingChargeCalculated creates the settlement for a round whose
// charge was calculated for the first time.
func (s *SettlementService) HandleCaregivingChargeCalculated(ctx context.Context, ev events.CaregivingChargeCalculated) error {
	existing, err := s.repo.FindByCaregivingRoundID(ctx, ev.CaregivingRoundID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	round, err := s.rounds.GetCaregivingRound(ctx, ev.CaregivingRoundID)
	if err != nil {
		return err
	}
	reception, err := s.receptions.GetReception(ctx, round.ReceptionID)
	if err != nil {
		return err
	}
	charge, dailyCharge, err := s.recalculate(ctx, reception, round.Period, ev.CancelAfterArrived)
	if err != nil {
		return err
	}

	agg, err := settlement.NewSettlement(settlement.NewSettlementID(), reception, round, charge, dailyCharge, s.clock.Now())
	if err != nil {
		return err
	}
	return s.saveAndPublish(ctx, agg)
}

// HandleCaregivingChargeModified absorbs a recalculated charge; a confirm
// moves the settlement from CONFIRMED to WAITING.
func (s *SettlementService) HandleCaregivingChargeModified(ctx context.Context, ev events.CaregivingChargeModified) error {
	agg, err := s.repo.FindByCaregivingRoundID(ctx, ev.CaregivingRoundID)
	if err != nil {
		return err
	}
	if agg == nil {
		return settlement.ErrSettlementNotFound
	}

	round, err := s.rounds.GetCaregivingRound(ctx, ev.CaregivingRoundID)
	if err != nil {
		return err
	}
	reception, err := s.receptions.GetReception(ctx, round.ReceptionID)
	if err != nil {
		return err
	}
	cancel := false
	if value, ok := ev.CancelAfterArrived.Get(); ok {
		cancel = value
	}
	charge, dailyCharge, err := s.recalculate(ctx, reception, round.Period, cancel)
	if err != nil {
		return err
	}

	agg.ApplyCharge(charge, dailyCharge, ev.ConfirmStatus, s.clock.Now())
	return s.saveAndPublish(ctx, agg)
}

// HandleReceptionModified refreshes denormalized reception attributes on all
// settlements of the reception.
func (s *SettlementService) HandleReceptionModified(ctx context.Context, ev events.ReceptionModified) error {
	aggregates, err := s.repo.ListByReceptionID(ctx, ev.ReceptionID)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	for _, agg := range aggregates {
		agg.HandleReceptionModified(ev, now)
		pending := agg.DrainEvents()
		if len(pending) == 0 {
			continue
		}
		if err := s.repo.Save(ctx, agg); err != nil {
			return err
		}
		if err := s.publish(ctx, pending); err != nil {
			return err
		}
	}
	return nil
}

// RecordTransaction appends a deposit or withdrawal to a settlement's ledger.
func (s *SettlementService) RecordTransaction(ctx context.Context, settlementID string, cmd billingapp.RecordTransactionCommand) error {
	subject := auth.SubjectFromContext(ctx)
	if err := s.access.Check(ctx, subject, auth.ActionSettlementRecordTransaction, settlementID); err != nil {
		return err
	}
	agg, err := s.repo.FindByID(ctx, settlementID)
	if err != nil {
		return err
	}
	if agg == nil {
		return settlement.ErrSettlementNotFound
	}

	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveTransactionRecord(result, time.Since(start))
	}()

	transactionSubject := cmd.TransactionSubjectID
	if transactionSubject == "" {
		transactionSubject = subject
	}
	if _, err := agg.RecordTransaction(cmd.TransactionType, cmd.Amount, cmd.TransactionDate, transactionSubject, s.clock.Now()); err != nil {
		result = metrics.ResultError
		return err
	}
	if err := s.saveAndPublish(ctx, agg); err != nil {
		result = metrics.ResultError
		return err
	}
	return nil
}

// Edit applies an administrative update; completing a settlement records the
// closing withdrawal under the acting manager's identity.
func (s *SettlementService) Edit(ctx context.Context, settlementID string, cmd settlement.EditCommand) error {
	subject := auth.SubjectFromContext(ctx)
	if err := s.access.Check(ctx, subject, auth.ActionSettlementComplete, settlementID); err != nil {
		return err
	}
	agg, err := s.repo.FindByID(ctx, settlementID)
	if err != nil {
		return err
	}
	if agg == nil {
		return settlement.ErrSettlementNotFound
	}

	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveSettlementComplete(result, time.Since(start))
	}()

	if err := agg.Edit(cmd, subject, s.clock.Now()); err != nil {
		result = metrics.ResultError
		return err
	}
	if err := s.saveAndPublish(ctx, agg); err != nil {
		result = metrics.ResultError
		return err
	}
	return nil
}

// Get loads a settlement by id.
func (s *SettlementService) Get(ctx context.Context, settlementID string) (*settlement.Settlement, error) {
	subject := auth.SubjectFromContext(ctx)
	if err := s.access.Check(ctx, subject, auth.ActionSettlementRead, settlementID); err != nil {
		return nil, err
	}
	agg, err := s.repo.FindByID(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	if agg == nil {
		return nil, settlement.ErrSettlementNotFound
	}
	return agg, nil
}

// ListByMonth returns settlements expected in a month.
func (s *SettlementService) ListByMonth(ctx context.Context, monthStart time.Time) ([]*settlement.Settlement, error) {
	subject := auth.SubjectFromContext(ctx)
	if err := s.access.Check(ctx, subject, auth.ActionSettlementRead, monthStart.Format("2006-01")); err != nil {
		return nil, err
	}
	return s.repo.ListByExpectedSettlementMonth(ctx, monthStart)
}

// recalculate fetches coverage data fresh and recomputes amounts; rate tables
// are never cached across calls.
func (s *SettlementService) recalculate(ctx context.Context, reception *masterdata.Reception, period charging.Period, cancel bool) (charging.Result, int64, error) {
	cov, err := s.coverages.GetCoverage(ctx, reception.CoverageID)
	if err != nil {
		return charging.Result{}, 0, err
	}
	table, err := coverage.NewRateTable(cov, reception.SubscriptionDate)
	if err != nil {
		return charging.Result{}, 0, err
	}
	charge, err := charging.Calculate(period, table, cancel)
	if err != nil {
		return charging.Result{}, 0, err
	}
	dailyCharge, err := table.DailyChargeAt(period.Start)
	if err != nil {
		return charging.Result{}, 0, err
	}
	return charge, dailyCharge, nil
}

func (s *SettlementService) saveAndPublish(ctx context.Context, agg *settlement.Settlement) error {
	pending := agg.DrainEvents()
	if err := s.repo.Save(ctx, agg); err != nil {
		return err
	}
	return s.publish(ctx, pending)
}

func (s *SettlementService) publish(ctx context.Context, pending []any) error {
	if s.publisher == nil {
		return nil
	}
	for _, event := range pending {
		if err := s.publisher.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
