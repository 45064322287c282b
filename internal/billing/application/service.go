package application

import (
	"context"
	"errors"
	"time"

	"caregiving-cloud/internal/auth"
	billing "caregiving-cloud/internal/billing/domain"
	"caregiving-cloud/internal/caregiving/events"
	"caregiving-cloud/internal/charging"
	coverage "caregiving-cloud/internal/coverage/domain"
	"caregiving-cloud/internal/ledger"
	masterdata "caregiving-cloud/internal/masterdata/domain"
	"caregiving-cloud/internal/observability/metrics"
)

// EventPublisher emits domain events after the aggregate transaction.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// RecordTransactionCommand records one deposit or withdrawal.
type RecordTransactionCommand struct {
	TransactionType      ledger.TransactionType
	Amount               int64
	TransactionDate      time.Time
	TransactionSubjectID string
}

// BillingService handles billing use cases.
type BillingService struct {
	repo       billing.Repository
	receptions masterdata.ReceptionLookup
	rounds     masterdata.CaregivingRoundLookup
	coverages  coverage.Lookup
	publisher  EventPublisher
	access     auth.AccessChecker
	clock      Clock
}

// NewBillingService constructs the service.
func NewBillingService(
	repo billing.Repository,
	receptions masterdata.ReceptionLookup,
	rounds masterdata.CaregivingRoundLookup,
	coverages coverage.Lookup,
	publisher EventPublisher,
	access auth.AccessChecker,
	clock Clock,
) (*BillingService, error) {
	if repo == nil {
		return nil, errors.New("billing service: nil repository")
	}
	if receptions == nil {
		return nil, errors.New("billing service: nil reception lookup")
	}
	if rounds == nil {
		return nil, errors.New("billing service: nil caregiving round lookup")
	}
	if coverages == nil {
		return nil, errors.New("billing service: nil coverage lookup")
	}
	if access == nil {
		access = auth.AllowAllChecker{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &BillingService{
		repo:       repo,
		receptions: receptions,
		rounds:     rounds,
		coverages:  coverages,
		publisher:  publisher,
		access:     access,
		clock:      clock,
	}, nil
}

// HandleCaregivingChargeCalculated creates a billing for a round whose charge
// was calculated for the first time. A round that already owns a billing is
// left alone; recalculations arrive as charge-modified events.
func (s *BillingService) HandleCaregivingChargeCalculated(ctx context.Context, ev events.CaregivingChargeCalculated) error {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveBillingRecompute(result, time.Since(start))
	}()

	existing, err := s.repo.FindByCaregivingRoundID(ctx, ev.CaregivingRoundID)
	if err != nil {
		result = metrics.ResultError
		return err
	}
	if existing != nil {
		return nil
	}

	round, err := s.rounds.GetCaregivingRound(ctx, ev.CaregivingRoundID)
	if err != nil {
		result = metrics.ResultError
		return err
	}
	reception, err := s.receptions.GetReception(ctx, round.ReceptionID)
	if err != nil {
		result = metrics.ResultError
		return err
	}
	table, err := s.rateTable(ctx, reception.CoverageID, reception.SubscriptionDate)
	if err != nil {
		result = metrics.ResultError
		return err
	}
	charge, err := charging.Calculate(round.Period, table, ev.CancelAfterArrived)
	if err != nil {
		result = metrics.ResultError
		return err
	}

	agg, err := billing.NewBilling(billing.NewBillingID(), reception, round, ev.CancelAfterArrived, charge, s.clock.Now())
	if err != nil {
		result = metrics.ResultError
		return err
	}
	return s.saveAndPublish(ctx, agg, &result)
}

// HandleCaregivingRoundModified recomputes a billing when the round's
// interval actually changed. Unaffected events alter nothing.
func (s *BillingService) HandleCaregivingRoundModified(ctx context.Context, ev events.CaregivingRoundModified) error {
	agg, err := s.repo.FindByCaregivingRoundID(ctx, ev.CaregivingRoundID)
	if err != nil {
		return err
	}
	if agg == nil {
		return billing.ErrBillingNotFound
	}
	if !agg.WillBeAffectedBy(ev) {
		return nil
	}

	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveBillingRecompute(result, time.Since(start))
	}()

	table, err := s.rateTable(ctx, agg.CoverageID(), agg.SubscriptionDate())
	if err != nil {
		result = metrics.ResultError
		return err
	}
	if err := agg.HandleCaregivingRoundModified(ev, table, s.clock.Now()); err != nil {
		result = metrics.ResultError
		return err
	}
	return s.saveAndPublish(ctx, agg, &result)
}

// HandleCaregivingChargeModified propagates an external recalculation.
func (s *BillingService) HandleCaregivingChargeModified(ctx context.Context, ev events.CaregivingChargeModified) error {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveBillingRecompute(result, time.Since(start))
	}()

	agg, err := s.repo.FindByCaregivingRoundID(ctx, ev.CaregivingRoundID)
	if err != nil {
		result = metrics.ResultError
		return err
	}
	if agg == nil {
		result = metrics.ResultError
		return billing.ErrBillingNotFound
	}
	table, err := s.rateTable(ctx, agg.CoverageID(), agg.SubscriptionDate())
	if err != nil {
		result = metrics.ResultError
		return err
	}
	if err := agg.HandleCaregivingChargeModified(ev, table, s.clock.Now()); err != nil {
		result = metrics.ResultError
		return err
	}
	return s.saveAndPublish(ctx, agg, &result)
}

// HandleReceptionModified refreshes denormalized reception attributes on all
// billings of the reception.
func (s *BillingService) HandleReceptionModified(ctx context.Context, ev events.ReceptionModified) error {
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

// WaitDeposit marks a billing as billed after a usage certificate request.
func (s *BillingService) WaitDeposit(ctx context.Context, billingID string) error {
	subject := auth.SubjectFromContext(ctx)
	if err := s.access.Check(ctx, subject, auth.ActionBillingWaitDeposit, billingID); err != nil {
		return err
	}
	agg, err := s.repo.FindByID(ctx, billingID)
	if err != nil {
		return err
	}
	if agg == nil {
		return billing.ErrBillingNotFound
	}
	agg.WaitDeposit(s.clock.Now())
	return s.saveAndPublish(ctx, agg, nil)
}

// RecordTransaction appends a deposit or withdrawal to a billing's ledger.
func (s *BillingService) RecordTransaction(ctx context.Context, billingID string, cmd RecordTransactionCommand) error {
	subject := auth.SubjectFromContext(ctx)
	if err := s.access.Check(ctx, subject, auth.ActionBillingRecordTransaction, billingID); err != nil {
		return err
	}
	agg, err := s.repo.FindByID(ctx, billingID)
	if err != nil {
		return err
	}
	if agg == nil {
		return billing.ErrBillingNotFound
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
	return s.saveAndPublish(ctx, agg, &result)
}

// Get loads a billing by id.
func (s *BillingService) Get(ctx context.Context, billingID string) (*billing.Billing, error) {
	subject := auth.SubjectFromContext(ctx)
	if err := s.access.Check(ctx, subject, auth.ActionBillingRead, billingID); err != nil {
		return nil, err
	}
	agg, err := s.repo.FindByID(ctx, billingID)
	if err != nil {
		return nil, err
	}
	if agg == nil {
		return nil, billing.ErrBillingNotFound
	}
	return agg, nil
}

// rateTable fetches coverage data fresh on every recompute; rate tables are
// never cached across calls because rates can change between them.
func (s *BillingService) rateTable(ctx context.Context, coverageID string, subscriptionDate time.Time) (coverage.RateTable, error) {
	cov, err := s.coverages.GetCoverage(ctx, coverageID)
	if err != nil {
		return coverage.RateTable{}, err
	}
	return coverage.NewRateTable(cov, subscriptionDate)
}

func (s *BillingService) saveAndPublish(ctx context.Context, agg *billing.Billing, result *string) error {
	pending := agg.DrainEvents()
	if err := s.repo.Save(ctx, agg); err != nil {
		if result != nil {
			*result = metrics.ResultError
		}
		return err
	}
	return s.publish(ctx, pending)
}

// publish delivers events in emission order; delivery is fire-and-forget for
// the aggregate, which is already committed.
func (s *BillingService) publish(ctx context.Context, pending []any) error {
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
