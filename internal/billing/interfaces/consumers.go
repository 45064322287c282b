package interfaces

import (
	"context"

	billingapp "caregiving-cloud/internal/billing/application"
	"caregiving-cloud/internal/caregiving/events"
	"caregiving-cloud/internal/eventing"
	"caregiving-cloud/internal/eventing/eventbus"
)

// WireBillingEventBus registers billing event handlers on the event bus.
func WireBillingEventBus(bus eventbus.EventBus, service *billingapp.BillingService, processed eventing.ProcessedStore) {
	if bus == nil || service == nil {
		return
	}

	eventing.Subscribe(bus, eventbus.EventTypeOf[events.CaregivingChargeCalculated](), "billing.charge_calculated", func(ctx context.Context, event any) error {
		evt, ok := event.(events.CaregivingChargeCalculated)
		if !ok {
			return eventbus.ErrInvalidEventType
		}
		return service.HandleCaregivingChargeCalculated(ctx, evt)
	}, processed)

	eventing.Subscribe(bus, eventbus.EventTypeOf[events.CaregivingChargeModified](), "billing.charge_modified", func(ctx context.Context, event any) error {
		evt, ok := event.(events.CaregivingChargeModified)
		if !ok {
			return eventbus.ErrInvalidEventType
		}
		return service.HandleCaregivingChargeModified(ctx, evt)
	}, processed)

	eventing.Subscribe(bus, eventbus.EventTypeOf[events.CaregivingRoundModified](), "billing.round_modified", func(ctx context.Context, event any) error {
		evt, ok := event.(events.CaregivingRoundModified)
		if !ok {
			return eventbus.ErrInvalidEventType
		}
		return service.HandleCaregivingRoundModified(ctx, evt)
	}, processed)

	eventing.Subscribe(bus, eventbus.EventTypeOf[events.ReceptionModified](), "billing.reception_modified", func(ctx context.Context, event any) error {
		evt, ok := event.(events.ReceptionModified)
		if !ok {
			return eventbus.ErrInvalidEventType
		}
		return service.HandleReceptionModified(ctx, evt)
	}, processed)
}
