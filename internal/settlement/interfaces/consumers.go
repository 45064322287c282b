package interfaces

import (
	"context"

	"caregiving-cloud/internal/caregiving/events"
	"caregiving-cloud/internal/eventing"
	"caregiving-cloud/internal/eventing/eventbus"
	settlementapp "caregiving-cloud/internal/settlement/application"
)

// WireSettlementEventBus registers settlement event handlers on the event bus.
func WireSettlementEventBus(bus eventbus.EventBus, service *settlementapp.SettlementService, processed eventing.ProcessedStore) {
	if bus == nil || service == nil {
		return
	}

	eventing.Subscribe(bus, eventbus.EventTypeOf[events.CaregivingChargeCalculated](), "settlement.charge_calculated", func(ctx context.Context, event any) error {
		evt, ok := event.(events.CaregivingChargeCalculated)
		if !ok {
			return eventbus.ErrInvalidEventType
		}
		return service.HandleCaregivingChargeCalculated(ctx, evt)
	}, processed)

	eventing.Subscribe(bus, eventbus.EventTypeOf[events.CaregivingChargeModified](), "settlement.charge_modified", func(ctx context.Context, event any) error {
		evt, ok := event.(events.CaregivingChargeModified)
		if !ok {
			return eventbus.ErrInvalidEventType
		}
		return service.HandleCaregivingChargeModified(ctx, evt)
	}, processed)

	eventing.Subscribe(bus, eventbus.EventTypeOf[events.ReceptionModified](), "settlement.reception_modified", func(ctx context.Context, event any) error {
		evt, ok := event.(events.ReceptionModified)
		if !ok {
			return eventbus.ErrInvalidEventType
		}
		return service.HandleReceptionModified(ctx, evt)
	}, processed)
}
