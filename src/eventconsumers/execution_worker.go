package eventconsumers

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/tradelab/discord-trading/src/eventmodels"
	pubsub "github.com/tradelab/discord-trading/src/eventpubsub"
	"github.com/tradelab/discord-trading/src/eventservices"
)

// BracketOrderSubmitter is the broker contract the execution worker needs:
// submit a bracket order atomically and report success or failure.
type BracketOrderSubmitter interface {
	SubmitBracketOrder(ctx context.Context, signal *eventmodels.TradeSignal, quantity int) (map[string]interface{}, error)
}

// ExecutionWorker coordinates the path from alert to order: risk decision,
// RiskEvent, broker submission, OrderEvent. Each alert produces exactly one
// RiskEvent and at most one OrderEvent.
type ExecutionWorker struct {
	bus      *pubsub.Bus
	broker   BracketOrderSubmitter
	risk     *eventservices.RiskManager
	quantity int
}

func NewExecutionWorker(bus *pubsub.Bus, broker BracketOrderSubmitter, risk *eventservices.RiskManager, quantity int) *ExecutionWorker {
	w := &ExecutionWorker{
		bus:      bus,
		broker:   broker,
		risk:     risk,
		quantity: quantity,
	}

	pubsub.Subscribe(bus, w.handleAlert)

	return w
}

func (w *ExecutionWorker) handleAlert(event *eventmodels.AlertEvent) {
	signal := event.Signal

	log.Infof("ExecutionWorker.handleAlert: %v", signal)

	// Evaluate and reserve in one critical section, so a concurrent alert
	// cannot pass evaluation against capacity this trade is about to consume.
	// The reservation is released if the submission fails.
	reservation, accepted, reason := w.risk.EvaluateAndReserve(signal, w.quantity)

	w.bus.Publish(eventmodels.NewRiskEvent(signal, accepted, reason))

	if !accepted {
		log.Infof("ExecutionWorker.handleAlert: rejected %s: %s", signal.Symbol, reason)
		return
	}

	response, err := w.broker.SubmitBracketOrder(context.Background(), signal, w.quantity)
	if err != nil {
		reservation.Release()
		log.Errorf("ExecutionWorker.handleAlert: order submission failed for %s: %v", signal.Symbol, err)
		w.bus.Publish(eventmodels.NewOrderEvent(signal, nil, err))
		return
	}

	// Submission success implies the order will fill; no fill confirmation
	// is awaited, so the reserved position stands as registered.
	w.bus.Publish(eventmodels.NewOrderEvent(signal, response, nil))
}
