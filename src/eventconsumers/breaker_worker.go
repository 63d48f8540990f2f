package eventconsumers

import (
	log "github.com/sirupsen/logrus"

	"github.com/tradelab/discord-trading/src/eventmodels"
	pubsub "github.com/tradelab/discord-trading/src/eventpubsub"
	"github.com/tradelab/discord-trading/src/eventservices"
)

// BreakerWorker feeds the event stream into the emergency controls: failed
// order submissions advance the failure streak, successes and accepted risk
// decisions reset it.
type BreakerWorker struct {
	controls *eventservices.EmergencyControls
}

func NewBreakerWorker(bus *pubsub.Bus, controls *eventservices.EmergencyControls) *BreakerWorker {
	w := &BreakerWorker{
		controls: controls,
	}

	pubsub.Subscribe(bus, w.handleRiskEvent)
	pubsub.Subscribe(bus, w.handleOrderEvent)

	return w
}

func (w *BreakerWorker) handleRiskEvent(event *eventmodels.RiskEvent) {
	if event.Accepted {
		w.controls.ResetFailures()
	}
}

func (w *BreakerWorker) handleOrderEvent(event *eventmodels.OrderEvent) {
	if event.Failed() {
		w.controls.RecordFailure()
		log.Warnf("BreakerWorker.handleOrderEvent: submission failure #%d for %s: %v", w.controls.ConsecutiveFailures(), event.Signal.Symbol, event.Err)
		return
	}

	w.controls.ResetFailures()
}
