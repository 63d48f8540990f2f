package eventconsumers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tradelab/discord-trading/src/eventmodels"
	pubsub "github.com/tradelab/discord-trading/src/eventpubsub"
	"github.com/tradelab/discord-trading/src/eventservices"
)

// MetricsWorker exports pipeline counters and gauges for the /metrics
// endpoint.
type MetricsWorker struct {
	risk     *eventservices.RiskManager
	controls *eventservices.EmergencyControls

	alertsReceived   prometheus.Counter
	alertsSuppressed prometheus.Counter
	riskDecisions    *prometheus.CounterVec
	orderOutcomes    *prometheus.CounterVec
	openPositions    prometheus.Gauge
	totalRisk        prometheus.Gauge
	tradingEnabled   prometheus.Gauge
}

func NewMetricsWorker(bus *pubsub.Bus, risk *eventservices.RiskManager, controls *eventservices.EmergencyControls, registerer prometheus.Registerer) *MetricsWorker {
	factory := promauto.With(registerer)

	w := &MetricsWorker{
		risk:     risk,
		controls: controls,
		alertsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "trading_alerts_received_total",
			Help: "Alerts that parsed into a signal and entered the pipeline",
		}),
		alertsSuppressed: factory.NewCounter(prometheus.CounterOpts{
			Name: "trading_alerts_suppressed_total",
			Help: "Alerts dropped by the kill switch",
		}),
		riskDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trading_risk_decisions_total",
			Help: "Risk decisions by outcome",
		}, []string{"decision"}),
		orderOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trading_order_submissions_total",
			Help: "Order submissions by outcome",
		}, []string{"outcome"}),
		openPositions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "trading_open_positions",
			Help: "Open positions tracked by the risk manager",
		}),
		totalRisk: factory.NewGauge(prometheus.GaugeOpts{
			Name: "trading_total_risk_dollars",
			Help: "Sum of recorded open-position risk",
		}),
		tradingEnabled: factory.NewGauge(prometheus.GaugeOpts{
			Name: "trading_enabled",
			Help: "1 while the circuit breaker is armed, 0 once tripped",
		}),
	}

	w.tradingEnabled.Set(1)

	pubsub.Subscribe(bus, w.handleAlertEvent)
	pubsub.Subscribe(bus, w.handleSuppressedAlertEvent)
	pubsub.Subscribe(bus, w.handleRiskEvent)
	pubsub.Subscribe(bus, w.handleOrderEvent)

	return w
}

func (w *MetricsWorker) handleAlertEvent(event *eventmodels.AlertEvent) {
	w.alertsReceived.Inc()
}

func (w *MetricsWorker) handleSuppressedAlertEvent(event *eventmodels.SuppressedAlertEvent) {
	w.alertsSuppressed.Inc()
}

func (w *MetricsWorker) handleRiskEvent(event *eventmodels.RiskEvent) {
	decision := "rejected"
	if event.Accepted {
		decision = "accepted"
	}

	w.riskDecisions.WithLabelValues(decision).Inc()
	w.refreshGauges()
}

func (w *MetricsWorker) handleOrderEvent(event *eventmodels.OrderEvent) {
	outcome := "submitted"
	if event.Failed() {
		outcome = "failed"
	}

	w.orderOutcomes.WithLabelValues(outcome).Inc()
	w.refreshGauges()
}

func (w *MetricsWorker) refreshGauges() {
	w.openPositions.Set(float64(w.risk.OpenPositionCount()))
	w.totalRisk.Set(w.risk.TotalRisk())

	if w.controls.IsEnabled() {
		w.tradingEnabled.Set(1)
	} else {
		w.tradingEnabled.Set(0)
	}
}
