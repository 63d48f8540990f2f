package eventservices

import (
	"fmt"
	"math"
	"sync"

	"github.com/tradelab/discord-trading/src/config"
	"github.com/tradelab/discord-trading/src/eventmodels"
)

// RiskManager evaluates trade signals against portfolio-level limits and owns
// the open-position set. All state is guarded by a single mutex so that an
// evaluate-and-reserve for one signal can never interleave with another
// signal's in a way that breaks the limits.
type RiskManager struct {
	mu            sync.Mutex
	params        config.RiskConfig
	nextID        uint64
	openPositions []openPosition
}

type openPosition struct {
	id       uint64
	position eventmodels.Position
}

// Reservation is the handle returned by EvaluateAndReserve. Releasing it
// removes the reserved exposure, which the execution worker does when an
// order fails to submit.
type Reservation struct {
	manager *RiskManager
	id      uint64
}

func (r *Reservation) Release() {
	r.manager.mu.Lock()
	defer r.manager.mu.Unlock()

	for i, p := range r.manager.openPositions {
		if p.id == r.id {
			r.manager.openPositions = append(r.manager.openPositions[:i], r.manager.openPositions[i+1:]...)
			return
		}
	}
}

func NewRiskManager(params config.RiskConfig) *RiskManager {
	return &RiskManager{
		params: params,
	}
}

// tradeRisk is the notional risk of one trade: (entry - stop) * qty *
// multiplier, rounded to two decimals. A stop at or above the entry means
// there is no bounded downside, so the risk is infinite.
func (m *RiskManager) tradeRisk(signal *eventmodels.TradeSignal, quantity int) float64 {
	diff := signal.EntryPrice - signal.StopPrice
	if diff <= 0 {
		return math.Inf(1)
	}

	return round2(diff * float64(quantity) * float64(m.params.ContractMultiplier))
}

// riskContribution is the amount a trade adds to total open risk. Trades at
// or above the per-trade cap contribute zero: the per-trade rule governs
// them. Evaluate and Register both use this function, so the value checked is
// always the value recorded.
func (m *RiskManager) riskContribution(signal *eventmodels.TradeSignal, quantity int) float64 {
	notionalRisk := m.tradeRisk(signal, quantity)
	if notionalRisk < m.params.MaxRiskPerTrade {
		return notionalRisk
	}

	return 0
}

func (m *RiskManager) evaluate(signal *eventmodels.TradeSignal, quantity int) (bool, string) {
	if len(m.openPositions) >= m.params.MaxOpenPositions {
		return false, fmt.Sprintf("max open positions (%d) reached", m.params.MaxOpenPositions)
	}

	notionalRisk := m.tradeRisk(signal, quantity)
	if notionalRisk > m.params.MaxRiskPerTrade {
		return false, fmt.Sprintf("trade risk $%.2f exceeds per-trade max $%.2f", notionalRisk, m.params.MaxRiskPerTrade)
	}

	riskContribution := m.riskContribution(signal, quantity)
	totalRisk := m.totalRisk()
	if totalRisk+riskContribution >= m.params.MaxTotalRisk {
		return false, fmt.Sprintf("total risk after trade $%.2f exceeds limit $%.2f", totalRisk+riskContribution, m.params.MaxTotalRisk)
	}

	return true, "accepted"
}

// Evaluate reports whether a trade passes the risk checks, without reserving
// anything. The execution path uses EvaluateAndReserve instead so the check
// and the registration happen under one lock acquisition.
func (m *RiskManager) Evaluate(signal *eventmodels.TradeSignal, quantity int) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.evaluate(signal, quantity)
}

// Register records an open position's risk contribution. The contribution is
// recomputed with the same rule Evaluate uses.
func (m *RiskManager) Register(signal *eventmodels.TradeSignal, quantity int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.register(signal, quantity)
}

func (m *RiskManager) register(signal *eventmodels.TradeSignal, quantity int) uint64 {
	m.nextID++
	m.openPositions = append(m.openPositions, openPosition{
		id: m.nextID,
		position: eventmodels.Position{
			Symbol: signal.Symbol,
			Risk:   round2(m.riskContribution(signal, quantity)),
		},
	})

	return m.nextID
}

// EvaluateAndReserve runs the risk checks and, if they pass, registers the
// position in the same critical section. Two concurrent alerts can therefore
// never both pass evaluation against the same free capacity. The returned
// reservation is released if the order submission fails.
func (m *RiskManager) EvaluateAndReserve(signal *eventmodels.TradeSignal, quantity int) (*Reservation, bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	accepted, reason := m.evaluate(signal, quantity)
	if !accepted {
		return nil, false, reason
	}

	id := m.register(signal, quantity)

	return &Reservation{manager: m, id: id}, true, reason
}

// ClearAll unconditionally empties the open-position set. Used by the
// emergency liquidation path and the end-of-day reset.
func (m *RiskManager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.openPositions = nil
}

func (m *RiskManager) OpenPositionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.openPositions)
}

func (m *RiskManager) TotalRisk() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.totalRisk()
}

func (m *RiskManager) totalRisk() float64 {
	var total float64
	for _, p := range m.openPositions {
		total += p.position.Risk
	}

	return round2(total)
}

// Positions returns a copy of the open-position set.
func (m *RiskManager) Positions() []eventmodels.Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	positions := make([]eventmodels.Position, 0, len(m.openPositions))
	for _, p := range m.openPositions {
		positions = append(positions, p.position)
	}

	return positions
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
