package eventservices

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// EmergencyControls is the circuit breaker: it counts consecutive submission
// failures and disables trading when the threshold is reached, clearing the
// risk manager's tracked exposure as a safety action. Clearing the book is a
// soft breaker: it resets exposure bookkeeping, it does not close real
// positions at the broker. Trading is never re-enabled automatically; Rearm
// is the only path back.
type EmergencyControls struct {
	mu                     sync.Mutex
	riskManager            *RiskManager
	maxConsecutiveFailures int
	consecutiveFailures    int
	tradingEnabled         bool
}

func NewEmergencyControls(riskManager *RiskManager, maxConsecutiveFailures int) *EmergencyControls {
	return &EmergencyControls{
		riskManager:            riskManager,
		maxConsecutiveFailures: maxConsecutiveFailures,
		tradingEnabled:         true,
	}
}

// RecordFailure increments the consecutive-failure counter. Reaching the
// threshold trips the breaker exactly once per failure streak.
func (c *EmergencyControls) RecordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures++

	if c.consecutiveFailures >= c.maxConsecutiveFailures && c.tradingEnabled {
		c.tradingEnabled = false
		c.riskManager.ClearAll()

		log.Errorf("EmergencyControls: %d consecutive failures, trading disabled and tracked exposure cleared", c.consecutiveFailures)
	}
}

// ResetFailures zeroes the failure counter. It does not re-enable trading.
func (c *EmergencyControls) ResetFailures() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures = 0
}

func (c *EmergencyControls) IsEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tradingEnabled
}

func (c *EmergencyControls) ConsecutiveFailures() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.consecutiveFailures
}

// Rearm is the explicit manual recovery path, reachable only through the
// admin API. It re-enables trading and zeroes the failure counter.
func (c *EmergencyControls) Rearm() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures = 0

	if !c.tradingEnabled {
		c.tradingEnabled = true
		log.Warn("EmergencyControls: trading manually re-armed")
	}
}
