package eventservices

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelab/discord-trading/src/config"
	"github.com/tradelab/discord-trading/src/eventmodels"
)

func testRiskParams() config.RiskConfig {
	return config.RiskConfig{
		MaxOpenPositions:   5,
		MaxRiskPerTrade:    100.0,
		MaxTotalRisk:       300.0,
		ContractMultiplier: 100,
	}
}

func testSignal(symbol string, entry float64, stop float64) *eventmodels.TradeSignal {
	return &eventmodels.TradeSignal{
		Symbol:         symbol,
		Strike:         250.0,
		OptionType:     eventmodels.Call,
		ExpirationDate: time.Now().UTC().AddDate(0, 1, 0),
		EntryPrice:     entry,
		StopPrice:      stop,
	}
}

func TestRiskManagerEvaluate(t *testing.T) {
	t.Run("accepts trade within limits", func(t *testing.T) {
		m := NewRiskManager(testRiskParams())

		// notional risk = (1.29 - 1.00) * 1 * 100 = 29.00
		accepted, reason := m.Evaluate(testSignal("AAPL", 1.29, 1.00), 1)

		assert.True(t, accepted)
		assert.Equal(t, "accepted", reason)
	})

	t.Run("stop at or above entry is infinite risk", func(t *testing.T) {
		m := NewRiskManager(testRiskParams())

		accepted, reason := m.Evaluate(testSignal("AAPL", 1.00, 1.29), 1)
		assert.False(t, accepted)
		assert.Contains(t, reason, "per-trade max")

		accepted, _ = m.Evaluate(testSignal("AAPL", 1.00, 1.00), 1)
		assert.False(t, accepted)
	})

	t.Run("rejects when per-trade limit exceeded", func(t *testing.T) {
		m := NewRiskManager(testRiskParams())

		// notional risk = (3.00 - 1.00) * 1 * 100 = 200.00 > 100
		accepted, reason := m.Evaluate(testSignal("TSLA", 3.00, 1.00), 1)

		assert.False(t, accepted)
		assert.Contains(t, reason, "exceeds per-trade max")
	})

	t.Run("rejects when max open positions reached", func(t *testing.T) {
		params := testRiskParams()
		params.MaxOpenPositions = 1
		m := NewRiskManager(params)

		first := testSignal("AAPL", 1.29, 1.00)
		accepted, _ := m.Evaluate(first, 1)
		require.True(t, accepted)

		m.Register(first, 1)

		accepted, reason := m.Evaluate(testSignal("TSLA", 1.29, 1.00), 1)
		assert.False(t, accepted)
		assert.Contains(t, reason, "max open positions (1) reached")
	})

	t.Run("rejects when total risk limit reached", func(t *testing.T) {
		m := NewRiskManager(testRiskParams())

		// Each trade contributes 90.00; the fourth would push the total to
		// 360 >= 300
		signal := testSignal("AAPL", 1.90, 1.00)
		for i := 0; i < 3; i++ {
			accepted, _ := m.Evaluate(signal, 1)
			require.True(t, accepted)
			m.Register(signal, 1)
		}

		accepted, reason := m.Evaluate(signal, 1)
		assert.False(t, accepted)
		assert.Contains(t, reason, "total risk after trade")
	})
}

func TestRiskManagerRegister(t *testing.T) {
	t.Run("registered risk matches evaluated contribution", func(t *testing.T) {
		m := NewRiskManager(testRiskParams())

		m.Register(testSignal("AAPL", 1.29, 1.00), 1)

		positions := m.Positions()
		require.Len(t, positions, 1)
		assert.Equal(t, "AAPL", positions[0].Symbol)
		assert.Equal(t, 29.0, positions[0].Risk)
		assert.Equal(t, 29.0, m.TotalRisk())
	})

	t.Run("position count tracks registrations and clears", func(t *testing.T) {
		m := NewRiskManager(testRiskParams())

		for i := 0; i < 3; i++ {
			m.Register(testSignal(fmt.Sprintf("SYM%d", i), 1.29, 1.00), 1)
		}

		assert.Equal(t, 3, m.OpenPositionCount())

		m.ClearAll()

		assert.Equal(t, 0, m.OpenPositionCount())
		assert.Equal(t, 0.0, m.TotalRisk())
	})
}

func TestRiskManagerEvaluateAndReserve(t *testing.T) {
	t.Run("reserve records position and release removes it", func(t *testing.T) {
		m := NewRiskManager(testRiskParams())

		reservation, accepted, _ := m.EvaluateAndReserve(testSignal("AAPL", 1.29, 1.00), 1)
		require.True(t, accepted)
		require.NotNil(t, reservation)
		assert.Equal(t, 1, m.OpenPositionCount())

		reservation.Release()
		assert.Equal(t, 0, m.OpenPositionCount())
	})

	t.Run("release after clear all is a no-op", func(t *testing.T) {
		m := NewRiskManager(testRiskParams())

		reservation, accepted, _ := m.EvaluateAndReserve(testSignal("AAPL", 1.29, 1.00), 1)
		require.True(t, accepted)

		m.ClearAll()
		reservation.Release()

		assert.Equal(t, 0, m.OpenPositionCount())
	})

	t.Run("rejection returns no reservation", func(t *testing.T) {
		m := NewRiskManager(testRiskParams())

		reservation, accepted, reason := m.EvaluateAndReserve(testSignal("TSLA", 3.00, 1.00), 1)
		assert.False(t, accepted)
		assert.Nil(t, reservation)
		assert.Contains(t, reason, "exceeds per-trade max")
		assert.Equal(t, 0, m.OpenPositionCount())
	})

	t.Run("total risk never exceeds limit under concurrent alerts", func(t *testing.T) {
		m := NewRiskManager(testRiskParams())

		// 90.00 contribution each; at most 3 can fit under a 300 total cap
		signal := testSignal("AAPL", 1.90, 1.00)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				m.EvaluateAndReserve(signal, 1)
			}()
		}
		wg.Wait()

		assert.Equal(t, 3, m.OpenPositionCount())
		assert.Less(t, m.TotalRisk(), 300.0)
	})
}
