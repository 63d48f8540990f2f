package eventconsumers

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelab/discord-trading/src/eventmodels"
)

type capturingPublisher struct {
	mu     sync.Mutex
	events []interface{}
}

func (p *capturingPublisher) Publish(event interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)
}

func (p *capturingPublisher) alerts() []*eventmodels.AlertEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	var alerts []*eventmodels.AlertEvent
	for _, ev := range p.events {
		if alert, ok := ev.(*eventmodels.AlertEvent); ok {
			alerts = append(alerts, alert)
		}
	}

	return alerts
}

func validAlertText(t *testing.T) string {
	t.Helper()

	// Expiry next year so the message stays valid whenever the test runs
	expiry := time.Now().UTC().AddDate(1, 0, 0).Format("2006-01-02")

	return "AAPL - $250 CALLS EXPIRATION " + expiry + " $1.29 STOP LOSS AT $1.00"
}

func TestDiscordMonitorProcessMessage(t *testing.T) {
	t.Run("publishes alert for valid message on configured channel", func(t *testing.T) {
		publisher := &capturingPublisher{}
		monitor := NewDiscordMonitor("token", "111", publisher)

		content := validAlertText(t)
		monitor.processMessage(messageCreateData{ChannelID: "111", Content: content})

		alerts := publisher.alerts()
		require.Len(t, alerts, 1)
		assert.Equal(t, "AAPL", alerts[0].Signal.Symbol)
		assert.Equal(t, content, alerts[0].RawMessage)
	})

	t.Run("ignores other channels", func(t *testing.T) {
		publisher := &capturingPublisher{}
		monitor := NewDiscordMonitor("token", "111", publisher)

		monitor.processMessage(messageCreateData{ChannelID: "222", Content: validAlertText(t)})

		assert.Empty(t, publisher.alerts())
	})

	t.Run("ignores bot authors", func(t *testing.T) {
		publisher := &capturingPublisher{}
		monitor := NewDiscordMonitor("token", "111", publisher)

		message := messageCreateData{ChannelID: "111", Content: validAlertText(t)}
		message.Author.Bot = true
		monitor.processMessage(message)

		assert.Empty(t, publisher.alerts())
	})

	t.Run("silently drops unparseable messages", func(t *testing.T) {
		publisher := &capturingPublisher{}
		monitor := NewDiscordMonitor("token", "111", publisher)

		monitor.processMessage(messageCreateData{ChannelID: "111", Content: "good morning traders"})

		assert.Empty(t, publisher.alerts())
	})
}
