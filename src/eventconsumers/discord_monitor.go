package eventconsumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/tradelab/discord-trading/src/eventmodels"
	pubsub "github.com/tradelab/discord-trading/src/eventpubsub"
	"github.com/tradelab/discord-trading/src/eventservices"
)

const discordGatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"

// Gateway opcodes and the intent bits we need: GUILD_MESSAGES (1<<9) and
// MESSAGE_CONTENT (1<<15).
const (
	opDispatch  = 0
	opHeartbeat = 1
	opIdentify  = 2
	opHello     = 10

	gatewayIntents = (1 << 9) | (1 << 15)
)

type gatewayPayload struct {
	Op   int             `json:"op"`
	Type string          `json:"t"`
	Seq  *int64          `json:"s"`
	Data json.RawMessage `json:"d"`
}

type helloData struct {
	HeartbeatIntervalMs int `json:"heartbeat_interval"`
}

type messageCreateData struct {
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
	Author    struct {
		Username string `json:"username"`
		Bot      bool   `json:"bot"`
	} `json:"author"`
}

// DiscordMonitor connects to the Discord gateway, watches one channel for
// trade alerts and publishes an AlertEvent for every message that parses into
// a signal. Alerts go through the gated publisher, so the kill switch drops
// them before they reach the execution worker.
type DiscordMonitor struct {
	token     string
	channelID string
	publisher pubsub.Publisher

	mu      sync.Mutex
	lastSeq *int64
}

func NewDiscordMonitor(token string, channelID string, publisher pubsub.Publisher) *DiscordMonitor {
	return &DiscordMonitor{
		token:     token,
		channelID: channelID,
		publisher: publisher,
	}
}

// Start runs the gateway session until the context is cancelled, reconnecting
// after read failures.
func (m *DiscordMonitor) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)

	go func() {
		defer wg.Done()

		for {
			if err := m.runSession(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					log.Info("DiscordMonitor: stopped")
					return
				}

				log.Errorf("DiscordMonitor: session ended: %v", err)
			}

			select {
			case <-ctx.Done():
				log.Info("DiscordMonitor: stopped")
				return
			case <-time.After(5 * time.Second):
			}
		}
	}()
}

func (m *DiscordMonitor) runSession(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, discordGatewayURL, nil)
	if err != nil {
		return fmt.Errorf("DiscordMonitor.runSession: failed to connect to gateway: %w", err)
	}

	defer conn.Close()

	heartbeatInterval, err := m.handshake(conn)
	if err != nil {
		return err
	}

	log.Infof("DiscordMonitor: connected, heartbeat every %v", heartbeatInterval)

	heartbeatCtx, cancelHeartbeat := context.WithCancel(ctx)
	defer cancelHeartbeat()

	// The heartbeat goroutine is the only writer once the handshake is done.
	go m.heartbeatLoop(heartbeatCtx, conn, heartbeatInterval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn.SetReadDeadline(time.Now().UTC().Add(2 * heartbeatInterval))

		var payload gatewayPayload
		if err := conn.ReadJSON(&payload); err != nil {
			return fmt.Errorf("DiscordMonitor.runSession: read failed: %w", err)
		}

		if payload.Seq != nil {
			m.mu.Lock()
			m.lastSeq = payload.Seq
			m.mu.Unlock()
		}

		if payload.Op == opDispatch && payload.Type == "MESSAGE_CREATE" {
			var message messageCreateData
			if err := json.Unmarshal(payload.Data, &message); err != nil {
				log.Errorf("DiscordMonitor.runSession: failed to unmarshal message: %v", err)
				continue
			}

			// Each message is dispatched on its own goroutine so a slow
			// order submission never blocks the gateway read loop.
			go m.processMessage(message)
		}
	}
}

func (m *DiscordMonitor) handshake(conn *websocket.Conn) (time.Duration, error) {
	var hello gatewayPayload
	if err := conn.ReadJSON(&hello); err != nil {
		return 0, fmt.Errorf("DiscordMonitor.handshake: failed to read hello: %w", err)
	}

	if hello.Op != opHello {
		return 0, fmt.Errorf("DiscordMonitor.handshake: expected hello opcode, got %d", hello.Op)
	}

	var data helloData
	if err := json.Unmarshal(hello.Data, &data); err != nil {
		return 0, fmt.Errorf("DiscordMonitor.handshake: failed to unmarshal hello: %w", err)
	}

	identify := map[string]interface{}{
		"op": opIdentify,
		"d": map[string]interface{}{
			"token":   m.token,
			"intents": gatewayIntents,
			"properties": map[string]string{
				"os":      "linux",
				"browser": "discord-trading",
				"device":  "discord-trading",
			},
		},
	}

	if err := conn.WriteJSON(identify); err != nil {
		return 0, fmt.Errorf("DiscordMonitor.handshake: failed to identify: %w", err)
	}

	return time.Duration(data.HeartbeatIntervalMs) * time.Millisecond, nil
}

func (m *DiscordMonitor) heartbeatLoop(ctx context.Context, conn *websocket.Conn, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			seq := m.lastSeq
			m.mu.Unlock()

			if err := conn.WriteJSON(map[string]interface{}{"op": opHeartbeat, "d": seq}); err != nil {
				log.Errorf("DiscordMonitor.heartbeatLoop: %v", err)
				return
			}
		}
	}
}

func (m *DiscordMonitor) processMessage(message messageCreateData) {
	if message.Author.Bot {
		return
	}

	if message.ChannelID != m.channelID {
		return
	}

	signal, err := eventservices.ParseAlertMessage(message.Content)
	if err != nil {
		log.Debugf("DiscordMonitor.processMessage: dropping message: %v", err)
		return
	}

	m.publisher.Publish(eventmodels.NewAlertEvent(signal, message.Content))
}
