package eventmodels

import (
	"time"

	"github.com/google/uuid"
)

// BaseEvent carries the fields shared by every event on the bus. Events are
// immutable once published; subscribers must not modify them.
type BaseEvent struct {
	EventID   uuid.UUID
	Timestamp time.Time
}

func NewBaseEvent() BaseEvent {
	return BaseEvent{
		EventID:   uuid.New(),
		Timestamp: time.Now().UTC(),
	}
}

func (ev BaseEvent) GetEventID() uuid.UUID {
	return ev.EventID
}

func (ev BaseEvent) GetTimestamp() time.Time {
	return ev.Timestamp
}

// AlertEvent is published by the chat monitor when an inbound message parses
// into a valid trade signal.
type AlertEvent struct {
	BaseEvent
	Signal     *TradeSignal
	RawMessage string
}

func NewAlertEvent(signal *TradeSignal, rawMessage string) *AlertEvent {
	return &AlertEvent{
		BaseEvent:  NewBaseEvent(),
		Signal:     signal,
		RawMessage: rawMessage,
	}
}

// Suppress converts the alert into its suppressed variant. The kill-switch
// gate publishes the suppressed event instead of the alert itself when
// trading is disabled.
func (ev *AlertEvent) Suppress(reason string) interface{} {
	return &SuppressedAlertEvent{
		BaseEvent:  NewBaseEvent(),
		Signal:     ev.Signal,
		RawMessage: ev.RawMessage,
		Reason:     reason,
	}
}

// RiskEvent reports the risk manager's accept/reject decision for a signal.
// Exactly one RiskEvent is published per alert.
type RiskEvent struct {
	BaseEvent
	Signal   *TradeSignal
	Accepted bool
	Reason   string
}

func NewRiskEvent(signal *TradeSignal, accepted bool, reason string) *RiskEvent {
	return &RiskEvent{
		BaseEvent: NewBaseEvent(),
		Signal:    signal,
		Accepted:  accepted,
		Reason:    reason,
	}
}

// OrderEvent reports the outcome of a bracket order submission. Err is set
// when the broker call failed; Response holds the broker's raw payload on
// success.
type OrderEvent struct {
	BaseEvent
	Signal   *TradeSignal
	Response map[string]interface{}
	Err      error
}

func NewOrderEvent(signal *TradeSignal, response map[string]interface{}, err error) *OrderEvent {
	return &OrderEvent{
		BaseEvent: NewBaseEvent(),
		Signal:    signal,
		Response:  response,
		Err:       err,
	}
}

func (ev *OrderEvent) Failed() bool {
	return ev.Err != nil
}

// SuppressedAlertEvent records an alert that was dropped by the kill switch
// before it reached the execution worker.
type SuppressedAlertEvent struct {
	BaseEvent
	Signal     *TradeSignal
	RawMessage string
	Reason     string
}
