package eventpubsub

import (
	log "github.com/sirupsen/logrus"
)

// Suppressible is implemented by events that the kill-switch gate is allowed
// to drop. Suppress returns the event's suppressed variant, which is
// published in its place so monitoring subscribers can observe the drop.
type Suppressible interface {
	Suppress(reason string) interface{}
}

const suppressedReason = "trading disabled"

// GatedPublisher composes a kill-switch check in front of a Publisher.
// Suppressible events are dropped while the gate is closed; everything else
// passes through untouched.
type GatedPublisher struct {
	inner   Publisher
	enabled func() bool
}

func NewGatedPublisher(inner Publisher, enabled func() bool) *GatedPublisher {
	return &GatedPublisher{
		inner:   inner,
		enabled: enabled,
	}
}

func (g *GatedPublisher) Publish(event interface{}) {
	if suppressible, ok := event.(Suppressible); ok && !g.enabled() {
		log.Warnf("GatedPublisher: trading disabled, dropping %T", event)
		g.inner.Publish(suppressible.Suppress(suppressedReason))
		return
	}

	g.inner.Publish(event)
}
