// Package events delivers committed campaign events to in-process observers.
package events

import (
	"sync"

	"github.com/google/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/punchamoorthee/fundledger/internal/domain"
)

var eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fundledger_events_published_total",
	Help: "Committed campaign events delivered to subscribers, by kind",
}, []string{"kind"})

// Handler receives one event. Handlers run on the publishing goroutine and
// must not block.
type Handler func(domain.Event)

// Bus fans events out to every subscribed handler in subscription order.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers events in order. Call it only after the events are committed.
func (b *Bus) Publish(events ...domain.Event) {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()

	for _, ev := range events {
		eventsPublished.WithLabelValues(string(ev.Kind)).Inc()
		for _, h := range handlers {
			b.deliver(h, ev)
		}
	}
}

func (b *Bus) deliver(h Handler, ev domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("event handler panicked on %s #%d: %v", ev.Kind, ev.Seq, r)
		}
	}()
	h(ev)
}

// LogHandler writes each event to the process log.
func LogHandler(ev domain.Event) {
	logger.Infof("event %s #%d campaign=%s payload=%+v", ev.Kind, ev.Seq, ev.CampaignID, ev.Payload)
}
