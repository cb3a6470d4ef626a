// Package telemetry publishes decision events to in-process listeners
// without ever blocking the decision path.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danielpatrickdp/adaptive-layout/internal/logging"
)

// Event types.
const (
	EventActionSelected   = "action-selected"
	EventFeedbackRecorded = "feedback-recorded"
)

// DefaultBuffer is the per-listener queue length.
const DefaultBuffer = 256

// #region event
// Event is one telemetry record. Fields not relevant to Type are zero.
type Event struct {
	Type       string    `json:"type"`
	DecisionID string    `json:"decision_id,omitempty"`
	Context    string    `json:"context"`
	Action     int       `json:"action"`
	Source     string    `json:"source,omitempty"`
	Epsilon    float64   `json:"epsilon"`
	Reward     float64   `json:"reward,omitempty"`
	Committed  bool      `json:"committed,omitempty"`
	Trained    bool      `json:"trained,omitempty"`
	At         time.Time `json:"at"`
}

// Listener consumes events on its own goroutine.
type Listener interface {
	Handle(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

// Handle calls f.
func (f ListenerFunc) Handle(e Event) { f(e) }

// #endregion event

// #region bus
// Bus fans events out to listeners through bounded queues. Publish drops
// an event for a listener whose queue is full.
type Bus struct {
	mu      sync.RWMutex
	subs    []chan Event
	buffer  int
	dropped atomic.Int64
	wg      sync.WaitGroup
	closed  bool
	log     *slog.Logger
}

// NewBus returns a bus with the given per-listener buffer (DefaultBuffer if <= 0).
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{buffer: buffer, log: logging.New("telemetry")}
}

// Subscribe starts delivering events to l until ctx is done or Close is
// called. Events still queued at that point are drained to l.
func (b *Bus) Subscribe(ctx context.Context, l Listener) {
	ch := make(chan Event, b.buffer)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.subs = append(b.subs, ch)
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-ctx.Done():
				b.unsubscribe(ch)
				for {
					select {
					case e, ok := <-ch:
						if !ok {
							return
						}
						l.Handle(e)
					default:
						return
					}
				}
			case e, ok := <-ch:
				if !ok {
					return
				}
				l.Handle(e)
			}
		}
	}()
}

func (b *Bus) unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == ch {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish enqueues e for every listener. It never blocks.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			if n := b.dropped.Add(1); n == 1 || n%100 == 0 {
				b.log.Warn("listener queue full, dropping event",
					slog.String("type", e.Type), slog.Int64("dropped", n))
			}
		}
	}
}

// Dropped returns the number of events dropped so far.
func (b *Bus) Dropped() int64 { return b.dropped.Load() }

// Close stops all listeners after draining their queues.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
	b.mu.Unlock()
	b.wg.Wait()
}

// #endregion bus
