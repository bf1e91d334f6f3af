package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/liliang-cn/anonqa/internal/domain"
	"github.com/liliang-cn/anonqa/internal/metrics"
	"go.uber.org/zap"
)

// Control message tags sent outside the domain event set
const (
	MessageGroupJoined = "group_joined"
	MessageGroupLeft   = "group_left"
	MessageError       = "error"
)

// Envelope is the wire shape of every server-to-client message
type Envelope struct {
	Event     string    `json:"event"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Broadcaster delivers domain events to every member of the event's group room.
//
// Delivery is best-effort and at-most-once. A nil Broadcaster, a missing registry
// or an empty room all make Broadcast a silent no-op.
type Broadcaster struct {
	registry *Registry
	logger   *zap.Logger

	// held for a whole dispatch so all members of a room observe the same order
	mu sync.Mutex
}

// NewBroadcaster creates a broadcaster over the given registry
func NewBroadcaster(registry *Registry, logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{registry: registry, logger: logger}
}

// Broadcast sends evt to the room of evt.Group() and returns how many members it was queued for
func (b *Broadcaster) Broadcast(evt domain.Event) (delivered int) {
	if b == nil || b.registry == nil || evt == nil {
		return 0
	}

	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("broadcast panicked", zap.Any("panic", rec), zap.String("kind", string(evt.Kind())))
			delivered = 0
		}
	}()

	msg, err := encode(string(evt.Kind()), evt)
	if err != nil {
		b.logger.Warn("failed to encode event", zap.String("kind", string(evt.Kind())), zap.Error(err))
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.registry.each(evt.Group(), func(sub Subscriber) {
		if sub.Send(msg) {
			delivered++
			return
		}
		metrics.EventsDropped.Inc()
		b.logger.Warn("event dropped: subscriber not accepting messages",
			zap.String("subscriber", sub.ID()),
			zap.String("group_id", evt.Group()),
			zap.String("kind", string(evt.Kind())),
		)
	})

	metrics.EventsBroadcast.WithLabelValues(string(evt.Kind())).Inc()
	return delivered
}

func encode(event string, data any) ([]byte, error) {
	return json.Marshal(Envelope{Event: event, Data: data, Timestamp: time.Now().UTC()})
}
