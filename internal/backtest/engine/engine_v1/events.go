package engine

import (
	"github.com/rxtech-lab/argo-sim/internal/logger"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"go.uber.org/zap"
)

// EventSubscriber receives every event of a run as it is emitted.
type EventSubscriber func(event types.Event)

// EventLog records the structured event stream of one run.
type EventLog struct {
	events      []types.Event
	subscribers []EventSubscriber
	logger      *logger.Logger
}

// NewEventLog creates an empty event log.
func NewEventLog(log *logger.Logger, subscribers ...EventSubscriber) *EventLog {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &EventLog{
		events:      nil,
		subscribers: subscribers,
		logger:      log,
	}
}

// Emit appends an event and forwards it to the subscribers.
func (l *EventLog) Emit(event types.Event) {
	l.events = append(l.events, event)

	fields := []zap.Field{
		zap.String("kind", string(event.Kind)),
		zap.Int("bar", event.Bar),
		zap.Time("time", event.Time),
	}

	if event.Direction != "" {
		fields = append(fields, zap.String("direction", string(event.Direction)))
	}

	if event.Price != 0 || event.Size != 0 {
		fields = append(fields, zap.Float64("price", event.Price), zap.Float64("size", event.Size))
	}

	if event.Reason != "" {
		fields = append(fields, zap.String("reason", event.Reason))
	}

	if event.Kind == types.EventRejected {
		l.logger.Warn("Order rejected", append(fields, zap.String("message", event.Message))...)
	} else {
		l.logger.Debug("Simulation event", fields...)
	}

	for _, subscriber := range l.subscribers {
		subscriber(event)
	}
}

// Events returns a copy of the recorded events in emission order.
func (l *EventLog) Events() []types.Event {
	events := make([]types.Event, len(l.events))
	copy(events, l.events)

	return events
}

// Count returns the number of recorded events of the given kind.
func (l *EventLog) Count(kind types.EventKind) int {
	count := 0

	for _, event := range l.events {
		if event.Kind == kind {
			count++
		}
	}

	return count
}
