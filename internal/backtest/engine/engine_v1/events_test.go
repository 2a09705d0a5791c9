package engine

import (
	"testing"

	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/stretchr/testify/suite"
)

type EventLogTestSuite struct {
	suite.Suite
}

func TestEventLogSuite(t *testing.T) {
	suite.Run(t, new(EventLogTestSuite))
}

func (suite *EventLogTestSuite) TestEmitAndCount() {
	var received []types.EventKind

	log := NewEventLog(nil, func(event types.Event) {
		received = append(received, event.Kind)
	})

	log.Emit(types.Event{Kind: types.EventOrderQueued, Bar: 1})
	log.Emit(types.Event{Kind: types.EventRejected, Bar: 2, Reason: types.RejectReasonInsufficientCash})
	log.Emit(types.Event{Kind: types.EventRejected, Bar: 3, Reason: types.RejectReasonOpposing})

	suite.Equal([]types.EventKind{types.EventOrderQueued, types.EventRejected, types.EventRejected}, received)
	suite.Equal(2, log.Count(types.EventRejected))
	suite.Equal(0, log.Count(types.EventEntry))
}

func (suite *EventLogTestSuite) TestEventsReturnsCopy() {
	log := NewEventLog(nil)
	log.Emit(types.Event{Kind: types.EventEntry, Bar: 5})

	events := log.Events()
	events[0].Bar = 99

	suite.Equal(5, log.Events()[0].Bar)
}
