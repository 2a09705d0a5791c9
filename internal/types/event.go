package types

import "time"

type EventKind string

const (
	EventOrderQueued    EventKind = "order_queued"
	EventOrderCancelled EventKind = "order_cancelled"
	EventEntry          EventKind = "entry"
	EventExit           EventKind = "exit"
	EventPartialExit    EventKind = "partial_exit"
	EventForcedClose    EventKind = "forced_close"
	EventStopUpdate     EventKind = "stop_update"
	EventRejected       EventKind = "rejected"
	EventRiskSkip       EventKind = "risk_skip"
	EventWarmupSkip     EventKind = "warmup_skip"
)

// Event is one entry of the structured simulation event stream.
type Event struct {
	Kind      EventKind `yaml:"kind" json:"kind" csv:"kind"`
	Bar       int       `yaml:"bar" json:"bar" csv:"bar"`
	Time      time.Time `yaml:"time" json:"time" csv:"time"`
	Direction Direction `yaml:"direction" json:"direction" csv:"direction"`
	Price     float64   `yaml:"price" json:"price" csv:"price"`
	Size      float64   `yaml:"size" json:"size" csv:"size"`
	// Reason is an exit reason or a rejection reason.
	Reason  string `yaml:"reason" json:"reason" csv:"reason"`
	Message string `yaml:"message" json:"message" csv:"message"`
	// RefID is the order or trade this event refers to.
	RefID string `yaml:"ref_id" json:"ref_id" csv:"ref_id"`
}

const (
	RejectReasonInsufficientCash = "insufficient_cash"
	RejectReasonInvalidRisk      = "invalid_risk"
	RejectReasonZeroSize         = "zero_size"
	RejectReasonOpposing         = "opposing_position"
	RejectReasonSameDirection    = "position_already_open"
	RejectReasonNoPosition       = "no_position"
	RejectReasonInvalidLevel     = "invalid_level"
)
