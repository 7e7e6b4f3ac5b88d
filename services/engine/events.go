package engine

type EventType int

const (
	EventOrderPlaced EventType = iota
	EventOrderFilled
	EventOrderRejected
	EventPositionOpened
	EventPositionClosed
)

func (t EventType) String() string {
	switch t {
	case EventOrderPlaced:
		return "order_placed"
	case EventOrderFilled:
		return "order_filled"
	case EventOrderRejected:
		return "order_rejected"
	case EventPositionOpened:
		return "position_opened"
	case EventPositionClosed:
		return "position_closed"
	default:
		return "unknown"
	}
}

// Event is one entry in a run's audit trail.
type Event struct {
	Timestamp  int64
	Type       EventType
	Instrument string
	Detail     string
}

// EventLog collects the order/position events of a single run in bar
// order. Deterministic by construction: same bars, same log.
type EventLog struct {
	Events []Event
}

func (l *EventLog) Append(e Event) { l.Events = append(l.Events, e) }
