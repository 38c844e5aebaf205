package engine

// Event is a fact the engine wants broadcast to clients. Data is a plain
// map so the broadcast layer can marshal it directly; the engine never
// decides how a card value gets redacted for one viewer versus another
// — it only declares, via VisibleTo, who is allowed to see one at all.
// VisibleTo nil means the event carries nothing secret and goes out
// unredacted; a non-nil (possibly empty) VisibleTo means the connection
// layer must hide this event's card fields from every player id not in
// the list.
type Event struct {
	Type      string
	Data      map[string]any
	VisibleTo []string
}

func newEvent(eventType string, data map[string]any) Event {
	if data == nil {
		data = map[string]any{}
	}
	return Event{Type: eventType, Data: data}
}

// newPrivateEvent builds an event whose card fields only visibleTo may
// see; an empty visibleTo means nobody does (a blind swap, say).
func newPrivateEvent(eventType string, data map[string]any, visibleTo ...string) Event {
	if data == nil {
		data = map[string]any{}
	}
	if visibleTo == nil {
		visibleTo = []string{}
	}
	return Event{Type: eventType, Data: data, VisibleTo: visibleTo}
}

// Result is what Step returns: the events produced by this one message,
// any follow-up messages to run immediately afterward (in the same
// orchestrator tick, before the next inbound message is drained), and
// whether the orchestrator should snapshot+checkpoint after applying it.
type Result struct {
	Events              []Event
	Next                []Message
	CheckpointRequested bool
}

func ok(events ...Event) (Result, error) {
	return Result{Events: events}, nil
}

func okNext(next []Message, events ...Event) (Result, error) {
	return Result{Events: events, Next: next}, nil
}

func okCheckpoint(events ...Event) (Result, error) {
	return Result{Events: events, CheckpointRequested: true}, nil
}

func okCheckpointNext(next []Message, events ...Event) (Result, error) {
	return Result{Events: events, Next: next, CheckpointRequested: true}, nil
}
