package engine

// Message is the single tagged-variant envelope for everything the engine
// processes. Only the fields relevant to Type are meaningful; handlers
// never read a field that isn't part of their message's contract.
type Message struct {
	Type MessageType

	PlayerID       string
	HandIndex      int
	CardIndex      int
	TargetPlayerID string
	TargetIndex    int
	OwnIndex       int

	// TimeoutID identifies which scheduled timer fired. System timeout
	// messages only; ignored for player actions.
	TimeoutID string
}
