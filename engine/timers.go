package engine

// TimerKind names one of the four timers the engine's state carries. The
// engine never starts or cancels a real timer itself — Step only changes
// these id fields, and the room orchestrator diffs them before and after
// each Step call to know which real timers to arm or cancel.
type TimerKind string

const (
	TimerSetup          TimerKind = "setup"
	TimerStack          TimerKind = "stack"
	TimerSpecialAction  TimerKind = "special_action"
	TimerTurnTransition TimerKind = "turn_transition"
)

// TimeoutMessageType returns the message type the orchestrator should
// deliver, with this timer's id attached, when the given timer fires.
func (k TimerKind) TimeoutMessageType() MessageType {
	switch k {
	case TimerSetup:
		return MsgSetupTimeout
	case TimerStack:
		return MsgStackTimeout
	case TimerSpecialAction:
		return MsgSpecialActionTimeout
	case TimerTurnTransition:
		return MsgTurnTransitionTimeout
	default:
		panic("engine: unknown timer kind " + string(k))
	}
}

// TimerIDs snapshots the current value of every timer field, keyed by
// kind, for the orchestrator to diff against the pre-Step snapshot.
func (s *State) TimerIDs() map[TimerKind]string {
	return map[TimerKind]string{
		TimerSetup:          s.SetupTimerID,
		TimerStack:          s.StackTimerID,
		TimerSpecialAction:  s.SpecialActionTimerID,
		TimerTurnTransition: s.TurnTransitionTimerID,
	}
}
