package orchestrator

import (
	"time"

	"cabo-server/engine"
)

// Timing collects every duration the room loop needs to arm a timer or
// pace its idle poll. Values come from config so an operator can tune
// them without a rebuild.
type Timing struct {
	SetupTimeout          time.Duration
	TurnTransitionTimeout time.Duration
	SpecialActionTimeout  time.Duration
	StackTimeout          time.Duration
	PollInterval          time.Duration
	CleanupGrace          time.Duration
}

// DefaultTiming matches the literal constants in the engine's phase
// rules: 10s setup, 5s turn transition, 30s special action and stack
// windows.
func DefaultTiming() Timing {
	return Timing{
		SetupTimeout:          10 * time.Second,
		TurnTransitionTimeout: 5 * time.Second,
		SpecialActionTimeout:  30 * time.Second,
		StackTimeout:          30 * time.Second,
		PollInterval:          100 * time.Millisecond,
		CleanupGrace:          10 * time.Second,
	}
}

// TimingFromSeconds builds a Timing from plain second counts, the shape
// config.TimingConfig stores them in.
func TimingFromSeconds(setup, turnTransition, specialAction, stack, cleanupGrace int) Timing {
	return Timing{
		SetupTimeout:          time.Duration(setup) * time.Second,
		TurnTransitionTimeout: time.Duration(turnTransition) * time.Second,
		SpecialActionTimeout:  time.Duration(specialAction) * time.Second,
		StackTimeout:          time.Duration(stack) * time.Second,
		PollInterval:          100 * time.Millisecond,
		CleanupGrace:          time.Duration(cleanupGrace) * time.Second,
	}
}

func (t Timing) forKind(kind engine.TimerKind) time.Duration {
	switch kind {
	case engine.TimerSetup:
		return t.SetupTimeout
	case engine.TimerTurnTransition:
		return t.TurnTransitionTimeout
	case engine.TimerSpecialAction:
		return t.SpecialActionTimeout
	case engine.TimerStack:
		return t.StackTimeout
	default:
		return 0
	}
}
