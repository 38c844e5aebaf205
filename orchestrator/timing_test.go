package orchestrator

import (
	"testing"
	"time"

	"cabo-server/engine"
)

func TestTimingFromSeconds(t *testing.T) {
	tm := TimingFromSeconds(10, 5, 30, 30, 10)
	if tm.SetupTimeout != 10*time.Second {
		t.Errorf("SetupTimeout = %v, want 10s", tm.SetupTimeout)
	}
	if tm.TurnTransitionTimeout != 5*time.Second {
		t.Errorf("TurnTransitionTimeout = %v, want 5s", tm.TurnTransitionTimeout)
	}
	if tm.SpecialActionTimeout != 30*time.Second {
		t.Errorf("SpecialActionTimeout = %v, want 30s", tm.SpecialActionTimeout)
	}
	if tm.StackTimeout != 30*time.Second {
		t.Errorf("StackTimeout = %v, want 30s", tm.StackTimeout)
	}
	if tm.CleanupGrace != 10*time.Second {
		t.Errorf("CleanupGrace = %v, want 10s", tm.CleanupGrace)
	}
	if tm.PollInterval != 100*time.Millisecond {
		t.Errorf("PollInterval = %v, want 100ms", tm.PollInterval)
	}
}

func TestTimingForKind(t *testing.T) {
	tm := DefaultTiming()
	cases := map[engine.TimerKind]time.Duration{
		engine.TimerSetup:          tm.SetupTimeout,
		engine.TimerTurnTransition: tm.TurnTransitionTimeout,
		engine.TimerSpecialAction:  tm.SpecialActionTimeout,
		engine.TimerStack:          tm.StackTimeout,
	}
	for kind, want := range cases {
		if got := tm.forKind(kind); got != want {
			t.Errorf("forKind(%v) = %v, want %v", kind, got, want)
		}
	}
}
