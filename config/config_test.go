package config

import (
	"os"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.WSPort != 8080 {
		t.Errorf("expected WSPort=8080, got %d", cfg.WSPort)
	}
	if cfg.MaxNameLength != 24 {
		t.Errorf("expected MaxNameLength=24, got %d", cfg.MaxNameLength)
	}
	if cfg.Timing.SetupTimeoutSec != 10 {
		t.Errorf("expected SetupTimeoutSec=10, got %d", cfg.Timing.SetupTimeoutSec)
	}
	if cfg.Timing.SpecialActionTimeoutSec != 30 {
		t.Errorf("expected SpecialActionTimeoutSec=30, got %d", cfg.Timing.SpecialActionTimeoutSec)
	}
	if cfg.Timing.GracePeriodSec != 60 {
		t.Errorf("expected GracePeriodSec=60, got %d", cfg.Timing.GracePeriodSec)
	}
	if cfg.Room.MinPlayers != 2 {
		t.Errorf("expected Room.MinPlayers=2, got %d", cfg.Room.MinPlayers)
	}
	if cfg.Room.MaxPlayers != 6 {
		t.Errorf("expected Room.MaxPlayers=6, got %d", cfg.Room.MaxPlayers)
	}
	if cfg.Storage.StreamCapEvents != 1000 {
		t.Errorf("expected StreamCapEvents=1000, got %d", cfg.Storage.StreamCapEvents)
	}
	if cfg.Auth.TokenTTLDays != 180 {
		t.Errorf("expected TokenTTLDays=180, got %d", cfg.Auth.TokenTTLDays)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	os.Setenv("WS_PORT", "9090")
	os.Setenv("SETUP_TIMEOUT_SEC", "20")
	os.Setenv("ROOM_MAX_PLAYERS", "8")
	defer func() {
		os.Unsetenv("WS_PORT")
		os.Unsetenv("SETUP_TIMEOUT_SEC")
		os.Unsetenv("ROOM_MAX_PLAYERS")
	}()

	cfg := Load()

	if cfg.WSPort != 9090 {
		t.Errorf("expected WSPort=9090 after env override, got %d", cfg.WSPort)
	}
	if cfg.Timing.SetupTimeoutSec != 20 {
		t.Errorf("expected SetupTimeoutSec=20 after env override, got %d", cfg.Timing.SetupTimeoutSec)
	}
	if cfg.Room.MaxPlayers != 8 {
		t.Errorf("expected Room.MaxPlayers=8 after env override, got %d", cfg.Room.MaxPlayers)
	}
	// Non-overridden fields should remain default.
	if cfg.Timing.StackTimeoutSec != 30 {
		t.Errorf("expected StackTimeoutSec=30 (default), got %d", cfg.Timing.StackTimeoutSec)
	}
}

func TestLoadWithInvalidEnv(t *testing.T) {
	os.Setenv("WS_PORT", "not-a-number")
	defer os.Unsetenv("WS_PORT")

	cfg := Load()

	if cfg.WSPort != 8080 {
		t.Errorf("expected WSPort=8080 (default) with invalid env, got %d", cfg.WSPort)
	}
}
