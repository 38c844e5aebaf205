package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
)

// TimingConfig holds every duration the orchestrator and connection
// manager need, all expressed in seconds for easy env/JSON overrides.
type TimingConfig struct {
	SetupTimeoutSec          int `json:"setup_timeout_sec"`
	TurnTransitionTimeoutSec int `json:"turn_transition_timeout_sec"`
	SpecialActionTimeoutSec  int `json:"special_action_timeout_sec"`
	StackTimeoutSec          int `json:"stack_timeout_sec"`
	CleanupGraceSec          int `json:"cleanup_grace_sec"`
	GracePeriodSec           int `json:"grace_period_sec"`
	HeartbeatIntervalSec     int `json:"heartbeat_interval_sec"`
	HeartbeatTimeoutSec      int `json:"heartbeat_timeout_sec"`
}

// RoomConfig holds lobby sizing and code-format parameters.
type RoomConfig struct {
	MinPlayers int `json:"min_players"`
	MaxPlayers int `json:"max_players"`
	CodeLength int `json:"code_length"`
}

// StorageConfig holds Redis stream/outbox capacity and TTL knobs.
type StorageConfig struct {
	StreamCapEvents       int `json:"stream_cap_events"`
	CheckpointHistoryCap  int `json:"checkpoint_history_cap"`
	CheckpointTTLHours    int `json:"checkpoint_ttl_hours"`
	SnapshotTTLHours      int `json:"snapshot_ttl_hours"`
	OutboxCapMessages     int `json:"outbox_cap_messages"`
	OutboxTTLHours        int `json:"outbox_ttl_hours"`
}

// AuthConfig holds session-token signing parameters.
type AuthConfig struct {
	TokenTTLDays        int `json:"token_ttl_days"`
	RefreshThresholdDays int `json:"refresh_threshold_days"`
}

// Config holds all configurable server parameters.
type Config struct {
	WSPort        int    `json:"ws_port"`
	RedisURL      string `json:"redis_url"`
	DatabaseURL   string `json:"database_url"`
	MaxNameLength int    `json:"max_name_length"`

	Timing  TimingConfig  `json:"timing"`
	Room    RoomConfig    `json:"room"`
	Storage StorageConfig `json:"storage"`
	Auth    AuthConfig    `json:"auth"`

	// IdleRoomTimeoutMinutes and CleanupIntervalSec drive the janitor
	// sweep that reaps rooms with no recent activity.
	IdleRoomTimeoutMinutes int `json:"idle_room_timeout_minutes"`
	CleanupIntervalSec     int `json:"cleanup_interval_sec"`
}

// Defaults returns a Config with every ambient and domain default the
// server starts up with when an environment variable isn't set.
func Defaults() *Config {
	return &Config{
		WSPort:        8080,
		RedisURL:      "redis://localhost:6379/0",
		MaxNameLength: 24,
		Timing: TimingConfig{
			SetupTimeoutSec:          10,
			TurnTransitionTimeoutSec: 5,
			SpecialActionTimeoutSec:  30,
			StackTimeoutSec:          30,
			CleanupGraceSec:          10,
			GracePeriodSec:           60,
			HeartbeatIntervalSec:     10,
			HeartbeatTimeoutSec:      20,
		},
		Room: RoomConfig{
			MinPlayers: 2,
			MaxPlayers: 6,
			CodeLength: 6,
		},
		Storage: StorageConfig{
			StreamCapEvents:      1000,
			CheckpointHistoryCap: 50,
			CheckpointTTLHours:   24,
			SnapshotTTLHours:     24,
			OutboxCapMessages:    100,
			OutboxTTLHours:       1,
		},
		Auth: AuthConfig{
			TokenTTLDays:         180,
			RefreshThresholdDays: 7,
		},
		IdleRoomTimeoutMinutes: 10,
		CleanupIntervalSec:     120,
	}
}

// Load reads configuration from an optional config.json file, then
// applies environment variable overrides. Fields not set in either
// source retain their default values.
func Load() *Config {
	cfg := Defaults()

	if f, err := os.Open("config.json"); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			log.Printf("Warning: failed to parse config.json: %v", err)
		}
	}

	overrideInt(&cfg.WSPort, "WS_PORT")
	overrideString(&cfg.RedisURL, "REDIS_URL")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideInt(&cfg.MaxNameLength, "MAX_NAME_LENGTH")

	overrideInt(&cfg.Timing.SetupTimeoutSec, "SETUP_TIMEOUT_SEC")
	overrideInt(&cfg.Timing.TurnTransitionTimeoutSec, "TURN_TRANSITION_TIMEOUT_SEC")
	overrideInt(&cfg.Timing.SpecialActionTimeoutSec, "SPECIAL_ACTION_TIMEOUT_SEC")
	overrideInt(&cfg.Timing.StackTimeoutSec, "STACK_TIMEOUT_SEC")
	overrideInt(&cfg.Timing.CleanupGraceSec, "CLEANUP_GRACE_SEC")
	overrideInt(&cfg.Timing.GracePeriodSec, "GRACE_PERIOD_SEC")
	overrideInt(&cfg.Timing.HeartbeatIntervalSec, "HEARTBEAT_INTERVAL_SEC")
	overrideInt(&cfg.Timing.HeartbeatTimeoutSec, "HEARTBEAT_TIMEOUT_SEC")

	overrideInt(&cfg.Room.MinPlayers, "ROOM_MIN_PLAYERS")
	overrideInt(&cfg.Room.MaxPlayers, "ROOM_MAX_PLAYERS")
	overrideInt(&cfg.Room.CodeLength, "ROOM_CODE_LENGTH")

	overrideInt(&cfg.Storage.StreamCapEvents, "STREAM_CAP_EVENTS")
	overrideInt(&cfg.Storage.CheckpointHistoryCap, "CHECKPOINT_HISTORY_CAP")
	overrideInt(&cfg.Storage.CheckpointTTLHours, "CHECKPOINT_TTL_HOURS")
	overrideInt(&cfg.Storage.SnapshotTTLHours, "SNAPSHOT_TTL_HOURS")
	overrideInt(&cfg.Storage.OutboxCapMessages, "OUTBOX_CAP_MESSAGES")
	overrideInt(&cfg.Storage.OutboxTTLHours, "OUTBOX_TTL_HOURS")

	overrideInt(&cfg.Auth.TokenTTLDays, "AUTH_TOKEN_TTL_DAYS")
	overrideInt(&cfg.Auth.RefreshThresholdDays, "AUTH_REFRESH_THRESHOLD_DAYS")

	overrideInt(&cfg.IdleRoomTimeoutMinutes, "IDLE_ROOM_TIMEOUT_MINUTES")
	overrideInt(&cfg.CleanupIntervalSec, "CLEANUP_INTERVAL_SEC")

	return cfg
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			log.Printf("Warning: invalid value for %s: %q", envKey, val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}
