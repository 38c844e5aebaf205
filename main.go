package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cabo-server/auth"
	"cabo-server/broadcast"
	"cabo-server/config"
	"cabo-server/connmgr"
	"cabo-server/eventlog"
	"cabo-server/gamestore"
	"cabo-server/gateway"
	"cabo-server/loghandler"
	"cabo-server/namesvc"
	"cabo-server/orchestrator"
	"cabo-server/redisconn"
	"cabo-server/room"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found; using environment variables")
	}

	cfg := config.Load()
	logger := slog.New(loghandler.NewCompactHandler(os.Stdout, slog.LevelInfo))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := redisconn.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	names, err := namesvc.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to name service database", "err", err)
		os.Exit(1)
	}
	if names != nil {
		defer names.Close()
	} else {
		logger.Warn("DATABASE_URL not set; running without a name service")
	}

	store := gamestore.New(redisClient)
	log := eventlog.New(redisClient)

	timing := orchestrator.TimingFromSeconds(
		cfg.Timing.SetupTimeoutSec,
		cfg.Timing.TurnTransitionTimeoutSec,
		cfg.Timing.SpecialActionTimeoutSec,
		cfg.Timing.StackTimeoutSec,
		cfg.Timing.CleanupGraceSec,
	)

	// connmgr.Manager and orchestrator.Manager each need a reference to
	// the other (connmgr enqueues player actions into orchestrator;
	// orchestrator asks connmgr for an error-delivery target and the
	// current broadcast sequence when it takes a checkpoint), so
	// orchestrator is constructed first and connmgr wired in afterward.
	rooms := orchestrator.NewManager(redisClient, store, log, nil, names, timing, logger)

	connGrace := time.Duration(cfg.Timing.GracePeriodSec) * time.Second
	conns := connmgr.NewManager(redisClient, rooms, log, connGrace, logger)
	rooms.SetSequenceSource(conns)
	rooms.SetNotifier(conns)

	activeGames, err := store.ListActive(ctx)
	if err != nil {
		logger.Error("failed to list active games", "err", err)
	}
	for _, roomID := range activeGames {
		if err := rooms.Resume(ctx, roomID); err != nil {
			logger.Error("failed to resume game", "room", roomID, "err", err)
		}
	}

	bcast := broadcast.NewManager(log, conns, conns, logger)
	for _, roomID := range rooms.ActiveRooms() {
		bcast.Start(ctx, roomID, "")
	}

	lobbyCfg := room.Config{MinPlayers: cfg.Room.MinPlayers, MaxPlayers: cfg.Room.MaxPlayers}
	lobby := room.NewManager(names, rooms, conns, lobbyCfg)

	idleFor := time.Duration(cfg.IdleRoomTimeoutMinutes) * time.Minute
	sweepEvery := time.Duration(cfg.CleanupIntervalSec) * time.Second
	janitor := room.NewJanitor(names, rooms, store, idleFor, sweepEvery, logger)
	go janitor.Run(ctx)

	tokenTTL := time.Duration(cfg.Auth.TokenTTLDays) * 24 * time.Hour
	issuer := auth.NewIssuer(jwtSecret(), tokenTTL)

	lobbyAPI := gateway.NewLobbyAPI(lobby, issuer)
	ws := gateway.New(issuer, names, conns, rooms, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/rooms", lobbyAPI.CreateRoom)
	mux.HandleFunc("POST /api/rooms/join", lobbyAPI.JoinRoom)
	mux.HandleFunc("POST /api/rooms/start", lobbyAPI.StartGame)
	mux.HandleFunc("/ws", ws.ServeHTTP)

	addr := ":" + strconv.Itoa(cfg.WSPort)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server exited", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	for _, roomID := range rooms.ActiveRooms() {
		rooms.Shutdown(roomID)
		bcast.Stop(roomID)
	}
}

func jwtSecret() []byte {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return []byte(s)
	}
	slog.Warn("JWT_SECRET not set; using an insecure development default")
	return []byte("cabo-dev-secret-change-me")
}
