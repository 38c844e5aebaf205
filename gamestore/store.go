// Package gamestore is the durable game store: it atomically persists an
// engine.State snapshot under a room's `game:{room}:*` keys and restores
// it without the engine firing a single event. The room loop treats this
// as write-through storage — it never reloads from here during normal
// operation, only at process start or after a crash.
package gamestore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"cabo-server/apperrors"
	"cabo-server/cards"
	"cabo-server/engine"
	"cabo-server/redisconn"
)

// activeRoomsKey indexes every room with a live (non-ENDED) snapshot so
// ListActive doesn't need a KEYS/SCAN sweep over the whole keyspace.
const activeRoomsKey = "rooms:active"

type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Save atomically persists s under room's keys. It takes the room's named
// lock for the duration of the write so a concurrent Load never observes
// a partially written snapshot: all keys are staged into a pipeline and
// executed in one round trip, but the lock is what actually protects
// against another writer interleaving (the orchestrator is supposed to be
// the only writer, so this is belt-and-suspenders for crash recovery
// racing a fresh room loop starting up).
func (st *Store) Save(ctx context.Context, room string, s *engine.State) error {
	lock, acquired, err := redisconn.AcquireLock(ctx, st.client, lockName(room), 5*time.Second)
	if err != nil {
		return fmt.Errorf("gamestore: save %s: %w", room, err)
	}
	if !acquired {
		return fmt.Errorf("gamestore: save %s: lock held by another writer", room)
	}
	defer lock.Release(ctx)

	playerIDs := make([]string, len(s.Players))
	for i, p := range s.Players {
		playerIDs[i] = p.ID
	}
	order, err := json.Marshal(playerIDs)
	if err != nil {
		return fmt.Errorf("gamestore: marshal player order: %w", err)
	}

	pipe := st.client.TxPipeline()

	pipe.HSet(ctx, metaKey(room),
		"game_id", s.GameID,
		"phase", s.Phase.String(),
		"player_order", string(order),
		"cabo_caller", s.CaboCaller,
		"final_round_started", boolWire(s.FinalRoundStarted),
		"winner", s.Winner,
	)
	pipe.Expire(ctx, metaKey(room), snapshotTTL)

	pipe.HSet(ctx, turnKey(room),
		"current_player_index", itoa(s.CurrentPlayerIndex),
		"drawn_card", optionalCardWire(s.DrawnCard),
		"played_card", optionalCardWire(s.PlayedCard),
		"stack_caller", s.StackCaller,
		"stack_timer_id", s.StackTimerID,
		"special_action_player", s.SpecialActionPlayer,
		"special_action_type", string(s.SpecialActionType),
		"special_action_timer_id", s.SpecialActionTimerID,
		"king_viewed_card", optionalCardWire(s.KingViewedCard),
		"king_viewed_player", s.KingViewedPlayer,
		"king_viewed_index", itoa(s.KingViewedIndex),
		"turn_transition_timer_id", s.TurnTransitionTimerID,
		"setup_timer_id", s.SetupTimerID,
	)
	pipe.Expire(ctx, turnKey(room), snapshotTTL)

	pipe.Del(ctx, deckKey(room))
	if deckCards := s.Deck.Cards(); len(deckCards) > 0 {
		pipe.RPush(ctx, deckKey(room), toAnySlice(pileToWire(deckCards))...)
	}
	pipe.Expire(ctx, deckKey(room), snapshotTTL)

	pipe.Del(ctx, discardKey(room))
	if len(s.DiscardPile) > 0 {
		pipe.RPush(ctx, discardKey(room), toAnySlice(pileToWire(s.DiscardPile))...)
	}
	pipe.Expire(ctx, discardKey(room), snapshotTTL)

	for _, p := range s.Players {
		pk := playerKey(room, p.ID)
		pipe.HSet(ctx, pk,
			"name", p.Name,
			"hand", handToWire(p.Hand),
			"has_called_cabo", boolWire(p.HasCalledCabo),
		)
		pipe.Expire(ctx, pk, snapshotTTL)

		vk := viewedKey(room, p.ID)
		pipe.Del(ctx, vk)
		if slots := s.Visible[p.ID]; len(slots) > 0 {
			members := make([]string, 0, len(slots))
			for key := range slots {
				members = append(members, visKeyWire(key.OwnerID, key.Index))
			}
			pipe.SAdd(ctx, vk, toAnySlice(members)...)
		}
		pipe.Expire(ctx, vk, snapshotTTL)
	}

	if s.Phase == engine.PhaseEnded {
		pipe.SRem(ctx, activeRoomsKey, room)
	} else {
		pipe.SAdd(ctx, activeRoomsKey, room)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("gamestore: save %s: %w", room, err)
	}
	return nil
}

// Load reconstructs an engine.State from the room's keys without firing
// any events — callers that need the game_started-equivalent event emit
// it themselves only on first creation, never on restore. Returns
// apperrors.ErrRoomNotFound if the room's metadata key doesn't exist, or
// apperrors.ErrSnapshotCorrupt if the snapshot fails its heal check.
func (st *Store) Load(ctx context.Context, room string) (*engine.State, error) {
	meta, err := st.client.HGetAll(ctx, metaKey(room)).Result()
	if err != nil {
		return nil, fmt.Errorf("gamestore: load %s: %w", room, err)
	}
	if len(meta) == 0 {
		return nil, apperrors.ErrRoomNotFound
	}

	var playerIDs []string
	if err := json.Unmarshal([]byte(meta["player_order"]), &playerIDs); err != nil {
		return nil, fmt.Errorf("gamestore: load %s: player order: %w", room, err)
	}

	turn, err := st.client.HGetAll(ctx, turnKey(room)).Result()
	if err != nil {
		return nil, fmt.Errorf("gamestore: load %s: turn: %w", room, err)
	}

	deckRaw, err := st.client.LRange(ctx, deckKey(room), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("gamestore: load %s: deck: %w", room, err)
	}
	deckCards, err := wireToPile(deckRaw)
	if err != nil {
		return nil, fmt.Errorf("gamestore: load %s: %w", room, err)
	}

	discardRaw, err := st.client.LRange(ctx, discardKey(room), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("gamestore: load %s: discard: %w", room, err)
	}
	discard, err := wireToPile(discardRaw)
	if err != nil {
		return nil, fmt.Errorf("gamestore: load %s: %w", room, err)
	}

	players := make([]*engine.Player, 0, len(playerIDs))
	visible := make(map[string]map[engine.VisKey]struct{})
	for _, id := range playerIDs {
		ph, err := st.client.HGetAll(ctx, playerKey(room, id)).Result()
		if err != nil {
			return nil, fmt.Errorf("gamestore: load %s: player %s: %w", room, id, err)
		}
		hand, err := wireToHand(ph["hand"])
		if err != nil {
			return nil, fmt.Errorf("gamestore: load %s: %w", room, err)
		}
		players = append(players, &engine.Player{
			ID:            id,
			Name:          ph["name"],
			Hand:          hand,
			HasCalledCabo: ph["has_called_cabo"] == "1",
		})

		members, err := st.client.SMembers(ctx, viewedKey(room, id)).Result()
		if err != nil {
			return nil, fmt.Errorf("gamestore: load %s: viewed %s: %w", room, id, err)
		}
		slots := make(map[engine.VisKey]struct{}, len(members))
		for _, m := range members {
			owner, index, err := parseVisKeyWire(m)
			if err != nil {
				return nil, fmt.Errorf("gamestore: load %s: %w", room, err)
			}
			slots[engine.VisKey{OwnerID: owner, Index: index}] = struct{}{}
		}
		visible[id] = slots
	}

	currentIdx, _ := strconv.Atoi(turn["current_player_index"])
	kingIdx, _ := strconv.Atoi(turn["king_viewed_index"])
	drawnCard, err := wireToOptionalCard(turn["drawn_card"])
	if err != nil {
		return nil, fmt.Errorf("gamestore: load %s: %w", room, err)
	}
	playedCard, err := wireToOptionalCard(turn["played_card"])
	if err != nil {
		return nil, fmt.Errorf("gamestore: load %s: %w", room, err)
	}
	kingCard, err := wireToOptionalCard(turn["king_viewed_card"])
	if err != nil {
		return nil, fmt.Errorf("gamestore: load %s: %w", room, err)
	}

	s := &engine.State{
		GameID:                meta["game_id"],
		Phase:                 phaseFromWire(meta["phase"]),
		Players:               players,
		CurrentPlayerIndex:    currentIdx,
		Deck:                  cards.NewDeckFromCards(deckCards),
		DiscardPile:           discard,
		DrawnCard:             drawnCard,
		PlayedCard:            playedCard,
		StackCaller:           turn["stack_caller"],
		StackTimerID:          turn["stack_timer_id"],
		SpecialActionPlayer:   turn["special_action_player"],
		SpecialActionType:     engine.SpecialActionKind(turn["special_action_type"]),
		SpecialActionTimerID:  turn["special_action_timer_id"],
		KingViewedCard:        kingCard,
		KingViewedPlayer:      turn["king_viewed_player"],
		KingViewedIndex:       kingIdx,
		TurnTransitionTimerID: turn["turn_transition_timer_id"],
		SetupTimerID:          turn["setup_timer_id"],
		CaboCaller:            meta["cabo_caller"],
		FinalRoundStarted:     meta["final_round_started"] == "1",
		Winner:                meta["winner"],
		Visible:               visible,
	}

	if err := heal(s); err != nil {
		return nil, err
	}
	return s, nil
}

// heal discards logically impossible field combinations a prior crash
// might have left behind, so a bad snapshot doesn't crash-loop the room
// loop forever. It clears a drawn card left in a phase that never carries
// one (waiting for a special action, either King phase, stack called,
// turn transition), and rejects a current player index outside the seat
// list with apperrors.ErrSnapshotCorrupt. Stack and King bookkeeping
// fields are not checked.
func heal(s *engine.State) error {
	switch s.Phase {
	case engine.PhaseKingViewPhase, engine.PhaseKingSwapPhase, engine.PhaseWaitingForSpecialAction, engine.PhaseStackCalled, engine.PhaseTurnTransition:
		if s.DrawnCard != nil {
			s.DrawnCard = nil
		}
	}
	if s.CurrentPlayerIndex < 0 || (len(s.Players) > 0 && s.CurrentPlayerIndex >= len(s.Players)) {
		return fmt.Errorf("%w: current_player_index %d out of range for %d players", apperrors.ErrSnapshotCorrupt, s.CurrentPlayerIndex, len(s.Players))
	}
	return nil
}

// Delete removes every key belonging to room, used once a finished
// game's cleanup grace period has elapsed.
func (st *Store) Delete(ctx context.Context, room string, playerIDs []string) error {
	keys := allKeysFor(room, playerIDs)
	pipe := st.client.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.SRem(ctx, activeRoomsKey, room)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("gamestore: delete %s: %w", room, err)
	}
	return nil
}

// ListActive enumerates rooms with a live (non-ENDED) snapshot.
func (st *Store) ListActive(ctx context.Context) ([]string, error) {
	rooms, err := st.client.SMembers(ctx, activeRoomsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("gamestore: list active: %w", err)
	}
	return rooms, nil
}

func phaseFromWire(s string) engine.Phase {
	switch s {
	case "setup":
		return engine.PhaseSetup
	case "playing":
		return engine.PhasePlaying
	case "waiting_for_special_action":
		return engine.PhaseWaitingForSpecialAction
	case "king_view_phase":
		return engine.PhaseKingViewPhase
	case "king_swap_phase":
		return engine.PhaseKingSwapPhase
	case "stack_called":
		return engine.PhaseStackCalled
	case "turn_transition":
		return engine.PhaseTurnTransition
	case "ended":
		return engine.PhaseEnded
	default:
		return engine.PhaseSetup
	}
}

func boolWire(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
