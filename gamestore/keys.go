package gamestore

import (
	"strconv"
	"time"
)

// snapshotTTL is the soft per-key expiration applied to every per-game
// key this package writes (the shared rooms:active index has none), so a room abandoned mid-game self-purges instead of
// living in Redis forever. The room loop refreshes it on every snapshot,
// so an active room's keys never actually reach it.
const snapshotTTL = 24 * time.Hour

func metaKey(room string) string   { return "game:" + room + ":meta" }
func turnKey(room string) string   { return "game:" + room + ":turn" }
func deckKey(room string) string   { return "game:" + room + ":deck" }
func discardKey(room string) string { return "game:" + room + ":discard" }

func playerKey(room, playerID string) string {
	return "game:" + room + ":player:" + playerID
}

func viewedKey(room, playerID string) string {
	return "game:" + room + ":viewed:" + playerID
}

func lockName(room string) string {
	return "game:" + room
}

func allKeysFor(room string, playerIDs []string) []string {
	keys := []string{metaKey(room), turnKey(room), deckKey(room), discardKey(room)}
	for _, id := range playerIDs {
		keys = append(keys, playerKey(room, id), viewedKey(room, id))
	}
	return keys
}

func itoa(n int) string { return strconv.Itoa(n) }
