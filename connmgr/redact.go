package connmgr

import "cabo-server/broadcast"

// redactedCardFields are the event Data keys the engine ever fills with
// an actual card value. A restricted envelope hides exactly these from
// a viewer without standing, leaving everything else (who acted, phase
// changes, player names) intact.
var redactedCardFields = []string{"card", "player_card", "target_card"}

// forViewer returns msg unchanged unless it is a broadcast.Envelope
// carrying a VisibleTo restriction the given session isn't in, in which
// case it returns a copy with its card fields hidden. Every outbound
// send passes through here, so a player can never learn a card the
// engine's own visibility bookkeeping didn't grant them.
func forViewer(sessionID string, msg any) any {
	env, ok := msg.(broadcast.Envelope)
	if !ok || env.VisibleTo == nil {
		return msg
	}
	for _, id := range env.VisibleTo {
		if id == sessionID {
			return msg
		}
	}
	redacted := make(map[string]any, len(env.Data))
	for k, v := range env.Data {
		redacted[k] = v
	}
	for _, field := range redactedCardFields {
		if _, ok := redacted[field]; ok {
			redacted[field] = "hidden"
		}
	}
	env.Data = redacted
	return env
}
