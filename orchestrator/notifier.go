package orchestrator

import "context"

// Notifier is the orchestrator's only outbound dependency on the
// connection layer: a targeted error delivery for rejected or malformed
// actions. Everything else clients learn about a room travels through
// the event stream, which the broadcast pump (not the orchestrator)
// fans out.
type Notifier interface {
	SendError(ctx context.Context, sessionID, code, message string) error
}

// ActivityTracker lets the orchestrator touch a room's last-activity
// timestamp in the external name service after every processed tick, so
// an external idle-room janitor never mistakes a quietly-running game
// for an abandoned one.
type ActivityTracker interface {
	TouchRoomActivity(ctx context.Context, roomID string) error
}

// SequenceSource exposes the connection manager's room-scoped broadcast
// sequence counter so a checkpoint's sequence_num reflects the last
// sequence number handed out at the moment the checkpoint was taken. It
// is optional: a nil SequenceSource leaves sequence_num at zero, which is
// harmless since the broadcast pump never relies on it — only the stream
// position is used to resume a tail.
type SequenceSource interface {
	CurrentSequence(ctx context.Context, roomID string) (int64, error)
}
