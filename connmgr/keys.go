package connmgr

func presenceKey(room string) string  { return "presence:" + room }
func connKey(session string) string   { return "conn:" + session }
func cursorKey(session string) string { return "cursor:" + session }
func outboxKey(session string) string { return "outbox:" + session }
func graceKey(session string) string  { return "grace:" + session }
func seqKey(room string) string       { return "seq:game:" + room }
