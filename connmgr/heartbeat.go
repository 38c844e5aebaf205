package connmgr

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

// heartbeat pings conn every pingInterval and moves it into grace if no
// pong has landed within pingTimeout. It exits when stopHB is closed
// (normal disconnect) or a ping/write fails outright.
func (m *Manager) heartbeat(conn *Connection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-conn.stopHB:
			return
		case <-ticker.C:
			conn.writeMu.Lock()
			conn.LastPing = timeNow()
			err := conn.transport.WriteControl(websocket.PingMessage, nil, timeNow().Add(pingTimeout))
			conn.writeMu.Unlock()

			if err != nil || timeNow().Sub(conn.LastPong) > pingTimeout {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_ = m.Disconnect(ctx, conn.ID, true, true)
				cancel()
				return
			}
		}
	}
}

// onPong records a liveness response. Register wires this in as the
// transport's pong handler as soon as the connection is created.
func (c *Connection) onPong(string) error {
	c.LastPong = timeNow()
	return nil
}
