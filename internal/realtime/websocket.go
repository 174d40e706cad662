// internal/realtime/websocket.go
package realtime

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// WebSocketConn wraps websocket.Conn so the hub never touches sockets.
type WebSocketConn struct {
	Conn *websocket.Conn
}

func NewWebSocketConn(c *websocket.Conn) *WebSocketConn {
	return &WebSocketConn{Conn: c}
}

// WritePump copies frames from send to the socket and pings it
// periodically. It returns when send is closed or a write fails; it is the
// only writer of the socket.
func (w *WebSocketConn) WritePump(send <-chan []byte) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-send:
			_ = w.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = w.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return nil
			}
			if err := w.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}
		case <-ticker.C:
			_ = w.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := w.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}

// Inbound is a frame sent by the browser.
type Inbound struct {
	Type string `json:"type"`
	Body string `json:"body"`
}

func (w *WebSocketConn) ReadInbound() (Inbound, error) {
	var in Inbound
	err := w.Conn.ReadJSON(&in)
	return in, err
}
