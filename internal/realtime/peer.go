package realtime

import (
	"time"

	"github.com/gorilla/websocket"
)

// peer is one authenticated connection.
type peer struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	server *Server
}

// readPump reads frames from the connection and dispatches them in order.
func (p *peer) readPump() {
	defer func() {
		p.server.removePeer(p)
		p.conn.Close()
	}()

	p.conn.SetReadLimit(maxFrameSize)
	p.conn.SetReadDeadline(time.Now().Add(readDeadline))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		msgType, message, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				p.server.logger.Debugw("websocket read error", "peer", p.id, "error", err)
			}
			return
		}

		if msgType != websocket.TextMessage {
			p.server.logger.Debugw("ignoring non-text frame", "peer", p.id, "type", msgType)
			continue
		}

		p.server.handleFrame(p, message)
	}
}

// writePump writes queued frames and keepalive pings.
func (p *peer) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case message, ok := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := p.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue hands a frame to the write loop without blocking. A full queue
// drops the frame so one slow peer cannot hold up the others.
func (p *peer) enqueue(data []byte) bool {
	select {
	case p.send <- data:
		return true
	default:
		return false
	}
}

// close sends a close frame with code and reason, then drops the connection.
func (p *peer) close(code int, reason string) {
	p.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeDeadline),
	)
	p.conn.Close()
}
