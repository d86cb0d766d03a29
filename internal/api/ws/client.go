package ws

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/termplex/internal/infrastructure/logging"
	"github.com/GriffinCanCode/termplex/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/termplex/internal/routing"
	"github.com/GriffinCanCode/termplex/internal/shared/id"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 256
)

// client is one view-surface connection. Writes happen only on writePump.
type client struct {
	id      id.ClientID
	conn    *websocket.Conn
	log     *logging.Logger
	metrics *monitoring.Metrics

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// mu guards owned and is held across create so the new session's first
	// events cannot be filtered out before ownership is recorded
	mu    sync.Mutex
	owned map[id.SessionID]struct{}
}

func newClient(conn *websocket.Conn, log *logging.Logger, metrics *monitoring.Metrics) *client {
	cid := id.NewClientID()
	return &client{
		id:      cid,
		conn:    conn,
		log:     log.With(zap.String("client", cid.String())),
		metrics: metrics,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		owned:   make(map[id.SessionID]struct{}),
	}
}

// enqueue never blocks. A client that cannot keep up is disconnected.
func (c *client) enqueue(msg Outbound) {
	data, err := routing.Marshal(msg)
	if err != nil {
		c.log.Error("Failed to encode message", zap.String("type", msg.Type), zap.Error(err))
		return
	}

	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- data:
		c.metrics.RecordWSMessage(monitoring.DirectionOut, msg.Type)
	default:
		c.log.Warn("Send buffer full, dropping client")
		c.close()
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("WebSocket write failed", zap.Error(err))
				c.close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *client) own(sid id.SessionID) {
	c.owned[sid] = struct{}{}
}

func (c *client) disown(sid id.SessionID) {
	c.mu.Lock()
	delete(c.owned, sid)
	c.mu.Unlock()
}

func (c *client) owns(sid id.SessionID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.owned[sid]
	return ok
}

// takeOwned empties the owned set and returns what it held
func (c *client) takeOwned() []id.SessionID {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]id.SessionID, 0, len(c.owned))
	for sid := range c.owned {
		out = append(out, sid)
	}
	c.owned = make(map[id.SessionID]struct{})
	return out
}
