package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nrebei2/lunarhaze/game/world"
	"go.uber.org/zap"
)

const (
	sendChanBuf   = 256
	writeDeadline = 10 * time.Second
	readDeadline  = 60 * time.Second
	pingInterval  = 30 * time.Second // server-side WS ping
	maxFrameSize  = 4096             // largest accepted client frame
)

// Packet is the unified WS message envelope.
type Packet struct {
	Seq     uint64          `json:"seq"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client is one WebSocket connection bound to a play session.
type Client struct {
	SessionID string
	Room      *world.Room
	Conn      *websocket.Conn

	SendChan chan []byte
	Done     chan struct{}
	LastSeq  uint64 // only touched by the read loop

	logger *zap.Logger
}

// NewClient creates a Client and starts its write goroutine.
func NewClient(room *world.Room, conn *websocket.Conn, logger *zap.Logger) *Client {
	c := &Client{
		SessionID: room.ID,
		Room:      room,
		Conn:      conn,
		SendChan:  make(chan []byte, sendChanBuf),
		Done:      make(chan struct{}),
		logger:    logger,
	}
	go c.writePump()
	return c
}

// writePump drains SendChan and writes to the WebSocket connection.
// Also sends periodic WebSocket pings to detect dead connections quickly.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.Conn.Close()
	for {
		select {
		case data := <-c.SendChan:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Warn("ws write error", zap.String("session_id", c.SessionID), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.Done:
			c.drain()
			_ = c.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// drain writes whatever is still queued.
func (c *Client) drain() {
	for {
		select {
		case data := <-c.SendChan:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

// Send encodes a packet and queues it. Drops if the queue is full or the
// client is closed.
func (c *Client) Send(msgType string, payload interface{}) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return
		}
		raw = b
	}
	c.SendRaw(msgType, raw)
}

// SendRaw queues a packet whose payload is already JSON.
func (c *Client) SendRaw(msgType string, payload json.RawMessage) {
	if c.IsClosed() {
		return
	}
	data, err := json.Marshal(&Packet{Type: msgType, Payload: payload})
	if err != nil {
		return
	}
	select {
	case c.SendChan <- data:
	case <-c.Done:
	default:
		c.logger.Warn("send channel full, dropping packet",
			zap.String("session_id", c.SessionID),
			zap.String("type", msgType))
	}
}

func (c *Client) acceptSeq(seq uint64) error {
	if seq == 0 {
		return nil
	}
	if seq <= c.LastSeq {
		return errStaleSeq
	}
	c.LastSeq = seq
	return nil
}

// Close signals the writePump to shut down.
func (c *Client) Close() {
	select {
	case <-c.Done:
	default:
		close(c.Done)
	}
}

// IsClosed returns true if the client has been closed.
func (c *Client) IsClosed() bool {
	select {
	case <-c.Done:
		return true
	default:
		return false
	}
}

func (c *Client) setReadDeadline() {
	_ = c.Conn.SetReadDeadline(time.Now().Add(readDeadline))
}
