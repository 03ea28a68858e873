package ws

import (
	"context"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/nrebei2/lunarhaze/cache"
	"github.com/nrebei2/lunarhaze/config"
	"github.com/nrebei2/lunarhaze/game/world"
	mw "github.com/nrebei2/lunarhaze/middleware"
	"go.uber.org/zap"
)

// Handler is the Gin handler for GET /ws. It sits behind
// middleware.SessionAuth, which binds the connection to one session.
type Handler struct {
	mgr      *world.Manager
	pubsub   cache.PubSub
	router   *Router
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket Handler.
// sec.AllowedOrigins controls which WebSocket origins are accepted.
// An empty slice permits all origins (development only).
func NewHandler(
	mgr *world.Manager,
	pubsub cache.PubSub,
	sec config.SecurityConfig,
	router *Router,
	logger *zap.Logger,
) *Handler {
	h := &Handler{
		mgr:    mgr,
		pubsub: pubsub,
		router: router,
		logger: logger,
	}
	allowed := sec.AllowedOrigins
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true // dev mode: allow all
			}
			return slices.Contains(allowed, r.Header.Get("Origin"))
		},
	}
	return h
}

// ServeWS handles GET /ws?session=<id>&token=<jwt>.
func (h *Handler) ServeWS(c *gin.Context) {
	room, err := h.mgr.Get(mw.GetSessionID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	// Subscribe before upgrading so no tick is missed once the client is in.
	subCtx, subCancel := context.WithCancel(context.Background())
	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, world.Channel(room.ID))
	if err != nil {
		subCancel()
		h.logger.Error("ws subscribe failed", zap.String("session_id", room.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "subscribe failed"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		unsub()
		subCancel()
		h.logger.Error("ws upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(room, conn, h.logger)
	client.Send("snapshot", room.Snapshot())
	go h.forward(client, msgCh)

	// Blocks until the connection closes.
	h.readPump(subCtx, client)
	unsub()
	subCancel()
}

// forward relays published snapshots until the room or the client ends.
func (h *Handler) forward(c *Client, msgCh <-chan *cache.Message) {
	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			c.SendRaw("snapshot", []byte(msg.Payload))
		case <-c.Room.Done():
			c.Send("session_end", c.Room.Snapshot())
			c.Close()
			return
		case <-c.Done:
			return
		}
	}
}

// readPump reads messages from the WebSocket connection and dispatches them.
func (h *Handler) readPump(ctx context.Context, c *Client) {
	defer func() {
		c.Close()
		h.logger.Info("ws client disconnected", zap.String("session_id", c.SessionID))
	}()

	c.Conn.SetReadLimit(maxFrameSize)
	c.setReadDeadline()
	c.Conn.SetPongHandler(func(string) error {
		c.setReadDeadline()
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived) {
				h.logger.Warn("ws unexpected close",
					zap.String("session_id", c.SessionID),
					zap.Error(err))
			}
			return
		}
		c.setReadDeadline()
		h.router.Dispatch(ctx, c, raw)
	}
}
