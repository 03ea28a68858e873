// Package sse streams session snapshots to browsers over text/event-stream.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nrebei2/lunarhaze/cache"
	"github.com/nrebei2/lunarhaze/game/world"
	mw "github.com/nrebei2/lunarhaze/middleware"
	"go.uber.org/zap"
)

// AnnounceChannel carries server-wide announcements to every stream.
const AnnounceChannel = "announce"

const keepaliveInterval = 30 * time.Second

// Handler serves /sse and the announce route.
type Handler struct {
	mgr    *world.Manager
	pubsub cache.PubSub
	logger *zap.Logger
}

// NewHandler creates a Handler.
func NewHandler(mgr *world.Manager, pubsub cache.PubSub, logger *zap.Logger) *Handler {
	return &Handler{mgr: mgr, pubsub: pubsub, logger: logger}
}

// stream frames events onto a flushed response.
type stream struct {
	w gin.ResponseWriter
}

func (s stream) event(name, data string) {
	fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data)
	s.w.Flush()
}

func (s stream) comment(text string) {
	fmt.Fprintf(s.w, ": %s\n\n", text)
	s.w.Flush()
}

// ServeSSE streams the snapshots of the caller's session until the session
// ends or the client disconnects. It sits behind middleware.SessionAuth.
// GET /sse?session=<id>&token=<jwt>
func (h *Handler) ServeSSE(c *gin.Context) {
	room, err := h.mgr.Get(mw.GetSessionID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	msgs, unsub, err := h.pubsub.Subscribe(ctx, world.Channel(room.ID), AnnounceChannel)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.String("session_id", room.ID), zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer unsub()

	hdr := c.Writer.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	out := stream{w: c.Writer}
	hello, _ := json.Marshal(gin.H{"session_id": room.ID})
	out.event("connected", string(hello))

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if msg.Channel == AnnounceChannel {
				out.event("announce", msg.Payload)
			} else {
				out.event("snapshot", msg.Payload)
			}
		case <-room.Done():
			out.event("end", "{}")
			return
		case <-keepalive.C:
			out.comment("keepalive")
		case <-ctx.Done():
			return
		}
	}
}

// Announce publishes message to every open stream.
func (h *Handler) Announce(ctx context.Context, message string) error {
	return h.pubsub.Publish(ctx, AnnounceChannel, message)
}

// PostAnnounce is the admin route for Announce.
// POST /api/admin/announce {"message": "..."}
func (h *Handler) PostAnnounce(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	payload, _ := json.Marshal(gin.H{"message": req.Message})
	if err := h.Announce(c.Request.Context(), string(payload)); err != nil {
		h.logger.Error("announce failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "publish failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
