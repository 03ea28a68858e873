package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nrebei2/lunarhaze/audit"
	"github.com/nrebei2/lunarhaze/config"
	"github.com/nrebei2/lunarhaze/game/entity"
	"github.com/nrebei2/lunarhaze/game/world"
	mw "github.com/nrebei2/lunarhaze/middleware"
	"github.com/nrebei2/lunarhaze/resource"
	"go.uber.org/zap"
)

const recentEventsDefault = 20

// SessionHandler creates play sessions and exposes their state.
// Every route except Create sits behind middleware.SessionAuth.
type SessionHandler struct {
	mgr     *world.Manager
	journal *audit.Service
	sec     config.SecurityConfig
	logger  *zap.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(mgr *world.Manager, journal *audit.Service, sec config.SecurityConfig, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{mgr: mgr, journal: journal, sec: sec, logger: logger}
}

// Create starts a session and returns the token that controls it.
// POST /api/sessions {"level": "courtyard"}
func (h *SessionHandler) Create(c *gin.Context) {
	var req struct {
		Level string `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "level is required"})
		return
	}

	room, err := h.mgr.Create(c.Request.Context(), req.Level)
	switch {
	case errors.Is(err, resource.ErrLevelNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "level not found"})
		return
	case errors.Is(err, world.ErrTooManySessions):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many sessions"})
		return
	case err != nil:
		h.logger.Error("create session failed", zap.String("level", req.Level), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	token, err := mw.GenerateToken(room.ID, room.Level, h.sec.JWTSecret, h.sec.JWTTTL)
	if err != nil {
		_ = h.mgr.Destroy(room.ID)
		h.logger.Error("sign session token failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"session_id": room.ID,
		"level":      room.Level,
		"token":      token,
		"channel":    world.Channel(room.ID),
	})
}

// room resolves the :id session or writes a 404.
func (h *SessionHandler) room(c *gin.Context) (*world.Room, bool) {
	room, err := h.mgr.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return room, true
}

// Snapshot returns the state as of the last tick.
// GET /api/sessions/:id/snapshot
func (h *SessionHandler) Snapshot(c *gin.Context) {
	room, ok := h.room(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, room.Snapshot())
}

// Input replaces the controls applied from the next tick on.
// POST /api/sessions/:id/input
func (h *SessionHandler) Input(c *gin.Context) {
	room, ok := h.room(c)
	if !ok {
		return
	}
	var in entity.Controls
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	room.SetInput(in)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Route returns the path an enemy would take to its current goal, for the
// route preview overlay.
// GET /api/sessions/:id/route?enemy=1
func (h *SessionHandler) Route(c *gin.Context) {
	room, ok := h.room(c)
	if !ok {
		return
	}
	enemyID, err := strconv.Atoi(c.Query("enemy"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid enemy"})
		return
	}
	preview, err := room.Route(enemyID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "enemy not found"})
		return
	}
	c.JSON(http.StatusOK, preview)
}

// Events returns the session's most recent events, newest first.
// GET /api/sessions/:id/events?limit=20
func (h *SessionHandler) Events(c *gin.Context) {
	limit := recentEventsDefault
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= audit.RecentLimit {
		limit = l
	}
	id := c.Param("id")
	events, err := h.journal.Recent(c.Request.Context(), id, limit)
	if err != nil {
		h.logger.Warn("recent events failed", zap.String("session_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cache error"})
		return
	}
	if events == nil {
		events = []world.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// Delete ends the session.
// DELETE /api/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.mgr.Destroy(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
