package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nrebei2/lunarhaze/audit"
	"github.com/nrebei2/lunarhaze/resource"
	"go.uber.org/zap"
)

const (
	leaderboardDefault = 10
	leaderboardMax     = 100
)

// LevelHandler serves the level catalog.
type LevelHandler struct {
	store   *resource.Store
	journal *audit.Service
	logger  *zap.Logger
}

// NewLevelHandler creates a LevelHandler.
func NewLevelHandler(store *resource.Store, journal *audit.Service, logger *zap.Logger) *LevelHandler {
	return &LevelHandler{store: store, journal: journal, logger: logger}
}

// List returns the stored levels.
// GET /api/levels
func (h *LevelHandler) List(c *gin.Context) {
	levels, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list levels failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"levels": levels})
}

// Get returns one level description.
// GET /api/levels/:name
func (h *LevelHandler) Get(c *gin.Context) {
	lvl, err := h.store.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.levelError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"width":  lvl.Width,
		"height": lvl.Height,
		"level":  lvl.Data,
	})
}

// Put creates or replaces a level. The body is a level description in JSON;
// its name must be empty or match the path.
// PUT /api/levels/:name
func (h *LevelHandler) Put(c *gin.Context) {
	name := c.Param("name")
	var d resource.LevelData
	if err := c.ShouldBindJSON(&d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	if d.Name == "" {
		d.Name = name
	}
	if d.Name != name {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name does not match path"})
		return
	}
	lvl, err := resource.NewLevel(d)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.Put(c.Request.Context(), lvl); err != nil {
		h.logger.Error("store level failed", zap.String("level", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	h.logger.Info("level stored", zap.String("level", name))
	c.JSON(http.StatusOK, gin.H{"ok": true, "name": name})
}

// Delete removes a level. Running sessions keep their copy.
// DELETE /api/levels/:name
func (h *LevelHandler) Delete(c *gin.Context) {
	name := c.Param("name")
	if err := h.store.Delete(c.Request.Context(), name); err != nil {
		h.levelError(c, err)
		return
	}
	h.logger.Info("level deleted", zap.String("level", name))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ScoreEntry is one leaderboard row.
type ScoreEntry struct {
	Rank      int    `json:"rank"`
	SessionID string `json:"session_id"`
	Ticks     int    `json:"ticks"`
}

// Leaderboard returns the fastest wins on a level.
// GET /api/levels/:name/leaderboard?limit=10
func (h *LevelHandler) Leaderboard(c *gin.Context) {
	limit := leaderboardDefault
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= leaderboardMax {
		limit = l
	}
	name := c.Param("name")
	scores, err := h.journal.Leaderboard(c.Request.Context(), name, limit)
	if err != nil {
		h.logger.Error("leaderboard failed", zap.String("level", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	entries := make([]ScoreEntry, len(scores))
	for i, s := range scores {
		entries[i] = ScoreEntry{Rank: i + 1, SessionID: s.SessionID, Ticks: s.Ticks}
	}
	c.JSON(http.StatusOK, gin.H{"level": name, "entries": entries})
}

func (h *LevelHandler) levelError(c *gin.Context, err error) {
	if errors.Is(err, resource.ErrLevelNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "level not found"})
		return
	}
	h.logger.Error("level lookup failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
}
