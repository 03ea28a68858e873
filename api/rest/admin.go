package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nrebei2/lunarhaze/game/world"
	"github.com/nrebei2/lunarhaze/plugin/hook"
	"github.com/nrebei2/lunarhaze/scheduler"
	"go.uber.org/zap"
)

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by middleware.AdminAuth.
type AdminHandler struct {
	mgr    *world.Manager
	sched  *scheduler.Scheduler
	hooks  *hook.HookCenter
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(
	mgr *world.Manager,
	sched *scheduler.Scheduler,
	hooks *hook.HookCenter,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{mgr: mgr, sched: sched, hooks: hooks, logger: logger}
}

// Metrics returns server health metrics.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"active_sessions": h.mgr.ActiveCount(),
		"scheduler_tasks": len(h.sched.Tasks()),
		"collision":       h.mgr.CollisionTotals(),
	})
}

// ListSessions describes every live session.
// GET /api/admin/sessions
func (h *AdminHandler) ListSessions(c *gin.Context) {
	sessions := h.mgr.List()
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
}

// KickSession ends a session regardless of its token.
// DELETE /api/admin/sessions/:id
func (h *AdminHandler) KickSession(c *gin.Context) {
	id := c.Param("id")
	if err := h.mgr.Destroy(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	h.logger.Info("admin ended session", zap.String("session_id", id))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ListSchedulerTasks returns the registered ticker tasks with their run counts.
// GET /api/admin/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.Tasks()})
}

// ListHooks returns the registered hook handlers per event.
// GET /api/admin/hooks
func (h *AdminHandler) ListHooks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"hooks": h.hooks.Handlers()})
}
