package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nrebei2/lunarhaze/api/rest"
	"github.com/nrebei2/lunarhaze/audit"
	"github.com/nrebei2/lunarhaze/config"
	"github.com/nrebei2/lunarhaze/game/world"
	mw "github.com/nrebei2/lunarhaze/middleware"
	"github.com/nrebei2/lunarhaze/plugin/hook"
	"github.com/nrebei2/lunarhaze/resource"
	"github.com/nrebei2/lunarhaze/scheduler"
	"github.com/nrebei2/lunarhaze/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testAdminKey = "admin-secret"

type testEnv struct {
	r       *gin.Engine
	mgr     *world.Manager
	store   *resource.Store
	journal *audit.Service
	sched   *scheduler.Scheduler
	hooks   *hook.HookCenter
}

// newTestEnv wires the REST handlers the way main does. Rooms are registered
// with an hour-long tick so tests drive them with Room.Tick.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	logger := zap.NewNop()

	db := testutil.SetupTestDB(t)
	c, ps := testutil.SetupTestCache(t)
	store := resource.NewStore(db, c, time.Minute, logger)
	require.NoError(t, store.Put(ctx, testutil.OpenLevel(t, "yard", 8, 8,
		resource.SpawnPoint{X: 5, Y: 5, Facing: "west"})))

	journal := audit.New(db, c, logger)
	t.Cleanup(func() { journal.Stop(ctx) })
	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)
	hooks := hook.NewHookCenter()
	mgr := world.NewManager(store, sched, ps, journal, hooks, world.ManagerConfig{
		TickInterval: time.Hour,
		MaxSessions:  2,
		Settings:     world.DefaultSettings(),
	}, logger)
	t.Cleanup(mgr.StopAll)

	sec := config.SecurityConfig{JWTSecret: "test-secret", JWTTTL: time.Hour}
	levelH := rest.NewLevelHandler(store, journal, logger)
	sessionH := rest.NewSessionHandler(mgr, journal, sec, logger)
	adminH := rest.NewAdminHandler(mgr, sched, hooks, logger)

	r := gin.New()
	r.GET("/health", rest.Health)
	api := r.Group("/api")
	api.GET("/levels", levelH.List)
	api.GET("/levels/:name", levelH.Get)
	api.GET("/levels/:name/leaderboard", levelH.Leaderboard)
	api.PUT("/levels/:name", mw.AdminAuth(testAdminKey), levelH.Put)
	api.DELETE("/levels/:name", mw.AdminAuth(testAdminKey), levelH.Delete)

	api.POST("/sessions", sessionH.Create)
	sess := api.Group("/sessions/:id", mw.SessionAuth(sec))
	sess.GET("/snapshot", sessionH.Snapshot)
	sess.POST("/input", sessionH.Input)
	sess.GET("/route", sessionH.Route)
	sess.GET("/events", sessionH.Events)
	sess.DELETE("", sessionH.Delete)

	admin := api.Group("/admin", mw.AdminAuth(testAdminKey))
	admin.GET("/metrics", adminH.Metrics)
	admin.GET("/sessions", adminH.ListSessions)
	admin.DELETE("/sessions/:id", adminH.KickSession)
	admin.GET("/scheduler", adminH.ListSchedulerTasks)
	admin.GET("/hooks", adminH.ListHooks)

	return &testEnv{r: r, mgr: mgr, store: store, journal: journal, sched: sched, hooks: hooks}
}

// do sends a request with an optional JSON body and header pairs.
func (e *testEnv) do(method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func bearer(token string) []string { return []string{"Authorization", "Bearer " + token} }

func adminKey() []string { return []string{mw.AdminKeyHeader, testAdminKey} }

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// createSession starts a session on yard and returns its ID and token.
func (e *testEnv) createSession(t *testing.T) (string, string) {
	t.Helper()
	w := e.do(http.MethodPost, "/api/sessions", map[string]string{"level": "yard"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	return body["session_id"].(string), body["token"].(string)
}
