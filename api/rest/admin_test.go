package rest_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/nrebei2/lunarhaze/plugin/hook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminAuth_NoKey(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(http.MethodGet, "/api/admin/metrics", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = e.do(http.MethodGet, "/api/admin/metrics", nil, "X-Admin-Key", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdmin_Metrics(t *testing.T) {
	e := newTestEnv(t)
	id, _ := e.createSession(t)
	room, err := e.mgr.Get(id)
	require.NoError(t, err)
	room.Tick()

	w := e.do(http.MethodGet, "/api/admin/metrics", nil, adminKey()...)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["active_sessions"])
	assert.Equal(t, float64(1), body["scheduler_tasks"])
	collision := body["collision"].(map[string]interface{})
	assert.Equal(t, float64(2), collision["objects"])
}

func TestAdmin_ListAndKickSessions(t *testing.T) {
	e := newTestEnv(t)
	id, token := e.createSession(t)

	w := e.do(http.MethodGet, "/api/admin/sessions", nil, adminKey()...)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["count"])
	sessions := body["sessions"].([]interface{})
	assert.Equal(t, id, sessions[0].(map[string]interface{})["id"])
	assert.Equal(t, "yard", sessions[0].(map[string]interface{})["level"])

	w = e.do(http.MethodDelete, "/api/admin/sessions/"+id, nil, adminKey()...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, e.mgr.ActiveCount())

	w = e.do(http.MethodDelete, "/api/admin/sessions/"+id, nil, adminKey()...)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(http.MethodGet, "/api/sessions/"+id+"/snapshot", nil, bearer(token)...)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmin_SchedulerTasks(t *testing.T) {
	e := newTestEnv(t)
	id, _ := e.createSession(t)

	w := e.do(http.MethodGet, "/api/admin/scheduler", nil, adminKey()...)
	require.Equal(t, http.StatusOK, w.Code)
	tasks := decode(t, w)["tasks"].([]interface{})
	require.Len(t, tasks, 1)
	assert.Equal(t, "room:"+id, tasks[0].(map[string]interface{})["name"])
}

func TestAdmin_Hooks(t *testing.T) {
	e := newTestEnv(t)
	e.hooks.Register(hook.OnPhaseChange, 10, "announcer",
		func(_ context.Context, _ string, data interface{}) (interface{}, error) { return data, nil })

	w := e.do(http.MethodGet, "/api/admin/hooks", nil, adminKey()...)
	require.Equal(t, http.StatusOK, w.Code)
	hooks := decode(t, w)["hooks"].(map[string]interface{})
	assert.Equal(t, []interface{}{"announcer"}, hooks[hook.OnPhaseChange])
}
