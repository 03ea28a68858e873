package rest_test

import (
	"net/http"
	"testing"

	mw "github.com/nrebei2/lunarhaze/middleware"
	"github.com/nrebei2/lunarhaze/plugin/hook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_Create(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodPost, "/api/sessions", map[string]string{"level": "yard"})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	id := body["session_id"].(string)
	assert.Equal(t, "session:"+id, body["channel"])
	assert.Equal(t, "yard", body["level"])

	claims, err := mw.ParseToken(body["token"].(string), "test-secret")
	require.NoError(t, err)
	assert.Equal(t, id, claims.SessionID)
	assert.True(t, e.sched.Has("room:"+id))
}

func TestSessions_CreateErrors(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodPost, "/api/sessions", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, "/api/sessions", map[string]string{"level": "nowhere"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	e.createSession(t)
	e.createSession(t)
	w = e.do(http.MethodPost, "/api/sessions", map[string]string{"level": "yard"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSessions_TokenScope(t *testing.T) {
	e := newTestEnv(t)
	id, token := e.createSession(t)
	other, _ := e.createSession(t)

	w := e.do(http.MethodGet, "/api/sessions/"+id+"/snapshot", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(http.MethodGet, "/api/sessions/"+other+"/snapshot", nil, bearer(token)...)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(http.MethodGet, "/api/sessions/"+id+"/snapshot?token="+token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessions_InputMovesPlayer(t *testing.T) {
	e := newTestEnv(t)
	id, token := e.createSession(t)

	w := e.do(http.MethodGet, "/api/sessions/"+id+"/snapshot", nil, bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)
	before := decode(t, w)
	assert.Equal(t, "yard", before["level"])
	assert.Equal(t, "stealth", before["phase"])
	x0 := before["player"].(map[string]interface{})["x"].(float64)

	w = e.do(http.MethodPost, "/api/sessions/"+id+"/input", map[string]interface{}{"horizontal": 1}, bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)

	room, err := e.mgr.Get(id)
	require.NoError(t, err)
	room.Tick()

	w = e.do(http.MethodGet, "/api/sessions/"+id+"/snapshot", nil, bearer(token)...)
	after := decode(t, w)
	assert.Equal(t, float64(1), after["tick"])
	assert.Greater(t, after["player"].(map[string]interface{})["x"].(float64), x0)
	assert.Equal(t, "east", after["player"].(map[string]interface{})["facing"])

	w = e.do(http.MethodPost, "/api/sessions/"+id+"/input", "not controls", bearer(token)...)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessions_Route(t *testing.T) {
	e := newTestEnv(t)
	id, token := e.createSession(t)
	room, err := e.mgr.Get(id)
	require.NoError(t, err)
	room.Tick()

	w := e.do(http.MethodGet, "/api/sessions/"+id+"/route?enemy=1", nil, bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, float64(1), body["enemy"])
	assert.Equal(t, true, body["reachable"])
	assert.NotNil(t, body["path"])
	steps, ok := body["steps"].([]interface{})
	require.True(t, ok, "steps is a list")
	assert.Len(t, steps, len(body["path"].([]interface{})))

	w = e.do(http.MethodGet, "/api/sessions/"+id+"/route?enemy=99", nil, bearer(token)...)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(http.MethodGet, "/api/sessions/"+id+"/route?enemy=first", nil, bearer(token)...)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessions_Events(t *testing.T) {
	e := newTestEnv(t)
	id, token := e.createSession(t)

	w := e.do(http.MethodGet, "/api/sessions/"+id+"/events", nil, bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["events"])

	room, err := e.mgr.Get(id)
	require.NoError(t, err)
	room.Tick()

	w = e.do(http.MethodGet, "/api/sessions/"+id+"/events?limit=50", nil, bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)
	events := decode(t, w)["events"].([]interface{})
	require.NotEmpty(t, events)
	var types []string
	for _, ev := range events {
		types = append(types, ev.(map[string]interface{})["type"].(string))
	}
	assert.Contains(t, types, hook.OnEnemySpawned)
	assert.Contains(t, types, hook.OnEnemyStateChange)
}

func TestSessions_Delete(t *testing.T) {
	e := newTestEnv(t)
	id, token := e.createSession(t)
	room, err := e.mgr.Get(id)
	require.NoError(t, err)

	w := e.do(http.MethodDelete, "/api/sessions/"+id, nil, bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)

	select {
	case <-room.Done():
	default:
		t.Fatal("room still running after delete")
	}
	assert.False(t, e.sched.Has("room:"+id))

	w = e.do(http.MethodGet, "/api/sessions/"+id+"/snapshot", nil, bearer(token)...)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(http.MethodDelete, "/api/sessions/"+id, nil, bearer(token)...)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
