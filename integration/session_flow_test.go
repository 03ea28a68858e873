package integration

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/nrebei2/lunarhaze/game/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoint(t *testing.T) {
	ts := NewTestServer(t, time.Hour)
	resp := ts.Do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestBundledLevelsSeeded(t *testing.T) {
	ts := NewTestServer(t, time.Hour)

	var list struct {
		Levels []struct {
			Name    string `json:"name"`
			Version int    `json:"version"`
		} `json:"levels"`
	}
	ReadJSON(t, ts.Do(t, http.MethodGet, "/api/levels", nil), &list)
	var names []string
	for _, l := range list.Levels {
		names = append(names, l.Name)
		assert.Equal(t, 1, l.Version)
	}
	assert.ElementsMatch(t, []string{"courtyard", "mill"}, names)
}

func TestSessionLifecycle(t *testing.T) {
	ts := NewTestServer(t, time.Hour)
	id, token := ts.StartSession(t, "courtyard")

	var before world.Snapshot
	ReadJSON(t, ts.Do(t, http.MethodGet, "/api/sessions/"+id+"/snapshot", nil, Bearer(token)...), &before)
	assert.Equal(t, "courtyard", before.Level)
	assert.Equal(t, "stealth", before.Phase)
	assert.Len(t, before.Enemies, 2)

	resp := ts.Do(t, http.MethodPost, "/api/sessions/"+id+"/input", map[string]interface{}{"horizontal": 1}, Bearer(token)...)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	room, err := ts.Manager.Get(id)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		room.Tick()
	}

	var after world.Snapshot
	ReadJSON(t, ts.Do(t, http.MethodGet, "/api/sessions/"+id+"/snapshot", nil, Bearer(token)...), &after)
	assert.Equal(t, 3, after.Tick)
	assert.Greater(t, after.Player.X, before.Player.X)
	// A slow wall-clock tick must not stretch the simulated step.
	for i, e := range after.Enemies {
		assert.InDelta(t, before.Enemies[i].X, e.X, 1, "enemy %d x", e.ID)
		assert.InDelta(t, before.Enemies[i].Y, e.Y, 1, "enemy %d y", e.ID)
		assert.True(t, e.Cell.X >= 0 && e.Cell.X < 12 && e.Cell.Y >= 0 && e.Cell.Y < 10, "enemy %d left the board: %+v", e.ID, e.Cell)
	}

	var route world.RoutePreview
	ReadJSON(t, ts.Do(t, http.MethodGet, "/api/sessions/"+id+"/route?enemy=1", nil, Bearer(token)...), &route)
	assert.True(t, route.Reachable)
	assert.Len(t, route.Steps, len(route.Path))

	var events struct {
		Events []world.Event `json:"events"`
	}
	ReadJSON(t, ts.Do(t, http.MethodGet, "/api/sessions/"+id+"/events", nil, Bearer(token)...), &events)
	assert.NotEmpty(t, events.Events)

	// The journal flushes in batches; Stop drains it.
	ts.Journal.Stop(t.Context())
	encounters, err := ts.Journal.Encounters(t.Context(), id)
	require.NoError(t, err)
	assert.NotEmpty(t, encounters)

	resp = ts.Do(t, http.MethodDelete, "/api/sessions/"+id, nil, Bearer(token)...)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 0, ts.Manager.ActiveCount())
}

func TestLiveSessionOverWebSocket(t *testing.T) {
	ts := NewTestServer(t, 10*time.Millisecond)
	id, token := ts.StartSession(t, "courtyard")
	wc := ts.ConnectWS(t, id, token)

	var first world.Snapshot
	require.NoError(t, json.Unmarshal(wc.RecvType("snapshot", 2*time.Second).Payload, &first))

	wc.Send("input", map[string]interface{}{"horizontal": 1, "run": true})
	deadline := time.Now().Add(3 * time.Second)
	for {
		var snap world.Snapshot
		require.NoError(t, json.Unmarshal(wc.RecvType("snapshot", time.Second).Payload, &snap))
		if snap.Player.X > first.Player.X {
			assert.Greater(t, snap.Tick, first.Tick)
			break
		}
		require.True(t, time.Now().Before(deadline), "player never moved")
	}

	wc.Send("input", map[string]interface{}{"exit": true})
	wc.RecvType("session_end", 2*time.Second)
	assert.Eventually(t, func() bool { return ts.Manager.ActiveCount() == 0 }, time.Second, 10*time.Millisecond)
	assert.False(t, ts.Sched.Has("room:"+id))
}

func TestAdminSurface(t *testing.T) {
	ts := NewTestServer(t, time.Hour)
	id, _ := ts.StartSession(t, "mill")

	resp := ts.Do(t, http.MethodGet, "/api/admin/metrics", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	var metrics struct {
		ActiveSessions int `json:"active_sessions"`
	}
	ReadJSON(t, ts.Do(t, http.MethodGet, "/api/admin/metrics", nil, Admin()...), &metrics)
	assert.Equal(t, 1, metrics.ActiveSessions)

	var tasks struct {
		Tasks []struct {
			Name string `json:"name"`
		} `json:"tasks"`
	}
	ReadJSON(t, ts.Do(t, http.MethodGet, "/api/admin/scheduler", nil, Admin()...), &tasks)
	names := make([]string, len(tasks.Tasks))
	for i, task := range tasks.Tasks {
		names[i] = task.Name
	}
	assert.ElementsMatch(t, []string{"ratelimit-sweep", "room:" + id}, names)

	level := map[string]interface{}{
		"rows":   []string{".....", ".....", "....."},
		"player": map[string]int{"x": 0, "y": 0},
		"enemies": []map[string]interface{}{
			{"x": 4, "y": 2, "facing": "west"},
		},
	}
	resp = ts.Do(t, http.MethodPut, "/api/levels/strip", level, Admin()...)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	stripID, _ := ts.StartSession(t, "strip")
	assert.NotEqual(t, id, stripID)

	resp = ts.Do(t, http.MethodDelete, "/api/admin/sessions/"+stripID, nil, Admin()...)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 1, ts.Manager.ActiveCount())
}
