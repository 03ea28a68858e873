package rest_test

import (
	"net/http"
	"testing"

	"github.com/nrebei2/lunarhaze/game/world"
	"github.com/nrebei2/lunarhaze/plugin/hook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestLevels_ListAndGet(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodGet, "/api/levels", nil)
	require.Equal(t, http.StatusOK, w.Code)
	levels := decode(t, w)["levels"].([]interface{})
	require.Len(t, levels, 1)
	assert.Equal(t, "yard", levels[0].(map[string]interface{})["name"])

	w = e.do(http.MethodGet, "/api/levels/yard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(8), body["width"])
	assert.Equal(t, float64(8), body["height"])
	assert.Equal(t, "yard", body["level"].(map[string]interface{})["name"])

	w = e.do(http.MethodGet, "/api/levels/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLevels_PutRequiresAdminKey(t *testing.T) {
	e := newTestEnv(t)
	lvl := map[string]interface{}{
		"rows":   []string{"....", "....", "...."},
		"player": map[string]int{"x": 0, "y": 0},
	}

	w := e.do(http.MethodPut, "/api/levels/plaza", lvl)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(http.MethodPut, "/api/levels/plaza", lvl, adminKey()...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(http.MethodGet, "/api/levels/plaza", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(4), decode(t, w)["width"])
}

func TestLevels_PutRejectsInvalid(t *testing.T) {
	e := newTestEnv(t)

	badGlyph := map[string]interface{}{"rows": []string{"..?"}}
	w := e.do(http.MethodPut, "/api/levels/plaza", badGlyph, adminKey()...)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "glyph")

	renamed := map[string]interface{}{"name": "other", "rows": []string{"..."}}
	w = e.do(http.MethodPut, "/api/levels/plaza", renamed, adminKey()...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodGet, "/api/levels/plaza", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLevels_Delete(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodDelete, "/api/levels/yard", nil, adminKey()...)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodDelete, "/api/levels/yard", nil, adminKey()...)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(http.MethodGet, "/api/levels/yard", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLevels_Leaderboard(t *testing.T) {
	e := newTestEnv(t)
	won := func(id string, tick int) {
		e.journal.Record(id, "yard", []world.Event{{Tick: tick, Type: hook.OnPhaseChange, From: "battle", To: "won"}})
	}
	won("slow", 900)
	won("fast", 300)
	e.journal.Record("loser", "yard", []world.Event{{Tick: 100, Type: hook.OnPhaseChange, From: "battle", To: "lost"}})

	w := e.do(http.MethodGet, "/api/levels/yard/leaderboard?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode(t, w)["entries"].([]interface{})
	require.Len(t, entries, 2)
	first := entries[0].(map[string]interface{})
	assert.Equal(t, "fast", first["session_id"])
	assert.Equal(t, float64(1), first["rank"])
	assert.Equal(t, float64(300), first["ticks"])
	assert.Equal(t, "slow", entries[1].(map[string]interface{})["session_id"])
}
