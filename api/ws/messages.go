package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nrebei2/lunarhaze/game/entity"
)

// RegisterHandlers binds the session message types to r.
//
//	input     payload entity.Controls; replaces the held controls
//	snapshot  asks for the state as of the last tick
//	route     payload {"enemy": id}; answers with the enemy's path preview
//	ping      payload {"ts": client ms}; answers pong
func RegisterHandlers(r *Router) {
	r.On("input", handleInput)
	r.On("snapshot", handleSnapshot)
	r.On("route", handleRoute)
	r.On("ping", handlePing)
}

func handleInput(_ context.Context, c *Client, payload json.RawMessage) error {
	var in entity.Controls
	if err := json.Unmarshal(payload, &in); err != nil {
		return fmt.Errorf("bad input: %w", err)
	}
	c.Room.SetInput(in)
	return nil
}

func handleSnapshot(_ context.Context, c *Client, _ json.RawMessage) error {
	c.Send("snapshot", c.Room.Snapshot())
	return nil
}

type routeRequest struct {
	Enemy int `json:"enemy"`
}

func handleRoute(_ context.Context, c *Client, payload json.RawMessage) error {
	var req routeRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("bad route request: %w", err)
	}
	preview, err := c.Room.Route(req.Enemy)
	if err != nil {
		return err
	}
	c.Send("route", preview)
	return nil
}

func handlePing(_ context.Context, c *Client, payload json.RawMessage) error {
	var req struct {
		TS int64 `json:"ts"`
	}
	if len(payload) > 0 {
		_ = json.Unmarshal(payload, &req)
	}
	c.Send("pong", map[string]int64{
		"client_ts": req.TS,
		"server_ts": time.Now().UnixMilli(),
	})
	return nil
}
