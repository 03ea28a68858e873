package world

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nrebei2/lunarhaze/game/ai"
	"github.com/nrebei2/lunarhaze/game/board"
	"github.com/nrebei2/lunarhaze/game/collision"
	"github.com/nrebei2/lunarhaze/game/entity"
	"go.uber.org/zap"
)

// Publisher is the part of cache.PubSub a room publishes snapshots through.
type Publisher interface {
	Publish(ctx context.Context, channel, message string) error
}

// Journal records the events of a session.
type Journal interface {
	Record(sessionID, level string, events []Event)
}

// Channel is the pub/sub channel carrying a session's snapshots.
func Channel(sessionID string) string { return "session:" + sessionID }

// Room runs one play session. Ticks, input writes and snapshot reads are
// serialised by the room mutex; the simulation itself is single-threaded.
type Room struct {
	ID      string
	Level   string
	Created time.Time

	game      *GameplayController
	input     entity.Controls
	lastInput time.Time
	last      Snapshot

	mu      sync.Mutex
	pub     Publisher
	journal Journal
	onExit  func(id string)
	stopCh  chan struct{}
	logger  *zap.Logger
}

func newRoom(id string, game *GameplayController, pub Publisher, journal Journal, logger *zap.Logger) *Room {
	now := time.Now()
	r := &Room{
		ID:        id,
		Level:     game.Level().Name(),
		Created:   now,
		game:      game,
		lastInput: now,
		pub:       pub,
		journal:   journal,
		stopCh:    make(chan struct{}),
		logger:    logger.With(zap.String("session_id", id)),
	}
	r.last = game.Snapshot()
	return r
}

// Tick runs one simulation step, then publishes the snapshot and journals
// the tick's events outside the lock.
func (r *Room) Tick() {
	select {
	case <-r.stopCh:
		return
	default:
	}

	r.mu.Lock()
	in := r.input
	// Reset and Exit fire once; held buttons persist until the next input.
	r.input.Reset = false
	r.input.Exit = false
	r.game.Update(in)
	events := r.game.DrainEvents()
	snap := r.game.Snapshot()
	r.last = snap
	exited := r.game.Exited()
	r.mu.Unlock()

	if r.pub != nil {
		payload, err := json.Marshal(snap)
		if err == nil {
			err = r.pub.Publish(context.Background(), Channel(r.ID), string(payload))
		}
		if err != nil {
			r.logger.Warn("publish snapshot failed", zap.Error(err))
		}
	}
	if r.journal != nil && len(events) > 0 {
		r.journal.Record(r.ID, r.Level, events)
	}
	if exited && r.onExit != nil {
		r.onExit(r.ID)
	}
}

// SetInput replaces the controls applied on the next tick.
func (r *Room) SetInput(c entity.Controls) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.input = c.Clamped()
	r.lastInput = time.Now()
}

// Snapshot returns the state as of the last tick.
func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// RoutePreview is the path an enemy would walk to its current goal, with
// the control steps that walk it.
type RoutePreview struct {
	Enemy     int          `json:"enemy"`
	Goal      board.Cell   `json:"goal"`
	Reachable bool         `json:"reachable"`
	Path      []board.Cell `json:"path"`
	Steps     []string     `json:"steps"`
}

// Route previews the path enemyID would walk to its current goal.
func (r *Room) Route(enemyID int) (RoutePreview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.game.Controller(enemyID)
	if c == nil {
		return RoutePreview{}, fmt.Errorf("world: enemy %d: %w", enemyID, ErrEnemyNotFound)
	}
	path := c.Route()
	rp := RoutePreview{
		Enemy:     enemyID,
		Goal:      c.Goal(),
		Reachable: path != nil,
		Path:      path,
		Steps:     []string{},
	}
	if path == nil {
		rp.Path = []board.Cell{}
	}
	for _, code := range ai.PathCodes(c.EnemyCell(), path) {
		rp.Steps = append(rp.Steps, code.String())
	}
	return rp, nil
}

// CollisionTotals is the collision work done since the level loaded.
func (r *Room) CollisionTotals() collision.Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.game.TotalCollisionStats()
}

// IdleSince returns when input was last received.
func (r *Room) IdleSince() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastInput
}

// Stop makes further ticks no-ops.
func (r *Room) Stop() {
	select {
	case <-r.stopCh:
	default:
		close(r.stopCh)
	}
}

// Done is closed when the room stops. Use it to end streams bound to the room.
func (r *Room) Done() <-chan struct{} {
	return r.stopCh
}
