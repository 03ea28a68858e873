package world

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nrebei2/lunarhaze/game/collision"
	"github.com/nrebei2/lunarhaze/plugin/hook"
	"github.com/nrebei2/lunarhaze/resource"
	"github.com/nrebei2/lunarhaze/scheduler"
	"go.uber.org/zap"
)

var (
	// ErrSessionNotFound is returned for unknown session IDs.
	ErrSessionNotFound = errors.New("world: session not found")
	// ErrEnemyNotFound is returned for unknown enemy IDs within a session.
	ErrEnemyNotFound = errors.New("world: enemy not found")
	// ErrTooManySessions is returned when the session cap is reached.
	ErrTooManySessions = errors.New("world: too many sessions")
)

// LevelSource resolves level names.
type LevelSource interface {
	Get(ctx context.Context, name string) (*resource.Level, error)
}

// ManagerConfig tunes session handling.
type ManagerConfig struct {
	TickInterval time.Duration
	IdleTimeout  time.Duration
	MaxSessions  int
	Settings     Settings
}

// RoomInfo is the admin view of a live session.
type RoomInfo struct {
	ID        string    `json:"id"`
	Level     string    `json:"level"`
	Created   time.Time `json:"created"`
	IdleSince time.Time `json:"idle_since"`
	Tick      int       `json:"tick"`
	Phase     string    `json:"phase"`
}

// Manager owns every live Room and drives their ticks through the scheduler.
type Manager struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	levels  LevelSource
	sched   *scheduler.Scheduler
	pub     Publisher
	journal Journal
	hooks   *hook.HookCenter
	cfg     ManagerConfig
	logger  *zap.Logger
}

// NewManager creates a session manager.
func NewManager(levels LevelSource, sched *scheduler.Scheduler, pub Publisher, journal Journal, hooks *hook.HookCenter, cfg ManagerConfig, logger *zap.Logger) *Manager {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 50 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		rooms:   make(map[string]*Room),
		levels:  levels,
		sched:   sched,
		pub:     pub,
		journal: journal,
		hooks:   hooks,
		cfg:     cfg,
		logger:  logger,
	}
}

func taskName(id string) string { return "room:" + id }

// Create starts a new session on the named level.
func (m *Manager) Create(ctx context.Context, levelName string) (*Room, error) {
	lvl, err := m.levels.Get(ctx, levelName)
	if err != nil {
		return nil, fmt.Errorf("world: create session: %w", err)
	}

	id := uuid.NewString()
	game := NewGameplayController(lvl, m.cfg.Settings, m.hooks, m.logger.With(zap.String("session_id", id)))
	room := newRoom(id, game, m.pub, m.journal, m.logger)
	room.onExit = func(id string) { _ = m.Destroy(id) }

	m.mu.Lock()
	if m.cfg.MaxSessions > 0 && len(m.rooms) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		return nil, ErrTooManySessions
	}
	m.rooms[id] = room
	m.mu.Unlock()

	if m.sched != nil {
		m.sched.AddTicker(taskName(id), m.cfg.TickInterval, room.Tick)
	}
	_, _ = m.hooks.Trigger(ctx, hook.OnSessionStart, id)
	m.logger.Info("session created", zap.String("session_id", id), zap.String("level", levelName))
	return room, nil
}

// Get returns the room for id.
func (m *Manager) Get(id string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return room, nil
}

// Destroy stops and removes a session.
func (m *Manager) Destroy(id string) error {
	m.mu.Lock()
	room, ok := m.rooms[id]
	if ok {
		delete(m.rooms, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	m.stopRoom(room)
	m.logger.Info("session destroyed", zap.String("session_id", id))
	return nil
}

func (m *Manager) stopRoom(room *Room) {
	if m.sched != nil {
		m.sched.Remove(taskName(room.ID))
	}
	room.Stop()
	_, _ = m.hooks.Trigger(context.Background(), hook.OnSessionEnd, room.ID)
}

// ActiveCount returns the number of live sessions.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// List describes every live session, oldest first.
func (m *Manager) List() []RoomInfo {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	out := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		snap := r.Snapshot()
		out = append(out, RoomInfo{
			ID:        r.ID,
			Level:     r.Level,
			Created:   r.Created,
			IdleSince: r.IdleSince(),
			Tick:      snap.Tick,
			Phase:     snap.Phase,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out
}

// CollisionTotals sums the collision work of every live session.
func (m *Manager) CollisionTotals() collision.Stats {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	var total collision.Stats
	for _, r := range rooms {
		total.Add(r.CollisionTotals())
	}
	return total
}

// ReapIdle destroys sessions with no input since before now-IdleTimeout.
func (m *Manager) ReapIdle(now time.Time) int {
	if m.cfg.IdleTimeout <= 0 {
		return 0
	}
	cutoff := now.Add(-m.cfg.IdleTimeout)

	m.mu.Lock()
	var stale []*Room
	for id, r := range m.rooms {
		if r.IdleSince().Before(cutoff) {
			stale = append(stale, r)
			delete(m.rooms, id)
		}
	}
	m.mu.Unlock()

	for _, r := range stale {
		m.stopRoom(r)
		m.logger.Info("idle session reaped", zap.String("session_id", r.ID))
	}
	return len(stale)
}

// StartReaper registers the idle reaper with the scheduler.
func (m *Manager) StartReaper(interval time.Duration) {
	if m.sched == nil || interval <= 0 {
		return
	}
	m.sched.AddTicker("session-reaper", interval, func() {
		m.ReapIdle(time.Now())
	})
}

// StopAll stops every session (used at shutdown).
func (m *Manager) StopAll() {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.rooms = make(map[string]*Room)
	m.mu.Unlock()
	for _, r := range rooms {
		m.stopRoom(r)
	}
}
