package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nrebei2/lunarhaze/cache"
	"github.com/nrebei2/lunarhaze/game/world"
	"github.com/nrebei2/lunarhaze/model"
	"github.com/nrebei2/lunarhaze/plugin/hook"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	batchSize     = 100
	flushInterval = 2 * time.Second
	// RecentLimit is how many events per session are kept in the cache.
	RecentLimit = 100
)

// RecentKey is the cache list holding a session's latest events, newest first.
func RecentKey(sessionID string) string { return "session:" + sessionID + ":events" }

// LeaderboardKey is the sorted set of winning sessions of a level, scored by ticks.
func LeaderboardKey(level string) string { return "leaderboard:" + level }

// Score is one leaderboard entry.
type Score struct {
	SessionID string `json:"session_id"`
	Ticks     int    `json:"ticks"`
}

// Service journals session events: encounters are written to the database
// in batches, recent events are mirrored to a cache list, and finished
// sessions land in the results table and the level leaderboard.
type Service struct {
	db       *gorm.DB
	cache    cache.Cache
	ch       chan *model.Encounter
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	logger   *zap.Logger
}

// New creates a new audit Service and starts its background worker.
// A nil cache disables the recent list and leaderboard.
func New(db *gorm.DB, c cache.Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &Service{
		db:     db,
		cache:  c,
		ch:     make(chan *model.Encounter, 1024),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Record journals the events of one tick. It implements world.Journal.
func (svc *Service) Record(sessionID, level string, events []world.Event) {
	ctx := context.Background()
	recent := make([]string, 0, len(events))
	for _, ev := range events {
		var data datatypes.JSON
		if len(ev.Data) > 0 {
			raw, _ := json.Marshal(ev.Data)
			data = datatypes.JSON(raw)
		}
		enc := &model.Encounter{
			SessionID: sessionID,
			Level:     level,
			Tick:      ev.Tick,
			Type:      ev.Type,
			EnemyID:   ev.EnemyID,
			FromState: ev.From,
			ToState:   ev.To,
			Amount:    ev.Amount,
			Data:      data,
		}
		select {
		case svc.ch <- enc:
		default:
			svc.logger.Warn("audit channel full, dropping encounter",
				zap.String("session_id", sessionID), zap.String("type", ev.Type))
		}

		if raw, err := json.Marshal(ev); err == nil {
			recent = append(recent, string(raw))
		}
		if ev.Type == hook.OnPhaseChange && (ev.To == world.PhaseWon.String() || ev.To == world.PhaseLost.String()) {
			svc.finish(ctx, sessionID, level, ev.To, ev.Tick)
		}
	}

	if svc.cache != nil && len(recent) > 0 {
		if err := svc.cache.LPushCapped(ctx, RecentKey(sessionID), RecentLimit, recent...); err != nil {
			svc.logger.Warn("recent events push failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
}

func (svc *Service) finish(ctx context.Context, sessionID, level, outcome string, ticks int) {
	res := &model.SessionResult{SessionID: sessionID, Level: level, Outcome: outcome, Ticks: ticks}
	if err := svc.db.WithContext(ctx).Create(res).Error; err != nil {
		svc.logger.Error("session result write failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	if outcome != world.PhaseWon.String() || svc.cache == nil {
		return
	}
	if err := svc.cache.ZAdd(ctx, LeaderboardKey(level), float64(ticks), sessionID); err != nil {
		svc.logger.Warn("leaderboard update failed", zap.String("level", level), zap.Error(err))
	}
}

// Recent returns up to n of the session's latest events, newest first.
func (svc *Service) Recent(ctx context.Context, sessionID string, n int) ([]world.Event, error) {
	if svc.cache == nil || n <= 0 {
		return nil, nil
	}
	raw, err := svc.cache.LRange(ctx, RecentKey(sessionID), 0, int64(n-1))
	if err != nil {
		return nil, fmt.Errorf("audit: recent %s: %w", sessionID, err)
	}
	out := make([]world.Event, 0, len(raw))
	for _, r := range raw {
		var ev world.Event
		if err := json.Unmarshal([]byte(r), &ev); err == nil {
			out = append(out, ev)
		}
	}
	return out, nil
}

// Leaderboard returns the n fastest wins on level.
func (svc *Service) Leaderboard(ctx context.Context, level string, n int) ([]Score, error) {
	if svc.cache != nil {
		members, scores, err := svc.cache.ZRangeWithScores(ctx, LeaderboardKey(level), 0, int64(n-1))
		if err == nil && len(members) > 0 {
			out := make([]Score, len(members))
			for i, m := range members {
				out[i] = Score{SessionID: m, Ticks: int(scores[i])}
			}
			return out, nil
		}
	}

	// Cold cache: rebuild from stored results.
	var rows []model.SessionResult
	err := svc.db.WithContext(ctx).
		Where("level = ? AND outcome = ?", level, world.PhaseWon.String()).
		Order("ticks ASC, session_id ASC").Limit(n).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("audit: leaderboard %s: %w", level, err)
	}
	out := make([]Score, len(rows))
	for i, r := range rows {
		out[i] = Score{SessionID: r.SessionID, Ticks: r.Ticks}
		if svc.cache != nil {
			_ = svc.cache.ZAdd(ctx, LeaderboardKey(level), float64(r.Ticks), r.SessionID)
		}
	}
	return out, nil
}

// Encounters returns the journalled events of a session in tick order.
func (svc *Service) Encounters(ctx context.Context, sessionID string) ([]model.Encounter, error) {
	var rows []model.Encounter
	err := svc.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("tick ASC, id ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("audit: encounters %s: %w", sessionID, err)
	}
	return rows, nil
}

// Prune drops journalled events older than retention.
func (svc *Service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := model.PruneEncounters(ctx, svc.db, time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("audit: prune: %w", err)
	}
	return n, nil
}

// Stop flushes remaining entries and shuts down the worker. It is safe to
// call from several goroutines; every call blocks until the worker is done.
func (svc *Service) Stop(_ context.Context) {
	svc.stopOnce.Do(func() { close(svc.stopCh) })
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]*model.Encounter, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("audit batch write failed", zap.Int("count", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-svc.ch:
			batch = append(batch, entry)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			// Drain remaining entries.
			for {
				select {
				case entry := <-svc.ch:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}
