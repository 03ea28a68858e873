package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nrebei2/lunarhaze/game/world"
	"github.com/nrebei2/lunarhaze/model"
	"github.com/nrebei2/lunarhaze/plugin/hook"
	"github.com/nrebei2/lunarhaze/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) *Service {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	return New(db, c, zap.NewNop())
}

func count(t *testing.T, svc *Service, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, svc.db.Model(m).Count(&n).Error)
	return n
}

func TestNew_StartsWorker(t *testing.T) {
	svc := newService(t)
	require.NotNil(t, svc)
	svc.Stop(context.Background())
}

func TestRecord_EncountersFlushedOnStop(t *testing.T) {
	svc := newService(t)
	svc.Record("s1", "yard", []world.Event{
		{Tick: 3, Type: hook.OnEnemyStateChange, EnemyID: 1, From: "patrol", To: "chase"},
		{Tick: 4, Type: "player_hit", EnemyID: 1, Amount: 2, Data: map[string]any{"hp": 8}},
	})
	svc.Stop(context.Background())

	rows, err := svc.Encounters(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "yard", rows[0].Level)
	assert.Equal(t, "patrol", rows[0].FromState)
	assert.Equal(t, "chase", rows[0].ToState)
	assert.Equal(t, 2, rows[1].Amount)
	assert.JSONEq(t, `{"hp":8}`, string(rows[1].Data))
}

func TestRecord_BatchFlush(t *testing.T) {
	svc := newService(t)
	events := make([]world.Event, batchSize)
	for i := range events {
		events[i] = world.Event{Tick: i, Type: "enemy_hit"}
	}
	svc.Record("s1", "yard", events)
	svc.Stop(context.Background())
	assert.Equal(t, int64(batchSize), count(t, svc, &model.Encounter{}))
}

func TestRecord_RecentEventsNewestFirst(t *testing.T) {
	svc := newService(t)
	defer svc.Stop(context.Background())
	ctx := context.Background()

	for i := 0; i < RecentLimit+5; i++ {
		svc.Record("s1", "yard", []world.Event{{Tick: i, Type: "enemy_hit"}})
	}
	recent, err := svc.Recent(ctx, "s1", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, RecentLimit+4, recent[0].Tick)
	assert.Equal(t, RecentLimit+2, recent[2].Tick)

	all, err := svc.Recent(ctx, "s1", 1000)
	require.NoError(t, err)
	assert.Len(t, all, RecentLimit)
}

func TestRecord_OutcomesAndLeaderboard(t *testing.T) {
	svc := newService(t)
	defer svc.Stop(context.Background())
	ctx := context.Background()

	won := func(session string, tick int) {
		svc.Record(session, "yard", []world.Event{{Tick: tick, Type: hook.OnPhaseChange, From: "battle", To: "won"}})
	}
	won("slow", 900)
	won("fast", 300)
	svc.Record("loser", "yard", []world.Event{{Tick: 50, Type: hook.OnPhaseChange, From: "stealth", To: "lost"}})
	svc.Record("s4", "yard", []world.Event{{Tick: 10, Type: hook.OnPhaseChange, From: "stealth", To: "transition"}})

	assert.Equal(t, int64(3), count(t, svc, &model.SessionResult{}))

	board, err := svc.Leaderboard(ctx, "yard", 10)
	require.NoError(t, err)
	assert.Equal(t, []Score{{SessionID: "fast", Ticks: 300}, {SessionID: "slow", Ticks: 900}}, board)

	top, err := svc.Leaderboard(ctx, "yard", 1)
	require.NoError(t, err)
	assert.Equal(t, []Score{{SessionID: "fast", Ticks: 300}}, top)
}

func TestLeaderboard_RebuiltFromDatabase(t *testing.T) {
	db := testutil.SetupTestDB(t)
	require.NoError(t, db.Create(&model.SessionResult{SessionID: "a", Level: "yard", Outcome: "won", Ticks: 40}).Error)
	require.NoError(t, db.Create(&model.SessionResult{SessionID: "b", Level: "yard", Outcome: "lost", Ticks: 10}).Error)

	c, _ := testutil.SetupTestCache(t)
	svc := New(db, c, nil)
	defer svc.Stop(context.Background())

	board, err := svc.Leaderboard(context.Background(), "yard", 5)
	require.NoError(t, err)
	assert.Equal(t, []Score{{SessionID: "a", Ticks: 40}}, board)

	members, scores, err := c.ZRangeWithScores(context.Background(), LeaderboardKey("yard"), 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, members)
	assert.Equal(t, []float64{40}, scores)
}

func TestRecord_TimerFlush(t *testing.T) {
	svc := newService(t)
	svc.Record("s1", "yard", []world.Event{{Type: "enemy_hit"}})

	assert.Eventually(t, func() bool {
		var n int64
		svc.db.Model(&model.Encounter{}).Count(&n)
		return n == 1
	}, flushInterval+2*time.Second, 100*time.Millisecond)
	svc.Stop(context.Background())
}

func TestStop_Idempotent(t *testing.T) {
	svc := newService(t)
	svc.Stop(context.Background())
	svc.Stop(context.Background()) // must not panic
}

func TestStop_Concurrent(t *testing.T) {
	svc := newService(t)
	svc.Record("s1", "yard", []world.Event{{Tick: 1, Type: hook.OnEnemySpawned, EnemyID: 1}})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Stop(context.Background())
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), count(t, svc, &model.Encounter{}))
}

func TestRecord_DropsWhenFull(t *testing.T) {
	svc := newService(t)
	events := make([]world.Event, 1100)
	for i := range events {
		events[i] = world.Event{Type: "flood"}
	}
	svc.Record("s1", "yard", events)
	svc.Stop(context.Background())
	assert.LessOrEqual(t, count(t, svc, &model.Encounter{}), int64(1100))
}

var _ world.Journal = (*Service)(nil)

func TestPrune_DropsOldEncountersOnly(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	svc.Record("s1", "yard", []world.Event{{Tick: 1, Type: hook.OnEnemySpawned, EnemyID: 1}})
	svc.Stop(ctx)

	stale := &model.Encounter{SessionID: "s0", Level: "yard", Type: hook.OnEnemySpawned, CreatedAt: time.Now().Add(-30 * 24 * time.Hour)}
	require.NoError(t, svc.db.Create(stale).Error)

	n, err := svc.Prune(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rows, err := svc.Encounters(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	rows, _ = svc.Encounters(ctx, "s0")
	assert.Empty(t, rows)
}
