package service

import (
	"context"
	"course_player_backend/internal/config"
	"course_player_backend/internal/model"
	"course_player_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultRanking() config.RankingConfig {
	return config.RankingConfig{LeaderboardSize: 10, CacheTTL: time.Minute}
}

var rankingNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newRankingFixture(cache LeaderboardCache) (*RankingService, *fakePoints, *fakeCompletions) {
	points := newFakePoints()
	completions := newFakeCompletions(nil)
	svc := NewRankingService(points, completions, cache, defaultRanking())
	svc.now = func() time.Time { return rankingNow }
	return svc, points, completions
}

func entryIDs(entries []RankEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}
	return ids
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, PeriodAll, p)

	p, err = ParsePeriod("week")
	require.NoError(t, err)
	assert.Equal(t, PeriodWeek, p)

	_, err = ParsePeriod("month")
	assert.ErrorIs(t, err, util.ErrInvalidPeriod)
}

func TestAddPointsAccumulates(t *testing.T) {
	svc, points, _ := newRankingFixture(nil)
	ctx := context.Background()

	require.NoError(t, svc.AddPoints(ctx, "u1", "Ana", 5))
	require.NoError(t, svc.AddPoints(ctx, "u1", "", 10))

	assert.Equal(t, 15, points.total("u1"))
	assert.Equal(t, util.DefaultUsername, points.rows["u1"].Username)
	assert.Equal(t, rankingNow, points.rows["u1"].LastUpdated)
}

func TestTopUsersAllTimeOrderingAndTies(t *testing.T) {
	svc, points, _ := newRankingFixture(nil)
	ctx := context.Background()
	points.Increment(ctx, "c", "C", 50, rankingNow)
	points.Increment(ctx, "a", "A", 120, rankingNow)
	points.Increment(ctx, "b", "B", 50, rankingNow)
	points.Increment(ctx, "d", "D", 5, rankingNow)
	points.Increment(ctx, "zero", "Z", 0, rankingNow)

	top, err := svc.TopUsers(ctx, PeriodAll, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, entryIDs(top))
	assert.Equal(t, []int{1, 2, 2, 4}, []int{top[0].Rank, top[1].Rank, top[2].Rank, top[3].Rank})

	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].Points, top[i].Points)
	}

	// 同一输入多次调用结果一致
	again, err := svc.TopUsers(ctx, PeriodAll, 0)
	require.NoError(t, err)
	assert.Equal(t, top, again)

	limited, err := svc.TopUsers(ctx, PeriodAll, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, entryIDs(limited))
}

func TestUserRankCompetition(t *testing.T) {
	svc, points, _ := newRankingFixture(nil)
	ctx := context.Background()
	points.Increment(ctx, "a", "A", 100, rankingNow)
	points.Increment(ctx, "b", "B", 50, rankingNow)
	points.Increment(ctx, "c", "C", 50, rankingNow)

	r, err := svc.UserRank(ctx, "c", PeriodAll)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Rank)
	assert.Equal(t, 50, r.Points)
	assert.Equal(t, "C", r.Username)

	// 没有积分的用户排在所有有积分的人之后
	r, err = svc.UserRank(ctx, "ghost", PeriodAll)
	require.NoError(t, err)
	assert.Equal(t, 4, r.Rank)
	assert.Equal(t, 0, r.Points)
}

func TestWeeklyRecomputesFromRecentEvents(t *testing.T) {
	svc, points, completions := newRankingFixture(nil)
	ctx := context.Background()
	recent := rankingNow.Add(-24 * time.Hour)
	old := rankingNow.Add(-8 * 24 * time.Hour)

	// 累计积分与周榜无关
	points.Increment(ctx, "veteran", "Vet", 1000, old)
	points.Increment(ctx, "fresh", "Fresh", 115, recent)

	completions.events = []completionEvent{
		{model.TierCourse, "veteran", "C0", old},
		{model.TierModule, "veteran", "M0", old},
		{model.TierClass, "veteran", "X", recent},
		{model.TierClass, "fresh", "A", recent},
		{model.TierModule, "fresh", "M1", recent},
		{model.TierCourse, "fresh", "C1", recent},
	}

	top, err := svc.TopUsers(ctx, PeriodWeek, 0)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "fresh", top[0].UserID)
	assert.Equal(t, 115, top[0].Points)
	assert.Equal(t, "Fresh", top[0].Username)
	assert.Equal(t, "veteran", top[1].UserID)
	assert.Equal(t, 5, top[1].Points)

	r, err := svc.UserRank(ctx, "veteran", PeriodWeek)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Rank)
	assert.Equal(t, 5, r.Points)
}

func TestLeaderboardAppendsSyntheticRow(t *testing.T) {
	svc, points, _ := newRankingFixture(nil)
	ctx := context.Background()
	points.Increment(ctx, "a", "A", 100, rankingNow)
	points.Increment(ctx, "b", "B", 50, rankingNow)

	board, err := svc.Leaderboard(ctx, Identity{UserID: "me", Name: "Me"}, PeriodAll)
	require.NoError(t, err)
	require.Len(t, board, 3)
	last := board[2]
	assert.True(t, last.Synthetic)
	assert.Equal(t, "me", last.UserID)
	assert.Equal(t, "Me", last.Username)
	assert.Equal(t, 3, last.Rank)

	// 已在榜内时不追加
	board, err = svc.Leaderboard(ctx, Identity{UserID: "b"}, PeriodAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, entryIDs(board))
}

func TestLeaderboardReplacesLastRowWhenFull(t *testing.T) {
	svc, points, _ := newRankingFixture(nil)
	svc.ApplyConfig(config.RankingConfig{LeaderboardSize: 2})
	ctx := context.Background()
	points.Increment(ctx, "a", "A", 100, rankingNow)
	points.Increment(ctx, "b", "B", 50, rankingNow)
	points.Increment(ctx, "c", "C", 40, rankingNow)
	points.Increment(ctx, "me", "Me", 10, rankingNow)

	board, err := svc.Leaderboard(ctx, Identity{UserID: "me"}, PeriodAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "me"}, entryIDs(board))
	assert.Equal(t, 4, board[1].Rank)
	assert.Equal(t, 10, board[1].Points)
	assert.Equal(t, "Me", board[1].Username)
}

func TestTopUsersUsesCache(t *testing.T) {
	cache := newFakeCache()
	svc, points, _ := newRankingFixture(cache)
	ctx := context.Background()
	points.Increment(ctx, "a", "A", 10, rankingNow)

	first, err := svc.TopUsers(ctx, PeriodAll, 0)
	require.NoError(t, err)
	second, err := svc.TopUsers(ctx, PeriodAll, 0)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, points.topCalls)

	// 加分后缓存失效
	require.NoError(t, svc.AddPoints(ctx, "b", "B", 20))
	third, err := svc.TopUsers(ctx, PeriodAll, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, entryIDs(third))
	assert.Equal(t, 2, points.topCalls)
}

func TestWarmWeeklyFillsCache(t *testing.T) {
	cache := newFakeCache()
	svc, _, completions := newRankingFixture(cache)
	completions.events = []completionEvent{{model.TierClass, "u1", "A", rankingNow}}

	require.NoError(t, svc.WarmWeekly(context.Background()))

	var cached []RankEntry
	hit, err := cache.Get(context.Background(), string(PeriodWeek), svc.LeaderboardSize(), &cached)
	require.NoError(t, err)
	assert.True(t, hit)
	require.Len(t, cached, 1)
	assert.Equal(t, 5, cached[0].Points)
}

func TestApplyConfigFallsBackToDefaults(t *testing.T) {
	svc, _, _ := newRankingFixture(nil)
	svc.ApplyConfig(config.RankingConfig{LeaderboardSize: 0})
	assert.Equal(t, config.DefaultLeaderboardSize, svc.LeaderboardSize())

	svc.ApplyConfig(config.RankingConfig{LeaderboardSize: 3})
	assert.Equal(t, 3, svc.LeaderboardSize())
}

func TestSyncUsernameOnSignIn(t *testing.T) {
	svc, points, _ := newRankingFixture(nil)
	ctx := context.Background()
	points.Increment(ctx, "u1", "old", 5, rankingNow)

	svc.SyncUsername(ctx, AuthEvent{Kind: AuthSignedIn, Identity: Identity{UserID: "u1", Name: "New"}})
	assert.Equal(t, "New", points.rows["u1"].Username)

	svc.SyncUsername(ctx, AuthEvent{Kind: AuthSignedUp, Identity: Identity{UserID: "u1", Name: "Ignored"}})
	assert.Equal(t, "New", points.rows["u1"].Username)
}
