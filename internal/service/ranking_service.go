package service

import (
	"context"
	"course_player_backend/internal/config"
	"course_player_backend/internal/model"
	"course_player_backend/internal/util"
	"course_player_backend/pkg/logger"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RankPeriod string

const (
	PeriodAll  RankPeriod = "all"
	PeriodWeek RankPeriod = "week"
)

// WeeklyWindow 周榜统计的滚动窗口
const WeeklyWindow = 7 * 24 * time.Hour

func ParsePeriod(s string) (RankPeriod, error) {
	switch RankPeriod(s) {
	case "", PeriodAll:
		return PeriodAll, nil
	case PeriodWeek:
		return PeriodWeek, nil
	}
	return "", util.ErrInvalidPeriod
}

type RankEntry struct {
	Rank      int    `json:"rank"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Points    int    `json:"points"`
	Synthetic bool   `json:"synthetic,omitempty"`
}

type completionCounter interface {
	CountsSince(ctx context.Context, since time.Time) ([]model.CompletionCount, error)
}

type RankingService struct {
	Points      PointsStore
	Completions completionCounter
	Cache       LeaderboardCache

	mu       sync.RWMutex
	size     int
	cacheTTL time.Duration

	now func() time.Time
}

func NewRankingService(points PointsStore, completions completionCounter, cache LeaderboardCache, cfg config.RankingConfig) *RankingService {
	s := &RankingService{
		Points:      points,
		Completions: completions,
		Cache:       cache,
		now:         func() time.Time { return time.Now().UTC() },
	}
	s.ApplyConfig(cfg)
	return s
}

// ApplyConfig 配置热更新时调用
func (s *RankingService) ApplyConfig(cfg config.RankingConfig) {
	size := cfg.LeaderboardSize
	if size <= 0 {
		size = config.DefaultLeaderboardSize
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = config.DefaultRankingCacheTTL
	}

	s.mu.Lock()
	s.size = size
	s.cacheTTL = ttl
	s.mu.Unlock()
}

func (s *RankingService) settings() (int, time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size, s.cacheTTL
}

func (s *RankingService) LeaderboardSize() int {
	size, _ := s.settings()
	return size
}

// AddPoints 原子累加积分
func (s *RankingService) AddPoints(ctx context.Context, userID, username string, delta int) error {
	if username == "" {
		username = util.DefaultUsername
	}
	if err := s.Points.Increment(ctx, userID, username, delta, s.now()); err != nil {
		return fmt.Errorf("increment points: %w", err)
	}
	s.Invalidate(ctx)
	return nil
}

// TopUsers 返回前 limit 名，limit<=0 时使用配置的榜单长度
func (s *RankingService) TopUsers(ctx context.Context, period RankPeriod, limit int) ([]RankEntry, error) {
	size, ttl := s.settings()
	if limit <= 0 {
		limit = size
	}

	if s.Cache != nil {
		var cached []RankEntry
		hit, err := s.Cache.Get(ctx, string(period), limit, &cached)
		if err != nil {
			logger.Log.Warn("Ranking cache read failed", zap.String("period", string(period)), zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	var (
		entries []RankEntry
		err     error
	)
	switch period {
	case PeriodAll:
		entries, err = s.topAllTime(ctx, limit)
	case PeriodWeek:
		entries, err = s.topWeekly(ctx, limit)
	default:
		return nil, util.ErrInvalidPeriod
	}
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, string(period), limit, entries, ttl); err != nil {
			logger.Log.Warn("Ranking cache write failed", zap.String("period", string(period)), zap.Error(err))
		}
	}
	return entries, nil
}

func (s *RankingService) topAllTime(ctx context.Context, limit int) ([]RankEntry, error) {
	rows, err := s.Points.Top(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load top points: %w", err)
	}
	entries := make([]RankEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, RankEntry{UserID: row.UserID, Username: row.Username, Points: row.Points})
	}
	assignRanks(entries)
	return entries, nil
}

func (s *RankingService) topWeekly(ctx context.Context, limit int) ([]RankEntry, error) {
	entries, err := s.weeklyStandings(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// weeklyTotals 按完成事件重新计算近 7 天积分
func (s *RankingService) weeklyTotals(ctx context.Context) (map[string]int, error) {
	counts, err := s.Completions.CountsSince(ctx, s.now().Add(-WeeklyWindow))
	if err != nil {
		return nil, fmt.Errorf("count weekly completions: %w", err)
	}
	totals := make(map[string]int)
	for _, c := range counts {
		totals[c.UserID] += c.Count * tierPoints(c.Tier)
	}
	return totals, nil
}

func (s *RankingService) weeklyStandings(ctx context.Context) ([]RankEntry, error) {
	totals, err := s.weeklyTotals(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(totals))
	for id, pts := range totals {
		if pts > 0 {
			ids = append(ids, id)
		}
	}

	names := make(map[string]string, len(ids))
	rows, err := s.Points.ListByUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load usernames: %w", err)
	}
	for _, row := range rows {
		names[row.UserID] = row.Username
	}

	entries := make([]RankEntry, 0, len(ids))
	for _, id := range ids {
		name := names[id]
		if name == "" {
			name = util.DefaultUsername
		}
		entries = append(entries, RankEntry{UserID: id, Username: name, Points: totals[id]})
	}
	sortEntries(entries)
	assignRanks(entries)
	return entries, nil
}

// UserRank 竞争排名：比该用户积分严格更高的人数加一
func (s *RankingService) UserRank(ctx context.Context, userID string, period RankPeriod) (*RankEntry, error) {
	switch period {
	case PeriodAll:
		entry := &RankEntry{UserID: userID, Username: util.DefaultUsername}
		p, err := s.Points.FindByUser(ctx, userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load user points: %w", err)
		}
		if p != nil {
			entry.Points = p.Points
			if p.Username != "" {
				entry.Username = p.Username
			}
		}
		greater, err := s.Points.CountGreater(ctx, entry.Points)
		if err != nil {
			return nil, fmt.Errorf("count greater points: %w", err)
		}
		entry.Rank = int(greater) + 1
		return entry, nil

	case PeriodWeek:
		totals, err := s.weeklyTotals(ctx)
		if err != nil {
			return nil, err
		}
		entry := &RankEntry{UserID: userID, Username: util.DefaultUsername, Points: totals[userID]}
		rank := 1
		for id, pts := range totals {
			if id != userID && pts > entry.Points {
				rank++
			}
		}
		entry.Rank = rank

		rows, err := s.Points.ListByUsers(ctx, []string{userID})
		if err != nil {
			return nil, fmt.Errorf("load username: %w", err)
		}
		if len(rows) > 0 && rows[0].Username != "" {
			entry.Username = rows[0].Username
		}
		return entry, nil
	}
	return nil, util.ErrInvalidPeriod
}

// Leaderboard 榜单；当前用户不在榜内时追加一行自己的排名，榜单已满则替换最后一行
func (s *RankingService) Leaderboard(ctx context.Context, who Identity, period RankPeriod) ([]RankEntry, error) {
	size, _ := s.settings()
	top, err := s.TopUsers(ctx, period, size)
	if err != nil {
		return nil, err
	}

	for _, e := range top {
		if e.UserID == who.UserID {
			return top, nil
		}
	}

	self, err := s.UserRank(ctx, who.UserID, period)
	if err != nil {
		return nil, err
	}
	if who.Name != "" {
		self.Username = who.Name
	}
	self.Synthetic = true

	board := make([]RankEntry, len(top), len(top)+1)
	copy(board, top)
	if len(board) >= size {
		board[len(board)-1] = *self
	} else {
		board = append(board, *self)
	}
	return board, nil
}

// WarmWeekly 预热周榜缓存，由定时任务调用
func (s *RankingService) WarmWeekly(ctx context.Context) error {
	if s.Cache == nil {
		return nil
	}
	size, ttl := s.settings()
	entries, err := s.topWeekly(ctx, size)
	if err != nil {
		return err
	}
	return s.Cache.Set(ctx, string(PeriodWeek), size, entries, ttl)
}

func (s *RankingService) Invalidate(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx); err != nil {
		logger.Log.Warn("Ranking cache invalidation failed", zap.Error(err))
	}
}

// SyncUsername 登录事件回调，刷新积分记录上展示的用户名
func (s *RankingService) SyncUsername(ctx context.Context, event AuthEvent) {
	if event.Kind != AuthSignedIn || event.Identity.Name == "" {
		return
	}
	if err := s.Points.UpdateUsername(ctx, event.Identity.UserID, event.Identity.Name); err != nil {
		logger.Log.Warn("Failed to sync ranking username",
			zap.String("userID", event.Identity.UserID), zap.Error(err))
		return
	}
	s.Invalidate(ctx)
}

func tierPoints(tier model.CompletionTier) int {
	switch tier {
	case model.TierClass:
		return ClassCompletionPoints
	case model.TierModule:
		return ModuleCompletionPoints
	case model.TierCourse:
		return CourseCompletionPoints
	}
	return 0
}

func sortEntries(entries []RankEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].UserID < entries[j].UserID
	})
}

// assignRanks 要求 entries 已按积分降序；同分同名次
func assignRanks(entries []RankEntry) {
	for i := range entries {
		if i > 0 && entries[i].Points == entries[i-1].Points {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
}
