package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"PropSync/internal/cache"
	"PropSync/internal/config"
	"PropSync/internal/interfaces"
	"PropSync/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// 可触发的批任务
const (
	JobRefresh   = "refresh"
	JobCLV       = "clv"
	JobGrade     = "grade"
	JobPredict   = "predict"
	JobMappings  = "mappings"
	JobReconcile = "reconcile"
	JobMerge     = "merge"
	JobDefense   = "defense"
)

// ErrUnknownJob 未注册的任务名
var ErrUnknownJob = errors.New("unknown_job")

// JobParams 批任务参数，各任务只读取自己关心的字段
type JobParams struct {
	GameID  string
	Market  string
	Season  int
	Force   bool
	Refresh bool
	DryRun  bool
}

type jobFunc func(ctx context.Context, p JobParams) (*BatchSummary, error)

// SyncService 组装全部组件，按任务名分发批任务
type SyncService struct {
	Snapshot   *SnapshotService
	CLV        *CLVService
	Grading    *GradingService
	Prediction *PredictionService
	Identity   *IdentityService
	Reconcile  *ReconcileService
	Defense    *DefenseService
	Lookup     *PropLookupService

	jobs   map[string]jobFunc
	logger *logrus.Logger
}

// NewSyncService 由数据库、赔率源和名册源构建全部服务
func NewSyncService(db *gorm.DB, logger *logrus.Logger, cfg *config.Config, provider interfaces.OddsProvider, feed interfaces.ReferenceFeed, refCache *cache.Cache) *SyncService {
	gameRepo := repository.NewGameRepository(db)
	eventRepo := repository.NewOddsEventRepository(db)
	propRepo := repository.NewPropRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	logRepo := repository.NewRefreshLogRepository(db)
	playerRepo := repository.NewPlayerRepository(db)
	mappingRepo := repository.NewMappingRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	teamStatsRepo := repository.NewTeamStatsRepository(db)
	predRepo := repository.NewPredictionRepository(db)

	roster := NewRosterLoader(feed, refCache)
	resolver := NewEventResolver(provider, eventRepo, time.Duration(cfg.OddsProvider.ToleranceMins)*time.Minute, logger)
	identity := NewIdentityService(mappingRepo, playerRepo, propRepo, roster, cfg.Identity.Threshold, logger)

	s := &SyncService{
		Snapshot: NewSnapshotService(provider, resolver, gameRepo, eventRepo, propRepo, logRepo, SnapshotConfig{
			Markets:     cfg.Sync.Markets,
			Bookmaker:   cfg.OddsProvider.Bookmaker,
			Freshness:   time.Duration(cfg.Sync.FreshnessMins) * time.Minute,
			Concurrency: cfg.Sync.Concurrency,
		}, logger),
		CLV:     NewCLVService(historyRepo, logger),
		Grading: NewGradingService(historyRepo, gameRepo, statsRepo, gradeRepo, identity, logger),
		Prediction: NewPredictionService(propRepo, gameRepo, playerRepo, statsRepo, teamStatsRepo, predRepo, identity, PredictionConfig{
			Simulations:  cfg.Prediction.Simulations,
			Seed:         cfg.Prediction.Seed,
			ModelVersion: cfg.Prediction.ModelVersion,
		}, logger),
		Identity:  identity,
		Reconcile: NewReconcileService(playerRepo, teamRepo, mappingRepo, propRepo, roster, logger),
		Defense:   NewDefenseService(statsRepo, teamStatsRepo, logger),
		Lookup:    NewPropLookupService(provider, resolver, gameRepo, eventRepo, propRepo, playerRepo, teamRepo, predRepo, logger),
		logger:    logger,
	}
	s.registerJobs()
	return s
}

func (s *SyncService) registerJobs() {
	season := func(p JobParams) int {
		if p.Season > 0 {
			return p.Season
		}
		return CurrentSeason(time.Now())
	}
	s.jobs = map[string]jobFunc{
		JobRefresh: func(ctx context.Context, p JobParams) (*BatchSummary, error) {
			return s.Snapshot.Refresh(ctx, RefreshOptions{GameID: p.GameID, Force: p.Force})
		},
		JobCLV: func(ctx context.Context, p JobParams) (*BatchSummary, error) {
			return s.CLV.Calculate(ctx, CLVOptions{GameID: p.GameID, MarketKey: p.Market, DryRun: p.DryRun})
		},
		JobGrade: func(ctx context.Context, p JobParams) (*BatchSummary, error) {
			return s.Grading.Grade(ctx, GradeOptions{GameID: p.GameID, MarketKey: p.Market, DryRun: p.DryRun})
		},
		JobPredict: func(ctx context.Context, p JobParams) (*BatchSummary, error) {
			return s.Prediction.Predict(ctx, PredictOptions{GameID: p.GameID, DryRun: p.DryRun})
		},
		JobMappings: func(ctx context.Context, p JobParams) (*BatchSummary, error) {
			return s.Identity.BuildMappings(ctx, season(p), p.Refresh)
		},
		JobReconcile: func(ctx context.Context, p JobParams) (*BatchSummary, error) {
			return s.Reconcile.Reconcile(ctx, ReconcileOptions{Season: season(p), Refresh: p.Refresh, DryRun: p.DryRun})
		},
		JobMerge: func(ctx context.Context, p JobParams) (*BatchSummary, error) {
			return s.Reconcile.MergeDuplicates(ctx, p.DryRun)
		},
		JobDefense: func(ctx context.Context, p JobParams) (*BatchSummary, error) {
			return s.Defense.RecomputeRanks(ctx, p.Season)
		},
	}
}

// JobNames 已注册的任务名（升序）
func (s *SyncService) JobNames() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run 同步执行一个批任务并输出汇总日志
func (s *SyncService) Run(ctx context.Context, job string, p JobParams) (*BatchSummary, error) {
	fn, ok := s.jobs[job]
	if !ok {
		return nil, fmt.Errorf("%s: %w", job, ErrUnknownJob)
	}
	s.logger.WithFields(logrus.Fields{
		"job":     job,
		"game_id": p.GameID,
		"market":  p.Market,
		"force":   p.Force,
		"dry_run": p.DryRun,
	}).Info("开始执行批任务")
	summary, err := fn(ctx, p)
	if err != nil {
		s.logger.WithError(err).WithField("job", job).Error("批任务执行失败")
		return summary, err
	}
	summary.Log(s.logger)
	return summary, nil
}
