package service

import (
	"context"
	"fmt"
	"time"

	"PropSync/internal/model"
	"PropSync/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// OurCaptureLag 早于计算时刻该时长的最后一次采集记为本方采集
// 该标记随计算时刻漂移：同一批历史在不同时间重算可能得到不同结果
const OurCaptureLag = time.Hour

// CLVOptions CLV 计算范围
type CLVOptions struct {
	GameID    string
	MarketKey string
	DryRun    bool
}

// CLVService 基于历史快照计算收盘线价值
type CLVService struct {
	historyRepo repository.HistoryRepository
	now         func() time.Time
	logger      *logrus.Logger
}

func NewCLVService(historyRepo repository.HistoryRepository, logger *logrus.Logger) *CLVService {
	return &CLVService{
		historyRepo: historyRepo,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger,
	}
}

type partitionKey struct {
	GameID     string
	PlayerName string
	MarketKey  string
}

func keyOf(h *model.PropLineHistory) partitionKey {
	return partitionKey{GameID: h.GameID, PlayerName: h.PlayerName, MarketKey: h.MarketKey}
}

// partitions 把按分区键排好序的历史切成连续分组
func partitions(rows []*model.PropLineHistory) [][]*model.PropLineHistory {
	var out [][]*model.PropLineHistory
	start := 0
	for i := 1; i <= len(rows); i++ {
		if i == len(rows) || keyOf(rows[i]) != keyOf(rows[start]) {
			out = append(out, rows[start:i])
			start = i
		}
	}
	return out
}

// ComputeCLV 对单个分区（按采集时间升序）回填开盘/收盘标记、CLV 和本方采集标记
func ComputeCLV(rows []*model.PropLineHistory, now time.Time) {
	if len(rows) == 0 {
		return
	}
	opening := rows[0].LineValue
	closing := rows[len(rows)-1].LineValue
	cutoff := now.Add(-OurCaptureLag)
	ours := -1
	for i, h := range rows {
		if h.CapturedAt.Before(cutoff) {
			ours = i
		}
	}
	for i, h := range rows {
		h.IsOpeningLine = i == 0
		h.IsClosingLine = i == len(rows)-1
		h.IsOurCapture = i == ours
		h.CLVVsOpening = decimal.NewNullDecimal(h.LineValue.Sub(opening))
		h.CLVVsClosing = decimal.NewNullDecimal(h.LineValue.Sub(closing))
	}
}

// Calculate 按分区重算 CLV；可重复执行
func (s *CLVService) Calculate(ctx context.Context, opts CLVOptions) (*BatchSummary, error) {
	summary := NewBatchSummary("clv")
	rows, err := s.historyRepo.List(ctx, repository.HistoryFilter{GameID: opts.GameID, MarketKey: opts.MarketKey})
	if err != nil {
		return nil, fmt.Errorf("查询盘口历史失败: %w", err)
	}
	now := s.now()
	groups := partitions(rows)
	for _, g := range groups {
		ComputeCLV(g, now)
		s.logger.WithFields(logrus.Fields{
			"game_id":  g[0].GameID,
			"player":   g[0].PlayerName,
			"market":   g[0].MarketKey,
			"captures": len(g),
			"opening":  g[0].LineValue.String(),
			"closing":  g[len(g)-1].LineValue.String(),
		}).Debug("CLV 已计算")
	}
	if !opts.DryRun {
		if err := s.historyRepo.UpdateCLV(ctx, rows); err != nil {
			return nil, fmt.Errorf("回写 CLV 失败: %w", err)
		}
	}
	for range rows {
		summary.Succeed()
	}
	s.logger.WithFields(logrus.Fields{
		"rows":       len(rows),
		"partitions": len(groups),
		"dry_run":    opts.DryRun,
	}).Info("CLV 计算完成")
	return summary.Finish(), nil
}
