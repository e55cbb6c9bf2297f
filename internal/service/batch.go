package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// maxSummaryErrors 汇总里最多保留的错误条数
const maxSummaryErrors = 50

// BatchSummary 一次批任务的执行汇总；单元失败只计数，不中断批任务
type BatchSummary struct {
	RunID      string         `json:"run_id"`
	Job        string         `json:"job"`
	Processed  int            `json:"processed"`
	Succeeded  int            `json:"succeeded"`
	Skipped    int            `json:"skipped"`
	Failed     int            `json:"failed"`
	Conflicts  int            `json:"conflicts"`
	Errors     []string       `json:"errors,omitempty"`
	Details    map[string]int `json:"details,omitempty"` // 各任务自定义的附加计数
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`

	mu sync.Mutex
}

// NewBatchSummary 创建带 run_id 的汇总
func NewBatchSummary(job string) *BatchSummary {
	return &BatchSummary{
		RunID:     uuid.NewString(),
		Job:       job,
		StartedAt: time.Now().UTC(),
	}
}

func (b *BatchSummary) Succeed() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Processed++
	b.Succeeded++
}

func (b *BatchSummary) Skip() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Processed++
	b.Skipped++
}

// Conflict 映射冲突：计为跳过并单独计数
func (b *BatchSummary) Conflict(unit string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Processed++
	b.Skipped++
	b.Conflicts++
	b.appendError(fmt.Sprintf("%s: %v", unit, ErrMappingConflict))
}

// Fail 记录失败单元
func (b *BatchSummary) Fail(unit string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Processed++
	b.Failed++
	b.appendError(fmt.Sprintf("%s: %v", unit, err))
}

// Add 累加附加计数
func (b *BatchSummary) Add(name string, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Details == nil {
		b.Details = make(map[string]int)
	}
	b.Details[name] += n
}

func (b *BatchSummary) appendError(msg string) {
	if len(b.Errors) < maxSummaryErrors {
		b.Errors = append(b.Errors, msg)
	}
}

// Finish 记录结束时间
func (b *BatchSummary) Finish() *BatchSummary {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.FinishedAt = time.Now().UTC()
	return b
}

// Log 输出汇总日志
func (b *BatchSummary) Log(logger *logrus.Logger) {
	entry := logger.WithFields(logrus.Fields{
		"run_id":    b.RunID,
		"job":       b.Job,
		"processed": b.Processed,
		"succeeded": b.Succeeded,
		"skipped":   b.Skipped,
		"failed":    b.Failed,
		"conflicts": b.Conflicts,
	})
	if b.Failed > 0 {
		entry.Warn("批任务完成，存在失败单元")
		return
	}
	entry.Info("批任务完成")
}

// CurrentSeason NFL 赛季按开赛年份计，3 月之前仍属上一赛季
func CurrentSeason(now time.Time) int {
	if now.Month() < time.March {
		return now.Year() - 1
	}
	return now.Year()
}

// forEach 以 concurrency 个 worker 处理 items；fn 的错误由调用方计入汇总，这里只负责并发上限
func forEach[T any](ctx context.Context, concurrency int, items []T, fn func(ctx context.Context, item T)) {
	if concurrency <= 1 {
		for _, it := range items {
			if ctx.Err() != nil {
				return
			}
			fn(ctx, it)
		}
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, it := range items {
		it := it
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fn(gctx, it)
			return nil
		})
	}
	_ = g.Wait()
}
