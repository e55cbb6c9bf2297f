package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PropSync/internal/config"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler 按 sync.*_cron 定时触发批任务；同一任务上一次未结束时跳过本次
type Scheduler struct {
	sync    *SyncService
	cfg     config.SyncConfig
	cron    *cron.Cron
	running map[string]bool
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *logrus.Logger
}

func NewScheduler(s *SyncService, cfg config.SyncConfig, logger *logrus.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		sync:    s,
		cfg:     cfg,
		cron:    cron.New(cron.WithLogger(cron.VerbosePrintfLogger(logger))),
		running: make(map[string]bool),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}
}

// Start 注册非空的 cron 表达式并启动，返回注册的任务数
func (sc *Scheduler) Start() (int, error) {
	specs := []struct {
		job  string
		spec string
	}{
		{JobRefresh, sc.cfg.RefreshCron},
		{JobCLV, sc.cfg.CLVCron},
		{JobGrade, sc.cfg.GradeCron},
		{JobPredict, sc.cfg.PredictCron},
		{JobMappings, sc.cfg.MappingCron},
	}
	n := 0
	for _, item := range specs {
		if item.spec == "" {
			continue
		}
		job := item.job
		if _, err := sc.cron.AddFunc(item.spec, func() { sc.runOnce(job) }); err != nil {
			return n, fmt.Errorf("注册定时任务%s失败: %w", job, err)
		}
		sc.logger.WithFields(logrus.Fields{"job": job, "spec": item.spec}).Info("定时任务已注册")
		n++
	}
	sc.cron.Start()
	return n, nil
}

func (sc *Scheduler) runOnce(job string) {
	sc.mu.Lock()
	if sc.running[job] {
		sc.mu.Unlock()
		sc.logger.WithField("job", job).Warn("上一次执行未结束，跳过")
		return
	}
	sc.running[job] = true
	sc.mu.Unlock()
	defer func() {
		sc.mu.Lock()
		sc.running[job] = false
		sc.mu.Unlock()
	}()

	if _, err := sc.sync.Run(sc.ctx, job, JobParams{}); err != nil {
		sc.logger.WithError(err).WithField("job", job).Warn("定时任务失败")
	}
}

// Stop 停止调度并等待正在执行的任务，最多等 timeout
func (sc *Scheduler) Stop(timeout time.Duration) {
	ctx := sc.cron.Stop()
	select {
	case <-ctx.Done():
		sc.logger.Info("定时任务已停止")
	case <-time.After(timeout):
		sc.logger.Warn("等待定时任务结束超时，取消执行中的任务")
	}
	sc.cancel()
}
