// propjob 单次执行一个批任务后退出，供外部调度（如 k8s CronJob）调用
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"PropSync/internal/bootstrap"
	"PropSync/internal/config"
	"PropSync/internal/logger"
	"PropSync/internal/service"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func main() {
	flags := pflag.NewFlagSet("propjob", pflag.ExitOnError)
	job := flags.String("job", "", "任务名：refresh|clv|grade|predict|mappings|reconcile|merge|defense")
	gameID := flags.String("game-id", "", "限定比赛，如 2025_03_ATL_CAR")
	market := flags.String("market", "", "限定盘口，如 player_pass_yds")
	season := flags.Int("season", 0, "赛季，0 表示当前赛季")
	force := flags.Bool("force", false, "忽略刷新间隔")
	refresh := flags.Bool("refresh", false, "忽略名册缓存")
	dryRun := flags.Bool("dry-run", false, "只计算不写库")
	flags.String("log-level", "", "覆盖日志级别")
	flags.Int("concurrency", 0, "覆盖按比赛并发数")
	if err := flags.Parse(os.Args[1:]); err != nil {
		log.Fatalf("解析参数失败: %v", err)
	}
	if *job == "" {
		flags.Usage()
		os.Exit(2)
	}

	v := viper.New()
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("sync.concurrency", flags.Lookup("concurrency"))
	cfg, err := config.LoadConfigWith(v)
	if err != nil {
		log.Fatalf("加载配置文件失败: %v", err)
	}
	logrusLogger := logger.New(cfg.Log)

	db, err := bootstrap.OpenDatabase(&cfg.Database, logrusLogger)
	if err != nil {
		logrusLogger.Fatalf("初始化数据库失败: %v", err)
	}
	syncService, err := bootstrap.NewSyncService(cfg, db, logrusLogger)
	if err != nil {
		logrusLogger.Fatalf("初始化服务失败: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	summary, err := syncService.Run(ctx, *job, service.JobParams{
		GameID:  *gameID,
		Market:  *market,
		Season:  *season,
		Force:   *force,
		Refresh: *refresh,
		DryRun:  *dryRun,
	})
	if err != nil {
		logrusLogger.Fatalf("任务%s失败: %v", *job, err)
	}
	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
	if summary.Failed > 0 {
		os.Exit(1)
	}
}
