package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PropSync/internal/api"
	"PropSync/internal/bootstrap"
	"PropSync/internal/config"
	"PropSync/internal/logger"
	"PropSync/internal/service"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 加载配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("加载配置文件失败: %v", err)
	}

	// 2. 初始化日志
	logrusLogger := logger.New(cfg.Log)
	logrusLogger.Info("配置文件加载成功")

	// 3. 连接 PostgreSQL 并迁移表结构
	db, err := bootstrap.OpenDatabase(&cfg.Database, logrusLogger)
	if err != nil {
		logrusLogger.Fatalf("初始化数据库失败: %v", err)
	}

	// 4. 组装服务
	syncService, err := bootstrap.NewSyncService(cfg, db, logrusLogger)
	if err != nil {
		logrusLogger.Fatalf("初始化服务失败: %v", err)
	}

	// 5. 定时批任务
	scheduler := service.NewScheduler(syncService, cfg.Sync, logrusLogger)
	n, err := scheduler.Start()
	if err != nil {
		logrusLogger.Fatalf("启动定时任务失败: %v", err)
	}
	logrusLogger.Infof("定时任务已启动，共 %d 个", n)

	// 6. 配置Gin运行模式（从配置读取：debug/release）
	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()

	// 注册ppof 方便调试和监测性能问题
	pprof.Register(r)
	logrusLogger.Infof("Gin运行模式: %s", cfg.Server.Mode)

	// 7. 注册API路由
	r.GET("/healthz", api.Healthz)
	propsHandler := api.NewPropsHandler(syncService.Lookup, logrusLogger)
	r.GET("/game/:game_id/props", propsHandler.GetGameProps)
	syncHandler := api.NewSyncHandler(syncService, logrusLogger)
	r.POST("/jobs/:job", syncHandler.RunJobHandler)

	// 8. 启动服务（从配置读取端口），收到退出信号后优雅关闭
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: r}
	go func() {
		logrusLogger.Infof("服务启动成功，端口：%d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrusLogger.Fatalf("启动服务失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrusLogger.Info("收到退出信号，开始关闭")

	scheduler.Stop(30 * time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrusLogger.Errorf("关闭HTTP服务失败: %v", err)
	}
	logrusLogger.Info("服务已退出")
}
