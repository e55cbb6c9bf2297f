package api

import (
	"errors"
	"net/http"
	"strconv"

	"PropSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type SyncHandler struct {
	syncService *service.SyncService
	logger      *logrus.Logger
}

func NewSyncHandler(syncService *service.SyncService, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{syncService: syncService, logger: logger}
}

// RunJobHandler 同步执行一个批任务并返回汇总
// @Param job path string true "任务名（refresh/clv/grade/predict/mappings/reconcile/merge/defense）"
// @Param game_id query string false "限定比赛"
// @Param market query string false "限定盘口"
// @Param season query int false "赛季"
// @Param force query bool false "忽略刷新间隔"
// @Param refresh query bool false "忽略名册缓存"
// @Param dry_run query bool false "只计算不写库"
// @Router /jobs/{job} [post]
func (h *SyncHandler) RunJobHandler(c *gin.Context) {
	job := c.Param("job")
	season, _ := strconv.Atoi(c.DefaultQuery("season", "0"))
	params := service.JobParams{
		GameID:  c.Query("game_id"),
		Market:  c.Query("market"),
		Season:  season,
		Force:   queryBool(c, "force"),
		Refresh: queryBool(c, "refresh"),
		DryRun:  queryBool(c, "dry_run"),
	}

	summary, err := h.syncService.Run(c.Request.Context(), job, params)
	switch {
	case errors.Is(err, service.ErrUnknownJob):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "jobs": h.syncService.JobNames()})
		return
	case errors.Is(err, service.ErrGameNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Errorf("执行任务%s失败: %v", job, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.DefaultQuery(key, "false"))
	return err == nil && v
}

// Healthz 存活检查
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
