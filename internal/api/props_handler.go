package api

import (
	"errors"
	"net/http"
	"strings"

	"PropSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PropsHandler 单场比赛盘口查询接口
type PropsHandler struct {
	lookup *service.PropLookupService
	logger *logrus.Logger
}

// NewPropsHandler 创建 PropsHandler
func NewPropsHandler(lookup *service.PropLookupService, logger *logrus.Logger) *PropsHandler {
	return &PropsHandler{lookup: lookup, logger: logger}
}

// hasAPIKeyParam 请求参数里是否带了 apiKey（忽略大小写与下划线）
func hasAPIKeyParam(q map[string][]string) bool {
	for name := range q {
		if strings.ReplaceAll(strings.ToLower(name), "_", "") == "apikey" {
			return true
		}
	}
	return false
}

// splitMarkets 逗号分隔的盘口列表，忽略空项
func splitMarkets(csv string) []string {
	var out []string
	for _, m := range strings.Split(csv, ",") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

// GetGameProps 查询比赛盘口
// GET /game/:game_id/props?markets=player_pass_yds,player_rush_yds
// 200 有数据；204 无数据；400 携带 apiKey；404 比赛不存在；502 赔率源失败
func (h *PropsHandler) GetGameProps(c *gin.Context) {
	if hasAPIKeyParam(c.Request.URL.Query()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "apiKey_not_allowed"})
		return
	}
	gameID := c.Param("game_id")
	markets := splitMarkets(c.DefaultQuery("markets", service.DefaultLookupMarket))

	resp, err := h.lookup.Lookup(c.Request.Context(), gameID, markets)
	switch {
	case errors.Is(err, service.ErrGameNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrGameNotFound.Error()})
		return
	case errors.Is(err, service.ErrEventNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrEventNotFound.Error()})
		return
	case errors.Is(err, service.ErrFetchFailed):
		h.logger.WithError(err).WithField("game_id", gameID).Warn("盘口查询拉取失败")
		c.JSON(http.StatusBadGateway, gin.H{"error": service.ErrFetchFailed.Error()})
		return
	case err != nil:
		h.logger.WithError(err).WithField("game_id", gameID).Error("盘口查询失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if len(resp.Markets) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, resp)
}
