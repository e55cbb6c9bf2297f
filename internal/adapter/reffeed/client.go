package reffeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"PropSync/internal/config"
	"PropSync/internal/interfaces"
	"PropSync/internal/model"
	"PropSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

// Client 球员名册 HTTP 数据源，GET {base}/players?season=YYYY 返回球员数组
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(cfg *config.ReferenceFeedConfig, logger *logrus.Logger) interfaces.ReferenceFeed {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpclient.NewHTTPClient(httpclient.Options{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
			Proxy:   cfg.Proxy,
		}, logger),
		logger: logger,
	}
}

func (c *Client) FetchRoster(ctx context.Context, season int) ([]byte, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("未配置名册数据源地址")
	}
	u := c.baseURL + "/players?" + url.Values{"season": {strconv.Itoa(season)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("拉取名册失败: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("拉取名册失败: http %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取名册失败: %w", err)
	}
	// 校验格式，避免把错误页写进缓存
	if _, err := DecodeRoster(body); err != nil {
		return nil, err
	}
	c.logger.WithFields(logrus.Fields{"season": season, "bytes": len(body)}).Info("名册拉取完成")
	return body, nil
}

// DecodeRoster 解析名册 JSON
func DecodeRoster(raw []byte) ([]model.RosterPlayer, error) {
	var roster []model.RosterPlayer
	if err := json.Unmarshal(raw, &roster); err != nil {
		return nil, fmt.Errorf("解析名册失败: %w", err)
	}
	return roster, nil
}
