package interfaces

import (
	"context"

	"PropSync/internal/config"
	"PropSync/internal/model"

	"github.com/sirupsen/logrus"
)

// OddsProvider 赔率源必须实现的接口
type OddsProvider interface {
	GetName() string
	// ListEvents 拉取赛事索引
	ListEvents(ctx context.Context) ([]model.ProviderEvent, error)
	// FetchEventProps 拉取单场赛事的球员盘口，返回解析结果与原始响应
	FetchEventProps(ctx context.Context, eventID string, markets []string) (*model.ParsedProps, []byte, error)
}

// ReferenceFeed 球员名册数据源
type ReferenceFeed interface {
	// FetchRoster 拉取指定赛季名册原始 JSON（由缓存层负责复用）
	FetchRoster(ctx context.Context, season int) ([]byte, error)
}

// Factory 赔率源工厂函数签名
type Factory func(cfg *config.OddsProviderConfig, logger *logrus.Logger) OddsProvider
