package service

import (
	"context"

	"PropSync/internal/adapter/reffeed"
	"PropSync/internal/cache"
	"PropSync/internal/interfaces"
	"PropSync/internal/model"
)

// RosterLoader 经缓存读取参考名册，映射构建和球队校正共用
type RosterLoader struct {
	feed  interfaces.ReferenceFeed
	cache *cache.Cache
}

// NewRosterLoader c 为 nil 时每次直接回源
func NewRosterLoader(feed interfaces.ReferenceFeed, c *cache.Cache) *RosterLoader {
	return &RosterLoader{feed: feed, cache: c}
}

// Load 读取整季名册，refresh=true 时忽略缓存
func (l *RosterLoader) Load(ctx context.Context, season int, refresh bool) ([]model.RosterPlayer, error) {
	fetch := func(ctx context.Context) ([]byte, error) {
		return l.feed.FetchRoster(ctx, season)
	}
	var (
		raw []byte
		err error
	)
	if l.cache == nil {
		raw, err = fetch(ctx)
	} else {
		raw, err = l.cache.Load(ctx, cache.Key{DataType: cache.TypeRoster, Season: season}, refresh, fetch)
	}
	if err != nil {
		return nil, err
	}
	return reffeed.DecodeRoster(raw)
}
