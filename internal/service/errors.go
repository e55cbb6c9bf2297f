package service

import "errors"

// 批任务与查询共用的业务错误，调用方用 errors.Is 判断
var (
	// ErrEventNotFound 在开赛时间容差内找不到匹配的赔率源赛事
	ErrEventNotFound = errors.New("odds_event_not_found")
	// ErrFetchFailed 赔率源请求在重试耗尽后仍失败
	ErrFetchFailed = errors.New("fetch_failed")
	// ErrMappingConflict 规范 ID 已被另一个统计源球员占用
	ErrMappingConflict = errors.New("mapping_conflict")
	// ErrNoStatsAvailable 没有可用于结算或预测的统计数据
	ErrNoStatsAvailable = errors.New("no_stats_available")
	// ErrGameNotFound 内部比赛不存在
	ErrGameNotFound = errors.New("game_not_found")
)
