package service

import (
	"math"
	"sort"

	"PropSync/internal/model"

	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultSimulations 蒙特卡洛默认模拟次数
const DefaultSimulations = 10000

// recentWindow 近期均值使用的场次数
const recentWindow = 2

// MarketModel 一个盘口类型在一个统计窗口内的简单统计模型
type MarketModel struct {
	MarketKey string
	// series 球员 -> 按周升序的非零统计值
	series map[string][]float64
	// recent 所有球员最近两场的值，用于联盟均值
	recent []float64
}

// BuildMarketModel 按周升序的统计行构建模型；缺失和 0 视为未出场
func BuildMarketModel(marketKey string, stats []*model.PlayerStats) *MarketModel {
	m := &MarketModel{MarketKey: marketKey, series: make(map[string][]float64)}
	var order []string
	for _, s := range stats {
		v := StatForMarket(s, marketKey)
		if v == nil || *v == 0 {
			continue
		}
		if _, ok := m.series[s.PlayerID]; !ok {
			order = append(order, s.PlayerID)
		}
		m.series[s.PlayerID] = append(m.series[s.PlayerID], *v)
	}
	for _, id := range order {
		m.recent = append(m.recent, tail(m.series[id], recentWindow)...)
	}
	return m
}

// Empty 窗口内没有任何观测
func (m *MarketModel) Empty() bool {
	return len(m.recent) == 0
}

// Observations 球员的观测次数
func (m *MarketModel) Observations(playerID string) int {
	return len(m.series[playerID])
}

// LeagueAverage 所有球员最近两场的均值
func (m *MarketModel) LeagueAverage() float64 {
	if len(m.recent) == 0 {
		return 0
	}
	return stat.Mean(m.recent, nil)
}

func tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

// Trend (最后一场 - 第一场) / (n-1)
func Trend(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return (values[len(values)-1] - values[0]) / float64(len(values)-1)
}

// Estimate 估计球员均值和标准差；opponent 为对手防守系数（1 表示不调整）
// 球员无观测时使用联盟均值；窗口内无任何观测返回 ok=false
func (m *MarketModel) Estimate(playerID string, opponent float64) (mean, std float64, ok bool) {
	if m.Empty() {
		return 0, 0, false
	}
	values, known := m.series[playerID]
	if !known {
		mean = m.LeagueAverage()
		if len(m.recent) > 1 {
			std = stat.PopStdDev(m.recent, nil)
		} else {
			std = mean * 0.2
		}
		return mean, applyFloors(m.MarketKey, mean, std), true
	}

	n := len(values)
	if n > 1 {
		std = stat.PopStdDev(values, nil)
	} else {
		std = values[0] * 0.1
	}
	recent := tail(values, recentWindow)
	mean = stat.Mean(recent, nil)
	if len(recent) > 1 {
		mean += Trend(values) * 0.5
	}
	if std <= 0 {
		std = mean * 0.15
	}
	mean *= opponent

	// 样本少时向联盟均值收缩
	switch n {
	case 1:
		mean = 0.5*mean + 0.5*m.LeagueAverage()
		std = math.Max(std, mean*0.5)
	case 2:
		mean = 0.7*mean + 0.3*m.LeagueAverage()
		std = math.Max(std, mean*0.3)
	}
	mean = math.Max(0, mean)
	return mean, applyFloors(m.MarketKey, mean, std), true
}

// applyFloors 标准差下限，避免远离盘口时出现 100% 概率
func applyFloors(marketKey string, mean, std float64) float64 {
	mean = math.Max(0, mean)
	std = math.Max(std, mean*0.05)
	std = math.Max(std, mean*0.2)
	switch {
	case mean < 5 && isYardageMarket(marketKey):
		std = math.Max(std, mean*0.8)
	case mean > 500 && marketKey == "player_pass_yds":
		std = math.Max(std, mean*0.3)
	}
	return std
}

func isYardageMarket(marketKey string) bool {
	switch marketKey {
	case "player_pass_yds", "player_rush_yds", "player_reception_yds":
		return true
	}
	return false
}

// OpponentMultiplier 防守排名（1 最强，32 最弱）对应的预测系数
func OpponentMultiplier(rank int) float64 {
	r := float64(rank)
	switch {
	case rank <= 8:
		return 0.80 + (r-1)*0.025
	case rank >= 25:
		return 1.05 + (32-r)*0.03
	case rank <= 16:
		return 0.90 + (r-9)*0.014
	default:
		return 1.01 + (r-17)*0.02
	}
}

// SimulationResult 蒙特卡洛结果
type SimulationResult struct {
	OverProbability  float64
	UnderProbability float64
	Lower            float64 // 5 分位
	Upper            float64 // 95 分位
}

// Simulate 从 N(mean, std) 抽样 n 次估计大小概率和 90% 区间
func Simulate(mean, std, line float64, n int, seed uint64) SimulationResult {
	if n <= 0 {
		n = DefaultSimulations
	}
	dist := distuv.Normal{Mu: mean, Sigma: std, Src: exprand.NewSource(seed)}
	samples := make([]float64, n)
	over, under := 0, 0
	for i := range samples {
		x := dist.Rand()
		samples[i] = x
		if x > line {
			over++
		} else if x < line {
			under++
		}
	}
	sort.Float64s(samples)
	return SimulationResult{
		OverProbability:  float64(over) / float64(n),
		UnderProbability: float64(under) / float64(n),
		Lower:            stat.Quantile(0.05, stat.Empirical, samples, nil),
		Upper:            stat.Quantile(0.95, stat.Empirical, samples, nil),
	}
}
