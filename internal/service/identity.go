package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"PropSync/internal/model"
	"PropSync/internal/repository"

	"github.com/sirupsen/logrus"
)

// DefaultMatchThreshold 名字匹配的默认最低分
const DefaultMatchThreshold = 0.8

var (
	spaceRe  = regexp.MustCompile(`\s+`)
	suffixRe = regexp.MustCompile(`\s+(jr|sr|ii|iii|iv|v)\.?$`)
)

// NormalizeName 小写、合并空白、去掉末尾的 Jr/Sr/II 等后缀
func NormalizeName(name string) string {
	n := spaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), " ")
	return suffixRe.ReplaceAllString(n, "")
}

// SimilarityScore 两个球员名的相似度，范围 [0,1]
func SimilarityScore(a, b string) float64 {
	n1, n2 := NormalizeName(a), NormalizeName(b)
	score := ratio([]rune(n1), []rune(n2))

	f1, l1 := firstLast(n1)
	f2, l2 := firstLast(n2)
	if l1 != "" && l1 == l2 {
		score += 0.3
	}
	if f1 != "" && f1 == f2 {
		score += 0.2
	} else if f1 != "" && f2 != "" && []rune(f1)[0] == []rune(f2)[0] {
		score += 0.1
	}
	// 姓不同的大概率不是同一人
	if l1 != "" && l2 != "" && l1 != l2 {
		score *= 0.5
	}
	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

func firstLast(name string) (string, string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], parts[len(parts)-1]
}

// FindBestMatch 在 candidates 中找分数最高且不低于 threshold 的名字；同分取先出现的
func FindBestMatch(name string, candidates []string, threshold float64) (string, float64, bool) {
	best, bestScore := "", 0.0
	for _, c := range candidates {
		s := SimilarityScore(name, c)
		if s > bestScore && s >= threshold {
			best, bestScore = c, s
		}
	}
	return best, bestScore, best != ""
}

// CanonicalPlayerID 由盘口源名字生成规范 ID：小写、空格转下划线、去掉标点
func CanonicalPlayerID(name string) string {
	n := spaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
	var b strings.Builder
	for _, r := range n {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ratio Ratcliff/Obershelp 相似度 2M/T
func ratio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(a, b)) / float64(total)
}

// matchingRunes 递归累加最长公共子串两侧的匹配字符数
func matchingRunes(a, b []rune) int {
	i, j, k := longestMatch(a, b)
	if k == 0 {
		return 0
	}
	return k + matchingRunes(a[:i], b[:j]) + matchingRunes(a[i+k:], b[j+k:])
}

// longestMatch 最长公共子串；多个等长时取在 a 中最早结束的
func longestMatch(a, b []rune) (int, int, int) {
	bestI, bestJ, bestK := 0, 0, 0
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 0; i < len(a); i++ {
		for j := 0; j < len(b); j++ {
			if a[i] == b[j] {
				cur[j+1] = prev[j] + 1
				if cur[j+1] > bestK {
					bestK = cur[j+1]
					bestI, bestJ = i-bestK+1, j-bestK+1
				}
			} else {
				cur[j+1] = 0
			}
		}
		prev, cur = cur, prev
	}
	return bestI, bestJ, bestK
}

// IdentityService 统计源与盘口源之间的球员身份映射
type IdentityService struct {
	mappingRepo repository.MappingRepository
	playerRepo  repository.PlayerRepository
	propRepo    repository.PropRepository
	roster      *RosterLoader
	threshold   float64
	logger      *logrus.Logger
}

// NewIdentityService threshold<=0 时使用默认阈值
func NewIdentityService(mappingRepo repository.MappingRepository, playerRepo repository.PlayerRepository, propRepo repository.PropRepository, roster *RosterLoader, threshold float64, logger *logrus.Logger) *IdentityService {
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}
	return &IdentityService{
		mappingRepo: mappingRepo,
		playerRepo:  playerRepo,
		propRepo:    propRepo,
		roster:      roster,
		threshold:   threshold,
		logger:      logger,
	}
}

// BuildMappings 用参考名册中的在役球员逐个匹配盘口中出现过的名字并写入映射
func (s *IdentityService) BuildMappings(ctx context.Context, season int, refresh bool) (*BatchSummary, error) {
	summary := NewBatchSummary("mappings")
	roster, err := s.roster.Load(ctx, season, refresh)
	if err != nil {
		return nil, fmt.Errorf("加载名册失败: %w", err)
	}
	candidates, err := s.propRepo.ListPlayerNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询盘口球员名失败: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"season":     season,
		"roster":     len(roster),
		"candidates": len(candidates),
	}).Info("开始构建球员映射")

	for _, rp := range roster {
		if ctx.Err() != nil {
			return summary.Finish(), ctx.Err()
		}
		if rp.Status != "ACT" {
			continue
		}
		match, score, ok := FindBestMatch(rp.DisplayName, candidates, s.threshold)
		if !ok {
			summary.Skip()
			continue
		}
		err := s.upsertMapping(ctx, rp, match)
		switch {
		case errors.Is(err, ErrMappingConflict):
			s.logger.WithFields(logrus.Fields{
				"source_name": rp.DisplayName,
				"prop_name":   match,
			}).Warn("规范ID已被其他球员占用，跳过映射")
			summary.Conflict(rp.DisplayName)
		case err != nil:
			s.logger.WithError(err).WithField("source_name", rp.DisplayName).Warn("写入球员映射失败")
			summary.Fail(rp.DisplayName, err)
		default:
			s.logger.WithFields(logrus.Fields{
				"source_name": rp.DisplayName,
				"prop_name":   match,
				"score":       score,
			}).Debug("球员映射已写入")
			summary.Succeed()
		}
	}
	return summary.Finish(), nil
}

func (s *IdentityService) upsertMapping(ctx context.Context, rp model.RosterPlayer, propName string) error {
	playerID := CanonicalPlayerID(propName)
	existing, err := s.mappingRepo.GetByPlayerID(ctx, playerID)
	if err != nil {
		return err
	}
	if existing != nil && existing.SourceName != rp.DisplayName {
		return ErrMappingConflict
	}
	return s.mappingRepo.Upsert(ctx, &model.PlayerMapping{
		SourceName:  rp.DisplayName,
		PropName:    propName,
		PlayerID:    playerID,
		Position:    rp.Position,
		CurrentTeam: rp.LatestTeam,
		IsActive:    true,
	})
}

// ResolvePlayerID 盘口源名字到规范球员 ID：先查映射，再按名字找球员；都没有返回空串
func (s *IdentityService) ResolvePlayerID(ctx context.Context, propName string) (string, error) {
	m, err := s.mappingRepo.GetActiveByPropName(ctx, propName)
	if err != nil {
		return "", err
	}
	if m != nil {
		return m.PlayerID, nil
	}
	p, err := s.playerRepo.FindByName(ctx, propName)
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", nil
	}
	return p.PlayerID, nil
}
