package arena

import (
	"sort"

	"github.com/ashwinyue/next-arena/internal/model"
)

// ModelScore 单个模型的胜场与胜率
type ModelScore struct {
	Model      string  `json:"model"`
	Wins       int     `json:"wins"`
	Percentage float64 `json:"percentage"`
}

// Summary 汇总结果，Scores 按 state.Models 顺序排列
type Summary struct {
	Scores []ModelScore `json:"scores"`
	Total  int          `json:"total"`
}

// Ranked 按胜率从高到低排序的副本，胜率相同保持原顺序
func (s Summary) Ranked() []ModelScore {
	ranked := append([]ModelScore(nil), s.Scores...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Percentage > ranked[j].Percentage
	})
	return ranked
}

// PairStats 一对模型的对战统计
type PairStats struct {
	ModelA string `json:"model_a"`
	ModelB string `json:"model_b"`
	AWins  int    `json:"a_wins"`
	BWins  int    `json:"b_wins"`
	Ties   int    `json:"ties"`
	Total  int    `json:"total"`
}

// AggregateSummary 统计每个模型的胜场和胜率，总数为决出胜负的票数
func AggregateSummary(state *model.ScheduleState) Summary {
	var summary Summary
	for _, m := range state.Models {
		summary.Total += state.Results[m]
	}
	summary.Scores = make([]ModelScore, 0, len(state.Models))
	for _, m := range state.Models {
		score := ModelScore{Model: m, Wins: state.Results[m]}
		if summary.Total > 0 {
			score.Percentage = float64(score.Wins) / float64(summary.Total) * 100
		}
		summary.Scores = append(summary.Scores, score)
	}
	return summary
}

// PairwiseBreakdown 按 "A vs B" 统计投票日志
func PairwiseBreakdown(state *model.ScheduleState) map[string]*PairStats {
	out := make(map[string]*PairStats)
	for _, rec := range state.ResultsLog {
		pair := model.ModelPair{rec.ModelA, rec.ModelB}
		stats, ok := out[pair.Key()]
		if !ok {
			stats = &PairStats{ModelA: rec.ModelA, ModelB: rec.ModelB}
			out[pair.Key()] = stats
		}
		stats.Total++
		switch rec.Winner {
		case rec.ModelA:
			stats.AWins++
		case rec.ModelB:
			stats.BWins++
		default:
			stats.Ties++
		}
	}
	return out
}
