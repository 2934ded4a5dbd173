package arena

import (
	"github.com/google/uuid"

	"github.com/ashwinyue/next-arena/internal/model"
)

var newSessionID = uuid.NewString

// GeneratePairs 按首个模型下标优先的顺序生成全部两两组合
func GeneratePairs(models []string) []model.ModelPair {
	if len(models) < 2 {
		return nil
	}
	pairs := make([]model.ModelPair, 0, len(models)*(len(models)-1)/2)
	for i := 0; i < len(models); i++ {
		for j := i + 1; j < len(models); j++ {
			pairs = append(pairs, model.ModelPair{models[i], models[j]})
		}
	}
	return pairs
}

// CreateBaseline 为规范化后的数据集创建基线状态
func (n Normalizer) CreateBaseline(ds *model.Dataset) *model.ScheduleState {
	models := ds.Models()
	results := make(map[string]int, len(models))
	for _, m := range models {
		results[m] = 0
	}
	return &model.ScheduleState{
		Models:              models,
		QuestionPool:        n.ValidRowIndices(ds),
		ModelPairs:          GeneratePairs(models),
		CurrentPairIndex:    0,
		Results:             results,
		SessionID:           newSessionID(),
		ComparisonsMade:     0,
		ResultsLog:          []model.VoteRecord{},
		ModelPairsCompleted: []model.ModelPair{},
	}
}

// Fork 从基线深拷贝出用户副本，不继承基线上待投票的比较
func Fork(baseline *model.ScheduleState) *model.ScheduleState {
	state := baseline.Clone()
	state.Pending = nil
	return state
}

// Reset 丢弃用户全部进度，重新从基线派生并分配新的会话 ID
func Reset(baseline *model.ScheduleState) *model.ScheduleState {
	state := Fork(baseline)
	state.SessionID = newSessionID()
	return state
}
