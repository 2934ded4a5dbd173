package arena

import (
	"errors"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/ashwinyue/next-arena/internal/model"
)

// Status 调度状态
type Status string

const (
	// StatusHasComparison 已选出一个比较
	StatusHasComparison Status = "has_comparison"
	// StatusPoolExhausted 当前模型对的题池已空，但还有后续模型对
	StatusPoolExhausted Status = "pool_exhausted_more_pairs"
	// StatusAllComplete 全部模型对都已比较完成
	StatusAllComplete Status = "all_complete"
)

var errNoProgress = errors.New("scheduler made no progress")

// Scheduler 比较调度器
type Scheduler struct {
	norm  Normalizer
	intn  func(n int) int
	newID func() string
}

// NewScheduler 创建调度器
func NewScheduler(norm Normalizer) *Scheduler {
	return &Scheduler{
		norm:  norm,
		intn:  rand.IntN,
		newID: uuid.NewString,
	}
}

// Next 返回下一个待投票的比较，全部完成时返回 nil 和 StatusAllComplete
// 会修改 state：淘汰失效题目、推进模型对、记录 Pending
func (s *Scheduler) Next(state *model.ScheduleState, ds *model.Dataset) (*model.Comparison, Status, error) {
	if cmp, ok := s.resume(state, ds); ok {
		return cmp, StatusHasComparison, nil
	}
	state.Pending = nil

	// 题池只减不增，换对次数有限，因此循环有上界
	remainingPairs := len(state.ModelPairs) - state.CurrentPairIndex
	if remainingPairs < 1 {
		remainingPairs = 1
	}
	limit := len(state.QuestionPool) + remainingPairs*(ds.NumRows()+1) + 1

	for step := 0; step < limit; step++ {
		switch s.evaluate(state) {
		case StatusAllComplete:
			return nil, StatusAllComplete, nil
		case StatusPoolExhausted:
			s.advancePair(state, ds)
		case StatusHasComparison:
			if cmp := s.pick(state, ds); cmp != nil {
				state.Pending = cmp
				return cmp, StatusHasComparison, nil
			}
		}
	}
	return nil, "", errNoProgress
}

// evaluate 根据题池和模型对下标判断当前所处状态
func (s *Scheduler) evaluate(state *model.ScheduleState) Status {
	if len(state.QuestionPool) > 0 {
		return StatusHasComparison
	}
	if state.CurrentPairIndex < len(state.ModelPairs)-1 {
		return StatusPoolExhausted
	}
	return StatusAllComplete
}

// pick 从题池随机选题并按当前模型对复核，失效时移出题池并返回 nil
func (s *Scheduler) pick(state *model.ScheduleState, ds *model.Dataset) *model.Comparison {
	pair, ok := state.CurrentPair()
	if !ok {
		state.QuestionPool = state.QuestionPool[:0]
		return nil
	}

	idx := state.QuestionPool[s.intn(len(state.QuestionPool))]
	if !s.norm.RowValid(ds, idx, pair.A(), pair.B()) {
		state.RemoveFromPool(idx)
		return nil
	}

	return &model.Comparison{
		ID:          s.newID(),
		QuestionIdx: idx,
		PairIndex:   state.CurrentPairIndex,
		ModelA:      pair.A(),
		ModelB:      pair.B(),
	}
}

// advancePair 切换到下一个模型对并用全部有效行重新填充题池
func (s *Scheduler) advancePair(state *model.ScheduleState, ds *model.Dataset) {
	if pair, ok := state.CurrentPair(); ok {
		state.ModelPairsCompleted = append(state.ModelPairsCompleted, pair)
	}
	state.CurrentPairIndex++
	state.QuestionPool = s.norm.ValidRowIndices(ds)
}

// resume 已下发但未投票的比较仍然有效时原样返回
func (s *Scheduler) resume(state *model.ScheduleState, ds *model.Dataset) (*model.Comparison, bool) {
	p := state.Pending
	if p == nil || p.PairIndex != state.CurrentPairIndex || !state.InPool(p.QuestionIdx) {
		return nil, false
	}
	pair, ok := state.CurrentPair()
	if !ok || pair.A() != p.ModelA || pair.B() != p.ModelB {
		return nil, false
	}
	if !s.norm.RowValid(ds, p.QuestionIdx, p.ModelA, p.ModelB) {
		return nil, false
	}
	return p, true
}

// IsComplete 题池为空且已处于最后一个模型对
func IsComplete(state *model.ScheduleState) bool {
	return len(state.QuestionPool) == 0 && state.CurrentPairIndex >= len(state.ModelPairs)-1
}

// Progress 已完成比较数占全部比较数的比例，分母为 0 时返回 0
func (s *Scheduler) Progress(state *model.ScheduleState, ds *model.Dataset) float64 {
	total := len(state.ModelPairs) * len(s.norm.ValidRowIndices(ds))
	if total == 0 {
		return 0
	}
	p := float64(state.ComparisonsMade) / float64(total)
	if p > 1 {
		return 1
	}
	return p
}
