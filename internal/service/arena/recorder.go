package arena

import (
	"fmt"
	"time"

	"github.com/ashwinyue/next-arena/internal/model"
)

// Choice 投票选项
type Choice string

const (
	ChoiceLeft  Choice = "left"
	ChoiceRight Choice = "right"
	ChoiceTie   Choice = "tie"
)

// ParseChoice 解析投票选项
func ParseChoice(s string) (Choice, error) {
	switch c := Choice(s); c {
	case ChoiceLeft, ChoiceRight, ChoiceTie:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidChoice, s)
	}
}

// RecordVote 对 state 上待投票的比较记一票
// comparisonID 与 state.Pending 不一致时返回 ErrStaleComparison，state 不变
func RecordVote(state *model.ScheduleState, comparisonID string, choice Choice, now time.Time) (*model.VoteRecord, error) {
	if _, err := ParseChoice(string(choice)); err != nil {
		return nil, err
	}
	pending := state.Pending
	if pending == nil || comparisonID == "" || pending.ID != comparisonID {
		return nil, ErrStaleComparison
	}
	if pending.PairIndex != state.CurrentPairIndex {
		return nil, ErrStaleComparison
	}

	winner := model.TieWinner
	switch choice {
	case ChoiceLeft:
		winner = pending.ModelA
	case ChoiceRight:
		winner = pending.ModelB
	}

	if winner != model.TieWinner {
		if state.Results == nil {
			state.Results = make(map[string]int)
		}
		state.Results[winner]++
	}

	record := model.VoteRecord{
		Timestamp:   now,
		QuestionIdx: pending.QuestionIdx,
		ModelA:      pending.ModelA,
		ModelB:      pending.ModelB,
		Winner:      winner,
	}
	state.ResultsLog = append(state.ResultsLog, record)
	state.RemoveFromPool(pending.QuestionIdx)
	state.ComparisonsMade++
	state.Pending = nil

	return &record, nil
}
