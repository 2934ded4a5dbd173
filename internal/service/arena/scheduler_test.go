package arena

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/ashwinyue/next-arena/internal/model"
	"github.com/ashwinyue/next-arena/internal/testutil"
)

// newTestScheduler 返回总是选择题池第一个题目的调度器
func newTestScheduler() *Scheduler {
	s := NewScheduler(NewNormalizer(3, 2))
	s.intn = func(n int) int { return 0 }
	seq := 0
	s.newID = func() string {
		seq++
		return fmt.Sprintf("cmp-%d", seq)
	}
	return s
}

func newState(t *testing.T, ds *model.Dataset) (*model.ScheduleState, *model.Dataset) {
	t.Helper()
	n := NewNormalizer(3, 2)
	normalized, err := n.Normalize(ds)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	return n.CreateBaseline(normalized), normalized
}

func TestScheduler_TwoModelScenario(t *testing.T) {
	state, ds := newState(t, testutil.TwoModelDataset())

	if want := []model.ModelPair{{"A", "B"}}; !reflect.DeepEqual(state.ModelPairs, want) {
		t.Fatalf("ModelPairs = %v, want %v", state.ModelPairs, want)
	}
	if len(state.QuestionPool) != 2 {
		t.Fatalf("QuestionPool = %v, want 2 entries", state.QuestionPool)
	}

	s := newTestScheduler()
	served := map[int]bool{}
	for i := 0; i < 2; i++ {
		cmp, status, err := s.Next(state, ds)
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if status != StatusHasComparison || cmp == nil {
			t.Fatalf("Next() status = %s, want has_comparison", status)
		}
		if cmp.ModelA != "A" || cmp.ModelB != "B" {
			t.Errorf("comparison models = %s/%s, want A/B", cmp.ModelA, cmp.ModelB)
		}
		served[cmp.QuestionIdx] = true
		if _, err := RecordVote(state, cmp.ID, ChoiceLeft, time.Now()); err != nil {
			t.Fatalf("RecordVote() error = %v", err)
		}
	}

	if !served[0] || !served[2] {
		t.Errorf("served questions = %v, want 0 and 2", served)
	}
	if !IsComplete(state) {
		t.Error("IsComplete() = false after voting every comparison")
	}

	cmp, status, err := s.Next(state, ds)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if status != StatusAllComplete || cmp != nil {
		t.Errorf("Next() = %v, %s, want nil, all_complete", cmp, status)
	}
}

func TestScheduler_AdvancesPairs(t *testing.T) {
	state, ds := newState(t, testutil.ThreeModelDataset())
	s := newTestScheduler()

	var pairsSeen []int
	total := 0
	for {
		cmp, status, err := s.Next(state, ds)
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if status == StatusAllComplete {
			break
		}
		if len(pairsSeen) == 0 || pairsSeen[len(pairsSeen)-1] != cmp.PairIndex {
			pairsSeen = append(pairsSeen, cmp.PairIndex)
		}
		if _, err := RecordVote(state, cmp.ID, ChoiceTie, time.Now()); err != nil {
			t.Fatalf("RecordVote() error = %v", err)
		}
		total++
		if total > 100 {
			t.Fatal("scheduler did not terminate")
		}
	}

	if total != 12 {
		t.Errorf("comparisons = %d, want 12", total)
	}
	if want := []int{0, 1, 2}; !reflect.DeepEqual(pairsSeen, want) {
		t.Errorf("pair order = %v, want %v", pairsSeen, want)
	}
	if state.CurrentPairIndex != 2 {
		t.Errorf("CurrentPairIndex = %d, want 2", state.CurrentPairIndex)
	}
	if want := state.ModelPairs[:2]; !reflect.DeepEqual(state.ModelPairsCompleted, want) {
		t.Errorf("ModelPairsCompleted = %v, want %v", state.ModelPairsCompleted, want)
	}
	if state.ComparisonsMade != len(state.ResultsLog) {
		t.Errorf("ComparisonsMade = %d, len(ResultsLog) = %d", state.ComparisonsMade, len(state.ResultsLog))
	}
	if got := s.Progress(state, ds); got != 1 {
		t.Errorf("Progress() = %v, want 1", got)
	}
}

func TestScheduler_EvictsRowInvalidForCurrentPair(t *testing.T) {
	ds := testutil.NewDataset([]string{"q", "A", "B"},
		[]string{"first valid question", "a0", testutil.Missing},
		[]string{"second valid question", "a1", "b1"},
	)
	state := &model.ScheduleState{
		Models:       []string{"A", "B"},
		QuestionPool: []int{0, 1},
		ModelPairs:   []model.ModelPair{{"A", "B"}},
		Results:      map[string]int{},
	}

	cmp, status, err := newTestScheduler().Next(state, ds)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if status != StatusHasComparison || cmp.QuestionIdx != 1 {
		t.Fatalf("Next() = %+v, %s, want question 1", cmp, status)
	}
	if want := []int{1}; !reflect.DeepEqual(state.QuestionPool, want) {
		t.Errorf("QuestionPool = %v, want %v", state.QuestionPool, want)
	}
}

func TestScheduler_EvictsEverythingThenAdvances(t *testing.T) {
	ds := testutil.NewDataset([]string{"q", "A", "B", "C"},
		[]string{"valid question text", "a", testutil.Missing, "c"},
	)
	state := &model.ScheduleState{
		Models:       []string{"A", "B", "C"},
		QuestionPool: []int{0},
		ModelPairs:   []model.ModelPair{{"A", "B"}, {"A", "C"}},
		Results:      map[string]int{},
	}

	cmp, status, err := newTestScheduler().Next(state, ds)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	// 新的模型对用全部有效行重新填充，该行缺少 B，因此题池为空
	if status != StatusAllComplete || cmp != nil {
		t.Errorf("Next() = %+v, %s, want all_complete", cmp, status)
	}
	if state.CurrentPairIndex != 1 {
		t.Errorf("CurrentPairIndex = %d, want 1", state.CurrentPairIndex)
	}
}

func TestScheduler_ResumesPending(t *testing.T) {
	state, ds := newState(t, testutil.ThreeModelDataset())
	s := newTestScheduler()

	first, _, err := s.Next(state, ds)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	s.intn = func(n int) int { return n - 1 }
	second, _, err := s.Next(state, ds)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if *first != *second {
		t.Errorf("Next() = %+v, want resumed %+v", second, first)
	}
}

func TestScheduler_DropsPendingFromOtherPair(t *testing.T) {
	state, ds := newState(t, testutil.ThreeModelDataset())
	state.Pending = &model.Comparison{ID: "old", QuestionIdx: 0, PairIndex: 1, ModelA: "gpt", ModelB: "llama"}

	cmp, _, err := newTestScheduler().Next(state, ds)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if cmp.ID == "old" || cmp.PairIndex != 0 {
		t.Errorf("Next() = %+v, want a fresh comparison for pair 0", cmp)
	}
	if state.Pending == nil || state.Pending.ID != cmp.ID {
		t.Errorf("Pending = %+v, want %+v", state.Pending, cmp)
	}
}

func TestIsComplete(t *testing.T) {
	pairs := []model.ModelPair{{"A", "B"}, {"A", "C"}, {"B", "C"}}
	tests := []struct {
		name  string
		pool  []int
		index int
		want  bool
	}{
		{"pool left on last pair", []int{1}, 2, false},
		{"empty pool on first pair", nil, 0, false},
		{"empty pool on middle pair", []int{}, 1, false},
		{"empty pool on last pair", []int{}, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &model.ScheduleState{ModelPairs: pairs, QuestionPool: tt.pool, CurrentPairIndex: tt.index}
			if got := IsComplete(state); got != tt.want {
				t.Errorf("IsComplete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProgress(t *testing.T) {
	state, ds := newState(t, testutil.TwoModelDataset())
	s := newTestScheduler()

	if got := s.Progress(state, ds); got != 0 {
		t.Errorf("Progress() = %v, want 0", got)
	}
	state.ComparisonsMade = 1
	if got := s.Progress(state, ds); got != 0.5 {
		t.Errorf("Progress() = %v, want 0.5", got)
	}

	empty := &model.ScheduleState{}
	if got := s.Progress(empty, &model.Dataset{}); got != 0 {
		t.Errorf("Progress() with zero denominator = %v, want 0", got)
	}
}
