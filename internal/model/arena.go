// Package model 提供竞技场相关的数据模型
package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// TieWinner 平局时 VoteRecord.Winner 的取值
const TieWinner = "tie"

// Dataset 规范化后的问答表
// 第 0 列为问题，其余列（最多 3 列）为各模型的回答；nil 单元格表示缺失
type Dataset struct {
	Columns []string    `json:"columns"`
	Rows    [][]*string `json:"rows"`
}

// Models 模型名称列表（表头第 1..N 列）
func (d *Dataset) Models() []string {
	if d == nil || len(d.Columns) < 2 {
		return nil
	}
	models := make([]string, len(d.Columns)-1)
	copy(models, d.Columns[1:])
	return models
}

// NumRows 行数
func (d *Dataset) NumRows() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Question 第 i 行的问题文本
func (d *Dataset) Question(i int) string {
	v, _ := d.Cell(i, 0)
	return v
}

// Response 第 i 行中指定模型的回答，第二个返回值为 false 表示缺失
func (d *Dataset) Response(i int, modelName string) (string, bool) {
	col := d.columnIndex(modelName)
	if col < 1 {
		return "", false
	}
	return d.Cell(i, col)
}

// Cell 读取单元格
func (d *Dataset) Cell(row, col int) (string, bool) {
	if d == nil || row < 0 || row >= len(d.Rows) {
		return "", false
	}
	r := d.Rows[row]
	if col < 0 || col >= len(r) || r[col] == nil {
		return "", false
	}
	return *r[col], true
}

func (d *Dataset) columnIndex(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Value 实现 driver.Valuer 接口
func (d Dataset) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan 实现 sql.Scanner 接口
func (d *Dataset) Scan(value interface{}) error {
	return scanJSON(value, d)
}

// ModelPair 一对模型，顺序即比较时的 A / B
type ModelPair [2]string

// A 模型 A
func (p ModelPair) A() string { return p[0] }

// B 模型 B
func (p ModelPair) B() string { return p[1] }

// Key 形如 "A vs B" 的展示键
func (p ModelPair) Key() string { return p[0] + " vs " + p[1] }

// VoteRecord 单次投票记录，只追加
type VoteRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	QuestionIdx int       `json:"question_idx"`
	ModelA      string    `json:"model_a"`
	ModelB      string    `json:"model_b"`
	Winner      string    `json:"winner"` // model_a、model_b 或 "tie"
}

// Comparison 已下发但尚未投票的比较，左侧为 ModelA，右侧为 ModelB
type Comparison struct {
	ID          string `json:"id"`
	QuestionIdx int    `json:"question_idx"`
	PairIndex   int    `json:"pair_index"`
	ModelA      string `json:"model_a"`
	ModelB      string `json:"model_b"`
}

// ScheduleState 进度账本文档（基线或用户副本）
type ScheduleState struct {
	Models              []string       `json:"models"`
	QuestionPool        []int          `json:"question_pool"`
	ModelPairs          []ModelPair    `json:"model_pairs"`
	CurrentPairIndex    int            `json:"current_pair_index"`
	Results             map[string]int `json:"results"`
	SessionID           string         `json:"session_id"`
	ComparisonsMade     int            `json:"comparisons_made"`
	ResultsLog          []VoteRecord   `json:"results_log"`
	ModelPairsCompleted []ModelPair    `json:"model_pairs_completed"`
	Pending             *Comparison    `json:"pending,omitempty"`
}

// CurrentPair 当前比较的模型对
func (s *ScheduleState) CurrentPair() (ModelPair, bool) {
	if s == nil || s.CurrentPairIndex < 0 || s.CurrentPairIndex >= len(s.ModelPairs) {
		return ModelPair{}, false
	}
	return s.ModelPairs[s.CurrentPairIndex], true
}

// InPool 题目是否仍在题池中
func (s *ScheduleState) InPool(questionIdx int) bool {
	for _, idx := range s.QuestionPool {
		if idx == questionIdx {
			return true
		}
	}
	return false
}

// RemoveFromPool 从题池移除题目，不存在时不做任何事
func (s *ScheduleState) RemoveFromPool(questionIdx int) bool {
	for i, idx := range s.QuestionPool {
		if idx == questionIdx {
			s.QuestionPool = append(s.QuestionPool[:i], s.QuestionPool[i+1:]...)
			return true
		}
	}
	return false
}

// Clone 深拷贝，结果与原值不共享任何切片或 map
func (s *ScheduleState) Clone() *ScheduleState {
	if s == nil {
		return nil
	}
	out := &ScheduleState{
		CurrentPairIndex: s.CurrentPairIndex,
		SessionID:        s.SessionID,
		ComparisonsMade:  s.ComparisonsMade,
	}
	if s.Models != nil {
		out.Models = append([]string(nil), s.Models...)
	}
	if s.QuestionPool != nil {
		out.QuestionPool = append([]int(nil), s.QuestionPool...)
	}
	if s.ModelPairs != nil {
		out.ModelPairs = append([]ModelPair(nil), s.ModelPairs...)
	}
	if s.ModelPairsCompleted != nil {
		out.ModelPairsCompleted = append([]ModelPair(nil), s.ModelPairsCompleted...)
	}
	if s.ResultsLog != nil {
		out.ResultsLog = append([]VoteRecord(nil), s.ResultsLog...)
	}
	if s.Results != nil {
		out.Results = make(map[string]int, len(s.Results))
		for k, v := range s.Results {
			out.Results[k] = v
		}
	}
	if s.Pending != nil {
		p := *s.Pending
		out.Pending = &p
	}
	return out
}

// Value 实现 driver.Valuer 接口
func (s ScheduleState) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan 实现 sql.Scanner 接口
func (s *ScheduleState) Scan(value interface{}) error {
	return scanJSON(value, s)
}

func scanJSON(value interface{}, dst interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return errors.New("unsupported json column type")
	}
}
