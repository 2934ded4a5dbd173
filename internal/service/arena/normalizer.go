package arena

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ashwinyue/next-arena/internal/model"
)

// DefaultMaxModels 默认最多保留的模型列数
const DefaultMaxModels = 3

// DefaultMinWords 默认问题至少需要的词数
const DefaultMinWords = 2

// Normalizer 数据集规范化与有效行判定
type Normalizer struct {
	MaxModels int
	MinWords  int
}

// NewNormalizer 创建规范化器，非正数参数使用默认值
func NewNormalizer(maxModels, minWords int) Normalizer {
	if maxModels <= 0 {
		maxModels = DefaultMaxModels
	}
	if minWords <= 0 {
		minWords = DefaultMinWords
	}
	return Normalizer{MaxModels: maxModels, MinWords: minWords}
}

// Normalize 截断多余列、规范表头，并要求至少两个模型列和一条有效行
func (n Normalizer) Normalize(ds *model.Dataset) (*model.Dataset, error) {
	if ds == nil || len(ds.Columns) < 3 {
		return nil, fmt.Errorf("%w: need a question column and at least two model columns, an arena compares two models at minimum", ErrInvalidDataset)
	}

	width := len(ds.Columns)
	if width > n.MaxModels+1 {
		width = n.MaxModels + 1
	}

	out := &model.Dataset{
		Columns: make([]string, width),
		Rows:    make([][]*string, len(ds.Rows)),
	}

	seen := make(map[string]bool, width)
	for i := 0; i < width; i++ {
		name := normalizeHeader(ds.Columns[i])
		if i > 0 {
			if name == "" {
				return nil, fmt.Errorf("%w: model column %d has no name", ErrInvalidDataset, i)
			}
			if name == out.Columns[0] {
				return nil, fmt.Errorf("%w: model column %q has the same name as the question column", ErrInvalidDataset, name)
			}
			if seen[name] {
				return nil, fmt.Errorf("%w: duplicate model column %q", ErrInvalidDataset, name)
			}
			seen[name] = true
		}
		out.Columns[i] = name
	}

	for r, row := range ds.Rows {
		cells := make([]*string, width)
		for c := 0; c < width && c < len(row); c++ {
			if row[c] != nil {
				v := *row[c]
				cells[c] = &v
			}
		}
		out.Rows[r] = cells
	}

	if len(n.ValidRowIndices(out)) == 0 {
		return nil, fmt.Errorf("%w: no row has a question and every response", ErrInvalidDataset)
	}
	return out, nil
}

// ValidRowIndices 返回全部有效行下标（升序）
func (n Normalizer) ValidRowIndices(ds *model.Dataset) []int {
	models := ds.Models()
	indices := make([]int, 0, ds.NumRows())
	for i := 0; i < ds.NumRows(); i++ {
		if n.RowValid(ds, i, models...) {
			indices = append(indices, i)
		}
	}
	return indices
}

// RowValid 判定第 i 行对给定模型是否可比较：问题词数足够且这些模型的回答都存在
func (n Normalizer) RowValid(ds *model.Dataset, i int, models ...string) bool {
	if !n.QuestionValid(ds.Question(i)) {
		return false
	}
	for _, m := range models {
		if _, ok := ds.Response(i, m); !ok {
			return false
		}
	}
	return true
}

// QuestionValid 问题按空白切分后词数达到下限
func (n Normalizer) QuestionValid(question string) bool {
	return len(strings.Fields(question)) >= n.MinWords
}

func normalizeHeader(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}
