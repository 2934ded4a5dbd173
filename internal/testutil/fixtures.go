// Package testutil 提供测试辅助工具
package testutil

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ashwinyue/next-arena/internal/model"
)

// Ctx 返回测试用的 context.Background()
func Ctx() context.Context {
	return context.Background()
}

// AssertHelper 提供断言相关的测试辅助
type AssertHelper struct {
	t *testing.T
}

// NewAssertHelper 创建断言辅助器
func NewAssertHelper(t *testing.T) *AssertHelper {
	return &AssertHelper{t: t}
}

// NoError 断言没有错误
func (h *AssertHelper) NoError(err error, msgAndArgs ...interface{}) {
	h.t.Helper()
	if err != nil {
		h.t.Fatalf("Unexpected error: %v %v", err, msgAndArgs)
	}
}

// ErrorIs 断言错误链中包含 target
func (h *AssertHelper) ErrorIs(err, target error, msgAndArgs ...interface{}) {
	h.t.Helper()
	if !errors.Is(err, target) {
		h.t.Fatalf("Expected error %v, got %v %v", target, err, msgAndArgs)
	}
}

// ErrorContains 断言错误包含指定字符串
func (h *AssertHelper) ErrorContains(err error, substr string, msgAndArgs ...interface{}) {
	h.t.Helper()
	if err == nil {
		h.t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), substr) {
		h.t.Fatalf("Error %q does not contain %q %v", err.Error(), substr, msgAndArgs)
	}
}

// Equal 断言相等
func (h *AssertHelper) Equal(expected, actual interface{}, msgAndArgs ...interface{}) {
	h.t.Helper()
	if expected != actual {
		h.t.Fatalf("Expected %v, got %v %v", expected, actual, msgAndArgs)
	}
}

// True 断言为真
func (h *AssertHelper) True(condition bool, msgAndArgs ...interface{}) {
	h.t.Helper()
	if !condition {
		h.t.Fatalf("Expected true, got false %v", msgAndArgs)
	}
}

// False 断言为假
func (h *AssertHelper) False(condition bool, msgAndArgs ...interface{}) {
	h.t.Helper()
	if condition {
		h.t.Fatalf("Expected false, got true %v", msgAndArgs)
	}
}

// ========== 数据集构造 ==========

// Missing 表示缺失的单元格
const Missing = "\x00missing"

// NewDataset 按表头和行构造数据集，值为 Missing 的单元格置为 nil
func NewDataset(columns []string, rows ...[]string) *model.Dataset {
	ds := &model.Dataset{
		Columns: append([]string(nil), columns...),
		Rows:    make([][]*string, 0, len(rows)),
	}
	for _, row := range rows {
		cells := make([]*string, len(row))
		for i, v := range row {
			if v == Missing {
				continue
			}
			v := v
			cells[i] = &v
		}
		ds.Rows = append(ds.Rows, cells)
	}
	return ds
}

// TwoModelDataset 三行两模型，其中第 1 行缺少 B 的回答
func TwoModelDataset() *model.Dataset {
	return NewDataset([]string{"question", "A", "B"},
		[]string{"what is go", "a0", "b0"},
		[]string{"why use channels", "a1", Missing},
		[]string{"how do interfaces work", "a2", "b2"},
	)
}

// ThreeModelDataset 四行三模型，全部有效
func ThreeModelDataset() *model.Dataset {
	return NewDataset([]string{"question", "gpt", "claude", "llama"},
		[]string{"first question here", "g0", "c0", "l0"},
		[]string{"second question here", "g1", "c1", "l1"},
		[]string{"third question here", "g2", "c2", "l2"},
		[]string{"fourth question here", "g3", "c3", "l3"},
	)
}
