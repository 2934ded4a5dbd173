// Package export 生成项目结果的汇总表和明细表（CSV / XLSX）
package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ashwinyue/next-arena/internal/model"
	"github.com/ashwinyue/next-arena/internal/service/arena"
)

// ErrUnsupportedFormat 不支持的导出格式
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format 导出格式
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat 解析导出格式，空字符串视为 CSV
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// ContentType MIME 类型
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Table 导出表，单元格为 string、int、float64 或 nil
type Table struct {
	Sheet  string
	Header []string
	Rows   [][]interface{}
}

// Filename 导出文件名
func Filename(prefix, projectName string, f Format) string {
	return fmt.Sprintf("%s_%s.%s", prefix, projectName, f)
}

// Summary 每个参与者一行：各模型胜场、胜率（保留一位小数）和决胜票总数
func Summary(data *arena.ExportSet) *Table {
	t := &Table{Sheet: "Summary"}
	if data.IncludeUploader {
		t.Header = append(t.Header, "Uploaded By")
	}
	t.Header = append(t.Header, "User")
	for _, m := range data.Models {
		t.Header = append(t.Header, m+" Score")
	}
	for _, m := range data.Models {
		t.Header = append(t.Header, m+" Percentage")
	}
	t.Header = append(t.Header, "Total Comparisons")

	for _, p := range data.Participants {
		summary := arena.AggregateSummary(&model.ScheduleState{Models: data.Models, Results: p.State.Results})

		var row []interface{}
		if data.IncludeUploader {
			row = append(row, data.UploadedBy)
		}
		row = append(row, p.DisplayName)
		for _, s := range summary.Scores {
			row = append(row, s.Wins)
		}
		for _, s := range summary.Scores {
			row = append(row, math.Round(s.Percentage*10)/10)
		}
		row = append(row, summary.Total)
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Detailed 每条投票一行，附带问题和两侧回答原文
func Detailed(data *arena.ExportSet) *Table {
	t := &Table{Sheet: "Detailed"}
	if data.IncludeUploader {
		t.Header = append(t.Header, "Uploaded By")
	}
	t.Header = append(t.Header,
		"User", "Question Index", "Question",
		"Model A", "Model A Response", "Model B", "Model B Response", "Winner",
	)

	for _, p := range data.Participants {
		for _, rec := range p.State.ResultsLog {
			var row []interface{}
			if data.IncludeUploader {
				row = append(row, data.UploadedBy)
			}
			row = append(row,
				p.DisplayName,
				rec.QuestionIdx,
				cell(data.Dataset.Cell(rec.QuestionIdx, 0)),
				rec.ModelA,
				cell(data.Dataset.Response(rec.QuestionIdx, rec.ModelA)),
				rec.ModelB,
				cell(data.Dataset.Response(rec.QuestionIdx, rec.ModelB)),
				rec.Winner,
			)
			t.Rows = append(t.Rows, row)
		}
	}
	return t
}

func cell(v string, ok bool) interface{} {
	if !ok {
		return nil
	}
	return v
}

// Write 按格式写出表格
func Write(w io.Writer, t *Table, f Format) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, t)
	case FormatXLSX:
		return WriteXLSX(w, t)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

// WriteCSV 写出 CSV：非数值字段一律加引号，数值字段不加，缺失值为空
func WriteCSV(w io.Writer, t *Table) error {
	bw := bufio.NewWriter(w)
	header := make([]interface{}, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := writeCSVRow(bw, header); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := writeCSVRow(bw, row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeCSVRow(w *bufio.Writer, row []interface{}) error {
	for i, v := range row {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(formatCSVField(v)); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

func formatCSVField(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int:
		return strconv.Itoa(x)
	case float64:
		s := strconv.FormatFloat(x, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case string:
		return `"` + strings.ReplaceAll(x, `"`, `""`) + `"`
	default:
		return `"` + strings.ReplaceAll(fmt.Sprint(x), `"`, `""`) + `"`
	}
}

// WriteXLSX 写出单工作表的 XLSX
func WriteXLSX(w io.Writer, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := t.Sheet
	if sheet == "" {
		sheet = "Sheet1"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}

	header := make([]interface{}, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	for i, row := range t.Rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing XLSX: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, values []interface{}) error {
	cellName, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cellName, &values); err != nil {
		return fmt.Errorf("writing row %d: %w", rowNum, err)
	}
	return nil
}
