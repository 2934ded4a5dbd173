// Package dataset 解析上传的问答表（CSV / XLSX）
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ashwinyue/next-arena/internal/model"
)

var (
	// ErrUnsupportedFormat 不支持的文件格式
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrEmptyFile 文件中没有表头
	ErrEmptyFile = errors.New("file has no header row")
)

// naTokens 读入时视为缺失的单元格取值
var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// SupportedFormats 支持的扩展名
func SupportedFormats() []string {
	return []string{"csv", "xlsx"}
}

// Format 根据文件名判断格式
func Format(filename string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	for _, f := range SupportedFormats() {
		if ext == f {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
}

// Parse 按文件扩展名解析上传内容，第一行为表头
func Parse(filename string, r io.Reader) (*model.Dataset, error) {
	format, err := Format(filename)
	if err != nil {
		return nil, err
	}

	var records [][]string
	switch format {
	case "csv":
		records, err = readCSV(r)
	case "xlsx":
		records, err = readXLSX(r)
	}
	if err != nil {
		return nil, err
	}
	return fromRecords(records)
}

func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	return records, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening XLSX: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// fromRecords 第一条记录为表头，其余为数据行；缺失单元格与 NA 取值置为 nil
func fromRecords(records [][]string) (*model.Dataset, error) {
	for len(records) > 0 && blank(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	header := records[0]
	ds := &model.Dataset{
		Columns: append([]string(nil), header...),
		Rows:    make([][]*string, 0, len(records)-1),
	}
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		row := make([]*string, len(header))
		for i := 0; i < len(header) && i < len(rec); i++ {
			if _, na := naTokens[strings.TrimSpace(rec[i])]; na {
				continue
			}
			v := rec[i]
			row[i] = &v
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
