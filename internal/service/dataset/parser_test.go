package dataset

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		filename string
		want     string
		wantErr  bool
	}{
		{"answers.csv", "csv", false},
		{"Answers.CSV", "csv", false},
		{"book.xlsx", "xlsx", false},
		{"notes.txt", "", true},
		{"noext", "", true},
	}

	for _, tt := range tests {
		got, err := Format(tt.filename)
		if (err != nil) != tt.wantErr {
			t.Errorf("Format(%q) error = %v, wantErr %v", tt.filename, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("Format(%q) = %q, want %q", tt.filename, got, tt.want)
		}
		if err != nil && !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("Format(%q) error = %v, want ErrUnsupportedFormat", tt.filename, err)
		}
	}
}

func TestParse_CSV(t *testing.T) {
	input := "\xef\xbb\xbfquestion,A,B\n" +
		"\"what is, go\",a0,b0\n" +
		"why channels,a1,NaN\n" +
		",,\n" +
		"short row,a3\n" +
		"multi line,\"line one\nline two\",b4\n"

	ds, err := Parse("upload.csv", strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if want := []string{"question", "A", "B"}; !reflect.DeepEqual(ds.Columns, want) {
		t.Errorf("Columns = %v, want %v", ds.Columns, want)
	}
	if ds.NumRows() != 4 {
		t.Fatalf("NumRows() = %d, want 4", ds.NumRows())
	}
	if q := ds.Question(0); q != "what is, go" {
		t.Errorf("Question(0) = %q", q)
	}
	if _, ok := ds.Response(1, "B"); ok {
		t.Error("NaN cell should be missing")
	}
	if _, ok := ds.Response(2, "B"); ok {
		t.Error("cell past the end of a short row should be missing")
	}
	if v, _ := ds.Response(3, "A"); v != "line one\nline two" {
		t.Errorf("Response(3, A) = %q", v)
	}
}

func TestParse_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"question", "gpt", "claude"},
		{"first question here", "g0", "c0"},
		{"second question here", "g1"},
		{"third question", 42, "N/A"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	ds, err := Parse("book.xlsx", &buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if want := []string{"question", "gpt", "claude"}; !reflect.DeepEqual(ds.Columns, want) {
		t.Errorf("Columns = %v, want %v", ds.Columns, want)
	}
	if ds.NumRows() != 3 {
		t.Fatalf("NumRows() = %d, want 3", ds.NumRows())
	}
	if _, ok := ds.Response(1, "claude"); ok {
		t.Error("missing trailing cell should be nil")
	}
	if v, _ := ds.Response(2, "gpt"); v != "42" {
		t.Errorf("numeric cell = %q, want 42", v)
	}
	if _, ok := ds.Response(2, "claude"); ok {
		t.Error("N/A cell should be missing")
	}
}

func TestParse_Errors(t *testing.T) {
	if _, err := Parse("empty.csv", strings.NewReader("")); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("empty CSV error = %v, want ErrEmptyFile", err)
	}
	if _, err := Parse("blank.csv", strings.NewReader(",,\n , \n")); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("blank CSV error = %v, want ErrEmptyFile", err)
	}
	if _, err := Parse("data.json", strings.NewReader("{}")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("json error = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := Parse("broken.xlsx", strings.NewReader("not a zip")); err == nil {
		t.Error("broken XLSX should fail")
	}
}
