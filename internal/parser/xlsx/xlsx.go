// Package xlsx tokenizes spreadsheet uploads with excelize.
package xlsx

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"docextract/internal/domain"
)

// ErrNoRows is returned for a workbook without any non-empty cell.
var ErrNoRows = errors.New("spreadsheet has no rows")

// headerLabels rename common header cells to the labels the contract
// profile looks for. First match wins.
var headerLabels = []struct {
	keywords []string
	label    string
}{
	{[]string{"合同编号", "合同号", "编号"}, "合同编号"},
	{[]string{"合同名称", "名称", "标题"}, "合同名称"},
	{[]string{"甲方", "委托方"}, "甲方"},
	{[]string{"乙方", "受托方"}, "乙方"},
	{[]string{"金额", "价款", "总价"}, "合同金额"},
	{[]string{"签订日期", "签署日期", "签约日期"}, "签订日期"},
}

// Tokenizer flattens a workbook into text. The first row of the first sheet
// is read as a header and paired with the first data row as "label：value"
// lines; every row then follows as space-joined cells.
type Tokenizer struct{}

// NewTokenizer creates a Tokenizer.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

func (t *Tokenizer) Tokenize(data []byte, _ string) (*domain.Document, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	var lines []string
	for i, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		rows = nonEmpty(rows)
		if i == 0 && len(rows) >= 2 {
			lines = append(lines, headerPairs(rows[0], rows[1])...)
		}
		for _, row := range rows {
			lines = append(lines, strings.Join(trimCells(row), " "))
		}
	}
	if len(lines) == 0 {
		return nil, ErrNoRows
	}
	return &domain.Document{RawText: strings.Join(lines, "\n"), PageCount: uint32(len(sheets))}, nil
}

func headerPairs(header, values []string) []string {
	var out []string
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" || i >= len(values) || strings.TrimSpace(values[i]) == "" {
			continue
		}
		out = append(out, labelFor(h)+"："+strings.TrimSpace(values[i]))
	}
	return out
}

func labelFor(header string) string {
	for _, hl := range headerLabels {
		for _, kw := range hl.keywords {
			if strings.Contains(header, kw) {
				return hl.label
			}
		}
	}
	return header
}

func trimCells(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func nonEmpty(rows [][]string) [][]string {
	out := rows[:0:0]
	for _, r := range rows {
		if len(trimCells(r)) > 0 {
			out = append(out, r)
		}
	}
	return out
}
