package layout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docextract/internal/domain"
	"docextract/internal/layout"
)

func tok(x, y float64, text string) domain.TextToken {
	return domain.TextToken{Page: 1, X: x, Y: y, Width: 1, Text: text}
}

func TestGroupLines_Empty(t *testing.T) {
	assert.Empty(t, layout.GroupLines(nil, 0.5))
	assert.Empty(t, layout.GroupLines([]domain.TextToken{}, 0.5))
}

func TestGroupLines_SingleToken(t *testing.T) {
	lines := layout.GroupLines([]domain.TextToken{tok(3, 2, "x")}, 0.5)
	require.Len(t, lines, 1)
	assert.Equal(t, "x", lines[0].Text)
	assert.Len(t, lines[0].Tokens, 1)
}

func TestGroupLines_OrdersRowsAndColumns(t *testing.T) {
	tokens := []domain.TextToken{
		tok(10, 5.1, "销售方"),
		tok(2, 1.0, "发票号码："),
		tok(8, 1.1, "12345678"),
		tok(2, 5.0, "购买方"),
		tok(5, 3.0, "开票日期"),
	}

	lines := layout.GroupLines(tokens, 0.5)

	require.Len(t, lines, 3)
	assert.Equal(t, "发票号码： 12345678", lines[0].Text)
	assert.Equal(t, "开票日期", lines[1].Text)
	assert.Equal(t, "购买方 销售方", lines[2].Text)
	assert.Less(t, lines[0].Y, lines[1].Y)
	assert.Less(t, lines[1].Y, lines[2].Y)
	assert.Equal(t, "发票号码：", tokens[1].Text, "input must not be reordered")
}

func TestGroupLines_SeparatesAdjacentRows(t *testing.T) {
	tokens := []domain.TextToken{tok(1, 1.0, "a"), tok(1, 1.6, "b")}
	lines := layout.GroupLines(tokens, 0.5)
	assert.Len(t, lines, 2)
}

func TestGroupLines_KeepsEveryToken(t *testing.T) {
	tokens := []domain.TextToken{tok(1, 1, " "), tok(2, 1, ""), tok(1, 9, "z")}
	lines := layout.GroupLines(tokens, 0.5)
	assert.Len(t, layout.Flatten(lines), len(tokens))
}

func TestGroupLines_Idempotent(t *testing.T) {
	tokens := []domain.TextToken{
		tok(7, 2.2, "¥1000.00"),
		tok(1, 2.1, "合计"),
		tok(9, 2.3, "¥130.00"),
		tok(1, 0.4, "电子发票（增值税专用发票）"),
		tok(4, 6.7, "价税合计"),
		tok(4, 6.7, "（小写）"),
	}

	first := layout.GroupLines(tokens, 0.5)
	second := layout.GroupLines(layout.Flatten(first), 0.5)

	assert.Equal(t, first, second)
}

func TestGroupLines_Deterministic(t *testing.T) {
	a := []domain.TextToken{tok(1, 1, "a"), tok(2, 1, "b"), tok(1, 3, "c")}
	b := []domain.TextToken{tok(1, 3, "c"), tok(2, 1, "b"), tok(1, 1, "a")}
	assert.Equal(t, layout.GroupLines(a, 0.5), layout.GroupLines(b, 0.5))
}

func TestGroupDocument_RebuildsRawText(t *testing.T) {
	doc := &domain.Document{
		Pages: [][]domain.TextToken{{tok(1, 1, "合同编号："), tok(6, 1, "HT-001"), tok(1, 2, "甲方：北京示例科技有限公司")}},
	}

	out := layout.GroupDocument(doc, 0.5)

	assert.Equal(t, "合同编号： HT-001\n甲方：北京示例科技有限公司", out.RawText)
	assert.Equal(t, uint32(1), out.PageCount)
	assert.Len(t, out.Lines, 2)
	assert.Empty(t, doc.Lines, "source document is not mutated")
}

func TestGroupDocument_TextOnly(t *testing.T) {
	doc := &domain.Document{RawText: "发票号码：12345678"}
	out := layout.GroupDocument(doc, 0.5)
	assert.Equal(t, doc.RawText, out.RawText)
	assert.Empty(t, out.Lines)
}
