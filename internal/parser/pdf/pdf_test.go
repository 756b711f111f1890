package pdf_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docextract/internal/domain"
	"docextract/internal/parser/pdf"
)

func readFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/two_rows.pdf")
	require.NoError(t, err)
	return data
}

func TestTokenizers_RejectEmptyInput(t *testing.T) {
	_, err := pdf.NewPositionedTokenizer(0).Tokenize(nil, "application/pdf")
	assert.ErrorIs(t, err, pdf.ErrNoPages)

	_, err = pdf.NewPlainTokenizer().Tokenize([]byte{}, "application/pdf")
	assert.ErrorIs(t, err, pdf.ErrNoPages)
}

func TestTokenizers_RejectNonPDF(t *testing.T) {
	data := []byte("this is not a pdf file at all, just some plain text")

	_, err := pdf.NewPositionedTokenizer(0).Tokenize(data, "application/pdf")
	require.Error(t, err)

	_, err = pdf.NewPlainTokenizer().Tokenize(data, "application/pdf")
	require.Error(t, err)
}

func TestPositionedTokenizer_Tokens(t *testing.T) {
	doc, err := pdf.NewPositionedTokenizer(0).Tokenize(readFixture(t), "application/pdf")
	require.NoError(t, err)

	require.Equal(t, uint32(1), doc.PageCount)
	require.Len(t, doc.Pages, 1)

	// The page takes its 792pt MediaBox from the Pages node.
	want := []domain.TextToken{
		{Page: 1, X: 72 / pdf.UnitScale, Y: (792 - 712) / pdf.UnitScale, Width: 42 / pdf.UnitScale, Text: "Invoice"},
		{Page: 1, X: 200 / pdf.UnitScale, Y: (792 - 712) / pdf.UnitScale, Width: 48 / pdf.UnitScale, Text: "12345678"},
		{Page: 1, X: 72 / pdf.UnitScale, Y: (792 - 680) / pdf.UnitScale, Width: 30 / pdf.UnitScale, Text: "Total"},
		{Page: 1, X: 108 / pdf.UnitScale, Y: (792 - 680) / pdf.UnitScale, Width: 18 / pdf.UnitScale, Text: "Due"},
		{Page: 1, X: 200 / pdf.UnitScale, Y: (792 - 676) / pdf.UnitScale, Width: 36 / pdf.UnitScale, Text: "106.00"},
	}
	got := doc.Pages[0]
	require.Len(t, got, len(want))
	for i, w := range want {
		assert.Equal(t, w.Text, got[i].Text)
		assert.Equal(t, w.Page, got[i].Page)
		assert.InDelta(t, w.X, got[i].X, 1e-9, w.Text)
		assert.InDelta(t, w.Y, got[i].Y, 1e-9, w.Text)
		assert.InDelta(t, w.Width, got[i].Width, 1e-9, w.Text)
	}
	assert.Less(t, got[0].Y, got[2].Y, "y grows downward")
}

func TestPositionedTokenizer_RawTextUsesTolerance(t *testing.T) {
	tests := []struct {
		name      string
		tolerance float64
		want      string
	}{
		{"default", 0, "Invoice 12345678\nTotal Due\n106.00"},
		{"wide", 2, "Invoice 12345678\nTotal Due 106.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := pdf.NewPositionedTokenizer(tt.tolerance).Tokenize(readFixture(t), "application/pdf")
			require.NoError(t, err)
			assert.Equal(t, tt.want, doc.RawText)
		})
	}
}

func TestPlainTokenizer_Rows(t *testing.T) {
	doc, err := pdf.NewPlainTokenizer().Tokenize(readFixture(t), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, uint32(1), doc.PageCount)
	assert.Empty(t, doc.Pages)
	assert.Equal(t, "Invoice 12345678\nTotal Due\n106.00\n", doc.RawText)
}
