// Package layout rebuilds printed rows from positioned text tokens.
package layout

import (
	"math"
	"sort"
	"strings"

	"docextract/internal/domain"
)

// DefaultTolerance is the bucket width, in layout units, used to merge
// baseline jitter within one printed row.
const DefaultTolerance = 0.5

// GroupLines buckets the tokens of one page by y rounded to tolerance and
// returns lines in ascending y, each with tokens in ascending x. Every token
// ends up in exactly one line. The input slice is not modified.
func GroupLines(tokens []domain.TextToken, tolerance float64) []domain.Line {
	if len(tokens) == 0 {
		return nil
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	buckets := make(map[int64][]domain.TextToken)
	keys := make([]int64, 0)
	for _, t := range tokens {
		k := int64(math.Round(t.Y / tolerance))
		if _, ok := buckets[k]; !ok {
			keys = append(keys, k)
		}
		buckets[k] = append(buckets[k], t)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	lines := make([]domain.Line, 0, len(keys))
	for _, k := range keys {
		row := buckets[k]
		sort.SliceStable(row, func(i, j int) bool {
			if row[i].X != row[j].X {
				return row[i].X < row[j].X
			}
			return row[i].Text < row[j].Text
		})
		lines = append(lines, domain.Line{
			Y:      float64(k) * tolerance,
			Tokens: row,
			Text:   joinTokens(row),
		})
	}
	return lines
}

// Flatten returns the tokens of lines in line order.
func Flatten(lines []domain.Line) []domain.TextToken {
	n := 0
	for _, l := range lines {
		n += len(l.Tokens)
	}
	out := make([]domain.TextToken, 0, n)
	for _, l := range lines {
		out = append(out, l.Tokens...)
	}
	return out
}

// GroupDocument returns a copy of doc whose Lines are regrouped page by page.
// When the tokenizer supplied no raw text, it is rebuilt from the lines.
func GroupDocument(doc *domain.Document, tolerance float64) *domain.Document {
	if doc == nil {
		return &domain.Document{}
	}
	out := &domain.Document{
		RawText:   doc.RawText,
		Pages:     doc.Pages,
		PageCount: doc.PageCount,
	}
	if !doc.HasLayout() {
		out.Lines = doc.Lines
	} else {
		for _, page := range doc.Pages {
			out.Lines = append(out.Lines, GroupLines(page, tolerance)...)
		}
	}
	if out.PageCount == 0 {
		out.PageCount = uint32(len(doc.Pages))
	}
	if strings.TrimSpace(out.RawText) == "" && len(out.Lines) > 0 {
		texts := make([]string, 0, len(out.Lines))
		for _, l := range out.Lines {
			texts = append(texts, l.Text)
		}
		out.RawText = strings.Join(texts, "\n")
	}
	return out
}

func joinTokens(row []domain.TextToken) string {
	parts := make([]string, 0, len(row))
	for _, t := range row {
		parts = append(parts, t.Text)
	}
	return strings.Join(parts, " ")
}
