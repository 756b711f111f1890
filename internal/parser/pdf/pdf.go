// Package pdf tokenizes PDF files with github.com/ledongthuc/pdf.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"

	lpdf "github.com/ledongthuc/pdf"

	"docextract/internal/domain"
	"docextract/internal/layout"
)

// UnitScale converts PDF points to layout units. Sixteen points make one
// unit, which puts a printed row about one unit tall.
const UnitScale = 16.0

const defaultPageHeight = 842.0

// ErrNoPages is returned for a PDF without readable pages.
var ErrNoPages = errors.New("pdf has no pages")

func open(data []byte) (*lpdf.Reader, error) {
	if len(data) == 0 {
		return nil, ErrNoPages
	}
	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	if r.NumPage() == 0 {
		return nil, ErrNoPages
	}
	return r, nil
}

// PositionedTokenizer reports every text run with its page position. Y grows
// downward from the top of the page.
type PositionedTokenizer struct {
	tolerance float64
}

// NewPositionedTokenizer creates a PositionedTokenizer that groups runs into
// RawText rows within tolerance layout units. A non-positive tolerance uses
// layout.DefaultTolerance.
func NewPositionedTokenizer(tolerance float64) *PositionedTokenizer {
	if tolerance <= 0 {
		tolerance = layout.DefaultTolerance
	}
	return &PositionedTokenizer{tolerance: tolerance}
}

// Tolerance returns the row grouping tolerance in layout units.
func (t *PositionedTokenizer) Tolerance() float64 { return t.tolerance }

func (t *PositionedTokenizer) Tokenize(data []byte, _ string) (*domain.Document, error) {
	r, err := open(data)
	if err != nil {
		return nil, err
	}
	doc := &domain.Document{PageCount: uint32(r.NumPage())}
	var text []string
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			doc.Pages = append(doc.Pages, nil)
			continue
		}
		height := pageHeight(p)
		var tokens []domain.TextToken
		for _, run := range mergeRuns(p.Content().Text) {
			tokens = append(tokens, domain.TextToken{
				Page:  uint32(i),
				X:     run.X / UnitScale,
				Y:     (height - run.Y) / UnitScale,
				Width: run.W / UnitScale,
				Text:  run.S,
			})
		}
		doc.Pages = append(doc.Pages, tokens)
		for _, line := range layout.GroupLines(tokens, t.tolerance) {
			text = append(text, line.Text)
		}
	}
	doc.RawText = strings.Join(text, "\n")
	return doc, nil
}

// PlainTokenizer reports the text row by row, without positions.
type PlainTokenizer struct{}

// NewPlainTokenizer creates a PlainTokenizer.
func NewPlainTokenizer() *PlainTokenizer {
	return &PlainTokenizer{}
}

func (t *PlainTokenizer) Tokenize(data []byte, _ string) (*domain.Document, error) {
	r, err := open(data)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("read page %d: %w", i, err)
		}
		for _, row := range rows {
			runs := mergeRuns(row.Content)
			parts := make([]string, 0, len(runs))
			for _, run := range runs {
				parts = append(parts, run.S)
			}
			if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
				sb.WriteString(line)
				sb.WriteString("\n")
			}
		}
	}
	return &domain.Document{RawText: sb.String(), PageCount: uint32(r.NumPage())}, nil
}

// mergeRuns joins glyphs printed next to each other on the same baseline into
// one run. Whitespace glyphs end a run.
func mergeRuns(glyphs []lpdf.Text) []lpdf.Text {
	var out []lpdf.Text
	var cur *lpdf.Text
	flush := func() {
		if cur != nil && strings.TrimSpace(cur.S) != "" {
			cur.S = strings.TrimSpace(cur.S)
			out = append(out, *cur)
		}
		cur = nil
	}
	for _, g := range glyphs {
		if strings.TrimSpace(g.S) == "" {
			flush()
			continue
		}
		if cur != nil && adjacent(*cur, g) {
			cur.S += g.S
			cur.W = g.X + g.W - cur.X
			continue
		}
		flush()
		g := g
		cur = &g
	}
	flush()
	return out
}

func adjacent(run, g lpdf.Text) bool {
	size := math.Max(g.FontSize, 1)
	if math.Abs(run.Y-g.Y) > size*0.3 {
		return false
	}
	gap := g.X - (run.X + run.W)
	return gap > -size*0.5 && gap < size*0.3
}

// pageHeight reads the MediaBox, which a page may inherit from its parents.
func pageHeight(p lpdf.Page) float64 {
	v := p.V
	for depth := 0; depth < 8 && !v.IsNull(); depth++ {
		if box := v.Key("MediaBox"); box.Len() == 4 {
			if h := box.Index(3).Float64() - box.Index(1).Float64(); h > 0 {
				return h
			}
		}
		v = v.Key("Parent")
	}
	return defaultPageHeight
}
