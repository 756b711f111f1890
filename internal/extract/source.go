package extract

import (
	"path/filepath"
	"regexp"
	"strings"

	"docextract/internal/domain"
	"docextract/internal/layout"
	"docextract/internal/numeric"
)

// Source is the read-only view of one document that strategies scan. All text
// is NFKC folded, so full-width digits, colons, parentheses, percent and yen
// signs appear in their ASCII forms.
type Source struct {
	// Text is the folded raw text.
	Text string
	// Lines are the trimmed, non-empty lines of Text in document order.
	Lines []string
	// Rows are the grouped layout lines, page by page. Nil without layout.
	Rows []domain.Line
	// Tokens are the folded positioned tokens in row order. Nil without layout.
	Tokens []domain.TextToken
	// Filename is the base name of the uploaded file.
	Filename string
	// Stem is Filename without its extension.
	Stem string
}

// NewSource groups the document's tokens into lines and folds all text.
// A nil document yields a source that only carries the filename.
func NewSource(doc *domain.Document, filename string, tolerance float64) *Source {
	base := filepath.Base(filename)
	if filename == "" {
		base = ""
	}
	src := &Source{
		Filename: base,
		Stem:     strings.TrimSuffix(base, filepath.Ext(base)),
	}
	if doc == nil {
		return src
	}

	grouped := layout.GroupDocument(doc, tolerance)
	src.Text = numeric.Fold(grouped.RawText)
	src.Lines = splitLines(src.Text)

	if grouped.HasLayout() {
		for _, line := range grouped.Lines {
			row := domain.Line{Y: line.Y, Text: numeric.Fold(line.Text)}
			row.Tokens = make([]domain.TextToken, len(line.Tokens))
			for i, tok := range line.Tokens {
				tok.Text = numeric.Fold(tok.Text)
				row.Tokens[i] = tok
			}
			src.Rows = append(src.Rows, row)
			src.Tokens = append(src.Tokens, row.Tokens...)
		}
	}
	return src
}

// HasLayout reports whether positional strategies can run.
func (s *Source) HasLayout() bool {
	return len(s.Tokens) > 0
}

// Empty reports whether the source has no document body.
func (s *Source) Empty() bool {
	return strings.TrimSpace(s.Text) == "" && !s.HasLayout()
}

// LineSubmatches runs re over each line separately, so a label can never
// pair with a value printed on the next line.
func (s *Source) LineSubmatches(re *regexp.Regexp) [][]string {
	var out [][]string
	for _, line := range s.Lines {
		out = append(out, re.FindAllStringSubmatch(line, -1)...)
	}
	return out
}

// TextSubmatches runs re over the whole folded text, for patterns that
// describe multi-line sections.
func (s *Source) TextSubmatches(re *regexp.Regexp) [][]string {
	return re.FindAllStringSubmatch(s.Text, -1)
}

// Head returns at most n leading lines.
func (s *Source) Head(n int) []string {
	if n > len(s.Lines) {
		n = len(s.Lines)
	}
	return s.Lines[:n]
}

// Window returns lines[from:from+n] clipped to the document.
func (s *Source) Window(from, n int) []string {
	if from < 0 {
		from = 0
	}
	if from >= len(s.Lines) {
		return nil
	}
	to := from + n
	if to > len(s.Lines) {
		to = len(s.Lines)
	}
	return s.Lines[from:to]
}

// LineIndex returns the index of the first line at or after from that
// satisfies pred, or -1.
func (s *Source) LineIndex(from int, pred func(string) bool) int {
	for i := from; i < len(s.Lines); i++ {
		if pred(s.Lines[i]) {
			return i
		}
	}
	return -1
}

// FindTokens returns the tokens whose text satisfies pred, in row order.
func (s *Source) FindTokens(pred func(string) bool) []domain.TextToken {
	var out []domain.TextToken
	for _, tok := range s.Tokens {
		if pred(tok.Text) {
			out = append(out, tok)
		}
	}
	return out
}

// Near returns the tokens on the same page as anchor whose offset from it
// satisfies within. The anchor itself is excluded.
func (s *Source) Near(anchor domain.TextToken, within func(dx, dy float64) bool) []domain.TextToken {
	var out []domain.TextToken
	for _, tok := range s.Tokens {
		if tok.Page != anchor.Page || (tok.X == anchor.X && tok.Y == anchor.Y && tok.Text == anchor.Text) {
			continue
		}
		if within(tok.X-anchor.X, tok.Y-anchor.Y) {
			out = append(out, tok)
		}
	}
	return out
}

func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
