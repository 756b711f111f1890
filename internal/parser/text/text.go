// Package text tokenizes plain-text uploads.
package text

import (
	"bytes"
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"

	"docextract/internal/domain"
)

var (
	// ErrInvalidUTF8 is returned when the bytes are not UTF-8 text.
	ErrInvalidUTF8 = errors.New("text is not valid UTF-8")
	// ErrBinaryContent is returned when decoded text carries replacement
	// characters or control bytes, which plain-text documents never contain.
	ErrBinaryContent = errors.New("text contains binary content")
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// UTF8Tokenizer accepts UTF-8 text, with or without a byte order mark.
type UTF8Tokenizer struct{}

// NewUTF8Tokenizer creates a UTF8Tokenizer.
func NewUTF8Tokenizer() *UTF8Tokenizer {
	return &UTF8Tokenizer{}
}

func (t *UTF8Tokenizer) Tokenize(data []byte, _ string) (*domain.Document, error) {
	data = bytes.TrimPrefix(data, bom)
	if !utf8.Valid(data) {
		return nil, ErrInvalidUTF8
	}
	s := string(data)
	if err := checkPrintable(s); err != nil {
		return nil, err
	}
	return &domain.Document{RawText: s, PageCount: 1}, nil
}

// GB18030Tokenizer decodes text exported by Chinese-locale tools.
type GB18030Tokenizer struct{}

// NewGB18030Tokenizer creates a GB18030Tokenizer.
func NewGB18030Tokenizer() *GB18030Tokenizer {
	return &GB18030Tokenizer{}
}

// Tokenize decodes data as GB18030. The decoder maps invalid sequences to
// U+FFFD rather than failing, so the output is checked afterwards.
func (t *GB18030Tokenizer) Tokenize(data []byte, _ string) (*domain.Document, error) {
	out, err := simplifiedchinese.GB18030.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode gb18030: %w", err)
	}
	s := string(out)
	if err := checkPrintable(s); err != nil {
		return nil, fmt.Errorf("decode gb18030: %w", err)
	}
	return &domain.Document{RawText: s, PageCount: 1}, nil
}

// checkPrintable rejects text holding U+FFFD or control runes other than
// line and tab whitespace.
func checkPrintable(s string) error {
	for i, r := range s {
		switch {
		case r == utf8.RuneError:
			return fmt.Errorf("%w: replacement character at byte %d", ErrBinaryContent, i)
		case r == '\n' || r == '\r' || r == '\t' || r == '\f':
		case unicode.IsControl(r):
			return fmt.Errorf("%w: control character %U at byte %d", ErrBinaryContent, r, i)
		}
	}
	return nil
}
