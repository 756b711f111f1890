package parser

import (
	"fmt"

	"docextract/internal/domain"
)

// TokenizeError reports that a named tokenizer could not turn the file into
// a usable document. It matches domain.ErrTokenizeFailure with errors.Is.
type TokenizeError struct {
	Tokenizer string
	Format    domain.FileType
	Err       error
}

func (e *TokenizeError) Error() string {
	return fmt.Sprintf("%s tokenizer failed on %s file: %v", e.Tokenizer, e.Format, e.Err)
}

func (e *TokenizeError) Unwrap() []error {
	return []error{domain.ErrTokenizeFailure, e.Err}
}

// NewTokenizeError creates a TokenizeError. A nil err is reported as an
// empty document.
func NewTokenizeError(tokenizer string, format domain.FileType, err error) *TokenizeError {
	if err == nil {
		err = domain.ErrEmptyDocument
	}
	return &TokenizeError{Tokenizer: tokenizer, Format: format, Err: err}
}
