package port

import "docextract/internal/domain"

// Tokenizer turns document bytes into raw text and, optionally, positioned
// tokens. Implementations are synchronous and local. A tokenizer that only
// recovers text leaves Document.Pages empty.
type Tokenizer interface {
	Tokenize(data []byte, contentType string) (*domain.Document, error)
}

// TokenizerFunc adapts a plain function to Tokenizer.
type TokenizerFunc func(data []byte, contentType string) (*domain.Document, error)

// Tokenize calls f.
func (f TokenizerFunc) Tokenize(data []byte, contentType string) (*domain.Document, error) {
	return f(data, contentType)
}
