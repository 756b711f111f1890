package domain

import "errors"

var (
	ErrTokenizeFailure     = errors.New("document could not be tokenized")
	ErrEmptyDocument       = errors.New("tokenizer produced no text")
	ErrUnsupportedFormat   = errors.New("unsupported document format")
	ErrFieldNotFound       = errors.New("field not found")
	ErrNormalize           = errors.New("value failed normalization")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrEmptyBatch          = errors.New("batch contains no files")
	ErrBatchTimeout        = errors.New("batch deadline reached before file was processed")
	ErrUnknownProfile      = errors.New("no extraction profile for document kind")
	ErrInvalidDocumentKind = errors.New("invalid document kind")
)
