// Package docextract extracts structured fields from Chinese VAT invoices and
// service contracts.
//
// A file goes through a fallback machine: the format's primary tokenizer,
// then its alternate, then a filename-only pass that never fails. Each field
// is filled by the first strategy whose candidate validates, and the result
// records which strategy that was.
package docextract

import (
	"context"
	"fmt"
	"io"
	"log"

	"docextract/internal/config"
	"docextract/internal/domain"
	"docextract/internal/export"
	"docextract/internal/extract"
	"docextract/internal/parser"
	"docextract/internal/service"
	"docextract/internal/validator"
)

type (
	Config            = config.Config
	Document          = domain.Document
	TextToken         = domain.TextToken
	Line              = domain.Line
	DocumentKind      = domain.DocumentKind
	InvoiceSubtype    = domain.InvoiceSubtype
	ExtractedFields   = domain.ExtractedFields
	InvoiceFields     = domain.InvoiceFields
	ContractFields    = domain.ContractFields
	ExtractionQuality = domain.ExtractionQuality
	Provenance        = domain.Provenance
	Outcome           = parser.Outcome
	State             = parser.State
	BatchFile         = service.BatchFile
	BatchItem         = service.BatchItem
	BatchResult       = service.BatchResult
	BatchSummary      = service.BatchSummary
)

const (
	Invoice  = domain.DocumentKindInvoice
	Contract = domain.DocumentKindContract
	Special  = domain.InvoiceSubtypeSpecial
	Ordinary = domain.InvoiceSubtypeOrdinary

	StatePrimary   = parser.StatePrimary
	StateSecondary = parser.StateSecondary
	StateDegraded  = parser.StateDegraded

	QualityFull         = domain.QualityFull
	QualityPartial      = domain.QualityPartial
	QualityFilenameOnly = domain.QualityFilenameOnly
)

// Errors callers may test with errors.Is.
var (
	ErrTokenizeFailure     = domain.ErrTokenizeFailure
	ErrUnsupportedFormat   = domain.ErrUnsupportedFormat
	ErrFileTooLarge        = domain.ErrFileTooLarge
	ErrEmptyBatch          = domain.ErrEmptyBatch
	ErrBatchTimeout        = domain.ErrBatchTimeout
	ErrInvalidDocumentKind = domain.ErrInvalidDocumentKind
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return config.Default()
}

// Engine is the library entry point. It is safe for concurrent use.
type Engine struct {
	cfg          *Config
	engine       *extract.Engine
	orchestrator *parser.Orchestrator
	batch        service.BatchService
}

// New creates an Engine. A nil cfg uses DefaultConfig.
func New(cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	engine := extract.NewEngine(extract.Options{
		LineTolerance: cfg.Extraction.LineTolerance,
		Validators:    validator.NewBuiltinRegistry(validator.Options{MinYear: cfg.Extraction.MinYear}),
	})
	orch := parser.NewOrchestrator(engine, parser.NewDefaultPlanner(parser.TokenizerOptions{LineTolerance: cfg.Extraction.LineTolerance}), cfg.Log.Debug())
	batch := service.NewBatchService(orch, service.BatchConfig{
		Workers:     cfg.Batch.WorkerCount(),
		Timeout:     cfg.Batch.Timeout,
		MaxFileSize: cfg.Extraction.MaxFileSizeBytes(),
	})
	if cfg.Log.Debug() {
		log.Printf("docextract: engine ready (workers=%d, max_file_size=%dMB, line_tolerance=%v)",
			cfg.Batch.WorkerCount(), cfg.Extraction.MaxFileSizeMB, cfg.Extraction.LineTolerance)
	}
	return &Engine{cfg: cfg, engine: engine, orchestrator: orch, batch: batch}, nil
}

// NewFromEnv creates an Engine configured from DOCEXTRACT_* environment
// variables.
func NewFromEnv() (*Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// Extract runs the field cascade over an already tokenized document.
func (e *Engine) Extract(kind DocumentKind, subtype InvoiceSubtype, doc *Document, filename string) (*ExtractedFields, error) {
	return e.engine.Extract(kind, subtype, doc, filename)
}

// ExtractFile tokenizes data and extracts its fields, degrading to the
// filename when no tokenizer can read it. Files over the size limit are
// rejected before tokenizing.
func (e *Engine) ExtractFile(kind DocumentKind, subtype InvoiceSubtype, filename, contentType string, data []byte) (*Outcome, error) {
	if limit := e.cfg.Extraction.MaxFileSizeBytes(); int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", domain.ErrFileTooLarge, filename, len(data), limit)
	}
	return e.orchestrator.Run(parser.Input{
		Kind:        kind,
		Subtype:     subtype,
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
	})
}

// ExtractBatch processes files concurrently and returns one item per file in
// input order.
func (e *Engine) ExtractBatch(ctx context.Context, kind DocumentKind, subtype InvoiceSubtype, files []BatchFile) (*BatchResult, error) {
	return e.batch.Process(ctx, kind, subtype, files)
}

// ExportCSV writes a BOM-prefixed CSV ledger of batch items to w.
func ExportCSV(w io.Writer, kind DocumentKind, items []BatchItem) error {
	return export.WriteCSV(w, kind, items)
}

// ExportXLSX writes batch items as a single-sheet workbook to w.
func ExportXLSX(w io.Writer, kind DocumentKind, items []BatchItem) error {
	return export.WriteXLSX(w, kind, items)
}
