package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"docextract/internal/domain"
	"docextract/internal/parser"
)

// Extractor runs one file through the fallback machine. It is implemented by
// *parser.Orchestrator.
type Extractor interface {
	Run(in parser.Input) (*parser.Outcome, error)
	Degrade(in parser.Input) (*parser.Outcome, error)
}

// BatchFile is one uploaded file.
type BatchFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// BatchItem is the result for one file, at the file's input position.
// Err is set only for files that were rejected or never processed.
type BatchItem struct {
	ID       uuid.UUID
	Index    int
	Filename string
	Fields   *domain.ExtractedFields
	Quality  domain.ExtractionQuality
	State    parser.State
	Trail    []parser.Transition
	Err      error
}

// BatchSummary counts batch outcomes.
type BatchSummary struct {
	Total           int
	Parsed          int
	Degraded        int
	Rejected        int
	TimedOut        int
	Recommendations []string
}

// BatchResult holds per-file items in input order plus the summary.
type BatchResult struct {
	Items   []BatchItem
	Summary BatchSummary
}

// BatchConfig holds settings for the batch service.
type BatchConfig struct {
	Workers     int
	Timeout     time.Duration
	MaxFileSize int64
}

// BatchService defines the batch extraction contract.
type BatchService interface {
	Process(ctx context.Context, kind domain.DocumentKind, subtype domain.InvoiceSubtype, files []BatchFile) (*BatchResult, error)
}

type batchService struct {
	extractor Extractor
	cfg       BatchConfig
}

// NewBatchService creates a new BatchService implementation.
func NewBatchService(extractor Extractor, cfg BatchConfig) BatchService {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &batchService{extractor: extractor, cfg: cfg}
}

// Process extracts every file on a bounded worker pool. Only an empty batch
// or an unknown document kind fails the call; per-file problems are reported
// on the items. When ctx or the configured timeout expires first, files not
// yet finished are reported with domain.ErrBatchTimeout.
func (s *batchService) Process(ctx context.Context, kind domain.DocumentKind, subtype domain.InvoiceSubtype, files []BatchFile) (*BatchResult, error) {
	if len(files) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidDocumentKind, kind)
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	c := newCollector(len(files))
	var pending []int
	for i, f := range files {
		item := BatchItem{ID: uuid.New(), Index: i, Filename: f.Filename}
		if s.cfg.MaxFileSize > 0 && int64(len(f.Data)) > s.cfg.MaxFileSize {
			item.Err = fmt.Errorf("%w: %s is %d bytes, limit %d", domain.ErrFileTooLarge, f.Filename, len(f.Data), s.cfg.MaxFileSize)
			c.store(i, item)
			continue
		}
		c.reserve(i, item)
		pending = append(pending, i)
	}

	log.Printf("service.BatchService: started %d files (%d rejected, workers=%d)", len(files), len(files)-len(pending), s.cfg.Workers)

	done := make(chan struct{})
	go func() {
		defer close(done)
		g := new(errgroup.Group)
		g.SetLimit(s.cfg.Workers)
		for _, i := range pending {
			if ctx.Err() != nil {
				break
			}
			in := parser.Input{
				Kind:        kind,
				Subtype:     subtype,
				Filename:    files[i].Filename,
				ContentType: files[i].ContentType,
				Data:        files[i].Data,
			}
			g.Go(func() error {
				item := c.get(i)
				out, err := s.extractOne(in)
				if err != nil {
					item.Err = err
				} else {
					item.Fields, item.Quality = out.Fields, out.Fields.Quality
					item.State, item.Trail = out.State, out.Trail
				}
				c.store(i, item)
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		log.Printf("service.BatchService: deadline reached, dropping unfinished files: %v", ctx.Err())
	}

	items := c.close()
	summary := summarize(items)
	log.Printf("service.BatchService: finished in %s (parsed=%d, degraded=%d, rejected=%d, timed_out=%d)",
		time.Since(start).Round(time.Millisecond), summary.Parsed, summary.Degraded, summary.Rejected, summary.TimedOut)
	return &BatchResult{Items: items, Summary: summary}, nil
}

// extractOne runs the fallback machine and turns a panic into a degraded
// result.
func (s *batchService) extractOne(in parser.Input) (out *parser.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("service.BatchService: %s: recovered from panic: %v", in.Filename, r)
			out, err = s.degradeOne(in)
			if out != nil {
				out.Errors = append(out.Errors, fmt.Errorf("extraction panic: %v", r))
			}
		}
	}()
	return s.extractor.Run(in)
}

func (s *batchService) degradeOne(in parser.Input) (out *parser.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("filename extraction panic: %v", r)
		}
	}()
	return s.extractor.Degrade(in)
}

// collector gathers items by index. Once closed it ignores late writes, so
// workers still running after the deadline cannot change the result.
type collector struct {
	mu       sync.Mutex
	closed   bool
	items    []BatchItem
	finished []bool
}

func newCollector(n int) *collector {
	return &collector{items: make([]BatchItem, n), finished: make([]bool, n)}
}

func (c *collector) reserve(i int, item BatchItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[i] = item
}

func (c *collector) get(i int) BatchItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items[i]
}

func (c *collector) store(i int, item BatchItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.items[i] = item
	c.finished[i] = true
}

func (c *collector) close() []BatchItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	out := make([]BatchItem, len(c.items))
	copy(out, c.items)
	for i := range out {
		if !c.finished[i] {
			out[i].Err = domain.ErrBatchTimeout
		}
	}
	return out
}

func summarize(items []BatchItem) BatchSummary {
	s := BatchSummary{Total: len(items)}
	for _, it := range items {
		switch {
		case errors.Is(it.Err, domain.ErrFileTooLarge):
			s.Rejected++
		case errors.Is(it.Err, domain.ErrBatchTimeout):
			s.TimedOut++
		case it.Err != nil || it.Quality == domain.QualityFilenameOnly:
			s.Degraded++
		default:
			s.Parsed++
		}
	}
	if s.Degraded > 0 {
		s.Recommendations = append(s.Recommendations, "建议将解析失败的文档转换为PDF格式后重新上传")
	}
	if s.Rejected > 0 {
		s.Recommendations = append(s.Recommendations, "部分文件超过大小限制，建议压缩或拆分后重新上传")
	}
	if s.TimedOut > 0 {
		s.Recommendations = append(s.Recommendations, "部分文件未在时限内处理完成，建议减少单批文件数量后重试")
	}
	if float64(s.Parsed) < float64(s.Total)*0.8 {
		s.Recommendations = append(s.Recommendations, "解析成功率较低，建议确保文档格式正确且内容清晰")
	}
	return s
}
