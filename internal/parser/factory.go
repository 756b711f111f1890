package parser

import (
	"fmt"
	"sort"

	"docextract/internal/domain"
	"docextract/internal/port"
)

// Built-in tokenizer names.
const (
	TokenizerPDFPositioned = "pdf.positioned"
	TokenizerPDFPlain      = "pdf.plain"
	TokenizerDocxDocconv   = "docx.docconv"
	TokenizerDocxXML       = "docx.xml"
	TokenizerTextUTF8      = "text.utf8"
	TokenizerTextGB18030   = "text.gb18030"
	TokenizerSpreadsheet   = "xlsx.excelize"
)

// TokenizerOptions carries the configuration tokenizers are built with.
type TokenizerOptions struct {
	// LineTolerance is the row grouping tolerance for positioned tokens.
	// Zero uses the layout default.
	LineTolerance float64
}

// TokenizerFactory creates a tokenizer.
type TokenizerFactory func(opts TokenizerOptions) port.Tokenizer

// registry of tokenizer factories, populated by init() in builtin.go or
// explicitly via RegisterTokenizer.
var tokenizers = map[string]TokenizerFactory{}

// RegisterTokenizer registers a tokenizer factory by name.
func RegisterTokenizer(name string, factory TokenizerFactory) {
	tokenizers[name] = factory
}

// NewTokenizer creates a tokenizer using the registered factory.
func NewTokenizer(name string, opts TokenizerOptions) (port.Tokenizer, error) {
	factory, ok := tokenizers[name]
	if !ok {
		return nil, fmt.Errorf("unknown tokenizer: %s", name)
	}
	return factory(opts), nil
}

// Step is one tokenizer attempt.
type Step struct {
	Name      string
	Tokenizer port.Tokenizer
}

// Plan lists the tokenizers tried for one format. Secondary may be nil.
type Plan struct {
	Primary   Step
	Secondary *Step
}

type planKey struct {
	kind   domain.DocumentKind
	format domain.FileType
}

// Planner picks the tokenizer plan for a document kind and file format.
// Plans registered without a kind apply to every kind.
type Planner struct {
	plans map[planKey]Plan
}

// NewPlanner returns an empty planner.
func NewPlanner() *Planner {
	return &Planner{plans: make(map[planKey]Plan)}
}

// Register sets the plan for kind and format. An empty kind matches any kind.
func (p *Planner) Register(kind domain.DocumentKind, format domain.FileType, plan Plan) {
	p.plans[planKey{kind: kind, format: format}] = plan
}

// Lookup returns the plan for kind and format, preferring a kind-specific one.
func (p *Planner) Lookup(kind domain.DocumentKind, format domain.FileType) (Plan, bool) {
	if plan, ok := p.plans[planKey{kind: kind, format: format}]; ok {
		return plan, true
	}
	plan, ok := p.plans[planKey{format: format}]
	return plan, ok
}

// Formats returns the formats that have a plan for kind, sorted.
func (p *Planner) Formats(kind domain.DocumentKind) []domain.FileType {
	seen := make(map[domain.FileType]bool)
	for k := range p.plans {
		if k.kind == "" || k.kind == kind {
			seen[k.format] = true
		}
	}
	out := make([]domain.FileType, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DefaultPlanner wires the built-in tokenizers. Invoices need positions, so
// their PDFs start with the positioned tokenizer; contracts read better as
// plain rows and use positions only as the fallback. Legacy .doc files have
// no plan and go straight to the degraded state.
func DefaultPlanner() *Planner {
	return NewDefaultPlanner(TokenizerOptions{})
}

// NewDefaultPlanner is DefaultPlanner with tokenizers built from opts.
func NewDefaultPlanner(opts TokenizerOptions) *Planner {
	p := NewPlanner()
	p.Register(domain.DocumentKindInvoice, domain.FileTypePDF, mustPlan(opts, TokenizerPDFPositioned, TokenizerPDFPlain))
	p.Register(domain.DocumentKindContract, domain.FileTypePDF, mustPlan(opts, TokenizerPDFPlain, TokenizerPDFPositioned))
	p.Register("", domain.FileTypeDOCX, mustPlan(opts, TokenizerDocxDocconv, TokenizerDocxXML))
	p.Register("", domain.FileTypeTXT, mustPlan(opts, TokenizerTextUTF8, TokenizerTextGB18030))
	p.Register("", domain.FileTypeXLSX, mustPlan(opts, TokenizerSpreadsheet, ""))
	p.Register("", domain.FileTypeXLS, mustPlan(opts, TokenizerSpreadsheet, ""))
	return p
}

func mustPlan(opts TokenizerOptions, primary, secondary string) Plan {
	plan := Plan{Primary: mustStep(opts, primary)}
	if secondary != "" {
		s := mustStep(opts, secondary)
		plan.Secondary = &s
	}
	return plan
}

func mustStep(opts TokenizerOptions, name string) Step {
	t, err := NewTokenizer(name, opts)
	if err != nil {
		panic(err)
	}
	return Step{Name: name, Tokenizer: t}
}
