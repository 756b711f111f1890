package extract

import (
	"fmt"

	"docextract/internal/domain"
	"docextract/internal/layout"
	"docextract/internal/validator"
)

type profileKey struct {
	kind    domain.DocumentKind
	subtype domain.InvoiceSubtype
}

// Router selects the extraction profile for a document kind and subtype.
type Router struct {
	profiles map[profileKey]*Profile
}

// NewRouter returns a router holding the built-in profiles.
func NewRouter() *Router {
	r := &Router{profiles: make(map[profileKey]*Profile)}
	r.Register(specialProfile())
	r.Register(ordinaryProfile())
	r.Register(contractProfile())
	return r
}

// Register adds or replaces a profile.
func (r *Router) Register(p *Profile) {
	r.profiles[keyFor(p.Kind, p.Subtype)] = p
}

// Route returns the profile for kind and subtype. Contracts ignore the
// subtype; invoices without one use the special profile.
func (r *Router) Route(kind domain.DocumentKind, subtype domain.InvoiceSubtype) (*Profile, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidDocumentKind, kind)
	}
	p, ok := r.profiles[keyFor(kind, subtype)]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrUnknownProfile, kind, subtype)
	}
	return p, nil
}

func keyFor(kind domain.DocumentKind, subtype domain.InvoiceSubtype) profileKey {
	if kind == domain.DocumentKindContract {
		return profileKey{kind: kind}
	}
	if subtype == "" {
		subtype = domain.InvoiceSubtypeSpecial
	}
	return profileKey{kind: kind, subtype: subtype}
}

// Options configure an Engine.
type Options struct {
	// LineTolerance is the row bucket height used when grouping tokens.
	LineTolerance float64
	// Validators overrides the built-in validator registry.
	Validators *validator.Registry
	// Router overrides the built-in profiles.
	Router *Router
}

// Engine runs the extraction cascade for a routed profile.
type Engine struct {
	router    *Router
	registry  *validator.Registry
	tolerance float64
}

// NewEngine creates an Engine, filling unset options with defaults.
func NewEngine(opts Options) *Engine {
	if opts.LineTolerance <= 0 {
		opts.LineTolerance = layout.DefaultTolerance
	}
	if opts.Validators == nil {
		opts.Validators = validator.NewBuiltinRegistry(validator.Options{})
	}
	if opts.Router == nil {
		opts.Router = NewRouter()
	}
	return &Engine{router: opts.Router, registry: opts.Validators, tolerance: opts.LineTolerance}
}

// Profile returns the profile Extract would use for kind and subtype.
func (e *Engine) Profile(kind domain.DocumentKind, subtype domain.InvoiceSubtype) (*Profile, error) {
	return e.router.Route(kind, subtype)
}

// Extract runs every field cascade of the routed profile over doc. Fields
// no strategy could fill stay empty; the quality tag reports whether any did.
func (e *Engine) Extract(kind domain.DocumentKind, subtype domain.InvoiceSubtype, doc *domain.Document, filename string) (*domain.ExtractedFields, error) {
	p, err := e.router.Route(kind, subtype)
	if err != nil {
		return nil, err
	}
	out := NewResolver(p, NewSource(doc, filename, e.tolerance), e.registry).Run()
	out.Quality = qualityOf(p, out)
	return out, nil
}

// ExtractFromFilename is the degraded pass: only filename heuristics can
// fire because there is no document body.
func (e *Engine) ExtractFromFilename(kind domain.DocumentKind, subtype domain.InvoiceSubtype, filename string) (*domain.ExtractedFields, error) {
	p, err := e.router.Route(kind, subtype)
	if err != nil {
		return nil, err
	}
	out := NewResolver(p, NewSource(nil, filename, e.tolerance), e.registry).Run()
	out.Quality = domain.QualityFilenameOnly
	return out, nil
}

func qualityOf(p *Profile, out *domain.ExtractedFields) domain.ExtractionQuality {
	for _, fs := range p.Fields {
		if !fs.Optional && out.Get(fs.Field) == "" {
			return domain.QualityPartial
		}
	}
	return domain.QualityFull
}
