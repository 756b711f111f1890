// Package extract implements the per-field extraction cascade and the
// document-type profiles that configure it.
package extract

import (
	"errors"
	"log"

	"docextract/internal/domain"
	"docextract/internal/validator"
)

// Strategy ranks, from most to least specific.
const (
	RankAnchoredLabel  uint8 = 1
	RankLabelProximity uint8 = 2
	RankTableColumn    uint8 = 3
	RankGlobalScan     uint8 = 4
	RankFilename       uint8 = 5
	RankDerived        uint8 = 6
)

// Strategy names recorded in provenance.
const (
	StrategyAnchoredLabel  = "anchored_label"
	StrategyLabelProximity = "label_proximity"
	StrategyTableColumn    = "table_column"
	StrategyGlobalScan     = "global_scan"
	StrategyFilename       = "filename"
	StrategyDerived        = "derived"
)

// Strategy proposes candidates for one field. Candidates are validated in
// the order returned.
type Strategy struct {
	Name string
	Rank uint8
	Run  func(r *Resolver) []domain.FieldCandidate
}

// FieldSpec binds a field to its validator rule and ordered strategies.
// Optional fields do not count against extraction quality.
type FieldSpec struct {
	Field      domain.Field
	Rule       string
	Strategies []Strategy
	Optional   bool
}

// Profile is the field set and strategy table for one document type.
type Profile struct {
	Name    string
	Kind    domain.DocumentKind
	Subtype domain.InvoiceSubtype
	Fields  []FieldSpec
}

// Spec returns the FieldSpec for a field.
func (p *Profile) Spec(f domain.Field) (FieldSpec, bool) {
	for _, fs := range p.Fields {
		if fs.Field == f {
			return fs, true
		}
	}
	return FieldSpec{}, false
}

// Resolver runs one profile over one source. Fields resolve lazily and at
// most once, so derived strategies may depend on other fields.
type Resolver struct {
	profile  *Profile
	src      *Source
	registry *validator.Registry
	out      *domain.ExtractedFields

	done       map[domain.Field]bool
	inProgress map[domain.Field]bool
	calls      map[domain.Field][]string
	winners    map[domain.Field]domain.FieldCandidate
}

// NewResolver prepares a cascade over src for the given profile.
func NewResolver(p *Profile, src *Source, reg *validator.Registry) *Resolver {
	return &Resolver{
		profile:    p,
		src:        src,
		registry:   reg,
		out:        domain.NewExtractedFields(p.Kind, p.Subtype, src.Filename),
		done:       make(map[domain.Field]bool),
		inProgress: make(map[domain.Field]bool),
		calls:      make(map[domain.Field][]string),
		winners:    make(map[domain.Field]domain.FieldCandidate),
	}
}

// Source returns the document view.
func (r *Resolver) Source() *Source { return r.src }

// Run resolves every field of the profile and returns the populated record.
// Quality is left for the caller to set.
func (r *Resolver) Run() *domain.ExtractedFields {
	for _, fs := range r.profile.Fields {
		r.Resolve(fs.Field)
	}
	return r.out
}

// Calls lists the strategies invoked for a field, in invocation order.
func (r *Resolver) Calls(f domain.Field) []string {
	return append([]string(nil), r.calls[f]...)
}

// Winner returns the candidate that populated a field, stamped with the
// rank of the strategy that proposed it.
func (r *Resolver) Winner(f domain.Field) (domain.FieldCandidate, bool) {
	c, ok := r.winners[f]
	return c, ok
}

// Resolve returns the validated value of a field, running its cascade on
// first use. A field that is being resolved further up the call chain
// reports not found, which breaks derivation cycles.
func (r *Resolver) Resolve(f domain.Field) (string, bool) {
	if r.done[f] {
		v := r.out.Get(f)
		return v, v != ""
	}
	if r.inProgress[f] {
		return "", false
	}
	fs, ok := r.profile.Spec(f)
	if !ok {
		return "", false
	}

	r.inProgress[f] = true
	value, winner, prov, err := r.cascade(fs)
	delete(r.inProgress, f)
	r.done[f] = true

	if err != nil {
		return "", false
	}
	r.winners[f] = winner
	r.out.Set(f, value, prov)
	return value, true
}

func (r *Resolver) cascade(fs FieldSpec) (string, domain.FieldCandidate, domain.Provenance, error) {
	check := r.registry.MustGet(fs.Rule)
	produced := false
	for _, s := range fs.Strategies {
		if s.Rank == RankFilename && produced {
			continue
		}
		r.calls[fs.Field] = append(r.calls[fs.Field], s.Name)
		cands := s.Run(r)
		if len(cands) > 0 {
			produced = true
		}
		for _, c := range cands {
			c.StrategyRank = s.Rank
			value, err := check.Validate(c.Value)
			if err != nil {
				if !errors.Is(err, domain.ErrNormalize) {
					log.Printf("extract.Resolver: %s/%s: unexpected validation error: %v", fs.Field, s.Name, err)
				}
				continue
			}
			return value, c, domain.Provenance{Strategy: s.Name, Rank: c.StrategyRank, Span: c.SourceSpan}, nil
		}
	}
	return "", domain.FieldCandidate{}, domain.Provenance{}, domain.ErrFieldNotFound
}

// candidates wraps plain values as candidates, dropping blanks.
func candidates(values ...string) []domain.FieldCandidate {
	out := make([]domain.FieldCandidate, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, domain.FieldCandidate{Value: v})
		}
	}
	return out
}

// tokenCandidates wraps token texts as candidates carrying their position.
func tokenCandidates(toks []domain.TextToken, value func(string) string) []domain.FieldCandidate {
	out := make([]domain.FieldCandidate, 0, len(toks))
	for _, t := range toks {
		v := t.Text
		if value != nil {
			v = value(v)
		}
		if v == "" {
			continue
		}
		out = append(out, domain.FieldCandidate{
			Value:      v,
			SourceSpan: &domain.SourceSpan{X: t.X, Y: t.Y},
		})
	}
	return out
}

func anchored(run func(r *Resolver) []domain.FieldCandidate) Strategy {
	return Strategy{Name: StrategyAnchoredLabel, Rank: RankAnchoredLabel, Run: run}
}

func proximity(run func(r *Resolver) []domain.FieldCandidate) Strategy {
	return Strategy{Name: StrategyLabelProximity, Rank: RankLabelProximity, Run: run}
}

func tableColumn(run func(r *Resolver) []domain.FieldCandidate) Strategy {
	return Strategy{Name: StrategyTableColumn, Rank: RankTableColumn, Run: run}
}

func globalScan(run func(r *Resolver) []domain.FieldCandidate) Strategy {
	return Strategy{Name: StrategyGlobalScan, Rank: RankGlobalScan, Run: run}
}

func fromFilename(run func(r *Resolver) []domain.FieldCandidate) Strategy {
	return Strategy{Name: StrategyFilename, Rank: RankFilename, Run: run}
}

func derived(run func(r *Resolver) []domain.FieldCandidate) Strategy {
	return Strategy{Name: StrategyDerived, Rank: RankDerived, Run: run}
}
