package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docextract/internal/domain"
	"docextract/internal/extract"
	"docextract/internal/validator"
)

func textDoc(text string) *domain.Document {
	return &domain.Document{RawText: text, PageCount: 1}
}

func countingStrategy(name string, rank uint8, calls *[]string, values ...string) extract.Strategy {
	return extract.Strategy{Name: name, Rank: rank, Run: func(*extract.Resolver) []domain.FieldCandidate {
		*calls = append(*calls, name)
		out := make([]domain.FieldCandidate, 0, len(values))
		for _, v := range values {
			out = append(out, domain.FieldCandidate{Value: v})
		}
		return out
	}}
}

func singleFieldProfile(strategies ...extract.Strategy) *extract.Profile {
	return &extract.Profile{
		Name:    "test",
		Kind:    domain.DocumentKindInvoice,
		Subtype: domain.InvoiceSubtypeSpecial,
		Fields: []extract.FieldSpec{
			{Field: domain.FieldInvoiceNumber, Rule: validator.RuleInvoiceNumberOrdinary, Strategies: strategies},
		},
	}
}

func TestResolver_ShortCircuitsOnFirstValidCandidate(t *testing.T) {
	var calls []string
	p := singleFieldProfile(
		countingStrategy("anchored", extract.RankAnchoredLabel, &calls, "12345678"),
		countingStrategy("proximity", extract.RankLabelProximity, &calls, "87654321"),
		countingStrategy("table", extract.RankTableColumn, &calls, "11111111"),
		countingStrategy("global", extract.RankGlobalScan, &calls, "22222222"),
		countingStrategy("filename", extract.RankFilename, &calls, "33333333"),
	)
	r := extract.NewResolver(p, extract.NewSource(textDoc("x"), "a.pdf", 0.5), validator.NewBuiltinRegistry(validator.Options{}))

	out := r.Run()

	assert.Equal(t, "12345678", out.Invoice.InvoiceNumber)
	assert.Equal(t, []string{"anchored"}, calls)
	assert.Equal(t, []string{"anchored"}, r.Calls(domain.FieldInvoiceNumber))
	assert.Equal(t, domain.Provenance{Strategy: "anchored", Rank: extract.RankAnchoredLabel}, out.Provenance[domain.FieldInvoiceNumber])
}

func TestResolver_InvalidCandidateFallsThrough(t *testing.T) {
	var calls []string
	p := singleFieldProfile(
		countingStrategy("anchored", extract.RankAnchoredLabel, &calls, "2023"),
		countingStrategy("global", extract.RankGlobalScan, &calls, "20230101", "12345678"),
	)
	r := extract.NewResolver(p, extract.NewSource(textDoc("x"), "", 0.5), validator.NewBuiltinRegistry(validator.Options{}))

	out := r.Run()

	assert.Equal(t, "12345678", out.Invoice.InvoiceNumber)
	assert.Equal(t, []string{"anchored", "global"}, calls)
	assert.Equal(t, extract.RankGlobalScan, out.Provenance[domain.FieldInvoiceNumber].Rank)
}

func TestResolver_WinnerCarriesStrategyRankAndSpan(t *testing.T) {
	p := singleFieldProfile(extract.Strategy{
		Name: "positioned",
		Rank: extract.RankLabelProximity,
		Run: func(*extract.Resolver) []domain.FieldCandidate {
			return []domain.FieldCandidate{{Value: "12345678", SourceSpan: &domain.SourceSpan{X: 35, Y: 2}}}
		},
	})
	r := extract.NewResolver(p, extract.NewSource(textDoc("x"), "", 0.5), validator.NewBuiltinRegistry(validator.Options{}))

	out := r.Run()

	winner, ok := r.Winner(domain.FieldInvoiceNumber)
	require.True(t, ok)
	assert.Equal(t, extract.RankLabelProximity, winner.StrategyRank)
	assert.Equal(t, &domain.SourceSpan{X: 35, Y: 2}, winner.SourceSpan)

	prov := out.Provenance[domain.FieldInvoiceNumber]
	assert.Equal(t, extract.RankLabelProximity, prov.Rank)
	require.NotNil(t, prov.Span)
	assert.Equal(t, domain.SourceSpan{X: 35, Y: 2}, *prov.Span)
}

func TestResolver_TextCandidateHasNoSpan(t *testing.T) {
	var calls []string
	p := singleFieldProfile(countingStrategy("global", extract.RankGlobalScan, &calls, "12345678"))
	r := extract.NewResolver(p, extract.NewSource(textDoc("x"), "", 0.5), validator.NewBuiltinRegistry(validator.Options{}))

	out := r.Run()

	winner, ok := r.Winner(domain.FieldInvoiceNumber)
	require.True(t, ok)
	assert.Equal(t, extract.RankGlobalScan, winner.StrategyRank)
	assert.Nil(t, out.Provenance[domain.FieldInvoiceNumber].Span)

	_, ok = r.Winner(domain.FieldBuyerName)
	assert.False(t, ok)
}

func TestResolver_FilenameStrategySkippedAfterAnyCandidate(t *testing.T) {
	var calls []string
	p := singleFieldProfile(
		countingStrategy("anchored", extract.RankAnchoredLabel, &calls, "bad"),
		countingStrategy("filename", extract.RankFilename, &calls, "12345678"),
	)
	r := extract.NewResolver(p, extract.NewSource(textDoc("x"), "", 0.5), validator.NewBuiltinRegistry(validator.Options{}))

	out := r.Run()

	assert.Empty(t, out.Invoice.InvoiceNumber)
	assert.Equal(t, []string{"anchored"}, calls)
	_, ok := out.Provenance[domain.FieldInvoiceNumber]
	assert.False(t, ok)
}

func TestResolver_FilenameStrategyRunsWhenNothingProduced(t *testing.T) {
	var calls []string
	p := singleFieldProfile(
		countingStrategy("anchored", extract.RankAnchoredLabel, &calls),
		countingStrategy("filename", extract.RankFilename, &calls, "12345678"),
	)
	r := extract.NewResolver(p, extract.NewSource(textDoc("x"), "", 0.5), validator.NewBuiltinRegistry(validator.Options{}))

	out := r.Run()

	assert.Equal(t, "12345678", out.Invoice.InvoiceNumber)
	assert.Equal(t, []string{"anchored", "filename"}, calls)
}

func TestResolver_ResolveIsMemoized(t *testing.T) {
	var calls []string
	p := singleFieldProfile(countingStrategy("anchored", extract.RankAnchoredLabel, &calls, "12345678"))
	r := extract.NewResolver(p, extract.NewSource(nil, "", 0.5), validator.NewBuiltinRegistry(validator.Options{}))

	v1, ok1 := r.Resolve(domain.FieldInvoiceNumber)
	v2, ok2 := r.Resolve(domain.FieldInvoiceNumber)

	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, v1, v2)
	assert.Len(t, calls, 1)
}

func TestResolver_UnknownFieldNotFound(t *testing.T) {
	p := singleFieldProfile()
	r := extract.NewResolver(p, extract.NewSource(nil, "", 0.5), validator.NewBuiltinRegistry(validator.Options{}))

	_, ok := r.Resolve(domain.FieldPartyA)
	assert.False(t, ok)
}

func TestRouter_Route(t *testing.T) {
	router := extract.NewRouter()

	special, err := router.Route(domain.DocumentKindInvoice, domain.InvoiceSubtypeSpecial)
	require.NoError(t, err)
	ordinary, err := router.Route(domain.DocumentKindInvoice, domain.InvoiceSubtypeOrdinary)
	require.NoError(t, err)
	contract, err := router.Route(domain.DocumentKindContract, domain.InvoiceSubtypeOrdinary)
	require.NoError(t, err)
	defaulted, err := router.Route(domain.DocumentKindInvoice, "")
	require.NoError(t, err)

	assert.NotEqual(t, special.Name, ordinary.Name)
	assert.Equal(t, domain.DocumentKindContract, contract.Kind)
	assert.Equal(t, special.Name, defaulted.Name)
	assert.Len(t, special.Fields, 12)
	assert.Len(t, contract.Fields, 14)
}

func TestRouter_RouteRejectsUnknownKind(t *testing.T) {
	router := extract.NewRouter()

	_, err := router.Route("receipt", "")
	assert.ErrorIs(t, err, domain.ErrInvalidDocumentKind)

	_, err = router.Route(domain.DocumentKindInvoice, "proforma")
	assert.ErrorIs(t, err, domain.ErrUnknownProfile)
}
