package parser_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docextract/internal/domain"
	"docextract/internal/extract"
	"docextract/internal/parser"
	"docextract/mocks"
)

const partiesLine = "购买方名称：北京示例科技有限公司 销售方名称：上海示例贸易有限公司"

func invoiceInput(filename string) parser.Input {
	return parser.Input{
		Kind:        domain.DocumentKindInvoice,
		Subtype:     domain.InvoiceSubtypeSpecial,
		Filename:    filename,
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4 test"),
	}
}

func twoStepPlanner(primary, secondary *mocks.MockTokenizer) *parser.Planner {
	p := parser.NewPlanner()
	plan := parser.Plan{Primary: parser.Step{Name: "primary", Tokenizer: primary}}
	if secondary != nil {
		plan.Secondary = &parser.Step{Name: "secondary", Tokenizer: secondary}
	}
	p.Register("", domain.FileTypePDF, plan)
	return p
}

func newOrchestrator(p *parser.Planner) *parser.Orchestrator {
	return parser.NewOrchestrator(extract.NewEngine(extract.Options{}), p, true)
}

func TestOrchestrator_PrimarySucceeds(t *testing.T) {
	primary := new(mocks.MockTokenizer)
	secondary := new(mocks.MockTokenizer)
	in := invoiceInput("invoice.pdf")
	primary.On("Tokenize", in.Data, in.ContentType).Return(&domain.Document{RawText: partiesLine}, nil)

	out, err := newOrchestrator(twoStepPlanner(primary, secondary)).Run(in)

	require.NoError(t, err)
	assert.Equal(t, parser.StatePrimary, out.State)
	assert.Empty(t, out.Trail)
	assert.Empty(t, out.Errors)
	assert.Equal(t, "北京示例科技有限公司", out.Fields.Invoice.BuyerName)
	assert.Equal(t, domain.QualityPartial, out.Fields.Quality)
	secondary.AssertNotCalled(t, "Tokenize", mock.Anything, mock.Anything)
}

func TestOrchestrator_PrimaryFails_SecondarySucceeds(t *testing.T) {
	primary := new(mocks.MockTokenizer)
	secondary := new(mocks.MockTokenizer)
	in := invoiceInput("invoice.pdf")
	primary.On("Tokenize", in.Data, in.ContentType).Return(nil, errors.New("corrupt xref"))
	secondary.On("Tokenize", in.Data, in.ContentType).Return(&domain.Document{RawText: partiesLine}, nil)

	out, err := newOrchestrator(twoStepPlanner(primary, secondary)).Run(in)

	require.NoError(t, err)
	assert.Equal(t, parser.StateSecondary, out.State)
	require.Len(t, out.Trail, 1)
	assert.Equal(t, parser.Transition{From: parser.StatePrimary, To: parser.StateSecondary, Event: parser.EventTokenizeFailed, Err: out.Errors[0]}, out.Trail[0])
	assert.ErrorIs(t, out.Errors[0], domain.ErrTokenizeFailure)
	assert.Equal(t, "上海示例贸易有限公司", out.Fields.Invoice.SellerName)
	primary.AssertExpectations(t)
	secondary.AssertExpectations(t)
}

func TestOrchestrator_BothFail_Degrades(t *testing.T) {
	primary := new(mocks.MockTokenizer)
	secondary := new(mocks.MockTokenizer)
	in := invoiceInput("住宿服务_24112000000012345678.pdf")
	primary.On("Tokenize", in.Data, in.ContentType).Return(nil, errors.New("corrupt xref"))
	secondary.On("Tokenize", in.Data, in.ContentType).Return(&domain.Document{RawText: "  \n "}, nil)

	out, err := newOrchestrator(twoStepPlanner(primary, secondary)).Run(in)

	require.NoError(t, err)
	assert.Equal(t, parser.StateDegraded, out.State)
	require.Len(t, out.Trail, 2)
	assert.Equal(t, parser.StateSecondary, out.Trail[1].From)
	assert.Equal(t, parser.StateDegraded, out.Trail[1].To)
	assert.ErrorIs(t, out.Errors[1], domain.ErrEmptyDocument)
	assert.Equal(t, domain.QualityFilenameOnly, out.Fields.Quality)
	assert.Equal(t, "住宿服务", out.Fields.Invoice.GoodsServices)
	assert.Equal(t, "24112000000012345678", out.Fields.Invoice.InvoiceNumber)
}

func TestOrchestrator_TokenizerPanic_IsAFailure(t *testing.T) {
	primary := new(mocks.MockTokenizer)
	in := invoiceInput("invoice.pdf")
	primary.On("Tokenize", in.Data, in.ContentType).Panic("malformed stream")

	out, err := newOrchestrator(twoStepPlanner(primary, nil)).Run(in)

	require.NoError(t, err)
	assert.Equal(t, parser.StateDegraded, out.State)
	require.Len(t, out.Trail, 1)
	assert.Equal(t, parser.EventNoAlternate, out.Trail[0].Event)

	var tokErr *parser.TokenizeError
	require.ErrorAs(t, out.Errors[0], &tokErr)
	assert.Equal(t, "primary", tokErr.Tokenizer)
	assert.Equal(t, domain.FileTypePDF, tokErr.Format)
	assert.Contains(t, tokErr.Error(), "malformed stream")
}

func TestOrchestrator_UnsupportedFormat(t *testing.T) {
	primary := new(mocks.MockTokenizer)
	in := parser.Input{
		Kind:     domain.DocumentKindContract,
		Filename: "北京甲公司与上海乙公司技术服务合同2024.doc",
		Data:     []byte{0xD0, 0xCF, 0x11, 0xE0},
	}

	out, err := newOrchestrator(twoStepPlanner(primary, nil)).Run(in)

	require.NoError(t, err)
	assert.Equal(t, parser.StateDegraded, out.State)
	require.Len(t, out.Trail, 1)
	assert.Equal(t, parser.EventUnsupported, out.Trail[0].Event)
	assert.ErrorIs(t, out.Errors[0], domain.ErrUnsupportedFormat)
	assert.Equal(t, "技术服务合同", out.Fields.Contract.ContractType)
	assert.Equal(t, "2024-01-01", out.Fields.Contract.SignDate)
	primary.AssertNotCalled(t, "Tokenize", mock.Anything, mock.Anything)
}

func TestOrchestrator_InvalidKind(t *testing.T) {
	in := invoiceInput("invoice.pdf")
	in.Kind = "receipt"

	out, err := newOrchestrator(parser.NewPlanner()).Run(in)

	assert.Nil(t, out)
	assert.ErrorIs(t, err, domain.ErrInvalidDocumentKind)
}

func TestNext(t *testing.T) {
	tests := []struct {
		from parser.State
		ev   parser.Event
		to   parser.State
		ok   bool
	}{
		{parser.StatePrimary, parser.EventTokenizeFailed, parser.StateSecondary, true},
		{parser.StatePrimary, parser.EventNoAlternate, parser.StateDegraded, true},
		{parser.StatePrimary, parser.EventUnsupported, parser.StateDegraded, true},
		{parser.StateSecondary, parser.EventTokenizeFailed, parser.StateDegraded, true},
		{parser.StateSecondary, parser.EventUnsupported, 0, false},
		{parser.StateDegraded, parser.EventTokenizeFailed, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.ev.String(), func(t *testing.T) {
			to, ok := parser.Next(tt.from, tt.ev)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.to, to)
			}
		})
	}
}

func TestOrchestrator_CorruptTextDegrades(t *testing.T) {
	noise := make([]byte, 4096)
	rand.New(rand.NewSource(42)).Read(noise)

	tests := []struct {
		name string
		kind domain.DocumentKind
		data []byte
	}{
		{"random bytes as invoice", domain.DocumentKindInvoice, noise},
		{"short binary as contract", domain.DocumentKindContract, []byte{0x00, 0x9F, 0x01, 0xFF, 0x02, 0x81, 0x03}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch := parser.NewOrchestrator(extract.NewEngine(extract.Options{}), parser.DefaultPlanner(), false)

			out, err := orch.Run(parser.Input{Kind: tt.kind, Filename: "x.txt", Data: tt.data})

			require.NoError(t, err)
			assert.Equal(t, parser.StateDegraded, out.State)
			assert.Equal(t, domain.QualityFilenameOnly, out.Fields.Quality)
			require.Len(t, out.Trail, 2)
			assert.Equal(t, parser.EventTokenizeFailed, out.Trail[1].Event)
			for _, e := range out.Errors {
				assert.ErrorIs(t, e, domain.ErrTokenizeFailure)
			}
		})
	}
}
