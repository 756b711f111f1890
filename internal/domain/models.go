package domain

// TextToken is one positioned run of text as reported by a tokenizer.
// Coordinates are layout units with y growing down the page.
type TextToken struct {
	Page  uint32  `json:"page"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Width float64 `json:"width"`
	Text  string  `json:"text"`
}

// Line is a row of tokens sharing a baseline bucket, sorted by x.
type Line struct {
	Y      float64     `json:"y"`
	Tokens []TextToken `json:"tokens"`
	Text   string      `json:"text"`
}

// Document is the tokenizer output consumed by a single extraction pass.
type Document struct {
	RawText   string        `json:"raw_text"`
	Lines     []Line        `json:"lines,omitempty"`
	Pages     [][]TextToken `json:"pages,omitempty"`
	PageCount uint32        `json:"page_count"`
}

// HasLayout reports whether positioned tokens are available.
func (d *Document) HasLayout() bool {
	if d == nil {
		return false
	}
	for _, p := range d.Pages {
		if len(p) > 0 {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the document carries neither text nor tokens.
func (d *Document) IsEmpty() bool {
	if d == nil {
		return true
	}
	for _, r := range d.RawText {
		if r != ' ' && r != '\n' && r != '\t' && r != '\r' {
			return false
		}
	}
	return !d.HasLayout()
}

// SourceSpan is the layout position a candidate was read from.
type SourceSpan struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FieldCandidate is an unvalidated value proposed by an extraction strategy.
type FieldCandidate struct {
	Value        string      `json:"value"`
	StrategyRank uint8       `json:"strategy_rank"`
	SourceSpan   *SourceSpan `json:"source_span,omitempty"`
}

// Provenance records which strategy produced a populated field. Span is set
// when the value was read from a positioned token.
type Provenance struct {
	Strategy string      `json:"strategy"`
	Rank     uint8       `json:"rank"`
	Span     *SourceSpan `json:"span,omitempty"`
}

// Field names a logical extracted field.
type Field string

// Invoice fields.
const (
	FieldInvoiceName   Field = "invoice_name"
	FieldInvoiceNumber Field = "invoice_number"
	FieldIssueDate     Field = "issue_date"
	FieldBuyerName     Field = "buyer_name"
	FieldBuyerTaxID    Field = "buyer_tax_id"
	FieldSellerName    Field = "seller_name"
	FieldSellerTaxID   Field = "seller_tax_id"
	FieldGoodsServices Field = "goods_services"
	FieldTaxRate       Field = "tax_rate"
	FieldAmount        Field = "amount"
	FieldTaxAmount     Field = "tax_amount"
	FieldTotalAmount   Field = "total_amount"
)

// Contract fields.
const (
	FieldContractNumber      Field = "contract_number"
	FieldContractName        Field = "contract_name"
	FieldContractType        Field = "contract_type"
	FieldSignDate            Field = "sign_date"
	FieldEffectiveDate       Field = "effective_date"
	FieldExpiryDate          Field = "expiry_date"
	FieldPartyA              Field = "party_a"
	FieldPartyB              Field = "party_b"
	FieldDeliverables        Field = "deliverables"
	FieldContractAmount      Field = "contract_amount"
	FieldPaymentTerms        Field = "payment_terms"
	FieldPerformanceLocation Field = "performance_location"
	FieldPerformancePeriod   Field = "performance_period"
	FieldRemarks             Field = "remarks"
)

// InvoiceFields is the record extracted from a VAT invoice. Empty strings mean
// no strategy produced a valid value.
type InvoiceFields struct {
	InvoiceName   string `json:"invoice_name"`
	InvoiceNumber string `json:"invoice_number"`
	IssueDate     string `json:"issue_date"`
	BuyerName     string `json:"buyer_name"`
	BuyerTaxID    string `json:"buyer_tax_id"`
	SellerName    string `json:"seller_name"`
	SellerTaxID   string `json:"seller_tax_id"`
	GoodsServices string `json:"goods_services"`
	TaxRate       string `json:"tax_rate"`
	Amount        string `json:"amount"`
	TaxAmount     string `json:"tax_amount"`
	TotalAmount   string `json:"total_amount"`
}

func (f *InvoiceFields) slot(name Field) *string {
	switch name {
	case FieldInvoiceName:
		return &f.InvoiceName
	case FieldInvoiceNumber:
		return &f.InvoiceNumber
	case FieldIssueDate:
		return &f.IssueDate
	case FieldBuyerName:
		return &f.BuyerName
	case FieldBuyerTaxID:
		return &f.BuyerTaxID
	case FieldSellerName:
		return &f.SellerName
	case FieldSellerTaxID:
		return &f.SellerTaxID
	case FieldGoodsServices:
		return &f.GoodsServices
	case FieldTaxRate:
		return &f.TaxRate
	case FieldAmount:
		return &f.Amount
	case FieldTaxAmount:
		return &f.TaxAmount
	case FieldTotalAmount:
		return &f.TotalAmount
	}
	return nil
}

// ContractFields is the record extracted from a service contract.
type ContractFields struct {
	ContractNumber      string `json:"contract_number"`
	ContractName        string `json:"contract_name"`
	ContractType        string `json:"contract_type"`
	SignDate            string `json:"sign_date"`
	EffectiveDate       string `json:"effective_date"`
	ExpiryDate          string `json:"expiry_date"`
	PartyA              string `json:"party_a"`
	PartyB              string `json:"party_b"`
	Deliverables        string `json:"deliverables"`
	ContractAmount      string `json:"contract_amount"`
	PaymentTerms        string `json:"payment_terms"`
	PerformanceLocation string `json:"performance_location"`
	PerformancePeriod   string `json:"performance_period"`
	Remarks             string `json:"remarks"`
}

func (f *ContractFields) slot(name Field) *string {
	switch name {
	case FieldContractNumber:
		return &f.ContractNumber
	case FieldContractName:
		return &f.ContractName
	case FieldContractType:
		return &f.ContractType
	case FieldSignDate:
		return &f.SignDate
	case FieldEffectiveDate:
		return &f.EffectiveDate
	case FieldExpiryDate:
		return &f.ExpiryDate
	case FieldPartyA:
		return &f.PartyA
	case FieldPartyB:
		return &f.PartyB
	case FieldDeliverables:
		return &f.Deliverables
	case FieldContractAmount:
		return &f.ContractAmount
	case FieldPaymentTerms:
		return &f.PaymentTerms
	case FieldPerformanceLocation:
		return &f.PerformanceLocation
	case FieldPerformancePeriod:
		return &f.PerformancePeriod
	case FieldRemarks:
		return &f.Remarks
	}
	return nil
}

// ExtractedFields is the result of one extraction pass. Exactly one of
// Invoice and Contract is set, matching Kind.
type ExtractedFields struct {
	Kind       DocumentKind         `json:"kind"`
	Subtype    InvoiceSubtype       `json:"subtype,omitempty"`
	Filename   string               `json:"filename"`
	Invoice    *InvoiceFields       `json:"invoice,omitempty"`
	Contract   *ContractFields      `json:"contract,omitempty"`
	Quality    ExtractionQuality    `json:"extraction_quality"`
	Provenance map[Field]Provenance `json:"provenance,omitempty"`
}

// NewExtractedFields returns an empty record for the given kind.
func NewExtractedFields(kind DocumentKind, subtype InvoiceSubtype, filename string) *ExtractedFields {
	out := &ExtractedFields{
		Kind:       kind,
		Filename:   filename,
		Provenance: make(map[Field]Provenance),
	}
	if kind == DocumentKindContract {
		out.Contract = &ContractFields{}
	} else {
		out.Subtype = subtype
		out.Invoice = &InvoiceFields{}
	}
	return out
}

func (e *ExtractedFields) slot(name Field) *string {
	if e.Invoice != nil {
		if p := e.Invoice.slot(name); p != nil {
			return p
		}
	}
	if e.Contract != nil {
		return e.Contract.slot(name)
	}
	return nil
}

// Get returns the value of a field, or "" when it is empty or not part of this record.
func (e *ExtractedFields) Get(name Field) string {
	if p := e.slot(name); p != nil {
		return *p
	}
	return ""
}

// Set stores a value and its provenance. It reports false when the field does
// not belong to this record.
func (e *ExtractedFields) Set(name Field, value string, prov Provenance) bool {
	p := e.slot(name)
	if p == nil {
		return false
	}
	*p = value
	if e.Provenance == nil {
		e.Provenance = make(map[Field]Provenance)
	}
	e.Provenance[name] = prov
	return true
}
