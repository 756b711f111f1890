package extract_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docextract/internal/domain"
	"docextract/internal/extract"
	"docextract/internal/validator"
)

func newEngine() *extract.Engine {
	return extract.NewEngine(extract.Options{})
}

func extractInvoice(t *testing.T, subtype domain.InvoiceSubtype, doc *domain.Document, filename string) *domain.ExtractedFields {
	t.Helper()
	out, err := newEngine().Extract(domain.DocumentKindInvoice, subtype, doc, filename)
	require.NoError(t, err)
	require.NotNil(t, out.Invoice)
	return out
}

func TestExtract_BuyerAndSellerOnOneLine(t *testing.T) {
	doc := textDoc("购买方名称：北京示例科技有限公司 销售方名称：上海示例贸易有限公司")

	out := extractInvoice(t, domain.InvoiceSubtypeSpecial, doc, "invoice.pdf")

	assert.Equal(t, "北京示例科技有限公司", out.Invoice.BuyerName)
	assert.Equal(t, "上海示例贸易有限公司", out.Invoice.SellerName)
	assert.Equal(t, extract.StrategyAnchoredLabel, out.Provenance[domain.FieldBuyerName].Strategy)
}

func TestExtract_TotalAndDerivedTax(t *testing.T) {
	doc := textDoc(strings.Join([]string{
		"价税合计 ¥1130.00",
		"金额 ¥1000.00",
		"税率 13%",
	}, "\n"))

	out := extractInvoice(t, domain.InvoiceSubtypeSpecial, doc, "invoice.pdf")

	assert.Equal(t, "1000.00", out.Invoice.Amount)
	assert.Equal(t, "13%", out.Invoice.TaxRate)
	assert.Equal(t, "1130.00", out.Invoice.TotalAmount)
	assert.Equal(t, "130.00", out.Invoice.TaxAmount)
	assert.Equal(t, extract.StrategyDerived, out.Provenance[domain.FieldTaxAmount].Strategy)
	assert.Equal(t, extract.StrategyAnchoredLabel, out.Provenance[domain.FieldTotalAmount].Strategy)
	assert.Equal(t, domain.QualityPartial, out.Quality)
}

func TestExtract_DerivedTotal(t *testing.T) {
	doc := textDoc("金额 ¥100.00\n税额 ¥13.00\n税率 13%")

	out := extractInvoice(t, domain.InvoiceSubtypeSpecial, doc, "invoice.pdf")

	assert.Equal(t, "100.00", out.Invoice.Amount)
	assert.Equal(t, "13.00", out.Invoice.TaxAmount)
	assert.Equal(t, "113.00", out.Invoice.TotalAmount)
	assert.Equal(t, domain.Provenance{Strategy: extract.StrategyDerived, Rank: extract.RankDerived}, out.Provenance[domain.FieldTotalAmount])
}

func TestExtract_TaxExempt(t *testing.T) {
	doc := textDoc("*农产品*蔬菜 1 100.00 100.00 * *\n金额 ¥100.00")

	out := extractInvoice(t, domain.InvoiceSubtypeSpecial, doc, "invoice.pdf")

	assert.Equal(t, validator.TaxExempt, out.Invoice.TaxRate)
	assert.Equal(t, validator.TaxExempt, out.Invoice.TaxAmount)
	assert.Equal(t, "100.00", out.Invoice.Amount)
}

func TestExtract_SpecialInvoiceText(t *testing.T) {
	doc := textDoc(strings.Join([]string{
		"电子发票（增值税专用发票）",
		"发票号码：24112000000012345678",
		"开票日期：2024年03月15日",
		"购买方信息",
		"名称：北京示例科技有限公司",
		"统一社会信用代码/纳税人识别号：91110000MA01ABCD2X",
		"销售方信息",
		"名称：上海示例贸易有限公司",
		"统一社会信用代码/纳税人识别号：91310000MA1FL12345",
		"项目名称 规格型号 单位 数量 单价 金额 税率/征收率 税额",
		"*信息技术服务*技术服务费 1 1000.00 1000.00 13% 130.00",
		"合计 ¥1000.00 ¥130.00",
		"价税合计（大写） 壹仟壹佰叁拾圆整 （小写）¥1130.00",
	}, "\n"))

	out := extractInvoice(t, domain.InvoiceSubtypeSpecial, doc, "invoice.pdf")
	inv := out.Invoice

	assert.Equal(t, "电子发票（增值税专用发票）", inv.InvoiceName)
	assert.Equal(t, "24112000000012345678", inv.InvoiceNumber)
	assert.Equal(t, "2024-03-15", inv.IssueDate)
	assert.Equal(t, "北京示例科技有限公司", inv.BuyerName)
	assert.Equal(t, "91110000MA01ABCD2X", inv.BuyerTaxID)
	assert.Equal(t, "上海示例贸易有限公司", inv.SellerName)
	assert.Equal(t, "91310000MA1FL12345", inv.SellerTaxID)
	assert.Equal(t, "信息技术服务", inv.GoodsServices)
	assert.Equal(t, "13%", inv.TaxRate)
	assert.Equal(t, "1000.00", inv.Amount)
	assert.Equal(t, "130.00", inv.TaxAmount)
	assert.Equal(t, "1130.00", inv.TotalAmount)
	assert.Equal(t, domain.QualityFull, out.Quality)
	assert.Equal(t, extract.StrategyLabelProximity, out.Provenance[domain.FieldBuyerTaxID].Strategy)
}

func TestExtract_TaxIDsFallBackToDocumentOrder(t *testing.T) {
	doc := textDoc("91110000MA01ABCD2X\n91310000MA1FL12345")

	out := extractInvoice(t, domain.InvoiceSubtypeSpecial, doc, "invoice.pdf")

	assert.Equal(t, "91110000MA01ABCD2X", out.Invoice.BuyerTaxID)
	assert.Equal(t, "91310000MA1FL12345", out.Invoice.SellerTaxID)
	assert.Equal(t, extract.StrategyGlobalScan, out.Provenance[domain.FieldSellerTaxID].Strategy)
}

func TestExtract_SpecialNumberSkipsDatePrefix(t *testing.T) {
	doc := textDoc("20240315000000000001\n发票号码\n24112000000012345678")

	out := extractInvoice(t, domain.InvoiceSubtypeSpecial, doc, "invoice.pdf")

	assert.Equal(t, "24112000000012345678", out.Invoice.InvoiceNumber)
}

func TestExtract_LabelDoesNotReadValueFromNextLine(t *testing.T) {
	doc := textDoc(strings.Join([]string{
		"项目名称 规格型号 单位 数量 单价 金额 税率/征收率 税额",
		"1 1000.00 1000.00 13% 130.00",
		"合计 ¥1000.00 ¥130.00",
		"价税合计 ¥1130.00",
	}, "\n"))

	for _, subtype := range []domain.InvoiceSubtype{domain.InvoiceSubtypeSpecial, domain.InvoiceSubtypeOrdinary} {
		t.Run(string(subtype), func(t *testing.T) {
			out := extractInvoice(t, subtype, doc, "invoice.pdf")

			assert.Equal(t, "1000.00", out.Invoice.Amount)
			assert.Equal(t, "130.00", out.Invoice.TaxAmount)
			assert.Equal(t, "1130.00", out.Invoice.TotalAmount)
			assert.Equal(t, "13%", out.Invoice.TaxRate)
			assert.NotEqual(t, extract.StrategyAnchoredLabel, out.Provenance[domain.FieldTaxAmount].Strategy)
			assert.NotEqual(t, extract.StrategyAnchoredLabel, out.Provenance[domain.FieldAmount].Strategy)
		})
	}
}

func TestExtract_PurchaseMethodLineIsNotBuyerSection(t *testing.T) {
	doc := textDoc(strings.Join([]string{
		"采购方式:公开招标",
		"上海示例贸易有限公司",
		"购买方信息",
		"名称:北京示例科技有限公司",
	}, "\n"))

	out := extractInvoice(t, domain.InvoiceSubtypeSpecial, doc, "invoice.pdf")

	assert.Equal(t, "北京示例科技有限公司", out.Invoice.BuyerName)
	assert.Equal(t, extract.StrategyLabelProximity, out.Provenance[domain.FieldBuyerName].Strategy)
}

func tok(x, y float64, text string) domain.TextToken {
	return domain.TextToken{Page: 1, X: x, Y: y, Text: text}
}

func ordinaryLayout() *domain.Document {
	return &domain.Document{
		PageCount: 1,
		Pages: [][]domain.TextToken{{
			tok(12, 1, "增值税电子普通发票"),
			tok(30, 2, "发票号码:"),
			tok(35, 2, "12345678"),
			tok(30, 3, "开票日期:"),
			tok(35, 3, "2023年03月07日"),
			tok(1, 5, "购买方"),
			tok(3, 5, "名称:北京示例科技有限公司"),
			tok(20, 5, "销售方"),
			tok(22, 5, "名称:上海示例贸易有限公司"),
			tok(3, 6.2, "纳税人识别号:"),
			tok(14, 6.2, "91110000MA01ABCD2X"),
			tok(22, 6.2, "纳税人识别号:"),
			tok(33, 6.2, "91310000MA1FL12345"),
			tok(2, 9, "货物或应税劳务、服务名称"),
			tok(20, 9, "金额"),
			tok(26, 9, "税率"),
			tok(31, 9, "税额"),
			tok(2, 10, "*物流辅助服务*收派服务费"),
			tok(20, 10, "100.00"),
			tok(26, 10, "6%"),
			tok(31, 10, "6.00"),
			tok(2, 12, "合计"),
			tok(20, 12, "¥100.00"),
			tok(31, 12, "¥6.00"),
			tok(2, 13, "价税合计(大写)"),
			tok(10, 13, "壹佰零陆圆整"),
			tok(30, 13, "(小写)¥106.00"),
		}},
	}
}

func TestExtract_OrdinaryInvoiceLayout(t *testing.T) {
	out := extractInvoice(t, domain.InvoiceSubtypeOrdinary, ordinaryLayout(), "invoice.pdf")
	inv := out.Invoice

	assert.Equal(t, "增值税电子普通发票", inv.InvoiceName)
	assert.Equal(t, "12345678", inv.InvoiceNumber)
	assert.Equal(t, "2023-03-07", inv.IssueDate)
	assert.Equal(t, "北京示例科技有限公司", inv.BuyerName)
	assert.Equal(t, "上海示例贸易有限公司", inv.SellerName)
	assert.Equal(t, "91110000MA01ABCD2X", inv.BuyerTaxID)
	assert.Equal(t, "91310000MA1FL12345", inv.SellerTaxID)
	assert.Equal(t, "物流辅助服务收派服务费", inv.GoodsServices)
	assert.Equal(t, "6%", inv.TaxRate)
	assert.Equal(t, "100.00", inv.Amount)
	assert.Equal(t, "6.00", inv.TaxAmount)
	assert.Equal(t, "106.00", inv.TotalAmount)
	assert.Equal(t, domain.QualityFull, out.Quality)
	assert.Equal(t, extract.StrategyLabelProximity, out.Provenance[domain.FieldBuyerTaxID].Strategy)
	assert.Equal(t, extract.StrategyTableColumn, out.Provenance[domain.FieldTaxRate].Strategy)
}

func TestExtract_LayoutWinnerRecordsSpan(t *testing.T) {
	out := extractInvoice(t, domain.InvoiceSubtypeOrdinary, ordinaryLayout(), "invoice.pdf")

	prov := out.Provenance[domain.FieldBuyerTaxID]
	assert.Equal(t, extract.StrategyLabelProximity, prov.Strategy)
	assert.Equal(t, extract.RankLabelProximity, prov.Rank)
	require.NotNil(t, prov.Span)
	assert.Equal(t, 14.0, prov.Span.X)
	assert.Equal(t, 6.2, prov.Span.Y)

	seller := out.Provenance[domain.FieldSellerTaxID]
	require.NotNil(t, seller.Span)
	assert.Equal(t, 33.0, seller.Span.X)
}

func TestExtract_OrdinaryPositionalStrategiesSkippedWithoutLayout(t *testing.T) {
	doc := textDoc("发票号码 12345678")

	out := extractInvoice(t, domain.InvoiceSubtypeOrdinary, doc, "invoice.pdf")

	assert.Equal(t, "12345678", out.Invoice.InvoiceNumber)
	assert.Equal(t, domain.QualityPartial, out.Quality)
}

func TestExtract_ResultIsDeterministic(t *testing.T) {
	a := extractInvoice(t, domain.InvoiceSubtypeOrdinary, ordinaryLayout(), "invoice.pdf")
	b := extractInvoice(t, domain.InvoiceSubtypeOrdinary, ordinaryLayout(), "invoice.pdf")

	assert.Equal(t, a, b)
}

func TestExtractFromFilename_Invoice(t *testing.T) {
	out, err := newEngine().ExtractFromFilename(domain.DocumentKindInvoice, domain.InvoiceSubtypeSpecial, "住宿服务_24112000000012345678.pdf")
	require.NoError(t, err)

	assert.Equal(t, domain.QualityFilenameOnly, out.Quality)
	assert.Equal(t, "增值税发票", out.Invoice.InvoiceName)
	assert.Equal(t, "24112000000012345678", out.Invoice.InvoiceNumber)
	assert.Equal(t, "住宿服务", out.Invoice.GoodsServices)
	assert.Empty(t, out.Invoice.Amount)
	assert.Equal(t, extract.StrategyFilename, out.Provenance[domain.FieldInvoiceNumber].Strategy)
}
