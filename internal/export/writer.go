package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"docextract/internal/domain"
	"docextract/internal/service"
)

// UTF-8 BOM bytes so spreadsheet tools on Windows detect the encoding.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// Column is one exported field with its ledger header.
type Column struct {
	Header string
	Field  domain.Field
	Width  float64
}

var invoiceColumns = []Column{
	{"发票名称", domain.FieldInvoiceName, 15},
	{"发票号码", domain.FieldInvoiceNumber, 15},
	{"开票日期", domain.FieldIssueDate, 12},
	{"购买方名称", domain.FieldBuyerName, 25},
	{"购买方纳税人识别号", domain.FieldBuyerTaxID, 20},
	{"销售方名称", domain.FieldSellerName, 25},
	{"销售方纳税人识别号", domain.FieldSellerTaxID, 20},
	{"货物或应税劳务、服务名称", domain.FieldGoodsServices, 30},
	{"税率", domain.FieldTaxRate, 10},
	{"金额", domain.FieldAmount, 15},
	{"税额", domain.FieldTaxAmount, 15},
	{"价税合计", domain.FieldTotalAmount, 15},
}

var contractColumns = []Column{
	{"合同编号", domain.FieldContractNumber, 15},
	{"合同名称", domain.FieldContractName, 25},
	{"合同类型", domain.FieldContractType, 15},
	{"签订日期", domain.FieldSignDate, 12},
	{"生效日期", domain.FieldEffectiveDate, 12},
	{"到期日期", domain.FieldExpiryDate, 12},
	{"甲方", domain.FieldPartyA, 25},
	{"乙方", domain.FieldPartyB, 25},
	{"交付标的/内容", domain.FieldDeliverables, 30},
	{"合同金额", domain.FieldContractAmount, 15},
	{"支付时间/期限", domain.FieldPaymentTerms, 25},
	{"履行地点", domain.FieldPerformanceLocation, 20},
	{"履约期限", domain.FieldPerformancePeriod, 20},
	{"备注", domain.FieldRemarks, 20},
}

// Leading and trailing metadata columns around the field columns.
var (
	leadHeaders  = []string{"文件名", "解析状态", "提取质量"}
	trailHeaders = []string{"错误信息"}
)

// Columns returns the field columns exported for kind.
func Columns(kind domain.DocumentKind) ([]Column, error) {
	switch kind {
	case domain.DocumentKindInvoice:
		return invoiceColumns, nil
	case domain.DocumentKindContract:
		return contractColumns, nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrInvalidDocumentKind, kind)
}

// Headers returns the full header row for kind.
func Headers(kind domain.DocumentKind) ([]string, error) {
	cols, err := Columns(kind)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(leadHeaders)+len(cols)+len(trailHeaders))
	out = append(out, leadHeaders...)
	for _, c := range cols {
		out = append(out, c.Header)
	}
	return append(out, trailHeaders...), nil
}

// Writer wraps csv.Writer for exporting batch items of one document kind.
type Writer struct {
	csv  *csv.Writer
	kind domain.DocumentKind
	cols []Column
}

// NewWriter creates a Writer that writes CSV rows for kind to w.
func NewWriter(w io.Writer, kind domain.DocumentKind) (*Writer, error) {
	cols, err := Columns(kind)
	if err != nil {
		return nil, err
	}
	return &Writer{csv: csv.NewWriter(w), kind: kind, cols: cols}, nil
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	h, _ := Headers(w.kind)
	return w.csv.Write(h)
}

// WriteItems converts batch items to rows and writes them.
func (w *Writer) WriteItems(items []service.BatchItem) error {
	for i := range items {
		if err := w.csv.Write(itemToRow(&items[i], w.cols)); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

// WriteCSV writes a BOM-prefixed CSV ledger of items to w.
func WriteCSV(w io.Writer, kind domain.DocumentKind, items []service.BatchItem) error {
	cw, err := NewWriter(w, kind)
	if err != nil {
		return err
	}
	if _, err := w.Write(BOM); err != nil {
		return err
	}
	if err := cw.WriteHeader(); err != nil {
		return err
	}
	if err := cw.WriteItems(items); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// itemToRow fills the metadata columns for every item and the field columns
// only when the item carries a result.
func itemToRow(item *service.BatchItem, cols []Column) []string {
	row := make([]string, len(leadHeaders)+len(cols)+len(trailHeaders))
	row[0] = item.Filename
	row[1] = Status(item)
	row[2] = string(item.Quality)
	if item.Fields != nil {
		for i, c := range cols {
			row[len(leadHeaders)+i] = item.Fields.Get(c.Field)
		}
	}
	if item.Err != nil {
		row[len(row)-1] = item.Err.Error()
	}
	return row
}

// Status names the outcome of a batch item.
func Status(item *service.BatchItem) string {
	switch {
	case item.Err == nil:
		return item.State.String()
	case errors.Is(item.Err, domain.ErrFileTooLarge):
		return "rejected"
	case errors.Is(item.Err, domain.ErrBatchTimeout):
		return "timed_out"
	}
	return "failed"
}

// unsafeChars matches characters that are not Han, alphanumeric, hyphen, or underscore.
var unsafeChars = regexp.MustCompile(`[^\p{Han}a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a batch name for use as a file name. Unsafe
// characters become _, runs of underscores collapse, and the result is
// truncated to 100 runes.
func SanitizeFilename(name string) string {
	s := unsafeChars.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if r := []rune(s); len(r) > 100 {
		s = string(r[:100])
	}
	return s
}

// BuildFilename returns {sanitized_name}_{YYYYMMDD}.{ext}.
func BuildFilename(name, ext string, now time.Time) string {
	s := SanitizeFilename(name)
	if s == "" {
		s = "export"
	}
	return fmt.Sprintf("%s_%s.%s", s, now.Format("20060102"), strings.TrimPrefix(ext, "."))
}
