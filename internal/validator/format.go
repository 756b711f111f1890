package validator

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"docextract/internal/numeric"
)

// Rule keys of the built-in validators.
const (
	RuleInvoiceNumberSpecial  = "fmt.invoice_number.special"
	RuleInvoiceNumberOrdinary = "fmt.invoice_number.ordinary"
	RuleInvoiceName           = "fmt.invoice_name"
	RuleDate                  = "fmt.date"
	RuleTaxRate               = "fmt.tax_rate"
	RuleInvoiceAmount         = "fmt.amount.invoice"
	RuleTaxAmount             = "fmt.amount.tax"
	RuleContractAmount        = "fmt.amount.contract"
	RulePartyName             = "fmt.party_name"
	RuleTaxID                 = "fmt.tax_id"
	RuleGoodsServices         = "fmt.goods_services"
	RuleContractNumber        = "fmt.contract_number"
	RuleShortText             = "fmt.text.short"
	RuleLongText              = "fmt.text.long"
)

// TaxExempt is the literal reported for tax rate and tax amount on exempt invoices.
const TaxExempt = "*"

var (
	digitRunPattern       = regexp.MustCompile(`^\d+$`)
	taxIDPattern          = regexp.MustCompile(`^[0-9A-Z]{15,18}$`)
	contractNumberPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9\-_/.]{2,39}$`)
	compactDatePattern    = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)
	splitDatePattern      = regexp.MustCompile(`^(\d{4})\s*[年\-/.\s]\s*(\d{1,2})\s*[月\-/.\s]\s*(\d{1,2})\s*日?$`)

	maxInvoiceAmount = decimal.New(1, 9)
	maxTaxRate       = decimal.New(30, 0)
)

// Invoice numbers that start like a date or a known tax-ID / invoice-code
// prefix are rejected.
var (
	specialNumberExclusions  = []string{"19", "20", "911", "914"}
	ordinaryNumberExclusions = []string{"19", "20", "911", "914", "044", "172", "0"}
)

// Party-name candidates containing these labels are label lines, not names.
var partyLabelTokens = []string{"纳税人识别号", "识别号", "地址", "名称", "开户行", "电话"}

// FieldValidators returns all built-in field validators.
func FieldValidators(opts Options) []Validator {
	opts = opts.withDefaults()
	return []Validator{
		&fieldValidator{
			ruleKey: RuleInvoiceNumberSpecial, ruleName: "Invoice number (special)",
			validate: func(v string) (string, error) {
				return invoiceNumberCheck(RuleInvoiceNumberSpecial, v, 6, 25, specialNumberExclusions)
			},
		},
		&fieldValidator{
			ruleKey: RuleInvoiceNumberOrdinary, ruleName: "Invoice number (ordinary)",
			validate: func(v string) (string, error) {
				return invoiceNumberCheck(RuleInvoiceNumberOrdinary, v, 6, 12, ordinaryNumberExclusions)
			},
		},
		&fieldValidator{
			ruleKey: RuleInvoiceName, ruleName: "Invoice title",
			validate: func(v string) (string, error) {
				v = collapseSpace(v)
				if !strings.Contains(v, "发票") {
					return "", rejectf(RuleInvoiceName, v, "is not an invoice title")
				}
				return textCheck(RuleInvoiceName, v, 4, 40)
			},
		},
		&fieldValidator{
			ruleKey: RuleDate, ruleName: "Calendar date",
			validate: func(v string) (string, error) {
				return dateCheck(RuleDate, v, opts.MinYear, opts.Now().Year()+1)
			},
		},
		&fieldValidator{
			ruleKey: RuleTaxRate, ruleName: "Tax rate",
			validate: func(v string) (string, error) {
				v = strings.TrimSpace(numeric.Fold(v))
				if v == TaxExempt {
					return TaxExempt, nil
				}
				d, err := numeric.ParsePercent(v)
				if err != nil {
					return "", err
				}
				if d.GreaterThan(maxTaxRate) {
					return "", rejectf(RuleTaxRate, v, "is above 30%%")
				}
				return numeric.FormatPercent(d), nil
			},
		},
		&fieldValidator{
			ruleKey: RuleInvoiceAmount, ruleName: "Invoice amount",
			validate: func(v string) (string, error) {
				return amountCheck(RuleInvoiceAmount, v, maxInvoiceAmount)
			},
		},
		&fieldValidator{
			ruleKey: RuleTaxAmount, ruleName: "Tax amount",
			validate: func(v string) (string, error) {
				if strings.TrimSpace(v) == TaxExempt {
					return TaxExempt, nil
				}
				return amountCheck(RuleTaxAmount, v, maxInvoiceAmount)
			},
		},
		&fieldValidator{
			ruleKey: RuleContractAmount, ruleName: "Contract amount",
			validate: func(v string) (string, error) {
				return amountCheck(RuleContractAmount, v, numeric.MaxAmount)
			},
		},
		&fieldValidator{
			ruleKey: RulePartyName, ruleName: "Party name",
			validate: partyNameCheck,
		},
		&fieldValidator{
			ruleKey: RuleTaxID, ruleName: "Taxpayer ID",
			validate: taxIDCheck,
		},
		&fieldValidator{
			ruleKey: RuleGoodsServices, ruleName: "Goods or services",
			validate: func(v string) (string, error) {
				v = collapseSpace(v)
				if !hasHan(v) {
					return "", rejectf(RuleGoodsServices, v, "has no Chinese text")
				}
				return textCheck(RuleGoodsServices, v, 2, 100)
			},
		},
		&fieldValidator{
			ruleKey: RuleContractNumber, ruleName: "Contract number",
			validate: func(v string) (string, error) {
				v = strings.TrimSpace(numeric.Fold(v))
				if !contractNumberPattern.MatchString(v) {
					return "", rejectf(RuleContractNumber, v, "is not a contract number")
				}
				if !strings.ContainsAny(v, "0123456789") {
					return "", rejectf(RuleContractNumber, v, "has no digits")
				}
				return v, nil
			},
		},
		&fieldValidator{
			ruleKey: RuleShortText, ruleName: "Short text",
			validate: func(v string) (string, error) {
				return textCheck(RuleShortText, collapseSpace(v), 2, 50)
			},
		},
		&fieldValidator{
			ruleKey: RuleLongText, ruleName: "Long text",
			validate: func(v string) (string, error) {
				return textCheck(RuleLongText, collapseSpace(v), 2, 200)
			},
		},
	}
}

func invoiceNumberCheck(rule, value string, minLen, maxLen int, excluded []string) (string, error) {
	v := strings.TrimSpace(numeric.Fold(value))
	if !digitRunPattern.MatchString(v) {
		return "", rejectf(rule, v, "is not a digit run")
	}
	if len(v) < minLen || len(v) > maxLen {
		return "", rejectf(rule, v, "length %d outside %d-%d", len(v), minLen, maxLen)
	}
	for _, p := range excluded {
		if strings.HasPrefix(v, p) {
			return "", rejectf(rule, v, "starts with excluded prefix %s", p)
		}
	}
	return v, nil
}

// dateCheck accepts the date layouts printed on invoices and contracts and
// returns YYYY-MM-DD.
func dateCheck(rule, value string, minYear, maxYear int) (string, error) {
	v := strings.TrimSpace(numeric.Fold(value))
	m := compactDatePattern.FindStringSubmatch(v)
	if m == nil {
		m = splitDatePattern.FindStringSubmatch(v)
	}
	if m == nil {
		return "", rejectf(rule, v, "is not a date")
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if year < minYear || year > maxYear {
		return "", rejectf(rule, v, "year outside %d-%d", minYear, maxYear)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return "", rejectf(rule, v, "is not a calendar date")
	}
	return t.Format("2006-01-02"), nil
}

func amountCheck(rule, value string, max decimal.Decimal) (string, error) {
	d, err := numeric.ParseAmount(value)
	if err != nil {
		return "", err
	}
	if d.GreaterThan(max) {
		return "", rejectf(rule, value, "exceeds %s", max.String())
	}
	return numeric.FormatAmount(d), nil
}

func partyNameCheck(value string) (string, error) {
	v := collapseSpace(value)
	v = strings.Trim(v, " :：;；,，。()（）")
	for _, label := range partyLabelTokens {
		if strings.Contains(v, label) {
			return "", rejectf(RulePartyName, v, "contains label %s", label)
		}
	}
	if !hasHan(v) && !hasLetter(v) {
		return "", rejectf(RulePartyName, v, "has no name characters")
	}
	return textCheck(RulePartyName, v, 2, 50)
}

func taxIDCheck(value string) (string, error) {
	v := strings.ToUpper(strings.TrimSpace(numeric.Fold(value)))
	if !taxIDPattern.MatchString(v) {
		return "", rejectf(RuleTaxID, v, "is not a 15-18 character taxpayer ID")
	}
	digits := 0
	for _, r := range v {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < 8 {
		return "", rejectf(RuleTaxID, v, "has too few digits")
	}
	return v, nil
}

func textCheck(rule, v string, minRunes, maxRunes int) (string, error) {
	for _, r := range v {
		if r == utf8.RuneError || unicode.IsControl(r) {
			return "", rejectf(rule, v, "contains non-printable character %U", r)
		}
	}
	n := utf8.RuneCountInString(v)
	if n < minRunes || n > maxRunes {
		return "", rejectf(rule, v, "length %d outside %d-%d", n, minRunes, maxRunes)
	}
	return v, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func hasHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
