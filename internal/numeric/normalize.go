// Package numeric parses money and percentage fragments found on Chinese
// invoices and contracts into exact decimals.
package numeric

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"docextract/internal/domain"
)

// MaxAmount bounds any monetary value the normalizer accepts (one hundred billion yuan).
var MaxAmount = decimal.New(1, 11)

var (
	mantissaPattern = regexp.MustCompile(`^\d+(?:\.\d+)?$`)

	tenThousand = decimal.New(1, 4)
	thousand    = decimal.New(1, 3)
	hundred     = decimal.New(1, 2)
)

// NormalizeError reports why a fragment was rejected.
type NormalizeError struct {
	Input  string
	Reason string
}

func (e *NormalizeError) Error() string {
	return fmt.Sprintf("normalize %q: %s", e.Input, e.Reason)
}

func (e *NormalizeError) Unwrap() error {
	return domain.ErrNormalize
}

func reject(input, reason string) error {
	return &NormalizeError{Input: input, Reason: reason}
}

// Fold applies NFKC so full-width digits, separators, currency and percent
// glyphs become their ASCII forms.
func Fold(s string) string {
	return norm.NFKC.String(s)
}

// ParseAmount parses a monetary fragment such as "¥1,130.00", "12.5万元" or
// "3千元". The suffix multiplier is applied after the mantissa is parsed.
// Zero, negative and implausibly large values are rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	body := strings.TrimSpace(Fold(s))
	if body == "" {
		return decimal.Zero, reject(s, "empty")
	}
	if strings.HasSuffix(body, "%") {
		return decimal.Zero, reject(s, "percentage is not an amount")
	}

	body = strings.TrimPrefix(body, "人民币")
	body = strings.TrimPrefix(body, "RMB")
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "整")

	multiplier := decimal.New(1, 0)
	switch {
	case strings.HasSuffix(body, "万元"):
		body, multiplier = strings.TrimSuffix(body, "万元"), tenThousand
	case strings.HasSuffix(body, "千元"):
		body, multiplier = strings.TrimSuffix(body, "千元"), thousand
	case strings.HasSuffix(body, "万"):
		body, multiplier = strings.TrimSuffix(body, "万"), tenThousand
	case strings.HasSuffix(body, "千"):
		body, multiplier = strings.TrimSuffix(body, "千"), thousand
	case strings.HasSuffix(body, "元"):
		body = strings.TrimSuffix(body, "元")
	}

	mantissa, err := cleanMantissa(s, body)
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(mantissa)
	if err != nil {
		return decimal.Zero, reject(s, err.Error())
	}
	d = d.Mul(multiplier)

	if !d.IsPositive() {
		return decimal.Zero, reject(s, "amount must be positive")
	}
	if d.GreaterThan(MaxAmount) {
		return decimal.Zero, reject(s, "amount out of range")
	}
	return d, nil
}

// ParsePercent parses "13%" into 13. The literal percentage number is kept
// rather than a fraction. Values outside [0, 100] are rejected.
func ParsePercent(s string) (decimal.Decimal, error) {
	body := strings.TrimSpace(Fold(s))
	if !strings.HasSuffix(body, "%") {
		return decimal.Zero, reject(s, "missing percent sign")
	}
	mantissa, err := cleanMantissa(s, strings.TrimSuffix(body, "%"))
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(mantissa)
	if err != nil {
		return decimal.Zero, reject(s, err.Error())
	}
	if d.IsNegative() || d.GreaterThan(hundred) {
		return decimal.Zero, reject(s, "percentage out of range")
	}
	return d, nil
}

// FormatAmount renders a canonical money string with two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatPercent renders a percentage in display form, e.g. "13%".
func FormatPercent(d decimal.Decimal) string {
	return d.String() + "%"
}

func cleanMantissa(input, body string) (string, error) {
	body = strings.TrimSpace(body)
	body = strings.TrimPrefix(body, "¥")
	body = strings.TrimPrefix(body, "￥")
	body = strings.TrimSpace(body)
	body = strings.NewReplacer(",", "", "，", "", " ", "").Replace(body)
	if body == "" {
		return "", reject(input, "no digits")
	}
	if !mantissaPattern.MatchString(body) {
		return "", reject(input, "not a decimal number")
	}
	return body, nil
}
