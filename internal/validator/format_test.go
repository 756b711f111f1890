package validator_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docextract/internal/domain"
	"docextract/internal/validator"
)

func newRegistry() *validator.Registry {
	return validator.NewBuiltinRegistry(validator.Options{
		MinYear: 2015,
		Now:     func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) },
	})
}

func TestBuiltinRegistry_Keys(t *testing.T) {
	r := newRegistry()
	keys := r.Keys()
	assert.Contains(t, keys, validator.RuleDate)
	assert.Contains(t, keys, validator.RuleTaxID)
	assert.Contains(t, keys, validator.RuleContractAmount)
	assert.Len(t, keys, 14)
}

func TestRegistry_MustGetPanicsOnUnknownKey(t *testing.T) {
	r := validator.NewRegistry()
	assert.Panics(t, func() { r.MustGet("fmt.unknown") })
	assert.Nil(t, r.Get("fmt.unknown"))
}

func TestFieldValidators(t *testing.T) {
	r := newRegistry()

	tests := []struct {
		name    string
		rule    string
		input   string
		want    string
		wantErr bool
	}{
		{"special number 20 digits", validator.RuleInvoiceNumberSpecial, "24442000000123456789", "24442000000123456789", false},
		{"special number date-like prefix", validator.RuleInvoiceNumberSpecial, "20240315000000000001", "", true},
		{"special number letters", validator.RuleInvoiceNumberSpecial, "24A420000001", "", true},
		{"ordinary number 8 digits", validator.RuleInvoiceNumberOrdinary, "12345678", "12345678", false},
		{"ordinary number invoice code prefix", validator.RuleInvoiceNumberOrdinary, "04400123", "", true},
		{"ordinary number too long", validator.RuleInvoiceNumberOrdinary, "1234567890123", "", true},
		{"full-width digits fold", validator.RuleInvoiceNumberOrdinary, "１２３４５６７８", "12345678", false},

		{"invoice name", validator.RuleInvoiceName, "增值税专用发票", "增值税专用发票", false},
		{"invoice name without keyword", validator.RuleInvoiceName, "销售清单", "", true},

		{"date chinese", validator.RuleDate, "2024年03月15日", "2024-03-15", false},
		{"date chinese spaced", validator.RuleDate, "2023 年 3 月 7 日", "2023-03-07", false},
		{"date dashed", validator.RuleDate, "2024-3-5", "2024-03-05", false},
		{"date slashed", validator.RuleDate, "2024/03/05", "2024-03-05", false},
		{"date compact", validator.RuleDate, "20230307", "2023-03-07", false},
		{"date before min year", validator.RuleDate, "2010年01月01日", "", true},
		{"date beyond next year", validator.RuleDate, "2030-01-01", "", true},
		{"date next year accepted", validator.RuleDate, "2025-12-31", "2025-12-31", false},
		{"date not on calendar", validator.RuleDate, "2024-02-30", "", true},

		{"tax rate percent", validator.RuleTaxRate, "13%", "13%", false},
		{"tax rate full-width", validator.RuleTaxRate, "６％", "6%", false},
		{"tax rate exempt", validator.RuleTaxRate, "*", "*", false},
		{"tax rate above 30", validator.RuleTaxRate, "45%", "", true},
		{"tax rate bare number", validator.RuleTaxRate, "13", "", true},

		{"amount yen", validator.RuleInvoiceAmount, "¥1,000.00", "1000.00", false},
		{"amount zero", validator.RuleInvoiceAmount, "0.00", "", true},
		{"amount too large for invoice", validator.RuleInvoiceAmount, "5000000000", "", true},
		{"tax amount exempt", validator.RuleTaxAmount, "*", "*", false},
		{"tax amount", validator.RuleTaxAmount, "¥130", "130.00", false},
		{"contract amount wan", validator.RuleContractAmount, "12.5万元", "125000.00", false},

		{"party name", validator.RulePartyName, "北京某某科技有限公司", "北京某某科技有限公司", false},
		{"party name label line", validator.RulePartyName, "名称：北京某某科技有限公司", "", true},
		{"party name single rune", validator.RulePartyName, "甲", "", true},

		{"tax id 18", validator.RuleTaxID, "91110000MA01ABCD2X", "91110000MA01ABCD2X", false},
		{"tax id lowercase", validator.RuleTaxID, "91110000ma01abcd2x", "91110000MA01ABCD2X", false},
		{"tax id too short", validator.RuleTaxID, "9111000012", "", true},
		{"tax id too few digits", validator.RuleTaxID, "ABCDEFGHIJKLMNO12", "", true},

		{"goods", validator.RuleGoodsServices, "*现代服务*技术服务费", "*现代服务*技术服务费", false},
		{"goods ascii only", validator.RuleGoodsServices, "ABC", "", true},
		{"goods with control byte", validator.RuleGoodsServices, "k郸\x01zW塑", "", true},
		{"goods with replacement char", validator.RuleGoodsServices, "技术\uFFFD服务", "", true},

		{"contract number", validator.RuleContractNumber, "HT-2024-001", "HT-2024-001", false},
		{"contract number no digits", validator.RuleContractNumber, "ABCD", "", true},

		{"short text", validator.RuleShortText, "  技术服务合同 ", "技术服务合同", false},
		{"long text too short", validator.RuleLongText, "a", "", true},
		{"short text with nul", validator.RuleShortText, "合同\x00名称", "", true},
		{"long text with replacement char", validator.RuleLongText, "软件开发\uFFFD服务", "", true},
		{"party name with control byte", validator.RulePartyName, "北京\x02科技有限公司", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.MustGet(tc.rule).Validate(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrNormalize), "error should wrap ErrNormalize: %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRejectError_Message(t *testing.T) {
	_, err := newRegistry().MustGet(validator.RuleTaxID).Validate("123")

	var rej *validator.RejectError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, validator.RuleTaxID, rej.Rule)
	assert.Contains(t, err.Error(), validator.RuleTaxID)
}
