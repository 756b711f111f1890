package extract

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"docextract/internal/domain"
	"docextract/internal/numeric"
	"docextract/internal/validator"
)

var specialInvoiceNames = []string{
	"电子发票（增值税专用发票）",
	"深圳增值税电子普通发票",
	"北京增值税普通发票",
	"增值税专用发票",
	"增值税普通发票",
	"增值税电子发票",
}

var commonServices = []string{
	"住宿服务", "技术服务", "咨询服务", "物流辅助服务", "收派服务费",
	"现代服务", "增值税咨询服务费", "通信服务费", "会议服务", "餐饮服务",
	"交通运输服务", "建筑服务", "销售服务", "培训服务", "维修服务",
	"信息技术服务", "研发和技术服务", "文化创意服务", "租赁服务",
	"商务辅助服务", "鉴证咨询服务",
}

var (
	specialNumberPattern = regexp.MustCompile(`发票号码\s*:?\s*(\d{15,25})`)
	longNumberPattern    = regexp.MustCompile(`\b\d{18,25}\b`)
	anyNumberPattern     = regexp.MustCompile(`\b\d{15,25}\b`)
	goodsRowPattern      = regexp.MustCompile(`(\d[\d,]*\.\d{2})\s+(\d+(?:\.\d+)?)%\s+(\d[\d,]*\.\d{2})`)
	amountOnlyRow        = regexp.MustCompile(`^[\d\s.,¥%]+$`)
	hanRunPattern        = regexp.MustCompile(`\p{Han}{2,10}`)
)

// specialProfile extracts VAT special invoices. Their text comes out of the
// tokenizer as short lines in reading order, so most strategies work on lines.
func specialProfile() *Profile {
	return &Profile{
		Name:    "invoice.special",
		Kind:    domain.DocumentKindInvoice,
		Subtype: domain.InvoiceSubtypeSpecial,
		Fields: []FieldSpec{
			{Field: domain.FieldInvoiceName, Rule: validator.RuleInvoiceName, Strategies: []Strategy{
				invoiceNameStrategy(specialInvoiceNames, nil),
				filenameInvoiceName(domain.InvoiceSubtypeSpecial),
			}},
			{Field: domain.FieldInvoiceNumber, Rule: validator.RuleInvoiceNumberSpecial, Strategies: []Strategy{
				anchoredPattern(specialNumberPattern),
				specialNumberNearLabel(),
				layoutNumberRightOfLabel(),
				specialNumberInHeader(),
				specialNumberGlobal(),
				filenameInvoiceNumber(),
			}},
			{Field: domain.FieldIssueDate, Rule: validator.RuleDate, Strategies: []Strategy{
				anchoredIssueDate(),
				layoutIssueDate(),
				globalIssueDate(),
			}},
			{Field: domain.FieldBuyerName, Rule: validator.RulePartyName, Strategies: []Strategy{
				anchoredPartyName(buyer),
				sectionPartyName(buyer),
				layoutPartyName(buyer),
				companyLinePartyName(buyer),
			}},
			{Field: domain.FieldBuyerTaxID, Rule: validator.RuleTaxID, Strategies: []Strategy{
				layoutTaxID(buyer),
				sectionTaxID(buyer),
				sequentialTaxID(buyer),
			}},
			{Field: domain.FieldSellerName, Rule: validator.RulePartyName, Strategies: []Strategy{
				anchoredPartyName(seller),
				sectionPartyName(seller),
				layoutPartyName(seller),
				companyLinePartyName(seller),
			}},
			{Field: domain.FieldSellerTaxID, Rule: validator.RuleTaxID, Strategies: []Strategy{
				layoutTaxID(seller),
				sectionTaxID(seller),
				sequentialTaxID(seller),
			}},
			{Field: domain.FieldGoodsServices, Rule: validator.RuleGoodsServices, Strategies: []Strategy{
				specialGoodsTable(),
				starContent(),
				commonServiceScan(),
				serviceWordScan(),
				filenameGoods(),
			}},
			{Field: domain.FieldTaxRate, Rule: validator.RuleTaxRate, Strategies: []Strategy{
				exemptStrategy(),
				anchoredRate(),
				rateBelowLabel(),
				globalRate("6", "13", "9", "3", "1", "0"),
			}},
			{Field: domain.FieldAmount, Rule: validator.RuleInvoiceAmount, Strategies: []Strategy{
				anchoredPattern(anchoredAmountPattern),
				goodsRowColumn(1),
				summaryRowAmount(false),
				firstYenOutsideTotal(),
			}},
			{Field: domain.FieldTaxAmount, Rule: validator.RuleTaxAmount, Strategies: []Strategy{
				exemptStrategy(),
				anchoredPattern(anchoredTaxPattern),
				goodsRowColumn(3),
				summaryRowAmount(true),
				minorYen(),
				derivedTax(),
			}},
			{Field: domain.FieldTotalAmount, Rule: validator.RuleInvoiceAmount, Strategies: []Strategy{
				anchoredPattern(anchoredTotalPattern),
				totalLine(),
				largestYen(),
				derivedTotal(),
			}},
		},
	}
}

// specialNumberNearLabel reads the number from the 发票号码 line or the three
// lines after it.
func specialNumberNearLabel() Strategy {
	return proximity(func(r *Resolver) []domain.FieldCandidate {
		src := r.Source()
		i := src.LineIndex(0, func(s string) bool { return strings.Contains(s, "发票号码") })
		if i < 0 {
			return nil
		}
		var out []string
		for _, line := range src.Window(i, 4) {
			out = append(out, anyNumberPattern.FindAllString(line, -1)...)
		}
		return candidates(out...)
	})
}

// layoutNumberRightOfLabel takes digit tokens on the label's row to its right,
// then directly below it.
func layoutNumberRightOfLabel() Strategy {
	return proximity(func(r *Resolver) []domain.FieldCandidate {
		src := r.Source()
		if !src.HasLayout() {
			return nil
		}
		var out []domain.TextToken
		for _, label := range src.FindTokens(func(s string) bool { return strings.Contains(s, "发票号码") }) {
			if m := digitRunPattern.FindString(label.Text); m != "" {
				out = append(out, domain.TextToken{Page: label.Page, X: label.X, Y: label.Y, Text: m})
			}
			right := src.Near(label, func(dx, dy float64) bool { return dx > 0 && dy > -0.8 && dy < 0.8 })
			sort.SliceStable(right, func(i, j int) bool { return right[i].X < right[j].X })
			below := src.Near(label, func(dx, dy float64) bool { return dy > 0 && dy < 1.2 && dx > -3 && dx < 3 })
			out = append(out, right...)
			out = append(out, below...)
		}
		return tokenCandidates(out, func(s string) string { return digitRunPattern.FindString(s) })
	})
}

var digitRunPattern = regexp.MustCompile(`\d{6,25}`)

// specialNumberInHeader looks for a long digit run in the title block.
func specialNumberInHeader() Strategy {
	return globalScan(func(r *Resolver) []domain.FieldCandidate {
		var out []string
		for _, line := range r.Source().Head(12) {
			out = append(out, longNumberPattern.FindAllString(line, -1)...)
		}
		return candidates(out...)
	})
}

// specialNumberGlobal prefers 18-25 digit runs starting with 2, 3 or 4, then
// any 15+ digit run.
func specialNumberGlobal() Strategy {
	return globalScan(func(r *Resolver) []domain.FieldCandidate {
		text := r.Source().Text
		var preferred, rest []string
		for _, m := range longNumberPattern.FindAllString(text, -1) {
			if strings.IndexByte("234", m[0]) >= 0 {
				preferred = append(preferred, m)
			} else {
				rest = append(rest, m)
			}
		}
		out := append(preferred, rest...)
		out = append(out, anyNumberPattern.FindAllString(text, -1)...)
		return candidates(uniqueStrings(out)...)
	})
}

// goodsTableRows returns the rows between the goods table header and the 合计
// row.
func goodsTableRows(src *Source) []string {
	start := src.LineIndex(0, func(s string) bool {
		return containsAny(s, "项目名称", "货物或应税") && containsAny(s, "规格型号", "单位", "数量")
	})
	if start < 0 {
		return nil
	}
	end := src.LineIndex(start+1, func(s string) bool { return strings.Contains(s, "合计") })
	if end < 0 {
		end = start + 8
	}
	return src.Window(start+1, end-start-1)
}

// specialGoodsTable reads the service name from the first descriptive row of
// the goods table.
func specialGoodsTable() Strategy {
	return tableColumn(func(r *Resolver) []domain.FieldCandidate {
		var out []string
		for _, line := range goodsTableRows(r.Source()) {
			if amountOnlyRow.MatchString(line) || !hasHan(line) || utf8.RuneCountInString(line) <= 2 {
				continue
			}
			if m := starContentPattern.FindStringSubmatch(line); m != nil {
				out = append(out, strings.TrimSpace(m[1]))
			}
			han := onlyHan(line)
			if rep := repeatedUnit(han); rep != "" {
				out = append(out, rep)
			}
			if strings.Contains(han, "服务") && utf8.RuneCountInString(han) <= 20 {
				out = append(out, han)
			}
			for _, svc := range commonServices {
				if strings.Contains(line, svc) {
					out = append(out, svc)
				}
			}
			if m := hanRunPattern.FindString(line); m != "" && (containsAny(m, "服务", "费") || utf8.RuneCountInString(m) >= 4) {
				out = append(out, m)
			}
		}
		return candidates(out...)
	})
}

// starContent reads the first *label* in the document.
func starContent() Strategy {
	return globalScan(func(r *Resolver) []domain.FieldCandidate {
		var out []string
		for _, m := range starContentPattern.FindAllStringSubmatch(r.Source().Text, -1) {
			c := strings.TrimSpace(m[1])
			if utf8.RuneCountInString(c) > 1 && hasHan(c) && !strings.Contains(c, "¥") && !startsWithDigit(c) {
				out = append(out, c)
			}
		}
		return candidates(out...)
	})
}

func commonServiceScan() Strategy {
	return globalScan(func(r *Resolver) []domain.FieldCandidate {
		for _, svc := range commonServices {
			if strings.Contains(r.Source().Text, svc) {
				return candidates(svc)
			}
		}
		return nil
	})
}

func serviceWordScan() Strategy {
	return globalScan(func(r *Resolver) []domain.FieldCandidate {
		var out []string
		for _, m := range hanServicePattern.FindAllString(r.Source().Text, -1) {
			if n := utf8.RuneCountInString(m); n >= 4 && n <= 20 {
				out = append(out, m)
			}
		}
		return candidates(out...)
	})
}

// rateBelowLabel reads percentages on the 税率 line and the four after it.
func rateBelowLabel() Strategy {
	return proximity(func(r *Resolver) []domain.FieldCandidate {
		src := r.Source()
		i := src.LineIndex(0, func(s string) bool { return containsAny(s, "税率", "征收率") })
		if i < 0 {
			return nil
		}
		return candidates(percents(strings.Join(src.Window(i, 5), " "))...)
	})
}

// goodsRowColumn reads "amount rate% tax" goods rows; group 1 is the amount,
// group 3 the tax.
func goodsRowColumn(group int) Strategy {
	return tableColumn(func(r *Resolver) []domain.FieldCandidate {
		var out []string
		for _, m := range r.Source().LineSubmatches(goodsRowPattern) {
			out = append(out, m[group])
		}
		return candidates(out...)
	})
}

func firstYenOutsideTotal() Strategy {
	return globalScan(func(r *Resolver) []domain.FieldCandidate {
		for _, line := range r.Source().Lines {
			if containsAny(line, "价税合计", "小写") {
				continue
			}
			if amts := yenAmounts(line); len(amts) > 0 {
				return candidates(numeric.FormatAmount(amts[0]))
			}
		}
		return nil
	})
}

// minorYen picks the largest ¥ amount that is under a fifth of the largest
// one on the page, which on a one-rate invoice is the tax.
func minorYen() Strategy {
	return globalScan(func(r *Resolver) []domain.FieldCandidate {
		amts := yenAmounts(r.Source().Text)
		top, ok := largest(amts)
		if !ok {
			return nil
		}
		sortDesc(amts)
		for _, a := range amts {
			if a.IsPositive() && top.Div(a).GreaterThan(five) {
				return candidates(numeric.FormatAmount(a))
			}
		}
		return nil
	})
}

func onlyHan(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// repeatedUnit returns u when s is u repeated at least twice.
func repeatedUnit(s string) string {
	runes := []rune(s)
	if len(runes) < 4 {
		return ""
	}
	for n := 2; n <= len(runes)/2; n++ {
		if len(runes)%n != 0 {
			continue
		}
		unit := string(runes[:n])
		if strings.Repeat(unit, len(runes)/n) == s {
			return unit
		}
	}
	return ""
}

func hasHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}
