package extract

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"docextract/internal/domain"
	"docextract/internal/numeric"
	"docextract/internal/validator"
)

var ordinaryInvoiceNames = []string{
	"增值税电子普通发票",
	"普通发票（电子）",
	"电子普通发票",
	"增值税普通发票",
	"普通发票",
}

var (
	ordinaryNumberPattern = regexp.MustCompile(`发票号码\s*:?\s*(\d{6,20})`)
	eightDigitPattern     = regexp.MustCompile(`\b\d{8}\b`)
	shortNumberPattern    = regexp.MustCompile(`\b\d{6,12}\b`)
	tokenAmountPattern    = regexp.MustCompile(`^¥?\s*(\d[\d,]*(?:\.\d+)?)$`)
)

// ordinaryProfile extracts ordinary electronic invoices. Their layout varies
// more than the special form, so positional strategies come early.
func ordinaryProfile() *Profile {
	return &Profile{
		Name:    "invoice.ordinary",
		Kind:    domain.DocumentKindInvoice,
		Subtype: domain.InvoiceSubtypeOrdinary,
		Fields: []FieldSpec{
			{Field: domain.FieldInvoiceName, Rule: validator.RuleInvoiceName, Strategies: []Strategy{
				invoiceNameStrategy(ordinaryInvoiceNames, titleText),
				filenameInvoiceName(domain.InvoiceSubtypeOrdinary),
			}},
			{Field: domain.FieldInvoiceNumber, Rule: validator.RuleInvoiceNumberOrdinary, Strategies: []Strategy{
				anchoredPattern(ordinaryNumberPattern),
				layoutNumberRightOfLabel(),
				topRightNumber(),
				globalEightDigits(),
				filenameInvoiceNumber(),
			}},
			{Field: domain.FieldIssueDate, Rule: validator.RuleDate, Strategies: []Strategy{
				anchoredIssueDate(),
				layoutIssueDate(),
				globalIssueDate(),
			}},
			{Field: domain.FieldBuyerName, Rule: validator.RulePartyName, Strategies: []Strategy{
				anchoredPartyName(buyer),
				layoutPartyName(buyer),
				sectionPartyName(buyer),
				companyLinePartyName(buyer),
			}},
			{Field: domain.FieldBuyerTaxID, Rule: validator.RuleTaxID, Strategies: []Strategy{
				layoutTaxID(buyer),
				sectionTaxID(buyer),
				sequentialTaxID(buyer),
			}},
			{Field: domain.FieldSellerName, Rule: validator.RulePartyName, Strategies: []Strategy{
				anchoredPartyName(seller),
				layoutPartyName(seller),
				sectionPartyName(seller),
				companyLinePartyName(seller),
			}},
			{Field: domain.FieldSellerTaxID, Rule: validator.RuleTaxID, Strategies: []Strategy{
				layoutTaxID(seller),
				sectionTaxID(seller),
				sequentialTaxID(seller),
			}},
			{Field: domain.FieldGoodsServices, Rule: validator.RuleGoodsServices, Strategies: []Strategy{
				starredServiceToken(),
				scoredGoodsRows(),
				starredServiceLine(),
				commonServiceScan(),
				filenameGoods(),
			}},
			{Field: domain.FieldTaxRate, Rule: validator.RuleTaxRate, Strategies: []Strategy{
				exemptStrategy(),
				anchoredRate(),
				rateColumn(),
				globalRate("13", "9", "6", "3", "1", "0"),
			}},
			{Field: domain.FieldAmount, Rule: validator.RuleInvoiceAmount, Strategies: []Strategy{
				anchoredPattern(anchoredAmountPattern),
				summaryRowAmount(false),
				summaryColumnIntersection("金额"),
				layoutSummaryRow(false),
			}},
			{Field: domain.FieldTaxAmount, Rule: validator.RuleTaxAmount, Strategies: []Strategy{
				exemptStrategy(),
				anchoredPattern(anchoredTaxPattern),
				summaryRowAmount(true),
				summaryColumnIntersection("税额"),
				layoutSummaryRow(true),
				derivedTax(),
			}},
			{Field: domain.FieldTotalAmount, Rule: validator.RuleInvoiceAmount, Strategies: []Strategy{
				anchoredPattern(anchoredTotalPattern),
				totalLine(),
				layoutTotalNearLabel(),
				largestYen(),
				derivedTotal(),
			}},
		},
	}
}

// titleText joins the tokens printed in the title band of the first page.
func titleText(src *Source) string {
	var parts []string
	for _, t := range src.Tokens {
		if t.Y < 3 {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "")
}

// topRightNumber reads the number box in the top-right corner.
func topRightNumber() Strategy {
	return proximity(func(r *Resolver) []domain.FieldCandidate {
		src := r.Source()
		if !src.HasLayout() {
			return nil
		}
		corner := func(t domain.TextToken) bool { return t.X > 10 && t.Y < 8 }
		var eight, other []domain.TextToken
		for _, t := range src.Tokens {
			if !corner(t) {
				continue
			}
			if eightDigitPattern.MatchString(t.Text) {
				eight = append(eight, t)
			} else if shortNumberPattern.MatchString(t.Text) {
				other = append(other, t)
			}
		}
		pick := func(s string) string {
			if m := eightDigitPattern.FindString(s); m != "" {
				return m
			}
			return shortNumberPattern.FindString(s)
		}
		return tokenCandidates(append(eight, other...), pick)
	})
}

func globalEightDigits() Strategy {
	return globalScan(func(r *Resolver) []domain.FieldCandidate {
		return candidates(eightDigitPattern.FindAllString(r.Source().Text, -1)...)
	})
}

// cleanServiceName turns "*物流辅助服务*收派服务费" into "物流辅助服务收派服务费".
func cleanServiceName(s string) string {
	s = strings.TrimSpace(s)
	if m := starContentPattern.FindStringSubmatchIndex(s); m != nil {
		s = s[m[2]:m[3]] + s[m[1]:] + s[:m[0]]
	}
	return strings.Join(strings.Fields(s), "")
}

func isServiceText(s string) bool {
	return containsAny(s, "物流", "辅助", "收派", "服务")
}

// starredServiceToken looks for a *label* token naming a service.
func starredServiceToken() Strategy {
	return globalScan(func(r *Resolver) []domain.FieldCandidate {
		toks := r.Source().FindTokens(func(s string) bool {
			return strings.Count(s, "*") >= 2 && isServiceText(s)
		})
		return tokenCandidates(toks, cleanServiceName)
	})
}

// scoredGoodsRows ranks the rows under the goods header by how much they look
// like a service description.
func scoredGoodsRows() Strategy {
	return tableColumn(func(r *Resolver) []domain.FieldCandidate {
		src := r.Source()
		if !src.HasLayout() {
			return nil
		}
		type scored struct {
			tok   domain.TextToken
			score int
		}
		var rows []scored
		for _, header := range src.FindTokens(func(s string) bool {
			return containsAny(s, "货物或应税劳务", "服务名称", "项目名称")
		}) {
			for _, t := range src.Near(header, func(dx, dy float64) bool { return dy > 0 && dy <= 3 }) {
				if t.X >= 6 || !hasHan(t.Text) {
					continue
				}
				score := 0
				if strings.Contains(t.Text, "*") {
					score += 3
				}
				if containsAny(t.Text, "物流", "辅助", "收派") {
					score += 2
				}
				if containsAny(t.Text, "服务", "费") {
					score++
				}
				if utf8.RuneCountInString(t.Text) > 5 {
					score++
				}
				if score > 0 {
					rows = append(rows, scored{tok: t, score: score})
				}
			}
		}
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].score > rows[j].score })
		toks := make([]domain.TextToken, len(rows))
		for i, s := range rows {
			toks[i] = s.tok
		}
		return tokenCandidates(toks, cleanServiceName)
	})
}

// starredServiceLine is starredServiceToken for text-only documents.
func starredServiceLine() Strategy {
	return globalScan(func(r *Resolver) []domain.FieldCandidate {
		var out []string
		for _, line := range r.Source().Lines {
			for _, f := range strings.Fields(line) {
				if strings.Count(f, "*") >= 2 && isServiceText(f) {
					out = append(out, cleanServiceName(f))
				}
			}
		}
		return candidates(out...)
	})
}

// rateColumn reads percentages under the 税率 header.
func rateColumn() Strategy {
	return tableColumn(func(r *Resolver) []domain.FieldCandidate {
		src := r.Source()
		if !src.HasLayout() {
			return nil
		}
		var out []string
		for _, header := range src.FindTokens(func(s string) bool { return containsAny(s, "税率", "征收率") }) {
			below := src.Near(header, func(dx, dy float64) bool { return math.Abs(dx) < 3 && dy > 0 && dy <= 6 })
			for _, t := range below {
				out = append(out, percents(t.Text)...)
			}
		}
		return candidates(out...)
	})
}

func tokenAmount(s string) string {
	if m := tokenAmountPattern.FindStringSubmatch(strings.TrimSpace(s)); m != nil {
		return m[1]
	}
	return ""
}

func summaryLabels(src *Source) []domain.TextToken {
	return src.FindTokens(func(s string) bool {
		compact := strings.Join(strings.Fields(s), "")
		return strings.Contains(compact, "合计") && !strings.Contains(compact, "价税合计")
	})
}

// summaryColumnIntersection reads the cell where the 合计 row crosses the
// given column header.
func summaryColumnIntersection(column string) Strategy {
	return tableColumn(func(r *Resolver) []domain.FieldCandidate {
		src := r.Source()
		if !src.HasLayout() {
			return nil
		}
		totals := summaryLabels(src)
		headers := src.FindTokens(func(s string) bool {
			return strings.Join(strings.Fields(s), "") == column
		})
		if len(totals) == 0 || len(headers) == 0 {
			return nil
		}
		row, col := totals[0], headers[0]
		var toks []domain.TextToken
		for _, t := range src.Tokens {
			if t.Page == row.Page && math.Abs(t.Y-row.Y) < 1 && math.Abs(t.X-col.X) < 4 && tokenAmount(t.Text) != "" {
				toks = append(toks, t)
			}
		}
		return tokenCandidates(toks, tokenAmount)
	})
}

// layoutSummaryRow applies the largest/smallest policy to the amounts on the
// 合计 row when the text lines did not keep the row together.
func layoutSummaryRow(wantTax bool) Strategy {
	return tableColumn(func(r *Resolver) []domain.FieldCandidate {
		src := r.Source()
		if !src.HasLayout() {
			return nil
		}
		totals := summaryLabels(src)
		if len(totals) == 0 {
			return nil
		}
		row := totals[0]
		var toks []domain.TextToken
		for _, t := range src.Near(row, func(dx, dy float64) bool { return dx > 0 && math.Abs(dy) < 0.8 }) {
			if !strings.Contains(t.Text, "%") && tokenAmount(t.Text) != "" {
				toks = append(toks, t)
			}
		}
		if len(toks) == 0 || (wantTax && len(toks) < 2) {
			return nil
		}
		sort.SliceStable(toks, func(i, j int) bool {
			a, _ := numeric.ParseAmount(tokenAmount(toks[i].Text))
			b, _ := numeric.ParseAmount(tokenAmount(toks[j].Text))
			if wantTax {
				return a.LessThan(b)
			}
			return a.GreaterThan(b)
		})
		return tokenCandidates(toks[:1], tokenAmount)
	})
}

// layoutTotalNearLabel reads amounts right of the 价税合计 or 小写 label.
func layoutTotalNearLabel() Strategy {
	return proximity(func(r *Resolver) []domain.FieldCandidate {
		src := r.Source()
		if !src.HasLayout() {
			return nil
		}
		var toks []domain.TextToken
		for _, label := range src.FindTokens(func(s string) bool { return containsAny(s, "价税合计", "小写") }) {
			for _, t := range src.Near(label, func(dx, dy float64) bool { return dx > 0 && math.Abs(dy) < 1 }) {
				if tokenAmount(t.Text) != "" {
					toks = append(toks, t)
				}
			}
		}
		sort.SliceStable(toks, func(i, j int) bool {
			a, _ := numeric.ParseAmount(tokenAmount(toks[i].Text))
			b, _ := numeric.ParseAmount(tokenAmount(toks[j].Text))
			return a.GreaterThan(b)
		})
		return tokenCandidates(toks, tokenAmount)
	})
}
