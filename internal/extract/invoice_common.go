package extract

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"docextract/internal/domain"
	"docextract/internal/numeric"
	"docextract/internal/validator"
)

type party int

const (
	buyer party = iota
	seller
)

var (
	buyerLabels  = []string{"购买方", "购方", "收票方", "买方"}
	sellerLabels = []string{"销售方", "销方", "开票方", "卖方"}

	buyerNamePattern  = regexp.MustCompile(`(?:购买方|购方|收票方)(?:信息)?\s*(?:名\s*称)?\s*:\s*([^\s:]+)`)
	sellerNamePattern = regexp.MustCompile(`(?:销售方|销方|开票方)(?:信息)?\s*(?:名\s*称)?\s*:\s*([^\s:]+)`)

	issueDateLabelPattern = regexp.MustCompile(`开票日期\s*:?\s*(.*)$`)
	anchoredAmountPattern = regexp.MustCompile(`(?:^|[^税])金\s*额\s*:?\s*¥?\s*(\d[\d,]*(?:\.\d+)?)`)
	anchoredTaxPattern    = regexp.MustCompile(`(?:^|[^价])税\s*额\s*:?\s*¥?\s*(\d[\d,]*(?:\.\d+)?)`)
	anchoredTotalPattern  = regexp.MustCompile(`价税合计[^¥\d]*¥?\s*(\d[\d,]*\.\d{1,2})`)
	anchoredRatePattern   = regexp.MustCompile(`(?:税率|征收率)[^\d%*]{0,8}(\d+(?:\.\d+)?\s*%)`)
)

// Party names are cut at the first of these, since labels of the next block
// often share the line.
var (
	buyerNameStops  = []string{"销售方", "销方", "开票方", "纳税人", "统一社会", "地址", "电话", "开户"}
	sellerNameStops = []string{"购买方", "购方", "收票方", "纳税人", "统一社会", "地址", "电话", "开户"}
	orgKeywords     = []string{"公司", "企业", "中心", "集团", "研究院", "事务所", "医院", "学校", "大学", "酒店", "银行"}
)

func partyLabels(p party) []string {
	if p == buyer {
		return buyerLabels
	}
	return sellerLabels
}

func partyStops(p party) []string {
	if p == buyer {
		return buyerNameStops
	}
	return sellerNameStops
}

// cleanPartyName strips a leading label and keeps the first field that looks
// like an organisation name.
func cleanPartyName(s string, stops []string) string {
	if strings.Contains(s, "名称") {
		s = afterLabel(s, "名称")
	}
	s = cutAt(s, stops...)
	fields := strings.Fields(s)
	for _, f := range fields {
		if containsAny(f, orgKeywords...) {
			return f
		}
	}
	if len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// anchoredPartyName reads "购买方名称: X" style labels.
func anchoredPartyName(p party) Strategy {
	re := buyerNamePattern
	if p == seller {
		re = sellerNamePattern
	}
	return anchored(func(r *Resolver) []domain.FieldCandidate {
		var out []string
		for _, m := range r.Source().LineSubmatches(re) {
			out = append(out, cutAt(m[1], partyStops(p)...))
		}
		return candidates(out...)
	})
}

// partyOf reports which party label most recently precedes position idx in
// line, falling back to current.
func partyOf(line string, idx int, current party, known bool) (party, bool) {
	best := -1
	for _, p := range []party{buyer, seller} {
		for _, label := range partyLabels(p) {
			if i := strings.LastIndex(line[:idx], label); i > best {
				best = i
				current, known = p, true
			}
		}
	}
	return current, known
}

// sectionLines returns the lines of the block introduced by a party label,
// excluding the label line, up to limit lines.
func sectionLines(src *Source, p party, limit int) []string {
	start := -1
	for i, line := range src.Lines {
		if isSectionStart(line, p) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}
	var out []string
	for _, line := range src.Window(start+1, limit) {
		if isSectionStart(line, other(p)) || containsAny(line, "项目名称", "货物或应税", "价税合计", "密码区") {
			break
		}
		out = append(out, line)
	}
	return out
}

// isSectionStart matches party labels even when the printer spaced the glyphs
// apart ("购 买 方"). A label only counts at the start of the line or after a
// non-Han character, so 采购方 does not open a buyer section.
func isSectionStart(line string, p party) bool {
	compact := strings.Join(strings.Fields(line), "")
	for _, label := range partyLabels(p)[:3] {
		if hasStandaloneLabel(compact, label) {
			return true
		}
	}
	return false
}

func hasStandaloneLabel(s, label string) bool {
	for off := 0; ; {
		i := strings.Index(s[off:], label)
		if i < 0 {
			return false
		}
		i += off
		prev, _ := utf8.DecodeLastRuneInString(s[:i])
		if i == 0 || !unicode.Is(unicode.Han, prev) {
			return true
		}
		off = i + len(label)
	}
}

func other(p party) party {
	if p == buyer {
		return seller
	}
	return buyer
}

// sectionPartyName looks for a name line inside the party's block.
func sectionPartyName(p party) Strategy {
	return proximity(func(r *Resolver) []domain.FieldCandidate {
		var out []string
		for _, line := range sectionLines(r.Source(), p, 10) {
			switch {
			case strings.Contains(line, "名称") && strings.Contains(line, ":"):
				out = append(out, cleanPartyName(line, partyStops(p)))
			case containsAny(line, orgKeywords...) && !containsAny(line, "纳税人", "识别号"):
				out = append(out, cleanPartyName(line, partyStops(p)))
			}
		}
		return candidates(out...)
	})
}

// attributedTokens assigns each token satisfying pred to the party whose label
// token is nearest above-left of it on the same page.
func attributedTokens(src *Source, p party, maxDY float64, pred func(string) bool) []domain.TextToken {
	labels := map[party][]domain.TextToken{
		buyer:  src.FindTokens(func(s string) bool { return isSectionStart(s, buyer) }),
		seller: src.FindTokens(func(s string) bool { return isSectionStart(s, seller) }),
	}
	var out []domain.TextToken
	for _, tok := range src.Tokens {
		if !pred(tok.Text) {
			continue
		}
		owner, best, found := buyer, math.MaxFloat64, false
		for _, q := range []party{buyer, seller} {
			for _, l := range labels[q] {
				dx, dy := tok.X-l.X, tok.Y-l.Y
				if l.Page != tok.Page || dx < -1 || dy < -0.5 || dy > maxDY {
					continue
				}
				if d := dx + dy; d < best {
					owner, best, found = q, d, true
				}
			}
		}
		if found && owner == p {
			out = append(out, tok)
		}
	}
	return out
}

// layoutPartyName takes organisation-looking tokens under the party's label.
func layoutPartyName(p party) Strategy {
	return proximity(func(r *Resolver) []domain.FieldCandidate {
		src := r.Source()
		if !src.HasLayout() {
			return nil
		}
		toks := attributedTokens(src, p, 5, func(s string) bool {
			n := utf8.RuneCountInString(s)
			return containsAny(s, orgKeywords...) && n >= 3 && n <= 60
		})
		return tokenCandidates(toks, func(s string) string { return cleanPartyName(s, partyStops(p)) })
	})
}

// companyLinePartyName picks the nth organisation line of the document:
// buyers print before sellers.
func companyLinePartyName(p party) Strategy {
	return globalScan(func(r *Resolver) []domain.FieldCandidate {
		var names []string
		for _, line := range r.Source().Lines {
			n := utf8.RuneCountInString(line)
			if strings.Contains(line, "公司") && n > 5 && n < 50 && !containsAny(line, "名称", "纳税人") {
				names = append(names, cleanPartyName(line, nil))
			}
		}
		names = uniqueStrings(names)
		if int(p) < len(names) {
			return candidates(names[p])
		}
		return nil
	})
}

// layoutTaxID attributes tax-ID shaped tokens to the nearest party label.
func layoutTaxID(p party) Strategy {
	return proximity(func(r *Resolver) []domain.FieldCandidate {
		src := r.Source()
		if !src.HasLayout() {
			return nil
		}
		toks := attributedTokens(src, p, 8, func(s string) bool { return len(taxIDs(s)) > 0 })
		return tokenCandidates(toks, func(s string) string { return taxIDs(s)[0] })
	})
}

// sectionTaxID walks the lines in order and gives every tax ID to the party
// whose label most recently preceded it.
func sectionTaxID(p party) Strategy {
	return proximity(func(r *Resolver) []domain.FieldCandidate {
		var out []string
		current, known := buyer, false
		for _, line := range r.Source().Lines {
			for _, loc := range taxIDPattern.FindAllStringSubmatchIndex(line, -1) {
				id := line[loc[2]:loc[3]]
				if longDigitsPattern.MatchString(id) {
					continue
				}
				owner, ok := partyOf(line, loc[2], current, known)
				if ok && owner == p {
					out = append(out, id)
				}
			}
			current, known = partyOf(line, len(line), current, known)
		}
		return candidates(out...)
	})
}

// sequentialTaxID is the document-order heuristic: the first tax ID belongs
// to the buyer, the second to the seller.
func sequentialTaxID(p party) Strategy {
	return globalScan(func(r *Resolver) []domain.FieldCandidate {
		ids := uniqueStrings(taxIDs(r.Source().Text))
		if int(p) < len(ids) {
			return candidates(ids[p])
		}
		return nil
	})
}

func anchoredIssueDate() Strategy {
	return anchored(func(r *Resolver) []domain.FieldCandidate {
		src := r.Source()
		var out []string
		for i, line := range src.Lines {
			if m := issueDateLabelPattern.FindStringSubmatch(line); m != nil {
				out = append(out, dates(m[1])...)
				out = append(out, dates(strings.Join(src.Window(i+1, 1), " "))...)
			}
		}
		return candidates(out...)
	})
}

var digitsOnly = regexp.MustCompile(`^\d+$`)

// layoutIssueDate reads the date printed right of the label, including dates
// whose year, month and day are separate tokens.
func layoutIssueDate() Strategy {
	return proximity(func(r *Resolver) []domain.FieldCandidate {
		src := r.Source()
		if !src.HasLayout() {
			return nil
		}
		var out []string
		for _, label := range src.FindTokens(func(s string) bool { return strings.Contains(s, "开票日期") }) {
			near := src.Near(label, func(dx, dy float64) bool {
				return dx > -1 && dx < 15 && math.Abs(dy) < 2
			})
			sort.SliceStable(near, func(i, j int) bool { return near[i].X < near[j].X })
			texts := []string{label.Text}
			for _, t := range near {
				texts = append(texts, t.Text)
			}
			out = append(out, dates(strings.Join(texts, " "))...)

			var parts []string
			for _, t := range near {
				if digitsOnly.MatchString(t.Text) && len(t.Text) <= 4 {
					parts = append(parts, t.Text)
				}
			}
			if len(parts) >= 3 && len(parts[0]) == 4 {
				out = append(out, parts[0]+"-"+parts[1]+"-"+parts[2])
			}
		}
		return candidates(out...)
	})
}

func globalIssueDate() Strategy {
	return globalScan(func(r *Resolver) []domain.FieldCandidate {
		return candidates(dates(r.Source().Text)...)
	})
}

// taxExempt reports whether the document marks tax with a lone "*" (or 免税)
// and prints no percentage anywhere.
func taxExempt(src *Source) bool {
	if src.Empty() || strings.Contains(src.Text, "%") {
		return false
	}
	for _, f := range strings.Fields(src.Text) {
		if f == validator.TaxExempt || f == "免税" || f == "***" {
			return true
		}
	}
	for _, t := range src.Tokens {
		if s := strings.TrimSpace(t.Text); s == validator.TaxExempt || s == "免税" {
			return true
		}
	}
	return false
}

func exemptStrategy() Strategy {
	return Strategy{Name: "tax_exempt", Rank: RankAnchoredLabel, Run: func(r *Resolver) []domain.FieldCandidate {
		if taxExempt(r.Source()) {
			return candidates(validator.TaxExempt)
		}
		return nil
	}}
}

func anchoredRate() Strategy {
	return anchored(func(r *Resolver) []domain.FieldCandidate {
		var out []string
		for _, m := range r.Source().LineSubmatches(anchoredRatePattern) {
			out = append(out, strings.ReplaceAll(m[1], " ", ""))
		}
		return candidates(out...)
	})
}

// globalRate collects every in-range percentage and orders it by the common
// VAT rates given.
func globalRate(common ...string) Strategy {
	return globalScan(func(r *Resolver) []domain.FieldCandidate {
		return candidates(preferRates(percents(r.Source().Text), common)...)
	})
}

func anchoredPattern(re *regexp.Regexp) Strategy {
	return anchored(func(r *Resolver) []domain.FieldCandidate {
		var out []string
		for _, m := range r.Source().LineSubmatches(re) {
			out = append(out, m[1])
		}
		return candidates(out...)
	})
}

// totalLine reads ¥ amounts on the 价税合计 / 小写 line and the two after it,
// largest first.
func totalLine() Strategy {
	return proximity(func(r *Resolver) []domain.FieldCandidate {
		src := r.Source()
		i := src.LineIndex(0, func(s string) bool { return containsAny(s, "价税合计", "小写") })
		if i < 0 {
			return nil
		}
		amts := yenAmounts(strings.Join(src.Window(i, 3), " "))
		sortDesc(amts)
		return candidates(amountStrings(amts...)...)
	})
}

// largestYen treats the largest ¥ amount on the page as the total. A value
// equal to the amount or the tax is a line item, not a total, unless the
// invoice is tax exempt.
func largestYen() Strategy {
	return globalScan(func(r *Resolver) []domain.FieldCandidate {
		d, ok := largest(yenAmounts(r.Source().Text))
		if !ok {
			return nil
		}
		v := numeric.FormatAmount(d)
		amount, _ := r.Resolve(domain.FieldAmount)
		tax, _ := r.Resolve(domain.FieldTaxAmount)
		if tax != validator.TaxExempt && (v == amount || v == tax) {
			return nil
		}
		return candidates(v)
	})
}

// summaryRow returns the ¥ amounts on the 合计 row (not 价税合计).
func summaryRow(src *Source) []decimal.Decimal {
	for _, line := range src.Lines {
		if strings.Contains(line, "合计") && !strings.Contains(line, "价税合计") {
			if amts := yenAmounts(line); len(amts) > 0 {
				return amts
			}
		}
	}
	return nil
}

// summaryRowAmount takes the largest ¥ amount of the 合计 row as the amount
// before tax and the smallest as the tax.
func summaryRowAmount(wantTax bool) Strategy {
	return tableColumn(func(r *Resolver) []domain.FieldCandidate {
		amts := summaryRow(r.Source())
		if len(amts) < 2 {
			if len(amts) == 1 && !wantTax {
				return candidates(amountStrings(amts...)...)
			}
			return nil
		}
		pick := largest
		if wantTax {
			pick = smallest
		}
		d, _ := pick(amts)
		return candidates(numeric.FormatAmount(d))
	})
}

// derivedTotal is amount + tax.
func derivedTotal() Strategy {
	return derived(func(r *Resolver) []domain.FieldCandidate {
		amount, ok1 := r.Resolve(domain.FieldAmount)
		tax, ok2 := r.Resolve(domain.FieldTaxAmount)
		if !ok1 || !ok2 || tax == validator.TaxExempt {
			return nil
		}
		a, err1 := decimal.NewFromString(amount)
		t, err2 := decimal.NewFromString(tax)
		if err1 != nil || err2 != nil {
			return nil
		}
		return candidates(numeric.FormatAmount(a.Add(t)))
	})
}

// derivedTax is total − amount.
func derivedTax() Strategy {
	return derived(func(r *Resolver) []domain.FieldCandidate {
		total, ok1 := r.Resolve(domain.FieldTotalAmount)
		amount, ok2 := r.Resolve(domain.FieldAmount)
		if !ok1 || !ok2 {
			return nil
		}
		tt, err1 := decimal.NewFromString(total)
		a, err2 := decimal.NewFromString(amount)
		if err1 != nil || err2 != nil || !tt.GreaterThan(a) {
			return nil
		}
		return candidates(numeric.FormatAmount(tt.Sub(a)))
	})
}

func sortDesc(ds []decimal.Decimal) {
	sort.SliceStable(ds, func(i, j int) bool { return ds[i].GreaterThan(ds[j]) })
}

// invoiceNameStrategy searches the title keywords in priority order.
func invoiceNameStrategy(keywords []string, top func(src *Source) string) Strategy {
	return anchored(func(r *Resolver) []domain.FieldCandidate {
		text := r.Source().Text
		if top != nil {
			if t := top(r.Source()); t != "" {
				text = t
			}
		}
		for _, kw := range keywords {
			if strings.Contains(text, numeric.Fold(kw)) {
				return candidates(kw)
			}
		}
		return nil
	})
}
