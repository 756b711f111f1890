package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"docextract/internal/domain"
	"docextract/internal/numeric"
)

// amountValue captures a number with its optional magnitude suffix, so the
// normalizer applies the multiplier.
const amountValue = `(?:人民币)?\s*¥?\s*(\d[\d,]*(?:\.\d+)?\s*(?:万元|千元|元|万)?)`

var labelledAmountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:合同金额|合同总价|总价|费用|审计费|服务费|价款|项目费用|总费用|总金额|委托费用|咨询费|技术费|管理费)\s*(?:为)?\s*:?\s*` + amountValue),
	regexp.MustCompile(`(?:总计|小计|合计|共计)\s*:?\s*` + amountValue),
	regexp.MustCompile(`(?:金额|价格|费用标准)\s*(?:为)?\s*:?\s*` + amountValue),
	regexp.MustCompile(`(?:本合同|项目|服务)[^。;\n]*?(?:金额|费用|价格)\s*(?:为)?\s*:?\s*` + amountValue),
	regexp.MustCompile(`(?:审计|财务审计|专项审计)[^。;\n]*?(?:费用|收费)\s*(?:为)?\s*:?\s*` + amountValue),
	regexp.MustCompile(`(?:咨询|顾问|技术服务)[^。;\n]*?(?:费用|收费|报酬)\s*(?:为)?\s*:?\s*` + amountValue),
}

var contextAmountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:价格|费用|金额|收费)[^。;\n]*?(\d[\d,]*(?:\.\d+)?)\s*(万元|千元|元)`),
	regexp.MustCompile(`(?:付款|支付|结算)[^。;\n]*?(\d[\d,]*(?:\.\d+)?)\s*(万元|千元|元)`),
	regexp.MustCompile(`(?:总共|共|总)[^。;\n]*?(\d[\d,]*(?:\.\d+)?)\s*(万元|千元|元)`),
	regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*(万元)`),
	regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*(千元)`),
	regexp.MustCompile(`¥\s*(\d[\d,]*(?:\.\d+)?)()`),
}

var (
	tableAmountLabel   = regexp.MustCompile(`金额|价格|费用|总计|合计`)
	tableAmountPattern = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*(万元|千元)?`)
	uppercasePattern   = regexp.MustCompile(`[零壹贰叁肆伍陆柒捌玖拾佰仟万萬亿]+[元圆][零壹贰叁肆伍陆柒捌玖角分整正]*`)
	integerRunPattern  = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

	minContextAmount = decimal.New(100, 0)
	maxContextAmount = decimal.New(1, 8)
)

func contractAmountStrategies() []Strategy {
	return []Strategy{
		anchored(labelledAmount),
		tableColumn(tableAmount),
		globalScan(contextAmount),
		globalScan(uppercaseAmount),
		globalScan(fallbackAmount),
	}
}

func labelledAmount(r *Resolver) []domain.FieldCandidate {
	var out []string
	for _, re := range labelledAmountPatterns {
		for _, m := range r.Source().LineSubmatches(re) {
			out = append(out, m[1])
		}
	}
	return candidates(out...)
}

// tableAmount reads the first plausible number on an amount label line or the
// two lines after it. The unit applies when it appears anywhere on the line.
func tableAmount(r *Resolver) []domain.FieldCandidate {
	src := r.Source()
	var out []string
	for i, line := range src.Lines {
		if !tableAmountLabel.MatchString(line) {
			continue
		}
		for _, l := range src.Window(i, 3) {
			m := tableAmountPattern.FindStringSubmatch(l)
			if m == nil {
				continue
			}
			unit := m[2]
			if unit == "" {
				switch {
				case strings.Contains(l, "万元"):
					unit = "万元"
				case strings.Contains(l, "千元"):
					unit = "千元"
				}
			}
			if d, err := numeric.ParseAmount(m[1] + unit); err == nil && !d.LessThan(minContextAmount) {
				out = append(out, numeric.FormatAmount(d))
			}
		}
	}
	return candidates(out...)
}

// contextAmount looks for money phrases near price and payment wording,
// keeping values between 100 yuan and 100 million.
func contextAmount(r *Resolver) []domain.FieldCandidate {
	var out []string
	for _, re := range contextAmountPatterns {
		for _, m := range r.Source().LineSubmatches(re) {
			d, err := numeric.ParseAmount(m[1] + m[2])
			if err != nil || d.LessThan(minContextAmount) || d.GreaterThan(maxContextAmount) {
				continue
			}
			out = append(out, numeric.FormatAmount(d))
		}
	}
	return candidates(out...)
}

// uppercaseAmount converts 大写 amounts; when one cannot be parsed the nearest
// Arabic number within 50 characters is used.
func uppercaseAmount(r *Resolver) []domain.FieldCandidate {
	text := r.Source().Text
	var out []string
	for _, loc := range uppercasePattern.FindAllStringIndex(text, -1) {
		if d, err := numeric.ParseChineseAmount(text[loc[0]:loc[1]]); err == nil {
			out = append(out, numeric.FormatAmount(d))
			continue
		}
		if n := nearestNumber(text, loc[0], loc[1], 50); n != "" {
			out = append(out, n)
		}
	}
	return candidates(out...)
}

func nearestNumber(text string, start, end, radius int) string {
	from := backRunes(text, start, radius)
	to := forwardRunes(text, end, radius)
	best, bestDist := "", -1
	for _, loc := range integerRunPattern.FindAllStringIndex(text[from:to], -1) {
		s, e := loc[0]+from, loc[1]+from
		dist := 0
		switch {
		case e <= start:
			dist = start - e
		case s >= end:
			dist = s - end
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = text[s:e], dist
		}
	}
	return best
}

// fallbackAmount scans bare integers of 4-8 digits between 1,000 and
// 10,000,000 that are not dates, phone numbers or identifiers. Integers in a
// money context come first, then those between 5,000 and 1,000,000.
func fallbackAmount(r *Resolver) []domain.FieldCandidate {
	text := r.Source().Text
	var withCurrency, reasonable, rest []string
	for _, loc := range integerRunPattern.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		if strings.Contains(raw, ".") {
			continue
		}
		digits := strings.ReplaceAll(raw, ",", "")
		if len(digits) < 4 || len(digits) > 8 {
			continue
		}
		d, err := decimal.NewFromString(digits)
		if err != nil || d.LessThan(decimal.New(1000, 0)) || d.GreaterThan(decimal.New(1, 7)) {
			continue
		}
		before := text[backRunes(text, loc[0], 20):loc[0]]
		after := text[loc[1]:forwardRunes(text, loc[1], 20)]
		if containsAny(before, "年", "月", "电话", "手机", "编号") || containsAny(after, "年", "月") {
			continue
		}
		ctx := before + raw + after
		switch {
		case containsAny(ctx, "元", "¥", "费", "价", "金"):
			withCurrency = append(withCurrency, digits)
		case d.GreaterThanOrEqual(decimal.New(5000, 0)) && d.LessThanOrEqual(decimal.New(1, 6)):
			reasonable = append(reasonable, digits)
		default:
			rest = append(rest, digits)
		}
	}
	out := append(withCurrency, reasonable...)
	return candidates(append(out, rest...)...)
}

// backRunes returns the byte offset n runes before i.
func backRunes(s string, i, n int) int {
	for ; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return i
}

// forwardRunes returns the byte offset n runes after i.
func forwardRunes(s string, i, n int) int {
	for ; n > 0 && i < len(s); n-- {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}
