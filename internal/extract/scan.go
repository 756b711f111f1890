package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"docextract/internal/numeric"
)

var (
	yenAmountPattern   = regexp.MustCompile(`¥\s*([\d,]+(?:\.\d+)?)`)
	percentPattern     = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	chineseDatePattern = regexp.MustCompile(`(\d{4})\s*年\s*(\d{1,2})\s*月\s*(\d{1,2})\s*日`)
	dashDatePattern    = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)
	slashDatePattern   = regexp.MustCompile(`(\d{4})/(\d{1,2})/(\d{1,2})`)
	spacedDatePattern  = regexp.MustCompile(`(\d{4})\s+(\d{1,2})\s+(\d{1,2})\s*年\s*月\s*日`)
	compactDatePattern = regexp.MustCompile(`\b(20\d{2})(0[1-9]|1[0-2])(0[1-9]|[12]\d|3[01])\b`)
	taxIDPattern       = regexp.MustCompile(`\b([0-9]{17}[0-9A-Z]|[A-Z0-9]{15,18})\b`)
	longDigitsPattern  = regexp.MustCompile(`^\d{20,}$`)
	starContentPattern = regexp.MustCompile(`\*([^*]+)\*`)
	hanServicePattern  = regexp.MustCompile(`[\p{Han}]+服务`)

	five = decimal.New(5, 0)
)

// yenAmounts returns every ¥-marked amount in s, in order of appearance.
func yenAmounts(s string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, m := range yenAmountPattern.FindAllStringSubmatch(s, -1) {
		if d, err := numeric.ParseAmount(m[1]); err == nil {
			out = append(out, d)
		}
	}
	return out
}

func largest(ds []decimal.Decimal) (decimal.Decimal, bool) {
	if len(ds) == 0 {
		return decimal.Zero, false
	}
	return decimal.Max(ds[0], ds[1:]...), true
}

func smallest(ds []decimal.Decimal) (decimal.Decimal, bool) {
	if len(ds) == 0 {
		return decimal.Zero, false
	}
	return decimal.Min(ds[0], ds[1:]...), true
}

func amountStrings(ds ...decimal.Decimal) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, numeric.FormatAmount(d))
	}
	return out
}

// percents returns every percentage in s.
func percents(s string) []string {
	var out []string
	for _, m := range percentPattern.FindAllStringSubmatch(s, -1) {
		out = append(out, m[1]+"%")
	}
	return out
}

// preferRates orders percentage candidates so that the listed common rates
// come first, in the given order, followed by the rest in document order.
func preferRates(found []string, common []string) []string {
	seen := make(map[string]bool, len(found))
	var uniq []string
	for _, f := range found {
		if !seen[f] {
			seen[f] = true
			uniq = append(uniq, f)
		}
	}
	rank := make(map[string]int, len(common))
	for i, c := range common {
		rank[c+"%"] = i
	}
	sort.SliceStable(uniq, func(i, j int) bool {
		ri, iok := rank[uniq[i]]
		rj, jok := rank[uniq[j]]
		switch {
		case iok && jok:
			return ri < rj
		default:
			return iok && !jok
		}
	})
	return uniq
}

// dates returns every date-looking fragment in s, normalized to Y-M-D triplets
// joined with dashes. The validator checks the calendar.
func dates(s string) []string {
	var out []string
	for _, re := range []*regexp.Regexp{chineseDatePattern, spacedDatePattern, dashDatePattern, slashDatePattern, compactDatePattern} {
		for _, m := range re.FindAllStringSubmatch(s, -1) {
			out = append(out, m[1]+"-"+m[2]+"-"+m[3])
		}
	}
	return out
}

// taxIDs returns the taxpayer-ID shaped runs in s, skipping long digit runs
// that are invoice numbers.
func taxIDs(s string) []string {
	var out []string
	for _, m := range taxIDPattern.FindAllStringSubmatch(s, -1) {
		if !longDigitsPattern.MatchString(m[1]) {
			out = append(out, m[1])
		}
	}
	return out
}

// afterLabel returns the text following the first colon in s, or s itself
// with the label stripped when there is no colon.
func afterLabel(s, label string) string {
	if i := strings.Index(s, ":"); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return strings.TrimSpace(strings.TrimPrefix(s, label))
}

// cutAt truncates s at the earliest occurrence of any stop word.
func cutAt(s string, stops ...string) string {
	end := len(s)
	for _, stop := range stops {
		if i := strings.Index(s, stop); i >= 0 && i < end {
			end = i
		}
	}
	return strings.TrimSpace(s[:end])
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
