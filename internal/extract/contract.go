package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"docextract/internal/domain"
	"docextract/internal/validator"
)

// contractTypes maps body keywords to contract types, first match wins.
var contractTypes = []struct {
	keywords []string
	name     string
}{
	{[]string{"审计", "审核"}, "审计服务合同"},
	{[]string{"技术服务", "技术开发"}, "技术服务合同"},
	{[]string{"咨询"}, "咨询服务合同"},
	{[]string{"建设", "施工"}, "建设工程合同"},
	{[]string{"采购", "供货"}, "采购合同"},
}

var (
	contractNumberPattern = regexp.MustCompile(`(?:合同编号|合同号|协议编号)\s*:?\s*([A-Za-z0-9\-_/]+)`)
	looseNumberPattern    = regexp.MustCompile(`编号\s*:?\s*([A-Za-z0-9\-_/]+)`)
	contractNamePattern   = regexp.MustCompile(`(?:合同名称|协议名称|项目名称)\s*:\s*([^\n;。]+)`)
	signDatePattern       = regexp.MustCompile(`(?:签署日期|签订日期|合同日期|签约日期|签订时间)\s*:?\s*([^\n;,。]{6,20})`)
	effectiveDatePattern  = regexp.MustCompile(`(?:生效日期|起始日期|开始日期)\s*:?\s*([^\n;,。]{6,20})`)
	expiryDatePattern     = regexp.MustCompile(`(?:到期日期|终止日期|截止日期|结束日期|有效期至)\s*:?\s*([^\n;,。]{6,20})`)
	termPattern           = regexp.MustCompile(`自\s*(\d{4}\s*[年\-/.]\s*\d{1,2}\s*[月\-/.]\s*\d{1,2}\s*日?)\s*(?:起)?\s*至\s*(\d{4}\s*[年\-/.]\s*\d{1,2}\s*[月\-/.]\s*\d{1,2}\s*日?)`)
	periodPattern         = regexp.MustCompile(`(?:履行期限|工期|服务期限|合同期限)\s*[:\s]\s*([^,;。\n]+)`)
	locationPattern       = regexp.MustCompile(`(?:履行地点|工作地点|服务地点|交付地点)\s*[:\s]\s*([^,;。\n]+)`)
	paymentPattern        = regexp.MustCompile(`(?:付款方式|支付方式|付款条件|结算方式)\s*[:\s]\s*([^;。\n]{2,120})`)
)

// Party labels: the A side commissions the work, the B side performs it.
var (
	partyAPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:甲\s*方|委托方|发包方|买方|客户)\s*(?:\([^)]*\))?\s*[:\s]\s*([^,;。:\n()]+)`),
		regexp.MustCompile(`委托人\s*[:\s]\s*([^,;。:\n()]+)`),
		regexp.MustCompile(`发包人\s*[:\s]\s*([^,;。:\n()]+)`),
	}
	partyBPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:乙\s*方|受托方|承包方|卖方|服务方)\s*(?:\([^)]*\))?\s*[:\s]\s*([^,;。:\n()]+)`),
		regexp.MustCompile(`受托人\s*[:\s]\s*([^,;。:\n()]+)`),
		regexp.MustCompile(`承包人\s*[:\s]\s*([^,;。:\n()]+)`),
	}
	partyAStops = []string{"乙方", "乙 方", "受托方", "受托人", "承包方", "承包人", "卖方", "服务方", "地址", "电话", "法定代表人", "联系人"}
	partyBStops = []string{"甲方", "甲 方", "委托方", "委托人", "发包方", "发包人", "买方", "地址", "电话", "法定代表人", "联系人"}
)

func contractProfile() *Profile {
	return &Profile{
		Name: "contract",
		Kind: domain.DocumentKindContract,
		Fields: []FieldSpec{
			{Field: domain.FieldContractNumber, Rule: validator.RuleContractNumber, Strategies: []Strategy{
				anchoredPattern(contractNumberPattern),
				globalScan(matchAll(looseNumberPattern)),
			}},
			{Field: domain.FieldContractName, Rule: validator.RuleShortText, Strategies: []Strategy{
				anchoredPattern(contractNamePattern),
				titleLine(),
				filenameContractName(),
			}},
			{Field: domain.FieldContractType, Rule: validator.RuleShortText, Strategies: []Strategy{
				globalScan(func(r *Resolver) []domain.FieldCandidate {
					return candidates(inferContractType(r.Source().Text))
				}),
				filenameContractType(),
			}},
			{Field: domain.FieldSignDate, Rule: validator.RuleDate, Strategies: []Strategy{
				anchored(datesIn(signDatePattern)),
				filenameYearDate(),
			}},
			{Field: domain.FieldEffectiveDate, Rule: validator.RuleDate, Strategies: []Strategy{
				anchored(datesIn(effectiveDatePattern)),
				proximity(termBound(1)),
				filenameYearDate(),
			}},
			{Field: domain.FieldExpiryDate, Rule: validator.RuleDate, Strategies: []Strategy{
				anchored(datesIn(expiryDatePattern)),
				proximity(termBound(2)),
			}},
			{Field: domain.FieldPartyA, Rule: validator.RulePartyName, Strategies: []Strategy{
				anchored(contractParty(partyAPatterns, partyAStops)),
				filenameParty(1),
			}},
			{Field: domain.FieldPartyB, Rule: validator.RulePartyName, Strategies: []Strategy{
				anchored(contractParty(partyBPatterns, partyBStops)),
				filenameParty(2),
			}},
			{Field: domain.FieldDeliverables, Rule: validator.RuleLongText, Strategies: deliverableStrategies()},
			{Field: domain.FieldContractAmount, Rule: validator.RuleContractAmount, Strategies: contractAmountStrategies()},
			{Field: domain.FieldPaymentTerms, Rule: validator.RuleLongText, Strategies: []Strategy{
				anchoredPattern(paymentPattern),
			}},
			{Field: domain.FieldPerformanceLocation, Rule: validator.RuleShortText, Strategies: []Strategy{
				anchoredPattern(locationPattern),
			}},
			{Field: domain.FieldPerformancePeriod, Rule: validator.RuleShortText, Strategies: []Strategy{
				anchoredPattern(periodPattern),
				proximity(func(r *Resolver) []domain.FieldCandidate {
					if m := termPattern.FindString(r.Source().Text); m != "" {
						return candidates(m)
					}
					return nil
				}),
			}},
			{Field: domain.FieldRemarks, Rule: validator.RuleLongText, Optional: true, Strategies: []Strategy{
				filenameRemarks(),
			}},
		},
	}
}

func matchAll(re *regexp.Regexp) func(r *Resolver) []domain.FieldCandidate {
	return func(r *Resolver) []domain.FieldCandidate {
		var out []string
		for _, m := range r.Source().LineSubmatches(re) {
			out = append(out, strings.TrimSpace(m[1]))
		}
		return candidates(out...)
	}
}

// datesIn extracts the dates that follow a label.
func datesIn(re *regexp.Regexp) func(r *Resolver) []domain.FieldCandidate {
	return func(r *Resolver) []domain.FieldCandidate {
		var out []string
		for _, m := range r.Source().LineSubmatches(re) {
			out = append(out, dates(m[1])...)
		}
		return candidates(out...)
	}
}

// termBound reads one end of a "自 X 起至 Y" term clause.
func termBound(group int) func(r *Resolver) []domain.FieldCandidate {
	return func(r *Resolver) []domain.FieldCandidate {
		var out []string
		for _, m := range termPattern.FindAllStringSubmatch(r.Source().Text, -1) {
			out = append(out, dates(m[group])...)
		}
		return candidates(out...)
	}
}

// titleLine takes the first short line near the top that names a contract.
func titleLine() Strategy {
	return globalScan(func(r *Resolver) []domain.FieldCandidate {
		var out []string
		for _, line := range r.Source().Head(8) {
			line = strings.Join(strings.Fields(line), "")
			if !containsAny(line, "合同", "协议", "合约") || strings.Contains(line, ":") {
				continue
			}
			if n := utf8.RuneCountInString(line); n >= 4 && n <= 40 && !strings.HasPrefix(line, "甲方") && !strings.HasPrefix(line, "乙方") {
				out = append(out, line)
			}
		}
		return candidates(out...)
	})
}

func inferContractType(text string) string {
	for _, ct := range contractTypes {
		if containsAny(text, ct.keywords...) {
			return ct.name
		}
	}
	return ""
}

func contractParty(patterns []*regexp.Regexp, stops []string) func(r *Resolver) []domain.FieldCandidate {
	return func(r *Resolver) []domain.FieldCandidate {
		var out []string
		for _, re := range patterns {
			for _, line := range r.Source().Lines {
				for _, m := range re.FindAllStringSubmatch(line, -1) {
					name := cutAt(m[1], stops...)
					if containsAny(name, "签字", "盖章", "签章", "代表") {
						continue
					}
					out = append(out, name)
				}
			}
		}
		return candidates(out...)
	}
}
