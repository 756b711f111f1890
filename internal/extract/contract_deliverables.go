package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"docextract/internal/domain"
)

const maxDeliverableRunes = 150

var standardDeliverablePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:交付标的|服务内容|工作内容|项目内容|合同标的)\s*:?\s*([^。;\n]{10,200})`),
	regexp.MustCompile(`(?:服务范围|工作范围|业务范围|项目范围)\s*:?\s*([^。;\n]{10,200})`),
	regexp.MustCompile(`(?:提供|完成|承担|负责)\s*:?\s*([^。;\n]{10,150})`),
	regexp.MustCompile(`(?:审计|审核|核查)\s*:?\s*([^。;\n]{10,150})`),
	regexp.MustCompile(`(?:咨询|顾问|技术支持)\s*:?\s*([^。;\n]{10,150})`),
	regexp.MustCompile(`(?:建设|施工|设计)\s*:?\s*([^。;\n]{10,150})`),
}

var sectionDeliverablePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:第[一二三四五六七八九十\d]+[条章节]?\s*)?(?:服务内容|工作内容|项目内容|业务内容)\s*:?\s*([^第]{20,500})`),
	regexp.MustCompile(`(?:服务|工作|项目)(?:内容|范围|要求)\s*:?\s*([^。;]{30,400})`),
}

var scopeDeliverablePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:工作范围|服务范围|业务范围)\s*:?\s*([^。;\n]{20,300})`),
	regexp.MustCompile(`(?:服务|工作|项目)[^。;]*?(?:包括|含|涵盖)\s*:?\s*([^。;]{30,300})`),
	regexp.MustCompile(`(?:审计范围|审核范围|核查范围)\s*:?\s*([^。;\n]{20,300})`),
	regexp.MustCompile(`(?:技术服务|技术支持|技术咨询)[^。;]*?(?:范围|内容)\s*:?\s*([^。;\n]{20,300})`),
}

var projectDeliverablePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:项目|工程)[^。;]*?(?:描述|说明|概述)\s*:?\s*([^。;]{30,300})`),
	regexp.MustCompile(`(?:本项目|该项目|此项目)\s*:?\s*([^。;]{30,300})`),
	regexp.MustCompile(`(?:委托事项|委托内容|委托)\s*:?\s*([^。;]{20,300})`),
	regexp.MustCompile(`(?:合同目的|目的|宗旨)\s*:?\s*([^。;]{20,300})`),
}

var (
	equipmentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:采购|供应|提供)\s*:?\s*([^。;]{10,100})`),
		regexp.MustCompile(`(?:设备|产品|材料)\s*:?\s*([^。;]{10,100})`),
	}
	invalidDeliverablePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^[:\s]+$`),
		regexp.MustCompile(`^[。;,\s]+$`),
		regexp.MustCompile(`^(?:甲方|乙方|委托方|受托方)`),
		regexp.MustCompile(`^[0-9\-/]+$`),
		regexp.MustCompile(`电话|地址|联系`),
		regexp.MustCompile(`签字|盖章|日期`),
	}
	clauseNumberPattern = regexp.MustCompile(`第[一二三四五六七八九十\d]+[条章节]|[1-9]\.[1-9]|\([1-9]\)`)
	sentenceSplit       = regexp.MustCompile(`[。;]`)
)

// typeDeliverables infers deliverables from keywords when the contract never
// states them. Each entry lists sub-services appended when their keyword is
// present, and a default used when none is.
var typeDeliverables = []struct {
	triggers []string
	subs     [][2]string
	join     string
	fallback string
}{
	{
		triggers: []string{"审计", "审核"},
		subs: [][2]string{
			{"财务审计", "年度财务报表审计"}, {"年度审计", "年度财务报表审计"},
			{"专项审计", "专项审计服务"},
			{"内控审计", "内部控制审计"}, {"内部控制", "内部控制审计"},
			{"税务审计", "税务审计服务"},
			{"合规审计", "合规性审计"},
		},
		join:     "等审计服务",
		fallback: "财务审计服务",
	},
	{
		triggers: []string{"技术服务", "技术开发", "技术支持"},
		subs: [][2]string{
			{"软件开发", "软件系统开发"}, {"系统开发", "软件系统开发"},
			{"技术咨询", "技术咨询服务"},
			{"技术培训", "技术培训服务"},
			{"系统集成", "系统集成服务"},
			{"运维", "运维支持服务"}, {"维护", "运维支持服务"},
		},
		fallback: "技术开发及支持服务",
	},
	{
		triggers: []string{"咨询", "顾问"},
		subs: [][2]string{
			{"管理咨询", "管理咨询服务"},
			{"财务咨询", "财务咨询服务"},
			{"法律咨询", "法律咨询服务"},
			{"战略咨询", "战略咨询服务"},
		},
		fallback: "专业咨询服务",
	},
}

func deliverableStrategies() []Strategy {
	return []Strategy{
		anchored(patternDeliverables((*Source).LineSubmatches, standardDeliverablePatterns, cleanupDeliverable)),
		proximity(patternDeliverables((*Source).TextSubmatches, sectionDeliverablePatterns, cleanupSection)),
		proximity(patternDeliverables((*Source).TextSubmatches, scopeDeliverablePatterns, cleanupDeliverable)),
		globalScan(patternDeliverables((*Source).TextSubmatches, projectDeliverablePatterns, cleanupDeliverable)),
		globalScan(func(r *Resolver) []domain.FieldCandidate {
			return candidates(inferDeliverables(r.Source().Text))
		}),
		filenameDeliverables(),
	}
}

func patternDeliverables(match func(*Source, *regexp.Regexp) [][]string, patterns []*regexp.Regexp, clean func(string) string) func(r *Resolver) []domain.FieldCandidate {
	return func(r *Resolver) []domain.FieldCandidate {
		var out []string
		for _, re := range patterns {
			for _, m := range match(r.Source(), re) {
				content := strings.TrimSpace(m[1])
				if !validDeliverable(content) {
					continue
				}
				if c := clean(content); utf8.RuneCountInString(c) > 5 {
					out = append(out, c)
				}
			}
		}
		return candidates(out...)
	}
}

func inferDeliverables(text string) string {
	for _, td := range typeDeliverables {
		if !containsAny(text, td.triggers...) {
			continue
		}
		var found []string
		for _, sub := range td.subs {
			if strings.Contains(text, sub[0]) {
				found = append(found, sub[1])
			}
		}
		found = uniqueStrings(found)
		if len(found) == 0 {
			return td.fallback
		}
		return strings.Join(found, "、") + td.join
	}
	if containsAny(text, "建设", "施工", "工程") {
		switch {
		case strings.Contains(text, "设计"):
			return "工程设计服务"
		case strings.Contains(text, "监理"):
			return "工程监理服务"
		case strings.Contains(text, "施工"):
			return "工程施工服务"
		}
		return "建设工程相关服务"
	}
	if containsAny(text, "采购", "供货", "设备") {
		for _, re := range equipmentPatterns {
			for _, m := range re.FindAllStringSubmatch(text, -1) {
				c := strings.TrimSpace(m[1])
				if utf8.RuneCountInString(c) > 5 && !containsAny(c, "甲方", "乙方") {
					return c
				}
			}
		}
		return "设备采购及供货"
	}
	return ""
}

func validDeliverable(content string) bool {
	if utf8.RuneCountInString(content) < 5 {
		return false
	}
	for _, re := range invalidDeliverablePatterns {
		if re.MatchString(content) {
			return false
		}
	}
	return true
}

func cleanupDeliverable(content string) string {
	c := strings.Trim(content, ": \t")
	c = strings.Join(strings.Fields(c), " ")
	c = strings.TrimSuffix(c, "等")
	c = strings.TrimSuffix(c, "。")
	return truncateRunes(c, maxDeliverableRunes)
}

// cleanupSection drops clause numbering and keeps the first sentence, or the
// first two when the first is short.
func cleanupSection(content string) string {
	c := clauseNumberPattern.ReplaceAllString(content, "")
	c = strings.Join(strings.Fields(c), " ")
	var sentences []string
	for _, s := range sentenceSplit.Split(c, -1) {
		if s = strings.TrimSpace(s); utf8.RuneCountInString(s) > 10 {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return truncateRunes(c, maxDeliverableRunes)
	}
	result := sentences[0]
	if utf8.RuneCountInString(result) < 30 && len(sentences) > 1 {
		result += ";" + sentences[1]
	}
	return truncateRunes(result, maxDeliverableRunes)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
