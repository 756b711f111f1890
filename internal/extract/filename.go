package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"docextract/internal/domain"
	"docextract/internal/numeric"
)

// RemarksFromFilename marks records inferred from the filename alone.
const RemarksFromFilename = "基于文件名分析，需要核实具体内容"

var (
	filenameYearPattern    = regexp.MustCompile(`(20\d{2})`)
	filenamePartiesPattern = regexp.MustCompile(`(\S+?)(?:与|和)(\S+?)(?:技术服务合同|服务合同|合同|协议)`)
	filenameDigitsPattern  = regexp.MustCompile(`\d{6,25}`)
)

// Default titles when neither the body nor the filename names the invoice.
var defaultInvoiceNames = map[domain.InvoiceSubtype]string{
	domain.InvoiceSubtypeSpecial:  "增值税发票",
	domain.InvoiceSubtypeOrdinary: "增值税普通发票",
}

func stem(r *Resolver) string {
	return numeric.Fold(r.Source().Stem)
}

func filenameInvoiceName(subtype domain.InvoiceSubtype) Strategy {
	names := specialInvoiceNames
	if subtype == domain.InvoiceSubtypeOrdinary {
		names = ordinaryInvoiceNames
	}
	return fromFilename(func(r *Resolver) []domain.FieldCandidate {
		s := stem(r)
		for _, kw := range names {
			if strings.Contains(s, numeric.Fold(kw)) {
				return candidates(kw)
			}
		}
		return candidates(defaultInvoiceNames[subtype])
	})
}

func filenameInvoiceNumber() Strategy {
	return fromFilename(func(r *Resolver) []domain.FieldCandidate {
		return candidates(filenameDigitsPattern.FindAllString(stem(r), -1)...)
	})
}

func filenameGoods() Strategy {
	return fromFilename(func(r *Resolver) []domain.FieldCandidate {
		s := stem(r)
		for _, svc := range commonServices {
			if strings.Contains(s, svc) {
				return candidates(svc)
			}
		}
		var out []string
		for _, m := range hanServicePattern.FindAllString(s, -1) {
			if n := utf8.RuneCountInString(m); n >= 4 && n <= 20 {
				out = append(out, m)
			}
		}
		return candidates(out...)
	})
}

func filenameContractName() Strategy {
	return fromFilename(func(r *Resolver) []domain.FieldCandidate {
		return candidates(strings.TrimSpace(r.Source().Stem))
	})
}

// filenameYearDate dates the contract January 1st of the year in its name.
func filenameYearDate() Strategy {
	return fromFilename(func(r *Resolver) []domain.FieldCandidate {
		if m := filenameYearPattern.FindStringSubmatch(stem(r)); m != nil {
			return candidates(m[1] + "-01-01")
		}
		return nil
	})
}

// filenameContractKind infers the contract type and a deliverables summary
// from filename keywords. A bare 服务合同 counts as technical services unless
// the name also says 审计 or 咨询.
func filenameContractKind(s string) (kind, deliverables string) {
	switch {
	case strings.Contains(s, "技术服务") || (strings.Contains(s, "服务合同") && !containsAny(s, "审计", "咨询")):
		kind = "技术服务合同"
		switch {
		case strings.Contains(s, "软件"):
			deliverables = "软件开发及技术服务"
		case strings.Contains(s, "系统"):
			deliverables = "信息系统开发及维护服务"
		case strings.Contains(s, "网站"):
			deliverables = "网站建设及技术支持服务"
		default:
			deliverables = "技术开发及支持服务"
		}
	case strings.Contains(s, "审计"):
		kind = "审计服务合同"
		switch {
		case containsAny(s, "财务审计", "年度审计"):
			deliverables = "年度财务报表审计服务"
		case strings.Contains(s, "专项审计"):
			deliverables = "专项审计及相关咨询服务"
		case strings.Contains(s, "内控"):
			deliverables = "内部控制审计及评价服务"
		default:
			deliverables = "审计及相关咨询服务"
		}
	case strings.Contains(s, "咨询"):
		kind = "咨询服务合同"
		switch {
		case strings.Contains(s, "管理咨询"):
			deliverables = "管理咨询及改进建议服务"
		case strings.Contains(s, "财务咨询"):
			deliverables = "财务咨询及规划服务"
		default:
			deliverables = "专业咨询及建议服务"
		}
	}
	return kind, deliverables
}

func filenameContractType() Strategy {
	return fromFilename(func(r *Resolver) []domain.FieldCandidate {
		kind, _ := filenameContractKind(stem(r))
		return candidates(kind)
	})
}

func filenameDeliverables() Strategy {
	return fromFilename(func(r *Resolver) []domain.FieldCandidate {
		_, d := filenameContractKind(stem(r))
		return candidates(d)
	})
}

// filenameParty reads "甲与乙…合同" names; group 1 is party A, 2 is party B.
func filenameParty(group int) Strategy {
	return fromFilename(func(r *Resolver) []domain.FieldCandidate {
		if m := filenamePartiesPattern.FindStringSubmatch(stem(r)); m != nil {
			return candidates(m[group])
		}
		return nil
	})
}

// filenameRemarks notes that a record came from the filename. It only fires
// when there is no document body.
func filenameRemarks() Strategy {
	return fromFilename(func(r *Resolver) []domain.FieldCandidate {
		if !r.Source().Empty() {
			return nil
		}
		remarks := RemarksFromFilename
		if strings.Contains(r.Source().Stem, "修订") {
			remarks += "，修订版合同"
		}
		return candidates(remarks)
	})
}
