package numeric

import (
	"strings"

	"github.com/shopspring/decimal"
)

var chineseDigits = map[rune]int64{
	'零': 0, '〇': 0,
	'一': 1, '壹': 1,
	'二': 2, '贰': 2, '两': 2,
	'三': 3, '叁': 3,
	'四': 4, '肆': 4,
	'五': 5, '伍': 5,
	'六': 6, '陆': 6,
	'七': 7, '柒': 7,
	'八': 8, '捌': 8,
	'九': 9, '玖': 9,
}

var chineseUnits = map[rune]int64{
	'十': 10, '拾': 10,
	'百': 100, '佰': 100,
	'千': 1000, '仟': 1000,
}

// ParseChineseAmount converts an uppercase amount such as "壹拾贰万叁仟元整" or
// "伍佰元叁角" into a decimal.
func ParseChineseAmount(s string) (decimal.Decimal, error) {
	body := strings.TrimSpace(s)
	body = strings.TrimPrefix(body, "人民币")
	body = strings.TrimSuffix(body, "整")
	body = strings.TrimSuffix(body, "正")
	if body == "" {
		return decimal.Zero, reject(s, "empty")
	}

	intPart, fracPart := body, ""
	for _, sep := range []string{"元", "圆"} {
		if i := strings.Index(body, sep); i >= 0 {
			intPart, fracPart = body[:i], body[i+len(sep):]
			break
		}
	}

	var total, section, digit int64
	seen := false
	for _, r := range intPart {
		if d, ok := chineseDigits[r]; ok {
			digit = d
			seen = true
			continue
		}
		if u, ok := chineseUnits[r]; ok {
			if digit == 0 && u == 10 {
				digit = 1
			}
			section += digit * u
			digit = 0
			seen = true
			continue
		}
		switch r {
		case '万', '萬':
			total += (section + digit) * 10000
		case '亿':
			total = (total + section + digit) * 100000000
		default:
			return decimal.Zero, reject(s, "unexpected character "+string(r))
		}
		section, digit = 0, 0
		seen = true
	}
	total += section + digit

	value := decimal.New(total, 0)
	var pending int64 = -1
	for _, r := range fracPart {
		if d, ok := chineseDigits[r]; ok {
			pending = d
			seen = true
			continue
		}
		switch r {
		case '角':
			if pending > 0 {
				value = value.Add(decimal.New(pending, -1))
			}
		case '分':
			if pending > 0 {
				value = value.Add(decimal.New(pending, -2))
			}
		default:
			return decimal.Zero, reject(s, "unexpected character "+string(r))
		}
		pending = -1
	}

	if !seen {
		return decimal.Zero, reject(s, "no numerals")
	}
	if !value.IsPositive() {
		return decimal.Zero, reject(s, "amount must be positive")
	}
	if value.GreaterThan(MaxAmount) {
		return decimal.Zero, reject(s, "amount out of range")
	}
	return value, nil
}
