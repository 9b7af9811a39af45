package features

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const million = 1_000_000

// amountPattern matches a number followed by an optional currency or
// magnitude unit. Group 1 is the number, group 2 the unit.
const amountPattern = `([0-9][0-9.,]*)\s*(triệu|million|tr|m|vnd|đồng|đ)?`

type unitKind int

const (
	unitNone unitKind = iota
	unitMillion
	unitCurrency
)

func classifyUnit(u string) unitKind {
	switch u {
	case "triệu", "million", "tr", "m":
		return unitMillion
	case "vnd", "đồng", "đ":
		return unitCurrency
	}
	return unitNone
}

// unitAt returns the unit captured at [start,end) in text, or "" if the
// capture is really the prefix of a longer word ("m" in "mục").
func unitAt(text string, start, end int) string {
	if start < 0 || end <= start {
		return ""
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if unicode.IsLetter(r) {
			return ""
		}
	}
	return text[start:end]
}

// parseNumber reads a human formatted number. Grouped thousands
// ("8,000,000" or "8.000.000") collapse to an integer; a single separator
// followed by one or two digits is taken as a decimal mark.
func parseNumber(s string) (float64, bool) {
	s = strings.Trim(s, ".,")
	if s == "" {
		return 0, false
	}

	seps := strings.Count(s, ",") + strings.Count(s, ".")
	if seps == 1 {
		i := strings.IndexAny(s, ".,")
		if len(s)-i-1 != 3 {
			v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
			return v, err == nil
		}
	}

	digits := strings.NewReplacer(",", "", ".", "").Replace(s)
	v, err := strconv.ParseFloat(digits, 64)
	return v, err == nil
}

// isGrouped reports whether s uses thousands separators throughout, as in
// "8,000,000" or "12.500.000".
func isGrouped(s string) bool {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '.' || r == ',' })
	if len(parts) < 2 || len(parts[0]) > 3 {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}

// isYear matches a bare four digit year such as 2024.
func isYear(s string) bool {
	if len(s) != 4 || !(strings.HasPrefix(s, "19") || strings.HasPrefix(s, "20")) {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil
}

// plausibleAmount decides whether a number read without a unit can be money.
// Head counts, term numbers and years next to a label are not.
func plausibleAmount(raw string, num float64, unit string, monthly bool) bool {
	switch {
	case unit != "":
		return true
	case isYear(strings.Trim(raw, ".,")):
		return false
	case isGrouped(strings.Trim(raw, ".,")):
		return true
	case num >= 10_000:
		return true
	}
	return monthly
}

// toVND converts a parsed number and unit to whole VND. Bare numbers below
// 1000 are read as millions, matching how applicants write "45" for 45M.
func toVND(num float64, unit string) int64 {
	switch classifyUnit(unit) {
	case unitMillion:
		return int64(num * million)
	default:
		if num < 1000 {
			return int64(num * million)
		}
		return int64(num)
	}
}
