// Package clean holds the low-level value parsing rules shared by the
// format adapters: calendar dates, locale-ambiguous currency amounts
// and credit/debit sign codes.
package clean

import (
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order. Raw exports mix ISO dates, slash
// variants and timestamped entries.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseDate parses a calendar date. An unparsable value returns
// ok=false; it is never defaulted to today or the epoch.
func ParseDate(s string) (civil.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}, false
	}
	for _, layout := range dateLayouts {
		if len(layout) == len("2006-01-02") {
			if d, err := civil.ParseDate(normalizeDateSeparators(s, layout)); err == nil {
				return d, true
			}
		}
	}
	// timestamped layouts: keep the date part
	if i := strings.IndexAny(s, " T"); i > 0 {
		if d, err := civil.ParseDate(normalizeDateSeparators(s[:i], "2006-01-02")); err == nil {
			return d, true
		}
	}
	return civil.Date{}, false
}

// normalizeDateSeparators rewrites the supported slash layouts into ISO
// form so civil.ParseDate can handle them.
func normalizeDateSeparators(s, layout string) string {
	switch layout {
	case "2006/01/02":
		if len(s) == 10 && s[4] == '/' && s[7] == '/' {
			return s[:4] + "-" + s[5:7] + "-" + s[8:]
		}
	case "01/02/2006":
		if len(s) == 10 && s[2] == '/' && s[5] == '/' {
			return s[6:] + "-" + s[:2] + "-" + s[3:5]
		}
	}
	return s
}

// ParseFloat is plain numeric coercion after trimming, for sources that
// carry unambiguous decimal-point numbers.
func ParseFloat(s string) (float64, bool) {
	d, ok := ParsePlain(s)
	if !ok {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

// ParsePlain parses a trimmed decimal-point number into a decimal.
func ParsePlain(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// ParseAmount parses a raw currency amount whose decimal separator
// convention is ambiguous:
//   - both thousands-comma and decimal-point present: commas are
//     grouping, strip them;
//   - only commas present: the comma is a European decimal separator,
//     convert it to a point;
//   - otherwise: pass through to numeric coercion.
//
// Whitespace (including internal grouping spaces) is stripped first.
// Anything still non-numeric is an unparsable amount.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return decimal.Decimal{}, false
	}

	hasComma := strings.Contains(s, ",")
	hasPoint := strings.Contains(s, ".")
	switch {
	case hasComma && hasPoint:
		s = strings.ReplaceAll(s, ",", "")
	case hasComma:
		// a single comma is a decimal separator; several commas leave
		// several points behind and fail coercion below
		s = strings.ReplaceAll(s, ",", ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// creditDebitCodes maps the recognized textual variants onto the
// canonical one-letter codes.
var creditDebitCodes = map[string]string{
	"C": "C", "CR": "C", "CREDIT": "C", "CRED": "C", "CRED.": "C",
	"D": "D", "DR": "D", "DEBIT": "D", "DEB": "D", "DEB.": "D",
}

// NormalizeCreditDebit canonicalizes a credit/debit code to "C" or "D".
// Unrecognized codes return ok=false; the caller must not default the
// sign for those rows.
func NormalizeCreditDebit(s string) (string, bool) {
	code, ok := creditDebitCodes[strings.ToUpper(strings.TrimSpace(s))]
	return code, ok
}

// SignedAmount applies the canonical code to the magnitude: credit is
// positive, debit is negated.
func SignedAmount(code string, amount decimal.Decimal) decimal.Decimal {
	if code == "D" {
		return amount.Neg()
	}
	return amount
}

// FormatAmount renders an amount rounded to two decimals, the canonical
// cell representation for transaction amounts.
func FormatAmount(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}
