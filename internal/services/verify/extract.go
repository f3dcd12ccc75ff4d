package verify

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// currencyTokens are stripped from amount text before decimal parsing.
var currencyTokens = []string{"ETB", "Birr", "birr", "BIRR", "Br.", "Br", "br"}

// ParseAmount strips currency symbols and thousands separators from raw and
// parses the remainder as a decimal. Non-positive or unparsable amounts are
// errors; callers surface them as invalid receipts, not transport failures.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if s == "" {
		return decimal.Zero, fmt.Errorf("parse amount: empty value %q", raw)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	if d.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("parse amount %q: non-positive", raw)
	}

	return d, nil
}

// timestampLayouts are the date formats the rails actually emit. Anything
// else stays free text and the commit falls back to the current time.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"1/2/2006, 3:04:05 PM",
	"02-Jan-2006 15:04:05",
	time.RFC3339,
}

// ParseTimestamp attempts the known receipt date layouts and returns the
// zero time when none match.
func ParseTimestamp(raw string) time.Time {
	s := strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// LabeledCell scans table-ish rows of doc for a cell whose text matches one
// of labels (case-insensitive, substring) and returns the text of the cell
// next to it. The remote layouts are not contractually stable, so matching
// is by label proximity rather than structure.
func LabeledCell(doc *goquery.Document, labels ...string) string {
	var value string

	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td, th")
		if cells.Length() < 2 {
			return true
		}

		label := normalize(cells.Eq(0).Text())
		for _, want := range labels {
			if strings.Contains(label, normalize(want)) {
				value = strings.TrimSpace(cells.Eq(1).Text())
				return false
			}
		}
		return true
	})
	if value != "" {
		return value
	}

	// Some layouts render label/value as adjacent inline elements instead
	// of table rows.
	doc.Find("div, span, dt, label").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		label := normalize(s.Text())
		for _, want := range labels {
			if label == normalize(want) {
				value = strings.TrimSpace(s.Next().Text())
				return value == ""
			}
		}
		return true
	})

	return value
}

// LabeledLine scans plain text (e.g. extracted from a PDF document) for a
// "Label ... value" line and returns the value part.
func LabeledLine(text string, labels ...string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		lowered := normalize(trimmed)
		for _, want := range labels {
			key := normalize(want)
			idx := strings.Index(lowered, key)
			if idx < 0 {
				continue
			}

			rest := strings.TrimSpace(trimmed[idx+len(key):])
			rest = strings.TrimLeft(rest, ":-  \t")
			if rest != "" {
				return strings.TrimSpace(rest)
			}
		}
	}
	return ""
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
