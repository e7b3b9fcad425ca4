// Package extract parses recognized bill text into a date, a total and item lines.
//
// Matching is tolerant and heuristic: the date and total come from the first
// match anywhere in the text, and each line is classified on its own as
// metadata, an item, or unrecognized prose.
package extract

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// optional "date" label, then D/M/Y (2-4 digit year) or Y/M/D with / or - separators
	reDate = regexp.MustCompile(`(?i)\b(?:date[:\-]?\s*)?(\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}[/-]\d{1,2}[/-]\d{1,2})\b`)

	reTotal = regexp.MustCompile(`(?i)\btotal\s*[:\-]?\s*(\d+(?:\.\d{1,2})?)\b`)

	// description, integer quantity, price; the whole line must match
	reItem = regexp.MustCompile(`^([A-Za-z0-9\s\-]+?)\s+(\d+)\s+(\d+(?:\.\d{1,2})?)$`)
)

// excludedKeywords mark header and footer lines that must never become items
var excludedKeywords = []string{
	"gst", "total", "receipt number", "invoice", "inv-", "tax", "grand total",
}

// ItemLine is one purchased item
type ItemLine struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	Price       string `json:"price"`
}

// ParsedBill holds the fields extracted from a bill's text.
// Date and Total are nil when no match was found.
type ParsedBill struct {
	Date  *string    `json:"date"`
	Total *string    `json:"total"`
	Items []ItemLine `json:"items"`
}

// Extract parses the full text of a document. Empty or whitespace-only text
// yields an empty bill, not an error.
func Extract(text string) ParsedBill {
	bill := ParsedBill{Items: []ItemLine{}}
	if strings.TrimSpace(text) == "" {
		return bill
	}

	folded := foldSpace(text)
	bill.Date = firstGroup(reDate, folded)
	bill.Total = firstGroup(reTotal, folded)

	for _, c := range ExtractLines(text) {
		if c.Kind == Item {
			bill.Items = append(bill.Items, c.Item)
		}
	}
	return bill
}

// ExtractLines classifies every line of text in order
func ExtractLines(text string) []Classification {
	lines := splitLines(text)
	out := make([]Classification, 0, len(lines))
	for _, line := range lines {
		out = append(out, ClassifyLine(line))
	}
	return out
}

func firstGroup(re *regexp.Regexp, text string) *string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v := m[1]
	return &v
}

// foldSpace replaces non-ASCII whitespace such as NBSP with a plain space,
// since \s and \b in the patterns only know ASCII
func foldSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII && unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
}

// splitLines splits on every line boundary a recognizer may emit,
// including form feeds between pages
func splitLines(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
			return true
		}
		return false
	})
}
