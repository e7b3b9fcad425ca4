package extract

import "strings"

// LineKind tags the outcome of classifying one line
type LineKind int

const (
	// Unrecognized lines are dropped: blank lines, supplier names, column headers
	Unrecognized LineKind = iota
	// Metadata lines carry tax, total or document-number information
	Metadata
	// Item lines hold a description, a quantity and a price
	Item
)

func (k LineKind) String() string {
	switch k {
	case Metadata:
		return "metadata"
	case Item:
		return "item"
	default:
		return "unrecognized"
	}
}

// Classification is the result of ClassifyLine. Item is only set for Kind == Item.
type Classification struct {
	Line string
	Kind LineKind
	Item ItemLine
}

// ClassifyLine decides what a single line of bill text is.
// Keyword exclusion runs before the item grammar so a metadata line is never an item.
func ClassifyLine(line string) Classification {
	clean := strings.TrimSpace(foldSpace(line))
	c := Classification{Line: clean, Kind: Unrecognized}
	if clean == "" {
		return c
	}

	if IsExcluded(clean) {
		c.Kind = Metadata
		return c
	}

	m := reItem.FindStringSubmatch(clean)
	if m == nil {
		return c
	}
	c.Kind = Item
	c.Item = ItemLine{
		Description: strings.TrimSpace(m[1]),
		Quantity:    m[2],
		Price:       m[3],
	}
	return c
}

// IsExcluded reports whether line contains one of the metadata keywords
func IsExcluded(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range excludedKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
