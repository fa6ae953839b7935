package grocery

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// unit tokens stripped from display names when building a merge key. Order in
// this list does not matter; the regexp below matches whole words.
var unitTokens = []string{
	"ounces", "ounce", "oz",
	"cups", "cup",
	"tablespoons", "tablespoon", "tbsp",
	"teaspoons", "teaspoon", "tsp",
	"pounds", "pound", "lbs", "lb",
	"grams", "gram", "g", "kg",
	"milliliters", "ml", "liters", "litres", "liter", "litre", "l",
	"pinches", "pinch", "dashes", "dash",
	"cloves", "clove",
	"slices", "slice",
	"cans", "can",
	"packages", "package", "pkg",
	"bunches", "bunch",
	"pieces", "piece",
}

var (
	unitRe = regexp.MustCompile(`\b(` + strings.Join(unitTokens, "|") + `)\b\.?`)
	// leading quantities: integers, decimals, simple fractions and ranges
	leadingQtyRe = regexp.MustCompile(`^[\d]+(?:[./]\d+)?(?:\s*-\s*\d+(?:[./]\d+)?)?\s*`)
	// "2 cups flour", "1.5 lbs of chicken", "2-3 tomatoes"
	textEntryRe = regexp.MustCompile(`^\s*(\d+(?:[./]\d+)?)(?:\s*-\s*\d+(?:[./]\d+)?)?\s*([a-zA-Z]+)?\.?\s+(?:of\s+)?(.+)$`)

	foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// NormalizeName derives the merge key from an ingredient display name. Pure
// and total; normalizing twice gives the same result as normalizing once.
// Stripping runs to a fixpoint: removing a unit can uncover another leading
// quantity ("2 2 tomatoes") and removing a quantity can uncover a unit
// ("2cups flour"), so a single pass is not enough.
func NormalizeName(name string) string {
	s := stripPass(collapse(strings.ToLower(name)))
	for {
		next := stripPass(s)
		if next == s {
			return s
		}
		s = next
	}
}

// stripPass is one round of key derivation. Operation order matters: unit
// tokens go first so that their trailing characters are not confused for
// quantity digits, then leading numbers, then pluralization.
func stripPass(lowered string) string {
	if folded, _, err := transform.String(foldDiacritics, lowered); err == nil {
		lowered = folded
	}

	s := unitRe.ReplaceAllString(lowered, " ")
	s = collapse(s)
	s = leadingQtyRe.ReplaceAllString(s, "")
	s = strings.TrimPrefix(s, "of ")

	words := strings.Fields(s)
	for i, w := range words {
		words[i] = singularize(w)
	}
	s = strings.Join(words, " ")

	if s == "" {
		// stripping ate the whole name; fall back to the lower-cased input
		return lowered
	}
	return s
}

// ValidKey reports whether a merge key names a real ingredient. Keys shorter
// than two runes are leftovers from over-aggressive stripping and are
// dropped.
func ValidKey(key string) bool {
	return utf8.RuneCountInString(key) >= 2
}

func singularize(word string) string {
	switch {
	case strings.HasSuffix(word, "ies") && len(word) > 3:
		return strings.TrimSuffix(word, "ies") + "y"
	case hasAnySuffix(word, "oes", "ses", "xes", "zes", "ches", "shes") && len(word) > 3:
		return strings.TrimSuffix(word, "es")
	case strings.HasSuffix(word, "ss"):
		return word
	case strings.HasSuffix(word, "s") && len(word) > 1:
		return strings.TrimSuffix(word, "s")
	}
	return word
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParseTextEntry splits a free-form entry like "2 cups flour" into quantity,
// unit and name. Entries with no leading number come back with just the
// name.
func ParseTextEntry(text string) RawIngredient {
	m := textEntryRe.FindStringSubmatch(text)
	if m == nil {
		return RawIngredient{Name: collapse(text)}
	}

	qty := coerceQuantity(m[1])
	unit := normalizeUnit(m[2])
	name := collapse(m[3])
	if unit == "" && m[2] != "" {
		// second word was not a unit, keep it as part of the name
		name = collapse(m[2] + " " + m[3])
	}
	return RawIngredient{Name: name, Quantity: qty, Unit: unit}
}

// normalizeUnit lower-cases and singularizes a unit token; unknown tokens
// come back empty.
func normalizeUnit(unit string) string {
	u := singularize(strings.ToLower(strings.TrimSpace(unit)))
	for _, token := range unitTokens {
		if u == singularize(token) {
			return u
		}
	}
	return ""
}

// bulk meat names subject to the lb fixup below
var bulkMeatWords = []string{"chicken", "beef", "pork", "steak", "breast"}

// FixBulkMeat rewrites implausible bulk pound readings for meat to ounces,
// keeping the numeric value unchanged. This papers over an upstream unit
// generation defect (the backend emits "24 lb" meaning "24 oz"); it is a
// data-quality workaround, not a unit conversion, and is kept only for
// compatibility with the lists users already have.
func FixBulkMeat(quantity *float64, unit, name string) (*float64, string) {
	if quantity == nil || *quantity <= 10 {
		return quantity, unit
	}
	switch unit {
	case "lb", "lbs", "pound", "pounds":
	default:
		return quantity, unit
	}
	lowered := strings.ToLower(name)
	for _, meat := range bulkMeatWords {
		if strings.Contains(lowered, meat) {
			return quantity, "oz"
		}
	}
	return quantity, unit
}

// coerceQuantity accepts the numeric encodings the backend has used:
// float, int, json.Number-ish strings and simple fractions. Unparsable
// values coerce to absent, never an error.
func coerceQuantity(v any) *float64 {
	switch q := v.(type) {
	case float64:
		return &q
	case int:
		f := float64(q)
		return &f
	case string:
		s := strings.TrimSpace(q)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return &f
		}
		if num, den, ok := strings.Cut(s, "/"); ok {
			n, errN := strconv.ParseFloat(strings.TrimSpace(num), 64)
			d, errD := strconv.ParseFloat(strings.TrimSpace(den), 64)
			if errN == nil && errD == nil && d != 0 {
				f := n / d
				return &f
			}
		}
	}
	return nil
}
