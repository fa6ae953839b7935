package grocery

import (
	"log/slog"
	"strings"
)

// MergeKey decides whether two entries are the same shelf item. Entries with
// a unit merge only with entries carrying the same unit.
func MergeKey(normalized, unit string) string {
	if unit != "" {
		return normalized + "-" + unit
	}
	return normalized
}

// Aggregate merges raw entries sharing a merge key. Entries are processed in
// input order: the first occurrence creates the item, later ones fold in.
// Quantities sum when both sides have one, otherwise the present side wins.
// The longer display name wins; that tie-break is order-sensitive on ties,
// which matches the lists users already have.
func Aggregate(raws []RawIngredient) map[string]*Item {
	items := make(map[string]*Item)
	for _, raw := range raws {
		key := NormalizeName(raw.Name)
		if !ValidKey(key) {
			slog.Debug("dropping ingredient with degenerate merge key", "name", raw.Name, "key", key)
			continue
		}

		quantity, unit := FixBulkMeat(raw.Quantity, canonicalUnit(raw.Unit), raw.Name)
		mergeKey := MergeKey(key, unit)

		existing, ok := items[mergeKey]
		if !ok {
			item := &Item{
				Name:     displayName(raw),
				Quantity: quantity,
				Unit:     unit,
			}
			item.Notes = addNote(item.Notes, raw.Notes)
			item.Notes = addNote(item.Notes, raw.Source)
			items[mergeKey] = item
			continue
		}

		if len(displayName(raw)) > len(existing.Name) {
			existing.Name = displayName(raw)
		}
		switch {
		case existing.Quantity != nil && quantity != nil:
			sum := *existing.Quantity + *quantity
			existing.Quantity = &sum
		case quantity != nil:
			existing.Quantity = quantity
		}
		existing.Notes = addNote(existing.Notes, raw.Notes)
		existing.Notes = addNote(existing.Notes, raw.Source)
	}
	return items
}

func displayName(raw RawIngredient) string {
	return collapse(raw.Name)
}

// canonicalUnit lower-cases and singularizes a unit without requiring it to
// be a known token; structured payloads ship units we have never seen.
func canonicalUnit(unit string) string {
	return singularize(strings.ToLower(strings.TrimSpace(unit)))
}

// addNote appends a note with ", ", deduplicating by substring containment
// rather than exact match.
func addNote(existing, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return existing
	}
	if existing == "" {
		return note
	}
	if strings.Contains(existing, note) {
		return existing
	}
	return existing + ", " + note
}
