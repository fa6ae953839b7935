package grocery

import (
	"encoding/json"
	"log/slog"
	"maps"
	"slices"
)

// Extract flattens a heterogeneous backend payload into raw ingredient
// entries. The backend has shipped several shapes over time (a category map,
// a flat list, a day/meal structure, even a JSON document encoded as a
// string), so recognition is an ordered list of shape parsers with
// first-non-empty semantics. Category labels supplied by the payload are
// discarded; the categorizer re-derives them.
func Extract(payload any) []RawIngredient {
	switch p := payload.(type) {
	case []any:
		return leaves(p, "")
	case map[string]any:
		for _, parse := range shapeParsers {
			if out := parse(p); len(out) > 0 {
				return out
			}
		}
	case string:
		var decoded any
		if err := json.Unmarshal([]byte(p), &decoded); err == nil {
			return Extract(decoded)
		}
	}
	return nil
}

type shapeParser func(map[string]any) []RawIngredient

// assigned in init to avoid an initialization cycle with keyed/anyShape
var shapeParsers []shapeParser

func init() {
	shapeParsers = []shapeParser{
		keyed("groceryList"),
		keyed("grocery_list"),
		keyed("ingredient_list"),
		keyed("ingredients"),
		keyed("items"),
		keyed("data"),
		keyed("ai_shopping_list"),
		parseDays,
	}
}

// keyed handles a named key whose value may be a category map, a flat list,
// a list of {category, items} groups, a nested payload, or a string-encoded
// JSON document.
func keyed(key string) shapeParser {
	return func(p map[string]any) []RawIngredient {
		v, ok := p[key]
		if !ok {
			return nil
		}
		return anyShape(v)
	}
}

func anyShape(v any) []RawIngredient {
	switch val := v.(type) {
	case map[string]any:
		// category map: the labels are not authoritative, only the values
		// matter. Could also be a nested payload with its own keys.
		var out []RawIngredient
		for _, parse := range shapeParsers {
			if out = parse(val); len(out) > 0 {
				return out
			}
		}
		// sorted keys keep output order deterministic; the merge tie-breaks
		// downstream are order-sensitive
		for _, category := range slices.Sorted(maps.Keys(val)) {
			if list, ok := val[category].([]any); ok {
				out = append(out, leaves(list, "")...)
			}
		}
		return out
	case []any:
		if groups := asCategoryGroups(val); groups != nil {
			return groups
		}
		return leaves(val, "")
	case string:
		var decoded any
		if err := json.Unmarshal([]byte(val), &decoded); err != nil {
			slog.Debug("skipping string payload that is not JSON", "error", err)
			return nil
		}
		return anyShape(decoded)
	default:
		return nil
	}
}

// asCategoryGroups recognizes [{"category": ..., "items": [...]}, ...].
func asCategoryGroups(list []any) []RawIngredient {
	var out []RawIngredient
	matched := false
	for _, e := range list {
		m, ok := e.(map[string]any)
		if !ok {
			return nil
		}
		items, ok := m["items"].([]any)
		if !ok {
			return nil
		}
		matched = true
		out = append(out, leaves(items, "")...)
	}
	if !matched {
		return nil
	}
	return out
}

// parseDays flattens days[].meals[].ingredients[] and days[].snacks[].
func parseDays(p map[string]any) []RawIngredient {
	days, ok := p["days"].([]any)
	if !ok {
		return nil
	}
	var out []RawIngredient
	for _, d := range days {
		day, ok := d.(map[string]any)
		if !ok {
			continue
		}
		for _, section := range []string{"meals", "snacks"} {
			meals, ok := day[section].([]any)
			if !ok {
				continue
			}
			for _, m := range meals {
				meal, ok := m.(map[string]any)
				if !ok {
					continue
				}
				name, _ := meal["name"].(string)
				ingredients, ok := meal["ingredients"].([]any)
				if !ok {
					continue
				}
				out = append(out, leaves(ingredients, name)...)
			}
		}
	}
	return out
}

// leaves converts leaf entries to RawIngredients. Strings and key-value maps
// are accepted; anything else is skipped, not raised.
func leaves(entries []any, source string) []RawIngredient {
	out := make([]RawIngredient, 0, len(entries))
	for _, e := range entries {
		switch entry := e.(type) {
		case string:
			if entry == "" {
				continue
			}
			raw := ParseTextEntry(entry)
			raw.Source = source
			out = append(out, raw)
		case map[string]any:
			raw, ok := structured(entry)
			if !ok {
				slog.Debug("skipping ingredient entry with no name", "entry", entry)
				continue
			}
			raw.Source = source
			out = append(out, raw)
		default:
			slog.Debug("skipping malformed ingredient entry", "entry", e)
		}
	}
	return out
}

func structured(m map[string]any) (RawIngredient, bool) {
	var raw RawIngredient
	for _, key := range []string{"name", "item", "ingredient"} {
		if s, ok := m[key].(string); ok && s != "" {
			raw.Name = s
			break
		}
	}
	if raw.Name == "" {
		return raw, false
	}
	for _, key := range []string{"quantity", "qty", "amount"} {
		if v, ok := m[key]; ok {
			if q := coerceQuantity(v); q != nil {
				raw.Quantity = q
				break
			}
		}
	}
	if u, ok := m["unit"].(string); ok {
		raw.Unit = u
	}
	for _, key := range []string{"notes", "note"} {
		if n, ok := m[key].(string); ok && n != "" {
			raw.Notes = n
			break
		}
	}
	return raw, true
}
