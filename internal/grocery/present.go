package grocery

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Present groups aggregated items into categories ready for display.
// Categories come back alphabetical with Other forced last; items are sorted
// case-insensitively by display name.
func Present(items map[string]*Item) List {
	grouped := lo.GroupBy(lo.Values(items), func(item *Item) string {
		return Categorize(NormalizeName(item.Name))
	})

	categories := make([]CategoryGroup, 0, len(grouped))
	for name, members := range grouped {
		group := CategoryGroup{
			Name: name,
			Items: lo.Map(members, func(item *Item, _ int) Item {
				return *item
			}),
		}
		slices.SortFunc(group.Items, func(a, b Item) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		})
		categories = append(categories, group)
	}

	slices.SortFunc(categories, func(a, b CategoryGroup) int {
		switch {
		case a.Name == CategoryOther:
			return 1
		case b.Name == CategoryOther:
			return -1
		}
		return strings.Compare(a.Name, b.Name)
	})

	return List{Categories: categories}
}
