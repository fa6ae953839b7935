package grocery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorize(t *testing.T) {
	cases := map[string]string{
		"milk":           "Dairy",
		"chip":           "Snacks",
		"chicken breast": "Meat & Seafood",
		"frozen peas":    "Frozen",
		"tomato":         "Produce",
		"flour":          "Pantry",
		"sourdough":      "Bakery",
		"coffee":         "Beverages",
		"paper towels":   "Other",
		"":               "Other",
	}
	for name, want := range cases {
		assert.Equal(t, want, Categorize(name), "name %q", name)
	}
}

func TestCategorizeDeterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		if got := Categorize("chicken salad"); got != "Meat & Seafood" {
			t.Fatalf("run %d: got %q", i, got)
		}
	}
}

func TestPresentOrdering(t *testing.T) {
	items := map[string]*Item{
		"tomato":     {Name: "tomato"},
		"snow shoes": {Name: "snow shoes"}, // no keyword bucket
		"milk":       {Name: "milk"},
		"apple":      {Name: "Apple"},
	}
	list := Present(items)

	require.Len(t, list.Categories, 3)
	assert.Equal(t, "Dairy", list.Categories[0].Name)
	assert.Equal(t, "Produce", list.Categories[1].Name)
	// Other is forced last regardless of alphabetical position
	assert.Equal(t, "Other", list.Categories[2].Name)

	// items sort case-insensitively
	produce := list.Categories[1].Items
	require.Len(t, produce, 2)
	assert.Equal(t, "Apple", produce[0].Name)
	assert.Equal(t, "tomato", produce[1].Name)
}

func TestPresentEmpty(t *testing.T) {
	list := Present(map[string]*Item{})
	assert.True(t, list.Empty())
}

// the round trip from the backend payload all the way to the display list
func TestBuildRoundTrip(t *testing.T) {
	payload := decode(t, `{"groceryList": [
		"2 cups flour",
		"1 cup flour",
		{"name": "chicken breast", "quantity": 24, "unit": "lb"}
	]}`)

	list := Build(payload)
	require.Len(t, list.Categories, 2)

	meat := list.Categories[0]
	require.Equal(t, "Meat & Seafood", meat.Name)
	require.Len(t, meat.Items, 1)
	chicken := meat.Items[0]
	require.NotNil(t, chicken.Quantity)
	assert.Equal(t, 24.0, *chicken.Quantity)
	assert.Equal(t, "oz", chicken.Unit)

	pantry := list.Categories[1]
	require.Equal(t, "Pantry", pantry.Name)
	require.Len(t, pantry.Items, 1)
	flour := pantry.Items[0]
	assert.Contains(t, flour.Name, "flour")
	require.NotNil(t, flour.Quantity)
	assert.Equal(t, 3.0, *flour.Quantity)
	assert.Equal(t, "cup", flour.Unit)
}

func TestBuildIgnoresPayloadCategories(t *testing.T) {
	payload := decode(t, `{"groceryList": {"Snacks": ["chips"], "Dairy": ["milk"]}}`)
	list := Build(payload)

	byCategory := map[string]string{}
	for _, group := range list.Categories {
		for _, item := range group.Items {
			byCategory[item.Name] = group.Name
		}
	}
	// categories are re-derived by keyword, not read from the payload
	assert.Equal(t, "Dairy", byCategory["milk"])
	assert.Equal(t, "Snacks", byCategory["chips"])
}

func TestBuildEmptyResult(t *testing.T) {
	list := Build(decode(t, `{}`))
	assert.True(t, list.Empty())
}
