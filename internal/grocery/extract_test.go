package grocery

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("bad test payload: %v", err)
	}
	return payload
}

func names(raws []RawIngredient) []string {
	out := make([]string, len(raws))
	for i, r := range raws {
		out[i] = r.Name
	}
	return out
}

func TestExtractGroceryListCategoryMap(t *testing.T) {
	payload := decode(t, `{"groceryList": {"Snacks": ["chips"], "Dairy": ["milk"]}}`)
	raws := Extract(payload)
	// category labels from the payload are discarded, only entries survive
	assert.ElementsMatch(t, []string{"chips", "milk"}, names(raws))
}

func TestExtractGroceryListFlat(t *testing.T) {
	payload := decode(t, `{"groceryList": ["2 cups flour", "1 tomato"]}`)
	raws := Extract(payload)
	require.Len(t, raws, 2)
	assert.Equal(t, "flour", raws[0].Name)
	assert.Equal(t, "cup", raws[0].Unit)
}

func TestExtractGroceryListGroups(t *testing.T) {
	payload := decode(t, `{"groceryList": [
		{"category": "Produce", "items": ["1 tomato", {"name": "kale", "quantity": 1, "unit": "bunch"}]},
		{"category": "Dairy", "items": ["milk"]}
	]}`)
	raws := Extract(payload)
	require.Len(t, raws, 3)
	assert.Equal(t, "kale", raws[1].Name)
	assert.Equal(t, "bunch", raws[1].Unit)
}

func TestExtractIngredientKeys(t *testing.T) {
	for _, key := range []string{"ingredient_list", "ingredients", "items"} {
		payload := decode(t, `{"`+key+`": ["salt", "pepper"]}`)
		assert.Len(t, Extract(payload), 2, "key %s", key)
	}
}

func TestExtractDataRecursion(t *testing.T) {
	payload := decode(t, `{"data": {"ingredients": [{"name": "butter", "qty": "2", "unit": "tbsp"}]}}`)
	raws := Extract(payload)
	require.Len(t, raws, 1)
	assert.Equal(t, "butter", raws[0].Name)
	require.NotNil(t, raws[0].Quantity)
	assert.Equal(t, 2.0, *raws[0].Quantity)
}

func TestExtractAIShoppingListString(t *testing.T) {
	// the AI list sometimes arrives as a JSON document encoded in a string
	payload := decode(t, `{"ai_shopping_list": "{\"items\": [\"2 cups flour\", \"milk\"]}"}`)
	raws := Extract(payload)
	require.Len(t, raws, 2)
	assert.Equal(t, "flour", raws[0].Name)
}

func TestExtractDaysMeals(t *testing.T) {
	payload := decode(t, `{"days": [
		{"meals": [{"name": "Taco Night", "ingredients": ["1 lb ground beef", "tortillas"]}],
		 "snacks": [{"name": "Afternoon", "ingredients": ["apple"]}]},
		{"meals": [{"name": "Pasta", "ingredients": [{"name": "spaghetti", "quantity": 1, "unit": "package"}]}]}
	]}`)
	raws := Extract(payload)
	require.Len(t, raws, 4)
	assert.Equal(t, "Taco Night", raws[0].Source)
	assert.Equal(t, "Afternoon", raws[2].Source)
	assert.Equal(t, "Pasta", raws[3].Source)
}

func TestExtractSkipsMalformedEntries(t *testing.T) {
	payload := decode(t, `{"ingredients": ["salt", 42, null, ["nested"], {"quantity": 2}]}`)
	raws := Extract(payload)
	// numbers, nulls, arrays and nameless maps are skipped, not raised
	require.Len(t, raws, 1)
	assert.Equal(t, "salt", raws[0].Name)
}

func TestExtractEmptyPayload(t *testing.T) {
	assert.Empty(t, Extract(decode(t, `{}`)))
	assert.Empty(t, Extract(decode(t, `{"unrelated": true}`)))
	assert.Empty(t, Extract(nil))
	assert.Empty(t, Extract(decode(t, `[]`)))
}

func TestExtractTopLevelArray(t *testing.T) {
	raws := Extract(decode(t, `["milk", "eggs"]`))
	assert.Len(t, raws, 2)
}
