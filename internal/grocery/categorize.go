package grocery

import "strings"

const CategoryOther = "Other"

type categoryEntry struct {
	name     string
	keywords []string
}

// Table order is a fixed priority list: meat keywords are checked before
// produce so "chicken salad" lands in Meat & Seafood, frozen before produce
// so "frozen peas" lands in Frozen. Changing the order changes existing
// categorization outcomes, so don't.
var categoryTable = []categoryEntry{
	{"Meat & Seafood", []string{
		"chicken", "beef", "pork", "turkey", "bacon", "sausage", "ham",
		"steak", "salmon", "shrimp", "tuna", "fish", "lamb", "crab",
		"lobster", "tilapia", "breast", "thigh", "ground meat", "hot dog",
		"deli meat",
	}},
	{"Frozen", []string{
		"frozen", "ice cream", "popsicle",
	}},
	{"Dairy", []string{
		"milk", "egg", "butter", "cheese", "yogurt", "cream",
		"half and half",
	}},
	{"Produce", []string{
		"apple", "banana", "orange", "lemon", "lime", "avocado", "tomato",
		"potato", "onion", "garlic", "lettuce", "spinach", "kale",
		"broccoli", "carrot", "celery", "cucumber", "pepper", "mushroom",
		"corn", "grape", "strawberry", "strawberries", "blueberry",
		"blueberries", "raspberry", "raspberries", "berry", "berries",
		"watermelon", "melon", "pineapple", "mango", "peach", "pear",
		"cilantro", "basil", "parsley", "ginger", "jalapeno", "zucchini",
		"asparagus", "green bean", "cabbage", "cauliflower", "squash",
		"arugula", "romaine", "herb", "fruit",
	}},
	{"Bakery", []string{
		"bread", "bagel", "tortilla", "roll", "bun", "muffin", "croissant",
		"pita", "sourdough",
	}},
	{"Beverages", []string{
		"juice", "coffee", "tea", "soda", "beer", "wine", "kombucha",
		"lemonade", "sparkling water", "drink",
	}},
	{"Snacks", []string{
		"chip", "cracker", "cookie", "popcorn", "pretzel", "granola bar",
		"trail mix", "candy", "chocolate",
	}},
	{"Pantry", []string{
		"rice", "pasta", "noodle", "flour", "sugar", "salt", "oil",
		"vinegar", "sauce", "ketchup", "mustard", "mayonnaise", "honey",
		"peanut butter", "jelly", "jam", "cereal", "oatmeal", "granola",
		"soup", "broth", "stock", "bean", "lentil", "nut", "almond",
		"spice", "seasoning", "syrup", "salsa", "canned",
	}},
}

// Categorize assigns a shelf category by substring match against the
// normalized name; first match in table order wins, no match is Other.
// Deterministic: same input, same category.
func Categorize(normalizedName string) string {
	name := strings.ToLower(strings.TrimSpace(normalizedName))
	if name == "" {
		return CategoryOther
	}
	for _, entry := range categoryTable {
		for _, keyword := range entry.keywords {
			if strings.Contains(name, keyword) {
				return entry.name
			}
		}
	}
	return CategoryOther
}
