package ai

// GeneratedList is the structured output we ask the model for. The schema is
// reflected from this type and sent with every completion request.
type GeneratedList struct {
	Items          []GeneratedItem `json:"items" jsonschema_description:"Every ingredient needed for the menu, one entry per ingredient"`
	ConversationID string          `json:"-"`
}

type GeneratedItem struct {
	Name     string  `json:"name" jsonschema_description:"Ingredient name, e.g. 'chicken breast'"`
	Quantity float64 `json:"quantity,omitempty" jsonschema_description:"Amount needed, 0 when unknown"`
	Unit     string  `json:"unit,omitempty" jsonschema_description:"Unit for the quantity, e.g. 'oz', 'cup', empty for count items"`
	Notes    string  `json:"notes,omitempty" jsonschema_description:"Preparation notes such as 'diced'"`
}

const systemMessage = `You are a grocery planning assistant. Given a weekly menu, produce the complete shopping list for it.
Rules:
- One entry per distinct ingredient, with amounts combined across meals.
- Use common US grocery units (oz, lb, cup, tbsp, tsp) or leave the unit empty for count items like "3 lemons".
- Include staples only if a recipe explicitly calls for them.
- Respond only with the structured list.`

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func userMessage(content string) chatMessage {
	return chatMessage{Role: "user", Content: content}
}

func assistantMessage(content string) chatMessage {
	return chatMessage{Role: "assistant", Content: content}
}
