package tools

import (
	"squadflow/pkg/utils"
)

// PlannerToolID is the id and model-facing name of the planner tool.
const PlannerToolID = "planner"

func numberParam(desc string) map[string]any {
	return map[string]any{"type": "number", "description": desc}
}

func stringParam(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func mathSchema() map[string]any {
	return objectSchema(map[string]any{
		"a": numberParam("first operand"),
		"b": numberParam("second operand"),
	}, "a", "b")
}

func textSchema() map[string]any {
	return objectSchema(map[string]any{
		"text": stringParam("the text to analyze"),
	}, "text")
}

// Builtins returns the definitions available out of the box. Their ids
// double as operation selectors inside the executor.
func Builtins() []*Definition {
	return []*Definition{
		{ID: "addition", Name: "addition", Kind: KindMath,
			Description: "Add two numbers and return the sum.",
			Parameters:  mathSchema()},
		{ID: "subtraction", Name: "subtraction", Kind: KindMath,
			Description: "Subtract the second number from the first.",
			Parameters:  mathSchema()},
		{ID: "multiplication", Name: "multiplication", Kind: KindMath,
			Description: "Multiply two numbers and return the product.",
			Parameters:  mathSchema()},
		{ID: "division", Name: "division", Kind: KindMath,
			Description: "Divide the first number by the second. The divisor must not be zero.",
			Parameters:  mathSchema()},

		{ID: "word_count", Name: "word_count", Kind: KindEnglish,
			Description: "Count the whitespace-delimited words in a text.",
			Parameters:  textSchema()},
		{ID: "letter_count", Name: "letter_count", Kind: KindEnglish,
			Description: "Count the non-whitespace characters in a text.",
			Parameters:  textSchema()},
		{ID: "most_used_word", Name: "most_used_word", Kind: KindEnglish,
			Description: "Find the most frequent word in a text, case-insensitively.",
			Parameters:  textSchema()},
		{ID: "letter_frequency", Name: "letter_frequency", Kind: KindEnglish,
			Description: "Build a case-insensitive character frequency histogram of a text.",
			Parameters:  textSchema()},

		{ID: "execute_code", Name: "execute_code", Kind: KindCode,
			Description: "Run a Lua snippet in a sandbox and return its result. The snippet must end with a return statement.",
			Parameters: objectSchema(map[string]any{
				"language": stringParam("must be \"lua\""),
				"code":     stringParam("the source snippet to execute"),
			}, "language", "code")},

		{ID: PlannerToolID, Name: PlannerToolID, Kind: KindPlanner,
			Description: "Produce a step-by-step plan assigning sub-questions to the assistants in the squad. Call this once, before starting multi-assistant work.",
			Parameters:  objectSchema(map[string]any{})},
	}
}

// RegisterBuiltins loads every built-in definition into the registry.
func RegisterBuiltins(r *Registry) {
	for _, def := range Builtins() {
		r.Register(def)
	}
}

// NewAPITool builds a generic HTTP tool from user input. The name is
// sanitized into the function-calling charset.
func NewAPITool(name, description string, cfg APIConfig, parameters map[string]any) *Definition {
	if parameters == nil {
		parameters = objectSchema(map[string]any{})
	}
	return &Definition{
		ID:          utils.GenerateID(),
		Name:        SanitizeName(name),
		Description: description,
		Kind:        KindAPI,
		Parameters:  parameters,
		API:         &cfg,
	}
}
