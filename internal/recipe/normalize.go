package recipe

import (
	"regexp"
	"strings"
)

// UntitledRecipe is the title used when the text has no usable line.
const UntitledRecipe = "Untitled Recipe"

var (
	ingredientTokens = []string{"cup", "tsp", "tbsp", "gram"}
	stepNumber       = regexp.MustCompile(`^\d+\.`)
)

// Parsed is the best-effort structure recovered from unstructured recipe text.
type Parsed struct {
	Title        string   `json:"title"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
}

// Normalize turns OCR output or pasted notes into a title, ingredient lines and
// instruction lines. The two classifications are independent: a line such as
// "1. Add 2 cups flour" lands in both lists, and the title line is classified
// like any other line.
func Normalize(text string) Parsed {
	lines := nonEmptyLines(text)

	parsed := Parsed{
		Title:        UntitledRecipe,
		Ingredients:  []string{},
		Instructions: []string{},
	}
	if len(lines) > 0 {
		parsed.Title = lines[0]
	}

	for _, line := range lines {
		if isIngredientLine(line) {
			parsed.Ingredients = append(parsed.Ingredients, line)
		}
		if isInstructionLine(line) {
			parsed.Instructions = append(parsed.Instructions, line)
		}
	}
	return parsed
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		if line := strings.TrimSpace(raw); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func isIngredientLine(line string) bool {
	lower := strings.ToLower(line)
	for _, token := range ingredientTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return line[0] >= '0' && line[0] <= '9'
}

func isInstructionLine(line string) bool {
	return stepNumber.MatchString(line) || strings.Contains(strings.ToLower(line), "step")
}
