package recipe

import "strings"

var (
	DefaultCourses = []string{"Breakfast", "Lunch", "Dinner", "Snack", "Dessert", "Main Dish"}

	DefaultCuisines = []string{
		"Italian", "Mexican", "American", "Chinese", "Indian",
		"Mediterranean", "Thai", "Japanese", "French", "Greek",
	}
)

// TagGroup is one section of suggested tags.
type TagGroup struct {
	Title string
	Tags  []string
}

// TagGroups are the suggested tag sections offered by the tag editor.
var TagGroups = []TagGroup{
	{
		Title: "Meal Type",
		Tags:  []string{"Breakfast", "Lunch", "Dinner", "Snack", "Dessert", "Salad", "Drink", "Appetizer", "Side Dish", "Soup"},
	},
	{
		Title: "Diet & Health",
		Tags:  []string{"Vegan", "Vegetarian", "Healthy", "Gluten-free", "Low-fat", "Keto", "Paleo", "Dairy-free", "Low-carb"},
	},
	{
		Title: "Lifestyle",
		Tags:  []string{"Budget-friendly", "Family recipe", "Meal Prep", "Kid-friendly", "One-Pot", "Spicy", "Comfort food", "Gourmet"},
	},
}

// SuggestedTag returns the spelling of s in TagGroups, matched case-insensitively.
func SuggestedTag(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, g := range TagGroups {
		for _, tag := range g.Tags {
			if strings.EqualFold(tag, s) {
				return tag, true
			}
		}
	}
	return "", false
}

// Vocabulary is a suggestion list that accepts additions. Lookups are
// case-insensitive; added entries keep the casing they were typed with.
type Vocabulary struct {
	items []string
}

// NewVocabulary creates a vocabulary seeded with the given suggestions.
func NewVocabulary(suggested []string) *Vocabulary {
	return &Vocabulary{items: cloneStrings(suggested)}
}

// Items returns the suggestions followed by the additions, in insertion order.
func (v *Vocabulary) Items() []string {
	return cloneStrings(v.items)
}

// Canonical returns the stored spelling of s when it matches an entry
// case-insensitively, and s itself otherwise.
func (v *Vocabulary) Canonical(s string) string {
	if existing, ok := v.lookup(s); ok {
		return existing
	}
	return s
}

// Add trims s and appends it unless an entry already matches. It returns the
// value to select and whether the vocabulary grew.
func (v *Vocabulary) Add(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", false
	}
	if existing, ok := v.lookup(trimmed); ok {
		return existing, false
	}
	v.items = append(v.items, trimmed)
	return trimmed, true
}

func (v *Vocabulary) lookup(s string) (string, bool) {
	for _, item := range v.items {
		if strings.EqualFold(item, s) {
			return item, true
		}
	}
	return "", false
}
