package recipe

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Source identifies the capture path a draft originated from.
type Source string

const (
	SourceWrite   Source = "write"
	SourceSnap    Source = "snap"
	SourcePaste   Source = "paste"
	SourceSearch  Source = "search"
	SourceKitchen Source = "kitchen"
)

// ParseSource validates a capture path name.
func ParseSource(s string) (Source, error) {
	switch src := Source(strings.ToLower(strings.TrimSpace(s))); src {
	case SourceWrite, SourceSnap, SourcePaste, SourceSearch, SourceKitchen:
		return src, nil
	default:
		return "", fmt.Errorf("unknown capture path %q", s)
	}
}

// Amount is a numeric-as-string value. Remote payloads send nutrition values
// both as JSON strings and as JSON numbers; both decode into the same text.
type Amount string

// UnmarshalJSON accepts a string, a number or null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = Amount(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("amount must be a string or a number: %w", err)
	}
	*a = Amount(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

// Nutrition holds the four optional nutrition facts of a recipe.
type Nutrition struct {
	Calories Amount `json:"calories" yaml:"calories"`
	Protein  Amount `json:"protein" yaml:"protein"`
	Carbs    Amount `json:"carbs" yaml:"carbs"`
	Fats     Amount `json:"fats" yaml:"fats"`
}

// IsEmpty reports whether no nutrition fact is set.
func (n Nutrition) IsEmpty() bool {
	return n.Calories == "" && n.Protein == "" && n.Carbs == "" && n.Fats == ""
}

// Draft is the in-progress recipe accumulated by the capture paths and sub-editors.
type Draft struct {
	Title        string    `json:"title" yaml:"title"`
	Image        string    `json:"image,omitempty" yaml:"image,omitempty"`
	Course       string    `json:"course" yaml:"course"`
	Cuisine      string    `json:"cuisine" yaml:"cuisine"`
	PrepTime     string    `json:"prepTime" yaml:"prepTime"`
	CookTime     string    `json:"cookTime" yaml:"cookTime"`
	Nutrition    Nutrition `json:"nutrition" yaml:"nutrition"`
	Tags         []string  `json:"tags" yaml:"tags"`
	Ingredients  []string  `json:"ingredients" yaml:"ingredients"`
	Instructions []string  `json:"instructions" yaml:"instructions"`
	Notes        string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	Source       Source    `json:"source,omitempty" yaml:"source,omitempty"`
}

// Clone returns a deep copy so the working copies of the sub-editors never
// share backing arrays with the draft.
func (d Draft) Clone() Draft {
	d.Tags = cloneStrings(d.Tags)
	d.Ingredients = cloneStrings(d.Ingredients)
	d.Instructions = cloneStrings(d.Instructions)
	return d
}

// HasTitle reports whether the draft can be committed.
func (d Draft) HasTitle() bool {
	return strings.TrimSpace(d.Title) != ""
}

// Recipe is a stored recipe: a curated kitchen recipe or an archived committed draft.
type Recipe struct {
	// Must stay the first field: response schemas extend Recipe with reflect.StructOf.
	Draft
	ID        string `json:"id"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// ToDraft seeds a new draft from a stored recipe.
func (r Recipe) ToDraft(source Source) Draft {
	d := r.Draft.Clone()
	d.Source = source
	return d
}

// FromParsed builds a draft from normalizer output.
func FromParsed(p Parsed, source Source) Draft {
	return Draft{
		Title:        p.Title,
		Ingredients:  cloneStrings(p.Ingredients),
		Instructions: cloneStrings(p.Instructions),
		Source:       source,
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
