package app

import (
	_ "embed"
	"fmt"

	"meal-planner/internal/grocery"
	"meal-planner/internal/mealplan"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

// SeedDate is the date a new session starts on.
const SeedDate = "8"

// Seed is the starting content of a new session.
type Seed struct {
	Plan      mealplan.Plan `yaml:"plan"`
	Groceries grocery.List  `yaml:"groceries"`
}

// DefaultSeed decodes the embedded seed data.
func DefaultSeed() (Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(seedYAML, &s); err != nil {
		return Seed{}, fmt.Errorf("failed to decode seed data: %w", err)
	}
	return s, nil
}
