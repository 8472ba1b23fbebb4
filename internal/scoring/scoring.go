package scoring

import (
	"slices"

	"baby-meal-planner/internal/catalog"
	"baby-meal-planner/internal/profile"
)

// Score weights.
const (
	ReadyToCookBonus   = 100
	PartialStockWeight = 50
	LovedBonus         = 10
	AgeBonus           = 20
	AllergyPenalty     = 200
)

// Profile is the part of the baby's profile the scorer reads.
type Profile interface {
	AgeInMonths() int
	IngredientState(id string) profile.IngredientState
}

// Pantry reports which ingredients are in stock.
type Pantry interface {
	Has(id string) bool
}

// Namer resolves ingredient display names.
type Namer interface {
	IngredientName(id string) string
}

// ScoredRecipe is a recipe annotated with its score and facets.
// Ingredient lists hold display names.
type ScoredRecipe struct {
	Recipe                catalog.Recipe
	Score                 int
	IsAgeAppropriate      bool
	HasAllergyIngredients bool
	AllergyIngredients    []string
	AvailableIngredients  []string
	MissingIngredients    []string
	LovedIngredients      []string
	ReadyToCook           bool
}

// ScoreRecipe scores one recipe against the profile and pantry.
func ScoreRecipe(rec catalog.Recipe, p Profile, pantry Pantry, names Namer) ScoredRecipe {
	return scoreAtAge(rec, p.AgeInMonths(), p, pantry, names)
}

func scoreAtAge(rec catalog.Recipe, age int, p Profile, pantry Pantry, names Namer) ScoredRecipe {
	sr := ScoredRecipe{
		Recipe:           rec,
		IsAgeAppropriate: rec.SuitsAge(age),
	}

	ids := uniqueIDs(rec.IngredientIDs)
	for _, id := range ids {
		name := names.IngredientName(id)
		state := p.IngredientState(id)
		if state.Allergy {
			sr.AllergyIngredients = append(sr.AllergyIngredients, name)
		}
		if pantry.Has(id) {
			sr.AvailableIngredients = append(sr.AvailableIngredients, name)
		} else {
			sr.MissingIngredients = append(sr.MissingIngredients, name)
		}
		if state.Preference == profile.PreferenceLove {
			sr.LovedIngredients = append(sr.LovedIngredients, name)
		}
	}
	sr.HasAllergyIngredients = len(sr.AllergyIngredients) > 0
	sr.ReadyToCook = len(sr.MissingIngredients) == 0

	if sr.ReadyToCook {
		sr.Score += ReadyToCookBonus
	} else if n := len(sr.AvailableIngredients); n > 0 {
		sr.Score += PartialStockWeight * n / len(ids)
	}
	sr.Score += LovedBonus * len(sr.LovedIngredients)
	if sr.IsAgeAppropriate {
		sr.Score += AgeBonus
	}
	if sr.HasAllergyIngredients {
		sr.Score -= AllergyPenalty
	}
	return sr
}

// uniqueIDs drops repeated ids, keeping first-occurrence order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ScoreAll scores every recipe and sorts by descending score.
// Equal scores keep their catalog order.
func ScoreAll(recipes []catalog.Recipe, p Profile, pantry Pantry, names Namer) []ScoredRecipe {
	age := p.AgeInMonths()
	out := make([]ScoredRecipe, 0, len(recipes))
	for _, rec := range recipes {
		out = append(out, scoreAtAge(rec, age, p, pantry, names))
	}
	slices.SortStableFunc(out, func(a, b ScoredRecipe) int {
		return b.Score - a.Score
	})
	return out
}

func filter(in []ScoredRecipe, keep func(ScoredRecipe) bool) []ScoredRecipe {
	var out []ScoredRecipe
	for _, sr := range in {
		if keep(sr) {
			out = append(out, sr)
		}
	}
	return out
}

// AgeAppropriate keeps recipes suited to the baby's age.
func AgeAppropriate(in []ScoredRecipe) []ScoredRecipe {
	return filter(in, func(sr ScoredRecipe) bool { return sr.IsAgeAppropriate })
}

// Safe keeps recipes with no allergy ingredients.
func Safe(in []ScoredRecipe) []ScoredRecipe {
	return filter(in, func(sr ScoredRecipe) bool { return !sr.HasAllergyIngredients })
}

// ReadyToCook keeps age-appropriate recipes whose ingredients are all in stock.
func ReadyToCook(in []ScoredRecipe) []ScoredRecipe {
	return filter(in, func(sr ScoredRecipe) bool { return sr.ReadyToCook && sr.IsAgeAppropriate })
}

// Recommended keeps age-appropriate recipes with no allergy ingredients.
func Recommended(in []ScoredRecipe) []ScoredRecipe {
	return filter(in, func(sr ScoredRecipe) bool { return sr.IsAgeAppropriate && !sr.HasAllergyIngredients })
}
