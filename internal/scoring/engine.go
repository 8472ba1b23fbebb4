package scoring

import (
	"slices"
	"sync"

	"baby-meal-planner/internal/catalog"
)

// VersionedProfile is a Profile that reports a change counter.
type VersionedProfile interface {
	Profile
	Version() uint64
}

// VersionedPantry is a Pantry that reports a change counter.
type VersionedPantry interface {
	Pantry
	Version() uint64
}

type cacheKey struct {
	profileVersion uint64
	pantryVersion  uint64
	age            int
}

// Engine memoizes the ranked catalog until the profile, pantry or age changes.
type Engine struct {
	catalog *catalog.Catalog
	profile VersionedProfile
	pantry  VersionedPantry

	mu     sync.Mutex
	key    cacheKey
	valid  bool
	scored []ScoredRecipe
}

// NewEngine creates an Engine over the given stores.
func NewEngine(c *catalog.Catalog, p VersionedProfile, pantry VersionedPantry) *Engine {
	return &Engine{catalog: c, profile: p, pantry: pantry}
}

// Scored returns every recipe ranked by descending score.
func (e *Engine) Scored() []ScoredRecipe {
	key := cacheKey{
		profileVersion: e.profile.Version(),
		pantryVersion:  e.pantry.Version(),
		age:            e.profile.AgeInMonths(),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.valid || e.key != key {
		e.scored = ScoreAll(e.catalog.Recipes(), e.profile, e.pantry, e.catalog)
		e.key = key
		e.valid = true
	}
	return slices.Clone(e.scored)
}

// Recipe returns the scored entry for one recipe id.
func (e *Engine) Recipe(id string) (ScoredRecipe, bool) {
	for _, sr := range e.Scored() {
		if sr.Recipe.ID == id {
			return sr, true
		}
	}
	return ScoredRecipe{}, false
}

// AgeAppropriate returns ranked recipes suited to the baby's age.
func (e *Engine) AgeAppropriate() []ScoredRecipe { return AgeAppropriate(e.Scored()) }

// Safe returns ranked recipes with no allergy ingredients.
func (e *Engine) Safe() []ScoredRecipe { return Safe(e.Scored()) }

// ReadyToCook returns ranked, age-appropriate recipes that can be cooked now.
func (e *Engine) ReadyToCook() []ScoredRecipe { return ReadyToCook(e.Scored()) }

// Recommended returns ranked, age-appropriate recipes with no allergy ingredients.
func (e *Engine) Recommended() []ScoredRecipe { return Recommended(e.Scored()) }
