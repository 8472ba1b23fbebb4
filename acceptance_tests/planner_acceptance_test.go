package acceptance_tests

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baby-meal-planner/internal/app"
	"baby-meal-planner/internal/config"
	"baby-meal-planner/internal/shopping"
	"baby-meal-planner/internal/wizard"
)

const ingredientsJSON = `[
  {"id": "a", "name": "Apple", "category": "fruit"},
  {"id": "b", "name": "Banana", "category": "fruit"},
  {"id": "c", "name": "Carrot", "category": "vegetable"}
]`

const recipesJSON = `[
  {"id": "r1", "title": "Apple Banana Mash", "min_month": 6, "max_month": 12, "ingredient_ids": ["a", "b"]},
  {"id": "r2", "title": "Carrot Puree", "min_month": 4, "max_month": 12, "ingredient_ids": ["c"]}
]`

// Monday of the week 2024-01-08..2024-01-14.
var monday = time.Date(2024, 1, 8, 8, 0, 0, 0, time.UTC)

func newApp(t *testing.T, cfg *config.Config) *app.App {
	t.Helper()
	a, err := app.New(context.Background(), cfg, app.WithClock(func() time.Time { return monday }))
	require.NoError(t, err)
	return a
}

func TestPlanToShoppingToPantry(t *testing.T) {
	catalogDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(catalogDir, "ingredients.json"), []byte(ingredientsJSON), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(catalogDir, "recipes.json"), []byte(recipesJSON), 0644))

	cfg := &config.Config{
		StorageBackend: config.BackendSQLite,
		DatabasePath:   filepath.Join(t.TempDir(), "babymeal.db"),
		CatalogDir:     catalogDir,
	}

	a := newApp(t, cfg)
	require.NoError(t, a.Profile.SetBabyInfo("Mei", "2023-06-01"))
	a.Pantry.Add("a")

	// Plan two days through the wizard.
	s := a.NewWizard()
	require.NoError(t, s.ToggleDate("2024-01-08"))
	require.NoError(t, s.ToggleDate("2024-01-09"))
	require.NoError(t, s.Next())
	_, err := s.ToggleRecipe("r1")
	require.NoError(t, err)
	require.NoError(t, s.Next())
	require.NoError(t, s.AssignRecipeToDate("2024-01-08", "r1"))
	require.NoError(t, s.Next())
	plan, skipped, err := s.Finish()
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Equal(t, "2024-01-08", plan.WeekStartDate)

	assert.Equal(t, []string{"r1"}, a.Plans.GetMealsForDate("2024-01-08"))
	assert.Empty(t, a.Plans.GetMealsForDate("2024-01-09"))

	// Only the missing ingredient is on the list.
	items := a.Shopping.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].IngredientID)
	assert.Equal(t, "2024-01-08", items[0].EarliestDate)
	assert.Equal(t, shopping.ThisWeek, items[0].TimeGroup)

	r1, ok := a.Scoring.Recipe("r1")
	require.True(t, ok)
	assert.True(t, r1.IsAgeAppropriate)
	assert.False(t, r1.ReadyToCook)
	assert.Equal(t, []string{"Banana"}, r1.MissingIngredients)

	// Buy it and restock.
	assert.True(t, a.Shopping.TogglePurchased("b"))
	assert.Equal(t, []string{"b"}, a.Shopping.AddAllPurchasedToPantry())
	assert.Empty(t, a.Shopping.Items())

	r1, _ = a.Scoring.Recipe("r1")
	assert.True(t, r1.ReadyToCook)
	require.NoError(t, a.Close())

	// Everything survives a restart.
	reopened := newApp(t, cfg)
	defer reopened.Close()
	assert.Equal(t, "Mei", reopened.Profile.BabyName())
	assert.True(t, reopened.Pantry.Has("a"))
	assert.True(t, reopened.Pantry.Has("b"))
	assert.Equal(t, []string{"r1"}, reopened.Plans.GetMealsForDate("2024-01-08"))
	assert.Empty(t, reopened.Shopping.Items())
}

func TestWizardRespectsDailyCap(t *testing.T) {
	a := newApp(t, &config.Config{StorageBackend: config.BackendMemory})
	defer a.Close()

	a.Plans.SavePlan(a.Plans.CreateNewPlan([]string{"2024-01-10"}))
	require.NoError(t, a.Plans.AddMealToDate("2024-01-10", "carrot-puree"))
	require.NoError(t, a.Plans.AddMealToDate("2024-01-10", "rice-porridge"))

	s := a.NewWizard()
	require.NoError(t, s.ToggleDate("2024-01-10"))
	require.NoError(t, s.Next())
	for _, id := range []string{"pumpkin-rice", "apple-oat"} {
		_, err := s.ToggleRecipe(id)
		require.NoError(t, err)
	}
	require.NoError(t, s.Next())
	require.NoError(t, s.AssignRecipeToDate("2024-01-10", "pumpkin-rice"))
	require.NoError(t, s.AssignRecipeToDate("2024-01-10", "apple-oat"))
	require.NoError(t, s.Next())

	_, skipped, err := s.Finish()
	require.NoError(t, err)
	assert.Equal(t, []wizard.Assignment{{Date: "2024-01-10", RecipeID: "apple-oat"}}, skipped)
	assert.Equal(t, []string{"carrot-puree", "rice-porridge", "pumpkin-rice"}, a.Plans.GetMealsForDate("2024-01-10"))
}
