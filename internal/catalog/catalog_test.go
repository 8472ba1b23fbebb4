package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBundled(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.NotEmpty(t, c.Ingredients())
	assert.NotEmpty(t, c.Recipes())

	for _, rec := range c.Recipes() {
		assert.LessOrEqual(t, rec.MinMonth, rec.MaxMonth, "recipe %s has an inverted age range", rec.ID)
		for _, id := range rec.IngredientIDs {
			_, ok := c.Ingredient(id)
			assert.True(t, ok, "recipe %s references unknown ingredient %s", rec.ID, id)
		}
	}
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ingredients.json"),
		[]byte(`[{"id":"a","name":"Apple","category":"fruit"}]`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "recipes.json"),
		[]byte(`[{"id":"r1","title":"Apple Mash","min_month":6,"max_month":12,"ingredient_ids":["a"]}]`), 0644))

	c, err := Load(dir)
	require.NoError(t, err)

	ing, ok := c.Ingredient("a")
	require.True(t, ok)
	assert.Equal(t, CategoryFruit, ing.Category)
	assert.Equal(t, "Apple Mash", c.RecipeTitle("r1"))
}

func TestLoadErrors(t *testing.T) {
	t.Run("MissingFiles", func(t *testing.T) {
		_, err := Load(t.TempDir())
		assert.Error(t, err)
	})

	t.Run("CorruptJSON", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "ingredients.json"), []byte(`{not json`), 0644))
		_, err := Load(dir)
		assert.Error(t, err)
	})
}

func TestLookups(t *testing.T) {
	c := New(
		[]Ingredient{
			{ID: "rice", Name: "Rice", Category: CategoryGrain},
			{ID: "carrot", Name: "Carrot", Category: CategoryVegetable},
			{ID: "rice", Name: "Duplicate", Category: CategoryOther},
		},
		[]Recipe{
			{ID: "r1", Title: "Porridge", MinMonth: 4, MaxMonth: 8},
			{ID: "r2", Title: "Stew", MinMonth: 9, MaxMonth: 24},
		},
	)

	t.Run("FallbackName", func(t *testing.T) {
		assert.Equal(t, "Rice", c.IngredientName("rice"))
		assert.Equal(t, "mystery", c.IngredientName("mystery"))
		assert.Equal(t, "r9", c.RecipeTitle("r9"))
	})

	t.Run("DuplicateIgnored", func(t *testing.T) {
		assert.Len(t, c.Ingredients(), 2)
		assert.Equal(t, "Rice", c.IngredientName("rice"))
	})

	t.Run("ByCategory", func(t *testing.T) {
		grains := c.IngredientsByCategory(CategoryGrain)
		require.Len(t, grains, 1)
		assert.Equal(t, "rice", grains[0].ID)
		assert.Empty(t, c.IngredientsByCategory(CategoryDairy))
	})

	t.Run("ForMonth", func(t *testing.T) {
		assert.Len(t, c.RecipesForMonth(4), 1)
		assert.Len(t, c.RecipesForMonth(8), 1)
		assert.Len(t, c.RecipesForMonth(9), 1)
		assert.Empty(t, c.RecipesForMonth(30))
	})
}

func TestCategoryRank(t *testing.T) {
	assert.Less(t, CategoryGrain.Rank(), CategoryVegetable.Rank())
	assert.Less(t, CategoryDairy.Rank(), CategoryOther.Rank())
	assert.Equal(t, CategoryOther.Rank(), Category("mystery").Rank())
}
