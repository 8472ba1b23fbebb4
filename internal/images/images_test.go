package images

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baby-meal-planner/internal/catalog"
)

func TestResolver(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"carrot.png", "apple.PNG", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.png"), 0755))

	c := catalog.New(
		[]catalog.Ingredient{
			{ID: "carrot", ImageURL: "https://cdn.test/carrot.jpg"},
			{ID: "rice", ImageURL: "https://cdn.test/rice.jpg"},
			{ID: "tofu"},
		},
		[]catalog.Recipe{
			{ID: "porridge", IngredientIDs: []string{"rice", "carrot"}},
			{ID: "stew", IngredientIDs: []string{"carrot"}},
			{ID: "plain-tofu", IngredientIDs: []string{"tofu"}},
			{ID: "empty"},
		},
	)

	r, err := NewResolver(c, dir, "/assets/ingredients/")
	require.NoError(t, err)

	t.Run("Index", func(t *testing.T) {
		assert.Equal(t, []string{"apple", "carrot"}, r.AvailableIDs())
		assert.True(t, r.HasLocal("carrot"))
		assert.False(t, r.HasLocal("rice"))
	})

	t.Run("Precedence", func(t *testing.T) {
		assert.Equal(t, "/assets/ingredients/carrot.png", r.URL("carrot"))
		assert.Equal(t, "https://cdn.test/rice.jpg", r.URL("rice"))
		assert.Equal(t, PlaceholderURL, r.URL("tofu"))
		assert.Equal(t, PlaceholderURL, r.URL("unknown"))
	})

	t.Run("MainIngredientImage", func(t *testing.T) {
		u, ok := r.MainIngredientImage([]string{"porridge", "stew"})
		assert.True(t, ok)
		assert.Equal(t, "https://cdn.test/rice.jpg", u)

		u, ok = r.MainIngredientImage([]string{"stew"})
		assert.True(t, ok)
		assert.Equal(t, "/assets/ingredients/carrot.png", u)

		for _, meals := range [][]string{nil, {"plain-tofu"}, {"empty"}, {"missing"}} {
			_, ok := r.MainIngredientImage(meals)
			assert.False(t, ok, "meals %v", meals)
		}
	})
}

func TestResolverWithoutDirectory(t *testing.T) {
	r, err := NewResolver(nil, filepath.Join(t.TempDir(), "absent"), "")
	require.NoError(t, err)
	assert.Empty(t, r.AvailableIDs())
	assert.Equal(t, PlaceholderURL, r.URL("carrot"))
}
