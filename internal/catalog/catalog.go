package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
)

//go:embed data/*.json
var bundledFS embed.FS

const (
	ingredientsFile = "ingredients.json"
	recipesFile     = "recipes.json"
)

// Category groups ingredients for browsing and shopping-list ordering.
type Category string

const (
	CategoryGrain     Category = "grain"
	CategoryVegetable Category = "vegetable"
	CategoryFruit     Category = "fruit"
	CategoryProtein   Category = "protein"
	CategoryDairy     Category = "dairy"
	CategoryOther     Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryGrain,
	CategoryVegetable,
	CategoryFruit,
	CategoryProtein,
	CategoryDairy,
	CategoryOther,
}

// Rank returns the display position of the category. Unknown categories sort with "other".
func (c Category) Rank() int {
	for i, cat := range Categories {
		if cat == c {
			return i
		}
	}
	return len(Categories) - 1
}

// Ingredient is a reference ingredient record.
type Ingredient struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Category           Category `json:"category"`
	ImageURL           string   `json:"imageUrl,omitempty"`
	NutritionHighlight string   `json:"nutrition_highlight,omitempty"`
	DoctorNote         string   `json:"doctor_note,omitempty"`
	PickingGuide       string   `json:"picking_guide,omitempty"`
	ProcessingGuide    string   `json:"processing_guide,omitempty"`
	AllergyRisk        bool     `json:"allergy_risk,omitempty"`
}

// Recipe is a reference recipe record. MinMonth and MaxMonth are inclusive.
type Recipe struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	MinMonth      int      `json:"min_month"`
	MaxMonth      int      `json:"max_month"`
	IngredientIDs []string `json:"ingredient_ids"`
	Steps         []string `json:"steps"`
	NutritionTags []string `json:"nutrition_tags"`
	Tips          string   `json:"tips"`
	ImageURL      string   `json:"imageUrl,omitempty"`
	CookingTime   int      `json:"cooking_time,omitempty"`
	Difficulty    string   `json:"difficulty,omitempty"`
}

// SuitsAge reports whether month falls inside the recipe's age range.
func (r Recipe) SuitsAge(month int) bool {
	return month >= r.MinMonth && month <= r.MaxMonth
}

// Catalog is the read-only set of ingredients and recipes, loaded once.
type Catalog struct {
	ingredients     []Ingredient
	recipes         []Recipe
	ingredientIndex map[string]int
	recipeIndex     map[string]int
}

// New builds a Catalog from in-memory records, preserving their order.
// Later records with a duplicate id are ignored.
func New(ingredients []Ingredient, recipes []Recipe) *Catalog {
	c := &Catalog{
		ingredientIndex: make(map[string]int, len(ingredients)),
		recipeIndex:     make(map[string]int, len(recipes)),
	}
	for _, ing := range ingredients {
		if _, dup := c.ingredientIndex[ing.ID]; dup {
			continue
		}
		c.ingredientIndex[ing.ID] = len(c.ingredients)
		c.ingredients = append(c.ingredients, ing)
	}
	for _, rec := range recipes {
		if _, dup := c.recipeIndex[rec.ID]; dup {
			continue
		}
		c.recipeIndex[rec.ID] = len(c.recipes)
		c.recipes = append(c.recipes, rec)
	}
	return c
}

// Load reads the catalog from dir, or from the bundled data when dir is empty.
func Load(dir string) (*Catalog, error) {
	if dir == "" {
		sub, err := fs.Sub(bundledFS, "data")
		if err != nil {
			return nil, fmt.Errorf("failed to open bundled catalog: %w", err)
		}
		return LoadFS(sub)
	}
	return LoadFS(os.DirFS(dir))
}

// LoadFS reads ingredients.json and recipes.json from fsys.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	var ingredients []Ingredient
	if err := readJSON(fsys, ingredientsFile, &ingredients); err != nil {
		return nil, err
	}
	var recipes []Recipe
	if err := readJSON(fsys, recipesFile, &recipes); err != nil {
		return nil, err
	}
	return New(ingredients, recipes), nil
}

func readJSON(fsys fs.FS, name string, v any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	return nil
}

// Ingredients returns all ingredients in catalog order.
func (c *Catalog) Ingredients() []Ingredient {
	return c.ingredients
}

// Recipes returns all recipes in catalog order.
func (c *Catalog) Recipes() []Recipe {
	return c.recipes
}

// Ingredient looks up an ingredient by id.
func (c *Catalog) Ingredient(id string) (Ingredient, bool) {
	i, ok := c.ingredientIndex[id]
	if !ok {
		return Ingredient{}, false
	}
	return c.ingredients[i], true
}

// Recipe looks up a recipe by id.
func (c *Catalog) Recipe(id string) (Recipe, bool) {
	i, ok := c.recipeIndex[id]
	if !ok {
		return Recipe{}, false
	}
	return c.recipes[i], true
}

// IngredientName returns the display name for id, falling back to the id itself.
func (c *Catalog) IngredientName(id string) string {
	if ing, ok := c.Ingredient(id); ok && ing.Name != "" {
		return ing.Name
	}
	return id
}

// RecipeTitle returns the title for id, falling back to the id itself.
func (c *Catalog) RecipeTitle(id string) string {
	if rec, ok := c.Recipe(id); ok && rec.Title != "" {
		return rec.Title
	}
	return id
}

// IngredientsByCategory returns the ingredients of one category in catalog order.
func (c *Catalog) IngredientsByCategory(category Category) []Ingredient {
	var out []Ingredient
	for _, ing := range c.ingredients {
		if ing.Category == category {
			out = append(out, ing)
		}
	}
	return out
}

// RecipesForMonth returns the recipes whose age range includes month.
func (c *Catalog) RecipesForMonth(month int) []Recipe {
	var out []Recipe
	for _, rec := range c.recipes {
		if rec.SuitsAge(month) {
			out = append(out, rec)
		}
	}
	return out
}
