package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"baby-meal-planner/internal/catalog"
	"baby-meal-planner/internal/export"
	"baby-meal-planner/internal/imageprompt"
	"baby-meal-planner/internal/planner"
	"baby-meal-planner/internal/scoring"
	"baby-meal-planner/internal/shopping"
)

// Recipe list filters accepted by WriteRecipes.
const (
	FilterRecommended = "recommended"
	FilterReady       = "ready"
	FilterSafe        = "safe"
	FilterAge         = "age"
	FilterAll         = "all"
)

// RecipeFilters lists the accepted filters.
var RecipeFilters = []string{FilterRecommended, FilterReady, FilterSafe, FilterAge, FilterAll}

// FilterRecipes returns the scored recipes selected by filter, best first.
func (a *App) FilterRecipes(filter string) ([]scoring.ScoredRecipe, error) {
	switch filter {
	case "", FilterRecommended:
		return a.Scoring.Recommended(), nil
	case FilterReady:
		return a.Scoring.ReadyToCook(), nil
	case FilterSafe:
		return a.Scoring.Safe(), nil
	case FilterAge:
		return a.Scoring.AgeAppropriate(), nil
	case FilterAll:
		return a.Scoring.Scored(), nil
	default:
		return nil, fmt.Errorf("unknown recipe filter %q (want one of %s)", filter, strings.Join(RecipeFilters, ", "))
	}
}

func (a *App) mealTitles(ids []string) string {
	titles := make([]string, len(ids))
	for i, id := range ids {
		titles[i] = a.Catalog.RecipeTitle(id)
	}
	return strings.Join(titles, ", ")
}

// WritePlan prints the current week plan.
func (a *App) WritePlan(w io.Writer) {
	plan, ok := a.Plans.CurrentPlan()
	if !ok {
		fmt.Fprintln(w, "No plan for this week. Run the wizard to create one.")
		return
	}

	fmt.Fprintf(w, "=== WEEK OF %s ===\n", plan.WeekStartDate)
	for _, date := range plan.Dates() {
		meals := plan.Meals[date]
		day := date
		if t, err := planner.ParseDate(date); err == nil {
			day = fmt.Sprintf("%s %s", t.Format("Mon"), date)
		}
		if len(meals) == 0 {
			fmt.Fprintf(w, "%-15s: -\n", day)
			continue
		}
		fmt.Fprintf(w, "%-15s: %s\n", day, a.mealTitles(meals))
	}
	fmt.Fprintf(w, "\n%d meals planned, %d past plans archived.\n", plan.MealCount(), len(a.Plans.HistoryPlans()))
}

// WriteToday prints today's meals with their ingredients.
func (a *App) WriteToday(w io.Writer) {
	today := planner.FormatDate(a.now())
	meals := a.Plans.GetMealsForDate(today)
	fmt.Fprintf(w, "=== TODAY (%s) ===\n", today)
	if len(meals) == 0 {
		fmt.Fprintln(w, "Nothing planned for today.")
		return
	}
	for _, id := range meals {
		fmt.Fprintf(w, "- %s\n", a.Catalog.RecipeTitle(id))
		if sr, ok := a.Scoring.Recipe(id); ok {
			if len(sr.MissingIngredients) > 0 {
				fmt.Fprintf(w, "    missing: %s\n", strings.Join(sr.MissingIngredients, ", "))
			}
			if sr.HasAllergyIngredients {
				fmt.Fprintf(w, "    allergy warning: %s\n", strings.Join(sr.AllergyIngredients, ", "))
			}
		}
	}
	if url, ok := a.Images.MainIngredientImage(meals); ok {
		fmt.Fprintf(w, "image: %s\n", url)
	}
}

var groupTitles = []struct {
	group shopping.TimeGroup
	title string
}{
	{shopping.ThisWeek, "This week"},
	{shopping.NextWeek, "Next week"},
	{shopping.Later, "Later"},
}

// WriteShopping prints the shopping list grouped by when items are needed.
func (a *App) WriteShopping(w io.Writer) {
	items := a.Shopping.Items()
	fmt.Fprintln(w, "=== SHOPPING LIST ===")
	if len(items) == 0 {
		fmt.Fprintln(w, "Nothing to buy.")
		return
	}
	for _, g := range groupTitles {
		var group []shopping.Item
		for _, it := range items {
			if it.TimeGroup == g.group {
				group = append(group, it)
			}
		}
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", g.title)
		for _, it := range group {
			mark := "[ ]"
			if it.Purchased {
				mark = "[x]"
			}
			fmt.Fprintf(w, "%s %s (%s, by %s)\n", mark, it.Name, it.Category, it.EarliestDate)
		}
	}
	fmt.Fprintf(w, "\n%d pending, %d purchased.\n", a.Shopping.PendingCount(), a.Shopping.PurchasedCount())
}

// WriteRecipes prints scored recipes for the given filter.
func (a *App) WriteRecipes(w io.Writer, filter string) error {
	recipes, err := a.FilterRecipes(filter)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "=== RECIPES (%s, age %s) ===\n", orDefault(filter, FilterRecommended), a.Profile.AgeDisplay())
	if len(recipes) == 0 {
		fmt.Fprintln(w, "No matching recipes.")
		return nil
	}
	for _, sr := range recipes {
		var flags []string
		if sr.ReadyToCook {
			flags = append(flags, "ready")
		}
		if sr.HasAllergyIngredients {
			flags = append(flags, "allergy: "+strings.Join(sr.AllergyIngredients, ", "))
		}
		if len(sr.MissingIngredients) > 0 {
			flags = append(flags, "missing: "+strings.Join(sr.MissingIngredients, ", "))
		}
		line := fmt.Sprintf("%4d  %s (%d-%dm)", sr.Score, sr.Recipe.Title, sr.Recipe.MinMonth, sr.Recipe.MaxMonth)
		if len(flags) > 0 {
			line += "  [" + strings.Join(flags, "; ") + "]"
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// WritePantry prints the pantry grouped by category.
func (a *App) WritePantry(w io.Writer) {
	fmt.Fprintf(w, "=== PANTRY (%d) ===\n", a.Pantry.Count())
	if a.Pantry.Count() == 0 {
		fmt.Fprintln(w, "The pantry is empty.")
		return
	}
	byCategory := make(map[catalog.Category][]string)
	for _, id := range a.Pantry.IDs() {
		cat := catalog.CategoryOther
		if ing, ok := a.Catalog.Ingredient(id); ok {
			cat = ing.Category
		}
		byCategory[cat] = append(byCategory[cat], a.Catalog.IngredientName(id))
	}
	for _, cat := range catalog.Categories {
		if names := byCategory[cat]; len(names) > 0 {
			fmt.Fprintf(w, "%-10s %s\n", cat+":", strings.Join(names, ", "))
		}
	}
}

// WriteStatus prints the profile summary.
func (a *App) WriteStatus(w io.Writer) {
	name := orDefault(a.Profile.BabyName(), "(unnamed)")
	fmt.Fprintf(w, "Baby:       %s, %s\n", name, a.Profile.AgeDisplay())
	fmt.Fprintf(w, "Tried:      %d ingredients (%d allergies)\n", a.Profile.TriedCount(), a.Profile.AllergyCount())
	fmt.Fprintf(w, "Liked:      %d recipes, %d favorites\n", a.Profile.LikedRecipesCount(), len(a.Profile.Favorites()))
	fmt.Fprintf(w, "Pantry:     %d ingredients\n", a.Pantry.Count())
	fmt.Fprintf(w, "Shopping:   %d pending (%d this week)\n", a.Shopping.PendingCount(), a.Shopping.ThisWeekPendingCount())
	if u, ok := a.Auth.CurrentUser(); ok {
		fmt.Fprintf(w, "Signed in:  %s\n", u.Email)
	}
}

// WriteImagePrompts renders AI image prompts for every catalog ingredient,
// as markdown or as an HTML page.
func (a *App) WriteImagePrompts(ctx context.Context, w io.Writer, asHTML bool) (int, error) {
	entries, metas, err := a.Prompts.Build(ctx, a.Catalog.Ingredients())
	a.RecordUsage(metas)
	if err != nil {
		return 0, err
	}
	md, err := a.Prompts.Markdown(entries)
	if err != nil {
		return 0, err
	}
	if asHTML {
		_, err = w.Write(imageprompt.HTML(md))
	} else {
		_, err = io.WriteString(w, md)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write image prompts: %w", err)
	}
	return imageprompt.NeedsReview(entries), nil
}

// WriteXLSX exports the shopping list and current plan as a spreadsheet.
func (a *App) WriteXLSX(w io.Writer) error {
	var planPtr *planner.WeekPlan
	if plan, ok := a.Plans.CurrentPlan(); ok {
		planPtr = &plan
	}
	return export.WriteXLSX(w, a.Shopping.Items(), planPtr, a.Catalog.RecipeTitle)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
