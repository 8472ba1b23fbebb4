package shopping

import (
	"slices"
	"time"

	"baby-meal-planner/internal/catalog"
	"baby-meal-planner/internal/planner"
)

// TimeGroup buckets an item by the soonest date it is needed.
type TimeGroup string

const (
	ThisWeek TimeGroup = "this_week"
	NextWeek TimeGroup = "next_week"
	Later    TimeGroup = "later"
)

// Order returns the display position of the group.
func (g TimeGroup) Order() int {
	switch g {
	case ThisWeek:
		return 0
	case NextWeek:
		return 1
	default:
		return 2
	}
}

// Item is one ingredient still needed for the current plan.
type Item struct {
	IngredientID string           `json:"ingredientId"`
	Name         string           `json:"name"`
	Category     catalog.Category `json:"category"`
	Purchased    bool             `json:"purchased"`
	EarliestDate string           `json:"earliestDate"`
	TimeGroup    TimeGroup        `json:"timeGroup"`
}

// Pantry reports which ingredients are in stock.
type Pantry interface {
	Has(id string) bool
}

// Catalog resolves recipes and ingredients.
type Catalog interface {
	Recipe(id string) (catalog.Recipe, bool)
	Ingredient(id string) (catalog.Ingredient, bool)
}

// IDSet is a set of ingredient ids.
type IDSet map[string]struct{}

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// TimeGroupFor classifies an ISO date against the Monday-to-Sunday week of today.
func TimeGroupFor(date string, today time.Time) TimeGroup {
	thisSunday := planner.WeekEnd(today)
	switch {
	case date <= planner.FormatDate(thisSunday):
		return ThisWeek
	case date <= planner.FormatDate(thisSunday.AddDate(0, 0, 7)):
		return NextWeek
	default:
		return Later
	}
}

// Derive lists every ingredient the plan needs that the pantry lacks. Each
// ingredient appears once, dated by the earliest plan date that needs it.
// Items are ordered by time group, then category. Unknown recipes are
// skipped; unknown ingredients are listed under their id.
func Derive(plan *planner.WeekPlan, stock Pantry, cat Catalog, purchased IDSet, today time.Time) []Item {
	if plan == nil {
		return []Item{}
	}

	byID := make(map[string]int)
	items := []Item{}
	for _, date := range plan.Dates() {
		for _, recipeID := range plan.Meals[date] {
			rec, ok := cat.Recipe(recipeID)
			if !ok {
				continue
			}
			for _, id := range rec.IngredientIDs {
				if stock.Has(id) {
					continue
				}
				if i, seen := byID[id]; seen {
					if date < items[i].EarliestDate {
						items[i].EarliestDate = date
						items[i].TimeGroup = TimeGroupFor(date, today)
					}
					continue
				}
				item := Item{
					IngredientID: id,
					Name:         id,
					Category:     catalog.CategoryOther,
					Purchased:    purchased.Has(id),
					EarliestDate: date,
					TimeGroup:    TimeGroupFor(date, today),
				}
				if ing, ok := cat.Ingredient(id); ok {
					if ing.Name != "" {
						item.Name = ing.Name
					}
					item.Category = ing.Category
				}
				byID[id] = len(items)
				items = append(items, item)
			}
		}
	}

	slices.SortStableFunc(items, func(a, b Item) int {
		if d := a.TimeGroup.Order() - b.TimeGroup.Order(); d != 0 {
			return d
		}
		return a.Category.Rank() - b.Category.Rank()
	})
	return items
}
