package wizard

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baby-meal-planner/internal/planner"
	"baby-meal-planner/internal/storage"
)

// Wednesday 2024-01-10; the week runs 2024-01-08 to 2024-01-14.
var today = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newPlans(t *testing.T) (*planner.Store, *clock) {
	t.Helper()
	c := &clock{t: today}
	return planner.NewStore(storage.NewMemoryStore(), planner.WithClock(c.Now)), c
}

func newSession(plans Plans) *Session {
	return New(plans, today, WithRand(rand.New(rand.NewPCG(1, 2))))
}

func TestStepValidation(t *testing.T) {
	plans, _ := newPlans(t)
	s := newSession(plans)

	assert.Equal(t, StepPickDates, s.Step())
	assert.True(t, errors.Is(s.Next(), ErrNoDatesSelected))
	assert.True(t, errors.Is(s.Prev(), ErrWrongStep))

	require.NoError(t, s.ToggleDate("2024-01-09"))
	require.NoError(t, s.Next())
	assert.Equal(t, StepPickRecipes, s.Step())

	assert.True(t, errors.Is(s.ToggleDate("2024-01-10"), ErrWrongStep), "dates are only editable on step 1")
	assert.True(t, errors.Is(s.Next(), ErrNoRecipesSelected))
	assert.Equal(t, StepPickRecipes, s.Step(), "blocked transition leaves the step unchanged")

	_, err := s.ToggleRecipe("r1")
	require.NoError(t, err)
	require.NoError(t, s.Next())
	assert.Equal(t, StepAssign, s.Step())

	require.NoError(t, s.Next(), "assign to review is unconditional")
	assert.Equal(t, StepReview, s.Step())
	assert.True(t, errors.Is(s.Next(), ErrWrongStep))
}

func TestDateSelection(t *testing.T) {
	plans, _ := newPlans(t)
	s := newSession(plans)

	assert.Equal(t, []string{
		"2024-01-08", "2024-01-09", "2024-01-10", "2024-01-11",
		"2024-01-12", "2024-01-13", "2024-01-14",
	}, s.WeekDates())

	require.NoError(t, s.ToggleDate("2024-01-12"))
	require.NoError(t, s.ToggleDate("2024-01-09"))
	assert.Equal(t, []string{"2024-01-09", "2024-01-12"}, s.SelectedDates(), "dates stay sorted")

	require.NoError(t, s.ToggleDate("2024-01-12"))
	assert.Equal(t, []string{"2024-01-09"}, s.SelectedDates())

	require.NoError(t, s.SelectAllDates())
	assert.Len(t, s.SelectedDates(), 7)
}

func TestRecipeLimit(t *testing.T) {
	plans, _ := newPlans(t)
	s := newSession(plans)
	require.NoError(t, s.ToggleDate("2024-01-08"))
	require.NoError(t, s.Next())

	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		selected, err := s.ToggleRecipe(id)
		require.NoError(t, err)
		assert.True(t, selected)
	}
	_, err := s.ToggleRecipe("h")
	assert.True(t, errors.Is(err, ErrRecipeLimit))
	assert.Len(t, s.SelectedRecipes(), MaxRecipes)

	selected, err := s.ToggleRecipe("a")
	require.NoError(t, err)
	assert.False(t, selected)
	assert.Len(t, s.SelectedRecipes(), MaxRecipes-1)
}

func toAssignStep(t *testing.T, s *Session, dates []string, recipes []string) {
	t.Helper()
	for _, d := range dates {
		require.NoError(t, s.ToggleDate(d))
	}
	require.NoError(t, s.Next())
	for _, r := range recipes {
		_, err := s.ToggleRecipe(r)
		require.NoError(t, err)
	}
	require.NoError(t, s.Next())
}

func TestAssignmentCap(t *testing.T) {
	plans, _ := newPlans(t)
	s := newSession(plans)
	toAssignStep(t, s, []string{"2024-01-08"}, []string{"r1", "r2", "r3", "r4"})

	assert.Equal(t, map[string][]string{"2024-01-08": {}}, s.Assignments())

	for _, r := range []string{"r1", "r2", "r3"} {
		require.NoError(t, s.AssignRecipeToDate("2024-01-08", r))
	}
	require.NoError(t, s.AssignRecipeToDate("2024-01-08", "r1"), "duplicate is ignored")

	err := s.AssignRecipeToDate("2024-01-08", "r4")
	assert.True(t, errors.Is(err, planner.ErrDailyMealLimit))
	assert.Len(t, s.Assignments()["2024-01-08"], 3)

	require.NoError(t, s.RemoveAssignment("2024-01-08", "r2"))
	assert.Equal(t, []string{"r1", "r3"}, s.Assignments()["2024-01-08"])
}

func TestAutoAssign(t *testing.T) {
	plans, _ := newPlans(t)
	s := newSession(plans)
	toAssignStep(t, s, []string{"2024-01-08", "2024-01-09", "2024-01-10"}, []string{"r1", "r2"})

	require.NoError(t, s.AutoAssign())

	got := s.Assignments()
	require.Len(t, got, 3)
	for date, ids := range got {
		require.Len(t, ids, 1, "date %s", date)
		assert.Contains(t, []string{"r1", "r2"}, ids[0])
	}
}

func TestNavigationKeepsSelections(t *testing.T) {
	plans, _ := newPlans(t)
	s := newSession(plans)
	toAssignStep(t, s, []string{"2024-01-08"}, []string{"r1"})
	require.NoError(t, s.AssignRecipeToDate("2024-01-08", "r1"))

	require.NoError(t, s.Prev())
	require.NoError(t, s.Prev())
	assert.Equal(t, StepPickDates, s.Step())
	assert.Equal(t, []string{"2024-01-08"}, s.SelectedDates())
	assert.Equal(t, []string{"r1"}, s.SelectedRecipes())

	require.NoError(t, s.Next())
	require.NoError(t, s.Next())
	assert.Equal(t, []string{"r1"}, s.Assignments()["2024-01-08"])
}

func TestFinishCreatesPlan(t *testing.T) {
	plans, _ := newPlans(t)
	s := newSession(plans)
	toAssignStep(t, s, []string{"2024-01-08", "2024-01-09"}, []string{"r1", "r2"})
	require.NoError(t, s.AssignRecipeToDate("2024-01-08", "r1"))
	require.NoError(t, s.AssignRecipeToDate("2024-01-09", "r2"))

	_, _, err := s.Finish()
	assert.True(t, errors.Is(err, ErrWrongStep), "finish only from review")

	require.NoError(t, s.Next())
	plan, skipped, err := s.Finish()
	require.NoError(t, err)
	assert.Empty(t, skipped)

	assert.Equal(t, "2024-01-08", plan.WeekStartDate)
	assert.Equal(t, []string{"r1"}, plans.GetMealsForDate("2024-01-08"))
	assert.Equal(t, []string{"r2"}, plans.GetMealsForDate("2024-01-09"))
	assert.Empty(t, plans.HistoryPlans())

	assert.True(t, s.Closed())
	assert.True(t, errors.Is(s.Next(), ErrClosed))
}

func TestFinishMergesIntoCurrentPlan(t *testing.T) {
	plans, _ := newPlans(t)
	existing := plans.CreateNewPlan([]string{"2024-01-08"})
	plans.SavePlan(existing)
	require.NoError(t, plans.AddMealToDate("2024-01-08", "a"))
	require.NoError(t, plans.AddMealToDate("2024-01-08", "b"))

	s := newSession(plans)
	toAssignStep(t, s, []string{"2024-01-08"}, []string{"c", "d"})
	require.NoError(t, s.AssignRecipeToDate("2024-01-08", "c"))
	require.NoError(t, s.AssignRecipeToDate("2024-01-08", "d"))
	require.NoError(t, s.Next())

	plan, skipped, err := s.Finish()
	require.NoError(t, err)
	assert.Equal(t, existing.ID, plan.ID)
	assert.Equal(t, []string{"a", "b", "c"}, plans.GetMealsForDate("2024-01-08"))
	assert.Equal(t, []Assignment{{Date: "2024-01-08", RecipeID: "d"}}, skipped)
}

func TestDeselectingDateDropsStaging(t *testing.T) {
	plans, _ := newPlans(t)
	s := newSession(plans)
	toAssignStep(t, s, []string{"2024-01-08", "2024-01-09"}, []string{"r1"})
	require.NoError(t, s.AssignRecipeToDate("2024-01-09", "r1"))

	require.NoError(t, s.Prev())
	require.NoError(t, s.Prev())
	require.NoError(t, s.ToggleDate("2024-01-09"))
	assert.NotContains(t, s.Assignments(), "2024-01-09")

	// Reselecting starts the date empty.
	require.NoError(t, s.ToggleDate("2024-01-09"))
	require.NoError(t, s.Next())
	require.NoError(t, s.Next())
	assert.Equal(t, map[string][]string{"2024-01-08": {}, "2024-01-09": {}}, s.Assignments())
	require.NoError(t, s.Next())

	_, skipped, err := s.Finish()
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Empty(t, plans.GetMealsForDate("2024-01-09"))
}

func TestAssignRejectsUnselectedDate(t *testing.T) {
	plans, _ := newPlans(t)
	s := newSession(plans)
	toAssignStep(t, s, []string{"2024-01-08"}, []string{"r1"})

	err := s.AssignRecipeToDate("2024-01-12", "r1")
	assert.True(t, errors.Is(err, ErrDateNotSelected))
	assert.Equal(t, map[string][]string{"2024-01-08": {}}, s.Assignments())

	require.NoError(t, s.AssignRecipeToDate("2024-01-08", "r1"))
	require.NoError(t, s.Next())
	_, skipped, err := s.Finish()
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Equal(t, []string{"r1"}, plans.GetMealsForDate("2024-01-08"))
	assert.Empty(t, plans.GetMealsForDate("2024-01-12"))
}

func TestToggleDateRejectsMalformedDate(t *testing.T) {
	plans, _ := newPlans(t)
	s := newSession(plans)

	for _, bad := range []string{"foo", "", "2024-1-9", "2024-02-30"} {
		assert.Error(t, s.ToggleDate(bad), "date %q", bad)
	}
	assert.Empty(t, s.SelectedDates())
	assert.True(t, errors.Is(s.Next(), ErrNoDatesSelected))
}

func TestCloseDiscards(t *testing.T) {
	plans, _ := newPlans(t)
	s := newSession(plans)
	toAssignStep(t, s, []string{"2024-01-08"}, []string{"r1"})
	require.NoError(t, s.AssignRecipeToDate("2024-01-08", "r1"))

	s.Close()

	assert.False(t, plans.HasCurrentPlan())
	assert.True(t, errors.Is(s.AssignRecipeToDate("2024-01-08", "r2"), ErrClosed))
	assert.Empty(t, s.SelectedDates())
}

func TestUseLastWeek(t *testing.T) {
	plans, c := newPlans(t)

	s := newSession(plans)
	assert.True(t, errors.Is(s.UseLastWeek(), ErrNoLastWeekPlan))

	// Build and archive last week's plan.
	c.t = today.AddDate(0, 0, -7)
	last := plans.CreateNewPlan([]string{"2024-01-01", "2024-01-02"})
	last.Meals["2024-01-01"] = []string{"r1", "r2"}
	last.Meals["2024-01-02"] = []string{"r2", "r3"}
	plans.SavePlan(last)
	plans.ClearCurrentPlan()
	c.t = today

	s = newSession(plans)
	require.NoError(t, s.UseLastWeek())
	assert.True(t, s.CopyingLastWeek())
	require.NoError(t, s.UseLastWeek())
	assert.False(t, s.CopyingLastWeek(), "a second press turns copying off")
	require.NoError(t, s.UseLastWeek())
	assert.True(t, s.CopyingLastWeek())
	require.NoError(t, s.ToggleDate("2024-01-09"))
	require.NoError(t, s.ToggleDate("2024-01-10"))
	require.NoError(t, s.Next())
	assert.Equal(t, []string{"r1", "r2", "r3"}, s.SelectedRecipes())

	require.NoError(t, s.Next())
	assert.Equal(t, map[string][]string{
		"2024-01-09": {"r1", "r2"},
		"2024-01-10": {"r2", "r3"},
	}, s.Assignments())

	require.NoError(t, s.Next())
	_, _, err := s.Finish()
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r3"}, plans.GetMealsForDate("2024-01-10"))
}

func TestUseLastWeekOffSeedsNothing(t *testing.T) {
	plans, c := newPlans(t)

	c.t = today.AddDate(0, 0, -7)
	last := plans.CreateNewPlan([]string{"2024-01-01"})
	last.Meals["2024-01-01"] = []string{"r1"}
	plans.SavePlan(last)
	plans.ClearCurrentPlan()
	c.t = today

	s := newSession(plans)
	require.NoError(t, s.UseLastWeek())
	require.NoError(t, s.UseLastWeek())
	require.NoError(t, s.ToggleDate("2024-01-09"))
	require.NoError(t, s.Next())
	assert.Empty(t, s.SelectedRecipes())
}
