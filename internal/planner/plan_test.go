package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baby-meal-planner/internal/storage"
)

// clock is a settable time source for tests.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newTestStore(t *testing.T, kv storage.KV, now time.Time) (*Store, *clock) {
	t.Helper()
	c := &clock{t: now}
	n := 0
	gen := func() string {
		n++
		return fmt.Sprintf("plan-%d", n)
	}
	return NewStore(kv, WithClock(c.Now), WithIDGenerator(gen)), c
}

// Wednesday 2024-01-10; the week starts Monday 2024-01-08.
var wednesday = time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)

func TestCreateNewPlan(t *testing.T) {
	s, _ := newTestStore(t, storage.NewMemoryStore(), wednesday)

	plan := s.CreateNewPlan([]string{"2024-01-08", "2024-01-09"})

	assert.Equal(t, "plan-1", plan.ID)
	assert.Equal(t, "2024-01-08", plan.WeekStartDate)
	assert.Equal(t, map[string][]string{"2024-01-08": {}, "2024-01-09": {}}, plan.Meals)
	assert.Equal(t, wednesday, plan.CreatedAt)
	assert.False(t, s.HasCurrentPlan(), "creating a plan does not save it")

	t.Run("WeekStartIgnoresDates", func(t *testing.T) {
		other := s.CreateNewPlan([]string{"2024-03-04"})
		assert.Equal(t, "2024-01-08", other.WeekStartDate)
	})
}

func TestNewPlanIDIsPrefixed(t *testing.T) {
	a, b := NewPlanID(), NewPlanID()
	assert.Regexp(t, `^plan-[0-9a-f-]{36}$`, a)
	assert.NotEqual(t, a, b)
}

func TestMealsForDate(t *testing.T) {
	s, c := newTestStore(t, storage.NewMemoryStore(), wednesday)

	t.Run("NoPlanIsNoOp", func(t *testing.T) {
		require.NoError(t, s.AddMealToDate("2024-01-08", "r1"))
		assert.False(t, s.HasCurrentPlan(), "adding a meal never creates a plan")
		assert.Equal(t, []string{}, s.GetMealsForDate("2024-01-08"))
	})

	s.SavePlan(s.CreateNewPlan([]string{"2024-01-08"}))

	t.Run("AddAndDedup", func(t *testing.T) {
		c.t = wednesday.Add(time.Hour)
		require.NoError(t, s.AddMealToDate("2024-01-08", "r1"))
		require.NoError(t, s.AddMealToDate("2024-01-08", "r1"))
		require.NoError(t, s.AddMealToDate("2024-01-08", "r2"))
		assert.Equal(t, []string{"r1", "r2"}, s.GetMealsForDate("2024-01-08"))

		plan, _ := s.CurrentPlan()
		assert.Equal(t, wednesday.Add(time.Hour), plan.UpdatedAt)
	})

	t.Run("DateOutsidePlan", func(t *testing.T) {
		require.NoError(t, s.AddMealToDate("2024-01-12", "r1"))
		assert.Equal(t, []string{"r1"}, s.GetMealsForDate("2024-01-12"))
	})

	t.Run("DailyCap", func(t *testing.T) {
		require.NoError(t, s.AddMealToDate("2024-01-08", "r3"))
		err := s.AddMealToDate("2024-01-08", "r4")
		assert.True(t, errors.Is(err, ErrDailyMealLimit))
		assert.Len(t, s.GetMealsForDate("2024-01-08"), MaxMealsPerDay)
	})

	t.Run("Remove", func(t *testing.T) {
		s.RemoveMealFromDate("2024-01-08", "r2")
		s.RemoveMealFromDate("2024-01-08", "missing")
		s.RemoveMealFromDate("2024-02-01", "r1")
		assert.Equal(t, []string{"r1", "r3"}, s.GetMealsForDate("2024-01-08"))
	})

	t.Run("SetMeals", func(t *testing.T) {
		require.NoError(t, s.SetMealsForDate("2024-01-09", []string{"a", "b", "a"}))
		assert.Equal(t, []string{"a", "b"}, s.GetMealsForDate("2024-01-09"))

		err := s.SetMealsForDate("2024-01-09", []string{"a", "b", "c", "d"})
		assert.True(t, errors.Is(err, ErrDailyMealLimit))
		assert.Equal(t, []string{"a", "b"}, s.GetMealsForDate("2024-01-09"))
	})

	t.Run("ReturnedSliceIsACopy", func(t *testing.T) {
		meals := s.GetMealsForDate("2024-01-08")
		meals[0] = "mutated"
		assert.Equal(t, "r1", s.GetMealsForDate("2024-01-08")[0])
	})

	assert.Equal(t, []string{"2024-01-08", "2024-01-09", "2024-01-12"}, s.PlannedDates())
}

func TestSetMealsWithoutPlan(t *testing.T) {
	s, _ := newTestStore(t, storage.NewMemoryStore(), wednesday)
	assert.True(t, errors.Is(s.SetMealsForDate("2024-01-08", []string{"r1"}), ErrNoCurrentPlan))
}

func TestSavePlanArchivesDifferentPlan(t *testing.T) {
	s, _ := newTestStore(t, storage.NewMemoryStore(), wednesday)

	first := s.CreateNewPlan([]string{"2024-01-08"})
	s.SavePlan(first)
	s.SavePlan(first)
	assert.Empty(t, s.HistoryPlans(), "re-saving the same plan does not archive it")

	second := s.CreateNewPlan([]string{"2024-01-09"})
	s.SavePlan(second)

	history := s.HistoryPlans()
	require.Len(t, history, 1)
	assert.Equal(t, first.ID, history[0].ID)

	current, ok := s.CurrentPlan()
	require.True(t, ok)
	assert.Equal(t, second.ID, current.ID)
}

func TestHistoryDedupByWeek(t *testing.T) {
	s, _ := newTestStore(t, storage.NewMemoryStore(), wednesday)

	s.SavePlan(s.CreateNewPlan([]string{"2024-01-08"}))
	s.SavePlan(s.CreateNewPlan([]string{"2024-01-09"}))
	s.SavePlan(s.CreateNewPlan([]string{"2024-01-10"}))

	history := s.HistoryPlans()
	require.Len(t, history, 1, "same-week plans share one history slot")
	assert.Equal(t, "plan-2", history[0].ID, "later archive overwrites the earlier one")
}

func TestHistoryCap(t *testing.T) {
	s, c := newTestStore(t, storage.NewMemoryStore(), wednesday)

	for i := 0; i < 13; i++ {
		c.t = wednesday.AddDate(0, 0, 7*i)
		s.SavePlan(s.CreateNewPlan([]string{FormatDate(c.t)}))
	}
	assert.Len(t, s.HistoryPlans(), 12)
	assert.Equal(t, "2024-01-08", s.HistoryPlans()[0].WeekStartDate)

	s.ClearCurrentPlan()
	history := s.HistoryPlans()
	assert.Len(t, history, MaxHistoryPlans)
	assert.Equal(t, "2024-01-15", history[0].WeekStartDate, "oldest week is evicted")
	assert.False(t, s.HasCurrentPlan())
}

func TestClearCurrentPlan(t *testing.T) {
	s, _ := newTestStore(t, storage.NewMemoryStore(), wednesday)

	s.ClearCurrentPlan()
	assert.Empty(t, s.HistoryPlans(), "clearing with no plan archives nothing")

	s.SavePlan(s.CreateNewPlan([]string{"2024-01-08"}))
	require.NoError(t, s.AddMealToDate("2024-01-08", "r1"))
	s.ClearCurrentPlan()

	history := s.HistoryPlans()
	require.Len(t, history, 1)
	assert.Equal(t, []string{"r1"}, history[0].Meals["2024-01-08"])
	assert.Equal(t, []string{}, s.GetMealsForDate("2024-01-08"))
}

func TestCopyLastWeekPlan(t *testing.T) {
	s, c := newTestStore(t, storage.NewMemoryStore(), wednesday.AddDate(0, 0, -7))

	_, ok := s.CopyLastWeekPlan([]string{"2024-01-08"})
	assert.False(t, ok, "no plan for last week")

	// Last week's plan, built during last week.
	last := s.CreateNewPlan([]string{"2024-01-03", "2024-01-01", "2024-01-05"})
	last.Meals["2024-01-01"] = []string{"monday"}
	last.Meals["2024-01-03"] = []string{"wednesday-a", "wednesday-b"}
	last.Meals["2024-01-05"] = []string{"friday"}
	s.SavePlan(last)

	c.t = wednesday
	_, ok = s.CopyLastWeekPlan([]string{"2024-01-08"})
	assert.False(t, ok, "the current plan is not searched, only history")

	s.ClearCurrentPlan()
	lw, ok := s.LastWeekPlan()
	require.True(t, ok)
	assert.Equal(t, "2024-01-01", lw.WeekStartDate)

	copied, ok := s.CopyLastWeekPlan([]string{"2024-01-09", "2024-01-10", "2024-01-11", "2024-01-12"})
	require.True(t, ok)
	assert.Equal(t, "2024-01-08", copied.WeekStartDate)
	assert.NotEqual(t, last.ID, copied.ID)
	assert.Equal(t, map[string][]string{
		"2024-01-09": {"monday"},
		"2024-01-10": {"wednesday-a", "wednesday-b"},
		"2024-01-11": {"friday"},
		"2024-01-12": {},
	}, copied.Meals, "mapping is positional, not by weekday")

	copied.Meals["2024-01-09"][0] = "mutated"
	lw, _ = s.LastWeekPlan()
	assert.Equal(t, "monday", lw.Meals["2024-01-01"][0], "copy is deep")
}

func TestPersistence(t *testing.T) {
	kv := storage.NewMemoryStore()
	s, _ := newTestStore(t, kv, wednesday)

	s.SavePlan(s.CreateNewPlan([]string{"2024-01-08"}))
	require.NoError(t, s.AddMealToDate("2024-01-08", "r1"))
	s.SavePlan(s.CreateNewPlan([]string{"2024-01-09"}))

	raw, err := kv.Get(StorageKey)
	require.NoError(t, err)
	var generic map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Contains(t, generic, "currentPlan")
	assert.Contains(t, generic, "historyPlans")

	reloaded, _ := newTestStore(t, kv, wednesday)
	want, _ := s.CurrentPlan()
	got, ok := reloaded.CurrentPlan()
	require.True(t, ok)
	assert.Equal(t, want, got)
	assert.Equal(t, s.HistoryPlans(), reloaded.HistoryPlans())
}

func TestWeekPlanRoundTrip(t *testing.T) {
	plan := WeekPlan{
		ID:            "plan-x",
		WeekStartDate: "2024-01-08",
		Meals:         map[string][]string{"2024-01-08": {"r1", "r2"}, "2024-01-09": {}},
		CreatedAt:     time.Date(2024, 1, 8, 10, 0, 0, 123, time.UTC),
		UpdatedAt:     time.Date(2024, 1, 9, 10, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(plan)
	require.NoError(t, err)

	var got WeekPlan
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, plan, got)
}

func TestCorruptRecordLoadsEmpty(t *testing.T) {
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Put(StorageKey, []byte(`{"currentPlan": 42}`)))

	s, _ := newTestStore(t, kv, wednesday)
	assert.False(t, s.HasCurrentPlan())
	assert.Empty(t, s.HistoryPlans())
}
