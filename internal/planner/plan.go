package planner

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"baby-meal-planner/internal/storage"
)

// StorageKey is the persisted record holding the current plan and its history.
const StorageKey = "babymeal-passport-plan"

const (
	// MaxMealsPerDay caps the recipes planned for one date.
	MaxMealsPerDay = 3
	// MaxHistoryPlans caps the archived plans kept, oldest evicted first.
	MaxHistoryPlans = 12
)

// ErrDailyMealLimit is returned when a date already holds MaxMealsPerDay recipes.
var ErrDailyMealLimit = fmt.Errorf("a day can hold at most %d meals", MaxMealsPerDay)

// ErrNoCurrentPlan is returned by operations that need a current plan to edit.
var ErrNoCurrentPlan = errors.New("no current plan")

// WeekPlan maps ISO dates to the recipe ids planned for them.
type WeekPlan struct {
	ID            string              `json:"id"`
	WeekStartDate string              `json:"weekStartDate"`
	Meals         map[string][]string `json:"meals"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// Clone returns a deep copy of the plan.
func (p WeekPlan) Clone() WeekPlan {
	out := p
	out.Meals = make(map[string][]string, len(p.Meals))
	for date, ids := range p.Meals {
		out.Meals[date] = slices.Clone(ids)
	}
	return out
}

// Dates returns the plan's dates in ascending order.
func (p WeekPlan) Dates() []string {
	return slices.Sorted(maps.Keys(p.Meals))
}

// MealCount returns the total number of planned recipes.
func (p WeekPlan) MealCount() int {
	n := 0
	for _, ids := range p.Meals {
		n += len(ids)
	}
	return n
}

type snapshot struct {
	CurrentPlan  *WeekPlan  `json:"currentPlan"`
	HistoryPlans []WeekPlan `json:"historyPlans"`
}

// Store owns the current weekly plan and the archive of past plans.
type Store struct {
	mu      sync.RWMutex
	kv      storage.KV
	now     func() time.Time
	newID   func() string
	current *WeekPlan
	history []WeekPlan
	version uint64
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps and week boundaries.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides how plan ids are generated.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// NewPlanID returns a time-ordered plan id.
func NewPlanID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return "plan-" + id.String()
}

// NewStore loads the plan state from kv. A missing or corrupt record yields no plans.
func NewStore(kv storage.KV, opts ...Option) *Store {
	s := &Store{kv: kv, now: time.Now, newID: NewPlanID}
	for _, opt := range opts {
		opt(s)
	}
	var snap snapshot
	if storage.LoadJSON(kv, StorageKey, &snap) {
		if snap.CurrentPlan != nil {
			plan := normalize(*snap.CurrentPlan)
			s.current = &plan
		}
		for _, p := range snap.HistoryPlans {
			s.history = append(s.history, normalize(p))
		}
	}
	return s
}

func normalize(p WeekPlan) WeekPlan {
	if p.Meals == nil {
		p.Meals = make(map[string][]string)
	}
	return p
}

// Version increases on every change and keys memoized derivations.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// CurrentWeekStart returns the ISO date of this week's Monday.
func (s *Store) CurrentWeekStart() string {
	return FormatDate(WeekStart(s.now()))
}

// LastWeekStart returns the ISO date of last week's Monday.
func (s *Store) LastWeekStart() string {
	return FormatDate(WeekStart(s.now().AddDate(0, 0, -7)))
}

// HasCurrentPlan reports whether a current plan exists.
func (s *Store) HasCurrentPlan() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// CurrentPlan returns a copy of the current plan.
func (s *Store) CurrentPlan() (WeekPlan, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return WeekPlan{}, false
	}
	return s.current.Clone(), true
}

// HistoryPlans returns copies of the archived plans, oldest first.
func (s *Store) HistoryPlans() []WeekPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]WeekPlan, len(s.history))
	for i, p := range s.history {
		out[i] = p.Clone()
	}
	return out
}

// LastWeekPlan returns the archived plan for last week, if any.
func (s *Store) LastWeekPlan() (WeekPlan, bool) {
	lastWeek := s.LastWeekStart()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.history {
		if p.WeekStartDate == lastWeek {
			return p.Clone(), true
		}
	}
	return WeekPlan{}, false
}

// CreateNewPlan builds an unsaved plan with an empty meal list per date.
// The week start is always the current real-world week, whatever the dates.
func (s *Store) CreateNewPlan(dates []string) WeekPlan {
	meals := make(map[string][]string, len(dates))
	for _, d := range dates {
		meals[d] = []string{}
	}
	return s.newPlan(meals)
}

func (s *Store) newPlan(meals map[string][]string) WeekPlan {
	now := s.now().UTC()
	return WeekPlan{
		ID:            s.newID(),
		WeekStartDate: s.CurrentWeekStart(),
		Meals:         meals,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CopyLastWeekPlan builds an unsaved plan whose dates take last week's meals
// by position: the i-th date gets the meals of last week's i-th sorted date.
// It returns false when there is no plan for last week.
func (s *Store) CopyLastWeekPlan(dates []string) (WeekPlan, bool) {
	last, ok := s.LastWeekPlan()
	if !ok {
		return WeekPlan{}, false
	}
	lastDates := last.Dates()
	meals := make(map[string][]string, len(dates))
	for i, d := range dates {
		if i < len(lastDates) {
			meals[d] = slices.Clone(last.Meals[lastDates[i]])
		} else {
			meals[d] = []string{}
		}
	}
	return s.newPlan(meals), true
}

// SavePlan makes plan the current plan, archiving a different current plan first.
func (s *Store) SavePlan(plan WeekPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.ID != plan.ID {
		s.archiveLocked(*s.current)
	}
	saved := normalize(plan.Clone())
	saved.UpdatedAt = s.now().UTC()
	s.current = &saved
	s.commitLocked()
}

// ClearCurrentPlan archives the current plan and leaves none current.
func (s *Store) ClearCurrentPlan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return
	}
	s.archiveLocked(*s.current)
	s.current = nil
	s.commitLocked()
}

// archiveLocked replaces the history entry for the same week, or appends,
// then keeps only the most recent MaxHistoryPlans entries.
func (s *Store) archiveLocked(plan WeekPlan) {
	plan = plan.Clone()
	idx := slices.IndexFunc(s.history, func(p WeekPlan) bool {
		return p.WeekStartDate == plan.WeekStartDate
	})
	if idx >= 0 {
		s.history[idx] = plan
	} else {
		s.history = append(s.history, plan)
	}
	if n := len(s.history); n > MaxHistoryPlans {
		s.history = slices.Clone(s.history[n-MaxHistoryPlans:])
	}
}

// GetMealsForDate returns the recipe ids planned for date.
func (s *Store) GetMealsForDate(date string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return []string{}
	}
	return append([]string{}, s.current.Meals[date]...)
}

// AddMealToDate appends recipeID to date. It is a no-op without a current plan
// or when the recipe is already planned for that date, and returns
// ErrDailyMealLimit when the date is full.
func (s *Store) AddMealToDate(date, recipeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	meals := s.current.Meals[date]
	if slices.Contains(meals, recipeID) {
		return nil
	}
	if len(meals) >= MaxMealsPerDay {
		return ErrDailyMealLimit
	}
	s.current.Meals[date] = append(meals, recipeID)
	s.touchLocked()
	return nil
}

// RemoveMealFromDate removes the first occurrence of recipeID from date.
func (s *Store) RemoveMealFromDate(date, recipeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return
	}
	meals := s.current.Meals[date]
	idx := slices.Index(meals, recipeID)
	if idx < 0 {
		return
	}
	s.current.Meals[date] = slices.Delete(slices.Clone(meals), idx, idx+1)
	s.touchLocked()
}

// SetMealsForDate replaces the recipes for date. Duplicates are dropped and
// more than MaxMealsPerDay distinct recipes is rejected.
func (s *Store) SetMealsForDate(date string, recipeIDs []string) error {
	var ids []string
	for _, id := range recipeIDs {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	if len(ids) > MaxMealsPerDay {
		return ErrDailyMealLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNoCurrentPlan
	}
	if ids == nil {
		ids = []string{}
	}
	s.current.Meals[date] = ids
	s.touchLocked()
	return nil
}

// PlannedDates returns the current plan's dates that have at least one meal, ascending.
func (s *Store) PlannedDates() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	var out []string
	for date, ids := range s.current.Meals {
		if len(ids) > 0 {
			out = append(out, date)
		}
	}
	slices.Sort(out)
	return out
}

func (s *Store) touchLocked() {
	s.current.UpdatedAt = s.now().UTC()
	s.commitLocked()
}

func (s *Store) commitLocked() {
	s.version++
	history := s.history
	if history == nil {
		history = []WeekPlan{}
	}
	storage.SaveJSON(s.kv, StorageKey, snapshot{CurrentPlan: s.current, HistoryPlans: history})
}
