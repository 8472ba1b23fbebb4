package wizard

import (
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"baby-meal-planner/internal/planner"
)

// Step is a wizard stage. Steps advance one at a time.
type Step int

const (
	StepPickDates Step = iota + 1
	StepPickRecipes
	StepAssign
	StepReview
)

func (s Step) String() string {
	switch s {
	case StepPickDates:
		return "pick dates"
	case StepPickRecipes:
		return "pick recipes"
	case StepAssign:
		return "assign"
	case StepReview:
		return "review"
	default:
		return fmt.Sprintf("step %d", int(s))
	}
}

// MaxRecipes caps the recipes picked in one session.
const MaxRecipes = 7

var (
	ErrNoDatesSelected   = errors.New("select at least one date")
	ErrNoRecipesSelected = errors.New("select at least one recipe")
	ErrRecipeLimit       = fmt.Errorf("at most %d recipes can be selected", MaxRecipes)
	ErrWrongStep         = errors.New("action not available at this step")
	ErrNoLastWeekPlan    = errors.New("no plan for last week")
	ErrDateNotSelected   = errors.New("date is not selected")
	ErrClosed            = errors.New("wizard session is closed")
)

// Plans is the plan store the wizard commits to.
type Plans interface {
	HasCurrentPlan() bool
	CurrentPlan() (planner.WeekPlan, bool)
	CreateNewPlan(dates []string) planner.WeekPlan
	SavePlan(plan planner.WeekPlan)
	AddMealToDate(date, recipeID string) error
	LastWeekPlan() (planner.WeekPlan, bool)
	CopyLastWeekPlan(dates []string) (planner.WeekPlan, bool)
}

// Assignment is one recipe staged for one date.
type Assignment struct {
	Date     string
	RecipeID string
}

// Session stages dates, recipes and per-date assignments for a new plan.
// Nothing reaches the plan store until Finish.
type Session struct {
	mu           sync.Mutex
	plans        Plans
	rng          *rand.Rand
	step         Step
	weekDates    []string
	dates        []string
	recipes      []string
	assignments  map[string][]string
	copyLastWeek bool
	closed       bool
}

// Option configures a Session.
type Option func(*Session)

// WithRand sets the random source used by AutoAssign.
func WithRand(r *rand.Rand) Option {
	return func(s *Session) { s.rng = r }
}

// New starts a session for the week containing today.
func New(plans Plans, today time.Time, opts ...Option) *Session {
	s := &Session{
		plans:       plans,
		rng:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		step:        StepPickDates,
		weekDates:   planner.WeekDates(today),
		assignments: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Step returns the current step.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Closed reports whether the session has finished or been cancelled.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// WeekDates returns the selectable dates, Monday to Sunday.
func (s *Session) WeekDates() []string {
	return slices.Clone(s.weekDates)
}

// SelectedDates returns the selected dates, ascending.
func (s *Session) SelectedDates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.dates)
}

// SelectedRecipes returns the selected recipe ids in selection order.
func (s *Session) SelectedRecipes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.recipes)
}

// Assignments returns the staged recipes per date.
func (s *Session) Assignments() map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]string, len(s.assignments))
	for date, ids := range s.assignments {
		out[date] = slices.Clone(ids)
	}
	return out
}

// CopyingLastWeek reports whether the session is seeded from last week's plan.
func (s *Session) CopyingLastWeek() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLastWeek
}

func (s *Session) requireLocked(step Step) error {
	if s.closed {
		return ErrClosed
	}
	if s.step != step {
		return ErrWrongStep
	}
	return nil
}

// ToggleDate selects or deselects one date. Deselecting a date drops
// whatever was staged for it.
func (s *Session) ToggleDate(date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLocked(StepPickDates); err != nil {
		return err
	}
	if _, err := planner.ParseDate(date); err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}
	if i := slices.Index(s.dates, date); i >= 0 {
		s.dates = slices.Delete(s.dates, i, i+1)
		delete(s.assignments, date)
	} else {
		s.dates = append(s.dates, date)
		slices.Sort(s.dates)
	}
	return nil
}

// SelectAllDates selects the whole week.
func (s *Session) SelectAllDates() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLocked(StepPickDates); err != nil {
		return err
	}
	s.dates = slices.Clone(s.weekDates)
	return nil
}

// UseLastWeek toggles seeding the following steps from last week's plan.
// Turning it off keeps any recipes already seeded.
func (s *Session) UseLastWeek() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLocked(StepPickDates); err != nil {
		return err
	}
	if s.copyLastWeek {
		s.copyLastWeek = false
		return nil
	}
	if _, ok := s.plans.LastWeekPlan(); !ok {
		return ErrNoLastWeekPlan
	}
	s.copyLastWeek = true
	return nil
}

// ToggleRecipe selects or deselects a recipe and reports whether it is now selected.
func (s *Session) ToggleRecipe(recipeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLocked(StepPickRecipes); err != nil {
		return false, err
	}
	if i := slices.Index(s.recipes, recipeID); i >= 0 {
		s.recipes = slices.Delete(s.recipes, i, i+1)
		return false, nil
	}
	if len(s.recipes) >= MaxRecipes {
		return false, ErrRecipeLimit
	}
	s.recipes = append(s.recipes, recipeID)
	return true, nil
}

// AssignRecipeToDate stages recipeID for date. A recipe already staged for
// the date is ignored; a fourth recipe is rejected with planner.ErrDailyMealLimit.
// Only selected dates accept assignments.
func (s *Session) AssignRecipeToDate(date, recipeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLocked(StepAssign); err != nil {
		return err
	}
	if !slices.Contains(s.dates, date) {
		return fmt.Errorf("cannot assign %s to %s: %w", recipeID, date, ErrDateNotSelected)
	}
	meals := s.assignments[date]
	if slices.Contains(meals, recipeID) {
		return nil
	}
	if len(meals) >= planner.MaxMealsPerDay {
		return planner.ErrDailyMealLimit
	}
	s.assignments[date] = append(meals, recipeID)
	return nil
}

// RemoveAssignment unstages recipeID from date.
func (s *Session) RemoveAssignment(date, recipeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLocked(StepAssign); err != nil {
		return err
	}
	meals := s.assignments[date]
	if i := slices.Index(meals, recipeID); i >= 0 {
		s.assignments[date] = slices.Delete(meals, i, i+1)
	}
	return nil
}

// AutoAssign replaces the staged assignments with one random selected recipe per date.
func (s *Session) AutoAssign() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLocked(StepAssign); err != nil {
		return err
	}
	assignments := make(map[string][]string, len(s.dates))
	for _, date := range s.dates {
		assignments[date] = []string{}
		if len(s.recipes) > 0 {
			assignments[date] = append(assignments[date], s.recipes[s.rng.IntN(len(s.recipes))])
		}
	}
	s.assignments = assignments
	return nil
}

// Next advances one step. Leaving step 1 needs a date, leaving step 2 a recipe.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	switch s.step {
	case StepPickDates:
		if len(s.dates) == 0 {
			return ErrNoDatesSelected
		}
		if s.copyLastWeek && len(s.recipes) == 0 {
			s.recipes = s.lastWeekRecipesLocked()
		}
	case StepPickRecipes:
		if len(s.recipes) == 0 {
			return ErrNoRecipesSelected
		}
		s.prepareAssignmentsLocked()
	case StepAssign:
	default:
		return ErrWrongStep
	}
	s.step++
	return nil
}

// Prev goes back one step, keeping every selection.
func (s *Session) Prev() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.step == StepPickDates {
		return ErrWrongStep
	}
	s.step--
	return nil
}

func (s *Session) lastWeekRecipesLocked() []string {
	last, ok := s.plans.LastWeekPlan()
	if !ok {
		return nil
	}
	var ids []string
	for _, date := range last.Dates() {
		for _, id := range last.Meals[date] {
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// prepareAssignmentsLocked seeds staged assignments on first entry to step 3.
// Existing staging is kept so back-and-forth navigation loses nothing.
func (s *Session) prepareAssignmentsLocked() {
	if s.copyLastWeek && !s.hasAssignmentsLocked() {
		if copied, ok := s.plans.CopyLastWeekPlan(s.dates); ok {
			s.assignments = copied.Meals
		}
	}
	for _, date := range s.dates {
		if _, ok := s.assignments[date]; !ok {
			s.assignments[date] = []string{}
		}
	}
}

func (s *Session) hasAssignmentsLocked() bool {
	for _, ids := range s.assignments {
		if len(ids) > 0 {
			return true
		}
	}
	return false
}

// Finish commits the staged assignments for the selected dates and closes
// the session. Without a current plan a new one is created from the
// selected dates; otherwise the assignments are merged into the current
// plan. Assignments rejected by the plan's daily cap are returned as skipped.
func (s *Session) Finish() (planner.WeekPlan, []Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireLocked(StepReview); err != nil {
		return planner.WeekPlan{}, nil, err
	}

	if !s.plans.HasCurrentPlan() {
		s.plans.SavePlan(s.plans.CreateNewPlan(s.dates))
	}

	var skipped []Assignment
	for _, date := range s.dates {
		for _, recipeID := range s.assignments[date] {
			err := s.plans.AddMealToDate(date, recipeID)
			if errors.Is(err, planner.ErrDailyMealLimit) {
				log.Printf("Warning: skipping %s on %s: %v", recipeID, date, err)
				skipped = append(skipped, Assignment{Date: date, RecipeID: recipeID})
				continue
			}
			if err != nil {
				return planner.WeekPlan{}, nil, fmt.Errorf("failed to add meal to plan: %w", err)
			}
		}
	}

	plan, ok := s.plans.CurrentPlan()
	if !ok {
		return planner.WeekPlan{}, nil, errors.New("current plan disappeared during finish")
	}
	s.plans.SavePlan(plan)
	plan, _ = s.plans.CurrentPlan()

	s.closeLocked()
	return plan, skipped, nil
}

// Close discards the session without touching the plan store.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *Session) closeLocked() {
	s.closed = true
	s.dates = nil
	s.recipes = nil
	s.assignments = make(map[string][]string)
}
