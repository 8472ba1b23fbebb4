package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"baby-meal-planner/internal/storage"
)

// StorageKey is the persisted record holding the baby's profile.
const StorageKey = "babymeal-passport-user"

// BirthdayLayout is the ISO date format used for birthdays.
const BirthdayLayout = "2006-01-02"

// ErrAlreadyFavorite is returned when a recipe is favorited twice.
var ErrAlreadyFavorite = errors.New("recipe is already a favorite")

// Status records whether the baby has tried an ingredient.
type Status string

const (
	StatusNotTried Status = "not_tried"
	StatusTried    Status = "tried"
)

// Preference is the baby's reaction to an ingredient. The zero value means no preference.
type Preference string

const (
	PreferenceNone    Preference = ""
	PreferenceLove    Preference = "love"
	PreferenceNeutral Preference = "neutral"
	PreferenceDislike Preference = "dislike"
)

// MarshalJSON encodes the empty preference as null.
func (p Preference) MarshalJSON() ([]byte, error) {
	if p == PreferenceNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(p))
}

// UnmarshalJSON accepts null as the empty preference.
func (p *Preference) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = PreferenceNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = Preference(s)
	return nil
}

// Rating is a recipe rating. The empty rating means unrated.
type Rating string

const (
	RatingNone    Rating = ""
	RatingLike    Rating = "like"
	RatingNormal  Rating = "normal"
	RatingDislike Rating = "dislike"
)

// IngredientState is the per-baby record for one ingredient.
type IngredientState struct {
	Status     Status     `json:"status"`
	Allergy    bool       `json:"allergy"`
	Preference Preference `json:"preference"`
	Note       string     `json:"note"`
}

// DefaultIngredientState is the state of an ingredient with no record.
func DefaultIngredientState() IngredientState {
	return IngredientState{Status: StatusNotTried}
}

// IngredientStateUpdate is a partial update; nil fields are left unchanged.
type IngredientStateUpdate struct {
	Status     *Status
	Allergy    *bool
	Preference *Preference
	Note       *string
}

func (u IngredientStateUpdate) apply(st IngredientState) IngredientState {
	if u.Status != nil {
		st.Status = *u.Status
	}
	if u.Allergy != nil {
		st.Allergy = *u.Allergy
	}
	if u.Preference != nil {
		st.Preference = *u.Preference
	}
	if u.Note != nil {
		st.Note = *u.Note
	}
	return st
}

// snapshot is the persisted shape of the profile.
type snapshot struct {
	BabyName          string                     `json:"babyName"`
	Birthday          string                     `json:"birthday"`
	IngredientStates  map[string]IngredientState `json:"ingredientStates"`
	FavoriteRecipeIDs []string                   `json:"favoriteRecipeIds"`
	RecipeRatings     map[string]Rating          `json:"recipeRatings"`
}

// Store holds the baby's identity, ingredient states, favorites and ratings.
type Store struct {
	mu        sync.RWMutex
	kv        storage.KV
	now       func() time.Time
	babyName  string
	birthday  string
	states    map[string]IngredientState
	favorites map[string]struct{}
	ratings   map[string]Rating
	version   uint64
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for age calculations.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore loads the profile from kv. A missing or corrupt record yields an empty profile.
func NewStore(kv storage.KV, opts ...Option) *Store {
	s := &Store{kv: kv, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.resetLocked()

	var snap snapshot
	if storage.LoadJSON(kv, StorageKey, &snap) {
		s.babyName = snap.BabyName
		s.birthday = snap.Birthday
		for id, st := range snap.IngredientStates {
			s.states[id] = st
		}
		for _, id := range snap.FavoriteRecipeIDs {
			s.favorites[id] = struct{}{}
		}
		for id, r := range snap.RecipeRatings {
			if r != RatingNone {
				s.ratings[id] = r
			}
		}
	}
	return s
}

func (s *Store) resetLocked() {
	s.babyName = ""
	s.birthday = ""
	s.states = make(map[string]IngredientState)
	s.favorites = make(map[string]struct{})
	s.ratings = make(map[string]Rating)
}

// Version increases on every change and keys memoized derivations.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// BabyName returns the baby's name.
func (s *Store) BabyName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.babyName
}

// Birthday returns the baby's birthday as an ISO date, or "" if unset.
func (s *Store) Birthday() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.birthday
}

// SetBabyInfo sets the baby's name and ISO birthday.
func (s *Store) SetBabyInfo(name, birthday string) error {
	if birthday != "" {
		if _, err := time.Parse(BirthdayLayout, birthday); err != nil {
			return fmt.Errorf("invalid birthday %q: %w", birthday, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.babyName = name
	s.birthday = birthday
	s.commitLocked()
	return nil
}

// AgeInMonths returns the baby's age in whole months as of now.
func (s *Store) AgeInMonths() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return AgeInMonths(s.birthday, s.now())
}

// AgeDisplay returns a human-readable age, e.g. "1 year 3 months".
func (s *Store) AgeDisplay() string {
	return FormatAge(s.AgeInMonths())
}

// IngredientState returns the state for id, or the default state if none is recorded.
func (s *Store) IngredientState(id string) IngredientState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.states[id]; ok {
		return st
	}
	return DefaultIngredientState()
}

// IngredientStates returns a copy of every recorded state.
func (s *Store) IngredientStates() map[string]IngredientState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]IngredientState, len(s.states))
	for id, st := range s.states {
		out[id] = st
	}
	return out
}

// UpdateIngredientState merges u into the state for id, creating it on first write.
func (s *Store) UpdateIngredientState(id string, u IngredientStateUpdate) IngredientState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	if !ok {
		st = DefaultIngredientState()
	}
	st = u.apply(st)
	s.states[id] = st
	s.commitLocked()
	return st
}

// ResetIngredientState removes the record for id entirely.
func (s *Store) ResetIngredientState(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[id]; !ok {
		return
	}
	delete(s.states, id)
	s.commitLocked()
}

// TriedCount returns how many ingredients have been tried.
func (s *Store) TriedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, st := range s.states {
		if st.Status == StatusTried {
			n++
		}
	}
	return n
}

// AllergyCount returns how many ingredients are marked allergic.
func (s *Store) AllergyCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, st := range s.states {
		if st.Allergy {
			n++
		}
	}
	return n
}

// IsFavorite reports whether recipeID is a favorite.
func (s *Store) IsFavorite(recipeID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.favorites[recipeID]
	return ok
}

// Favorites returns the favorite recipe ids, sorted.
func (s *Store) Favorites() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.favoritesLocked()
}

// ToggleFavorite flips recipeID in or out of favorites and returns whether it is now a favorite.
func (s *Store) ToggleFavorite(recipeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, had := s.favorites[recipeID]
	if had {
		delete(s.favorites, recipeID)
	} else {
		s.favorites[recipeID] = struct{}{}
	}
	s.commitLocked()
	return !had
}

// AddFavorite marks recipeID as a favorite, rejecting a duplicate.
func (s *Store) AddFavorite(recipeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.favorites[recipeID]; ok {
		return ErrAlreadyFavorite
	}
	s.favorites[recipeID] = struct{}{}
	s.commitLocked()
	return nil
}

// RecipeRating returns the rating for recipeID, or RatingNone.
func (s *Store) RecipeRating(recipeID string) Rating {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ratings[recipeID]
}

// SetRecipeRating rates a recipe. RatingNone clears the rating.
func (s *Store) SetRecipeRating(recipeID string, r Rating) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r == RatingNone {
		if _, ok := s.ratings[recipeID]; !ok {
			return
		}
		delete(s.ratings, recipeID)
	} else {
		s.ratings[recipeID] = r
	}
	s.commitLocked()
}

// IsRecipeLiked reports whether recipeID is rated "like".
func (s *Store) IsRecipeLiked(recipeID string) bool {
	return s.RecipeRating(recipeID) == RatingLike
}

// LikedRecipesCount returns how many recipes are rated "like".
func (s *Store) LikedRecipesCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.ratings {
		if r == RatingLike {
			n++
		}
	}
	return n
}

// Reset clears the whole profile, as on sign-out.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.commitLocked()
}

func (s *Store) favoritesLocked() []string {
	ids := make([]string, 0, len(s.favorites))
	for id := range s.favorites {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *Store) commitLocked() {
	s.version++
	storage.SaveJSON(s.kv, StorageKey, snapshot{
		BabyName:          s.babyName,
		Birthday:          s.birthday,
		IngredientStates:  s.states,
		FavoriteRecipeIDs: s.favoritesLocked(),
		RecipeRatings:     s.ratings,
	})
}
