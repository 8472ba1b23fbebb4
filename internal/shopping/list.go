package shopping

import (
	"slices"
	"sync"
	"time"

	"baby-meal-planner/internal/planner"
	"baby-meal-planner/internal/storage"
)

// StorageKey is the persisted record holding purchased ingredient ids.
const StorageKey = "babymeal-passport-shopping"

// PlanSource provides the current plan.
type PlanSource interface {
	CurrentPlan() (planner.WeekPlan, bool)
	Version() uint64
}

// PantryStore is the pantry the list reads from and restocks.
type PantryStore interface {
	Has(id string) bool
	Add(ids ...string)
	Version() uint64
}

type listKey struct {
	planVersion      uint64
	pantryVersion    uint64
	purchasedVersion uint64
	today            string
}

// List is the shopping list for the current plan with its purchased overlay.
// The overlay is keyed by ingredient id and survives plan changes.
type List struct {
	plans   PlanSource
	pantry  PantryStore
	catalog Catalog
	kv      storage.KV
	now     func() time.Time

	mu               sync.Mutex
	purchased        IDSet
	purchasedVersion uint64
	key              listKey
	valid            bool
	items            []Item
}

// Option configures a List.
type Option func(*List)

// WithClock overrides the time source used for time groups.
func WithClock(now func() time.Time) Option {
	return func(l *List) { l.now = now }
}

// NewList loads the purchased overlay from kv.
func NewList(kv storage.KV, plans PlanSource, pantry PantryStore, cat Catalog, opts ...Option) *List {
	l := &List{
		plans:     plans,
		pantry:    pantry,
		catalog:   cat,
		kv:        kv,
		now:       time.Now,
		purchased: make(IDSet),
	}
	for _, opt := range opts {
		opt(l)
	}
	var ids []string
	if storage.LoadJSON(kv, StorageKey, &ids) {
		for _, id := range ids {
			l.purchased[id] = struct{}{}
		}
	}
	return l
}

// Items returns the full list, recomputed only when its inputs change.
func (l *List) Items() []Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.itemsLocked())
}

func (l *List) itemsLocked() []Item {
	now := l.now()
	key := listKey{
		planVersion:      l.plans.Version(),
		pantryVersion:    l.pantry.Version(),
		purchasedVersion: l.purchasedVersion,
		today:            planner.FormatDate(now),
	}
	if !l.valid || key != l.key {
		var plan *planner.WeekPlan
		if p, ok := l.plans.CurrentPlan(); ok {
			plan = &p
		}
		l.items = Derive(plan, l.pantry, l.catalog, l.purchased, now)
		l.key = key
		l.valid = true
	}
	return l.items
}

func (l *List) group(g TimeGroup) []Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Item
	for _, it := range l.itemsLocked() {
		if it.TimeGroup == g {
			out = append(out, it)
		}
	}
	return out
}

// ThisWeek returns the items needed by the end of this week.
func (l *List) ThisWeek() []Item { return l.group(ThisWeek) }

// NextWeek returns the items first needed next week.
func (l *List) NextWeek() []Item { return l.group(NextWeek) }

// Later returns the items first needed after next week.
func (l *List) Later() []Item { return l.group(Later) }

func countWhere(items []Item, keep func(Item) bool) int {
	n := 0
	for _, it := range items {
		if keep(it) {
			n++
		}
	}
	return n
}

// PendingCount returns how many items are not yet purchased.
func (l *List) PendingCount() int {
	return countWhere(l.Items(), func(it Item) bool { return !it.Purchased })
}

// PurchasedCount returns how many listed items are marked purchased.
func (l *List) PurchasedCount() int {
	return countWhere(l.Items(), func(it Item) bool { return it.Purchased })
}

// ThisWeekPendingCount returns how many of this week's items are not yet purchased.
func (l *List) ThisWeekPendingCount() int {
	return countWhere(l.ThisWeek(), func(it Item) bool { return !it.Purchased })
}

// IsPurchased reports whether id carries the purchased mark.
func (l *List) IsPurchased(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.purchased.Has(id)
}

// TogglePurchased flips the purchased mark for id and returns the new state.
func (l *List) TogglePurchased(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.purchased.Has(id) {
		delete(l.purchased, id)
	} else {
		l.purchased[id] = struct{}{}
	}
	l.commitLocked()
	return l.purchased.Has(id)
}

// MarkPurchasedAndAddToPantry restocks id in one step. The item leaves the
// list, so its purchased mark is cleared as well.
func (l *List) MarkPurchasedAndAddToPantry(id string) {
	l.pantry.Add(id)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.purchased.Has(id) {
		delete(l.purchased, id)
		l.commitLocked()
	}
}

func (l *List) markLocked(items []Item) {
	changed := false
	for _, it := range items {
		if !l.purchased.Has(it.IngredientID) {
			l.purchased[it.IngredientID] = struct{}{}
			changed = true
		}
	}
	if changed {
		l.commitLocked()
	}
}

// MarkAllPurchased marks every listed item purchased.
func (l *List) MarkAllPurchased() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.markLocked(l.itemsLocked())
}

// MarkThisWeekPurchased marks this week's items purchased.
func (l *List) MarkThisWeekPurchased() {
	l.mu.Lock()
	defer l.mu.Unlock()
	var week []Item
	for _, it := range l.itemsLocked() {
		if it.TimeGroup == ThisWeek {
			week = append(week, it)
		}
	}
	l.markLocked(week)
}

// ClearAllPurchased removes every purchased mark.
func (l *List) ClearAllPurchased() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.purchased) == 0 {
		return
	}
	l.purchased = make(IDSet)
	l.commitLocked()
}

// AddAllPurchasedToPantry moves every purchased item into the pantry and
// clears all purchased marks. It returns the ids added.
func (l *List) AddAllPurchasedToPantry() []string {
	l.mu.Lock()
	var added []string
	for _, it := range l.itemsLocked() {
		if it.Purchased {
			added = append(added, it.IngredientID)
		}
	}
	if len(l.purchased) > 0 {
		l.purchased = make(IDSet)
		l.commitLocked()
	}
	l.mu.Unlock()

	l.pantry.Add(added...)
	return added
}

// AddThisWeekPurchasedToPantry moves this week's purchased items into the
// pantry and clears the marks of this week's items only.
func (l *List) AddThisWeekPurchasedToPantry() []string {
	l.mu.Lock()
	var added []string
	changed := false
	for _, it := range l.itemsLocked() {
		if it.TimeGroup != ThisWeek {
			continue
		}
		if it.Purchased {
			added = append(added, it.IngredientID)
		}
		if l.purchased.Has(it.IngredientID) {
			delete(l.purchased, it.IngredientID)
			changed = true
		}
	}
	if changed {
		l.commitLocked()
	}
	l.mu.Unlock()

	l.pantry.Add(added...)
	return added
}

func (l *List) commitLocked() {
	l.purchasedVersion++
	ids := make([]string, 0, len(l.purchased))
	for id := range l.purchased {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	storage.SaveJSON(l.kv, StorageKey, ids)
}
