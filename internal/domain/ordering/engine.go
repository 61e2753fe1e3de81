package ordering

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nutritrack/dietary/internal/domain/catalog"
	"github.com/nutritrack/dietary/internal/platform/apperr"
)

// orderWindowDays is how many days ahead, counting today, an order may target.
const orderWindowDays = 3

// MenuItemLookup loads menu items by ID, returning only those that exist.
type MenuItemLookup interface {
	GetMenuItems(ctx context.Context, ids []uuid.UUID) ([]*catalog.MenuItem, error)
}

// Engine holds the order validation rules. It reads the clock through now
// so day resolution can be tested at any date.
type Engine struct {
	items MenuItemLookup
	now   func() time.Time
	loc   *time.Location
}

func NewEngine(items MenuItemLookup, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{items: items, now: time.Now, loc: loc}
}

// WithClock replaces the engine's clock.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func (e *Engine) Now() time.Time { return e.now().In(e.loc) }

// ResolveOrderDay maps a weekday name onto today, tomorrow or the day after
// tomorrow and returns that date at midnight.
func (e *Engine) ResolveOrderDay(day string) (time.Time, error) {
	now := e.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.loc)
	for offset := 0; offset < orderWindowDays; offset++ {
		date := today.AddDate(0, 0, offset)
		if date.Weekday().String() == day {
			return date, nil
		}
	}
	return time.Time{}, apperr.New(apperr.InvalidOrderDay,
		"Meal orders can only be submitted for today, tomorrow, or the day after tomorrow")
}

// MealTime is the serving time for a meal period on date.
func (e *Engine) MealTime(mealPeriod string, date time.Time) time.Time {
	hour := 17
	switch mealPeriod {
	case "Breakfast":
		hour = 7
	case "Lunch":
		hour = 12
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, date.Location())
}

// CollectItemIDs flattens a selection into unique IDs in slot order.
func CollectItemIDs(sel Selection) []uuid.UUID {
	all := append(sel.Items.IDs(), sel.SupplementIDs...)
	seen := make(map[uuid.UUID]bool, len(all))
	ids := make([]uuid.UUID, 0, len(all))
	for _, id := range all {
		if id != uuid.Nil && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// ValidateItems loads ids and checks each is allowed on dietName.
func (e *Engine) ValidateItems(ctx context.Context, ids []uuid.UUID, dietName string) ([]*catalog.MenuItem, error) {
	if len(ids) == 0 {
		return []*catalog.MenuItem{}, nil
	}
	items, err := e.items.GetMenuItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(items) != len(ids) {
		return nil, apperr.New(apperr.MenuItemNotFound, "One or more menu item(s) was not found")
	}
	for _, it := range items {
		if !it.AvailableFor(dietName) {
			return nil, apperr.New(apperr.DietIncompatible,
				"One or more menu item(s) is not allowed by the patients current diet")
		}
	}
	return items, nil
}

// CheckAllergens returns the names of items carrying any of the patient's
// known allergies, each at most once. The result is never nil.
func CheckAllergens(items []*catalog.MenuItem, knownAllergies []string) []string {
	flagged := []string{}
	if len(knownAllergies) == 0 {
		return flagged
	}
	seen := map[string]bool{}
	for _, it := range items {
		if it == nil || seen[it.Name] {
			continue
		}
		for _, a := range it.MajorAllergens {
			if hasAllergy(knownAllergies, a) {
				seen[it.Name] = true
				flagged = append(flagged, it.Name)
				break
			}
		}
	}
	return flagged
}

// hasAllergy never matches the NoAllergens marker on either side.
func hasAllergy(known []string, allergen string) bool {
	if strings.EqualFold(allergen, catalog.NoAllergens) {
		return false
	}
	for _, k := range known {
		k = strings.TrimSpace(k)
		if strings.EqualFold(k, catalog.NoAllergens) {
			continue
		}
		if strings.EqualFold(k, allergen) {
			return true
		}
	}
	return false
}

// Prepare is the pre-write step for an order with explicit items: stamp the
// meal date and time, validate every item against the patient's diet and
// reject allergen conflicts.
func (e *Engine) Prepare(ctx context.Context, pc PatientContext, o *Order) error {
	date, err := e.ResolveOrderDay(o.Day)
	if err != nil {
		return err
	}
	o.MealDate = date
	o.MealTime = e.MealTime(o.MealPeriod, date)

	items, err := e.ValidateItems(ctx, CollectItemIDs(o.Selection), pc.DietName)
	if err != nil {
		return err
	}
	return e.screen(items, pc)
}

func (e *Engine) screen(items []*catalog.MenuItem, pc PatientContext) error {
	if flagged := CheckAllergens(items, pc.KnownAllergies); len(flagged) > 0 {
		return apperr.Allergens(flagged)
	}
	return nil
}
