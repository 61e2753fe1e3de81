package menu

import (
	"time"

	"github.com/google/uuid"

	"github.com/nutritrack/dietary/internal/domain/catalog"
	"github.com/nutritrack/dietary/internal/platform/apperr"
)

var Days = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

var MealPeriods = []string{"Breakfast", "Lunch", "Dinner"}

const (
	OptionHot  = "Hot"
	OptionCold = "Cold"
)

// Options lists meal options in default-fill preference order.
var Options = []string{OptionHot, OptionCold}

func ValidDay(d string) bool { return contains(Days, d) }
func ValidMealPeriod(p string) bool { return contains(MealPeriods, p) }
func ValidOption(o string) bool { return contains(Options, o) }

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Items is a meal's item selection by slot.
type Items struct {
	EntreeID     *uuid.UUID  `json:"entree_id,omitempty"`
	SideIDs      []uuid.UUID `json:"side_ids"`
	DessertIDs   []uuid.UUID `json:"dessert_ids"`
	DrinkIDs     []uuid.UUID `json:"drink_ids"`
	CondimentIDs []uuid.UUID `json:"condiment_ids"`
}

// IDs flattens the selection in slot order.
func (it Items) IDs() []uuid.UUID {
	var ids []uuid.UUID
	if it.EntreeID != nil && *it.EntreeID != uuid.Nil {
		ids = append(ids, *it.EntreeID)
	}
	for _, slot := range [][]uuid.UUID{it.SideIDs, it.DessertIDs, it.DrinkIDs, it.CondimentIDs} {
		ids = append(ids, slot...)
	}
	return ids
}

// Normalize drops zero IDs and replaces nil slots with empty ones so they
// store as '{}'.
func (it *Items) Normalize() {
	if it.EntreeID != nil && *it.EntreeID == uuid.Nil {
		it.EntreeID = nil
	}
	for _, slot := range []*[]uuid.UUID{&it.SideIDs, &it.DessertIDs, &it.DrinkIDs, &it.CondimentIDs} {
		ids := make([]uuid.UUID, 0, len(*slot))
		for _, id := range *slot {
			if id != uuid.Nil {
				ids = append(ids, id)
			}
		}
		*slot = ids
	}
}

// Menu is a preset meal: the default served to every listed diet for a
// day, meal period and option.
type Menu struct {
	ID         uuid.UUID   `json:"id"`
	Day        string      `json:"day"`
	MealPeriod string      `json:"meal_period"`
	Option     string      `json:"option"`
	DietIDs    []uuid.UUID `json:"diet_ids"`
	Items
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Diets         []*catalog.Diet     `json:"diets,omitempty"`
	ResolvedItems []*catalog.MenuItem `json:"items,omitempty"`
}

func (m *Menu) Validate() error {
	if !ValidDay(m.Day) {
		return apperr.Validationf("Invalid input. Please input a day of the week, I.E. Monday")
	}
	if !ValidMealPeriod(m.MealPeriod) {
		return apperr.Validationf("Must be either Breakfast, Lunch, or Dinner")
	}
	if !ValidOption(m.Option) {
		return apperr.Validationf("Invalid input. Please select either Hot or Cold.")
	}
	if len(m.DietIDs) == 0 {
		return apperr.Validationf("The diet is required")
	}
	if len(m.IDs()) == 0 {
		return apperr.Validationf("A menu needs at least one item")
	}
	return nil
}

// Filter narrows menu listings. Zero values match everything.
type Filter struct {
	Day        string
	MealPeriod string
	Option     string
	DietID     uuid.UUID
}
