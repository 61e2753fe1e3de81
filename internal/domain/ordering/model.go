package ordering

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nutritrack/dietary/internal/domain/catalog"
	"github.com/nutritrack/dietary/internal/domain/menu"
	"github.com/nutritrack/dietary/internal/platform/apperr"
)

// OrderLifetime is how long an order is kept before the sweeper removes it.
const OrderLifetime = 5 * 24 * time.Hour

const maxCommentLength = 200

// PatientContext is what the order pipeline needs to know about a patient.
// It is resolved once per request and passed to each stage.
type PatientContext struct {
	PatientID      uuid.UUID `json:"id"`
	DietID         uuid.UUID `json:"diet_id"`
	DietName       string    `json:"diet_name"`
	KnownAllergies []string  `json:"known_allergies"`
	Status         string    `json:"status"`
}

// Selection is the set of items an order names, by slot.
type Selection struct {
	menu.Items
	SupplementIDs []uuid.UUID `json:"supplement_ids"`
}

// Empty reports whether no item was named in any slot.
func (s Selection) Empty() bool {
	return len(s.Items.IDs()) == 0 && len(nonNil(s.SupplementIDs)) == 0
}

func (s *Selection) Normalize() {
	s.Items.Normalize()
	s.SupplementIDs = nonNil(s.SupplementIDs)
}

func nonNil(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != uuid.Nil {
			out = append(out, id)
		}
	}
	return out
}

type Order struct {
	ID         uuid.UUID `json:"id"`
	PatientID  uuid.UUID `json:"patient_id"`
	Day        string    `json:"day"`
	MealPeriod string    `json:"meal_period"`
	Option     *string   `json:"option,omitempty"`
	Selection
	Comments  *string   `json:"comments,omitempty"`
	MealDate  time.Time `json:"meal_date"`
	MealTime  time.Time `json:"meal_time"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`

	Resolved      *ResolvedItems  `json:"items,omitempty"`
	TotalCarbsG   *int            `json:"total_carbs_g,omitempty"`
	TotalSodiumMg *int            `json:"total_sodium_mg,omitempty"`
	Patient       *PatientContext `json:"patient,omitempty"`
}

func (o *Order) validateFields() error {
	if !menu.ValidMealPeriod(o.MealPeriod) {
		return apperr.Validationf("Must be either Breakfast, Lunch, or Dinner")
	}
	if o.Option != nil {
		if *o.Option == "" {
			o.Option = nil
		} else if !menu.ValidOption(*o.Option) {
			return apperr.Validationf("Invalid input. Please select either Hot or Cold.")
		}
	}
	if o.Comments != nil {
		trimmed := strings.TrimSpace(*o.Comments)
		if len(trimmed) > maxCommentLength {
			return apperr.Validationf("Comments must be at most %d characters", maxCommentLength)
		}
		o.Comments = &trimmed
	}
	return nil
}

// ResolvedItems is an order's selection with every item loaded. Items
// deleted since the order was placed are left out.
type ResolvedItems struct {
	Entree      *catalog.MenuItem   `json:"entree,omitempty"`
	Sides       []*catalog.MenuItem `json:"sides"`
	Dessert     []*catalog.MenuItem `json:"dessert"`
	Drinks      []*catalog.MenuItem `json:"drinks"`
	Condiments  []*catalog.MenuItem `json:"condiments"`
	Supplements []*catalog.MenuItem `json:"supplements"`
}

// Totals sums carbs and sodium over entree, sides, dessert, drinks and
// condiments. Supplements are not counted.
func (r *ResolvedItems) Totals() (carbs, sodium int) {
	counted := []*catalog.MenuItem{r.Entree}
	for _, slot := range [][]*catalog.MenuItem{r.Sides, r.Dessert, r.Drinks, r.Condiments} {
		counted = append(counted, slot...)
	}
	for _, it := range counted {
		if it != nil {
			carbs += it.CarbsG
			sodium += it.SodiumMg
		}
	}
	return carbs, sodium
}

// Filter narrows order listings. Zero values match everything.
type Filter struct {
	PatientID  uuid.UUID
	Day        string
	MealPeriod string
}

// CreateRequest is an order as submitted: the target slot comes from the
// query string, the items from the body.
type CreateRequest struct {
	PatientID  uuid.UUID
	Day        string
	MealPeriod string
	Option     string
	Selection  Selection
	Comments   *string
}
