package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nutritrack/dietary/internal/platform/apperr"
)

var DietNames = []string{
	"Regular", "Cardiac", "Heart Healthy", "GI Soft",
	"Mechanical Soft", "Puree", "Full Liquid", "Clear Liquid",
}

var Categories = []string{"entree", "side", "drink", "dessert", "condiment", "supplement"}

var PortionUnits = []string{"each", "cup", "ounce"}

// NoAllergens marks an item that declares no major allergen.
const NoAllergens = "none"

// Allergens are the major allergens a menu item may declare. NoAllergens is
// the default for items without any.
var Allergens = []string{
	NoAllergens, "milk", "eggs", "fish", "shellfish",
	"tree nuts", "peanuts", "wheat", "soybean",
}

// IsAllergen reports whether a is a real major allergen, not the NoAllergens
// marker.
func IsAllergen(a string) bool {
	return a != NoAllergens && oneOf(a, Allergens)
}

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

type Diet struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Description   *string   `json:"description,omitempty"`
	Calories      *int      `json:"calories,omitempty"`
	TotalFatG     *int      `json:"total_fat_g,omitempty"`
	CholesterolMg *int      `json:"cholesterol_mg,omitempty"`
	CarbsLimitG   *int      `json:"carbs_limit_g,omitempty"`
	SodiumLimitMg *int      `json:"sodium_limit_mg,omitempty"`
	ProteinG      *int      `json:"protein_g,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (d *Diet) Validate() error {
	if !oneOf(d.Name, DietNames) {
		return apperr.Validationf("Invalid input. Please use a diet from the available options of %s.",
			quoteJoin(DietNames))
	}
	for _, v := range []*int{d.Calories, d.TotalFatG, d.CholesterolMg, d.CarbsLimitG, d.SodiumLimitMg, d.ProteinG} {
		if v != nil && *v < 0 {
			return apperr.Validationf("Nutrient values cannot be negative")
		}
	}
	return nil
}

type ProductionArea struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	OutOfService bool      `json:"out_of_service"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (a *ProductionArea) Validate() error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" || len(a.Name) > 40 {
		return apperr.Validationf("An area name is required (at most 40 characters)")
	}
	return nil
}

type MenuItem struct {
	ID               uuid.UUID   `json:"id"`
	Name             string      `json:"name"`
	Description      string      `json:"description"`
	Category         string      `json:"category"`
	ProductionAreaID uuid.UUID   `json:"production_area_id"`
	DietIDs          []uuid.UUID `json:"diet_ids"`
	IsLiquid         bool        `json:"is_liquid"`
	PortionSize      float64     `json:"portion_size"`
	PortionUnit      string      `json:"portion_unit"`
	CarbsG           int         `json:"carbs_g"`
	SodiumMg         int         `json:"sodium_mg"`
	MajorAllergens   []string    `json:"major_allergens"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`

	// DietNames mirrors DietIDs; the order engine checks compatibility by
	// diet name.
	DietNames []string `json:"diet_names"`

	Diets          []*Diet         `json:"diets,omitempty"`
	ProductionArea *ProductionArea `json:"production_area,omitempty"`
}

// AvailableFor reports whether the item may be served on the named diet.
func (m *MenuItem) AvailableFor(dietName string) bool {
	return oneOf(dietName, m.DietNames)
}

// Normalize trims text fields, collapses duplicate diets and allergens, and
// applies the "none" allergen default.
func (m *MenuItem) Normalize() {
	m.Name = strings.TrimSpace(m.Name)
	m.Description = strings.TrimSpace(m.Description)
	m.Category = strings.ToLower(strings.TrimSpace(m.Category))
	m.PortionUnit = strings.ToLower(strings.TrimSpace(m.PortionUnit))

	seenDiet := make(map[uuid.UUID]bool, len(m.DietIDs))
	diets := make([]uuid.UUID, 0, len(m.DietIDs))
	for _, id := range m.DietIDs {
		if id != uuid.Nil && !seenDiet[id] {
			seenDiet[id] = true
			diets = append(diets, id)
		}
	}
	m.DietIDs = diets

	seen := make(map[string]bool, len(m.MajorAllergens))
	allergens := make([]string, 0, len(m.MajorAllergens))
	for _, a := range m.MajorAllergens {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" && !seen[a] {
			seen[a] = true
			allergens = append(allergens, a)
		}
	}
	if len(allergens) == 0 {
		allergens = []string{NoAllergens}
	}
	m.MajorAllergens = allergens
}

// Validate checks field-level rules. Reference existence is checked by the
// service.
func (m *MenuItem) Validate() error {
	if n := len(m.Name); n < 3 || n > 40 {
		return apperr.Validationf("Item name must be between 3 and 40 characters")
	}
	if n := len(m.Description); n < 3 || n > 60 {
		return apperr.Validationf("Description must be between 3 and 60 characters")
	}
	if !oneOf(m.Category, Categories) {
		return apperr.Validationf("Please select one of the available categories: %s", strings.Join(Categories, ", "))
	}
	if m.ProductionAreaID == uuid.Nil {
		return apperr.Validationf("Select which production area makes this item")
	}
	if len(m.DietIDs) == 0 {
		return apperr.Validationf("Menu item diet availability is required")
	}
	if m.PortionSize <= 0 {
		return apperr.Validationf("Portion size must be greater than zero")
	}
	if !oneOf(m.PortionUnit, PortionUnits) {
		return apperr.Validationf(`Please select from the available options of "each", "cup", or "ounce"`)
	}
	if m.CarbsG < 0 || m.SodiumMg < 0 {
		return apperr.Validationf("Carb and sodium counts cannot be negative")
	}
	for _, a := range m.MajorAllergens {
		if !oneOf(a, Allergens) {
			return apperr.Validationf("Please select from the available list of major allergens: %s", strings.Join(Allergens, ", "))
		}
	}
	return nil
}

// ItemFilter narrows menu item listings. Zero values match everything.
type ItemFilter struct {
	DietName         string
	Category         string
	ProductionAreaID uuid.UUID
}

func quoteJoin(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + v + `"`
	}
	return strings.Join(quoted, ", ")
}
