package patient

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nutritrack/dietary/internal/domain/catalog"
	"github.com/nutritrack/dietary/internal/domain/facility"
	"github.com/nutritrack/dietary/internal/domain/ordering"
	"github.com/nutritrack/dietary/internal/platform/apperr"
)

const (
	StatusEating = "Eating"
	StatusNPO    = "NPO"
)

const maxNameLength = 40

// Date is a calendar date. It reads "2006-01-02" or RFC 3339 and writes
// "2006-01-02".
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return apperr.Validationf("date_of_birth must be a date string")
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			return apperr.Validationf("Invalid date %q, expected YYYY-MM-DD", s)
		}
	}
	d.Time = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return nil
}

type Patient struct {
	ID             uuid.UUID `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	DateOfBirth    Date      `json:"date_of_birth"`
	RoomID         uuid.UUID `json:"room_id"`
	RoomNumber     int       `json:"room_number"`
	UnitName       string    `json:"unit_name"`
	DietID         uuid.UUID `json:"diet_id"`
	DietName       string    `json:"diet_name"`
	IsHighRisk     bool      `json:"is_high_risk"`
	KnownAllergies []string  `json:"known_allergies"`
	Status         string    `json:"status"`
	Supplements    *string   `json:"supplements,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Diet   *catalog.Diet     `json:"diet,omitempty"`
	Room   *facility.Room    `json:"room,omitempty"`
	Orders []*ordering.Order `json:"orders,omitempty"`
}

// Normalize trims names and supplements, lower-cases and dedups allergies,
// drops the "none" marker and defaults the status to Eating.
func (p *Patient) Normalize() {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	if p.Supplements != nil {
		s := strings.TrimSpace(*p.Supplements)
		if s == "" {
			p.Supplements = nil
		} else {
			p.Supplements = &s
		}
	}
	seen := map[string]bool{}
	allergies := make([]string, 0, len(p.KnownAllergies))
	for _, a := range p.KnownAllergies {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" && a != catalog.NoAllergens && !seen[a] {
			seen[a] = true
			allergies = append(allergies, a)
		}
	}
	p.KnownAllergies = allergies
	if p.Status == "" {
		p.Status = StatusEating
	}
}

func (p *Patient) Validate(now time.Time) error {
	if p.FirstName == "" || len(p.FirstName) > maxNameLength {
		return apperr.Validationf("A first name is required (at most %d characters)", maxNameLength)
	}
	if p.LastName == "" || len(p.LastName) > maxNameLength {
		return apperr.Validationf("A last name is required (at most %d characters)", maxNameLength)
	}
	if p.DateOfBirth.IsZero() {
		return apperr.Validationf("A date of birth is required")
	}
	if p.DateOfBirth.After(now) {
		return apperr.Validationf("Date of birth cannot be in the future")
	}
	if p.RoomID == uuid.Nil {
		return apperr.Validationf("A room is required")
	}
	if p.DietID == uuid.Nil {
		return apperr.Validationf("A diet is required")
	}
	if p.Status != StatusEating && p.Status != StatusNPO {
		return apperr.Validationf("Status must be either Eating or NPO")
	}
	for _, a := range p.KnownAllergies {
		if !catalog.IsAllergen(a) {
			return apperr.Validationf("Unknown allergy %q. Please select from: %s",
				a, strings.Join(catalog.Allergens[1:], ", "))
		}
	}
	return nil
}

// Context is the view of the patient the order pipeline works from.
func (p *Patient) Context() *ordering.PatientContext {
	return &ordering.PatientContext{
		PatientID:      p.ID,
		DietID:         p.DietID,
		DietName:       p.DietName,
		KnownAllergies: append([]string{}, p.KnownAllergies...),
		Status:         p.Status,
	}
}

// Filter narrows patient listings. Zero values match everything.
type Filter struct {
	UnitName string
	Status   string
	HighRisk *bool
}
