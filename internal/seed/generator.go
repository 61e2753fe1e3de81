package seed

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/nutritrack/dietary/internal/domain/catalog"
	"github.com/nutritrack/dietary/internal/domain/patient"
)

var (
	firstNames = []string{
		"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael", "Linda",
		"David", "Elizabeth", "William", "Barbara", "Richard", "Susan", "Joseph", "Jessica",
	}
	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis",
		"Rodriguez", "Martinez", "Hernandez", "Lopez", "Wilson", "Anderson", "Thomas", "Taylor",
	}
)

// Generator produces reproducible demo patients.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a generator seeded for reproducibility. A zero seed
// picks a time-based one.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

func (g *Generator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *Generator) dateOfBirth(minYear, maxYear int) patient.Date {
	y := minYear + g.rng.Intn(maxYear-minYear+1)
	m := time.Month(1 + g.rng.Intn(12))
	d := 1 + g.rng.Intn(28)
	return patient.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// allergies returns at most two allergens; most patients have none.
func (g *Generator) allergies() []string {
	if g.rng.Intn(3) != 0 {
		return nil
	}
	pool := catalog.Allergens[1:]
	n := 1 + g.rng.Intn(2)
	out := make([]string, 0, n)
	for _, i := range g.rng.Perm(len(pool))[:n] {
		out = append(out, pool[i])
	}
	return out
}

// Patient returns an admission to roomID on one of dietIDs.
func (g *Generator) Patient(roomID uuid.UUID, dietIDs []uuid.UUID) *patient.Patient {
	status := patient.StatusEating
	if g.rng.Intn(8) == 0 {
		status = patient.StatusNPO
	}
	return &patient.Patient{
		FirstName:      g.pick(firstNames),
		LastName:       g.pick(lastNames),
		DateOfBirth:    g.dateOfBirth(1935, 2005),
		RoomID:         roomID,
		DietID:         dietIDs[g.rng.Intn(len(dietIDs))],
		IsHighRisk:     g.rng.Intn(5) == 0,
		KnownAllergies: g.allergies(),
		Status:         status,
	}
}
