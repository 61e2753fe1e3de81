package reporting

import (
	"context"
	"time"
)

type Repository interface {
	Patients(ctx context.Context) ([]PatientRow, error)
	PatientsUpdatedSince(ctx context.Context, since time.Time) ([]PatientRow, error)
	HighRiskPatients(ctx context.Context) ([]PatientRow, error)
	// OrderedItems flattens the orders for a day and meal period into item
	// occurrences: orders by creation, then entree, sides, dessert, drinks
	// and condiments in array order.
	OrderedItems(ctx context.Context, day, mealPeriod string) ([]OrderedItem, error)
}
