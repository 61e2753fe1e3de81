package ordering

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nutritrack/dietary/internal/domain/catalog"
	"github.com/nutritrack/dietary/internal/platform/apperr"
)

// 2024-01-01 was a Monday.
var monday = time.Date(2024, time.January, 1, 10, 30, 0, 0, time.UTC)

func clockAt(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestResolveOrderDay_Window(t *testing.T) {
	days := []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
	for offset := 0; offset < 7; offset++ {
		now := monday.AddDate(0, 0, offset)
		eng := NewEngine(nil, time.UTC).WithClock(clockAt(now))
		t.Run(now.Weekday().String(), func(t *testing.T) {
			for _, day := range days {
				ahead := (int(weekdayIndex(day)) - int(now.Weekday()) + 7) % 7
				date, err := eng.ResolveOrderDay(day)
				if ahead <= 2 {
					if err != nil {
						t.Fatalf("%s from %s: unexpected error %v", day, now.Weekday(), err)
					}
					want := time.Date(now.Year(), now.Month(), now.Day()+ahead, 0, 0, 0, 0, time.UTC)
					if !date.Equal(want) {
						t.Errorf("%s from %s: got %s, want %s", day, now.Weekday(), date, want)
					}
					continue
				}
				if !apperr.IsKind(err, apperr.InvalidOrderDay) {
					t.Errorf("%s from %s: expected InvalidOrderDay, got %v", day, now.Weekday(), err)
				}
			}
		})
	}
}

func weekdayIndex(name string) time.Weekday {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if d.String() == name {
			return d
		}
	}
	return -1
}

func TestResolveOrderDay_WrapsPastSaturday(t *testing.T) {
	saturday := time.Date(2024, time.January, 6, 23, 59, 0, 0, time.UTC)
	eng := NewEngine(nil, time.UTC).WithClock(clockAt(saturday))

	date, err := eng.ResolveOrderDay("Monday")
	if err != nil {
		t.Fatalf("Monday from Saturday: %v", err)
	}
	if date.Day() != 8 || date.Month() != time.January {
		t.Errorf("expected 2024-01-08, got %s", date)
	}
}

func TestResolveOrderDay_RejectsFridayFromMonday(t *testing.T) {
	eng := NewEngine(nil, time.UTC).WithClock(clockAt(monday))
	_, err := eng.ResolveOrderDay("Friday")
	if !apperr.IsKind(err, apperr.InvalidOrderDay) {
		t.Fatalf("expected InvalidOrderDay, got %v", err)
	}
	if _, err := eng.ResolveOrderDay("monday"); err == nil {
		t.Error("expected day names to be case sensitive")
	}
}

func TestResolveOrderDay_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	// 02:00 UTC Tuesday is still Monday evening at UTC-5.
	now := time.Date(2024, time.January, 2, 2, 0, 0, 0, time.UTC)
	eng := NewEngine(nil, loc).WithClock(clockAt(now))

	date, err := eng.ResolveOrderDay("Monday")
	if err != nil {
		t.Fatalf("expected Monday to be today in %s: %v", loc, err)
	}
	if date.Location() != loc || date.Day() != 1 {
		t.Errorf("unexpected date %s", date)
	}
}

func TestMealTime(t *testing.T) {
	eng := NewEngine(nil, time.UTC)
	date := time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC)
	for period, hour := range map[string]int{"Breakfast": 7, "Lunch": 12, "Dinner": 17} {
		got := eng.MealTime(period, date)
		if got.Hour() != hour || got.Day() != 3 || got.Minute() != 0 {
			t.Errorf("%s: got %s", period, got)
		}
	}
}

func TestCollectItemIDs(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	sel := Selection{SupplementIDs: []uuid.UUID{c, a}}
	sel.EntreeID = &a
	sel.SideIDs = []uuid.UUID{b, b}
	sel.DrinkIDs = []uuid.UUID{uuid.Nil}

	ids := CollectItemIDs(sel)
	if len(ids) != 3 || ids[0] != a || ids[1] != b || ids[2] != c {
		t.Errorf("expected [a b c], got %v", ids)
	}
	if got := CollectItemIDs(Selection{}); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

type itemMap map[uuid.UUID]*catalog.MenuItem

func (m itemMap) GetMenuItems(_ context.Context, ids []uuid.UUID) ([]*catalog.MenuItem, error) {
	var out []*catalog.MenuItem
	for _, id := range ids {
		if it, ok := m[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func TestValidateItems(t *testing.T) {
	toast := &catalog.MenuItem{ID: uuid.New(), Name: "Toast", DietNames: []string{"Regular"}}
	broth := &catalog.MenuItem{ID: uuid.New(), Name: "Broth", DietNames: []string{"Regular", "Clear Liquid"}}
	eng := NewEngine(itemMap{toast.ID: toast, broth.ID: broth}, time.UTC)
	ctx := context.Background()

	items, err := eng.ValidateItems(ctx, []uuid.UUID{toast.ID, broth.ID}, "Regular")
	if err != nil || len(items) != 2 {
		t.Fatalf("expected both items, got %v, %v", items, err)
	}

	_, err = eng.ValidateItems(ctx, []uuid.UUID{toast.ID, broth.ID}, "Clear Liquid")
	if !apperr.IsKind(err, apperr.DietIncompatible) {
		t.Errorf("expected DietIncompatible, got %v", err)
	}

	_, err = eng.ValidateItems(ctx, []uuid.UUID{toast.ID, uuid.New()}, "Regular")
	if !apperr.IsKind(err, apperr.MenuItemNotFound) {
		t.Errorf("expected MenuItemNotFound, got %v", err)
	}

	items, err = eng.ValidateItems(ctx, nil, "Regular")
	if err != nil || items == nil || len(items) != 0 {
		t.Errorf("expected empty result for no ids, got %v, %v", items, err)
	}
}

func TestCheckAllergens(t *testing.T) {
	toast := &catalog.MenuItem{Name: "Toast", MajorAllergens: []string{"wheat", "soy"}}
	satay := &catalog.MenuItem{Name: "Chicken Satay", MajorAllergens: []string{"peanuts"}}
	water := &catalog.MenuItem{Name: "Water", MajorAllergens: []string{"none"}}

	tests := []struct {
		name  string
		items []*catalog.MenuItem
		known []string
		want  []string
	}{
		{"no match", []*catalog.MenuItem{toast}, []string{"peanuts"}, []string{}},
		{"no known allergies", []*catalog.MenuItem{toast, satay}, nil, []string{}},
		{"single match", []*catalog.MenuItem{toast, satay, water}, []string{"peanuts"}, []string{"Chicken Satay"}},
		{"case insensitive", []*catalog.MenuItem{toast}, []string{"Wheat"}, []string{"Toast"}},
		{"item listed once", []*catalog.MenuItem{toast, toast}, []string{"wheat", "soy"}, []string{"Toast"}},
		{"several", []*catalog.MenuItem{toast, satay}, []string{"soy", "peanuts"}, []string{"Toast", "Chicken Satay"}},
		{"none marker on patient", []*catalog.MenuItem{toast, water}, []string{"none"}, []string{}},
		{"none marker beside real allergy", []*catalog.MenuItem{water, satay}, []string{"None", "peanuts"}, []string{"Chicken Satay"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckAllergens(tt.items, tt.known)
			if got == nil {
				t.Fatal("expected a non-nil list")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestPrepare(t *testing.T) {
	toast := &catalog.MenuItem{ID: uuid.New(), Name: "Toast", DietNames: []string{"Regular"}, MajorAllergens: []string{"wheat"}}
	eng := NewEngine(itemMap{toast.ID: toast}, time.UTC).WithClock(clockAt(monday))
	pc := PatientContext{PatientID: uuid.New(), DietName: "Regular", KnownAllergies: []string{"peanuts"}}

	o := &Order{Day: "Tuesday", MealPeriod: "Breakfast", Selection: Selection{SupplementIDs: []uuid.UUID{}}}
	o.EntreeID = &toast.ID
	if err := eng.Prepare(context.Background(), pc, o); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	want := time.Date(2024, time.January, 2, 7, 0, 0, 0, time.UTC)
	if !o.MealTime.Equal(want) || o.MealDate.Day() != 2 {
		t.Errorf("expected meal time %s, got %s", want, o.MealTime)
	}

	pc.KnownAllergies = []string{"wheat"}
	err := eng.Prepare(context.Background(), pc, o)
	e, ok := apperr.As(err)
	if !ok || e.Kind != apperr.AllergenConflict || len(e.Items) != 1 || e.Items[0] != "Toast" {
		t.Fatalf("expected AllergenConflict naming Toast, got %v", err)
	}
}
