package reporting

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }

func TestBuildCensus(t *testing.T) {
	rows := []PatientRow{
		{UnitName: "B", Status: "NPO"},
		{UnitName: "A", Status: "Eating"},
		{UnitName: "A", Status: "NPO"},
		{UnitName: "A", Status: "Eating"},
	}
	c := BuildCensus(rows)

	wantNPO := []UnitCount{{"A", 1}, {"B", 1}}
	wantEating := []UnitCount{{"A", 2}, {"B", 0}}
	if len(c.NPO) != 2 || c.NPO[0] != wantNPO[0] || c.NPO[1] != wantNPO[1] {
		t.Errorf("npo: got %+v, want %+v", c.NPO, wantNPO)
	}
	if len(c.Eating) != 2 || c.Eating[0] != wantEating[0] || c.Eating[1] != wantEating[1] {
		t.Errorf("eating: got %+v, want %+v", c.Eating, wantEating)
	}
}

func TestBuildCensus_Empty(t *testing.T) {
	c := BuildCensus(nil)
	if c.NPO == nil || c.Eating == nil || len(c.NPO)+len(c.Eating) != 0 {
		t.Errorf("expected empty non-nil lists, got %+v", c)
	}
}

func TestBuildPatientUpdates(t *testing.T) {
	now := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	since := now.Add(-30 * time.Minute)
	rows := []PatientRow{
		{UnitName: "4 West", RoomNumber: 101, FirstName: "Ada", LastName: "Lovelace", DietName: "Regular", UpdatedAt: now},
		{UnitName: "4 West", RoomNumber: 102, FirstName: "Alan", LastName: "Turing", DietName: "Puree", UpdatedAt: since},
		{UnitName: "5 East", RoomNumber: 501, FirstName: "Grace", LastName: "Hopper", DietName: "Regular", UpdatedAt: since.Add(-time.Second)},
	}
	got := BuildPatientUpdates(rows, since)
	if len(got) != 1 {
		t.Fatalf("expected one unit, got %+v", got)
	}
	if got[0].Unit != "4 West" || got[0].NumPatients != 2 {
		t.Errorf("unexpected entry %+v", got[0])
	}
	if got[0].Rooms[0] != "101 Ada Lovelace Regular" || got[0].Rooms[1] != "102 Alan Turing Puree" {
		t.Errorf("unexpected rooms %v", got[0].Rooms)
	}
}

func TestBuildRiskLog(t *testing.T) {
	rows := []PatientRow{
		{UnitName: "4 West", RoomNumber: 101, FirstName: "Ada", LastName: "Lovelace", DietName: "Puree",
			IsHighRisk: true, KnownAllergies: []string{"peanuts", "milk"}, Supplements: strPtr("Ensure BID")},
		{UnitName: "4 West", RoomNumber: 102, FirstName: "Alan", LastName: "Turing", DietName: "Regular",
			IsHighRisk: true, KnownAllergies: []string{}},
		{UnitName: "4 West", RoomNumber: 103, FirstName: "Ida", LastName: "Noble", DietName: "Mechanical",
			IsHighRisk: true},
		{UnitName: "5 East", RoomNumber: 501, FirstName: "Grace", LastName: "Hopper", DietName: "Puree"},
	}
	got := BuildRiskLog(rows)
	if len(got) != 1 || got[0].Unit != "4 West" {
		t.Fatalf("expected only 4 West, got %+v", got)
	}
	want := []string{
		"101 Ada Lovelace peanuts, milk Ensure BID Puree",
		"102 Alan Turing",
		"103 Ida Noble Mechanical",
	}
	for i, w := range want {
		if got[0].Patients[i] != w {
			t.Errorf("patient %d: got %q, want %q", i, got[0].Patients[i], w)
		}
	}
}

func TestBuildPrepList(t *testing.T) {
	burger, fries, salad := uuid.New(), uuid.New(), uuid.New()
	item := func(status, name string, id uuid.UUID, area string) OrderedItem {
		return OrderedItem{PatientStatus: status, MenuItemID: id, Name: name, Category: "side",
			PortionSize: 1, PortionUnit: "each", ProductionArea: area}
	}
	items := []OrderedItem{
		item("Eating", "Fries", fries, "Grill"),
		item("Eating", "Burger", burger, "Grill"),
		item("NPO", "Burger", burger, "Grill"),
		item("Eating", "Salad", salad, "Cold Line"),
		item("Eating", "Fries", fries, "Grill"),
		item("Eating", "Burger", burger, "Grill"),
		item("Eating", "Fries", fries, "Grill"),
	}
	got := BuildPrepList(items, "Grill")
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %+v", got)
	}
	if got[0].Name != "Fries" || got[0].Count != 3 || got[0].MenuItemID != fries {
		t.Errorf("unexpected first row %+v", got[0])
	}
	if got[1].Name != "Burger" || got[1].Count != 2 {
		t.Errorf("unexpected second row %+v", got[1])
	}

	if empty := BuildPrepList(items, "Bakery"); empty == nil || len(empty) != 0 {
		t.Errorf("expected an empty list, got %v", empty)
	}
}

func TestBuildPrepList_SumMatchesEatingOccurrences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	names := []string{"Burger", "Fries", "Salad", "Soup", "Pudding"}
	areas := []string{"Grill", "Cold Line"}
	statuses := []string{"Eating", "NPO"}

	for trial := 0; trial < 50; trial++ {
		var items []OrderedItem
		want := 0
		n := rng.Intn(40)
		for i := 0; i < n; i++ {
			it := OrderedItem{
				Name:           names[rng.Intn(len(names))],
				ProductionArea: areas[rng.Intn(len(areas))],
				PatientStatus:  statuses[rng.Intn(len(statuses))],
			}
			if it.PatientStatus == "Eating" && it.ProductionArea == "Grill" {
				want++
			}
			items = append(items, it)
		}
		sum := 0
		seen := map[string]bool{}
		for _, row := range BuildPrepList(items, "Grill") {
			if seen[row.Name] {
				t.Fatalf("trial %d: %s listed twice", trial, row.Name)
			}
			seen[row.Name] = true
			sum += row.Count
		}
		if sum != want {
			t.Fatalf("trial %d: counts sum to %d, want %d", trial, sum, want)
		}
	}
}
