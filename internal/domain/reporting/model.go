// Package reporting answers the kitchen's operational questions over the
// current patient and order state. Repositories return flat rows; the
// aggregations below are plain functions over them.
package reporting

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	statusEating = "Eating"
	statusNPO    = "NPO"
)

// PatientRow is one patient as the reports see them.
type PatientRow struct {
	UnitName       string
	RoomNumber     int
	FirstName      string
	LastName       string
	DietName       string
	Status         string
	IsHighRisk     bool
	KnownAllergies []string
	Supplements    *string
	UpdatedAt      time.Time
}

// OrderedItem is one item occurrence on an order, in order and slot order.
type OrderedItem struct {
	OrderID        uuid.UUID
	PatientStatus  string
	MenuItemID     uuid.UUID
	Name           string
	Category       string
	PortionSize    float64
	PortionUnit    string
	ProductionArea string
}

type UnitCount struct {
	Unit        string `json:"unit"`
	NumPatients int    `json:"num_patients"`
}

type Census struct {
	NPO    []UnitCount `json:"npo"`
	Eating []UnitCount `json:"eating"`
}

type UnitUpdates struct {
	Unit        string   `json:"unit"`
	NumPatients int      `json:"num_patients"`
	Rooms       []string `json:"rooms"`
}

type RiskEntry struct {
	Unit     string   `json:"unit"`
	Patients []string `json:"patients"`
}

type PrepItem struct {
	MenuItemID  uuid.UUID `json:"menu_item_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	PortionSize float64   `json:"portion_size"`
	PortionUnit string    `json:"portion_unit"`
	Count       int       `json:"count"`
}

// byUnit groups rows by unit name, units sorted by name, row order kept
// within each unit.
func byUnit(rows []PatientRow) ([]string, map[string][]PatientRow) {
	groups := map[string][]PatientRow{}
	var units []string
	for _, r := range rows {
		if _, ok := groups[r.UnitName]; !ok {
			units = append(units, r.UnitName)
		}
		groups[r.UnitName] = append(groups[r.UnitName], r)
	}
	sort.Strings(units)
	return units, groups
}

// BuildCensus counts, per unit, the patients not Eating and the patients
// not NPO. Every unit with a patient is listed in both, possibly with zero.
func BuildCensus(rows []PatientRow) Census {
	units, groups := byUnit(rows)
	c := Census{NPO: []UnitCount{}, Eating: []UnitCount{}}
	for _, u := range units {
		npo, eating := 0, 0
		for _, r := range groups[u] {
			if r.Status != statusEating {
				npo++
			}
			if r.Status != statusNPO {
				eating++
			}
		}
		c.NPO = append(c.NPO, UnitCount{Unit: u, NumPatients: npo})
		c.Eating = append(c.Eating, UnitCount{Unit: u, NumPatients: eating})
	}
	return c
}

// BuildPatientUpdates lists, per unit, every patient updated at or after
// since as "<room> <first> <last> <diet>".
func BuildPatientUpdates(rows []PatientRow, since time.Time) []UnitUpdates {
	var recent []PatientRow
	for _, r := range rows {
		if !r.UpdatedAt.Before(since) {
			recent = append(recent, r)
		}
	}
	units, groups := byUnit(recent)
	out := make([]UnitUpdates, 0, len(units))
	for _, u := range units {
		entry := UnitUpdates{Unit: u, Rooms: []string{}}
		for _, r := range groups[u] {
			entry.Rooms = append(entry.Rooms, joinParts(strconv.Itoa(r.RoomNumber), r.FirstName, r.LastName, r.DietName))
		}
		entry.NumPatients = len(entry.Rooms)
		out = append(out, entry)
	}
	return out
}

// BuildRiskLog summarizes high-risk patients per unit. The diet is named
// only for texture-modified diets.
func BuildRiskLog(rows []PatientRow) []RiskEntry {
	var risky []PatientRow
	for _, r := range rows {
		if r.IsHighRisk {
			risky = append(risky, r)
		}
	}
	units, groups := byUnit(risky)
	out := make([]RiskEntry, 0, len(units))
	for _, u := range units {
		entry := RiskEntry{Unit: u, Patients: []string{}}
		for _, r := range groups[u] {
			entry.Patients = append(entry.Patients, riskSummary(r))
		}
		out = append(out, entry)
	}
	return out
}

func riskSummary(r PatientRow) string {
	supplements := ""
	if r.Supplements != nil {
		supplements = *r.Supplements
	}
	diet := ""
	if r.DietName == "Puree" || r.DietName == "Mechanical" {
		diet = r.DietName
	}
	return joinParts(strconv.Itoa(r.RoomNumber), r.FirstName, r.LastName,
		strings.Join(r.KnownAllergies, ", "), supplements, diet)
}

func joinParts(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// BuildPrepList counts the items a production area has to prepare: items
// of Eating patients only, made in area, one row per item name in order of
// first appearance.
func BuildPrepList(items []OrderedItem, area string) []PrepItem {
	out := []PrepItem{}
	index := map[string]int{}
	for _, it := range items {
		if it.PatientStatus != statusEating || it.ProductionArea != area {
			continue
		}
		if i, ok := index[it.Name]; ok {
			out[i].Count++
			continue
		}
		index[it.Name] = len(out)
		out = append(out, PrepItem{
			MenuItemID:  it.MenuItemID,
			Name:        it.Name,
			Category:    it.Category,
			PortionSize: it.PortionSize,
			PortionUnit: it.PortionUnit,
			Count:       1,
		})
	}
	return out
}
