// Package seed loads reference data and demo patients into a fresh
// database from a YAML file.
package seed

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML seed document. Cross references use names, not IDs.
type File struct {
	Seed            int64          `yaml:"seed"`
	DemoPatients    int            `yaml:"demo_patients"`
	Diets           []DietSpec     `yaml:"diets"`
	ProductionAreas []AreaSpec     `yaml:"production_areas"`
	Units           []UnitSpec     `yaml:"units"`
	MenuItems       []MenuItemSpec `yaml:"menu_items"`
	Menus           []MenuSpec     `yaml:"menus"`
	Users           []UserSpec     `yaml:"users"`
}

type DietSpec struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Calories    *int   `yaml:"calories"`
	SodiumMg    *int   `yaml:"sodium_limit_mg"`
	CarbsG      *int   `yaml:"carbs_limit_g"`
}

type AreaSpec struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type UnitSpec struct {
	Name           string `yaml:"name"`
	Description    string `yaml:"description"`
	RoomRangeStart int    `yaml:"room_range_start"`
	RoomRangeEnd   int    `yaml:"room_range_end"`
	Rooms          []int  `yaml:"rooms"`
}

type MenuItemSpec struct {
	Name           string   `yaml:"name"`
	Description    string   `yaml:"description"`
	Category       string   `yaml:"category"`
	ProductionArea string   `yaml:"production_area"`
	Diets          []string `yaml:"diets"`
	IsLiquid       bool     `yaml:"is_liquid"`
	PortionSize    float64  `yaml:"portion_size"`
	PortionUnit    string   `yaml:"portion_unit"`
	CarbsG         int      `yaml:"carbs_g"`
	SodiumMg       int      `yaml:"sodium_mg"`
	Allergens      []string `yaml:"allergens"`
}

type MenuSpec struct {
	Day        string   `yaml:"day"`
	MealPeriod string   `yaml:"meal_period"`
	Option     string   `yaml:"option"`
	Diets      []string `yaml:"diets"`
	Entree     string   `yaml:"entree"`
	Sides      []string `yaml:"sides"`
	Desserts   []string `yaml:"desserts"`
	Drinks     []string `yaml:"drinks"`
	Condiments []string `yaml:"condiments"`
}

type UserSpec struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Role     string `yaml:"role"`
	Password string `yaml:"password"`
}

// Load decodes a seed document. Unknown keys are rejected so typos do not
// silently drop data.
func Load(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	if f.DemoPatients < 0 {
		return nil, fmt.Errorf("demo_patients cannot be negative")
	}
	return &f, nil
}

func LoadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer fh.Close()
	return Load(fh)
}
