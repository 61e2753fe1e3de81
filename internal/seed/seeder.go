package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nutritrack/dietary/internal/domain/catalog"
	"github.com/nutritrack/dietary/internal/domain/facility"
	"github.com/nutritrack/dietary/internal/domain/identity"
	"github.com/nutritrack/dietary/internal/domain/menu"
	"github.com/nutritrack/dietary/internal/domain/patient"
)

type CatalogWriter interface {
	CreateDiet(ctx context.Context, d *catalog.Diet) error
	CreateProductionArea(ctx context.Context, a *catalog.ProductionArea) error
	CreateMenuItem(ctx context.Context, m *catalog.MenuItem) error
}

type FacilityWriter interface {
	CreateUnit(ctx context.Context, u *facility.Unit) error
	CreateRoom(ctx context.Context, r *facility.Room) error
}

type MenuWriter interface {
	CreateMenu(ctx context.Context, m *menu.Menu) error
}

type UserWriter interface {
	Register(ctx context.Context, in identity.RegisterInput) (*identity.Session, error)
	AdminUpdate(ctx context.Context, id uuid.UUID, in identity.AdminInput) (*identity.User, error)
}

type PatientWriter interface {
	CreatePatient(ctx context.Context, p *patient.Patient) error
}

// Result counts what a run created.
type Result struct {
	Diets           int           `json:"diets"`
	ProductionAreas int           `json:"production_areas"`
	Units           int           `json:"units"`
	Rooms           int           `json:"rooms"`
	MenuItems       int           `json:"menu_items"`
	Menus           int           `json:"menus"`
	Users           int           `json:"users"`
	Patients        int           `json:"patients"`
	Duration        time.Duration `json:"duration"`
}

// Seeder writes a seed File through the domain services, so every record
// passes the same validation as an API write.
type Seeder struct {
	catalog  CatalogWriter
	facility FacilityWriter
	menus    MenuWriter
	users    UserWriter
	patients PatientWriter
	logger   zerolog.Logger

	diets map[string]uuid.UUID
	areas map[string]uuid.UUID
	items map[string]uuid.UUID
	rooms []uuid.UUID
}

func NewSeeder(c CatalogWriter, f FacilityWriter, m MenuWriter, u UserWriter, p PatientWriter, logger zerolog.Logger) *Seeder {
	return &Seeder{
		catalog:  c,
		facility: f,
		menus:    m,
		users:    u,
		patients: p,
		logger:   logger.With().Str("component", "seed").Logger(),
	}
}

// Run creates everything in f in dependency order and stops at the first
// failure.
func (s *Seeder) Run(ctx context.Context, f *File) (*Result, error) {
	start := time.Now()
	s.diets = make(map[string]uuid.UUID)
	s.areas = make(map[string]uuid.UUID)
	s.items = make(map[string]uuid.UUID)
	s.rooms = nil

	res := &Result{}
	steps := []struct {
		name string
		run  func(context.Context, *File, *Result) error
	}{
		{"diets", s.seedDiets},
		{"production areas", s.seedAreas},
		{"units", s.seedUnits},
		{"menu items", s.seedMenuItems},
		{"menus", s.seedMenus},
		{"users", s.seedUsers},
		{"demo patients", s.seedPatients},
	}
	for _, step := range steps {
		if err := step.run(ctx, f, res); err != nil {
			return res, fmt.Errorf("seed %s: %w", step.name, err)
		}
	}
	res.Duration = time.Since(start)
	s.logger.Info().
		Int("diets", res.Diets).
		Int("menu_items", res.MenuItems).
		Int("menus", res.Menus).
		Int("rooms", res.Rooms).
		Int("users", res.Users).
		Int("patients", res.Patients).
		Dur("duration", res.Duration).
		Msg("seed complete")
	return res, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *Seeder) seedDiets(ctx context.Context, f *File, res *Result) error {
	for _, spec := range f.Diets {
		d := &catalog.Diet{
			Name:          spec.Name,
			Description:   optional(spec.Description),
			Calories:      spec.Calories,
			SodiumLimitMg: spec.SodiumMg,
			CarbsLimitG:   spec.CarbsG,
		}
		if err := s.catalog.CreateDiet(ctx, d); err != nil {
			return fmt.Errorf("%q: %w", spec.Name, err)
		}
		s.diets[spec.Name] = d.ID
		res.Diets++
	}
	return nil
}

func (s *Seeder) seedAreas(ctx context.Context, f *File, res *Result) error {
	for _, spec := range f.ProductionAreas {
		a := &catalog.ProductionArea{Name: spec.Name, Description: optional(spec.Description)}
		if err := s.catalog.CreateProductionArea(ctx, a); err != nil {
			return fmt.Errorf("%q: %w", spec.Name, err)
		}
		s.areas[spec.Name] = a.ID
		res.ProductionAreas++
	}
	return nil
}

func (s *Seeder) seedUnits(ctx context.Context, f *File, res *Result) error {
	for _, spec := range f.Units {
		u := &facility.Unit{
			Name:           spec.Name,
			Description:    optional(spec.Description),
			RoomRangeStart: spec.RoomRangeStart,
			RoomRangeEnd:   spec.RoomRangeEnd,
		}
		if err := s.facility.CreateUnit(ctx, u); err != nil {
			return fmt.Errorf("%q: %w", spec.Name, err)
		}
		res.Units++
		for _, n := range spec.Rooms {
			r := &facility.Room{UnitID: u.ID, RoomNumber: n}
			if err := s.facility.CreateRoom(ctx, r); err != nil {
				return fmt.Errorf("%q room %d: %w", spec.Name, n, err)
			}
			s.rooms = append(s.rooms, r.ID)
			res.Rooms++
		}
	}
	return nil
}

func lookup(kind string, ids map[string]uuid.UUID, names []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(names))
	for _, n := range names {
		id, ok := ids[n]
		if !ok {
			return nil, fmt.Errorf("unknown %s %q", kind, n)
		}
		out = append(out, id)
	}
	return out, nil
}

func (s *Seeder) seedMenuItems(ctx context.Context, f *File, res *Result) error {
	for _, spec := range f.MenuItems {
		area, ok := s.areas[spec.ProductionArea]
		if !ok {
			return fmt.Errorf("%q: unknown production area %q", spec.Name, spec.ProductionArea)
		}
		diets, err := lookup("diet", s.diets, spec.Diets)
		if err != nil {
			return fmt.Errorf("%q: %w", spec.Name, err)
		}
		m := &catalog.MenuItem{
			Name:             spec.Name,
			Description:      spec.Description,
			Category:         spec.Category,
			ProductionAreaID: area,
			DietIDs:          diets,
			IsLiquid:         spec.IsLiquid,
			PortionSize:      spec.PortionSize,
			PortionUnit:      spec.PortionUnit,
			CarbsG:           spec.CarbsG,
			SodiumMg:         spec.SodiumMg,
			MajorAllergens:   spec.Allergens,
		}
		if err := s.catalog.CreateMenuItem(ctx, m); err != nil {
			return fmt.Errorf("%q: %w", spec.Name, err)
		}
		s.items[spec.Name] = m.ID
		res.MenuItems++
	}
	return nil
}

func (s *Seeder) seedMenus(ctx context.Context, f *File, res *Result) error {
	for _, spec := range f.Menus {
		label := fmt.Sprintf("%s %s %s", spec.Day, spec.MealPeriod, spec.Option)
		m := &menu.Menu{Day: spec.Day, MealPeriod: spec.MealPeriod, Option: spec.Option}

		var err error
		if m.DietIDs, err = lookup("diet", s.diets, spec.Diets); err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		if spec.Entree != "" {
			id, ok := s.items[spec.Entree]
			if !ok {
				return fmt.Errorf("%s: unknown menu item %q", label, spec.Entree)
			}
			m.EntreeID = &id
		}
		slots := []struct {
			names []string
			dst   *[]uuid.UUID
		}{
			{spec.Sides, &m.SideIDs},
			{spec.Desserts, &m.DessertIDs},
			{spec.Drinks, &m.DrinkIDs},
			{spec.Condiments, &m.CondimentIDs},
		}
		for _, slot := range slots {
			if *slot.dst, err = lookup("menu item", s.items, slot.names); err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}
		}
		if err := s.menus.CreateMenu(ctx, m); err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		res.Menus++
	}
	return nil
}

func (s *Seeder) seedUsers(ctx context.Context, f *File, res *Result) error {
	for _, spec := range f.Users {
		sess, err := s.users.Register(ctx, identity.RegisterInput{
			Username:        spec.Username,
			Email:           spec.Email,
			Password:        spec.Password,
			PasswordConfirm: spec.Password,
		})
		if err != nil {
			return fmt.Errorf("%q: %w", spec.Username, err)
		}
		if spec.Role != "" && spec.Role != sess.User.Role {
			role := spec.Role
			if _, err := s.users.AdminUpdate(ctx, sess.User.ID, identity.AdminInput{Role: &role}); err != nil {
				return fmt.Errorf("%q role: %w", spec.Username, err)
			}
		}
		res.Users++
	}
	return nil
}

// seedPatients admits up to DemoPatients generated patients, one per room.
func (s *Seeder) seedPatients(ctx context.Context, f *File, res *Result) error {
	if f.DemoPatients == 0 {
		return nil
	}
	if len(s.diets) == 0 {
		return fmt.Errorf("demo patients need at least one diet")
	}
	dietIDs := make([]uuid.UUID, 0, len(f.Diets))
	for _, spec := range f.Diets {
		dietIDs = append(dietIDs, s.diets[spec.Name])
	}

	n := f.DemoPatients
	if n > len(s.rooms) {
		s.logger.Warn().Int("requested", n).Int("rooms", len(s.rooms)).Msg("fewer rooms than demo patients")
		n = len(s.rooms)
	}
	gen := NewGenerator(f.Seed)
	for i := 0; i < n; i++ {
		p := gen.Patient(s.rooms[i], dietIDs)
		if err := s.patients.CreatePatient(ctx, p); err != nil {
			return fmt.Errorf("patient %d: %w", i+1, err)
		}
		res.Patients++
	}
	return nil
}
