package menu

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nutritrack/dietary/internal/domain/catalog"
	"github.com/nutritrack/dietary/internal/platform/apperr"
	"github.com/nutritrack/dietary/internal/platform/db"
	"github.com/nutritrack/dietary/pkg/expand"
)

const msgNoMenu = "No menu was found with that ID"

// Expansions accepted on menu reads.
var Expansions = []string{"items", "diets"}

// Catalog is the slice of the catalog service menus depend on.
type Catalog interface {
	ResolveDiets(ctx context.Context, ids []uuid.UUID) ([]*catalog.Diet, error)
	GetMenuItems(ctx context.Context, ids []uuid.UUID) ([]*catalog.MenuItem, error)
}

// slotCategory is the item category each menu slot accepts.
var slotCategory = []struct {
	name     string
	category string
	ids      func(it Items) []uuid.UUID
}{
	{"entree", "entree", func(it Items) []uuid.UUID {
		if it.EntreeID == nil {
			return nil
		}
		return []uuid.UUID{*it.EntreeID}
	}},
	{"sides", "side", func(it Items) []uuid.UUID { return it.SideIDs }},
	{"dessert", "dessert", func(it Items) []uuid.UUID { return it.DessertIDs }},
	{"drinks", "drink", func(it Items) []uuid.UUID { return it.DrinkIDs }},
	{"condiments", "condiment", func(it Items) []uuid.UUID { return it.CondimentIDs }},
}

type Service struct {
	repo    Repository
	catalog Catalog
}

func NewService(repo Repository, c Catalog) *Service {
	return &Service{repo: repo, catalog: c}
}

// prepareMenu is the pre-write step for menus. Every item must exist, sit in
// a slot matching its category, and be allowed on every diet the menu
// serves, so orders filled from it need no further diet check.
func (s *Service) prepareMenu(ctx context.Context, m *Menu) error {
	m.DietIDs = uniqueIDs(m.DietIDs)
	m.Items.Normalize()
	if err := m.Validate(); err != nil {
		return err
	}
	diets, err := s.catalog.ResolveDiets(ctx, m.DietIDs)
	if err != nil {
		return err
	}

	ids := uniqueIDs(m.IDs())
	items, err := s.catalog.GetMenuItems(ctx, ids)
	if err != nil {
		return err
	}
	if len(items) != len(ids) {
		return apperr.New(apperr.MenuItemNotFound, "One or more menu item(s) was not found")
	}
	byID := make(map[uuid.UUID]*catalog.MenuItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	for _, slot := range slotCategory {
		for _, id := range slot.ids(m.Items) {
			if it := byID[id]; it.Category != slot.category {
				return apperr.Validationf("%s is a %s and cannot be served as %s", it.Name, it.Category, slot.name)
			}
		}
	}
	for _, d := range diets {
		for _, it := range items {
			if !it.AvailableFor(d.Name) {
				return apperr.New(apperr.DietIncompatible, "%s is not allowed on the %s diet", it.Name, d.Name)
			}
		}
	}
	return nil
}

func (s *Service) mapWriteError(err error) error {
	if db.IsUniqueViolation(err) {
		return apperr.Wrap(err, apperr.Conflict, "A menu already exists for one of these diets on that day, meal period and option")
	}
	return db.MapError(err, msgNoMenu)
}

func (s *Service) CreateMenu(ctx context.Context, m *Menu) error {
	if err := s.prepareMenu(ctx, m); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return s.mapWriteError(err)
	}
	return nil
}

func (s *Service) GetMenu(ctx context.Context, id uuid.UUID, exp expand.Set) (*Menu, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, db.MapError(err, msgNoMenu)
	}
	if err := s.expand(ctx, []*Menu{m}, exp); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) UpdateMenu(ctx context.Context, m *Menu) error {
	if err := s.prepareMenu(ctx, m); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, m); err != nil {
		return s.mapWriteError(err)
	}
	return nil
}

func (s *Service) DeleteMenu(ctx context.Context, id uuid.UUID) error {
	return db.MapDeleteError(s.repo.Delete(ctx, id), msgNoMenu, "menu")
}

func (s *Service) ListMenus(ctx context.Context, f Filter, limit, offset int, exp expand.Set) ([]*Menu, int, error) {
	menus, total, err := s.repo.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if err := s.expand(ctx, menus, exp); err != nil {
		return nil, 0, err
	}
	return menus, total, nil
}

// FindDefault returns the preset menu used to fill an order that names no
// items. With no option given Hot is preferred, then Cold.
func (s *Service) FindDefault(ctx context.Context, dietID uuid.UUID, day, mealPeriod, option string) (*Menu, error) {
	m, err := s.repo.FindDefault(ctx, dietID, day, mealPeriod, option)
	if err != nil {
		if db.IsNoRows(err) {
			desc := mealPeriod
			if option != "" {
				desc = option + " " + mealPeriod
			}
			return nil, apperr.New(apperr.NoDefaultMenu,
				"No default menu was found for the patient's diet on %s (%s)", day, desc)
		}
		return nil, fmt.Errorf("find default menu: %w", err)
	}
	return m, nil
}

func (s *Service) expand(ctx context.Context, menus []*Menu, exp expand.Set) error {
	if exp.Empty() || len(menus) == 0 {
		return nil
	}
	if exp.Has("diets") {
		var ids []uuid.UUID
		for _, m := range menus {
			ids = append(ids, m.DietIDs...)
		}
		diets, err := s.catalog.ResolveDiets(ctx, uniqueIDs(ids))
		if err != nil && !apperr.IsKind(err, apperr.ReferenceNotFound) {
			return err
		}
		byID := make(map[uuid.UUID]*catalog.Diet, len(diets))
		for _, d := range diets {
			byID[d.ID] = d
		}
		for _, m := range menus {
			m.Diets = []*catalog.Diet{}
			for _, id := range m.DietIDs {
				if d, ok := byID[id]; ok {
					m.Diets = append(m.Diets, d)
				}
			}
		}
	}
	if exp.Has("items") {
		var ids []uuid.UUID
		for _, m := range menus {
			ids = append(ids, m.IDs()...)
		}
		items, err := s.catalog.GetMenuItems(ctx, uniqueIDs(ids))
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*catalog.MenuItem, len(items))
		for _, it := range items {
			byID[it.ID] = it
		}
		for _, m := range menus {
			m.ResolvedItems = []*catalog.MenuItem{}
			for _, id := range m.IDs() {
				if it, ok := byID[id]; ok {
					m.ResolvedItems = append(m.ResolvedItems, it)
				}
			}
		}
	}
	return nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != uuid.Nil && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
