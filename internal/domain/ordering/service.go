package ordering

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nutritrack/dietary/internal/domain/catalog"
	"github.com/nutritrack/dietary/internal/domain/menu"
	"github.com/nutritrack/dietary/internal/platform/apperr"
	"github.com/nutritrack/dietary/internal/platform/db"
	"github.com/nutritrack/dietary/internal/platform/events"
	"github.com/nutritrack/dietary/pkg/expand"
)

const msgNoOrder = "No patient order was found with that ID"

// Expansions accepted on order reads.
var Expansions = []string{"items", "patient"}

// PatientResolver builds the validation context for a patient. A patient
// that does not exist is a ReferenceNotFound error.
type PatientResolver interface {
	ResolvePatient(ctx context.Context, id uuid.UUID) (*PatientContext, error)
}

// DefaultMenuFinder finds the preset menu for an order that names no items.
type DefaultMenuFinder interface {
	FindDefault(ctx context.Context, dietID uuid.UUID, day, mealPeriod, option string) (*menu.Menu, error)
}

// Catalog is what orders read from the menu item catalog.
type Catalog interface {
	MenuItemLookup
	ListMenuItems(ctx context.Context, f catalog.ItemFilter, limit, offset int, exp expand.Set) ([]*catalog.MenuItem, int, error)
}

type Service struct {
	engine    *Engine
	orders    Repository
	patients  PatientResolver
	menus     DefaultMenuFinder
	catalog   Catalog
	publisher events.Publisher
}

func NewService(engine *Engine, orders Repository, patients PatientResolver, menus DefaultMenuFinder, c Catalog, publisher events.Publisher) *Service {
	return &Service{
		engine:    engine,
		orders:    orders,
		patients:  patients,
		menus:     menus,
		catalog:   c,
		publisher: events.OrNoop(publisher),
	}
}

// CreateOrder places an order. With explicit items every item is checked
// against the patient's diet and allergies; with none the order is filled
// from the preset menu for the patient's diet. Nothing is stored unless
// every check passes.
func (s *Service) CreateOrder(ctx context.Context, req CreateRequest) (*Order, error) {
	o := &Order{
		PatientID:  req.PatientID,
		Day:        req.Day,
		MealPeriod: req.MealPeriod,
		Selection:  req.Selection,
		Comments:   req.Comments,
	}
	if req.Option != "" {
		opt := req.Option
		o.Option = &opt
	}
	if err := o.validateFields(); err != nil {
		return nil, err
	}
	o.Selection.Normalize()

	pc, err := s.patients.ResolvePatient(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}

	if o.Selection.Empty() {
		err = s.fillFromMenu(ctx, *pc, o)
	} else {
		err = s.engine.Prepare(ctx, *pc, o)
	}
	if err != nil {
		return nil, err
	}

	o.CreatedAt = s.engine.Now()
	o.ExpiresAt = o.CreatedAt.Add(OrderLifetime)
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, s.mapWriteError(err)
	}
	s.publish(ctx, events.OrderCreated, o)
	return o, nil
}

// fillFromMenu copies the preset menu's items into o. The menu's items were
// checked against its diets when it was saved, so only allergies are
// screened here.
func (s *Service) fillFromMenu(ctx context.Context, pc PatientContext, o *Order) error {
	date, err := s.engine.ResolveOrderDay(o.Day)
	if err != nil {
		return err
	}
	option := ""
	if o.Option != nil {
		option = *o.Option
	}
	m, err := s.menus.FindDefault(ctx, pc.DietID, o.Day, o.MealPeriod, option)
	if err != nil {
		return err
	}

	o.Selection = Selection{Items: m.Items, SupplementIDs: []uuid.UUID{}}
	o.Selection.Normalize()
	o.Option = &m.Option
	o.MealDate = date
	o.MealTime = s.engine.MealTime(o.MealPeriod, date)

	items, err := s.catalog.GetMenuItems(ctx, CollectItemIDs(o.Selection))
	if err != nil {
		return fmt.Errorf("load default menu items: %w", err)
	}
	return s.engine.screen(items, pc)
}

func (s *Service) mapWriteError(err error) error {
	if db.IsUniqueViolation(err) {
		return apperr.Wrap(err, apperr.Conflict,
			"An order already exists for this patient, day and meal period")
	}
	if db.IsForeignKeyViolation(err) {
		return apperr.Wrap(err, apperr.ReferenceNotFound, "No patient was found with that ID")
	}
	return db.MapError(err, msgNoOrder)
}

// GetOrder loads an order. A non-nil patientID scopes the lookup to that
// patient's orders.
func (s *Service) GetOrder(ctx context.Context, patientID, id uuid.UUID, exp expand.Set) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, db.MapError(err, msgNoOrder)
	}
	if patientID != uuid.Nil && o.PatientID != patientID {
		return nil, apperr.NotFoundf(msgNoOrder)
	}
	if err := s.expand(ctx, []*Order{o}, exp); err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateOrder replaces an order's items, option and comments. Patient, day
// and meal period are fixed once placed. The new selection goes through the
// same diet and allergen checks as a new order.
func (s *Service) UpdateOrder(ctx context.Context, o *Order) error {
	existing, err := s.orders.GetByID(ctx, o.ID)
	if err != nil {
		return db.MapError(err, msgNoOrder)
	}
	if (o.PatientID != uuid.Nil && o.PatientID != existing.PatientID) ||
		(o.Day != "" && o.Day != existing.Day) ||
		(o.MealPeriod != "" && o.MealPeriod != existing.MealPeriod) {
		return apperr.Validationf("The patient, day and meal period of an order cannot be changed")
	}
	o.PatientID, o.Day, o.MealPeriod = existing.PatientID, existing.Day, existing.MealPeriod
	o.MealDate, o.MealTime = existing.MealDate, existing.MealTime
	o.CreatedAt, o.ExpiresAt = existing.CreatedAt, existing.ExpiresAt

	if err := o.validateFields(); err != nil {
		return err
	}
	o.Selection.Normalize()

	pc, err := s.patients.ResolvePatient(ctx, o.PatientID)
	if err != nil {
		return err
	}
	items, err := s.engine.ValidateItems(ctx, CollectItemIDs(o.Selection), pc.DietName)
	if err != nil {
		return err
	}
	if err := s.engine.screen(items, *pc); err != nil {
		return err
	}

	if err := s.orders.Update(ctx, o); err != nil {
		return s.mapWriteError(err)
	}
	s.publish(ctx, events.OrderUpdated, o)
	return nil
}

func (s *Service) DeleteOrder(ctx context.Context, patientID, id uuid.UUID) error {
	o, err := s.GetOrder(ctx, patientID, id, nil)
	if err != nil {
		return err
	}
	if err := s.orders.Delete(ctx, id); err != nil {
		return db.MapError(err, msgNoOrder)
	}
	s.publish(ctx, events.OrderDeleted, o)
	return nil
}

func (s *Service) ListOrders(ctx context.Context, f Filter, limit, offset int, exp expand.Set) ([]*Order, int, error) {
	orders, total, err := s.orders.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if err := s.expand(ctx, orders, exp); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *Service) ListPatientOrders(ctx context.Context, patientID uuid.UUID, limit, offset int, exp expand.Set) ([]*Order, int, error) {
	if _, err := s.patients.ResolvePatient(ctx, patientID); err != nil {
		return nil, 0, err
	}
	orders, total, err := s.orders.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if err := s.expand(ctx, orders, exp); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// AvailableItems lists the menu items the patient's current diet allows.
func (s *Service) AvailableItems(ctx context.Context, patientID uuid.UUID, f catalog.ItemFilter, limit, offset int) ([]*catalog.MenuItem, int, error) {
	pc, err := s.patients.ResolvePatient(ctx, patientID)
	if err != nil {
		return nil, 0, err
	}
	f.DietName = pc.DietName
	return s.catalog.ListMenuItems(ctx, f, limit, offset, nil)
}

func (s *Service) expand(ctx context.Context, orders []*Order, exp expand.Set) error {
	if exp.Empty() || len(orders) == 0 {
		return nil
	}
	if exp.Has("items") {
		var ids []uuid.UUID
		for _, o := range orders {
			ids = append(ids, CollectItemIDs(o.Selection)...)
		}
		items, err := s.catalog.GetMenuItems(ctx, uniqueIDs(ids))
		if err != nil {
			return fmt.Errorf("expand order items: %w", err)
		}
		byID := make(map[uuid.UUID]*catalog.MenuItem, len(items))
		for _, it := range items {
			byID[it.ID] = it
		}
		for _, o := range orders {
			o.Resolved = resolve(o.Selection, byID)
			carbs, sodium := o.Resolved.Totals()
			o.TotalCarbsG, o.TotalSodiumMg = &carbs, &sodium
		}
	}
	if exp.Has("patient") {
		cache := map[uuid.UUID]*PatientContext{}
		for _, o := range orders {
			pc, ok := cache[o.PatientID]
			if !ok {
				var err error
				if pc, err = s.patients.ResolvePatient(ctx, o.PatientID); err != nil {
					return err
				}
				cache[o.PatientID] = pc
			}
			o.Patient = pc
		}
	}
	return nil
}

func resolve(sel Selection, byID map[uuid.UUID]*catalog.MenuItem) *ResolvedItems {
	pick := func(ids []uuid.UUID) []*catalog.MenuItem {
		out := []*catalog.MenuItem{}
		for _, id := range ids {
			if it, ok := byID[id]; ok {
				out = append(out, it)
			}
		}
		return out
	}
	r := &ResolvedItems{
		Sides:       pick(sel.SideIDs),
		Dessert:     pick(sel.DessertIDs),
		Drinks:      pick(sel.DrinkIDs),
		Condiments:  pick(sel.CondimentIDs),
		Supplements: pick(sel.SupplementIDs),
	}
	if sel.EntreeID != nil {
		r.Entree = byID[*sel.EntreeID]
	}
	return r
}

func (s *Service) publish(ctx context.Context, typ string, o *Order) {
	ev := events.New(typ, events.TopicOrders, o.ID.String(), o).ForPatient(o.PatientID.String())
	_ = s.publisher.Publish(ctx, ev)
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
