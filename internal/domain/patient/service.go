package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nutritrack/dietary/internal/domain/catalog"
	"github.com/nutritrack/dietary/internal/domain/facility"
	"github.com/nutritrack/dietary/internal/domain/ordering"
	"github.com/nutritrack/dietary/internal/platform/apperr"
	"github.com/nutritrack/dietary/internal/platform/db"
	"github.com/nutritrack/dietary/internal/platform/events"
	"github.com/nutritrack/dietary/pkg/expand"
)

const (
	msgNoPatient = "No patient was found with that ID"
	msgNoRoom    = "No room was found with that ID"
	msgNoDiet    = "No diet was found with that ID"
)

// Expansions accepted on patient reads.
var Expansions = []string{"diet", "room", "orders"}

// expandedOrders caps how many orders ?expand=orders attaches per patient.
const expandedOrders = 20

type RoomLookup interface {
	GetRoom(ctx context.Context, id uuid.UUID) (*facility.Room, error)
}

type DietLookup interface {
	GetDiet(ctx context.Context, id uuid.UUID) (*catalog.Diet, error)
}

// OrderLister reads a patient's orders. ordering.Repository satisfies it.
type OrderLister interface {
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*ordering.Order, int, error)
}

type Service struct {
	patients  Repository
	rooms     RoomLookup
	diets     DietLookup
	orders    OrderLister
	publisher events.Publisher
	now       func() time.Time
}

func NewService(patients Repository, rooms RoomLookup, diets DietLookup, orders OrderLister, publisher events.Publisher) *Service {
	return &Service{
		patients:  patients,
		rooms:     rooms,
		diets:     diets,
		orders:    orders,
		publisher: events.OrNoop(publisher),
		now:       time.Now,
	}
}

// preparePatient is the pre-write step for patients: normalize and validate
// the fields, check the room and diet exist, and copy the room's unit name
// onto the patient.
func (s *Service) preparePatient(ctx context.Context, p *Patient) error {
	p.Normalize()
	if err := p.Validate(s.now()); err != nil {
		return err
	}
	room, err := s.rooms.GetRoom(ctx, p.RoomID)
	if err != nil {
		if apperr.IsKind(err, apperr.NotFound) {
			return apperr.New(apperr.ReferenceNotFound, msgNoRoom)
		}
		return fmt.Errorf("load room: %w", err)
	}
	diet, err := s.diets.GetDiet(ctx, p.DietID)
	if err != nil {
		if apperr.IsKind(err, apperr.NotFound) {
			return apperr.New(apperr.ReferenceNotFound, msgNoDiet)
		}
		return fmt.Errorf("load diet: %w", err)
	}
	p.UnitName = room.UnitName
	p.RoomNumber = room.RoomNumber
	p.DietName = diet.Name
	return nil
}

func mapWriteError(err error) error {
	if db.IsUniqueViolation(err) {
		return apperr.Wrap(err, apperr.Conflict, "That room is already assigned to another patient")
	}
	return db.MapError(err, msgNoPatient)
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if err := s.preparePatient(ctx, p); err != nil {
		return err
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return mapWriteError(err)
	}
	s.publish(ctx, events.PatientCreated, p)
	return nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID, exp expand.Set) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, db.MapError(err, msgNoPatient)
	}
	if err := s.expand(ctx, []*Patient{p}, exp); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if err := s.preparePatient(ctx, p); err != nil {
		return err
	}
	if err := s.patients.Update(ctx, p); err != nil {
		return mapWriteError(err)
	}
	s.publish(ctx, events.PatientUpdated, p)
	return nil
}

// DeletePatient removes the patient together with their orders.
func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	if err := s.patients.Delete(ctx, id); err != nil {
		return db.MapDeleteError(err, msgNoPatient, "patient")
	}
	ev := events.New(events.PatientDeleted, events.TopicPatients, id.String(), nil).ForPatient(id.String())
	_ = s.publisher.Publish(ctx, ev)
	return nil
}

func (s *Service) ListPatients(ctx context.Context, f Filter, limit, offset int, exp expand.Set) ([]*Patient, int, error) {
	patients, total, err := s.patients.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if err := s.expand(ctx, patients, exp); err != nil {
		return nil, 0, err
	}
	return patients, total, nil
}

// ResolvePatient builds the order validation context for a patient.
func (s *Service) ResolvePatient(ctx context.Context, id uuid.UUID) (*ordering.PatientContext, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.New(apperr.ReferenceNotFound, msgNoPatient)
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	return p.Context(), nil
}

func (s *Service) expand(ctx context.Context, patients []*Patient, exp expand.Set) error {
	if exp.Empty() || len(patients) == 0 {
		return nil
	}
	diets := map[uuid.UUID]*catalog.Diet{}
	rooms := map[uuid.UUID]*facility.Room{}
	for _, p := range patients {
		if exp.Has("diet") {
			d, ok := diets[p.DietID]
			if !ok {
				var err error
				if d, err = s.diets.GetDiet(ctx, p.DietID); err != nil {
					return fmt.Errorf("expand diet: %w", err)
				}
				diets[p.DietID] = d
			}
			p.Diet = d
		}
		if exp.Has("room") {
			r, ok := rooms[p.RoomID]
			if !ok {
				var err error
				if r, err = s.rooms.GetRoom(ctx, p.RoomID); err != nil {
					return fmt.Errorf("expand room: %w", err)
				}
				rooms[p.RoomID] = r
			}
			p.Room = r
		}
		if exp.Has("orders") {
			orders, _, err := s.orders.ListByPatient(ctx, p.ID, expandedOrders, 0)
			if err != nil {
				return fmt.Errorf("expand orders: %w", err)
			}
			if orders == nil {
				orders = []*ordering.Order{}
			}
			p.Orders = orders
		}
	}
	return nil
}

func (s *Service) publish(ctx context.Context, typ string, p *Patient) {
	ev := events.New(typ, events.TopicPatients, p.ID.String(), p).ForPatient(p.ID.String())
	_ = s.publisher.Publish(ctx, ev)
}
