package facility

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nutritrack/dietary/internal/platform/apperr"
	"github.com/nutritrack/dietary/internal/platform/db"
)

const (
	msgNoUnit = "No unit was found with that ID"
	msgNoRoom = "No room was found with that ID"
)

type Service struct {
	units UnitRepository
	rooms RoomRepository
}

func NewService(u UnitRepository, r RoomRepository) *Service {
	return &Service{units: u, rooms: r}
}

// -- Unit --

func (s *Service) CreateUnit(ctx context.Context, u *Unit) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if err := s.units.Create(ctx, u); err != nil {
		return db.MapError(err, msgNoUnit)
	}
	return nil
}

func (s *Service) GetUnit(ctx context.Context, id uuid.UUID) (*Unit, error) {
	u, err := s.units.GetByID(ctx, id)
	if err != nil {
		return nil, db.MapError(err, msgNoUnit)
	}
	return u, nil
}

// UpdateUnit refuses to shrink the room range past rooms that already exist.
func (s *Service) UpdateUnit(ctx context.Context, u *Unit) error {
	if err := u.Validate(); err != nil {
		return err
	}
	outside, err := s.rooms.CountOutside(ctx, u.ID, u.RoomRangeStart, u.RoomRangeEnd)
	if err != nil {
		return fmt.Errorf("count rooms outside range: %w", err)
	}
	if outside > 0 {
		return apperr.Validationf("%d existing room(s) fall outside the range %d-%d", outside, u.RoomRangeStart, u.RoomRangeEnd)
	}
	if err := s.units.Update(ctx, u); err != nil {
		return db.MapError(err, msgNoUnit)
	}
	return nil
}

func (s *Service) DeleteUnit(ctx context.Context, id uuid.UUID) error {
	return db.MapDeleteError(s.units.Delete(ctx, id), msgNoUnit, "unit")
}

func (s *Service) ListUnits(ctx context.Context, limit, offset int) ([]*Unit, int, error) {
	return s.units.List(ctx, limit, offset)
}

// -- Room --

// prepareRoom is the pre-write step for rooms: the unit must exist and the
// room number must sit inside its range.
func (s *Service) prepareRoom(ctx context.Context, r *Room) error {
	unit, err := s.units.GetByID(ctx, r.UnitID)
	if err != nil {
		if db.IsNoRows(err) {
			return apperr.New(apperr.ReferenceNotFound, msgNoUnit)
		}
		return fmt.Errorf("load unit: %w", err)
	}
	if !unit.Contains(r.RoomNumber) {
		return apperr.Validationf("Room %d is outside the %s room range of %d-%d",
			r.RoomNumber, unit.Name, unit.RoomRangeStart, unit.RoomRangeEnd)
	}
	r.UnitName = unit.Name
	return nil
}

func (s *Service) CreateRoom(ctx context.Context, r *Room) error {
	if r.UnitID == uuid.Nil {
		return apperr.Validationf("A unit is required")
	}
	if err := s.prepareRoom(ctx, r); err != nil {
		return err
	}
	if err := s.rooms.Create(ctx, r); err != nil {
		return db.MapError(err, msgNoRoom)
	}
	return nil
}

func (s *Service) GetRoom(ctx context.Context, id uuid.UUID) (*Room, error) {
	r, err := s.rooms.GetByID(ctx, id)
	if err != nil {
		return nil, db.MapError(err, msgNoRoom)
	}
	return r, nil
}

// UpdateRoom renumbers a room. The stored unit always wins over the input.
func (s *Service) UpdateRoom(ctx context.Context, r *Room) error {
	existing, err := s.GetRoom(ctx, r.ID)
	if err != nil {
		return err
	}
	if r.UnitID != uuid.Nil && r.UnitID != existing.UnitID {
		return apperr.Validationf("A room cannot be moved to another unit")
	}
	r.UnitID = existing.UnitID
	if err := s.prepareRoom(ctx, r); err != nil {
		return err
	}
	if err := s.rooms.Update(ctx, r); err != nil {
		return db.MapError(err, msgNoRoom)
	}
	return nil
}

func (s *Service) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	return db.MapDeleteError(s.rooms.Delete(ctx, id), msgNoRoom, "room")
}

func (s *Service) ListRooms(ctx context.Context, unitID uuid.UUID, limit, offset int) ([]*Room, int, error) {
	return s.rooms.List(ctx, unitID, limit, offset)
}
