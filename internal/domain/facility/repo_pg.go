package facility

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nutritrack/dietary/internal/platform/db"
)

// -- Unit Repository --

type unitRepoPG struct {
	pool *pgxpool.Pool
}

func NewUnitRepo(pool *pgxpool.Pool) UnitRepository {
	return &unitRepoPG{pool: pool}
}

func (r *unitRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const unitColumns = `id, name, description, room_range_start, room_range_end, created_at, updated_at`

func scanUnit(row pgx.Row) (*Unit, error) {
	var u Unit
	if err := row.Scan(&u.ID, &u.Name, &u.Description, &u.RoomRangeStart, &u.RoomRangeEnd,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *unitRepoPG) Create(ctx context.Context, u *Unit) error {
	u.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO unit (id, name, description, room_range_start, room_range_end)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		u.ID, u.Name, u.Description, u.RoomRangeStart, u.RoomRangeEnd,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
}

func (r *unitRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Unit, error) {
	return scanUnit(r.conn(ctx).QueryRow(ctx, `SELECT `+unitColumns+` FROM unit WHERE id = $1`, id))
}

// Update also carries a rename onto the patients housed in the unit, whose
// unit_name is a copy.
func (r *unitRepoPG) Update(ctx context.Context, u *Unit) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		err := r.conn(ctx).QueryRow(ctx, `
			UPDATE unit SET name = $2, description = $3, room_range_start = $4, room_range_end = $5,
				updated_at = NOW()
			WHERE id = $1
			RETURNING created_at, updated_at`,
			u.ID, u.Name, u.Description, u.RoomRangeStart, u.RoomRangeEnd,
		).Scan(&u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return err
		}
		_, err = r.conn(ctx).Exec(ctx, `
			UPDATE patient SET unit_name = $2
			WHERE room_id IN (SELECT id FROM room WHERE unit_id = $1) AND unit_name <> $2`,
			u.ID, u.Name)
		return err
	})
}

func (r *unitRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM unit WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *unitRepoPG) List(ctx context.Context, limit, offset int) ([]*Unit, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM unit`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+unitColumns+` FROM unit ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []*Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// -- Room Repository --

type roomRepoPG struct {
	pool *pgxpool.Pool
}

func NewRoomRepo(pool *pgxpool.Pool) RoomRepository {
	return &roomRepoPG{pool: pool}
}

func (r *roomRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const roomColumns = `r.id, r.unit_id, u.name, r.room_number, r.created_at, r.updated_at`

const roomFrom = ` FROM room r JOIN unit u ON u.id = r.unit_id`

func scanRoom(row pgx.Row) (*Room, error) {
	var rm Room
	if err := row.Scan(&rm.ID, &rm.UnitID, &rm.UnitName, &rm.RoomNumber, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
		return nil, err
	}
	return &rm, nil
}

func (r *roomRepoPG) Create(ctx context.Context, rm *Room) error {
	rm.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO room (id, unit_id, room_number)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`,
		rm.ID, rm.UnitID, rm.RoomNumber,
	).Scan(&rm.CreatedAt, &rm.UpdatedAt)
}

func (r *roomRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Room, error) {
	return scanRoom(r.conn(ctx).QueryRow(ctx, `SELECT `+roomColumns+roomFrom+` WHERE r.id = $1`, id))
}

func (r *roomRepoPG) Update(ctx context.Context, rm *Room) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE room SET room_number = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING unit_id, created_at, updated_at`,
		rm.ID, rm.RoomNumber,
	).Scan(&rm.UnitID, &rm.CreatedAt, &rm.UpdatedAt)
}

func (r *roomRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM room WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *roomRepoPG) List(ctx context.Context, unitID uuid.UUID, limit, offset int) ([]*Room, int, error) {
	var unit *uuid.UUID
	if unitID != uuid.Nil {
		unit = &unitID
	}
	where := ` WHERE ($1::uuid IS NULL OR r.unit_id = $1)`

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+roomFrom+where, unit).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+roomColumns+roomFrom+where+`
		ORDER BY u.name, r.room_number LIMIT $2 OFFSET $3`, unit, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []*Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rm)
	}
	return out, total, rows.Err()
}

func (r *roomRepoPG) CountOutside(ctx context.Context, unitID uuid.UUID, start, end int) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM room
		WHERE unit_id = $1 AND (room_number < $2 OR room_number > $3)`,
		unitID, start, end,
	).Scan(&n)
	return n, err
}
