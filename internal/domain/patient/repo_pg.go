package patient

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nutritrack/dietary/internal/platform/db"
)

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const patientColumns = `p.id, p.first_name, p.last_name, p.date_of_birth, p.room_id, rm.room_number,
	p.unit_name, p.diet_id, d.name, p.is_high_risk, p.known_allergies, p.status, p.supplements,
	p.created_at, p.updated_at`

const patientFrom = ` FROM patient p
	JOIN room rm ON rm.id = p.room_id
	JOIN diet d ON d.id = p.diet_id`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.DateOfBirth.Time, &p.RoomID, &p.RoomNumber,
		&p.UnitName, &p.DietID, &p.DietName, &p.IsHighRisk, &p.KnownAllergies, &p.Status, &p.Supplements,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepoPG) reload(ctx context.Context, p *Patient) error {
	got, err := r.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	*p = *got
	return nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (id, first_name, last_name, date_of_birth, room_id, unit_name, diet_id,
			is_high_risk, known_allergies, status, supplements)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth.Time, p.RoomID, p.UnitName, p.DietID,
		p.IsHighRisk, p.KnownAllergies, p.Status, p.Supplements)
	if err != nil {
		return err
	}
	return r.reload(ctx, p)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientColumns+patientFrom+` WHERE p.id = $1`, id))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET first_name = $2, last_name = $3, date_of_birth = $4, room_id = $5,
			unit_name = $6, diet_id = $7, is_high_risk = $8, known_allergies = $9, status = $10,
			supplements = $11, updated_at = NOW()
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth.Time, p.RoomID, p.UnitName, p.DietID,
		p.IsHighRisk, p.KnownAllergies, p.Status, p.Supplements)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return r.reload(ctx, p)
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *patientRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Patient, int, error) {
	where := ` WHERE ($1 = '' OR p.unit_name = $1) AND ($2 = '' OR p.status = $2)
		AND ($3::boolean IS NULL OR p.is_high_risk = $3)`
	args := []interface{}{f.UnitName, f.Status, f.HighRisk}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+patientFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientColumns+patientFrom+where+`
		ORDER BY p.unit_name, rm.room_number LIMIT $4 OFFSET $5`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}
