package ordering

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nutritrack/dietary/internal/platform/db"
)

type orderRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &orderRepoPG{pool: pool}
}

func (r *orderRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const orderColumns = `id, patient_id, day, meal_period, option, entree_id, side_ids, dessert_ids,
	drink_ids, condiment_ids, supplement_ids, comments, meal_date, meal_time,
	created_at, updated_at, expires_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.PatientID, &o.Day, &o.MealPeriod, &o.Option, &o.EntreeID,
		&o.SideIDs, &o.DessertIDs, &o.DrinkIDs, &o.CondimentIDs, &o.SupplementIDs,
		&o.Comments, &o.MealDate, &o.MealTime, &o.CreatedAt, &o.UpdatedAt, &o.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func collect(rows pgx.Rows) ([]*Order, error) {
	defer rows.Close()
	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *orderRepoPG) Create(ctx context.Context, o *Order) error {
	o.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient_order (id, patient_id, day, meal_period, option, entree_id, side_ids,
			dessert_ids, drink_ids, condiment_ids, supplement_ids, comments, meal_date, meal_time,
			created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING updated_at`,
		o.ID, o.PatientID, o.Day, o.MealPeriod, o.Option, o.EntreeID, o.SideIDs,
		o.DessertIDs, o.DrinkIDs, o.CondimentIDs, o.SupplementIDs, o.Comments, o.MealDate, o.MealTime,
		o.CreatedAt, o.ExpiresAt,
	).Scan(&o.UpdatedAt)
}

func (r *orderRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	return scanOrder(r.conn(ctx).QueryRow(ctx, `SELECT `+orderColumns+` FROM patient_order WHERE id = $1`, id))
}

func (r *orderRepoPG) Update(ctx context.Context, o *Order) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE patient_order SET option = $2, entree_id = $3, side_ids = $4, dessert_ids = $5,
			drink_ids = $6, condiment_ids = $7, supplement_ids = $8, comments = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		o.ID, o.Option, o.EntreeID, o.SideIDs, o.DessertIDs, o.DrinkIDs, o.CondimentIDs,
		o.SupplementIDs, o.Comments,
	).Scan(&o.UpdatedAt)
}

func (r *orderRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient_order WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *orderRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Order, int, error) {
	var patient *uuid.UUID
	if f.PatientID != uuid.Nil {
		patient = &f.PatientID
	}
	where := ` WHERE ($1::uuid IS NULL OR patient_id = $1) AND ($2 = '' OR day = $2) AND ($3 = '' OR meal_period = $3)`
	args := []interface{}{patient, f.Day, f.MealPeriod}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient_order`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+orderColumns+` FROM patient_order`+where+`
		ORDER BY meal_time, created_at LIMIT $4 OFFSET $5`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collect(rows)
	return out, total, err
}

func (r *orderRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Order, int, error) {
	return r.List(ctx, Filter{PatientID: patientID}, limit, offset)
}

func (r *orderRepoPG) DeleteExpired(ctx context.Context, cutoff time.Time) ([]*Order, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		DELETE FROM patient_order WHERE expires_at <= $1
		RETURNING `+orderColumns, cutoff)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}
