package reporting

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nutritrack/dietary/internal/platform/db"
)

type reportRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &reportRepoPG{pool: pool}
}

func (r *reportRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const patientRowQuery = `
	SELECT p.unit_name, rm.room_number, p.first_name, p.last_name, d.name, p.status,
		p.is_high_risk, p.known_allergies, p.supplements, p.updated_at
	FROM patient p
	JOIN room rm ON rm.id = p.room_id
	JOIN diet d ON d.id = p.diet_id`

const patientRowOrder = ` ORDER BY p.unit_name, rm.room_number`

func (r *reportRepoPG) patientRows(ctx context.Context, where string, args ...interface{}) ([]PatientRow, error) {
	rows, err := r.conn(ctx).Query(ctx, patientRowQuery+where+patientRowOrder, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PatientRow
	for rows.Next() {
		var p PatientRow
		if err := rows.Scan(&p.UnitName, &p.RoomNumber, &p.FirstName, &p.LastName, &p.DietName, &p.Status,
			&p.IsHighRisk, &p.KnownAllergies, &p.Supplements, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *reportRepoPG) Patients(ctx context.Context) ([]PatientRow, error) {
	return r.patientRows(ctx, "")
}

func (r *reportRepoPG) PatientsUpdatedSince(ctx context.Context, since time.Time) ([]PatientRow, error) {
	return r.patientRows(ctx, ` WHERE p.updated_at >= $1`, since)
}

func (r *reportRepoPG) HighRiskPatients(ctx context.Context) ([]PatientRow, error) {
	return r.patientRows(ctx, ` WHERE p.is_high_risk`)
}

func (r *reportRepoPG) OrderedItems(ctx context.Context, day, mealPeriod string) ([]OrderedItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT o.id, p.status, mi.id, mi.name, mi.category, mi.portion_size, mi.portion_unit, pa.name
		FROM patient_order o
		JOIN patient p ON p.id = o.patient_id
		CROSS JOIN LATERAL (
			SELECT 0 AS slot, 1::bigint AS pos, o.entree_id AS item_id WHERE o.entree_id IS NOT NULL
			UNION ALL SELECT 1, s.pos, s.id FROM unnest(o.side_ids) WITH ORDINALITY AS s(id, pos)
			UNION ALL SELECT 2, s.pos, s.id FROM unnest(o.dessert_ids) WITH ORDINALITY AS s(id, pos)
			UNION ALL SELECT 3, s.pos, s.id FROM unnest(o.drink_ids) WITH ORDINALITY AS s(id, pos)
			UNION ALL SELECT 4, s.pos, s.id FROM unnest(o.condiment_ids) WITH ORDINALITY AS s(id, pos)
		) slot
		JOIN menu_item mi ON mi.id = slot.item_id
		JOIN production_area pa ON pa.id = mi.production_area_id
		WHERE o.day = $1 AND o.meal_period = $2
		ORDER BY o.created_at, o.id, slot.slot, slot.pos`, day, mealPeriod)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (OrderedItem, error) {
		var it OrderedItem
		err := row.Scan(&it.OrderID, &it.PatientStatus, &it.MenuItemID, &it.Name, &it.Category,
			&it.PortionSize, &it.PortionUnit, &it.ProductionArea)
		return it, err
	})
}
