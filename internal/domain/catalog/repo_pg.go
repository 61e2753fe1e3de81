package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nutritrack/dietary/internal/platform/db"
)

// -- Diet Repository --

type dietRepoPG struct {
	pool *pgxpool.Pool
}

func NewDietRepo(pool *pgxpool.Pool) DietRepository {
	return &dietRepoPG{pool: pool}
}

func (r *dietRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const dietColumns = `id, name, description, calories, total_fat_g, cholesterol_mg,
	carbs_limit_g, sodium_limit_mg, protein_g, created_at, updated_at`

func scanDiet(row pgx.Row) (*Diet, error) {
	var d Diet
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.Calories, &d.TotalFatG, &d.CholesterolMg,
		&d.CarbsLimitG, &d.SodiumLimitMg, &d.ProteinG, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *dietRepoPG) Create(ctx context.Context, d *Diet) error {
	d.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO diet (id, name, description, calories, total_fat_g, cholesterol_mg,
			carbs_limit_g, sodium_limit_mg, protein_g)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		d.ID, d.Name, d.Description, d.Calories, d.TotalFatG, d.CholesterolMg,
		d.CarbsLimitG, d.SodiumLimitMg, d.ProteinG,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
}

func (r *dietRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Diet, error) {
	return scanDiet(r.conn(ctx).QueryRow(ctx, `SELECT `+dietColumns+` FROM diet WHERE id = $1`, id))
}

func (r *dietRepoPG) GetMany(ctx context.Context, ids []uuid.UUID) ([]*Diet, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+dietColumns+` FROM diet WHERE id = ANY($1) ORDER BY name`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Diet
	for rows.Next() {
		d, err := scanDiet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Update never touches name; diet names are fixed once created.
func (r *dietRepoPG) Update(ctx context.Context, d *Diet) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE diet SET description = $2, calories = $3, total_fat_g = $4, cholesterol_mg = $5,
			carbs_limit_g = $6, sodium_limit_mg = $7, protein_g = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING name, created_at, updated_at`,
		d.ID, d.Description, d.Calories, d.TotalFatG, d.CholesterolMg,
		d.CarbsLimitG, d.SodiumLimitMg, d.ProteinG,
	).Scan(&d.Name, &d.CreatedAt, &d.UpdatedAt)
}

func (r *dietRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM diet WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *dietRepoPG) List(ctx context.Context, limit, offset int) ([]*Diet, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM diet`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+dietColumns+` FROM diet ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []*Diet
	for rows.Next() {
		d, err := scanDiet(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

// -- Production Area Repository --

type areaRepoPG struct {
	pool *pgxpool.Pool
}

func NewProductionAreaRepo(pool *pgxpool.Pool) ProductionAreaRepository {
	return &areaRepoPG{pool: pool}
}

func (r *areaRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const areaColumns = `id, name, description, out_of_service, created_at, updated_at`

func scanArea(row pgx.Row) (*ProductionArea, error) {
	var a ProductionArea
	if err := row.Scan(&a.ID, &a.Name, &a.Description, &a.OutOfService, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *areaRepoPG) Create(ctx context.Context, a *ProductionArea) error {
	a.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO production_area (id, name, description, out_of_service)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		a.ID, a.Name, a.Description, a.OutOfService,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *areaRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ProductionArea, error) {
	return scanArea(r.conn(ctx).QueryRow(ctx, `SELECT `+areaColumns+` FROM production_area WHERE id = $1`, id))
}

func (r *areaRepoPG) GetByName(ctx context.Context, name string) (*ProductionArea, error) {
	return scanArea(r.conn(ctx).QueryRow(ctx, `SELECT `+areaColumns+` FROM production_area WHERE name = $1`, name))
}

func (r *areaRepoPG) Update(ctx context.Context, a *ProductionArea) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE production_area SET name = $2, description = $3, out_of_service = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		a.ID, a.Name, a.Description, a.OutOfService,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (r *areaRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM production_area WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *areaRepoPG) List(ctx context.Context, limit, offset int) ([]*ProductionArea, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM production_area`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+areaColumns+` FROM production_area ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []*ProductionArea
	for rows.Next() {
		a, err := scanArea(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

// -- Menu Item Repository --

type itemRepoPG struct {
	pool *pgxpool.Pool
}

func NewMenuItemRepo(pool *pgxpool.Pool) MenuItemRepository {
	return &itemRepoPG{pool: pool}
}

func (r *itemRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const itemColumns = `mi.id, mi.name, mi.description, mi.category, mi.production_area_id,
	mi.is_liquid, mi.portion_size, mi.portion_unit, mi.carbs_g, mi.sodium_mg, mi.major_allergens,
	ARRAY(SELECT d.id FROM menu_item_diet mid JOIN diet d ON d.id = mid.diet_id
		WHERE mid.menu_item_id = mi.id ORDER BY d.name),
	ARRAY(SELECT d.name FROM menu_item_diet mid JOIN diet d ON d.id = mid.diet_id
		WHERE mid.menu_item_id = mi.id ORDER BY d.name),
	mi.created_at, mi.updated_at`

func scanItem(row pgx.Row) (*MenuItem, error) {
	var m MenuItem
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.Category, &m.ProductionAreaID,
		&m.IsLiquid, &m.PortionSize, &m.PortionUnit, &m.CarbsG, &m.SodiumMg, &m.MajorAllergens,
		&m.DietIDs, &m.DietNames, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *itemRepoPG) collect(rows pgx.Rows) ([]*MenuItem, error) {
	defer rows.Close()
	var out []*MenuItem
	for rows.Next() {
		m, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *itemRepoPG) replaceDiets(ctx context.Context, itemID uuid.UUID, dietIDs []uuid.UUID) error {
	if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM menu_item_diet WHERE menu_item_id = $1`, itemID); err != nil {
		return fmt.Errorf("clear item diets: %w", err)
	}
	if _, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO menu_item_diet (menu_item_id, diet_id)
		SELECT $1, unnest($2::uuid[])`, itemID, dietIDs); err != nil {
		return fmt.Errorf("insert item diets: %w", err)
	}
	return nil
}

// reload refreshes the computed diet columns after a write.
func (r *itemRepoPG) reload(ctx context.Context, m *MenuItem) error {
	fresh, err := r.GetByID(ctx, m.ID)
	if err != nil {
		return err
	}
	*m = *fresh
	return nil
}

func (r *itemRepoPG) Create(ctx context.Context, m *MenuItem) error {
	m.ID = uuid.New()
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO menu_item (id, name, description, category, production_area_id,
				is_liquid, portion_size, portion_unit, carbs_g, sodium_mg, major_allergens)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			m.ID, m.Name, m.Description, m.Category, m.ProductionAreaID,
			m.IsLiquid, m.PortionSize, m.PortionUnit, m.CarbsG, m.SodiumMg, m.MajorAllergens,
		)
		if err != nil {
			return err
		}
		if err := r.replaceDiets(ctx, m.ID, m.DietIDs); err != nil {
			return err
		}
		return r.reload(ctx, m)
	})
}

func (r *itemRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*MenuItem, error) {
	return scanItem(r.conn(ctx).QueryRow(ctx, `SELECT `+itemColumns+` FROM menu_item mi WHERE mi.id = $1`, id))
}

func (r *itemRepoPG) GetMany(ctx context.Context, ids []uuid.UUID) ([]*MenuItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+itemColumns+` FROM menu_item mi WHERE mi.id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *itemRepoPG) Update(ctx context.Context, m *MenuItem) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		tag, err := r.conn(ctx).Exec(ctx, `
			UPDATE menu_item SET name = $2, description = $3, category = $4, production_area_id = $5,
				is_liquid = $6, portion_size = $7, portion_unit = $8, carbs_g = $9, sodium_mg = $10,
				major_allergens = $11, updated_at = NOW()
			WHERE id = $1`,
			m.ID, m.Name, m.Description, m.Category, m.ProductionAreaID,
			m.IsLiquid, m.PortionSize, m.PortionUnit, m.CarbsG, m.SodiumMg, m.MajorAllergens,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		if err := r.replaceDiets(ctx, m.ID, m.DietIDs); err != nil {
			return err
		}
		return r.reload(ctx, m)
	})
}

func (r *itemRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM menu_item WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *itemRepoPG) List(ctx context.Context, f ItemFilter, limit, offset int) ([]*MenuItem, int, error) {
	where := `WHERE ($1 = '' OR mi.category = $1)
		AND ($2::uuid IS NULL OR mi.production_area_id = $2)
		AND ($3 = '' OR EXISTS (SELECT 1 FROM menu_item_diet mid JOIN diet d ON d.id = mid.diet_id
			WHERE mid.menu_item_id = mi.id AND d.name = $3))`
	var area *uuid.UUID
	if f.ProductionAreaID != uuid.Nil {
		area = &f.ProductionAreaID
	}
	args := []interface{}{f.Category, area, f.DietName}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM menu_item mi `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+itemColumns+` FROM menu_item mi `+where+`
		ORDER BY mi.category, mi.name LIMIT $4 OFFSET $5`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	out, err := r.collect(rows)
	return out, total, err
}
