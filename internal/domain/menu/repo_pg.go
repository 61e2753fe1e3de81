package menu

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nutritrack/dietary/internal/platform/db"
)

type menuRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &menuRepoPG{pool: pool}
}

func (r *menuRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const menuColumns = `m.id, m.day, m.meal_period, m.option,
	ARRAY(SELECT md.diet_id FROM menu_diet md WHERE md.menu_id = m.id ORDER BY md.diet_id),
	m.entree_id, m.side_ids, m.dessert_ids, m.drink_ids, m.condiment_ids,
	m.created_at, m.updated_at`

func scanMenu(row pgx.Row) (*Menu, error) {
	var m Menu
	err := row.Scan(&m.ID, &m.Day, &m.MealPeriod, &m.Option, &m.DietIDs,
		&m.EntreeID, &m.SideIDs, &m.DessertIDs, &m.DrinkIDs, &m.CondimentIDs,
		&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// replaceDiets rewrites the menu's diet rows. day, meal_period and option
// are copied so the unique lookup key can live on menu_diet.
func (r *menuRepoPG) replaceDiets(ctx context.Context, m *Menu) error {
	if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM menu_diet WHERE menu_id = $1`, m.ID); err != nil {
		return fmt.Errorf("clear menu diets: %w", err)
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO menu_diet (menu_id, diet_id, day, meal_period, option)
		SELECT $1, d, $3, $4, $5 FROM unnest($2::uuid[]) AS d`,
		m.ID, m.DietIDs, m.Day, m.MealPeriod, m.Option)
	return err
}

func (r *menuRepoPG) Create(ctx context.Context, m *Menu) error {
	m.ID = uuid.New()
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		err := r.conn(ctx).QueryRow(ctx, `
			INSERT INTO menu (id, day, meal_period, option, entree_id, side_ids, dessert_ids, drink_ids, condiment_ids)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING created_at, updated_at`,
			m.ID, m.Day, m.MealPeriod, m.Option, m.EntreeID, m.SideIDs, m.DessertIDs, m.DrinkIDs, m.CondimentIDs,
		).Scan(&m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return err
		}
		return r.replaceDiets(ctx, m)
	})
}

func (r *menuRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Menu, error) {
	return scanMenu(r.conn(ctx).QueryRow(ctx, `SELECT `+menuColumns+` FROM menu m WHERE m.id = $1`, id))
}

func (r *menuRepoPG) Update(ctx context.Context, m *Menu) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		err := r.conn(ctx).QueryRow(ctx, `
			UPDATE menu SET day = $2, meal_period = $3, option = $4, entree_id = $5, side_ids = $6,
				dessert_ids = $7, drink_ids = $8, condiment_ids = $9, updated_at = NOW()
			WHERE id = $1
			RETURNING created_at, updated_at`,
			m.ID, m.Day, m.MealPeriod, m.Option, m.EntreeID, m.SideIDs, m.DessertIDs, m.DrinkIDs, m.CondimentIDs,
		).Scan(&m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return err
		}
		return r.replaceDiets(ctx, m)
	})
}

func (r *menuRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM menu WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *menuRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Menu, int, error) {
	var diet *uuid.UUID
	if f.DietID != uuid.Nil {
		diet = &f.DietID
	}
	where := ` WHERE ($1 = '' OR m.day = $1) AND ($2 = '' OR m.meal_period = $2) AND ($3 = '' OR m.option = $3)
		AND ($4::uuid IS NULL OR EXISTS (SELECT 1 FROM menu_diet md WHERE md.menu_id = m.id AND md.diet_id = $4))`
	args := []interface{}{f.Day, f.MealPeriod, f.Option, diet}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM menu m`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+menuColumns+` FROM menu m`+where+`
		ORDER BY array_position(ARRAY['Sunday','Monday','Tuesday','Wednesday','Thursday','Friday','Saturday']::text[], m.day::text),
			array_position(ARRAY['Breakfast','Lunch','Dinner']::text[], m.meal_period::text), m.option DESC
		LIMIT $5 OFFSET $6`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []*Menu
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

func (r *menuRepoPG) FindDefault(ctx context.Context, dietID uuid.UUID, day, mealPeriod, option string) (*Menu, error) {
	return scanMenu(r.conn(ctx).QueryRow(ctx, `
		SELECT `+menuColumns+`
		FROM menu m JOIN menu_diet md ON md.menu_id = m.id
		WHERE md.diet_id = $1 AND md.day = $2 AND md.meal_period = $3 AND ($4 = '' OR md.option = $4)
		ORDER BY md.option = 'Hot' DESC
		LIMIT 1`, dietID, day, mealPeriod, option))
}
