package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/pos-inventario/internal/domain"
	"github.com/jhoicas/pos-inventario/internal/domain/entity"
	"github.com/jhoicas/pos-inventario/internal/domain/repository"
)

var _ repository.RecipeRepository = (*RecipeRepo)(nil)

// RecipeRepo lectura de recetas y semielaborados sobre PostgreSQL.
type RecipeRepo struct {
	q Querier
}

// NewRecipeRepository construye el adaptador. Pasar pool o tx (Querier).
func NewRecipeRepository(q Querier) *RecipeRepo {
	return &RecipeRepo{q: q}
}

// GetRecipeLines líneas de receta del producto vendido (vacío si no tiene receta).
func (r *RecipeRepo) GetRecipeLines(ctx context.Context, soldItemID string) ([]entity.RecipeLine, error) {
	query := `
		SELECT sold_item_id, component_kind, component_id, quantity
		FROM recipe_lines WHERE sold_item_id = $1
		ORDER BY line_no`
	rows, err := r.q.Query(ctx, query, soldItemID)
	if err != nil {
		return nil, fmt.Errorf("list recipe lines: %w", err)
	}
	defer rows.Close()
	var lines []entity.RecipeLine
	for rows.Next() {
		var l entity.RecipeLine
		if err := rows.Scan(&l.SoldItemID, &l.Component.Kind, &l.Component.ID, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scan recipe line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// GetSemiFinished semielaborado con sus ingredientes; domain.ErrNotFound si no existe.
func (r *RecipeRepo) GetSemiFinished(ctx context.Context, id string) (*entity.SemiFinishedProduct, error) {
	var p entity.SemiFinishedProduct
	err := r.q.QueryRow(ctx,
		`SELECT id, name, output_quantity FROM semi_finished_products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.OutputQuantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get semi-finished: %w", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT component_kind, component_id, quantity
		FROM semi_finished_ingredients WHERE semi_finished_id = $1
		ORDER BY line_no`, id)
	if err != nil {
		return nil, fmt.Errorf("list semi-finished ingredients: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var in entity.SemiFinishedIngredientLine
		if err := rows.Scan(&in.Component.Kind, &in.Component.ID, &in.Quantity); err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		p.Ingredients = append(p.Ingredients, in)
	}
	return &p, rows.Err()
}
