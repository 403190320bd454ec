package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/pos-inventario/internal/domain/entity"
	"github.com/jhoicas/pos-inventario/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// Get obtiene la existencia de un insumo en una ubicación; cero si aún no hay fila.
func (r *StockRepo) Get(ctx context.Context, locationID, stockItemID string) (*entity.StockItem, error) {
	query := `
		SELECT location_id, stock_item_id, quantity, updated_at
		FROM stock WHERE location_id = $1 AND stock_item_id = $2`
	var s entity.StockItem
	err := r.q.QueryRow(ctx, query, locationID, stockItemID).Scan(
		&s.LocationID, &s.StockItemID, &s.QuantityOnHand, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.StockItem{LocationID: locationID, StockItemID: stockItemID, QuantityOnHand: decimal.Zero}, nil
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return &s, nil
}

// Increment suma delta a la existencia en una sola sentencia (sin leer-modificar-escribir) y
// devuelve la cantidad resultante. Crea la fila si no existe; la existencia puede quedar negativa.
func (r *StockRepo) Increment(ctx context.Context, locationID, stockItemID string, delta decimal.Decimal) (decimal.Decimal, error) {
	query := `
		INSERT INTO stock (location_id, stock_item_id, quantity, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (location_id, stock_item_id)
		DO UPDATE SET quantity = stock.quantity + EXCLUDED.quantity, updated_at = now()
		RETURNING quantity`
	var qty decimal.Decimal
	if err := r.q.QueryRow(ctx, query, locationID, stockItemID, delta).Scan(&qty); err != nil {
		return decimal.Zero, fmt.Errorf("increment stock: %w", err)
	}
	return qty, nil
}
