package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhoicas/pos-inventario/internal/domain"
	"github.com/jhoicas/pos-inventario/internal/domain/entity"
	"github.com/jhoicas/pos-inventario/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo registro de movimientos sobre PostgreSQL (usable con pool o tx).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create persiste un movimiento. Una clave de idempotencia ya registrada devuelve domain.ErrDuplicate
// sin abortar la transacción (ON CONFLICT DO NOTHING en vez de capturar 23505).
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.MovementRecord) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stock_movements (id, idempotency_key, location_id, stock_item_id, kind, quantity, note, order_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (idempotency_key) DO NOTHING`
	tag, err := r.q.Exec(ctx, query,
		m.ID, nullIfEmpty(m.IdempotencyKey), m.LocationID, m.StockItemID,
		m.Kind, m.Quantity, m.Note, nullIfEmpty(m.OrderRef), m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create stock movement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicate
	}
	return nil
}

// ListByOrder movimientos de un pedido en orden de creación.
func (r *StockMovementRepo) ListByOrder(ctx context.Context, orderRef string) ([]*entity.MovementRecord, error) {
	query := `
		SELECT id, COALESCE(idempotency_key, ''), location_id, stock_item_id, kind, quantity, note, COALESCE(order_ref, ''), created_at
		FROM stock_movements WHERE order_ref = $1
		ORDER BY created_at, id`
	rows, err := r.q.Query(ctx, query, orderRef)
	if err != nil {
		return nil, fmt.Errorf("list movements by order: %w", err)
	}
	defer rows.Close()
	var list []*entity.MovementRecord
	for rows.Next() {
		var m entity.MovementRecord
		if err := rows.Scan(&m.ID, &m.IdempotencyKey, &m.LocationID, &m.StockItemID, &m.Kind,
			&m.Quantity, &m.Note, &m.OrderRef, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}
