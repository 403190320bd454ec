package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/pos-inventario/internal/domain/entity"
	"github.com/jhoicas/pos-inventario/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo pedidos en el almacén central (usable con pool o tx).
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

// CreateOrder inserta la cabecera. Con una idempotency_key existente devuelve el id ya registrado.
// El DO UPDATE no cambia nada pero hace que RETURNING devuelva la fila existente.
func (r *OrderRepo) CreateOrder(ctx context.Context, h entity.OrderHeader) (string, error) {
	query := `
		INSERT INTO orders (id, idempotency_key, location_id, subtotal, discount, total, payment_method, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (idempotency_key)
		DO UPDATE SET idempotency_key = EXCLUDED.idempotency_key
		RETURNING id`
	var id string
	err := r.q.QueryRow(ctx, query,
		uuid.New().String(), h.IdempotencyKey, h.LocationID, h.Subtotal, h.Discount, h.Total,
		h.PaymentMethod, h.CreatedBy, h.CreatedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}
	return id, nil
}

// CreateOrderLines inserta las líneas en un solo batch. Idempotente por (order_id, line_no).
func (r *OrderRepo) CreateOrderLines(ctx context.Context, orderID string, lines []entity.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, l := range lines {
		batch.Queue(`
			INSERT INTO order_lines (order_id, line_no, sold_item_id, name, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (order_id, line_no) DO NOTHING`,
			orderID, i+1, l.SoldItemID, l.Name, l.Quantity, l.UnitPrice,
		)
	}
	br := r.q.SendBatch(ctx, batch)
	for range lines {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("create order lines: %w", err)
		}
	}
	return br.Close()
}
