package repository

import (
	"context"

	"github.com/jhoicas/pos-inventario/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// StockLedger cliente del libro de existencias.
// ApplyDelta debe ser atómico frente a llamadas concurrentes sobre la misma clave: ajusta la
// existencia y agrega el movimiento en un solo paso. Si IdempotencyKey ya fue aplicado devuelve
// domain.ErrDuplicate sin modificar la existencia.
type StockLedger interface {
	GetQuantity(ctx context.Context, locationID, stockItemID string) (decimal.Decimal, error)
	ApplyDelta(ctx context.Context, delta entity.StockDelta) (*entity.MovementRecord, error)
}

// StockRepository define el puerto para consultar/incrementar stock por ubicación+insumo.
// Usado dentro de transacciones para garantizar consistencia.
type StockRepository interface {
	Get(ctx context.Context, locationID, stockItemID string) (*entity.StockItem, error)
	// Increment suma delta a la existencia (creando la fila si no existe) y devuelve la nueva cantidad.
	Increment(ctx context.Context, locationID, stockItemID string, delta decimal.Decimal) (decimal.Decimal, error)
}

// StockMovementRepository puerto de persistencia del registro de movimientos (solo anexar).
type StockMovementRepository interface {
	// Create inserta el movimiento. Devuelve domain.ErrDuplicate si su IdempotencyKey ya existe.
	Create(ctx context.Context, movement *entity.MovementRecord) error
	ListByOrder(ctx context.Context, orderRef string) ([]*entity.MovementRecord, error)
}
