package inventory

import (
	"context"

	"github.com/jhoicas/pos-inventario/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza la atomicidad del incremento + movimiento del libro de existencias.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.StockMovementRepository,
		stockRepo repository.StockRepository,
	) error) error
}

// MovementPublisher publica eventos de movimientos aplicados (bus de eventos central).
type MovementPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}
