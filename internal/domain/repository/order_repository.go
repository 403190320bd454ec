package repository

import (
	"context"

	"github.com/jhoicas/pos-inventario/internal/domain/entity"
)

// OrderRepository puerto del almacén central de pedidos.
// CreateOrder con una IdempotencyKey ya registrada devuelve el id del pedido existente.
// CreateOrderLines es idempotente por (pedido, número de línea).
type OrderRepository interface {
	CreateOrder(ctx context.Context, header entity.OrderHeader) (string, error)
	CreateOrderLines(ctx context.Context, orderID string, lines []entity.OrderLine) error
}
