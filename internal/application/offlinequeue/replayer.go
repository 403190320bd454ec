package offlinequeue

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/pos-inventario/internal/application/inventory"
	"github.com/jhoicas/pos-inventario/internal/domain"
	"github.com/jhoicas/pos-inventario/internal/domain/entity"
	"github.com/jhoicas/pos-inventario/internal/domain/repository"
)

// ErrIncompleteConsumption el pedido quedó registrado pero no todos sus deltas de stock se aplicaron.
var ErrIncompleteConsumption = errors.New("consumo de stock incompleto")

// ConsumptionApplier puerto del servicio de consumo usado al reproducir pedidos.
type ConsumptionApplier interface {
	Consume(ctx context.Context, in inventory.ConsumptionInput) (inventory.ConsumptionResult, error)
}

// ReplayOutcome resultado de reproducir un pedido contra el almacén central.
type ReplayOutcome struct {
	OrderID     string
	Consumption inventory.ConsumptionResult
}

// Replayer registra un pedido centralmente (cabecera + líneas) y aplica su consumo de stock.
// Todos los pasos son idempotentes por LocalID, por lo que reintentar tras un fallo parcial no
// duplica pedidos ni movimientos.
type Replayer struct {
	orders      repository.OrderRepository
	consumption ConsumptionApplier
}

// NewReplayer construye el reproductor de pedidos.
func NewReplayer(orders repository.OrderRepository, consumption ConsumptionApplier) *Replayer {
	return &Replayer{orders: orders, consumption: consumption}
}

// Replay ejecuta los tres pasos en orden; las líneas se validan antes de escribir nada. Un consumo parcial cuenta como fallo
// (ErrIncompleteConsumption) para que el pedido siga pendiente y se reintente.
func (r *Replayer) Replay(ctx context.Context, order *entity.QueuedOrder) (ReplayOutcome, error) {
	if order.LocalID == "" {
		return ReplayOutcome{}, domain.ErrInvalidInput
	}
	if err := order.Validate(); err != nil {
		return ReplayOutcome{}, err
	}

	orderID, err := r.orders.CreateOrder(ctx, order.Header())
	if err != nil {
		return ReplayOutcome{}, fmt.Errorf("crear pedido: %w", err)
	}
	out := ReplayOutcome{OrderID: orderID}

	if err := r.orders.CreateOrderLines(ctx, orderID, order.Lines); err != nil {
		return out, fmt.Errorf("crear líneas del pedido %s: %w", orderID, err)
	}

	res, err := r.consumption.Consume(ctx, inventory.ConsumptionInput{
		LocationID: order.LocationID,
		OrderRef:   orderID,
		Lines:      order.Lines,
	})
	if err != nil {
		return out, fmt.Errorf("consumo del pedido %s: %w", orderID, err)
	}
	out.Consumption = res
	if !res.Complete() {
		return out, fmt.Errorf("pedido %s: %w: %w", orderID, ErrIncompleteConsumption, res.Err())
	}
	return out, nil
}
