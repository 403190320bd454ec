package sales

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/pos-inventario/internal/application/inventory"
	"github.com/jhoicas/pos-inventario/internal/application/offlinequeue"
	"github.com/jhoicas/pos-inventario/internal/domain"
	"github.com/jhoicas/pos-inventario/internal/domain/entity"
	"github.com/jhoicas/pos-inventario/pkg/logger"
)

// Connectivity estado de conexión con el almacén central.
type Connectivity interface {
	Online() bool
}

// OrderQueue puerto de la cola offline usado como respaldo del cobro.
type OrderQueue interface {
	Enqueue(ctx context.Context, order *entity.QueuedOrder) (*entity.QueuedOrder, error)
}

// Returner puerto del servicio de consumo para devoluciones.
type Returner interface {
	Return(ctx context.Context, in inventory.ConsumptionInput) (inventory.ConsumptionResult, error)
}

// CheckoutOutcome resultado del cobro: sincronizado en línea o encolado.
type CheckoutOutcome struct {
	LocalID     string
	Queued      bool
	OrderID     string // vacío si quedó en cola
	Consumption inventory.ConsumptionResult
	Order       *entity.QueuedOrder
}

// RefundInput devolución de líneas de un pedido ya sincronizado.
type RefundInput struct {
	LocationID  string
	OrderID     string
	OrderNumber string
	RefundID    string // clave de idempotencia de la devolución, la genera el POS y la repite en reintentos
	Lines       []entity.OrderLine
}

// UseCase cobro y devolución en el terminal: intenta primero en línea y cae a la cola offline.
type UseCase struct {
	conn     Connectivity
	replayer offlinequeue.OrderReplayer
	queue    OrderQueue
	returner Returner
	timeout  time.Duration
	log      *logger.Logger
}

// NewUseCase construye el caso de uso. timeout acota el intento en línea antes de encolar.
func NewUseCase(
	conn Connectivity,
	replayer offlinequeue.OrderReplayer,
	queue OrderQueue,
	returner Returner,
	timeout time.Duration,
	log *logger.Logger,
) *UseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{
		conn:     conn,
		replayer: replayer,
		queue:    queue,
		returner: returner,
		timeout:  timeout,
		log:      log.Component("checkout"),
	}
}

// Checkout registra la venta. En línea la reproduce al instante; si no hay conexión o el intento
// falla, la encola con el mismo LocalID para que la sincronización posterior no la duplique.
func (uc *UseCase) Checkout(ctx context.Context, order *entity.QueuedOrder) (CheckoutOutcome, error) {
	if err := order.Validate(); err != nil {
		return CheckoutOutcome{}, err
	}
	o := *order
	o.Lines = slices.Clone(order.Lines)
	if o.LocalID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return CheckoutOutcome{}, fmt.Errorf("generar id local: %w", err)
		}
		o.LocalID = id.String()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	o.Status = entity.QueueStatusPending
	o.ComputeTotals()

	if uc.conn.Online() {
		out, err := uc.replayOnline(ctx, &o)
		if err == nil {
			o.Status = entity.QueueStatusSynced
			return CheckoutOutcome{LocalID: o.LocalID, OrderID: out.OrderID, Consumption: out.Consumption, Order: &o}, nil
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			return CheckoutOutcome{}, err
		}
		uc.log.Warn().Err(err).Str("local_id", o.LocalID).Msg("cobro en línea fallido, se encola")
	}

	queued, err := uc.queue.Enqueue(ctx, &o)
	if err != nil {
		return CheckoutOutcome{}, fmt.Errorf("encolar pedido %s: %w", o.LocalID, err)
	}
	return CheckoutOutcome{LocalID: queued.LocalID, Queued: true, Order: queued}, nil
}

func (uc *UseCase) replayOnline(ctx context.Context, o *entity.QueuedOrder) (offlinequeue.ReplayOutcome, error) {
	if uc.timeout <= 0 {
		return uc.replayer.Replay(ctx, o)
	}
	rctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	return uc.replayer.Replay(rctx, o)
}

// Refund repone el stock de las líneas devueltas. Requiere conexión: las devoluciones no se encolan.
// RefundID es obligatorio; un reintento con el mismo id no vuelve a reponer.
func (uc *UseCase) Refund(ctx context.Context, in RefundInput) (inventory.ConsumptionResult, error) {
	if in.OrderID == "" || in.RefundID == "" {
		return inventory.ConsumptionResult{}, domain.ErrInvalidInput
	}
	if !uc.conn.Online() {
		return inventory.ConsumptionResult{}, domain.ErrOffline
	}
	return uc.returner.Return(ctx, inventory.ConsumptionInput{
		LocationID:  in.LocationID,
		OrderRef:    in.OrderID,
		OrderNumber: in.OrderNumber,
		ReturnRef:   in.RefundID,
		Lines:       in.Lines,
	})
}
