package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/pos-inventario/internal/domain"
	"github.com/jhoicas/pos-inventario/internal/domain/entity"
	"github.com/jhoicas/pos-inventario/internal/domain/inventory"
	"github.com/jhoicas/pos-inventario/internal/domain/repository"
	"github.com/jhoicas/pos-inventario/pkg/logger"
	"github.com/shopspring/decimal"
)

// Direction sentido de la aplicación: consumo por venta o devolución.
type Direction string

const (
	DirectionConsume Direction = "consume"
	DirectionReturn  Direction = "return"
)

// ConsumptionInput líneas de un pedido a descontar (o reponer) en una ubicación.
type ConsumptionInput struct {
	LocationID  string
	OrderRef    string // id central del pedido; base de las claves de idempotencia en ventas
	OrderNumber string // número visible, usado en la nota de devolución
	ReturnRef   string // id de la devolución, obligatorio al reponer; base de sus claves de idempotencia
	Lines       []entity.OrderLine
}

// AppliedDelta delta agregado escrito en el libro. AlreadyApplied indica que la clave de
// idempotencia ya existía (reintento) y la existencia no se volvió a modificar.
type AppliedDelta struct {
	entity.StockKey
	Quantity       decimal.Decimal
	MovementID     string
	AlreadyApplied bool
}

// FailedDelta delta agregado que el libro no pudo aplicar.
type FailedDelta struct {
	entity.StockKey
	Quantity decimal.Decimal
	Err      error
}

// SkippedComponent rama de receta omitida, con el producto vendido que la originó.
type SkippedComponent struct {
	SoldItemID string
	inventory.SkippedComponent
}

// ConsumptionResult distingue deltas aplicados, componentes omitidos y deltas fallidos.
type ConsumptionResult struct {
	Applied  []AppliedDelta
	Skipped  []SkippedComponent
	Failed   []FailedDelta
	NoRecipe []string // productos vendidos sin receta: sin efecto en stock
}

// Complete indica que todos los deltas quedaron aplicados.
func (r ConsumptionResult) Complete() bool {
	return len(r.Failed) == 0
}

// Err une los errores de los deltas fallidos (nil si el resultado está completo).
func (r ConsumptionResult) Err() error {
	if r.Complete() {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("%s %s: %w", f.StockKey, f.Quantity, f.Err))
	}
	return errors.Join(errs...)
}

// MovementEvent evento publicado por cada movimiento aplicado.
type MovementEvent struct {
	MovementID  string          `json:"movement_id"`
	LocationID  string          `json:"location_id"`
	StockItemID string          `json:"stock_item_id"`
	Kind        string          `json:"kind"`
	Quantity    decimal.Decimal `json:"quantity"`
	OrderRef    string          `json:"order_ref,omitempty"`
	Note        string          `json:"note,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// ConsumptionService orquesta receta → explosión → deltas agregados → libro. No guarda estado
// propio salvo los candados por clave que serializan sus propias escrituras.
type ConsumptionService struct {
	recipes   repository.RecipeRepository
	ledger    repository.StockLedger
	publisher MovementPublisher
	subject   string
	locks     keyLocks
	log       *logger.Logger
}

// ConsumptionOption configuración opcional del servicio.
type ConsumptionOption func(*ConsumptionService)

// WithMovementPublisher publica cada movimiento aplicado en subject (best-effort).
func WithMovementPublisher(p MovementPublisher, subject string) ConsumptionOption {
	return func(s *ConsumptionService) {
		s.publisher = p
		s.subject = subject
	}
}

// NewConsumptionService construye el servicio de consumo.
func NewConsumptionService(
	recipes repository.RecipeRepository,
	ledger repository.StockLedger,
	log *logger.Logger,
	opts ...ConsumptionOption,
) *ConsumptionService {
	if log == nil {
		log = logger.Nop()
	}
	s := &ConsumptionService{
		recipes: recipes,
		ledger:  ledger,
		log:     log.Component("consumption"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Consume descuenta del stock los insumos de las líneas vendidas.
func (s *ConsumptionService) Consume(ctx context.Context, in ConsumptionInput) (ConsumptionResult, error) {
	return s.Apply(ctx, in, DirectionConsume)
}

// Return repone al stock los insumos de las líneas devueltas.
func (s *ConsumptionService) Return(ctx context.Context, in ConsumptionInput) (ConsumptionResult, error) {
	return s.Apply(ctx, in, DirectionReturn)
}

// Apply resuelve y expande todas las líneas antes de escribir: un error de lectura de recetas se
// devuelve sin haber tocado el libro. Luego aplica un delta por (ubicación, insumo); un fallo en un
// insumo no bloquea los demás y queda en Failed.
func (s *ConsumptionService) Apply(ctx context.Context, in ConsumptionInput, dir Direction) (ConsumptionResult, error) {
	if in.LocationID == "" || (dir != DirectionConsume && dir != DirectionReturn) {
		return ConsumptionResult{}, domain.ErrInvalidInput
	}
	if dir == DirectionReturn && in.ReturnRef == "" {
		return ConsumptionResult{}, fmt.Errorf("devolución sin id: %w", domain.ErrInvalidInput)
	}
	for _, line := range in.Lines {
		if line.SoldItemID == "" || line.Quantity.IsNegative() {
			return ConsumptionResult{}, domain.ErrInvalidInput
		}
	}

	var result ConsumptionResult
	deltas, err := s.plan(ctx, in, dir, &result)
	if err != nil {
		return ConsumptionResult{}, err
	}

	for _, delta := range deltas {
		s.applyOne(ctx, delta, &result)
	}
	return result, nil
}

// plan devuelve los deltas agregados por clave, en el orden en que cada clave apareció.
func (s *ConsumptionService) plan(ctx context.Context, in ConsumptionInput, dir Direction, result *ConsumptionResult) ([]entity.StockDelta, error) {
	expander := inventory.NewBOMExpander(inventory.NewMemoSource(s.recipes))
	totals := make(map[entity.StockKey]decimal.Decimal)
	var order []entity.StockKey

	for _, line := range in.Lines {
		if line.Quantity.IsZero() {
			continue
		}
		recipe, err := s.recipes.GetRecipeLines(ctx, line.SoldItemID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("receta de %s: %w", line.SoldItemID, err)
		}
		if len(recipe) == 0 {
			result.NoRecipe = append(result.NoRecipe, line.SoldItemID)
			continue
		}
		for _, rl := range recipe {
			x, err := expander.Expand(ctx, rl.Component, rl.Quantity, line.Quantity)
			if err != nil {
				return nil, fmt.Errorf("explosión de %s: %w", line.SoldItemID, err)
			}
			for _, sk := range x.Skipped {
				s.logSkipped(line.SoldItemID, sk)
				result.Skipped = append(result.Skipped, SkippedComponent{SoldItemID: line.SoldItemID, SkippedComponent: sk})
			}
			for _, req := range x.Requirements {
				key := entity.StockKey{LocationID: in.LocationID, StockItemID: req.StockItemID}
				if _, seen := totals[key]; !seen {
					order = append(order, key)
				}
				totals[key] = totals[key].Add(req.Quantity)
			}
		}
	}

	kind, note, refKey := entity.MovementKindSale, "", "sale:"+in.OrderRef
	if dir == DirectionReturn {
		kind = entity.MovementKindReturn
		number := in.OrderNumber
		if number == "" {
			number = in.OrderRef
		}
		note = fmt.Sprintf("devolución del pedido #%s", number)
		refKey = "return:" + in.ReturnRef
	}

	deltas := make([]entity.StockDelta, 0, len(order))
	for _, key := range order {
		qty := totals[key]
		if qty.IsZero() {
			continue
		}
		if dir == DirectionConsume {
			qty = qty.Neg()
		}
		delta := entity.StockDelta{
			LocationID:  key.LocationID,
			StockItemID: key.StockItemID,
			Quantity:    qty,
			Kind:        kind,
			Note:        note,
			OrderRef:    in.OrderRef,
		}
		if in.OrderRef != "" || dir == DirectionReturn {
			delta.IdempotencyKey = strings.Join([]string{refKey, key.LocationID, key.StockItemID}, ":")
		}
		deltas = append(deltas, delta)
	}
	return deltas, nil
}

func (s *ConsumptionService) applyOne(ctx context.Context, delta entity.StockDelta, result *ConsumptionResult) {
	key := delta.Key()
	unlock := s.locks.lock(key)
	mov, err := s.ledger.ApplyDelta(ctx, delta)
	unlock()

	switch {
	case errors.Is(err, domain.ErrDuplicate):
		result.Applied = append(result.Applied, AppliedDelta{StockKey: key, Quantity: delta.Quantity, AlreadyApplied: true})
	case err != nil:
		s.log.Error().Err(err).
			Str("key", key.String()).
			Str("quantity", delta.Quantity.String()).
			Str("order_ref", delta.OrderRef).
			Msg("no se pudo aplicar el delta de stock")
		result.Failed = append(result.Failed, FailedDelta{StockKey: key, Quantity: delta.Quantity, Err: err})
	default:
		result.Applied = append(result.Applied, AppliedDelta{StockKey: key, Quantity: delta.Quantity, MovementID: mov.ID})
		s.publish(ctx, mov)
	}
}

func (s *ConsumptionService) publish(ctx context.Context, mov *entity.MovementRecord) {
	if s.publisher == nil {
		return
	}
	data, err := json.Marshal(MovementEvent{
		MovementID:  mov.ID,
		LocationID:  mov.LocationID,
		StockItemID: mov.StockItemID,
		Kind:        mov.Kind,
		Quantity:    mov.Quantity,
		OrderRef:    mov.OrderRef,
		Note:        mov.Note,
		OccurredAt:  mov.CreatedAt,
	})
	if err == nil {
		err = s.publisher.Publish(ctx, s.subject, data)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("movement_id", mov.ID).Msg("publicar evento de movimiento")
	}
}

func (s *ConsumptionService) logSkipped(soldItemID string, sk inventory.SkippedComponent) {
	ev := s.log.Warn()
	if sk.Reason == inventory.SkipCycle {
		// Ciclo = error de modelado de datos aguas arriba.
		ev = s.log.Error().Err(domain.ErrCycleDetected)
	}
	ev.Str("sold_item_id", soldItemID).
		Str("component_id", sk.ComponentID).
		Strs("path", sk.Path).
		Str("reason", sk.Reason).
		Msg("componente de receta omitido")
}

// keyLocks serializa las escrituras de este proceso por (ubicación, insumo).
type keyLocks struct {
	m sync.Map // entity.StockKey -> *sync.Mutex
}

func (l *keyLocks) lock(key entity.StockKey) func() {
	v, _ := l.m.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
