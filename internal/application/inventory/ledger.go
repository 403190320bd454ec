package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/pos-inventario/internal/domain"
	"github.com/jhoicas/pos-inventario/internal/domain/entity"
	"github.com/jhoicas/pos-inventario/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.StockLedger = (*LedgerService)(nil)

// LedgerService cliente del libro de existencias sobre TxRunner: cada delta incrementa la existencia
// y agrega su movimiento en la misma transacción (Commit/Rollback los hace TxRunner.Run).
type LedgerService struct {
	txRunner  TxRunner
	stock     repository.StockRepository
	movements repository.StockMovementRepository
	scale     int32
	now       func() time.Time
}

// NewLedgerService construye el cliente. stock y movements se usan para lecturas fuera de
// transacción; scale es la cantidad de decimales con que se escribe cada delta.
func NewLedgerService(
	txRunner TxRunner,
	stock repository.StockRepository,
	movements repository.StockMovementRepository,
	scale int32,
) *LedgerService {
	return &LedgerService{txRunner: txRunner, stock: stock, movements: movements, scale: scale, now: time.Now}
}

// GetQuantity devuelve la existencia actual (cero si la fila no existe).
func (s *LedgerService) GetQuantity(ctx context.Context, locationID, stockItemID string) (decimal.Decimal, error) {
	item, err := s.stock.Get(ctx, locationID, stockItemID)
	if err != nil {
		return decimal.Zero, err
	}
	return item.QuantityOnHand, nil
}

// MovementsByOrder movimientos registrados para un pedido (o traslado), en orden de creación.
func (s *LedgerService) MovementsByOrder(ctx context.Context, orderRef string) ([]*entity.MovementRecord, error) {
	if orderRef == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.movements.ListByOrder(ctx, orderRef)
}

// ApplyDelta inserta primero el movimiento (la clave de idempotencia se valida ahí) y luego
// incrementa la existencia. Un duplicado devuelve domain.ErrDuplicate y la tx se revierte.
func (s *LedgerService) ApplyDelta(ctx context.Context, delta entity.StockDelta) (*entity.MovementRecord, error) {
	if delta.LocationID == "" || delta.StockItemID == "" || !entity.ValidMovementKind(delta.Kind) {
		return nil, domain.ErrInvalidInput
	}
	mov := s.movement(delta)

	err := s.txRunner.Run(ctx, func(movRepo repository.StockMovementRepository, stockRepo repository.StockRepository) error {
		if err := movRepo.Create(ctx, mov); err != nil {
			return err
		}
		_, err := stockRepo.Increment(ctx, delta.LocationID, delta.StockItemID, mov.Quantity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}

// Transfer mueve qty de un insumo entre dos ubicaciones en una sola transacción
// (dos movimientos de tipo transfer).
func (s *LedgerService) Transfer(ctx context.Context, fromLocationID, toLocationID, stockItemID string, qty decimal.Decimal, note string) error {
	if fromLocationID == "" || toLocationID == "" || fromLocationID == toLocationID || !qty.GreaterThan(decimal.Zero) {
		return domain.ErrInvalidInput
	}
	txID := uuid.NewString()
	out := s.movement(entity.StockDelta{
		LocationID: fromLocationID, StockItemID: stockItemID, Quantity: qty.Neg(),
		Kind: entity.MovementKindTransfer, Note: note, OrderRef: txID,
	})
	in := s.movement(entity.StockDelta{
		LocationID: toLocationID, StockItemID: stockItemID, Quantity: qty,
		Kind: entity.MovementKindTransfer, Note: note, OrderRef: txID,
	})

	return s.txRunner.Run(ctx, func(movRepo repository.StockMovementRepository, stockRepo repository.StockRepository) error {
		for _, mov := range []*entity.MovementRecord{out, in} {
			if err := movRepo.Create(ctx, mov); err != nil {
				return err
			}
			if _, err := stockRepo.Increment(ctx, mov.LocationID, mov.StockItemID, mov.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *LedgerService) movement(delta entity.StockDelta) *entity.MovementRecord {
	return &entity.MovementRecord{
		ID:             uuid.NewString(),
		IdempotencyKey: delta.IdempotencyKey,
		LocationID:     delta.LocationID,
		StockItemID:    delta.StockItemID,
		Kind:           delta.Kind,
		Quantity:       delta.Quantity.Round(s.scale),
		Note:           delta.Note,
		OrderRef:       delta.OrderRef,
		CreatedAt:      s.now(),
	}
}
