package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/pos-inventario/internal/domain"
	"github.com/jhoicas/pos-inventario/internal/domain/entity"
	"github.com/jhoicas/pos-inventario/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.StockLedger = (*Ledger)(nil)

// Ledger libro de existencias en memoria. ApplyDelta es atómico bajo un único mutex.
type Ledger struct {
	mu        sync.Mutex
	stock     map[entity.StockKey]decimal.Decimal
	movements []*entity.MovementRecord
	applied   map[string]bool
	now       func() time.Time
}

// NewLedger construye un libro vacío.
func NewLedger() *Ledger {
	return &Ledger{
		stock:   make(map[entity.StockKey]decimal.Decimal),
		applied: make(map[string]bool),
		now:     time.Now,
	}
}

// SetQuantity fija la existencia inicial de una clave (sin movimiento).
func (l *Ledger) SetQuantity(locationID, stockItemID string, qty decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stock[entity.StockKey{LocationID: locationID, StockItemID: stockItemID}] = qty
}

// GetQuantity devuelve cero para claves sin existencia registrada.
func (l *Ledger) GetQuantity(_ context.Context, locationID, stockItemID string) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stock[entity.StockKey{LocationID: locationID, StockItemID: stockItemID}], nil
}

// ApplyDelta incrementa la existencia y agrega el movimiento.
func (l *Ledger) ApplyDelta(_ context.Context, delta entity.StockDelta) (*entity.MovementRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if delta.IdempotencyKey != "" {
		if l.applied[delta.IdempotencyKey] {
			return nil, domain.ErrDuplicate
		}
		l.applied[delta.IdempotencyKey] = true
	}
	key := delta.Key()
	l.stock[key] = l.stock[key].Add(delta.Quantity)
	mov := &entity.MovementRecord{
		ID:             uuid.NewString(),
		IdempotencyKey: delta.IdempotencyKey,
		LocationID:     delta.LocationID,
		StockItemID:    delta.StockItemID,
		Kind:           delta.Kind,
		Quantity:       delta.Quantity,
		Note:           delta.Note,
		OrderRef:       delta.OrderRef,
		CreatedAt:      l.now(),
	}
	l.movements = append(l.movements, mov)
	return mov, nil
}

// MovementsByOrder movimientos con el OrderRef dado, en orden de aplicación.
func (l *Ledger) MovementsByOrder(_ context.Context, orderRef string) ([]*entity.MovementRecord, error) {
	if orderRef == "" {
		return nil, domain.ErrInvalidInput
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*entity.MovementRecord
	for _, m := range l.movements {
		if m.OrderRef == orderRef {
			out = append(out, m)
		}
	}
	return out, nil
}

// Movements copia del registro de movimientos en orden de aplicación.
func (l *Ledger) Movements() []*entity.MovementRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*entity.MovementRecord, len(l.movements))
	copy(out, l.movements)
	return out
}
