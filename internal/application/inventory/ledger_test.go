package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	appinventory "github.com/jhoicas/pos-inventario/internal/application/inventory"
	"github.com/jhoicas/pos-inventario/internal/domain"
	"github.com/jhoicas/pos-inventario/internal/domain/entity"
	"github.com/jhoicas/pos-inventario/internal/domain/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDB base en memoria con semántica de transacción: Run trabaja sobre una copia y solo la
// publica si fn no devuelve error.
type fakeDB struct {
	mu        sync.Mutex
	stock     map[entity.StockKey]decimal.Decimal
	movements []*entity.MovementRecord
	failStock error
}

func newFakeDB() *fakeDB {
	return &fakeDB{stock: map[entity.StockKey]decimal.Decimal{}}
}

type fakeTx struct {
	db        *fakeDB
	stock     map[entity.StockKey]decimal.Decimal
	movements []*entity.MovementRecord
}

func (db *fakeDB) Run(_ context.Context, fn func(repository.StockMovementRepository, repository.StockRepository) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	tx := &fakeTx{db: db, stock: map[entity.StockKey]decimal.Decimal{}}
	for k, v := range db.stock {
		tx.stock[k] = v
	}
	tx.movements = append(tx.movements, db.movements...)
	if err := fn(tx, tx); err != nil {
		return err
	}
	db.stock = tx.stock
	db.movements = tx.movements
	return nil
}

func (tx *fakeTx) Create(_ context.Context, m *entity.MovementRecord) error {
	if m.IdempotencyKey != "" {
		for _, existing := range tx.movements {
			if existing.IdempotencyKey == m.IdempotencyKey {
				return domain.ErrDuplicate
			}
		}
	}
	tx.movements = append(tx.movements, m)
	return nil
}

func (tx *fakeTx) ListByOrder(_ context.Context, orderRef string) ([]*entity.MovementRecord, error) {
	var out []*entity.MovementRecord
	for _, m := range tx.movements {
		if m.OrderRef == orderRef {
			out = append(out, m)
		}
	}
	return out, nil
}

func (tx *fakeTx) Get(_ context.Context, locationID, stockItemID string) (*entity.StockItem, error) {
	key := entity.StockKey{LocationID: locationID, StockItemID: stockItemID}
	return &entity.StockItem{LocationID: locationID, StockItemID: stockItemID, QuantityOnHand: tx.stock[key]}, nil
}

func (tx *fakeTx) Increment(_ context.Context, locationID, stockItemID string, delta decimal.Decimal) (decimal.Decimal, error) {
	if tx.db.failStock != nil {
		return decimal.Zero, tx.db.failStock
	}
	key := entity.StockKey{LocationID: locationID, StockItemID: stockItemID}
	tx.stock[key] = tx.stock[key].Add(delta)
	return tx.stock[key], nil
}

// reader lecturas fuera de transacción sobre el estado confirmado.
type reader struct{ db *fakeDB }

func (r reader) Get(ctx context.Context, locationID, stockItemID string) (*entity.StockItem, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return (&fakeTx{db: r.db, stock: r.db.stock}).Get(ctx, locationID, stockItemID)
}

func (r reader) Increment(context.Context, string, string, decimal.Decimal) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("solo lectura")
}

func (r reader) Create(context.Context, *entity.MovementRecord) error {
	return errors.New("solo lectura")
}

func (r reader) ListByOrder(ctx context.Context, orderRef string) ([]*entity.MovementRecord, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return (&fakeTx{db: r.db, movements: r.db.movements}).ListByOrder(ctx, orderRef)
}

func newLedger(db *fakeDB) *appinventory.LedgerService {
	return appinventory.NewLedgerService(db, reader{db: db}, reader{db: db}, 6)
}

func TestLedger_ApplyDeltaIncrementsAndRecords(t *testing.T) {
	db := newFakeDB()
	ledger := newLedger(db)

	mov, err := ledger.ApplyDelta(context.Background(), entity.StockDelta{
		LocationID: loc, StockItemID: "sugar", Quantity: d("-0.05"),
		Kind: entity.MovementKindSale, OrderRef: "order-1", IdempotencyKey: "sale:order-1:loc:sugar",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, mov.ID)

	q, err := ledger.GetQuantity(context.Background(), loc, "sugar")
	require.NoError(t, err)
	assertQty(t, "-0.05", q, "la existencia puede quedar negativa")
	require.Len(t, db.movements, 1)
}

func TestLedger_DuplicateKeyDoesNotChangeStock(t *testing.T) {
	db := newFakeDB()
	ledger := newLedger(db)
	delta := entity.StockDelta{
		LocationID: loc, StockItemID: "water", Quantity: d("-0.35"),
		Kind: entity.MovementKindSale, IdempotencyKey: "sale:order-1:loc:water",
	}

	_, err := ledger.ApplyDelta(context.Background(), delta)
	require.NoError(t, err)
	_, err = ledger.ApplyDelta(context.Background(), delta)
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	q, _ := ledger.GetQuantity(context.Background(), loc, "water")
	assertQty(t, "-0.35", q)
	assert.Len(t, db.movements, 1)
}

func TestLedger_FailedIncrementRollsBackMovement(t *testing.T) {
	db := newFakeDB()
	db.failStock = errors.New("deadlock")
	ledger := newLedger(db)

	_, err := ledger.ApplyDelta(context.Background(), entity.StockDelta{
		LocationID: loc, StockItemID: "milk", Quantity: d("1"), Kind: entity.MovementKindSupply,
	})
	require.Error(t, err)
	assert.Empty(t, db.movements)
}

func TestLedger_RoundsAtWriteTime(t *testing.T) {
	db := newFakeDB()
	ledger := newLedger(db)

	mov, err := ledger.ApplyDelta(context.Background(), entity.StockDelta{
		LocationID: loc, StockItemID: "flour", Quantity: d("-0.3333333333333333"), Kind: entity.MovementKindSale,
	})
	require.NoError(t, err)
	assertQty(t, "-0.333333", mov.Quantity)
}

func TestLedger_RejectsUnknownKind(t *testing.T) {
	ledger := newLedger(newFakeDB())

	_, err := ledger.ApplyDelta(context.Background(), entity.StockDelta{
		LocationID: loc, StockItemID: "flour", Quantity: d("1"), Kind: "gift",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLedger_TransferMovesBetweenLocations(t *testing.T) {
	db := newFakeDB()
	ledger := newLedger(db)

	require.NoError(t, ledger.Transfer(context.Background(), "bodega", loc, "coffee", d("2.5"), "reposición barra"))

	from, _ := ledger.GetQuantity(context.Background(), "bodega", "coffee")
	to, _ := ledger.GetQuantity(context.Background(), loc, "coffee")
	assertQty(t, "-2.5", from)
	assertQty(t, "2.5", to)
	require.Len(t, db.movements, 2)
	assert.Equal(t, db.movements[0].OrderRef, db.movements[1].OrderRef)

	assert.ErrorIs(t, ledger.Transfer(context.Background(), loc, loc, "coffee", d("1"), ""), domain.ErrInvalidInput)
}

func TestLedger_MovementsByOrder(t *testing.T) {
	db := newFakeDB()
	ledger := newLedger(db)
	ctx := context.Background()

	for _, item := range []string{"coffee", "sugar"} {
		_, err := ledger.ApplyDelta(ctx, entity.StockDelta{
			LocationID: loc, StockItemID: item, Quantity: d("-1"),
			Kind: entity.MovementKindSale, OrderRef: "order-7", IdempotencyKey: "sale:order-7:" + loc + ":" + item,
		})
		require.NoError(t, err)
	}
	_, err := ledger.ApplyDelta(ctx, entity.StockDelta{
		LocationID: loc, StockItemID: "coffee", Quantity: d("-1"), Kind: entity.MovementKindSale, OrderRef: "order-8",
	})
	require.NoError(t, err)

	movs, err := ledger.MovementsByOrder(ctx, "order-7")
	require.NoError(t, err)
	require.Len(t, movs, 2)
	assert.Equal(t, "coffee", movs[0].StockItemID)
	assert.Equal(t, "sugar", movs[1].StockItemID)

	_, err = ledger.MovementsByOrder(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
