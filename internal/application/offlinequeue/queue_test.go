package offlinequeue_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jhoicas/pos-inventario/internal/application/offlinequeue"
	"github.com/jhoicas/pos-inventario/internal/domain"
	"github.com/jhoicas/pos-inventario/internal/domain/entity"
	"github.com/jhoicas/pos-inventario/internal/infrastructure/localstore"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loc = "barra"

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeReplayer struct {
	mu    sync.Mutex
	calls []string
	fn    func(ctx context.Context, o *entity.QueuedOrder) error
}

func (r *fakeReplayer) Replay(ctx context.Context, o *entity.QueuedOrder) (offlinequeue.ReplayOutcome, error) {
	r.mu.Lock()
	r.calls = append(r.calls, o.LocalID)
	fn := r.fn
	r.mu.Unlock()
	if fn != nil {
		if err := fn(ctx, o); err != nil {
			return offlinequeue.ReplayOutcome{}, err
		}
	}
	return offlinequeue.ReplayOutcome{OrderID: "central-" + o.LocalID}, nil
}

func (r *fakeReplayer) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func newQueue(t *testing.T, replayer offlinequeue.OrderReplayer, cfg offlinequeue.Config) *offlinequeue.Queue {
	t.Helper()
	store, err := localstore.NewFileStore(afero.NewMemMapFs(), "/queue", nil)
	require.NoError(t, err)
	return offlinequeue.New(store, replayer, cfg, nil)
}

func sale(id string, at time.Time) *entity.QueuedOrder {
	return &entity.QueuedOrder{
		LocalID:    id,
		LocationID: loc,
		CreatedAt:  at,
		Lines: []entity.OrderLine{
			{SoldItemID: "A", Quantity: d("2"), UnitPrice: d("6000")},
		},
		Discount: d("1000"),
	}
}

var t0 = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func TestQueue_EnqueueAssignsIDAndTotals(t *testing.T) {
	q := newQueue(t, &fakeReplayer{}, offlinequeue.Config{})
	ctx := context.Background()

	o := sale("", time.Time{})
	saved, err := q.Enqueue(ctx, o)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.LocalID)
	assert.Empty(t, o.LocalID, "la entrada no se modifica")
	assert.Equal(t, entity.QueueStatusPending, saved.Status)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.True(t, d("12000").Equal(saved.Subtotal))
	assert.True(t, d("11000").Equal(saved.Total))

	pending, err := q.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, saved.LocalID, pending[0].LocalID)
}

func TestQueue_EnqueueValidation(t *testing.T) {
	q := newQueue(t, &fakeReplayer{}, offlinequeue.Config{})
	ctx := context.Background()

	_, err := q.Enqueue(ctx, &entity.QueuedOrder{LocationID: loc})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	bad := sale("x", t0)
	bad.Lines[0].Quantity = d("0")
	_, err = q.Enqueue(ctx, bad)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = q.Enqueue(ctx, sale("dup", t0))
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, sale("dup", t0))
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestQueue_ListPendingOldestFirst(t *testing.T) {
	q := newQueue(t, &fakeReplayer{}, offlinequeue.Config{})
	ctx := context.Background()
	for _, o := range []*entity.QueuedOrder{
		sale("c", t0.Add(2*time.Minute)),
		sale("b", t0),
		sale("a", t0),
		sale("d", t0.Add(time.Minute)),
	} {
		_, err := q.Enqueue(ctx, o)
		require.NoError(t, err)
	}

	pending, err := q.ListPending(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(pending))
	for _, o := range pending {
		ids = append(ids, o.LocalID)
	}
	assert.Equal(t, []string{"a", "b", "d", "c"}, ids)
}

func TestQueue_SyncReplaysInOrderAndRemoves(t *testing.T) {
	rp := &fakeReplayer{}
	q := newQueue(t, rp, offlinequeue.Config{Parallelism: 1})
	ctx := context.Background()
	_, _ = q.Enqueue(ctx, sale("second", t0.Add(time.Second)))
	_, _ = q.Enqueue(ctx, sale("first", t0))

	report, err := q.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, report.Synced)
	assert.Empty(t, report.Failed)
	assert.Equal(t, []string{"first", "second"}, rp.Calls())

	pending, err := q.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestQueue_FailedOrderStaysPending(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	rp := &fakeReplayer{fn: func(context.Context, *entity.QueuedOrder) error {
		if fail.Load() {
			return errors.New("almacén central caído")
		}
		return nil
	}}
	q := newQueue(t, rp, offlinequeue.Config{})
	ctx := context.Background()
	_, _ = q.Enqueue(ctx, sale("o1", t0))

	report, err := q.SyncNow(ctx)
	require.NoError(t, err)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "o1", report.Failed[0].LocalID)

	pending, _ := q.ListPending(ctx)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Contains(t, pending[0].LastError, "almacén central caído")

	fail.Store(false)
	report, err = q.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"o1"}, report.Synced)
	pending, _ = q.ListPending(ctx)
	assert.Empty(t, pending)
}

func TestQueue_ReentrantSyncIsNoop(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	rp := &fakeReplayer{fn: func(context.Context, *entity.QueuedOrder) error {
		close(started)
		<-release
		return nil
	}}
	q := newQueue(t, rp, offlinequeue.Config{OrderTimeout: 5 * time.Second})
	ctx := context.Background()
	_, _ = q.Enqueue(ctx, sale("o1", t0))

	done := make(chan offlinequeue.SyncReport)
	go func() {
		r, _ := q.SyncNow(ctx)
		done <- r
	}()
	<-started

	_, err := q.SyncNow(ctx)
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)
	st, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, st.Syncing)

	close(release)
	report := <-done
	assert.Equal(t, []string{"o1"}, report.Synced)
	assert.Len(t, rp.Calls(), 1)
}

func TestQueue_OrderTimeoutDoesNotBlockPass(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	rp := &fakeReplayer{fn: func(_ context.Context, o *entity.QueuedOrder) error {
		if o.LocalID == "stuck" {
			<-release // ignora el contexto a propósito
		}
		return nil
	}}
	q := newQueue(t, rp, offlinequeue.Config{OrderTimeout: 50 * time.Millisecond})
	ctx := context.Background()
	_, _ = q.Enqueue(ctx, sale("stuck", t0))
	_, _ = q.Enqueue(ctx, sale("ok", t0.Add(time.Second)))

	report, err := q.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, report.Synced)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "stuck", report.Failed[0].LocalID)
	assert.Contains(t, report.Failed[0].Error, context.DeadlineExceeded.Error())

	pending, _ := q.ListPending(ctx)
	require.Len(t, pending, 1)
	assert.Equal(t, "stuck", pending[0].LocalID)
}

func TestQueue_ParallelSyncProcessesAll(t *testing.T) {
	var inFlight, peak atomic.Int32
	rp := &fakeReplayer{fn: func(context.Context, *entity.QueuedOrder) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}}
	q := newQueue(t, rp, offlinequeue.Config{Parallelism: 2})
	ctx := context.Background()
	for i, id := range []string{"o1", "o2", "o3", "o4", "o5"} {
		_, err := q.Enqueue(ctx, sale(id, t0.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
	}

	report, err := q.SyncNow(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Synced, 5)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestQueue_MarkPrintedRemoveAndStats(t *testing.T) {
	q := newQueue(t, &fakeReplayer{}, offlinequeue.Config{})
	ctx := context.Background()
	_, _ = q.Enqueue(ctx, sale("o1", t0))
	_, _ = q.Enqueue(ctx, sale("o2", t0.Add(time.Second)))
	_, _ = q.Enqueue(ctx, sale("o3", t0.Add(2*time.Second)))

	require.NoError(t, q.MarkPrinted(ctx, "o1"))
	require.NoError(t, q.Remove(ctx, "o3"))
	assert.ErrorIs(t, q.Remove(ctx, "o3"), domain.ErrNotFound)
	assert.ErrorIs(t, q.MarkPrinted(ctx, "nope"), domain.ErrNotFound)

	st, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Pending)
	assert.Equal(t, 1, st.Unprinted)
	assert.Nil(t, st.LastReport)

	_, err = q.SyncNow(ctx)
	require.NoError(t, err)
	st, err = q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Pending)
	require.NotNil(t, st.LastReport)
	assert.Len(t, st.LastReport.Synced, 2)
}

type fakeSignal struct {
	online atomic.Bool
	ch     chan bool
}

func (s *fakeSignal) Online() bool         { return s.online.Load() }
func (s *fakeSignal) Changes() <-chan bool { return s.ch }

func (s *fakeSignal) set(v bool) {
	s.online.Store(v)
	s.ch <- v
}

func TestQueue_RunSyncsWhenConnectivityReturns(t *testing.T) {
	rp := &fakeReplayer{}
	q := newQueue(t, rp, offlinequeue.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, _ = q.Enqueue(ctx, sale("o1", t0))

	sig := &fakeSignal{ch: make(chan bool)}
	errCh := make(chan error, 1)
	go func() { errCh <- q.Run(ctx, sig) }()

	assert.Never(t, func() bool { return len(rp.Calls()) > 0 }, 50*time.Millisecond, 5*time.Millisecond,
		"sin conexión no se sincroniza")

	sig.set(true)
	require.Eventually(t, func() bool {
		pending, err := q.ListPending(context.Background())
		return err == nil && len(pending) == 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}
