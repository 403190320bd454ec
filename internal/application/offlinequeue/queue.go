package offlinequeue

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/pos-inventario/internal/application/inventory"
	"github.com/jhoicas/pos-inventario/internal/domain"
	"github.com/jhoicas/pos-inventario/internal/domain/entity"
	"github.com/jhoicas/pos-inventario/internal/domain/repository"
	"github.com/jhoicas/pos-inventario/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// OrderReplayer puerto que reproduce un pedido encolado contra el almacén central.
type OrderReplayer interface {
	Replay(ctx context.Context, order *entity.QueuedOrder) (ReplayOutcome, error)
}

// ConnectivitySignal estado de conexión con el almacén central y sus transiciones.
type ConnectivitySignal interface {
	Online() bool
	Changes() <-chan bool
}

// Config parámetros de sincronización.
type Config struct {
	OrderTimeout  time.Duration // tiempo máximo por pedido dentro de una pasada
	Parallelism   int           // pedidos reproducidos a la vez (1 = estrictamente en orden)
	RetryInterval time.Duration // reintento periódico mientras haya conexión (0 = desactivado)
}

// OrderFailure pedido que no se pudo sincronizar en una pasada.
type OrderFailure struct {
	LocalID string `json:"local_id"`
	Error   string `json:"error"`
}

// SyncReport resultado de una pasada de sincronización.
type SyncReport struct {
	StartedAt  time.Time                    `json:"started_at"`
	FinishedAt time.Time                    `json:"finished_at"`
	Synced     []string                     `json:"synced"`
	Failed     []OrderFailure               `json:"failed"`
	Skipped    []inventory.SkippedComponent `json:"skipped,omitempty"`
}

// Stats estado resumido de la cola.
type Stats struct {
	Pending    int         `json:"pending"`
	Unprinted  int         `json:"unprinted"`
	Syncing    bool        `json:"syncing"`
	LastSyncAt *time.Time  `json:"last_sync_at,omitempty"`
	LastReport *SyncReport `json:"last_report,omitempty"`
}

// Queue cola offline de pedidos: persiste ventas hechas sin conexión y las reproduce con
// garantía de aplicación única cuando vuelve la conectividad. Solo corre una pasada a la vez.
type Queue struct {
	storage  repository.QueueStorage
	replayer OrderReplayer
	cfg      Config
	log      *logger.Logger

	syncing atomic.Bool
	storeMu sync.Mutex // serializa leer-modificar-guardar sobre un mismo documento

	statsMu    sync.Mutex
	lastReport *SyncReport

	now   func() time.Time
	newID func() (string, error)
}

// New construye la cola.
func New(storage repository.QueueStorage, replayer OrderReplayer, cfg Config, log *logger.Logger) *Queue {
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	if cfg.OrderTimeout <= 0 {
		cfg.OrderTimeout = 15 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Queue{
		storage:  storage,
		replayer: replayer,
		cfg:      cfg,
		log:      log.Component("offline_queue"),
		now:      time.Now,
		newID:    newLocalID,
	}
}

func newLocalID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Enqueue persiste el pedido como pendiente y devuelve la copia guardada. Si LocalID viene vacío
// se asigna uno nuevo; un LocalID ya encolado devuelve domain.ErrDuplicate.
func (q *Queue) Enqueue(ctx context.Context, order *entity.QueuedOrder) (*entity.QueuedOrder, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}

	o := *order
	o.Lines = slices.Clone(order.Lines)
	if o.LocalID == "" {
		id, err := q.newID()
		if err != nil {
			return nil, fmt.Errorf("generar id local: %w", err)
		}
		o.LocalID = id
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = q.now()
	}
	o.Status = entity.QueueStatusPending
	o.Attempts = 0
	o.LastError = ""
	o.ComputeTotals()

	q.storeMu.Lock()
	defer q.storeMu.Unlock()
	if _, err := q.storage.Get(ctx, o.LocalID); err == nil {
		return nil, domain.ErrDuplicate
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err := q.storage.Save(ctx, &o); err != nil {
		return nil, fmt.Errorf("guardar pedido %s: %w", o.LocalID, err)
	}

	q.log.Info().Str("local_id", o.LocalID).Int("lines", len(o.Lines)).Msg("pedido encolado offline")
	return &o, nil
}

// ListPending pedidos pendientes, del más antiguo al más reciente.
func (q *Queue) ListPending(ctx context.Context) ([]*entity.QueuedOrder, error) {
	all, err := q.storage.List(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]*entity.QueuedOrder, 0, len(all))
	for _, o := range all {
		if o.IsPending() {
			pending = append(pending, o)
		}
	}
	sortOldestFirst(pending)
	return pending, nil
}

// Remove descarta un pedido pendiente sin sincronizarlo (p. ej. venta anulada en caja).
func (q *Queue) Remove(ctx context.Context, localID string) error {
	q.storeMu.Lock()
	defer q.storeMu.Unlock()
	if _, err := q.storage.Get(ctx, localID); err != nil {
		return err
	}
	if err := q.storage.Delete(ctx, localID); err != nil {
		return err
	}
	q.log.Warn().Str("local_id", localID).Msg("pedido eliminado de la cola sin sincronizar")
	return nil
}

// MarkPrinted registra que el tiquete del pedido ya se imprimió.
func (q *Queue) MarkPrinted(ctx context.Context, localID string) error {
	return q.update(ctx, localID, func(o *entity.QueuedOrder) {
		o.Printed = true
	})
}

// Stats resumen de la cola y de la última pasada.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	pending, err := q.ListPending(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Pending: len(pending), Syncing: q.syncing.Load()}
	for _, o := range pending {
		if !o.Printed {
			st.Unprinted++
		}
	}
	q.statsMu.Lock()
	if q.lastReport != nil {
		r := *q.lastReport
		st.LastReport = &r
		st.LastSyncAt = &r.FinishedAt
	}
	q.statsMu.Unlock()
	return st, nil
}

// SyncNow ejecuta una pasada: reproduce los pendientes en orden de creación (con Parallelism > 1 en
// lotes acotados). Un pedido confirmado se elimina; uno fallido sigue pendiente con Attempts y
// LastError actualizados. Si ya hay una pasada en curso devuelve domain.ErrSyncInProgress sin hacer nada.
func (q *Queue) SyncNow(ctx context.Context) (SyncReport, error) {
	if !q.syncing.CompareAndSwap(false, true) {
		return SyncReport{}, domain.ErrSyncInProgress
	}
	defer q.syncing.Store(false)

	report := SyncReport{StartedAt: q.now()}
	all, err := q.storage.List(ctx)
	if err != nil {
		return report, fmt.Errorf("listar cola: %w", err)
	}

	pending := make([]*entity.QueuedOrder, 0, len(all))
	for _, o := range all {
		if o.IsPending() {
			pending = append(pending, o)
			continue
		}
		// Confirmado en una pasada anterior pero no se alcanzó a borrar.
		q.purge(ctx, o.LocalID)
	}
	sortOldestFirst(pending)

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(q.cfg.Parallelism)
	for _, o := range pending {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out, err := q.replayWithTimeout(ctx, o)
			q.finish(ctx, o, out, err, &report, &mu)
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = q.now()
	q.statsMu.Lock()
	r := report
	q.lastReport = &r
	q.statsMu.Unlock()

	if len(report.Synced) > 0 || len(report.Failed) > 0 {
		q.log.Info().
			Int("synced", len(report.Synced)).
			Int("failed", len(report.Failed)).
			Dur("took", report.FinishedAt.Sub(report.StartedAt)).
			Msg("pasada de sincronización terminada")
	}
	return report, ctx.Err()
}

// Run dispara SyncNow al recuperar la conexión y periódicamente mientras siga en línea.
// Bloquea hasta que ctx se cancele.
func (q *Queue) Run(ctx context.Context, signal ConnectivitySignal) error {
	var tick <-chan time.Time
	if q.cfg.RetryInterval > 0 {
		t := time.NewTicker(q.cfg.RetryInterval)
		defer t.Stop()
		tick = t.C
	}
	changes := signal.Changes()

	if signal.Online() {
		q.trigger(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case online, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			if online {
				q.log.Info().Msg("conexión recuperada, sincronizando cola")
				q.trigger(ctx)
			}
		case <-tick:
			if signal.Online() {
				q.trigger(ctx)
			}
		}
	}
}

func (q *Queue) trigger(ctx context.Context) {
	if _, err := q.SyncNow(ctx); err != nil && !errors.Is(err, domain.ErrSyncInProgress) && ctx.Err() == nil {
		q.log.Error().Err(err).Msg("pasada de sincronización fallida")
	}
}

// replayWithTimeout no espera más de OrderTimeout aunque el reproductor ignore el contexto;
// en ese caso el pedido sigue pendiente y el reintento es seguro por idempotencia.
func (q *Queue) replayWithTimeout(ctx context.Context, o *entity.QueuedOrder) (ReplayOutcome, error) {
	octx, cancel := context.WithTimeout(ctx, q.cfg.OrderTimeout)
	defer cancel()

	type result struct {
		out ReplayOutcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := q.replayer.Replay(octx, o)
		done <- result{out, err}
	}()

	select {
	case r := <-done:
		return r.out, r.err
	case <-octx.Done():
		return ReplayOutcome{}, fmt.Errorf("pedido %s: %w", o.LocalID, octx.Err())
	}
}

func (q *Queue) finish(ctx context.Context, o *entity.QueuedOrder, out ReplayOutcome, err error, report *SyncReport, mu *sync.Mutex) {
	mu.Lock()
	report.Skipped = append(report.Skipped, out.Consumption.Skipped...)
	mu.Unlock()

	if err != nil {
		q.log.Warn().Err(err).Str("local_id", o.LocalID).Int("attempt", o.Attempts+1).Msg("no se pudo sincronizar el pedido")
		if uerr := q.update(ctx, o.LocalID, func(doc *entity.QueuedOrder) {
			doc.Attempts++
			doc.LastError = err.Error()
		}); uerr != nil && !errors.Is(uerr, domain.ErrNotFound) {
			q.log.Error().Err(uerr).Str("local_id", o.LocalID).Msg("no se pudo registrar el intento fallido")
		}
		mu.Lock()
		report.Failed = append(report.Failed, OrderFailure{LocalID: o.LocalID, Error: err.Error()})
		mu.Unlock()
		return
	}

	if uerr := q.update(ctx, o.LocalID, func(doc *entity.QueuedOrder) {
		doc.Status = entity.QueueStatusSynced
		doc.LastError = ""
	}); uerr != nil && !errors.Is(uerr, domain.ErrNotFound) {
		q.log.Error().Err(uerr).Str("local_id", o.LocalID).Msg("no se pudo marcar el pedido como sincronizado")
	}
	q.purge(ctx, o.LocalID)

	q.log.Info().Str("local_id", o.LocalID).Str("order_id", out.OrderID).Msg("pedido sincronizado")
	mu.Lock()
	report.Synced = append(report.Synced, o.LocalID)
	mu.Unlock()
}

func (q *Queue) purge(ctx context.Context, localID string) {
	q.storeMu.Lock()
	defer q.storeMu.Unlock()
	if err := q.storage.Delete(ctx, localID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		q.log.Error().Err(err).Str("local_id", localID).Msg("no se pudo borrar el pedido sincronizado")
	}
}

func (q *Queue) update(ctx context.Context, localID string, fn func(*entity.QueuedOrder)) error {
	q.storeMu.Lock()
	defer q.storeMu.Unlock()
	doc, err := q.storage.Get(ctx, localID)
	if err != nil {
		return err
	}
	fn(doc)
	return q.storage.Save(ctx, doc)
}

func sortOldestFirst(orders []*entity.QueuedOrder) {
	slices.SortStableFunc(orders, func(a, b *entity.QueuedOrder) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.LocalID, b.LocalID)
	})
}
