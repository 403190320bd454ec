package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jhoicas/pos-inventario/internal/domain"
	"github.com/jhoicas/pos-inventario/internal/domain/entity"
	"github.com/jhoicas/pos-inventario/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderStore)(nil)

// OrderStore almacén de pedidos en memoria con deduplicación por clave de idempotencia.
type OrderStore struct {
	mu      sync.Mutex
	byKey   map[string]string
	headers map[string]entity.OrderHeader
	lines   map[string][]entity.OrderLine
}

// NewOrderStore construye un almacén vacío.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		byKey:   make(map[string]string),
		headers: make(map[string]entity.OrderHeader),
		lines:   make(map[string][]entity.OrderLine),
	}
}

// CreateOrder devuelve el id existente si la clave ya fue registrada.
func (s *OrderStore) CreateOrder(_ context.Context, header entity.OrderHeader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if header.IdempotencyKey != "" {
		if id, ok := s.byKey[header.IdempotencyKey]; ok {
			return id, nil
		}
	}
	id := uuid.NewString()
	s.headers[id] = header
	if header.IdempotencyKey != "" {
		s.byKey[header.IdempotencyKey] = id
	}
	return id, nil
}

// CreateOrderLines reemplaza las líneas del pedido (idempotente).
func (s *OrderStore) CreateOrderLines(_ context.Context, orderID string, lines []entity.OrderLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.headers[orderID]; !ok {
		return domain.ErrNotFound
	}
	out := make([]entity.OrderLine, len(lines))
	copy(out, lines)
	s.lines[orderID] = out
	return nil
}

// Count número de pedidos distintos registrados.
func (s *OrderStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.headers)
}

// Lines devuelve las líneas registradas para orderID.
func (s *OrderStore) Lines(orderID string) []entity.OrderLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines[orderID]
}

// OrderIDFor devuelve el id central asignado a una clave de idempotencia.
func (s *OrderStore) OrderIDFor(idempotencyKey string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byKey[idempotencyKey]
	return id, ok
}
