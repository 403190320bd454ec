package repository

import (
	"context"

	"github.com/jhoicas/pos-inventario/internal/domain/entity"
)

// QueueStorage almacenamiento local durable de la cola offline (sobrevive reinicios).
type QueueStorage interface {
	Save(ctx context.Context, order *entity.QueuedOrder) error
	Get(ctx context.Context, localID string) (*entity.QueuedOrder, error)
	List(ctx context.Context) ([]*entity.QueuedOrder, error)
	Delete(ctx context.Context, localID string) error
}
