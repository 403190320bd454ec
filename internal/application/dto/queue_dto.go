package dto

import "github.com/jhoicas/pos-inventario/internal/domain/entity"

// QueueListResponse pedidos pendientes paginados, del más antiguo al más reciente.
type QueueListResponse struct {
	Orders []*entity.QueuedOrder `json:"orders"`
	Page   PageResponse          `json:"page"`
}
