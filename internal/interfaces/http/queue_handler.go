package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/pos-inventario/internal/application/dto"
	"github.com/jhoicas/pos-inventario/internal/application/offlinequeue"
)

// QueueHandler consulta y operación manual de la cola offline.
type QueueHandler struct {
	queue *offlinequeue.Queue
}

// NewQueueHandler construye el handler.
func NewQueueHandler(queue *offlinequeue.Queue) *QueueHandler {
	return &QueueHandler{queue: queue}
}

// List GET /api/queue?limit=&offset=
func (h *QueueHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badBody(c)
	}
	page.DefaultPage()

	pending, err := h.queue.ListPending(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	total := len(pending)
	start := min(page.Offset, total)
	end := min(start+page.Limit, total)
	return c.JSON(dto.QueueListResponse{
		Orders: pending[start:end],
		Page:   dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	})
}

// Stats GET /api/queue/stats
func (h *QueueHandler) Stats(c *fiber.Ctx) error {
	st, err := h.queue.Stats(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(st)
}

// Sync POST /api/queue/sync. 409 si ya hay una pasada en curso.
func (h *QueueHandler) Sync(c *fiber.Ctx) error {
	report, err := h.queue.SyncNow(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(report)
}

// MarkPrinted POST /api/queue/:id/printed
func (h *QueueHandler) MarkPrinted(c *fiber.Ctx) error {
	if err := h.queue.MarkPrinted(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Remove DELETE /api/queue/:id
func (h *QueueHandler) Remove(c *fiber.Ctx) error {
	if err := h.queue.Remove(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
