package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/pos-inventario/internal/application/dto"
	"github.com/jhoicas/pos-inventario/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// StockService consulta de existencias y traslados entre ubicaciones.
type StockService interface {
	GetQuantity(ctx context.Context, locationID, stockItemID string) (decimal.Decimal, error)
	Transfer(ctx context.Context, fromLocationID, toLocationID, stockItemID string, qty decimal.Decimal, note string) error
	MovementsByOrder(ctx context.Context, orderRef string) ([]*entity.MovementRecord, error)
}

// StockHandler existencias del libro central.
type StockHandler struct {
	stock StockService
}

// NewStockHandler construye el handler.
func NewStockHandler(stock StockService) *StockHandler {
	return &StockHandler{stock: stock}
}

// Get GET /api/stock/:location/:item
func (h *StockHandler) Get(c *fiber.Ctx) error {
	loc, item := c.Params("location"), c.Params("item")
	qty, err := h.stock.GetQuantity(c.UserContext(), loc, item)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.StockResponse{LocationID: loc, StockItemID: item, Quantity: qty})
}

// Transfer POST /api/stock/transfers
func (h *StockHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := h.stock.Transfer(c.UserContext(), in.FromLocationID, in.ToLocationID, in.StockItemID, in.Quantity, in.Note); err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "traslado registrado"})
}

// OrderMovements GET /api/orders/:id/movements
func (h *StockHandler) OrderMovements(c *fiber.Ctx) error {
	movs, err := h.stock.MovementsByOrder(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.MovementResponse, 0, len(movs))
	for _, m := range movs {
		out = append(out, dto.MovementResponse{
			ID:          m.ID,
			LocationID:  m.LocationID,
			StockItemID: m.StockItemID,
			Kind:        m.Kind,
			Quantity:    m.Quantity,
			Note:        m.Note,
			OrderRef:    m.OrderRef,
			CreatedAt:   m.CreatedAt,
		})
	}
	return c.JSON(out)
}
