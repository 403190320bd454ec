package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/pos-inventario/internal/application/dto"
	"github.com/jhoicas/pos-inventario/internal/application/inventory"
	"github.com/jhoicas/pos-inventario/internal/application/sales"
	"github.com/jhoicas/pos-inventario/internal/domain/entity"
)

// SalesHandler cobros y devoluciones del terminal.
type SalesHandler struct {
	uc         *sales.UseCase
	locationID string
}

// NewSalesHandler construye el handler. locationID es la ubicación por defecto del terminal.
func NewSalesHandler(uc *sales.UseCase, locationID string) *SalesHandler {
	return &SalesHandler{uc: uc, locationID: locationID}
}

// Checkout POST /api/sales. 201 si se sincronizó en línea, 202 si quedó en la cola offline.
func (h *SalesHandler) Checkout(c *fiber.Ctx) error {
	var in dto.SaleRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	order := &entity.QueuedOrder{
		LocalID:       in.LocalID,
		LocationID:    h.location(in.LocationID),
		Lines:         toOrderLines(in.Lines),
		Discount:      in.Discount,
		PaymentMethod: in.PaymentMethod,
		CreatedBy:     in.CreatedBy,
	}

	out, err := h.uc.Checkout(c.UserContext(), order)
	if err != nil {
		return writeError(c, err)
	}
	resp := dto.SaleResponse{LocalID: out.LocalID, Total: out.Order.Total}
	if out.Queued {
		resp.Status = "queued"
		return c.Status(fiber.StatusAccepted).JSON(resp)
	}
	resp.Status = "synced"
	resp.OrderID = out.OrderID
	resp.Consumption = toConsumptionDTO(out.Consumption)
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Refund POST /api/refunds. Requiere conexión (503 si el terminal está offline) y refund_id (400 si falta).
func (h *SalesHandler) Refund(c *fiber.Ctx) error {
	var in dto.RefundRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.uc.Refund(c.UserContext(), sales.RefundInput{
		LocationID:  h.location(in.LocationID),
		OrderID:     in.OrderID,
		OrderNumber: in.OrderNumber,
		RefundID:    in.RefundID,
		Lines:       toOrderLines(in.Lines),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toConsumptionDTO(res))
}

func (h *SalesHandler) location(requested string) string {
	if requested != "" {
		return requested
	}
	return h.locationID
}

func toOrderLines(in []dto.OrderLineRequest) []entity.OrderLine {
	lines := make([]entity.OrderLine, 0, len(in))
	for _, l := range in {
		lines = append(lines, entity.OrderLine{
			SoldItemID: l.SoldItemID,
			Name:       l.Name,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
		})
	}
	return lines
}

func toConsumptionDTO(res inventory.ConsumptionResult) *dto.ConsumptionDTO {
	out := &dto.ConsumptionDTO{
		Complete: res.Complete(),
		Applied:  make([]dto.AppliedDeltaDTO, 0, len(res.Applied)),
		NoRecipe: res.NoRecipe,
	}
	for _, a := range res.Applied {
		out.Applied = append(out.Applied, dto.AppliedDeltaDTO{
			LocationID:     a.LocationID,
			StockItemID:    a.StockItemID,
			Quantity:       a.Quantity,
			MovementID:     a.MovementID,
			AlreadyApplied: a.AlreadyApplied,
		})
	}
	for _, f := range res.Failed {
		out.Failed = append(out.Failed, dto.FailedDeltaDTO{
			LocationID:  f.LocationID,
			StockItemID: f.StockItemID,
			Quantity:    f.Quantity,
			Error:       f.Err.Error(),
		})
	}
	for _, s := range res.Skipped {
		out.Skipped = append(out.Skipped, dto.SkippedDTO{
			SoldItemID:  s.SoldItemID,
			ComponentID: s.ComponentID,
			Path:        s.Path,
			Reason:      s.Reason,
		})
	}
	return out
}
