package dto

import "github.com/shopspring/decimal"

// OrderLineRequest línea de carrito.
type OrderLineRequest struct {
	SoldItemID string          `json:"sold_item_id"`
	Name       string          `json:"name,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// SaleRequest body para POST /api/sales. LocationID vacío = ubicación del terminal.
type SaleRequest struct {
	LocalID       string             `json:"local_id,omitempty"`
	LocationID    string             `json:"location_id,omitempty"`
	Lines         []OrderLineRequest `json:"lines"`
	Discount      decimal.Decimal    `json:"discount"`
	PaymentMethod string             `json:"payment_method"`
	CreatedBy     string             `json:"created_by,omitempty"`
}

// SaleResponse resultado del cobro. Status: synced | queued.
type SaleResponse struct {
	LocalID     string          `json:"local_id"`
	OrderID     string          `json:"order_id,omitempty"`
	Status      string          `json:"status"`
	Total       decimal.Decimal `json:"total"`
	Consumption *ConsumptionDTO `json:"consumption,omitempty"`
}

// RefundRequest body para POST /api/refunds.
type RefundRequest struct {
	RefundID    string             `json:"refund_id"`
	OrderID     string             `json:"order_id"`
	OrderNumber string             `json:"order_number,omitempty"`
	LocationID  string             `json:"location_id,omitempty"`
	Lines       []OrderLineRequest `json:"lines"`
}

// ConsumptionDTO resultado de aplicar un pedido al libro de existencias.
type ConsumptionDTO struct {
	Complete bool              `json:"complete"`
	Applied  []AppliedDeltaDTO `json:"applied"`
	Skipped  []SkippedDTO      `json:"skipped,omitempty"`
	Failed   []FailedDeltaDTO  `json:"failed,omitempty"`
	NoRecipe []string          `json:"no_recipe,omitempty"`
}

// AppliedDeltaDTO delta aplicado (o ya aplicado en un intento anterior).
type AppliedDeltaDTO struct {
	LocationID     string          `json:"location_id"`
	StockItemID    string          `json:"stock_item_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	MovementID     string          `json:"movement_id,omitempty"`
	AlreadyApplied bool            `json:"already_applied,omitempty"`
}

// FailedDeltaDTO delta que no se pudo aplicar.
type FailedDeltaDTO struct {
	LocationID  string          `json:"location_id"`
	StockItemID string          `json:"stock_item_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Error       string          `json:"error"`
}

// SkippedDTO rama de receta omitida.
type SkippedDTO struct {
	SoldItemID  string   `json:"sold_item_id"`
	ComponentID string   `json:"component_id"`
	Path        []string `json:"path"`
	Reason      string   `json:"reason"`
}
