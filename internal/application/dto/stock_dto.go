package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockResponse existencia de un insumo en una ubicación.
type StockResponse struct {
	LocationID  string          `json:"location_id"`
	StockItemID string          `json:"stock_item_id"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// TransferRequest body para POST /api/stock/transfers.
type TransferRequest struct {
	FromLocationID string          `json:"from_location_id"`
	ToLocationID   string          `json:"to_location_id"`
	StockItemID    string          `json:"stock_item_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	Note           string          `json:"note,omitempty"`
}

// MovementResponse movimiento del libro de existencias.
type MovementResponse struct {
	ID          string          `json:"id"`
	LocationID  string          `json:"location_id"`
	StockItemID string          `json:"stock_item_id"`
	Kind        string          `json:"kind"`
	Quantity    decimal.Decimal `json:"quantity"`
	Note        string          `json:"note,omitempty"`
	OrderRef    string          `json:"order_ref"`
	CreatedAt   time.Time       `json:"created_at"`
}
