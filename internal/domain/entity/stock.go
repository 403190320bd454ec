package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockItem representa la existencia actual de un insumo (SKU) en una ubicación.
// QuantityOnHand puede ser negativa: indica stock sobrevendido, no un error.
type StockItem struct {
	LocationID     string
	StockItemID    string
	QuantityOnHand decimal.Decimal
	UpdatedAt      time.Time
}

// StockKey identifica una fila de existencias (ubicación + insumo).
type StockKey struct {
	LocationID  string
	StockItemID string
}

// String devuelve la clave en formato "ubicación/insumo".
func (k StockKey) String() string {
	return k.LocationID + "/" + k.StockItemID
}
