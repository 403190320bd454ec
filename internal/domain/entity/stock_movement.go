package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de inventario.
const (
	MovementKindSale       = "sale"       // consumo por venta
	MovementKindReturn     = "return"     // devolución de una venta
	MovementKindAdjustment = "adjustment" // ajuste manual
	MovementKindSupply     = "supply"     // entrada de proveedor
	MovementKindTransfer   = "transfer"   // traslado entre ubicaciones
)

// ValidMovementKind indica si kind es uno de los tipos conocidos.
func ValidMovementKind(kind string) bool {
	switch kind {
	case MovementKindSale, MovementKindReturn, MovementKindAdjustment, MovementKindSupply, MovementKindTransfer:
		return true
	}
	return false
}

// MovementRecord hecho inmutable del libro de existencias. Se crea una vez por delta aplicado
// y nunca se actualiza ni se borra.
type MovementRecord struct {
	ID             string
	IdempotencyKey string
	LocationID     string
	StockItemID    string
	Kind           string
	Quantity       decimal.Decimal // positivo entrada, negativo salida
	Note           string
	OrderRef       string
	CreatedAt      time.Time
}

// StockDelta solicitud de incremento atómico sobre el libro: ajusta la existencia y agrega
// un MovementRecord en un solo paso.
type StockDelta struct {
	LocationID     string
	StockItemID    string
	Quantity       decimal.Decimal
	Kind           string
	Note           string
	OrderRef       string
	IdempotencyKey string // vacío = sin deduplicación
}

// Key devuelve la fila de existencias afectada.
func (d StockDelta) Key() StockKey {
	return StockKey{LocationID: d.LocationID, StockItemID: d.StockItemID}
}
