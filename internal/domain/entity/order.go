package entity

import (
	"fmt"
	"time"

	"github.com/jhoicas/pos-inventario/internal/domain"
	"github.com/shopspring/decimal"
)

// Estados de un pedido en la cola offline.
const (
	QueueStatusPending = "pending"
	QueueStatusSynced  = "synced"
)

// OrderLine línea de carrito: producto vendido, cantidad y precio unitario.
type OrderLine struct {
	SoldItemID string          `json:"sold_item_id"`
	Name       string          `json:"name,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// Subtotal cantidad por precio unitario.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// OrderHeader cabecera de pedido enviada al almacén central.
// IdempotencyKey permite al almacén devolver el pedido existente en un reintento.
type OrderHeader struct {
	IdempotencyKey string
	LocationID     string
	Subtotal       decimal.Decimal
	Discount       decimal.Decimal
	Total          decimal.Decimal
	PaymentMethod  string
	CreatedBy      string
	CreatedAt      time.Time
}

// QueuedOrder venta completada sin conexión, persistida localmente hasta que se sincroniza.
type QueuedOrder struct {
	LocalID       string          `json:"local_id"`
	LocationID    string          `json:"location_id"`
	Lines         []OrderLine     `json:"lines"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	CreatedBy     string          `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	Printed       bool            `json:"printed"`
	Status        string          `json:"status"`
	Attempts      int             `json:"attempts"`
	LastError     string          `json:"last_error,omitempty"`
}

// Validate exige ubicación y al menos una línea, cada una con producto y cantidad positiva.
func (o *QueuedOrder) Validate() error {
	if o == nil || o.LocationID == "" || len(o.Lines) == 0 {
		return domain.ErrInvalidInput
	}
	for i, l := range o.Lines {
		if l.SoldItemID == "" || !l.Quantity.IsPositive() {
			return fmt.Errorf("línea %d: %w", i+1, domain.ErrInvalidInput)
		}
	}
	return nil
}

// ComputeTotals recalcula subtotal y total a partir de las líneas y el descuento.
func (o *QueuedOrder) ComputeTotals() {
	subtotal := decimal.Zero
	for _, l := range o.Lines {
		subtotal = subtotal.Add(l.Subtotal())
	}
	o.Subtotal = subtotal
	o.Total = subtotal.Sub(o.Discount)
}

// Header construye la cabecera central usando LocalID como clave de idempotencia.
func (o *QueuedOrder) Header() OrderHeader {
	return OrderHeader{
		IdempotencyKey: o.LocalID,
		LocationID:     o.LocationID,
		Subtotal:       o.Subtotal,
		Discount:       o.Discount,
		Total:          o.Total,
		PaymentMethod:  o.PaymentMethod,
		CreatedBy:      o.CreatedBy,
		CreatedAt:      o.CreatedAt,
	}
}

// IsPending indica si el pedido aún no fue confirmado centralmente.
func (o *QueuedOrder) IsPending() bool {
	return o.Status != QueueStatusSynced
}
