package entity

import "github.com/shopspring/decimal"

// Tipos de componente de una receta.
const (
	ComponentStockItem    = "stock_item"
	ComponentSemiFinished = "semi_finished"
)

// ComponentRef referencia a un insumo directo o a un semielaborado.
type ComponentRef struct {
	Kind string
	ID   string
}

// StockItemRef construye una referencia a insumo directo.
func StockItemRef(id string) ComponentRef {
	return ComponentRef{Kind: ComponentStockItem, ID: id}
}

// SemiFinishedRef construye una referencia a semielaborado.
func SemiFinishedRef(id string) ComponentRef {
	return ComponentRef{Kind: ComponentSemiFinished, ID: id}
}

// IsSemiFinished indica si la referencia apunta a un semielaborado.
func (r ComponentRef) IsSemiFinished() bool {
	return r.Kind == ComponentSemiFinished
}

// RecipeLine línea de receta de un producto vendido: cantidad requerida por unidad vendida.
type RecipeLine struct {
	SoldItemID string
	Component  ComponentRef
	Quantity   decimal.Decimal
}

// SemiFinishedProduct preparación intermedia con su propia receta.
// OutputQuantity es el rendimiento absoluto de un lote; nulo o <= 0 detiene la expansión de la rama.
type SemiFinishedProduct struct {
	ID             string
	Name           string
	OutputQuantity decimal.NullDecimal
	Ingredients    []SemiFinishedIngredientLine
}

// HasYield indica si el rendimiento de lote es utilizable como divisor.
func (p *SemiFinishedProduct) HasYield() bool {
	return p.OutputQuantity.Valid && p.OutputQuantity.Decimal.GreaterThan(decimal.Zero)
}

// SemiFinishedIngredientLine ingrediente de un semielaborado: cantidad por lote.
type SemiFinishedIngredientLine struct {
	Component ComponentRef
	Quantity  decimal.Decimal
}
