package inventory

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jhoicas/pos-inventario/internal/domain"
	"github.com/jhoicas/pos-inventario/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Motivos por los que una rama de la receta no genera movimientos.
const (
	SkipMissingYield        = "missing_yield"
	SkipUnknownSemiFinished = "unknown_semi_finished"
	SkipCycle               = "cycle"
	SkipInvalidComponent    = "invalid_component"
)

// SemiFinishedSource puerto de lectura de semielaborados usado por la explosión.
type SemiFinishedSource interface {
	GetSemiFinished(ctx context.Context, semiFinishedID string) (*entity.SemiFinishedProduct, error)
}

// Requirement cantidad de un insumo directo requerida por una rama de la receta (sin signo).
type Requirement struct {
	StockItemID string
	Quantity    decimal.Decimal
}

// SkippedComponent rama omitida durante la expansión.
// Path es la cadena de semielaborados recorrida hasta el componente omitido (incluido).
type SkippedComponent struct {
	ComponentID string
	Path        []string
	Reason      string
}

// Explosion resultado de expandir un componente: requerimientos de insumos directos y ramas omitidas.
type Explosion struct {
	Requirements []Requirement
	Skipped      []SkippedComponent
}

// BOMExpander expande recursivamente semielaborados hasta insumos directos.
type BOMExpander struct {
	source SemiFinishedSource
}

// NewBOMExpander construye el motor de explosión sobre la fuente de semielaborados.
func NewBOMExpander(source SemiFinishedSource) *BOMExpander {
	return &BOMExpander{source: source}
}

// fraction multiplicador de rama como numerador/denominador. Se divide una sola vez por cada
// requerimiento emitido para no acumular redondeo entre niveles.
type fraction struct {
	num decimal.Decimal
	den decimal.Decimal
}

var one = decimal.NewFromInt(1)

func (f fraction) value() decimal.Decimal {
	if f.den.Equal(one) {
		return f.num
	}
	return f.num.Div(f.den)
}

// Expand devuelve los insumos directos requeridos por ref para soldQty unidades vendidas,
// con qtyPerUnit unidades de ref por unidad vendida.
//
// Semielaborado: ratio = (qtyPerUnit * soldQty) / OutputQuantity; cada ingrediente directo aporta
// cantidad * ratio y cada semielaborado anidado se expande con ratio como multiplicador.
// Un rendimiento nulo o <= 0, un semielaborado inexistente o un ciclo omiten solo esa rama.
// Solo los errores de la fuente (red, almacenamiento) se devuelven como error.
func (e *BOMExpander) Expand(ctx context.Context, ref entity.ComponentRef, qtyPerUnit, soldQty decimal.Decimal) (Explosion, error) {
	var out Explosion
	if err := e.expand(ctx, &out, ref, qtyPerUnit, fraction{num: soldQty, den: one}, nil); err != nil {
		return Explosion{}, err
	}
	return out, nil
}

func (e *BOMExpander) expand(
	ctx context.Context,
	out *Explosion,
	ref entity.ComponentRef,
	perUnit decimal.Decimal,
	multiplier fraction,
	path []string,
) error {
	amount := fraction{num: perUnit.Mul(multiplier.num), den: multiplier.den}

	switch ref.Kind {
	case entity.ComponentStockItem:
		out.Requirements = append(out.Requirements, Requirement{StockItemID: ref.ID, Quantity: amount.value()})
		return nil
	case entity.ComponentSemiFinished:
	default:
		out.skip(ref.ID, path, SkipInvalidComponent)
		return nil
	}

	// La ruta actual, no un visitado global: un semielaborado usado en dos ramas es válido.
	if slices.Contains(path, ref.ID) {
		out.skip(ref.ID, path, SkipCycle)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	product, err := e.source.GetSemiFinished(ctx, ref.ID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && product == nil) {
		out.skip(ref.ID, path, SkipUnknownSemiFinished)
		return nil
	}
	if err != nil {
		return fmt.Errorf("obtener semielaborado %s: %w", ref.ID, err)
	}
	if !product.HasYield() {
		out.skip(ref.ID, path, SkipMissingYield)
		return nil
	}

	trail := append(slices.Clip(path), ref.ID)
	ratio := fraction{num: amount.num, den: amount.den.Mul(product.OutputQuantity.Decimal)}
	for _, line := range product.Ingredients {
		if err := e.expand(ctx, out, line.Component, line.Quantity, ratio, trail); err != nil {
			return err
		}
	}
	return nil
}

func (x *Explosion) skip(componentID string, path []string, reason string) {
	trail := append(slices.Clip(path), componentID)
	x.Skipped = append(x.Skipped, SkippedComponent{ComponentID: componentID, Path: trail, Reason: reason})
}

// MemoSource memoriza las lecturas de semielaborados (incluido ErrNotFound) durante la aplicación
// de un pedido. No es seguro para uso concurrente.
type MemoSource struct {
	source   SemiFinishedSource
	products map[string]*entity.SemiFinishedProduct
	missing  map[string]bool
}

// NewMemoSource envuelve source con memoización.
func NewMemoSource(source SemiFinishedSource) *MemoSource {
	return &MemoSource{
		source:   source,
		products: make(map[string]*entity.SemiFinishedProduct),
		missing:  make(map[string]bool),
	}
}

// GetSemiFinished implementa SemiFinishedSource.
func (m *MemoSource) GetSemiFinished(ctx context.Context, semiFinishedID string) (*entity.SemiFinishedProduct, error) {
	if p, ok := m.products[semiFinishedID]; ok {
		return p, nil
	}
	if m.missing[semiFinishedID] {
		return nil, domain.ErrNotFound
	}
	p, err := m.source.GetSemiFinished(ctx, semiFinishedID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && p == nil) {
		m.missing[semiFinishedID] = true
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	m.products[semiFinishedID] = p
	return p, nil
}
