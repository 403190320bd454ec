package inventory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jhoicas/pos-inventario/internal/domain/entity"
	"github.com/jhoicas/pos-inventario/internal/domain/inventory"
	"github.com/jhoicas/pos-inventario/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func yield(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d(s), Valid: true}
}

// requirementsByItem suma los requerimientos por insumo para comparar sin depender del orden.
func requirementsByItem(x inventory.Explosion) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, r := range x.Requirements {
		out[r.StockItemID] = out[r.StockItemID].Add(r.Quantity)
	}
	return out
}

func assertQty(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, d(want).Equal(got), append([]any{"esperado %s, obtenido %s", want, got.String()}, msgAndArgs...)...)
}

func simpleSyrupStore() *memory.RecipeStore {
	store := memory.NewRecipeStore()
	store.PutSemiFinished(&entity.SemiFinishedProduct{
		ID:             "syrup",
		Name:           "Jarabe simple",
		OutputQuantity: yield("800"),
		Ingredients: []entity.SemiFinishedIngredientLine{
			{Component: entity.StockItemRef("sugar"), Quantity: d("100")},
			{Component: entity.StockItemRef("water"), Quantity: d("700")},
		},
	})
	return store
}

func TestExpand_DirectStockItem(t *testing.T) {
	exp := inventory.NewBOMExpander(memory.NewRecipeStore())

	x, err := exp.Expand(context.Background(), entity.StockItemRef("coffee"), d("0.014"), d("2"))
	require.NoError(t, err)

	require.Len(t, x.Requirements, 1)
	assert.Equal(t, "coffee", x.Requirements[0].StockItemID)
	assertQty(t, "0.028", x.Requirements[0].Quantity)
	assert.Empty(t, x.Skipped)
}

func TestExpand_SemiFinishedScalesByBatchYield(t *testing.T) {
	exp := inventory.NewBOMExpander(simpleSyrupStore())

	x, err := exp.Expand(context.Background(), entity.SemiFinishedRef("syrup"), d("0.2"), d("2"))
	require.NoError(t, err)

	got := requirementsByItem(x)
	require.Len(t, got, 2)
	assertQty(t, "0.05", got["sugar"])
	assertQty(t, "0.35", got["water"])
}

func TestExpand_NestedUsesParentRatioAsMultiplier(t *testing.T) {
	store := memory.NewRecipeStore()
	// Base: 6 unidades de lote a partir de 12 de azúcar.
	store.PutSemiFinished(&entity.SemiFinishedProduct{
		ID:             "base",
		OutputQuantity: yield("6"),
		Ingredients: []entity.SemiFinishedIngredientLine{
			{Component: entity.StockItemRef("sugar"), Quantity: d("12")},
		},
	})
	// Crema: 4 unidades de lote a partir de 3 de base y 1 de leche.
	store.PutSemiFinished(&entity.SemiFinishedProduct{
		ID:             "cream",
		OutputQuantity: yield("4"),
		Ingredients: []entity.SemiFinishedIngredientLine{
			{Component: entity.SemiFinishedRef("base"), Quantity: d("3")},
			{Component: entity.StockItemRef("milk"), Quantity: d("1")},
		},
	})
	exp := inventory.NewBOMExpander(store)

	// ratio crema = 2*1/4 = 0.5; ratio base = 3*0.5/6 = 0.25; azúcar = 12*0.25 = 3; leche = 1*0.5.
	x, err := exp.Expand(context.Background(), entity.SemiFinishedRef("cream"), d("2"), d("1"))
	require.NoError(t, err)

	got := requirementsByItem(x)
	assertQty(t, "3", got["sugar"])
	assertQty(t, "0.5", got["milk"])
}

func TestExpand_DividesOncePerRequirement(t *testing.T) {
	store := memory.NewRecipeStore()
	store.PutSemiFinished(&entity.SemiFinishedProduct{
		ID:             "inner",
		OutputQuantity: yield("3"),
		Ingredients: []entity.SemiFinishedIngredientLine{
			{Component: entity.StockItemRef("flour"), Quantity: d("9")},
		},
	})
	store.PutSemiFinished(&entity.SemiFinishedProduct{
		ID:             "outer",
		OutputQuantity: yield("3"),
		Ingredients: []entity.SemiFinishedIngredientLine{
			{Component: entity.SemiFinishedRef("inner"), Quantity: d("1")},
		},
	})
	exp := inventory.NewBOMExpander(store)

	// 9 * 1 / (3*3) = 1 exacto; dividir en cada nivel daría 0.9999999999999999.
	x, err := exp.Expand(context.Background(), entity.SemiFinishedRef("outer"), d("1"), d("1"))
	require.NoError(t, err)
	assertQty(t, "1", requirementsByItem(x)["flour"])
}

func TestExpand_MissingOrZeroYieldSkipsBranch(t *testing.T) {
	store := memory.NewRecipeStore()
	store.PutSemiFinished(&entity.SemiFinishedProduct{
		ID:             "zero",
		OutputQuantity: yield("0"),
		Ingredients: []entity.SemiFinishedIngredientLine{
			{Component: entity.StockItemRef("sugar"), Quantity: d("1")},
		},
	})
	store.PutSemiFinished(&entity.SemiFinishedProduct{
		ID: "nil-yield",
		Ingredients: []entity.SemiFinishedIngredientLine{
			{Component: entity.StockItemRef("sugar"), Quantity: d("1")},
		},
	})
	exp := inventory.NewBOMExpander(store)

	for _, id := range []string{"zero", "nil-yield"} {
		x, err := exp.Expand(context.Background(), entity.SemiFinishedRef(id), d("1"), d("5"))
		require.NoError(t, err, id)
		assert.Empty(t, x.Requirements, id)
		require.Len(t, x.Skipped, 1, id)
		assert.Equal(t, inventory.SkipMissingYield, x.Skipped[0].Reason)
		assert.Equal(t, []string{id}, x.Skipped[0].Path)
	}
}

func TestExpand_UnknownSemiFinishedIsSkipped(t *testing.T) {
	exp := inventory.NewBOMExpander(memory.NewRecipeStore())

	x, err := exp.Expand(context.Background(), entity.SemiFinishedRef("ghost"), d("1"), d("1"))
	require.NoError(t, err)
	assert.Empty(t, x.Requirements)
	require.Len(t, x.Skipped, 1)
	assert.Equal(t, inventory.SkipUnknownSemiFinished, x.Skipped[0].Reason)
}

func TestExpand_CycleIsDetectedAndRestOfBranchContinues(t *testing.T) {
	store := memory.NewRecipeStore()
	store.PutSemiFinished(&entity.SemiFinishedProduct{
		ID:             "a",
		OutputQuantity: yield("1"),
		Ingredients: []entity.SemiFinishedIngredientLine{
			{Component: entity.SemiFinishedRef("b"), Quantity: d("1")},
			{Component: entity.StockItemRef("salt"), Quantity: d("2")},
		},
	})
	store.PutSemiFinished(&entity.SemiFinishedProduct{
		ID:             "b",
		OutputQuantity: yield("1"),
		Ingredients: []entity.SemiFinishedIngredientLine{
			{Component: entity.SemiFinishedRef("a"), Quantity: d("1")},
			{Component: entity.StockItemRef("pepper"), Quantity: d("1")},
		},
	})
	exp := inventory.NewBOMExpander(store)

	x, err := exp.Expand(context.Background(), entity.SemiFinishedRef("a"), d("1"), d("1"))
	require.NoError(t, err)

	got := requirementsByItem(x)
	assertQty(t, "2", got["salt"])
	assertQty(t, "1", got["pepper"])
	require.Len(t, x.Skipped, 1)
	assert.Equal(t, inventory.SkipCycle, x.Skipped[0].Reason)
	assert.Equal(t, []string{"a", "b", "a"}, x.Skipped[0].Path)
}

func TestExpand_DiamondIsNotACycle(t *testing.T) {
	store := simpleSyrupStore()
	store.PutSemiFinished(&entity.SemiFinishedProduct{
		ID:             "combo",
		OutputQuantity: yield("1"),
		Ingredients: []entity.SemiFinishedIngredientLine{
			{Component: entity.SemiFinishedRef("syrup"), Quantity: d("400")},
			{Component: entity.SemiFinishedRef("syrup"), Quantity: d("400")},
		},
	})
	exp := inventory.NewBOMExpander(store)

	x, err := exp.Expand(context.Background(), entity.SemiFinishedRef("combo"), d("1"), d("1"))
	require.NoError(t, err)
	assert.Empty(t, x.Skipped)
	got := requirementsByItem(x)
	assertQty(t, "100", got["sugar"])
	assertQty(t, "700", got["water"])
}

type failingSource struct{ err error }

func (f failingSource) GetSemiFinished(context.Context, string) (*entity.SemiFinishedProduct, error) {
	return nil, f.err
}

func TestExpand_SourceFailureIsReturned(t *testing.T) {
	boom := errors.New("conexión perdida")
	exp := inventory.NewBOMExpander(failingSource{err: boom})

	_, err := exp.Expand(context.Background(), entity.SemiFinishedRef("syrup"), d("1"), d("1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

type countingSource struct {
	inner inventory.SemiFinishedSource
	calls map[string]int
}

func (c *countingSource) GetSemiFinished(ctx context.Context, id string) (*entity.SemiFinishedProduct, error) {
	c.calls[id]++
	return c.inner.GetSemiFinished(ctx, id)
}

func TestMemoSource_ReadsEachProductOnce(t *testing.T) {
	counter := &countingSource{inner: simpleSyrupStore(), calls: map[string]int{}}
	memo := inventory.NewMemoSource(counter)
	exp := inventory.NewBOMExpander(memo)

	for i := 0; i < 3; i++ {
		_, err := exp.Expand(context.Background(), entity.SemiFinishedRef("syrup"), d("1"), d("1"))
		require.NoError(t, err)
		_, err = exp.Expand(context.Background(), entity.SemiFinishedRef("ghost"), d("1"), d("1"))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, counter.calls["syrup"])
	assert.Equal(t, 1, counter.calls["ghost"])
}
