package repository

import (
	"context"

	"github.com/jhoicas/pos-inventario/internal/domain/entity"
)

// RecipeRepository puerto de lectura de recetas y semielaborados.
// GetSemiFinished devuelve domain.ErrNotFound si el semielaborado no existe.
type RecipeRepository interface {
	GetRecipeLines(ctx context.Context, soldItemID string) ([]entity.RecipeLine, error)
	GetSemiFinished(ctx context.Context, semiFinishedID string) (*entity.SemiFinishedProduct, error)
}
