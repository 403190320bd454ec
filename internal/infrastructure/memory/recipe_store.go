package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/pos-inventario/internal/domain"
	"github.com/jhoicas/pos-inventario/internal/domain/entity"
	"github.com/jhoicas/pos-inventario/internal/domain/repository"
)

var _ repository.RecipeRepository = (*RecipeStore)(nil)

// RecipeStore recetas y semielaborados en memoria (modo demo y tests).
type RecipeStore struct {
	mu           sync.RWMutex
	recipes      map[string][]entity.RecipeLine
	semiFinished map[string]*entity.SemiFinishedProduct
}

// NewRecipeStore construye un almacén de recetas vacío.
func NewRecipeStore() *RecipeStore {
	return &RecipeStore{
		recipes:      make(map[string][]entity.RecipeLine),
		semiFinished: make(map[string]*entity.SemiFinishedProduct),
	}
}

// AddRecipeLine agrega una línea a la receta del producto vendido.
func (s *RecipeStore) AddRecipeLine(line entity.RecipeLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipes[line.SoldItemID] = append(s.recipes[line.SoldItemID], line)
}

// PutSemiFinished registra o reemplaza un semielaborado.
func (s *RecipeStore) PutSemiFinished(product *entity.SemiFinishedProduct) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.semiFinished[product.ID] = product
}

// GetRecipeLines devuelve las líneas de receta (vacío si el producto no tiene receta).
func (s *RecipeStore) GetRecipeLines(_ context.Context, soldItemID string) ([]entity.RecipeLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lines := s.recipes[soldItemID]
	out := make([]entity.RecipeLine, len(lines))
	copy(out, lines)
	return out, nil
}

// GetSemiFinished devuelve domain.ErrNotFound si no existe.
func (s *RecipeStore) GetSemiFinished(_ context.Context, semiFinishedID string) (*entity.SemiFinishedProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.semiFinished[semiFinishedID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}
