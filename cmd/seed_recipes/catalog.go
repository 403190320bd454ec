package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jhoicas/pos-inventario/internal/domain/entity"
	"github.com/jhoicas/pos-inventario/internal/domain/inventory"
	"github.com/jhoicas/pos-inventario/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Tipos de fila del CSV exportado por el back office.
const (
	rowRecipe       = "recipe"
	rowSemiFinished = "semi_finished"
	rowIngredient   = "ingredient"
)

var header = []string{"record_type", "id", "name", "component_kind", "component_id", "quantity"}

type catalog struct {
	recipes      []entity.RecipeLine
	soldItems    []string
	semiFinished []*entity.SemiFinishedProduct
}

// decodeReader convierte a UTF-8 exportaciones en Latin-1 o Windows-1252.
func decodeReader(r io.Reader, charset string) io.Reader {
	switch strings.ToLower(charset) {
	case "latin1", "iso-8859-1", "iso8859-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder())
	default:
		return r
	}
}

// parseCatalog lee el CSV. Las filas ingredient pueden aparecer antes que su semi_finished.
func parseCatalog(r io.Reader) (*catalog, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)
	cr.TrimLeadingSpace = true

	first, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("leer encabezado: %w", err)
	}
	for i, col := range header {
		if strings.TrimSpace(strings.TrimPrefix(first[i], "\ufeff")) != col {
			return nil, fmt.Errorf("encabezado inválido: se esperaba %s", strings.Join(header, ","))
		}
	}

	c := &catalog{}
	bySF := make(map[string]*entity.SemiFinishedProduct)
	ingredients := make(map[string][]entity.SemiFinishedIngredientLine)
	var ingredientOrder []string
	seenSold := make(map[string]bool)

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		kind, id, name := strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1]), strings.TrimSpace(rec[2])
		if id == "" {
			return nil, fmt.Errorf("línea %d: id vacío", line)
		}

		switch kind {
		case rowSemiFinished:
			if _, dup := bySF[id]; dup {
				return nil, fmt.Errorf("línea %d: semielaborado %s repetido", line, id)
			}
			p := &entity.SemiFinishedProduct{ID: id, Name: name}
			if q := strings.TrimSpace(rec[5]); q != "" {
				out, err := decimal.NewFromString(q)
				if err != nil {
					return nil, fmt.Errorf("línea %d: rendimiento %q: %w", line, q, err)
				}
				p.OutputQuantity = decimal.NullDecimal{Decimal: out, Valid: true}
			}
			bySF[id] = p
			c.semiFinished = append(c.semiFinished, p)
		case rowRecipe, rowIngredient:
			ref, qty, err := parseComponent(rec)
			if err != nil {
				return nil, fmt.Errorf("línea %d: %w", line, err)
			}
			if kind == rowRecipe {
				if !seenSold[id] {
					seenSold[id] = true
					c.soldItems = append(c.soldItems, id)
				}
				c.recipes = append(c.recipes, entity.RecipeLine{SoldItemID: id, Component: ref, Quantity: qty})
				continue
			}
			if _, ok := ingredients[id]; !ok {
				ingredientOrder = append(ingredientOrder, id)
			}
			ingredients[id] = append(ingredients[id], entity.SemiFinishedIngredientLine{Component: ref, Quantity: qty})
		default:
			return nil, fmt.Errorf("línea %d: tipo de fila desconocido %q", line, kind)
		}
	}

	for _, id := range ingredientOrder {
		p, ok := bySF[id]
		if !ok {
			return nil, fmt.Errorf("ingredientes para semielaborado inexistente %s", id)
		}
		p.Ingredients = ingredients[id]
	}
	return c, nil
}

func parseComponent(rec []string) (entity.ComponentRef, decimal.Decimal, error) {
	kind, id := strings.TrimSpace(rec[3]), strings.TrimSpace(rec[4])
	if kind != entity.ComponentStockItem && kind != entity.ComponentSemiFinished {
		return entity.ComponentRef{}, decimal.Zero, fmt.Errorf("component_kind %q inválido", kind)
	}
	if id == "" {
		return entity.ComponentRef{}, decimal.Zero, errors.New("component_id vacío")
	}
	qty, err := decimal.NewFromString(strings.TrimSpace(rec[5]))
	if err != nil {
		return entity.ComponentRef{}, decimal.Zero, fmt.Errorf("cantidad %q: %w", rec[5], err)
	}
	if !qty.IsPositive() {
		return entity.ComponentRef{}, decimal.Zero, fmt.Errorf("cantidad %s debe ser positiva", qty)
	}
	return entity.ComponentRef{Kind: kind, ID: id}, qty, nil
}

// check expande cada producto vendido con el mismo motor que usa el terminal y devuelve las
// ramas que se omitirían en una venta (ciclos, rendimientos faltantes, semielaborados inexistentes).
func (c *catalog) check(ctx context.Context) ([]string, error) {
	store := memory.NewRecipeStore()
	for _, p := range c.semiFinished {
		store.PutSemiFinished(p)
	}
	for _, l := range c.recipes {
		store.AddRecipeLine(l)
	}

	expander := inventory.NewBOMExpander(inventory.NewMemoSource(store))
	var warnings []string
	for _, sold := range c.soldItems {
		lines, err := store.GetRecipeLines(ctx, sold)
		if err != nil {
			return nil, err
		}
		for _, l := range lines {
			x, err := expander.Expand(ctx, l.Component, l.Quantity, decimal.NewFromInt(1))
			if err != nil {
				return nil, err
			}
			for _, sk := range x.Skipped {
				warnings = append(warnings, fmt.Sprintf("%s: %s omitido (%s) ruta %s",
					sold, sk.ComponentID, sk.Reason, strings.Join(sk.Path, " > ")))
			}
		}
	}
	return warnings, nil
}

// writeSQL escribe un script idempotente: reemplaza las recetas y semielaborados del catálogo.
func (c *catalog) writeSQL(w io.Writer) error {
	var b strings.Builder
	b.WriteString("-- Recetas y semielaborados (generado por seed_recipes)\n")
	b.WriteString("BEGIN;\n\n")

	for _, p := range c.semiFinished {
		output := "NULL"
		if p.OutputQuantity.Valid {
			output = p.OutputQuantity.Decimal.String()
		}
		fmt.Fprintf(&b, "INSERT INTO semi_finished_products (id, name, output_quantity) VALUES ('%s', '%s', %s)\n",
			escapeSQL(p.ID), escapeSQL(p.Name), output)
		b.WriteString("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, output_quantity = EXCLUDED.output_quantity;\n")
		fmt.Fprintf(&b, "DELETE FROM semi_finished_ingredients WHERE semi_finished_id = '%s';\n", escapeSQL(p.ID))
		for i, in := range p.Ingredients {
			fmt.Fprintf(&b, "INSERT INTO semi_finished_ingredients (semi_finished_id, line_no, component_kind, component_id, quantity) VALUES ('%s', %d, '%s', '%s', %s);\n",
				escapeSQL(p.ID), i+1, in.Component.Kind, escapeSQL(in.Component.ID), in.Quantity)
		}
		b.WriteString("\n")
	}

	lineNo := make(map[string]int)
	for _, sold := range c.soldItems {
		fmt.Fprintf(&b, "DELETE FROM recipe_lines WHERE sold_item_id = '%s';\n", escapeSQL(sold))
	}
	for _, l := range c.recipes {
		lineNo[l.SoldItemID]++
		fmt.Fprintf(&b, "INSERT INTO recipe_lines (sold_item_id, line_no, component_kind, component_id, quantity) VALUES ('%s', %d, '%s', '%s', %s);\n",
			escapeSQL(l.SoldItemID), lineNo[l.SoldItemID], l.Component.Kind, escapeSQL(l.Component.ID), l.Quantity)
	}

	b.WriteString("\nCOMMIT;\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
