// seed_recipes genera el script SQL de recetas y semielaborados a partir del CSV exportado
// por el back office, y avisa de las ramas que el terminal omitiría al vender.
//
// Uso: go run ./cmd/seed_recipes catalogo.csv [latin1|windows-1252] > recetas.sql
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "uso: seed_recipes catalogo.csv [charset]")
		os.Exit(2)
	}
	charset := ""
	if len(os.Args) > 2 {
		charset = os.Args[2]
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	cat, err := parseCatalog(decodeReader(f, charset))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer catálogo: %v\n", err)
		os.Exit(1)
	}

	warnings, err := cat.check(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validar catálogo: %v\n", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "AVISO %s\n", w)
	}

	if err := cat.writeSQL(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Generado: %d productos vendidos, %d semielaborados, %d avisos\n",
		len(cat.soldItems), len(cat.semiFinished), len(warnings))
}
