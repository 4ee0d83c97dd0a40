package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/rendiciones/internal/apertura"
	"github.com/dvloznov/rendiciones/internal/codes"
	"github.com/dvloznov/rendiciones/internal/config"
	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/dvloznov/rendiciones/internal/logger"
	"github.com/rs/zerolog"
)

func runApertura(log zerolog.Logger, cfg *config.AppConfig, args []string) {
	fs := flag.NewFlagSet("apertura", flag.ExitOnError)
	sourceID := fs.String("source", "", "Rendicion item ID to split")
	total := fs.String("total", "", "Total of the item")
	importPath := fs.String("import", "", "XLSX file with one row per split (header row names the fields)")
	replace := fs.Bool("replace", false, "Imported rows replace the current rows instead of being appended")
	addRows := fs.Int("add-rows", 0, "Number of empty rows to append")
	save := fs.Bool("save", false, "Save when the rows reconcile with the total")
	discard := fs.Bool("discard", false, "Drop any draft and start from the saved rows")
	useLocal := fs.Bool("local", false, "Use the in-process backend")
	var sets, deletes multiFlag
	fs.Var(&sets, "set", "Cell change, as ROW:field=value with ROW starting at 1 (repeatable)")
	fs.Var(&deletes, "delete", "Row number to delete (repeatable)")
	fs.Parse(args)

	if *sourceID == "" || *total == "" {
		log.Fatal().Msg("Usage: cli apertura -source ITEM_ID -total AMOUNT [-import rows.xlsx] [-set 1:netoGravado=100] [-save]")
	}
	sourceTotal, ok := domain.ParseAmount(*total)
	if !ok {
		log.Fatal().Str("total", *total).Msg("Error: --total is not a number")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	e, err := openEnv(ctx, cfg, *useLocal, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open backend")
	}
	defer e.Close()

	store, err := openDrafts(ctx, cfg, e)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open draft store")
	}

	source := domain.SourceItem{ID: *sourceID, Total: sourceTotal, NetoGravado: sourceTotal}
	g := apertura.Open(ctx, e.backend, source, nil,
		apertura.WithDrafts(store),
		apertura.WithResolver(codes.NewResolver(e.backend, log)),
		apertura.WithLogger(log),
	)
	if g.Restored() {
		fmt.Println("Restored unsaved rows from a previous session.")
	}
	if *discard {
		g.Cancel(ctx)
	}

	if *importPath != "" {
		f, err := os.Open(*importPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open import file")
		}
		n, err := g.Import(ctx, f, *replace)
		f.Close()
		if err != nil {
			log.Fatal().Err(err).Msg("Import failed")
		}
		fmt.Printf("Imported %d rows.\n", n)
	}

	for i := 0; i < *addRows; i++ {
		g.AddRow(ctx)
	}

	for _, raw := range sets {
		row, rest, ok := strings.Cut(raw, ":")
		if !ok {
			log.Fatal().Str("set", raw).Msg("Expected ROW:field=value")
		}
		k, v, err := keyValue(rest)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid --set")
		}
		field, err := apertura.ParseField(k)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid --set")
		}
		id := rowID(g, row)
		if id == "" {
			log.Fatal().Str("row", row).Msg("No such row")
		}
		if err := g.UpdateCell(ctx, id, field, v); err != nil {
			log.Fatal().Err(err).Msg("Invalid --set")
		}
	}

	// resolve ids first, numbering shifts as rows go
	var toDelete []string
	for _, row := range deletes {
		id := rowID(g, row)
		if id == "" {
			log.Fatal().Str("row", row).Msg("No such row")
		}
		toDelete = append(toDelete, id)
	}
	for _, id := range toDelete {
		if err := g.DeleteRow(ctx, id); err != nil {
			log.Fatal().Err(err).Msg("Delete failed")
		}
	}

	printGrid(ctx, g)

	if !*save {
		return
	}
	err = g.Save(ctx)
	var discrepancy *apertura.DiscrepancyError
	switch {
	case errors.As(err, &discrepancy):
		fmt.Printf("Not saved: rows total %s, item total %s (%s by %s).\n",
			domain.FormatAmount(discrepancy.GridTotal), domain.FormatAmount(discrepancy.Total),
			discrepancy.Status, domain.FormatAmount(discrepancy.Difference))
		return
	case err != nil:
		log.Fatal().Err(err).Msg("Save failed")
	}
	fmt.Printf("Saved %d rows for %s.\n", g.Len(), *sourceID)

	if e.local != nil {
		rows, _ := e.local.Decomposition(*sourceID)
		log.Debug().Int("rows", len(rows)).Msg("Stored decomposition")
	}
}

func rowID(g *apertura.Grid, row string) string {
	n, err := strconv.Atoi(strings.TrimSpace(row))
	rows := g.Rows()
	if err != nil || n < 1 || n > len(rows) {
		return ""
	}
	return rows[n-1].ID
}

func printGrid(ctx context.Context, g *apertura.Grid) {
	rows := g.Rows()
	fmt.Printf("\n=== Apertura %s (%d rows) ===\n", g.Source().ID, len(rows))
	for i, r := range rows {
		dirty := " "
		if g.IsDirty(r.ID) {
			dirty = "*"
		}
		fmt.Printf("%s %2d  total %12s", dirty, i+1, domain.FormatAmount(r.Total()))
		for _, f := range apertura.FieldOrder {
			v := apertura.Value(r, f)
			if v == "" || f.Numeric() {
				continue
			}
			if name, ok := g.Describe(ctx, r.ID, f); ok {
				v += " (" + name + ")"
			}
			fmt.Printf("  %s=%s", f, v)
		}
		fmt.Println()
	}

	c := g.Comparison()
	fmt.Printf("\nRows total %s, item total %s: %s", domain.FormatAmount(c.GridTotal), domain.FormatAmount(c.SourceTotal), c.Status)
	if c.Status != apertura.StatusEqual {
		fmt.Printf(" by %s", domain.FormatAmount(c.Difference))
	}
	fmt.Println()
}
