package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/rendiciones/internal/codes"
	"github.com/dvloznov/rendiciones/internal/config"
	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/dvloznov/rendiciones/internal/header"
	"github.com/dvloznov/rendiciones/internal/logger"
	"github.com/rs/zerolog"
)

func runHeader(log zerolog.Logger, cfg *config.AppConfig, args []string) {
	fs := flag.NewFlagSet("header", flag.ExitOnError)
	documentID := fs.String("document", "", "Document ID")
	filePath := fs.String("file", "", "Upload this receipt first and edit its header (for -local)")
	useLocal := fs.Bool("local", false, "Use the in-process backend")
	var sets, lineSets, taxSets multiFlag
	var deleteLines, deleteTaxes multiFlag
	fs.Var(&sets, "set", "Header field to change, as field=value (repeatable)")
	fs.Var(&lineSets, "line", "Line item change, as ID:field=value (repeatable)")
	fs.Var(&taxSets, "tax", "Tax entry change, as ID:field=value (repeatable)")
	fs.Var(&deleteLines, "delete-line", "Line item ID to delete (repeatable)")
	fs.Var(&deleteTaxes, "delete-tax", "Tax entry ID to delete (repeatable)")
	fs.Parse(args)

	if *documentID == "" && *filePath == "" {
		log.Fatal().Msg("Usage: cli header -document ID [-set field=value ...]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	e, err := openEnv(ctx, cfg, *useLocal, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open backend")
	}
	defer e.Close()

	if *filePath != "" {
		s, err := uploadAndWait(ctx, cfg, e, domain.ReferenceLine{ID: *documentID}, *filePath, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Upload failed")
		}
		*documentID = s.DocumentID()
		s.Close()
	}

	ws, err := header.OpenWorkspace(ctx, e.backend, *documentID, log,
		header.WithResolver(codes.NewResolver(e.backend, log)))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open document")
	}

	if len(sets) > 0 {
		for _, raw := range sets {
			k, v, err := keyValue(raw)
			if err != nil {
				log.Fatal().Err(err).Msg("Invalid --set")
			}
			f, err := header.ParseField(k)
			if err != nil {
				log.Fatal().Err(err).Msg("Invalid --set")
			}
			if err := ws.Header.Set(f, v); err != nil {
				log.Fatal().Err(err).Msg("Invalid --set")
			}
		}

		saved, err := ws.Header.Save(ctx, func(h domain.Header) {
			fmt.Printf("Header of %s saved.\n", h.DocumentID)
		})
		var mismatch *header.SumMismatchError
		switch {
		case errors.As(err, &mismatch):
			fmt.Printf("Not saved: net + exempt + taxes = %s but total is %s (difference %s).\n",
				domain.FormatAmount(mismatch.Sum), domain.FormatAmount(mismatch.Total),
				domain.FormatAmount(mismatch.Sum.Sub(mismatch.Total).Abs()))
			return
		case errors.Is(err, header.ErrInvalidNumber):
			fmt.Printf("Not saved: %v\n", err)
			return
		case err != nil:
			log.Fatal().Err(err).Msg("Header save failed")
		}
		ws.Header.Open(*saved)
	}

	if err := ws.SetTab(header.TabLines); err != nil {
		log.Fatal().Err(err).Msg("Failed to switch tab")
	}
	applyRowEdits(ctx, log, "line", lineSets, deleteLines, ws.Lines.Stage, ws.Lines.Commit, ws.Lines.Delete)

	if err := ws.SetTab(header.TabTaxes); err != nil {
		log.Fatal().Err(err).Msg("Failed to switch tab")
	}
	applyRowEdits(ctx, log, "tax", taxSets, deleteTaxes, ws.Taxes.Stage, ws.Taxes.Commit, ws.Taxes.Delete)

	printWorkspace(ctx, ws)
}

// applyRowEdits stages every ID:field=value edit, commits each touched item
// once and then runs the deletes.
func applyRowEdits[T any](
	ctx context.Context,
	log zerolog.Logger,
	kind string,
	sets, deletes []string,
	stage func(id, field, value string) error,
	commit func(ctx context.Context, id string) (*T, error),
	remove func(ctx context.Context, id string) error,
) {
	var touched []string
	seen := make(map[string]bool)
	for _, raw := range sets {
		id, rest, ok := strings.Cut(raw, ":")
		if !ok {
			log.Fatal().Str(kind, raw).Msg("Expected ID:field=value")
		}
		k, v, err := keyValue(rest)
		if err != nil {
			log.Fatal().Err(err).Str(kind, raw).Msg("Invalid edit")
		}
		if err := stage(id, k, v); err != nil {
			log.Fatal().Err(err).Str(kind, raw).Msg("Invalid edit")
		}
		if !seen[id] {
			seen[id] = true
			touched = append(touched, id)
		}
	}
	for _, id := range touched {
		if _, err := commit(ctx, id); err != nil {
			log.Fatal().Err(err).Str("id", id).Msgf("Failed to save %s", kind)
		}
	}
	for _, id := range deletes {
		if err := remove(ctx, id); err != nil {
			log.Fatal().Err(err).Str("id", id).Msgf("Failed to delete %s", kind)
		}
	}
}

func printWorkspace(ctx context.Context, ws *header.Workspace) {
	st, _ := ws.Header.State()
	fmt.Printf("\n=== Header %s ===\n", ws.DocumentID)
	for _, f := range header.Fields {
		if name, ok := ws.Header.Describe(ctx, f); ok {
			fmt.Printf("  %-18s %s (%s)\n", f, st.Get(f), name)
			continue
		}
		fmt.Printf("  %-18s %s\n", f, st.Get(f))
	}

	lines := ws.Lines.Items()
	fmt.Printf("\n=== Lines (%d) ===\n", len(lines))
	for _, l := range lines {
		fmt.Printf("  %-36s %-30s %10s x %10s = %12s\n", l.ID, l.Descripcion,
			l.Cantidad.String(), domain.FormatAmount(l.PrecioUnitario), domain.FormatAmount(l.Importe))
	}

	taxes := ws.Taxes.Items()
	fmt.Printf("\n=== Taxes (%d) ===\n", len(taxes))
	for _, t := range taxes {
		fmt.Printf("  %-36s %-8s %-24s base %12s rate %6s = %12s\n", t.ID, t.Codigo, t.Descripcion,
			domain.FormatAmount(t.Base), t.Alicuota.String(), domain.FormatAmount(t.Importe))
	}
}
