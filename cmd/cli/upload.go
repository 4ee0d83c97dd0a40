package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/rendiciones/internal/config"
	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/dvloznov/rendiciones/internal/extraction"
	"github.com/dvloznov/rendiciones/internal/logger"
	"github.com/dvloznov/rendiciones/internal/tolerance"
	"github.com/rs/zerolog"
)

func runUpload(log zerolog.Logger, cfg *config.AppConfig, args []string) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to the receipt (PDF, JPEG or PNG)")
	target := fs.String("target", "", "Expense line ID the receipt belongs to")
	refDate := fs.String("ref-date", "", "Date of the expense line, for match badges")
	refAmount := fs.String("ref-amount", "", "Amount of the expense line, for match badges")
	apply := fs.String("apply", "", "Comma-separated fields to apply, or 'all'")
	useLocal := fs.Bool("local", false, "Use the in-process backend")
	fs.Parse(args)

	if *filePath == "" || *target == "" {
		log.Fatal().Msg("Usage: cli upload -file PATH -target LINE_ID [-apply fecha,importe]")
	}

	ref := domain.ReferenceLine{ID: *target, Fecha: *refDate}
	if *refAmount != "" {
		d, ok := domain.ParseAmount(*refAmount)
		if !ok {
			log.Fatal().Str("ref_amount", *refAmount).Msg("Error: --ref-amount is not a number")
		}
		ref.Importe = domain.Some(d)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	e, err := openEnv(ctx, cfg, *useLocal, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open backend")
	}
	defer e.Close()

	s, err := uploadAndWait(ctx, cfg, e, ref, *filePath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}
	defer s.Close()

	doc := s.Document()
	fmt.Printf("Document %s: %s\n", s.DocumentID(), s.State())
	if s.State() == extraction.StateError {
		fmt.Printf("Extraction failed: %s\n", doc.Error)
		return
	}
	if s.NothingRecognized() {
		fmt.Println("Nothing was recognized on this document. Discard it or upload a clearer copy.")
		return
	}
	printExtracted(doc.Fields, s.Matches())

	if *apply == "" {
		return
	}

	names := doc.Fields.Present()
	if *apply != "all" {
		names = nil
		for _, raw := range strings.Split(*apply, ",") {
			name, err := domain.ParseFieldName(raw)
			if err != nil {
				log.Fatal().Err(err).Msg("Invalid --apply")
			}
			names = append(names, name)
		}
	}
	for _, name := range s.Select(names...) {
		log.Warn().Str("field", string(name)).Msg("Field was not extracted, skipping")
	}

	applied, err := s.ApplySelected(ctx, nil)
	if errors.Is(err, extraction.ErrNothingSelected) {
		fmt.Println("No fields applied.")
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Apply failed")
	}
	fmt.Printf("Applied to %s: %s\n", ref.ID, joinFields(applied.Present()))
}

// uploadAndWait validates and uploads path, then blocks until extraction
// reaches a terminal state.
func uploadAndWait(ctx context.Context, cfg *config.AppConfig, e *env, ref domain.ReferenceLine, path string, log zerolog.Logger) (*extraction.Session, error) {
	f, closer, err := extraction.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	s := newSession(cfg, e.backend, ref, log)
	if err := s.Upload(ctx, f); err != nil {
		s.Close()
		return nil, err
	}
	fmt.Printf("Uploaded %s, waiting for extraction...\n", f.Name)

	if err := s.Wait(ctx); err != nil {
		s.Close()
		if errors.Is(err, extraction.ErrPollLimit) {
			return nil, fmt.Errorf("document %s is still processing, try again later: %w", s.DocumentID(), err)
		}
		return nil, err
	}
	return s, nil
}

func printExtracted(fields domain.ExtractedFields, m tolerance.FieldMatchResult) {
	fmt.Println("\n=== Extracted Fields ===")
	for _, name := range domain.ExtractedFieldOrder {
		v, ok := fields.Value(name)
		if !ok {
			continue
		}
		badge := ""
		switch name {
		case domain.FieldFecha:
			badge = badgeFor(m.Fecha)
		case domain.FieldImporte:
			badge = badgeFor(m.Importe)
		}
		fmt.Printf("  %-18s %v%s\n", name, v, badge)
	}
}

func badgeFor(m tolerance.Match) string {
	switch m {
	case tolerance.Matched:
		return "  [matches line]"
	case tolerance.Mismatched:
		return "  [differs from line]"
	}
	return ""
}

func joinFields(names []domain.FieldName) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}
