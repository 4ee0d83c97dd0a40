package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/rendiciones/internal/backend"
	"github.com/dvloznov/rendiciones/internal/codes"
	"github.com/dvloznov/rendiciones/internal/config"
	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/rs/zerolog"
)

func runCodes(log zerolog.Logger, cfg *config.AppConfig, args []string) {
	fs := flag.NewFlagSet("codes", flag.ExitOnError)
	typeName := fs.String("type", "", "Code type: proveedor, dimension, subcuenta, cuentaContable, tipoOrdenCompra, tipoProducto")
	code := fs.String("code", "", "Code to resolve; lists every code of the type when empty")
	useLocal := fs.Bool("local", false, "Use the in-process backend (codes from BIGQUERY_* or CODES_FILE)")
	fs.Parse(args)

	codeType, err := domain.ParseCodeType(*typeName)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid --type")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var source backend.Codes
	if *useLocal {
		// codes need no extractor, so skip the full local backend
		src, closeSource, err := openCodes(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open code source")
		}
		if closeSource != nil {
			defer closeSource()
		}
		if src == nil {
			src = codes.NewStaticSource(nil)
		}
		source = src
	} else {
		e, err := openEnv(ctx, cfg, false, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open backend")
		}
		defer e.Close()
		source = e.backend
	}

	r := codes.NewResolver(source, log)

	if *code != "" {
		name, ok := r.Resolve(ctx, codeType, *code)
		if !ok {
			fmt.Printf("%s %s: no description\n", codeType, *code)
			return
		}
		fmt.Printf("%s %s: %s\n", codeType, *code, name)
		return
	}

	entries, err := r.Entries(ctx, codeType)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list codes")
	}
	fmt.Printf("=== %s (%d) ===\n", codeType, len(entries))
	for _, en := range entries {
		fmt.Printf("  %-12s %s\n", en.Code, en.Name)
	}
}
