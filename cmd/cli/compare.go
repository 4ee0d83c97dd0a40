package main

import (
	"flag"
	"fmt"

	"github.com/dvloznov/rendiciones/internal/domain"
	"github.com/dvloznov/rendiciones/internal/tolerance"
	"github.com/rs/zerolog"
)

func runCompare(log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	kind := fs.String("kind", "date", "What to compare: date or amount")
	a := fs.String("a", "", "First value")
	b := fs.String("b", "", "Second value")
	fs.Parse(args)

	switch *kind {
	case "date":
		fmt.Printf("%q vs %q: %s\n", *a, *b, verdict(tolerance.CompareDates(*a, *b)))
	case "amount":
		ok := tolerance.CompareAmounts(*a, *b)
		fmt.Printf("%q vs %q: %s\n", *a, *b, verdict(ok))
		x, okA := domain.ParseAmount(*a)
		y, okB := domain.ParseAmount(*b)
		if okA && okB {
			fmt.Printf("difference %s, tolerance %s\n",
				domain.FormatAmount(x.Sub(y).Abs()), domain.FormatAmount(tolerance.AmountTolerance(x, y)))
		}
	default:
		log.Fatal().Str("kind", *kind).Msg("Error: --kind must be date or amount")
	}
}

func verdict(ok bool) string {
	if ok {
		return "match"
	}
	return "no match"
}
