package main

import (
	"fmt"
	"os"

	"github.com/dvloznov/rendiciones/internal/config"
	"github.com/dvloznov/rendiciones/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log := logger.NewWithLevel(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	for _, w := range cfg.Warnings {
		log.Warn().Msg(w)
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	args := os.Args[2:]
	switch os.Args[1] {
	case "compare":
		runCompare(log, args)
	case "upload":
		runUpload(log, cfg, args)
	case "header":
		runHeader(log, cfg, args)
	case "apertura":
		runApertura(log, cfg, args)
	case "codes":
		runCodes(log, cfg, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Rendiciones CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  compare   Compare two dates or two amounts with tolerance")
	fmt.Println("  upload    Upload a receipt, wait for extraction and apply fields")
	fmt.Println("  header    Show or edit a document header")
	fmt.Println("  apertura  Split an item total into reconciled rows")
	fmt.Println("  codes     Resolve or list codes")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
	fmt.Println("Pass -local to run against the in-process backend instead of API_BASE_URL.")
}
