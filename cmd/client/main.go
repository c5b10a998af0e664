package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/brooksh/brook/internal/client/api"
	"github.com/brooksh/brook/internal/client/cli"
	"github.com/brooksh/brook/internal/client/iocli"
	"github.com/brooksh/brook/internal/client/storage/boltdb"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	dbPath := flag.String("db", "brook-client.db", "Path to local session cache")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	os.Exit(run(*serverURL, *dbPath, flag.Args()))
}

func run(serverURL, dbPath string, args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := boltdb.New(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to close database: %v\n", err)
		}
	}()

	// the user agent feeds the server side device fingerprint, keep it free of the version
	client := api.NewClient(serverURL)

	err = cli.New(client, store, iocli.NewStdio()).Run(ctx, args)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, cli.ErrUsage):
		return 2
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
}

func printVersion() {
	fmt.Printf("Brook Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
