package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/iudanet/deltasync/internal/client/api"
	"github.com/iudanet/deltasync/internal/client/cli"
	"github.com/iudanet/deltasync/internal/client/iocli"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Node URL")
	peerID := flag.String("peer-id", "cli", "Peer identifier used for tokens")
	useAuth := flag.Bool("auth", false, "Request a token before collaboration commands")
	secret := flag.String("secret", "", "Collaboration secret (not recommended)")
	secretFile := flag.String("secret-file", "", "Path to file containing the collaboration secret")
	timeout := flag.Duration("timeout", 30*time.Second, "Request timeout")

	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}

	c := cli.New(api.NewClient(*serverURL), iocli.NewStdio(), cli.Options{
		Secrets: cli.Secrets{FromFile: *secretFile, FromArgs: *secret},
		PeerID:  *peerID,
		Auth:    *useAuth,
	})

	if err := run(c, args, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, cli.ErrUsage) {
			cli.PrintUsage()
		}
		os.Exit(1)
	}
}

func run(c *cli.Cli, args []string, timeout time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return c.Run(ctx, args)
}

func printVersion() {
	fmt.Printf("DeltaSync Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
