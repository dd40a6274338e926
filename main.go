package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmlb/packethost-packet-networking/cmd"
	"github.com/mmlb/packethost-packet-networking/internal/brand"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "render":
		err = cmd.RunRender(ctx, args)
	case "apply":
		err = cmd.RunApply(ctx, args)
	case "diff":
		err = cmd.RunDiff(ctx, args)
	case "check":
		err = cmd.RunCheck(ctx, args)
	case "targets":
		err = cmd.RunTargets(args)
	case "status":
		err = cmd.RunStatus(ctx, args)
	case "config":
		err = cmd.RunConfig(args)
	case "discover":
		err = cmd.RunDiscover(ctx, args)
	case "version", "-v", "--version":
		cmd.Printer.Printf("%s %s (%s)\n", brand.Name, brand.Version, brand.GitCommit)
	case "help", "-h", "--help":
		printUsage()
	default:
		cmd.Printer.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
	case errors.Is(err, cmd.ErrDiffers):
		// The diff itself is the output.
		os.Exit(2)
	default:
		cmd.Printer.Fprintf(os.Stderr, "%s %s failed: %s\n", brand.BinaryName, os.Args[1], cmd.Explain(err))
		os.Exit(1)
	}
}

func printUsage() {
	cmd.Printer.Printf(`%s - %s

Usage:
  %s <command> [options]

Commands:
  render     Render network configuration and print it, or write it with -o
  apply      Render one target and write it to the root filesystem
  diff       Show how the root filesystem differs from a fresh render
  check      Validate metadata against the configured targets
  targets    List available render targets
  status     Show the last apply of every target
  config     Write a default configuration (config init [path])
  discover   List host links and their hardware addresses
  version    Print the version

Common options:
  -c, -config     Configuration file (default %s)
  -t, -targets    Comma-separated targets, overriding the configuration
  -m, -metadata   Metadata file, - for stdin
  -u, -url        Metadata URL
  -f, -format     Metadata shape: canonical or packet
  -r, -rootfs     Root filesystem for apply and diff
`, brand.BinaryName, brand.Description, brand.BinaryName, brand.DefaultConfigPath())
}
