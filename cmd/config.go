package cmd

import (
	"fmt"

	"github.com/mmlb/packethost-packet-networking/internal/brand"
	"github.com/mmlb/packethost-packet-networking/internal/config"
	"github.com/mmlb/packethost-packet-networking/internal/i18n"
)

// RunConfig handles "config <subcommand>". Only init exists.
func RunConfig(args []string) error {
	if len(args) == 0 || args[0] != "init" {
		return fmt.Errorf("usage: %s config init [path]", brand.BinaryName)
	}

	fs := newFlagSet("config init")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	path := brand.DefaultConfigPath()
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	if err := config.WriteDefault(path); err != nil {
		return err
	}
	Printer.Fprintf(Stdout, i18n.MsgConfigWritten, path)
	Printer.Fprintln(Stdout)
	return nil
}
