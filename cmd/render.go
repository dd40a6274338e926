package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mmlb/packethost-packet-networking/internal/i18n"
	"github.com/mmlb/packethost-packet-networking/internal/rootfs"
)

// RunRender renders the configured targets and prints the artifacts, or
// writes them below -o. With several targets each gets its own subdirectory.
func RunRender(ctx context.Context, args []string) error {
	fs := newFlagSet("render")
	o := bindCommon(fs, false)
	outDir := fs.String("output", "", "Write artifacts below this directory instead of printing them")
	fs.StringVar(outDir, "o", "", "Output directory (short)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := newSession(o)
	if err != nil {
		return err
	}
	res, err := s.run(ctx)
	if err != nil {
		return err
	}

	if *outDir == "" {
		for _, out := range res.Outputs {
			for _, a := range out.Artifacts {
				Printer.Fprintf(Stdout, "==> %s: %s (%04o) <==\n", out.Target, a.Path, uint32(a.Mode))
				Stdout.Write(a.Content)
				Printer.Fprintln(Stdout)
			}
		}
		return nil
	}

	for _, out := range res.Outputs {
		dir := *outDir
		if len(res.Outputs) > 1 {
			dir = filepath.Join(dir, out.Target)
		}
		rep, err := rootfs.NewOS(dir, s.logger).Write(ctx, out.Artifacts)
		if err != nil {
			return fmt.Errorf("write %s artifacts: %w", out.Target, err)
		}
		written := len(rep.Changes) - rep.Count(rootfs.ActionUnchanged)
		Printer.Fprintf(Stdout, "%s: ", out.Target)
		Printer.Fprintf(Stdout, i18n.MsgFilesWritten, written, rep.Count(rootfs.ActionUnchanged))
		Printer.Fprintln(Stdout)
	}
	if n := len(res.Warnings); n > 0 {
		Printer.Fprintf(Stderr, i18n.MsgWarnings, n)
		Printer.Fprintln(Stderr)
	}
	return nil
}
