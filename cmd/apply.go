package cmd

import (
	"context"
	"fmt"

	"github.com/mmlb/packethost-packet-networking/internal/clock"
	"github.com/mmlb/packethost-packet-networking/internal/i18n"
	"github.com/mmlb/packethost-packet-networking/internal/rootfs"
)

// Clock stamps ledger entries and metrics. Tests freeze it.
var Clock clock.Clock = clock.RealClock{}

// RunApply renders the single configured target, writes it to the root
// filesystem, records it in the ledger and exports metrics.
func RunApply(ctx context.Context, args []string) error {
	fs := newFlagSet("apply")
	o := bindCommon(fs, true)
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := newSession(o)
	if err != nil {
		return err
	}
	if err := s.single("apply"); err != nil {
		return err
	}
	res, err := s.run(ctx)
	if err != nil {
		return err
	}
	out := res.Outputs[0]
	log := s.logger.WithComponent("cmd")

	rep, err := rootfs.NewOS(s.cfg.RootFS, s.logger).Write(ctx, out.Artifacts)
	if err != nil {
		return fmt.Errorf("apply %s: %w", out.Target, err)
	}
	now := Clock.Now()

	if s.cfg.State.Enabled {
		if err := record(ctx, s, res.RunID, out.Target, out.Artifacts, rep); err != nil {
			return err
		}
	}

	written := rep.Count(rootfs.ActionCreate) + rep.Count(rootfs.ActionUpdate)
	s.metrics.RecordApply(out.Target, written, rep.Count(rootfs.ActionAppend), now)
	if path := s.cfg.Metrics.Textfile; path != "" {
		if err := s.metrics.WriteTextfile(path); err != nil {
			log.Warn("metrics export failed", "path", path, "error", err)
		}
	}

	log.Info("applied", "target", out.Target, "rootfs", s.cfg.RootFS, "run", res.RunID.String())
	Printer.Fprintf(Stdout, "%s: ", out.Target)
	Printer.Fprintf(Stdout, i18n.MsgFilesWritten,
		len(rep.Changes)-rep.Count(rootfs.ActionUnchanged), rep.Count(rootfs.ActionUnchanged))
	Printer.Fprintln(Stdout)
	return nil
}
