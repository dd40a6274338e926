package cmd

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/mmlb/packethost-packet-networking/internal/i18n"
)

// RunStatus prints the last apply of every target from the ledger.
func RunStatus(ctx context.Context, args []string) error {
	fs := newFlagSet("status")
	o := bindCommon(fs, false)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	if !cfg.State.Enabled {
		return errors.New("state ledger is disabled in the configuration")
	}

	s := &session{cfg: cfg}
	l, err := openLedger(s)
	if err != nil {
		return err
	}
	defer l.Close()

	applies, err := l.Latest(ctx)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	if len(applies) == 0 {
		Printer.Fprintln(Stdout, Printer.Sprintf(i18n.MsgNoApply))
		return nil
	}

	w := tabwriter.NewWriter(Stdout, 0, 0, 2, ' ', 0)
	Printer.Fprintln(w, "TARGET\tRUN\tAPPLIED\tFILES\tROOTFS")
	for _, a := range applies {
		Printer.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			a.Target, a.RunID, a.AppliedAt.Format(time.RFC3339), len(a.Files), a.RootFS)
	}
	return w.Flush()
}
