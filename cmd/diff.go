package cmd

import (
	"context"
	"errors"
	"io"

	"github.com/mmlb/packethost-packet-networking/internal/i18n"
	"github.com/mmlb/packethost-packet-networking/internal/rootfs"
)

// ErrDiffers is returned by RunDiff when the root filesystem does not
// match the rendered artifacts.
var ErrDiffers = errors.New("configuration differs from root filesystem")

// RunDiff prints a unified diff between the rendered target and the files
// on the root filesystem.
func RunDiff(ctx context.Context, args []string) error {
	fs := newFlagSet("diff")
	o := bindCommon(fs, true)
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := newSession(o)
	if err != nil {
		return err
	}
	if err := s.single("diff"); err != nil {
		return err
	}
	res, err := s.run(ctx)
	if err != nil {
		return err
	}

	diffs, err := rootfs.NewOS(s.cfg.RootFS, s.logger).Diff(res.Outputs[0].Artifacts)
	if err != nil {
		return err
	}
	if len(diffs) == 0 {
		Printer.Fprintln(Stdout, Printer.Sprintf(i18n.MsgUpToDate))
		return nil
	}
	for _, d := range diffs {
		io.WriteString(Stdout, d.Text)
	}
	Printer.Fprintf(Stderr, i18n.MsgFilesDiffer, len(diffs))
	Printer.Fprintln(Stderr)
	return ErrDiffers
}
