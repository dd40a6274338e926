package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmlb/packethost-packet-networking/internal/render"
	"github.com/mmlb/packethost-packet-networking/internal/rootfs"
	"github.com/mmlb/packethost-packet-networking/internal/state"
)

func openLedger(s *session) (*state.Ledger, error) {
	l, err := state.Open(state.Options{Path: s.cfg.State.Path, Clock: Clock})
	if err != nil {
		return nil, fmt.Errorf("open state ledger: %w", err)
	}
	return l, nil
}

// record stores one apply. Actions come from the rootfs report, which
// lists artifacts in the order they were written.
func record(ctx context.Context, s *session, runID uuid.UUID, target string, artifacts []render.Artifact, rep rootfs.Report) error {
	l, err := openLedger(s)
	if err != nil {
		return err
	}
	defer l.Close()

	files := make([]state.File, 0, len(artifacts))
	for i, a := range artifacts {
		action := ""
		if i < len(rep.Changes) {
			action = string(rep.Changes[i].Action)
		}
		files = append(files, state.NewFile(a.Path, a.Content, a.Mode, action))
	}
	return l.Record(ctx, state.Apply{
		RunID:  runID,
		Target: target,
		RootFS: s.cfg.RootFS,
		Files:  files,
	})
}
