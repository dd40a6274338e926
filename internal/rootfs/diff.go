package rootfs

import (
	"bytes"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/mmlb/packethost-packet-networking/internal/render"
)

// FileDiff is the unified diff of one artifact against the root.
type FileDiff struct {
	Path string
	New  bool
	Text string
}

// Diff compares artifacts with the files under the root. Artifacts whose
// content would not change are omitted.
func (r *Root) Diff(artifacts []render.Artifact) ([]FileDiff, error) {
	var out []FileDiff
	for _, a := range artifacts {
		current, want, exists, err := r.Expected(a)
		if err != nil {
			return nil, err
		}
		if exists && bytes.Equal(current, want) {
			continue
		}

		from, before := "a/"+a.Path, difflib.SplitLines(string(current))
		if !exists {
			from, before = "/dev/null", nil
		}
		text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        before,
			B:        difflib.SplitLines(string(want)),
			FromFile: from,
			ToFile:   "b/" + a.Path,
			Context:  3,
		})
		if err != nil {
			return nil, fmt.Errorf("diff %s: %w", a.Path, err)
		}
		out = append(out, FileDiff{Path: a.Path, New: !exists, Text: text})
	}
	return out, nil
}
