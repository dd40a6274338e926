// Package render defines the renderer contract and the registry that maps
// target names to renderers.
//
// A renderer turns a validated topology graph into the files one family of
// operating systems reads at boot. Renderers are pure: they read the
// graph, never touch the host, and return the same artifacts for the same
// graph every time.
package render

import (
	"fmt"
	"os"
	"sort"

	"github.com/mmlb/packethost-packet-networking/internal/topology"
)

// Renderer produces the configuration artifacts of one target.
type Renderer interface {
	// Target is the canonical registry key.
	Target() string
	// Capabilities describes what the target can express. The validator
	// checks the graph against it before Render is called.
	Capabilities() topology.Capabilities
	// Render returns the artifacts for g. Shapes the capabilities could not
	// exclude are reported as *UnsupportedTopologyError.
	Render(g *topology.Graph) ([]Artifact, error)
}

// Default file modes.
const (
	ModeConfig     os.FileMode = 0o644
	ModePrivate    os.FileMode = 0o600
	ModeExecutable os.FileMode = 0o755
)

// Artifact is one file of rendered output.
type Artifact struct {
	// Path is slash-separated and relative to the target root filesystem.
	Path    string
	Content []byte
	Mode    os.FileMode
	// Append asks the writer to add Content to an existing file rather
	// than replace it.
	Append bool
}

// SortArtifacts orders artifacts by path.
func SortArtifacts(as []Artifact) {
	sort.SliceStable(as, func(i, j int) bool { return as[i].Path < as[j].Path })
}

// Manifest lists the artifact paths in sorted order.
func Manifest(as []Artifact) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.Path
	}
	sort.Strings(out)
	return out
}

// UnsupportedTopologyError is returned by a renderer for a graph shape it
// cannot express even though its declared capabilities allowed it.
type UnsupportedTopologyError struct {
	Target    string
	Interface string
	Reason    string
}

func (e *UnsupportedTopologyError) Error() string {
	if e.Interface == "" {
		return fmt.Sprintf("target %s cannot render topology: %s", e.Target, e.Reason)
	}
	return fmt.Sprintf("target %s cannot render %s: %s", e.Target, e.Interface, e.Reason)
}

// UnknownTargetError reports a target key the registry does not know.
type UnknownTargetError struct {
	Target string
	Known  []string
}

func (e *UnknownTargetError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("unknown target %q", e.Target)
	}
	return fmt.Sprintf("unknown target %q (known: %v)", e.Target, e.Known)
}
