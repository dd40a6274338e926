// Package rootfs persists rendered artifacts below a root directory and
// compares them with what is already there.
package rootfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/mmlb/packethost-packet-networking/internal/logging"
	"github.com/mmlb/packethost-packet-networking/internal/render"
	"github.com/mmlb/packethost-packet-networking/internal/validation"
)

// Action is what Write did to one file.
type Action string

const (
	ActionCreate    Action = "create"
	ActionUpdate    Action = "update"
	ActionAppend    Action = "append"
	ActionUnchanged Action = "unchanged"
)

// Change records the action taken for one artifact.
type Change struct {
	Path   string
	Action Action
}

// Report summarizes a Write.
type Report struct {
	Changes []Change
}

// Count returns how many changes had action a.
func (r Report) Count(a Action) int {
	n := 0
	for _, c := range r.Changes {
		if c.Action == a {
			n++
		}
	}
	return n
}

// Root reads and writes artifacts inside a billy filesystem.
type Root struct {
	fs     billy.Filesystem
	logger *logging.Logger
}

// New wraps fs. A nil logger discards output.
func New(fs billy.Filesystem, logger *logging.Logger) *Root {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Root{fs: fs, logger: logger.WithComponent("rootfs")}
}

// NewOS returns a Root confined to the directory dir.
func NewOS(dir string, logger *logging.Logger) *Root {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return New(osfs.New(dir, osfs.WithBoundOS()), logger)
}

// maxLinks bounds symlink resolution, as the kernel's ELOOP limit does.
const maxLinks = 40

// Resolve follows symbolic links at p, the last path element only, and
// returns the path that reads and writes of p reach. Absolute link targets
// are taken relative to the root, as they would be inside a chroot of it.
// Links leaving the root are an error.
func (r *Root) Resolve(p string) (string, error) {
	if err := validation.ValidateRelativePath(p); err != nil {
		return "", err
	}
	sl, ok := r.fs.(billy.Symlink)
	if !ok {
		return p, nil
	}

	for range maxLinks {
		fi, err := sl.Lstat(p)
		if errors.Is(err, os.ErrNotExist) {
			return p, nil
		}
		if err != nil {
			return "", fmt.Errorf("lstat %s: %w", p, err)
		}
		if fi.Mode()&os.ModeSymlink == 0 {
			return p, nil
		}

		target, err := sl.Readlink(p)
		if err != nil {
			return "", fmt.Errorf("readlink %s: %w", p, err)
		}
		target = filepath.ToSlash(target)
		if path.IsAbs(target) {
			target = strings.TrimPrefix(path.Clean(target), "/")
		} else {
			target = path.Join(path.Dir(p), target)
		}
		if err := validation.ValidateRelativePath(target); err != nil {
			return "", fmt.Errorf("%s links outside the root: %w", p, err)
		}
		p = target
	}
	return "", fmt.Errorf("%s: too many levels of symbolic links", p)
}

// Read returns the current content of p, following symbolic links. A
// missing file returns an error matching os.ErrNotExist.
func (r *Root) Read(p string) ([]byte, error) {
	p, err := r.Resolve(p)
	if err != nil {
		return nil, err
	}
	f, err := r.fs.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Expected returns the content a would leave on disk given the current
// content. Append artifacts only add lines that are not present yet.
func (r *Root) Expected(a render.Artifact) (current, want []byte, exists bool, err error) {
	current, err = r.Read(a.Path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, a.Content, false, nil
	case err != nil:
		return nil, nil, false, fmt.Errorf("read %s: %w", a.Path, err)
	}
	if a.Append {
		return current, appendMissing(current, a.Content), true, nil
	}
	return current, a.Content, true, nil
}

// Write stores every artifact. Replaced files are written to a temporary
// file and renamed into place. An artifact path that is a symbolic link is
// written through to the link's target, so the link survives.
func (r *Root) Write(ctx context.Context, artifacts []render.Artifact) (Report, error) {
	var rep Report
	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if err := validation.ValidateRelativePath(a.Path); err != nil {
			return rep, fmt.Errorf("artifact %q: %w", a.Path, err)
		}
		dest, err := r.Resolve(a.Path)
		if err != nil {
			return rep, fmt.Errorf("artifact %q: %w", a.Path, err)
		}

		current, want, exists, err := r.Expected(a)
		if err != nil {
			return rep, err
		}

		action := ActionCreate
		switch {
		case exists && bytes.Equal(current, want):
			action = ActionUnchanged
		case exists && a.Append:
			action = ActionAppend
		case exists:
			action = ActionUpdate
		}

		if action != ActionUnchanged {
			if err := r.replace(dest, want, a.Mode); err != nil {
				return rep, err
			}
		}
		if err := r.chmod(dest, a.Mode); err != nil {
			return rep, err
		}

		r.logger.Debug("artifact", "path", a.Path, "dest", dest, "action", string(action))
		rep.Changes = append(rep.Changes, Change{Path: a.Path, Action: action})
	}
	return rep, nil
}

func (r *Root) replace(p string, content []byte, mode os.FileMode) error {
	dir := path.Dir(p)
	if err := r.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := r.fs.TempFile(dir, "."+path.Base(p)+".")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", p, err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		_ = r.fs.Remove(name)
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		_ = r.fs.Remove(name)
		return fmt.Errorf("close %s: %w", p, err)
	}
	if err := r.chmod(name, mode); err != nil {
		_ = r.fs.Remove(name)
		return err
	}
	if err := r.fs.Rename(name, p); err != nil {
		_ = r.fs.Remove(name)
		return fmt.Errorf("rename into %s: %w", p, err)
	}
	return nil
}

func (r *Root) chmod(p string, mode os.FileMode) error {
	if mode == 0 {
		return nil
	}
	ch, ok := r.fs.(billy.Chmod)
	if !ok {
		return fmt.Errorf("chmod %s: %w", p, billy.ErrNotSupported)
	}
	if err := ch.Chmod(p, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", p, err)
	}
	return nil
}

// appendMissing adds each line of add that current lacks.
func appendMissing(current, add []byte) []byte {
	have := make(map[string]bool)
	for _, l := range strings.Split(string(current), "\n") {
		have[strings.TrimSpace(l)] = true
	}

	out := append([]byte(nil), current...)
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	for _, l := range strings.SplitAfter(string(add), "\n") {
		key := strings.TrimSpace(l)
		if key == "" || have[key] {
			continue
		}
		have[key] = true
		out = append(out, l...)
		if !strings.HasSuffix(l, "\n") {
			out = append(out, '\n')
		}
	}
	return out
}
