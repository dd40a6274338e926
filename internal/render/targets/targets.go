// Package targets holds the process-wide registry of built-in renderers.
package targets

import (
	"sync"

	"github.com/mmlb/packethost-packet-networking/internal/render"
	"github.com/mmlb/packethost-packet-networking/internal/render/debian"
	"github.com/mmlb/packethost-packet-networking/internal/render/netplan"
	"github.com/mmlb/packethost-packet-networking/internal/render/redhat"
)

// Entries is the static table behind Default.
func Entries() []render.Entry {
	return []render.Entry{
		{Renderer: debian.New(), Aliases: []string{"ubuntu"}},
		{Renderer: redhat.New(), Aliases: []string{"rhel", "centos", "fedora", "rocky", "almalinux", "redhatenterprise"}},
		{Renderer: netplan.New()},
	}
}

var (
	defaultRegistry *render.Registry
	once            sync.Once
)

// Default returns the shared read-only registry.
func Default() *render.Registry {
	once.Do(func() {
		defaultRegistry = render.MustRegistry(Entries()...)
	})
	return defaultRegistry
}
