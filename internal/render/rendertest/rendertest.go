// Package rendertest provides metadata fixtures and graph helpers for
// renderer tests.
package rendertest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mmlb/packethost-packet-networking/internal/metadata"
	"github.com/mmlb/packethost-packet-networking/internal/render"
	"github.com/mmlb/packethost-packet-networking/internal/topology"
)

// Graph parses, builds and validates raw against full capabilities.
func Graph(t testing.TB, raw map[string]any) *topology.Graph {
	t.Helper()
	g := Unvalidated(t, raw)
	require.NoError(t, topology.Validate(g, topology.FullCapabilities()))
	return g
}

// Unvalidated parses and builds raw but skips the validator, so renderers
// can be handed shapes a real run never lets through.
func Unvalidated(t testing.TB, raw map[string]any) *topology.Graph {
	t.Helper()
	doc, err := metadata.Parse(raw)
	require.NoError(t, err)
	g, err := topology.Build(doc)
	require.NoError(t, err)
	return g
}

// Files renders g with r and indexes the artifacts by path.
func Files(t testing.TB, r render.Renderer, g *topology.Graph) map[string]render.Artifact {
	t.Helper()
	artifacts, err := r.Render(g)
	require.NoError(t, err)
	out := make(map[string]render.Artifact, len(artifacts))
	for _, a := range artifacts {
		_, dup := out[a.Path]
		require.False(t, dup, "duplicate artifact %s", a.Path)
		out[a.Path] = a
	}
	return out
}

// SingleNIC is one interface with one IPv4 address and its gateway.
func SingleNIC() map[string]any {
	return map[string]any{
		"interfaces": []any{
			map[string]any{"id": "nic0", "mac": "AA:BB:CC:00:00:01"},
		},
		"addresses": []any{
			map[string]any{"owner_id": "nic0", "cidr": "10.0.0.2/24", "gateway": "10.0.0.1"},
		},
	}
}

// Bonded is a two-member LACP bond carrying a public IPv4 address, a
// public IPv6 address and a private IPv4 address routed to 10.0.0.0/8.
func Bonded() map[string]any {
	return map[string]any{
		"hostname":  "web-1",
		"resolvers": []any{"147.75.207.207", "147.75.207.208"},
		"interfaces": []any{
			map[string]any{"id": "p2", "mac": "b4:96:91:00:00:02", "bond_id": "b0"},
			map[string]any{"id": "p1", "mac": "b4:96:91:00:00:01", "bond_id": "b0"},
		},
		"bonds": []any{
			map[string]any{"id": "b0", "mode": "802.3ad", "name": "bond0"},
		},
		"addresses": []any{
			map[string]any{"owner_id": "b0", "cidr": "147.75.1.2/31", "gateway": "147.75.1.3"},
			map[string]any{"owner_id": "b0", "cidr": "10.99.1.3/31"},
			map[string]any{"owner_id": "b0", "cidr": "2604:1380::2/127", "gateway": "2604:1380::3"},
		},
		"routes": []any{
			map[string]any{"owner_id": "b0", "destination": "10.0.0.0/8", "via": "10.99.1.2"},
		},
	}
}

// BondedVLAN is an active-backup bond with an addressed VLAN 100.
func BondedVLAN() map[string]any {
	return map[string]any{
		"interfaces": []any{
			map[string]any{"id": "p1", "mac": "aa:bb:cc:00:00:01"},
			map[string]any{"id": "p2", "mac": "aa:bb:cc:00:00:02"},
		},
		"bonds": []any{
			map[string]any{"id": "b0", "mode": "active-backup", "members": []any{"p1", "p2"}},
		},
		"vlans": []any{
			map[string]any{"id": "v100", "parent_id": "b0", "tag": 100},
		},
		"addresses": []any{
			map[string]any{"owner_id": "b0", "cidr": "192.0.2.10/24", "gateway": "192.0.2.1"},
			map[string]any{"owner_id": "v100", "cidr": "172.16.100.2/24"},
		},
	}
}

// VLANAddressed is an address-less active-backup bond whose VLAN 100
// carries the only address and gateway. It has no hostname or resolvers.
func VLANAddressed() map[string]any {
	return map[string]any{
		"interfaces": []any{
			map[string]any{"id": "p1", "mac": "aa:bb:cc:00:00:01"},
			map[string]any{"id": "p2", "mac": "aa:bb:cc:00:00:02"},
		},
		"bonds": []any{
			map[string]any{"id": "b0", "mode": "active-backup", "members": []any{"p1", "p2"}},
		},
		"vlans": []any{
			map[string]any{"id": "v100", "parent_id": "b0", "tag": 100},
		},
		"addresses": []any{
			map[string]any{"owner_id": "v100", "cidr": "10.0.0.2/24", "gateway": "10.0.0.1"},
		},
	}
}

// AddressedMember gives a bond member its own address. The validator
// rejects it.
func AddressedMember() map[string]any {
	raw := VLANAddressed()
	raw["addresses"] = append(raw["addresses"].([]any),
		map[string]any{"owner_id": "p2", "cidr": "192.0.2.7/24"})
	return raw
}

// VLANOnMember stacks a VLAN on a bond member. The validator rejects it.
func VLANOnMember() map[string]any {
	raw := VLANAddressed()
	raw["vlans"] = append(raw["vlans"].([]any),
		map[string]any{"id": "v200", "parent_id": "p1", "tag": 200})
	return raw
}
