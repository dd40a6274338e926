package metadata

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleNIC() map[string]any {
	return map[string]any{
		"hostname": "c3-small-01",
		"interfaces": []any{
			map[string]any{"id": "nic0", "mac": "AA:BB:CC:00:00:01"},
		},
		"addresses": []any{
			map[string]any{"owner_id": "nic0", "cidr": "10.0.0.2/24", "gateway": "10.0.0.1"},
		},
	}
}

func TestParseSingleNIC(t *testing.T) {
	doc, err := Parse(singleNIC())
	require.NoError(t, err)

	require.Len(t, doc.Interfaces, 1)
	assert.Equal(t, "nic0", doc.Interfaces[0].ID)
	assert.Equal(t, "aa:bb:cc:00:00:01", doc.Interfaces[0].MAC.String())
	assert.Equal(t, -1, doc.Interfaces[0].Slot)

	require.Len(t, doc.Addresses, 1)
	a := doc.Addresses[0]
	assert.Equal(t, "10.0.0.2/24", a.Prefix.String())
	assert.Equal(t, FamilyIPv4, a.Family)
	assert.Equal(t, ScopePrivate, a.Scope)
	assert.Equal(t, netip.MustParseAddr("10.0.0.1"), a.Gateway)
	assert.Equal(t, "c3-small-01", doc.Hostname)
}

func TestParseBondModes(t *testing.T) {
	tests := []struct {
		mode any
		want BondMode
	}{
		{"balance-rr", BondBalanceRR},
		{"active-backup", BondActiveBackup},
		{"802.3ad", Bond8023AD},
		{"lacp", Bond8023AD},
		{"LACP", Bond8023AD},
		{4, Bond8023AD},
		{int64(6), BondBalanceALB},
		{float64(1), BondActiveBackup},
		{"5", BondBalanceTLB},
	}

	for _, tt := range tests {
		raw := map[string]any{
			"interfaces": []any{map[string]any{"id": "a", "mac": "aa:bb:cc:00:00:01"}},
			"bonds":      []any{map[string]any{"id": "b", "mode": tt.mode, "members": []any{"a"}}},
		}
		doc, err := Parse(raw)
		require.NoError(t, err, "mode %v", tt.mode)
		assert.Equal(t, tt.want, doc.Bonds[0].Mode, "mode %v", tt.mode)
	}
}

func TestParseFamily(t *testing.T) {
	for _, fam := range []any{6, "6", "v6", "ipv6", int64(6)} {
		raw := map[string]any{
			"interfaces": []any{map[string]any{"id": "a", "mac": "aa:bb:cc:00:00:01"}},
			"addresses": []any{map[string]any{
				"owner_id": "a", "cidr": "2604:1380::2/127", "family": fam, "gateway": "2604:1380::1",
			}},
		}
		doc, err := Parse(raw)
		require.NoError(t, err, "family %v", fam)
		assert.Equal(t, FamilyIPv6, doc.Addresses[0].Family)
		assert.Equal(t, ScopePublic, doc.Addresses[0].Scope)
	}
}

func TestParseMalformed(t *testing.T) {
	iface := func(extra map[string]any) map[string]any {
		m := map[string]any{"id": "nic0", "mac": "aa:bb:cc:00:00:01"}
		for k, v := range extra {
			m[k] = v
		}
		return m
	}

	tests := []struct {
		name    string
		raw     map[string]any
		section string
		index   int
		field   string
	}{
		{
			name:    "missing interfaces",
			raw:     map[string]any{},
			section: SectionInterfaces, index: -1,
		},
		{
			name:    "empty interfaces",
			raw:     map[string]any{"interfaces": []any{}},
			section: SectionInterfaces, index: -1,
		},
		{
			name:    "interfaces not a list",
			raw:     map[string]any{"interfaces": "eth0"},
			section: SectionInterfaces, index: -1,
		},
		{
			name:    "missing mac",
			raw:     map[string]any{"interfaces": []any{map[string]any{"id": "nic0"}}},
			section: SectionInterfaces, index: 0, field: "mac",
		},
		{
			name:    "bad mac",
			raw:     map[string]any{"interfaces": []any{iface(map[string]any{"mac": "zz:zz"})}},
			section: SectionInterfaces, index: 0, field: "mac",
		},
		{
			name:    "slot wrong type",
			raw:     map[string]any{"interfaces": []any{iface(map[string]any{"slot": "first"})}},
			section: SectionInterfaces, index: 0, field: "slot",
		},
		{
			name: "vlan tag not integer",
			raw: map[string]any{
				"interfaces": []any{iface(nil)},
				"vlans":      []any{map[string]any{"id": "v", "parent_id": "nic0", "tag": "ten"}},
			},
			section: SectionVLANs, index: 0, field: "tag",
		},
		{
			name: "vlan tag fractional",
			raw: map[string]any{
				"interfaces": []any{iface(nil)},
				"vlans":      []any{map[string]any{"id": "v", "parent_id": "nic0", "tag": 10.5}},
			},
			section: SectionVLANs, index: 0, field: "tag",
		},
		{
			name: "unknown bond mode",
			raw: map[string]any{
				"interfaces": []any{iface(nil)},
				"bonds":      []any{map[string]any{"id": "b", "mode": "round-robin"}},
			},
			section: SectionBonds, index: 0, field: "mode",
		},
		{
			name: "bond mode out of range",
			raw: map[string]any{
				"interfaces": []any{iface(nil)},
				"bonds":      []any{map[string]any{"id": "b", "mode": 7}},
			},
			section: SectionBonds, index: 0, field: "mode",
		},
		{
			name: "bad cidr",
			raw: map[string]any{
				"interfaces": []any{iface(nil)},
				"addresses":  []any{map[string]any{"owner_id": "nic0", "cidr": "10.0.0.300/24"}},
			},
			section: SectionAddresses, index: 0, field: "cidr",
		},
		{
			name: "ipv4-mapped cidr",
			raw: map[string]any{
				"interfaces": []any{iface(nil)},
				"addresses":  []any{map[string]any{"owner_id": "nic0", "cidr": "::ffff:10.0.0.2/120"}},
			},
			section: SectionAddresses, index: 0, field: "cidr",
		},
		{
			name: "ipv4-mapped gateway",
			raw: map[string]any{
				"interfaces": []any{iface(nil)},
				"addresses":  []any{map[string]any{"owner_id": "nic0", "cidr": "10.0.0.2/24", "gateway": "::ffff:10.0.0.1"}},
			},
			section: SectionAddresses, index: 0, field: "gateway",
		},
		{
			name: "ipv4-mapped route destination",
			raw: map[string]any{
				"interfaces": []any{iface(nil)},
				"routes":     []any{map[string]any{"owner_id": "nic0", "destination": "::ffff:10.0.0.0/104", "via": "::ffff:10.0.0.1"}},
			},
			section: SectionRoutes, index: 0, field: "destination",
		},
		{
			name:    "ipv4-mapped resolver",
			raw:     map[string]any{"interfaces": []any{iface(nil)}, "resolvers": []any{"::ffff:8.8.8.8"}},
			section: SectionResolvers, index: 0,
		},
		{
			name: "family mismatch",
			raw: map[string]any{
				"interfaces": []any{iface(nil)},
				"addresses":  []any{map[string]any{"owner_id": "nic0", "cidr": "10.0.0.2/24", "family": 6}},
			},
			section: SectionAddresses, index: 0, field: "family",
		},
		{
			name: "gateway wrong family",
			raw: map[string]any{
				"interfaces": []any{iface(nil)},
				"addresses":  []any{map[string]any{"owner_id": "nic0", "cidr": "10.0.0.2/24", "gateway": "fe80::1"}},
			},
			section: SectionAddresses, index: 0, field: "gateway",
		},
		{
			name: "unknown scope",
			raw: map[string]any{
				"interfaces": []any{iface(nil)},
				"addresses":  []any{map[string]any{"owner_id": "nic0", "cidr": "10.0.0.2/24", "scope": "global"}},
			},
			section: SectionAddresses, index: 0, field: "scope",
		},
		{
			name: "route missing via",
			raw: map[string]any{
				"interfaces": []any{iface(nil)},
				"routes":     []any{map[string]any{"owner_id": "nic0", "destination": "10.0.0.0/8"}},
			},
			section: SectionRoutes, index: 0, field: "via",
		},
		{
			name: "duplicate id across sections",
			raw: map[string]any{
				"interfaces": []any{iface(nil)},
				"bonds":      []any{map[string]any{"id": "nic0", "mode": 1}},
			},
			section: SectionBonds, index: 0, field: "id",
		},
		{
			name:    "operating_system not an object",
			raw:     map[string]any{"operating_system": "ubuntu", "interfaces": []any{iface(nil)}},
			section: SectionOS, index: -1,
		},
		{
			name:    "distro wrong type",
			raw:     map[string]any{"operating_system": map[string]any{"distro": []any{"ubuntu"}}, "interfaces": []any{iface(nil)}},
			section: SectionOS, index: -1, field: "distro",
		},
		{
			name:    "hostname wrong type",
			raw:     map[string]any{"hostname": 7, "interfaces": []any{iface(nil)}},
			section: "", index: -1, field: "hostname",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			require.Error(t, err)

			var merr *MalformedMetadataError
			require.True(t, errors.As(err, &merr), "got %T: %v", err, err)
			assert.Equal(t, tt.section, merr.Section)
			assert.Equal(t, tt.index, merr.Index)
			assert.Equal(t, tt.field, merr.Field)
		})
	}
}

func TestMalformedMetadataErrorMessage(t *testing.T) {
	err := &MalformedMetadataError{Section: "vlans", Index: 2, ID: "v100", Field: "tag", Reason: "expected integer, got string"}
	assert.Equal(t, `malformed metadata: vlans[2] (id "v100"): field "tag": expected integer, got string`, err.Error())
}

func TestParseResolvers(t *testing.T) {
	raw := singleNIC()
	raw["resolvers"] = []any{"147.75.207.207", "2001:4860:4860::8888"}
	doc, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, doc.Resolvers, 2)
	assert.Equal(t, "147.75.207.207", doc.Resolvers[0].String())

	raw["resolvers"] = []any{"dns.example.com"}
	_, err = Parse(raw)
	var merr *MalformedMetadataError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, SectionResolvers, merr.Section)
}

func TestDefaultScope(t *testing.T) {
	assert.Equal(t, ScopePrivate, DefaultScope(netip.MustParseAddr("10.1.2.3")))
	assert.Equal(t, ScopePrivate, DefaultScope(netip.MustParseAddr("fd00::1")))
	assert.Equal(t, ScopePublic, DefaultScope(netip.MustParseAddr("147.75.1.2")))
	assert.Equal(t, ScopePublic, DefaultScope(netip.MustParseAddr("2604:1380::1")))
}

func TestParseOperatingSystem(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want OperatingSystem
	}{
		{"absent", map[string]any{}, OperatingSystem{}},
		{"null", map[string]any{"operating_system": nil}, OperatingSystem{}},
		{
			"strings",
			map[string]any{"operating_system": map[string]any{"distro": " centos ", "version": "7"}},
			OperatingSystem{Distro: "centos", Version: "7"},
		},
		{
			"integer version",
			map[string]any{"operating_system": map[string]any{"distro": "debian", "version": 12}},
			OperatingSystem{Distro: "debian", Version: "12"},
		},
		{
			"fractional version",
			map[string]any{"operating_system": map[string]any{"distro": "rocky", "version": 8.4}},
			OperatingSystem{Distro: "rocky", Version: "8.4"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOperatingSystem(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
