package topology

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmlb/packethost-packet-networking/internal/metadata"
)

func violations(t *testing.T, err error) *ValidationError {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
	return verr
}

func TestValidateClean(t *testing.T) {
	g := build(t, bondedDoc())
	assert.NoError(t, Validate(g, FullCapabilities()))
}

func TestValidateCapabilities(t *testing.T) {
	g := build(t, bondedDoc())

	t.Run("no bonding", func(t *testing.T) {
		caps := FullCapabilities()
		caps.Bonding = false
		verr := violations(t, Validate(g, caps))
		assert.True(t, verr.Has(RuleBondUnsupported))
		assert.False(t, verr.Has(RuleBondMode))
	})

	t.Run("mode subset", func(t *testing.T) {
		caps := FullCapabilities()
		caps.BondModes = []BondMode{metadata.BondActiveBackup}
		verr := violations(t, Validate(g, caps))
		require.Len(t, verr.Violations, 1)
		assert.Equal(t, RuleBondMode, verr.Violations[0].Rule)
		assert.Equal(t, "bond0", verr.Violations[0].Node)
	})

	t.Run("no vlans", func(t *testing.T) {
		caps := FullCapabilities()
		caps.VLANs = false
		verr := violations(t, Validate(g, caps))
		assert.Len(t, verr.Violations, 2)
		assert.True(t, verr.Has(RuleVLANUnsupported))
	})

	t.Run("ipv4 only target", func(t *testing.T) {
		raw := bondedDoc()
		raw["addresses"] = append(raw["addresses"].([]any),
			map[string]any{"owner_id": "b0", "cidr": "2604:1380::2/127", "gateway": "2604:1380::3"})
		g := build(t, raw)

		caps := FullCapabilities()
		caps.IPv6 = false
		verr := violations(t, Validate(g, caps))
		require.Len(t, verr.Violations, 1)
		assert.Equal(t, RuleFamily, verr.Violations[0].Rule)
	})
}

func TestValidateCollectsAll(t *testing.T) {
	g := build(t, map[string]any{
		"interfaces": []any{
			nic("p1", "aa:bb:cc:00:00:01", "name", "enp129s0f1n"),
			nic("p2", "aa:bb:cc:00:00:01"),
			nic("p3", "aa:bb:cc:00:00:03"),
			nic("p4", "aa:bb:cc:00:00:04"),
		},
		"bonds": []any{
			map[string]any{"id": "b0", "mode": 1, "members": []any{"p3", "p4"}},
		},
		"vlans": []any{
			map[string]any{"id": "v0", "parent_id": "p2", "tag": 0},
			map[string]any{"id": "vlong", "parent_id": "p1", "tag": 4000},
		},
		"addresses": []any{
			map[string]any{"owner_id": "p1", "cidr": "10.0.0.2/24", "gateway": "10.0.1.1"},
			map[string]any{"owner_id": "p2", "cidr": "10.0.0.2/24"},
			map[string]any{"owner_id": "p2", "cidr": "192.0.2.10/32", "gateway": "192.0.2.1"},
			map[string]any{"owner_id": "b0", "cidr": "192.0.2.20/30", "gateway": "192.0.2.20"},
			map[string]any{"owner_id": "p3", "cidr": "172.16.0.2/24"},
		},
		"routes": []any{
			map[string]any{"owner_id": "b0", "destination": "10.0.0.0/8", "via": "172.31.0.1"},
		},
	})

	verr := violations(t, Validate(g, FullCapabilities()))
	for _, rule := range []string{
		RuleVLANTag,
		RuleInterfaceName,
		RuleDuplicateMAC,
		RuleDuplicateAddress,
		RuleGateway,
		RuleMemberConfig,
		RuleRouteNextHop,
	} {
		assert.True(t, verr.Has(rule), "missing %s in %v", rule, verr)
	}

	gateways := 0
	for _, v := range verr.Violations {
		if v.Rule == RuleGateway {
			gateways++
		}
	}
	assert.Equal(t, 3, gateways, "outside network, host route, and own address")
}

func TestValidateTagBounds(t *testing.T) {
	for _, tc := range []struct {
		tag int
		ok  bool
	}{{0, false}, {1, true}, {4094, true}, {4095, false}} {
		g := build(t, map[string]any{
			"interfaces": []any{nic("p1", "aa:bb:cc:00:00:01")},
			"vlans":      []any{map[string]any{"id": "v", "parent_id": "p1", "tag": tc.tag}},
		})
		err := Validate(g, FullCapabilities())
		if tc.ok {
			assert.NoError(t, err, "tag %d", tc.tag)
		} else {
			assert.True(t, violations(t, err).Has(RuleVLANTag), "tag %d", tc.tag)
		}
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Target: "debian", Violations: []Violation{
		{Node: "bond0", Rule: RuleBondMode, Message: "bonding mode 802.3ad is not supported by target"},
	}}
	assert.Equal(t, "topology invalid for target debian (1 violation); bond0: bond-mode: bonding mode 802.3ad is not supported by target", err.Error())
}
