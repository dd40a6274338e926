package redhat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmlb/packethost-packet-networking/internal/render"
	"github.com/mmlb/packethost-packet-networking/internal/render/rendertest"
)

func TestRenderSingleNIC(t *testing.T) {
	g := rendertest.Graph(t, rendertest.SingleNIC())
	files := rendertest.Files(t, New(), g)

	assert.Equal(t, `DEVICE=eth0
NAME=eth0
HWADDR=aa:bb:cc:00:00:01
IPADDR=10.0.0.2
NETMASK=255.255.255.0
GATEWAY=10.0.0.1
BOOTPROTO=none
ONBOOT=yes
USERCTL=no
`, string(files[scriptsDir+"ifcfg-eth0"].Content))

	assert.Equal(t, `NETWORKING=yes
GATEWAY=10.0.0.1
GATEWAYDEV=eth0
NOZEROCONF=yes
`, string(files[pathNetwork].Content))

	_, ok := files[pathModprobe]
	assert.False(t, ok)
	_, ok = files[pathIfupPreLocal]
	assert.False(t, ok)
}

func TestRenderBonded(t *testing.T) {
	g := rendertest.Graph(t, rendertest.Bonded())
	files := rendertest.Files(t, New(), g)

	assert.Equal(t, `NETWORKING=yes
HOSTNAME=web-1
GATEWAY=147.75.1.3
GATEWAYDEV=bond0
NETWORKING_IPV6=yes
NOZEROCONF=yes
`, string(files[pathNetwork].Content))

	assert.Equal(t, `DEVICE=bond0
NAME=bond0
IPADDR=147.75.1.2
NETMASK=255.255.255.254
GATEWAY=147.75.1.3
BOOTPROTO=none
ONBOOT=yes
USERCTL=no
TYPE=Bond
BONDING_OPTS="mode=4 miimon=100 downdelay=200 updelay=200"

IPV6INIT=yes
IPV6ADDR=2604:1380::2/127
IPV6_DEFAULTGW=2604:1380::3
DNS1=147.75.207.207
DNS2=147.75.207.208
`, string(files[scriptsDir+"ifcfg-bond0"].Content))

	assert.Equal(t, `DEVICE=bond0:0
NAME=bond0:0
IPADDR=10.99.1.3
NETMASK=255.255.255.254
BOOTPROTO=none
ONBOOT=yes
USERCTL=no
DNS1=147.75.207.207
DNS2=147.75.207.208
`, string(files[scriptsDir+"ifcfg-bond0:0"].Content))

	assert.Equal(t, "10.0.0.0/8 via 10.99.1.2 dev bond0:0\n", string(files[scriptsDir+"route-bond0"].Content))

	for _, m := range []struct{ name, mac string }{
		{"eth0", "b4:96:91:00:00:01"},
		{"eth1", "b4:96:91:00:00:02"},
	} {
		assert.Equal(t, "DEVICE="+m.name+`
ONBOOT=yes
HWADDR=`+m.mac+`
MASTER=bond0
SLAVE=yes
BOOTPROTO=none
`, string(files[scriptsDir+"ifcfg-"+m.name].Content))
	}

	assert.Equal(t, `alias bond0 bonding
options bond0 mode=4 miimon=100 downdelay=200 updelay=200 xmit_hash_policy=layer3+4 lacp_rate=1
`, string(files[pathModprobe].Content))

	pre := files[pathIfupPreLocal]
	assert.Equal(t, render.ModeExecutable, pre.Mode)
	assert.Equal(t, `#!/bin/bash

set -o errexit -o nounset -o pipefail -o xtrace

iface=${1#*-}
case "$iface" in
bond0 | eth0) ip link set "$iface" address b4:96:91:00:00:01 ;;
eth1) ip link set "$iface" address b4:96:91:00:00:02 && sleep 4 ;;
*) echo "ignoring unknown interface $iface" && exit 0 ;;
esac
`, string(pre.Content))

	assert.Equal(t, "web-1\n", string(files[render.PathHostname].Content))
	assert.Contains(t, string(files[render.PathHosts].Content), "localhost4.localdomain4")
}

func TestRenderVLAN(t *testing.T) {
	g := rendertest.Graph(t, rendertest.BondedVLAN())
	files := rendertest.Files(t, New(), g)

	vlan := string(files[scriptsDir+"ifcfg-bond0.100"].Content)
	assert.Equal(t, `DEVICE=bond0.100
NAME=bond0.100
VLAN=yes
PHYSDEV=bond0
IPADDR=172.16.100.2
NETMASK=255.255.255.0
BOOTPROTO=none
ONBOOT=yes
USERCTL=no
`, vlan)

	bond := string(files[scriptsDir+"ifcfg-bond0"].Content)
	assert.Contains(t, bond, `BONDING_OPTS="mode=1 miimon=100 downdelay=200 updelay=200"`+"\n")
	assert.NotContains(t, bond, "\n\n", "no trailing blank line without IPv6 or resolvers")
}

func TestRenderIPv6Routes(t *testing.T) {
	g := rendertest.Graph(t, map[string]any{
		"interfaces": []any{map[string]any{"id": "nic0", "mac": "aa:bb:cc:00:00:01"}},
		"addresses": []any{
			map[string]any{"owner_id": "nic0", "cidr": "2001:db8::10/64", "gateway": "2001:db8::1"},
			map[string]any{"owner_id": "nic0", "cidr": "2001:db8::11/64"},
		},
		"routes": []any{
			map[string]any{"owner_id": "nic0", "destination": "2001:db8:100::/48", "via": "2001:db8::fe"},
		},
	})
	files := rendertest.Files(t, New(), g)

	ifcfg := string(files[scriptsDir+"ifcfg-eth0"].Content)
	assert.Contains(t, ifcfg, "IPV6ADDR=2001:db8::10/64\n")
	assert.Contains(t, ifcfg, `IPV6ADDR_SECONDARIES="2001:db8::11/64"`+"\n")
	assert.NotContains(t, ifcfg, "IPADDR=")
	assert.Equal(t, "2001:db8:100::/48 via 2001:db8::fe dev eth0\n", string(files[scriptsDir+"route6-eth0"].Content))
}

func TestRenderAddresslessBond(t *testing.T) {
	g := rendertest.Graph(t, rendertest.VLANAddressed())
	files := rendertest.Files(t, New(), g)

	assert.Equal(t, `DEVICE=bond0
NAME=bond0
BOOTPROTO=none
ONBOOT=yes
USERCTL=no
TYPE=Bond
BONDING_OPTS="mode=1 miimon=100 downdelay=200 updelay=200"
`, string(files[scriptsDir+"ifcfg-bond0"].Content))

	vlan := string(files[scriptsDir+"ifcfg-bond0.100"].Content)
	assert.Contains(t, vlan, "IPADDR=10.0.0.2\nNETMASK=255.255.255.0\nGATEWAY=10.0.0.1\n")
	assert.NotContains(t, vlan, "DNS1=")

	assert.Equal(t, "NETWORKING=yes\nGATEWAY=10.0.0.1\nGATEWAYDEV=bond0.100\nNOZEROCONF=yes\n", string(files[pathNetwork].Content))
	for path := range files {
		assert.NotContains(t, path, ":", "no alias files without secondary addresses")
	}
}

func TestRenderDeterministic(t *testing.T) {
	g := rendertest.Graph(t, rendertest.Bonded())
	a, err := New().Render(g)
	require.NoError(t, err)
	b, err := New().Render(g)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
