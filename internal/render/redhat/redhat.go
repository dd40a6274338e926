// Package redhat renders initscripts configuration (ifcfg-*, route-*) for
// RHEL, CentOS, Fedora and their rebuilds.
package redhat

import (
	"strconv"

	"github.com/mmlb/packethost-packet-networking/internal/render"
	"github.com/mmlb/packethost-packet-networking/internal/topology"
)

// Target is the registry key of this renderer.
const Target = "redhat"

const (
	pathNetwork      = "etc/sysconfig/network"
	scriptsDir       = "etc/sysconfig/network-scripts/"
	pathModprobe     = "etc/modprobe.d/bonding.conf"
	pathIfupPreLocal = "sbin/ifup-pre-local"
)

// Renderer writes initscripts network configuration.
type Renderer struct{}

// New returns the Red Hat renderer.
func New() *Renderer { return &Renderer{} }

func (*Renderer) Target() string { return Target }

func (*Renderer) Capabilities() topology.Capabilities {
	return topology.FullCapabilities()
}

func (*Renderer) Render(g *topology.Graph) ([]render.Artifact, error) {
	w := &writer{g: g}

	w.add(pathNetwork, network(g))

	for _, root := range g.Roots() {
		if root.Kind == topology.KindBond {
			for _, m := range g.Members(root) {
				if len(m.Addresses) > 0 || len(m.VLANs) > 0 {
					return nil, &render.UnsupportedTopologyError{Target: Target, Interface: m.Name, Reason: "bond member carries configuration"}
				}
				w.add(scriptsDir+"ifcfg-"+m.Name, slave(m, root))
			}
		}
		w.iface(root)
		for _, vlan := range g.Children(root) {
			w.iface(vlan)
		}
	}

	if len(g.Bonds()) > 0 {
		w.add(pathModprobe, modprobe(g))
		w.artifacts = append(w.artifacts, render.Artifact{
			Path:    pathIfupPreLocal,
			Content: ifupPreLocal(g),
			Mode:    render.ModeExecutable,
		})
	}

	w.artifacts = append(w.artifacts, render.UdevRules(g))
	w.add(render.PathHosts, hosts())
	if a, ok := render.HostnameArtifact(g, render.ModeConfig); ok {
		w.artifacts = append(w.artifacts, a)
	}
	if a, ok := render.ResolvConf(g); ok {
		w.artifacts = append(w.artifacts, a)
	}

	render.SortArtifacts(w.artifacts)
	return w.artifacts, nil
}

type writer struct {
	g         *topology.Graph
	artifacts []render.Artifact
}

func (w *writer) add(path string, content []byte) {
	w.artifacts = append(w.artifacts, render.Artifact{Path: path, Content: content, Mode: render.ModeConfig})
}

func (w *writer) iface(n *topology.Node) {
	layout := render.Plan(n)

	var t render.Text
	t.Line("DEVICE=%s", n.Name)
	t.Line("NAME=%s", n.Name)
	if n.Kind == topology.KindPhysical {
		t.Line("HWADDR=%s", n.MAC)
	}
	if n.Kind == topology.KindVLAN {
		t.Line("VLAN=yes")
		t.Line("PHYSDEV=%s", w.g.Parent(n).Name)
	}
	if len(layout.IPv4) > 0 {
		ipv4(&t, layout.IPv4[0])
	}
	t.Line("BOOTPROTO=none")
	t.Line("ONBOOT=yes")
	t.Line("USERCTL=no")
	if n.Kind == topology.KindBond {
		t.Line("TYPE=Bond")
		t.Line(`BONDING_OPTS="mode=%d miimon=100 downdelay=200 updelay=200"`, int(n.Mode))
		if len(layout.IPv6) > 0 || (!layout.Empty() && len(w.g.Resolvers()) > 0) {
			t.Blank()
		}
	}
	if len(layout.IPv6) > 0 {
		primary := layout.IPv6[0]
		t.Line("IPV6INIT=yes")
		t.Line("IPV6ADDR=%s", primary.Prefix)
		if len(layout.IPv6) > 1 {
			t.Raw(`IPV6ADDR_SECONDARIES="`)
			for i, a := range layout.IPv6[1:] {
				if i > 0 {
					t.Raw(" ")
				}
				t.Raw(a.Prefix.String())
			}
			t.Line(`"`)
		}
		if primary.HasGateway() {
			t.Line("IPV6_DEFAULTGW=%s", primary.Gateway)
		}
	}
	if !layout.Empty() {
		w.dns(&t)
	}
	w.add(scriptsDir+"ifcfg-"+n.Name, t.Bytes())

	labels := []string{n.Name}
	var secondaries []topology.Address
	if len(layout.IPv4) > 1 {
		secondaries = layout.IPv4[1:]
	}
	for i, a := range secondaries {
		label := n.Name + ":" + strconv.Itoa(i)
		labels = append(labels, label)

		var at render.Text
		at.Line("DEVICE=%s", label)
		at.Line("NAME=%s", label)
		ipv4(&at, a)
		at.Line("BOOTPROTO=none")
		at.Line("ONBOOT=yes")
		at.Line("USERCTL=no")
		w.dns(&at)
		w.add(scriptsDir+"ifcfg-"+label, at.Bytes())
	}

	var r4, r6 render.Text
	for _, r := range n.Routes {
		if r.Family() == topology.FamilyIPv4 {
			r4.Line("%s via %s dev %s", r.Destination, r.Via, labels[layout.RouteSlot(r)])
		} else {
			r6.Line("%s via %s dev %s", r.Destination, r.Via, n.Name)
		}
	}
	if r4.Len() > 0 {
		w.add(scriptsDir+"route-"+n.Name, r4.Bytes())
	}
	if r6.Len() > 0 {
		w.add(scriptsDir+"route6-"+n.Name, r6.Bytes())
	}
}

func (w *writer) dns(t *render.Text) {
	for i, r := range w.g.Resolvers() {
		t.Line("DNS%d=%s", i+1, r)
	}
}

func ipv4(t *render.Text, a topology.Address) {
	t.Line("IPADDR=%s", a.Addr())
	t.Line("NETMASK=%s", render.Netmask(a.Prefix))
	if a.HasGateway() {
		t.Line("GATEWAY=%s", a.Gateway)
	}
}

func slave(m, bond *topology.Node) []byte {
	var t render.Text
	t.Line("DEVICE=%s", m.Name)
	t.Line("ONBOOT=yes")
	t.Line("HWADDR=%s", m.MAC)
	t.Line("MASTER=%s", bond.Name)
	t.Line("SLAVE=yes")
	t.Line("BOOTPROTO=none")
	return t.Bytes()
}

func network(g *topology.Graph) []byte {
	var t render.Text
	t.Line("NETWORKING=yes")
	if g.Hostname() != "" {
		t.Line("HOSTNAME=%s", g.Hostname())
	}
	if n, a, ok := g.DefaultGateway(topology.FamilyIPv4); ok {
		t.Line("GATEWAY=%s", a.Gateway)
		t.Line("GATEWAYDEV=%s", n.Name)
	}
	if _, _, ok := g.DefaultGateway(topology.FamilyIPv6); ok {
		t.Line("NETWORKING_IPV6=yes")
	}
	t.Line("NOZEROCONF=yes")
	return t.Bytes()
}

func modprobe(g *topology.Graph) []byte {
	var t render.Text
	for _, b := range g.Bonds() {
		t.Line("alias %s bonding", b.Name)
		t.Line("options %s mode=%d miimon=100 downdelay=200 updelay=200 xmit_hash_policy=layer3+4 lacp_rate=1", b.Name, int(b.Mode))
	}
	return t.Bytes()
}

// ifupPreLocal pins bond member MACs before initscripts enslaves them, and
// staggers the later members.
func ifupPreLocal(g *topology.Graph) []byte {
	var t render.Text
	t.Line("#!/bin/bash")
	t.Blank()
	t.Line("set -o errexit -o nounset -o pipefail -o xtrace")
	t.Blank()
	t.Line("iface=${1#*-}")
	t.Line(`case "$iface" in`)
	for _, b := range g.Bonds() {
		for i, m := range g.Members(b) {
			if i == 0 {
				t.Line(`%s | %s) ip link set "$iface" address %s ;;`, b.Name, m.Name, m.MAC)
				continue
			}
			t.Line(`%s) ip link set "$iface" address %s && sleep 4 ;;`, m.Name, m.MAC)
		}
	}
	t.Line(`*) echo "ignoring unknown interface $iface" && exit 0 ;;`)
	t.Line("esac")
	return t.Bytes()
}

func hosts() []byte {
	var t render.Text
	t.Line("127.0.0.1   localhost localhost.localdomain localhost4 localhost4.localdomain4")
	t.Line("::1         localhost localhost.localdomain localhost6 localhost6.localdomain6")
	return t.Bytes()
}
