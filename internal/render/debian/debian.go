// Package debian renders ifupdown configuration for Debian and Ubuntu.
package debian

import (
	"strconv"
	"strings"

	"github.com/mmlb/packethost-packet-networking/internal/render"
	"github.com/mmlb/packethost-packet-networking/internal/topology"
)

// Target is the registry key of this renderer.
const Target = "debian"

const (
	pathInterfaces = "etc/network/interfaces"
	pathModules    = "etc/modules"
)

// Renderer writes /etc/network/interfaces and its companions.
type Renderer struct{}

// New returns the Debian renderer.
func New() *Renderer { return &Renderer{} }

func (*Renderer) Target() string { return Target }

func (*Renderer) Capabilities() topology.Capabilities {
	return topology.FullCapabilities()
}

func (*Renderer) Render(g *topology.Graph) ([]render.Artifact, error) {
	w := &writer{g: g, dns: render.DNSNode(g)}

	w.t.Line("auto lo")
	w.t.Line("iface lo inet loopback")

	for _, root := range g.Roots() {
		if root.Kind == topology.KindBond {
			if err := w.slaves(root); err != nil {
				return nil, err
			}
		}
		w.iface(root)
		for _, vlan := range g.Children(root) {
			w.iface(vlan)
		}
	}
	// VLANs stacked on an enslaved physical are rejected by the validator;
	// reaching one here means validation was skipped.
	for _, n := range g.Physicals() {
		if !n.IsTopLevel() && len(n.VLANs) > 0 {
			return nil, &render.UnsupportedTopologyError{Target: Target, Interface: n.Name, Reason: "VLAN on a bond member"}
		}
	}

	artifacts := []render.Artifact{
		{Path: pathInterfaces, Content: w.t.Bytes(), Mode: render.ModeConfig},
		render.UdevRules(g),
		{Path: render.PathHosts, Content: hosts(g.Hostname()), Mode: render.ModeConfig},
	}
	if mods := modules(g); mods != nil {
		artifacts = append(artifacts, render.Artifact{Path: pathModules, Content: mods, Mode: render.ModeConfig, Append: true})
	}
	if a, ok := render.HostnameArtifact(g, render.ModeConfig); ok {
		artifacts = append(artifacts, a)
	}
	if a, ok := render.ResolvConf(g); ok {
		artifacts = append(artifacts, a)
	}
	render.SortArtifacts(artifacts)
	return artifacts, nil
}

type writer struct {
	g   *topology.Graph
	t   render.Text
	dns *topology.Node
}

func (w *writer) slaves(bond *topology.Node) error {
	for i, m := range w.g.Members(bond) {
		if len(m.Addresses) > 0 {
			return &render.UnsupportedTopologyError{Target: Target, Interface: m.Name, Reason: "bond member carries addresses"}
		}
		w.t.Blank()
		w.t.Line("auto %s", m.Name)
		w.t.Line("iface %s inet manual", m.Name)
		if i > 0 {
			w.t.Indent("pre-up sleep 4")
		}
		w.t.Indent("bond-master %s", bond.Name)
	}
	return nil
}

func (w *writer) iface(n *topology.Node) {
	layout := render.Plan(n)

	w.t.Blank()
	w.t.Line("auto %s", n.Name)

	if len(layout.IPv4) == 0 {
		if len(layout.IPv6) == 0 {
			w.t.Line("iface %s inet manual", n.Name)
			w.linkOptions(n)
			return
		}
		w.t.Line("iface %s inet6 static", n.Name)
		w.linkOptions(n)
		w.static(n, layout.IPv6[0], layout, 0)
		w.dnsServers(n)
		w.aliases6(n, layout)
		return
	}

	w.t.Line("iface %s inet static", n.Name)
	if n.Kind == topology.KindVLAN {
		w.t.Indent("vlan-raw-device %s", w.g.Parent(n).Name)
	}
	w.static(n, layout.IPv4[0], layout, 0)
	w.dnsServers(n)
	if n.Kind == topology.KindBond {
		w.t.Blank()
		w.bondOptions(n)
	}

	if len(layout.IPv6) > 0 {
		w.t.Blank()
		w.t.Line("iface %s inet6 static", n.Name)
		w.static(n, layout.IPv6[0], layout, 0)
		w.aliases6(n, layout)
	}

	for i, a := range layout.IPv4[1:] {
		label := n.Name + ":" + strconv.Itoa(i)
		w.t.Blank()
		w.t.Line("auto %s", label)
		w.t.Line("iface %s inet static", label)
		w.static(n, a, layout, i+1)
	}
}

// linkOptions emits the options that belong to the first stanza of an
// interface that has no IPv4 stanza to carry them.
func (w *writer) linkOptions(n *topology.Node) {
	switch n.Kind {
	case topology.KindVLAN:
		w.t.Indent("vlan-raw-device %s", w.g.Parent(n).Name)
	case topology.KindBond:
		w.bondOptions(n)
	}
}

// static writes the address lines of the address at slot in its family
// list, followed by the routes whose next hop it reaches.
func (w *writer) static(n *topology.Node, a topology.Address, layout render.Layout, slot int) {
	w.t.Indent("address %s", a.Prefix)
	if a.HasGateway() {
		w.t.Indent("gateway %s", a.Gateway)
	}
	for _, r := range n.Routes {
		if r.Family() != a.Family || layout.RouteSlot(r) != slot {
			continue
		}
		if a.Family == topology.FamilyIPv4 {
			w.t.Indent("post-up route add -net %s gw %s", r.Destination, r.Via)
			w.t.Indent("post-down route del -net %s gw %s", r.Destination, r.Via)
		} else {
			w.t.Indent("post-up ip -6 route add %s via %s dev %s", r.Destination, r.Via, n.Name)
			w.t.Indent("post-down ip -6 route del %s via %s dev %s", r.Destination, r.Via, n.Name)
		}
	}
}

func (w *writer) aliases6(n *topology.Node, layout render.Layout) {
	for i, a := range layout.IPv6[1:] {
		w.t.Indent("up ip -6 addr add %s dev %s", a.Prefix, n.Name)
		w.t.Indent("down ip -6 addr del %s dev %s", a.Prefix, n.Name)
		for _, r := range n.Routes {
			if r.Family() == topology.FamilyIPv6 && layout.RouteSlot(r) == i+1 {
				w.t.Indent("post-up ip -6 route add %s via %s dev %s", r.Destination, r.Via, n.Name)
				w.t.Indent("post-down ip -6 route del %s via %s dev %s", r.Destination, r.Via, n.Name)
			}
		}
	}
}

func (w *writer) dnsServers(n *topology.Node) {
	if n != w.dns || len(w.g.Resolvers()) == 0 {
		return
	}
	servers := make([]string, 0, len(w.g.Resolvers()))
	for _, r := range w.g.Resolvers() {
		servers = append(servers, r.String())
	}
	w.t.Indent("dns-nameservers %s", strings.Join(servers, " "))
}

func (w *writer) bondOptions(b *topology.Node) {
	names := make([]string, 0, len(b.Members))
	for _, m := range w.g.Members(b) {
		names = append(names, m.Name)
	}
	w.t.Indent("bond-downdelay 200")
	w.t.Indent("bond-miimon 100")
	w.t.Indent("bond-mode %d", int(b.Mode))
	w.t.Indent("bond-updelay 200")
	w.t.Indent("bond-xmit_hash_policy layer3+4")
	w.t.Indent("bond-lacp-rate 1")
	w.t.Indent("bond-slaves %s", strings.Join(names, " "))
}

func modules(g *topology.Graph) []byte {
	var t render.Text
	if len(g.Bonds()) > 0 {
		t.Line("bonding")
	}
	if len(g.VLANs()) > 0 {
		t.Line("8021q")
	}
	if t.Len() == 0 {
		return nil
	}
	return t.Bytes()
}

func hosts(hostname string) []byte {
	var t render.Text
	if hostname == "" {
		t.Line("127.0.0.1\tlocalhost")
	} else {
		t.Line("127.0.0.1\tlocalhost\t%s", hostname)
	}
	t.Blank()
	t.Line("# IPv6 capable hosts")
	t.Line("::1\tlocalhost ip6-localhost ip6-loopback")
	t.Line("ff02::1\tip6-allnodes")
	t.Line("ff02::2\tip6-allrouters")
	return t.Bytes()
}
