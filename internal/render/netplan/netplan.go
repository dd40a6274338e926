// Package netplan renders a netplan v2 document for systemd-networkd.
package netplan

import (
	"fmt"

	"gopkg.in/yaml.v2"

	"github.com/mmlb/packethost-packet-networking/internal/brand"
	"github.com/mmlb/packethost-packet-networking/internal/metadata"
	"github.com/mmlb/packethost-packet-networking/internal/render"
	"github.com/mmlb/packethost-packet-networking/internal/topology"
)

// Target is the registry key of this renderer.
const Target = "netplan"

// PathConfig is where the document is written.
const PathConfig = "etc/netplan/50-packet-networking.yaml"

// Renderer writes a single netplan YAML document.
type Renderer struct{}

// New returns the netplan renderer.
func New() *Renderer { return &Renderer{} }

func (*Renderer) Target() string { return Target }

func (*Renderer) Capabilities() topology.Capabilities {
	return topology.FullCapabilities()
}

func (*Renderer) Render(g *topology.Graph) ([]render.Artifact, error) {
	dns := render.DNSNode(g)

	var ethernets, bonds, vlans yaml.MapSlice
	for _, n := range g.Physicals() {
		if !n.IsTopLevel() {
			switch {
			case len(n.VLANs) > 0:
				return nil, &render.UnsupportedTopologyError{Target: Target, Interface: n.Name, Reason: "VLAN on a bond member"}
			case len(n.Addresses) > 0:
				return nil, &render.UnsupportedTopologyError{Target: Target, Interface: n.Name, Reason: "bond member carries addresses"}
			}
		}
		ethernets = append(ethernets, item(n.Name, ethernet(g, n, dns)))
	}
	for _, b := range g.Bonds() {
		bonds = append(bonds, item(b.Name, bond(g, b, dns)))
	}
	for _, v := range g.VLANs() {
		body := yaml.MapSlice{
			item("id", v.Tag),
			item("link", g.Parent(v).Name),
		}
		vlans = append(vlans, item(v.Name, append(body, addressing(g, v, dns)...)))
	}

	network := yaml.MapSlice{
		item("version", 2),
		item("renderer", "networkd"),
	}
	if len(ethernets) > 0 {
		network = append(network, item("ethernets", ethernets))
	}
	if len(bonds) > 0 {
		network = append(network, item("bonds", bonds))
	}
	if len(vlans) > 0 {
		network = append(network, item("vlans", vlans))
	}

	body, err := yaml.Marshal(yaml.MapSlice{item("network", network)})
	if err != nil {
		return nil, fmt.Errorf("marshal netplan document: %w", err)
	}
	content := append([]byte(brand.GeneratedHeader()), body...)

	artifacts := []render.Artifact{
		{Path: PathConfig, Content: content, Mode: render.ModePrivate},
	}
	if a, ok := render.HostnameArtifact(g, render.ModeConfig); ok {
		artifacts = append(artifacts, a)
	}
	render.SortArtifacts(artifacts)
	return artifacts, nil
}

func item(key string, value any) yaml.MapItem {
	return yaml.MapItem{Key: key, Value: value}
}

func ethernet(g *topology.Graph, n, dns *topology.Node) yaml.MapSlice {
	body := yaml.MapSlice{
		item("match", yaml.MapSlice{item("macaddress", n.MAC.String())}),
		item("set-name", n.Name),
	}
	if !n.IsTopLevel() {
		return body
	}
	return append(body, addressing(g, n, dns)...)
}

func bond(g *topology.Graph, b, dns *topology.Node) yaml.MapSlice {
	members := make([]string, 0, len(b.Members))
	for _, m := range g.Members(b) {
		members = append(members, m.Name)
	}

	params := yaml.MapSlice{
		item("mode", b.Mode.String()),
		item("mii-monitor-interval", 100),
		item("up-delay", 200),
		item("down-delay", 200),
	}
	switch b.Mode {
	case metadata.Bond8023AD:
		params = append(params, item("lacp-rate", "fast"), item("transmit-hash-policy", "layer3+4"))
	case metadata.BondBalanceXOR, metadata.BondBalanceTLB:
		params = append(params, item("transmit-hash-policy", "layer3+4"))
	}

	body := yaml.MapSlice{
		item("interfaces", members),
		item("parameters", params),
	}
	return append(body, addressing(g, b, dns)...)
}

// addressing returns the addresses, routes and nameservers keys of n.
func addressing(g *topology.Graph, n, dns *topology.Node) yaml.MapSlice {
	var out yaml.MapSlice

	layout := render.Plan(n)
	var addrs []string
	for _, list := range [][]topology.Address{layout.IPv4, layout.IPv6} {
		for _, a := range list {
			addrs = append(addrs, a.Prefix.String())
		}
	}
	if len(addrs) > 0 {
		out = append(out, item("addresses", addrs))
	}

	var routes []yaml.MapSlice
	for _, list := range [][]topology.Address{layout.IPv4, layout.IPv6} {
		for _, a := range list {
			if a.HasGateway() {
				routes = append(routes, yaml.MapSlice{item("to", "default"), item("via", a.Gateway.String())})
			}
		}
	}
	for _, r := range n.Routes {
		routes = append(routes, yaml.MapSlice{item("to", r.Destination.String()), item("via", r.Via.String())})
	}
	if len(routes) > 0 {
		out = append(out, item("routes", routes))
	}

	if n == dns && len(g.Resolvers()) > 0 {
		servers := make([]string, 0, len(g.Resolvers()))
		for _, r := range g.Resolvers() {
			servers = append(servers, r.String())
		}
		out = append(out, item("nameservers", yaml.MapSlice{item("addresses", servers)}))
	}
	return out
}
