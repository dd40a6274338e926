package topology

import (
	"net"
	"net/netip"
	"sort"

	"github.com/mmlb/packethost-packet-networking/internal/metadata"
)

// Aliases keep the enum definitions in one place while letting renderers
// depend on topology alone.
type (
	BondMode = metadata.BondMode
	Family   = metadata.Family
	Scope    = metadata.Scope
)

const (
	FamilyIPv4 = metadata.FamilyIPv4
	FamilyIPv6 = metadata.FamilyIPv6

	ScopePublic  = metadata.ScopePublic
	ScopePrivate = metadata.ScopePrivate
)

// Handle addresses a node in a Graph arena.
type Handle int

// NoHandle marks an absent relation.
const NoHandle Handle = -1

// Kind distinguishes the interface node variants.
type Kind int

const (
	KindPhysical Kind = iota
	KindBond
	KindVLAN
)

func (k Kind) String() string {
	switch k {
	case KindPhysical:
		return "physical"
	case KindBond:
		return "bond"
	case KindVLAN:
		return "vlan"
	}
	return "unknown"
}

// Address is an IP assignment on a node.
type Address struct {
	Prefix  netip.Prefix // host address with its network length
	Family  Family
	Scope   Scope
	Gateway netip.Addr // invalid when the address carries no gateway
}

// Addr returns the host address.
func (a Address) Addr() netip.Addr { return a.Prefix.Addr() }

// Network returns the masked network of the address.
func (a Address) Network() netip.Prefix { return a.Prefix.Masked() }

// HasGateway reports whether the address carries a default gateway.
func (a Address) HasGateway() bool { return a.Gateway.IsValid() }

// Route is a static route through a next hop.
type Route struct {
	Destination netip.Prefix
	Via         netip.Addr
}

// Family returns the address family of the route.
func (r Route) Family() Family { return metadata.FamilyOf(r.Via) }

// Node is one interface in the graph. Fields that do not apply to Kind are
// zero (or NoHandle for relations).
type Node struct {
	Handle Handle
	Kind   Kind
	ID     string
	Name   string

	// Physical
	MAC  net.HardwareAddr
	Slot int
	Bond Handle

	// Bond
	Mode    BondMode
	Members []Handle

	// VLAN
	Parent Handle
	Tag    int

	VLANs     []Handle
	Addresses []Address
	Routes    []Route
}

// IsTopLevel reports whether the node is a root of the graph: a bond or a
// physical interface that is not enslaved.
func (n *Node) IsTopLevel() bool {
	switch n.Kind {
	case KindBond:
		return true
	case KindPhysical:
		return n.Bond == NoHandle
	}
	return false
}

// Warning is a non-fatal observation made while building the graph.
type Warning struct {
	Node    string
	Message string
}

func (w Warning) String() string {
	if w.Node == "" {
		return w.Message
	}
	return w.Node + ": " + w.Message
}

// Graph is the immutable interface topology of a host. Nodes live in an
// arena ordered physicals, bonds, then VLANs, each group in naming order.
// Callers must treat returned nodes and slices as read-only.
type Graph struct {
	nodes  []Node
	byID   map[string]Handle
	byName map[string]Handle

	hostname  string
	resolvers []netip.Addr
	warnings  []Warning
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns the node for h. It panics on an out-of-range handle, which
// can only come from a different graph.
func (g *Graph) Node(h Handle) *Node { return &g.nodes[h] }

// Nodes returns every node in arena order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.nodes))
	for i := range g.nodes {
		out[i] = &g.nodes[i]
	}
	return out
}

// Lookup finds a node by metadata identifier.
func (g *Graph) Lookup(id string) (*Node, bool) {
	h, ok := g.byID[id]
	if !ok {
		return nil, false
	}
	return &g.nodes[h], true
}

// ByName finds a node by its assigned interface name.
func (g *Graph) ByName(name string) (*Node, bool) {
	h, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return &g.nodes[h], true
}

func (g *Graph) ofKind(k Kind) []*Node {
	var out []*Node
	for i := range g.nodes {
		if g.nodes[i].Kind == k {
			out = append(out, &g.nodes[i])
		}
	}
	return out
}

// Physicals returns physical interfaces ordered by MAC.
func (g *Graph) Physicals() []*Node { return g.ofKind(KindPhysical) }

// Bonds returns bonds in declaration order.
func (g *Graph) Bonds() []*Node { return g.ofKind(KindBond) }

// VLANs returns VLAN interfaces ordered by parent name and tag.
func (g *Graph) VLANs() []*Node { return g.ofKind(KindVLAN) }

// Roots returns the top-level interfaces sorted by name.
func (g *Graph) Roots() []*Node {
	var out []*Node
	for i := range g.nodes {
		if g.nodes[i].IsTopLevel() {
			out = append(out, &g.nodes[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TopLevel returns the root that owns n: n itself for roots, the bond for
// an enslaved physical, and the parent's root for a VLAN.
func (g *Graph) TopLevel(n *Node) *Node {
	for {
		switch {
		case n.Kind == KindVLAN:
			n = &g.nodes[n.Parent]
		case n.Kind == KindPhysical && n.Bond != NoHandle:
			n = &g.nodes[n.Bond]
		default:
			return n
		}
	}
}

// Members returns the physical members of a bond in declaration order.
func (g *Graph) Members(bond *Node) []*Node {
	out := make([]*Node, 0, len(bond.Members))
	for _, h := range bond.Members {
		out = append(out, &g.nodes[h])
	}
	return out
}

// Children returns the VLANs whose parent is n, ordered by tag.
func (g *Graph) Children(n *Node) []*Node {
	out := make([]*Node, 0, len(n.VLANs))
	for _, h := range n.VLANs {
		out = append(out, &g.nodes[h])
	}
	return out
}

// Parent returns the parent of a VLAN, or nil.
func (g *Graph) Parent(n *Node) *Node {
	if n.Kind != KindVLAN || n.Parent == NoHandle {
		return nil
	}
	return &g.nodes[n.Parent]
}

// Families reports which address families appear anywhere in the graph.
func (g *Graph) Families() (v4, v6 bool) {
	for i := range g.nodes {
		for _, a := range g.nodes[i].Addresses {
			if a.Family == FamilyIPv4 {
				v4 = true
			} else {
				v6 = true
			}
		}
	}
	return v4, v6
}

// DefaultGateway returns the first gateway of family f in root order, and
// the node that carries it.
func (g *Graph) DefaultGateway(f Family) (*Node, Address, bool) {
	for _, root := range g.Roots() {
		for _, n := range append([]*Node{root}, g.Children(root)...) {
			for _, a := range n.Addresses {
				if a.Family == f && a.HasGateway() {
					return n, a, true
				}
			}
		}
	}
	return nil, Address{}, false
}

// Hostname returns the host name carried by the metadata, if any.
func (g *Graph) Hostname() string { return g.hostname }

// Resolvers returns the DNS resolvers carried by the metadata.
func (g *Graph) Resolvers() []netip.Addr { return g.resolvers }

// Warnings returns the observations recorded while building.
func (g *Graph) Warnings() []Warning { return g.warnings }
