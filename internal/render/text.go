package render

import (
	"bytes"
	"fmt"
	"net"
	"net/netip"
	"os"
	"sort"

	"github.com/mmlb/packethost-packet-networking/internal/brand"
	"github.com/mmlb/packethost-packet-networking/internal/topology"
)

// Common artifact paths shared by several targets.
const (
	PathHostname  = "etc/hostname"
	PathHosts     = "etc/hosts"
	PathResolv    = "etc/resolv.conf"
	PathUdevRules = "etc/udev/rules.d/70-persistent-net.rules"
)

// Text accumulates a line-oriented configuration file.
type Text struct {
	buf bytes.Buffer
}

// Line appends one formatted line.
func (t *Text) Line(format string, args ...any) {
	fmt.Fprintf(&t.buf, format, args...)
	t.buf.WriteByte('\n')
}

// Indent appends one formatted line indented by four spaces.
func (t *Text) Indent(format string, args ...any) {
	t.buf.WriteString("    ")
	t.Line(format, args...)
}

// Blank appends an empty line unless the text is empty or already ends
// with one.
func (t *Text) Blank() {
	b := t.buf.Bytes()
	if len(b) == 0 || bytes.HasSuffix(b, []byte("\n\n")) {
		return
	}
	t.buf.WriteByte('\n')
}

// Raw appends s unchanged.
func (t *Text) Raw(s string) { t.buf.WriteString(s) }

// Len returns the number of bytes written.
func (t *Text) Len() int { return t.buf.Len() }

// Bytes returns a copy of the accumulated content.
func (t *Text) Bytes() []byte {
	return append([]byte(nil), t.buf.Bytes()...)
}

// Netmask returns the dotted-quad mask of an IPv4 prefix.
func Netmask(p netip.Prefix) string {
	return net.IP(net.CIDRMask(p.Bits(), 32)).String()
}

// Layout splits the addresses of one node into the primary address of each
// family and the secondary addresses that targets express as aliases.
type Layout struct {
	IPv4 []topology.Address // IPv4[0] is the primary
	IPv6 []topology.Address // IPv6[0] is the primary
}

// Plan orders the addresses of n for rendering. The address carrying a
// gateway comes first, then public before private, then declaration order.
func Plan(n *topology.Node) Layout {
	var l Layout
	for _, a := range n.Addresses {
		if a.Family == topology.FamilyIPv4 {
			l.IPv4 = append(l.IPv4, a)
		} else {
			l.IPv6 = append(l.IPv6, a)
		}
	}
	rank := func(a topology.Address) int {
		r := 0
		if !a.HasGateway() {
			r += 2
		}
		if a.Scope != topology.ScopePublic {
			r++
		}
		return r
	}
	for _, list := range [][]topology.Address{l.IPv4, l.IPv6} {
		sort.SliceStable(list, func(i, j int) bool { return rank(list[i]) < rank(list[j]) })
	}
	return l
}

// Empty reports whether the node has no addresses.
func (l Layout) Empty() bool { return len(l.IPv4) == 0 && len(l.IPv6) == 0 }

// RouteSlot returns the index in the family list of the address whose
// network holds the route's next hop, or 0 when none does.
func (l Layout) RouteSlot(r topology.Route) int {
	list := l.IPv4
	if r.Family() == topology.FamilyIPv6 {
		list = l.IPv6
	}
	for i, a := range list {
		if a.Network().Contains(r.Via) {
			return i
		}
	}
	return 0
}

// DNSNode picks the interface that carries resolver configuration: the
// owner of the IPv4 default gateway, else of the IPv6 one, else the first
// addressed interface in root order.
func DNSNode(g *topology.Graph) *topology.Node {
	if n, _, ok := g.DefaultGateway(topology.FamilyIPv4); ok {
		return n
	}
	if n, _, ok := g.DefaultGateway(topology.FamilyIPv6); ok {
		return n
	}
	for _, root := range g.Roots() {
		if len(root.Addresses) > 0 {
			return root
		}
		for _, c := range g.Children(root) {
			if len(c.Addresses) > 0 {
				return c
			}
		}
	}
	return nil
}

// HostnameArtifact renders etc/hostname. ok is false when the metadata
// carries no hostname.
func HostnameArtifact(g *topology.Graph, mode os.FileMode) (Artifact, bool) {
	if g.Hostname() == "" {
		return Artifact{}, false
	}
	return Artifact{Path: PathHostname, Content: []byte(g.Hostname() + "\n"), Mode: mode}, true
}

// ResolvConf renders etc/resolv.conf. ok is false without resolvers.
func ResolvConf(g *topology.Graph) (Artifact, bool) {
	if len(g.Resolvers()) == 0 {
		return Artifact{}, false
	}
	var t Text
	for _, r := range g.Resolvers() {
		t.Line("nameserver %s", r)
	}
	return Artifact{Path: PathResolv, Content: t.Bytes(), Mode: ModeConfig}, true
}

// UdevRules pins every physical interface name to its hardware address.
func UdevRules(g *topology.Graph) Artifact {
	var t Text
	t.Raw(brand.GeneratedHeader())
	t.Line("#")
	t.Line("# Each rule must stay on one line; only the NAME= value may be edited.")
	for _, n := range g.Physicals() {
		t.Blank()
		t.Line("# %s", n.ID)
		t.Line(`SUBSYSTEM=="net", ACTION=="add", DRIVERS=="?*", ATTR{address}=="%s", ATTR{dev_id}=="0x0", ATTR{type}=="1", NAME="%s"`,
			n.MAC, n.Name)
	}
	return Artifact{Path: PathUdevRules, Content: t.Bytes(), Mode: ModeConfig}
}
