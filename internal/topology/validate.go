package topology

import (
	"fmt"
	"net/netip"

	"github.com/mmlb/packethost-packet-networking/internal/validation"
)

// VLAN tag bounds; 0 and 4095 are reserved by 802.1Q.
const (
	MinVLANTag = 1
	MaxVLANTag = 4094
)

// Validate checks g against the capabilities of a target. It never stops
// at the first problem: every violation is collected into a single
// *ValidationError. A nil return means the graph can be rendered.
func Validate(g *Graph, caps Capabilities) error {
	v := &validator{g: g, caps: caps}

	v.checkBonds()
	v.checkVLANs()
	v.checkNames()
	v.checkMACs()
	v.checkAddresses()
	v.checkRoutes()

	if len(v.violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: v.violations}
}

type validator struct {
	g          *Graph
	caps       Capabilities
	violations []Violation
}

func (v *validator) add(node, rule, format string, args ...any) {
	v.violations = append(v.violations, Violation{Node: node, Rule: rule, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) checkBonds() {
	for _, b := range v.g.Bonds() {
		switch {
		case !v.caps.Bonding:
			v.add(b.Name, RuleBondUnsupported, "target does not support bonding")
		case !v.caps.SupportsBondMode(b.Mode):
			v.add(b.Name, RuleBondMode, "bonding mode %s is not supported by target", b.Mode)
		}
		for _, m := range v.g.Members(b) {
			if len(m.Addresses) > 0 || len(m.Routes) > 0 || len(m.VLANs) > 0 {
				v.add(m.Name, RuleMemberConfig, "member of %s must not carry addresses, routes or VLANs", b.Name)
			}
		}
	}
}

func (v *validator) checkVLANs() {
	for _, n := range v.g.VLANs() {
		if !v.caps.VLANs {
			v.add(n.Name, RuleVLANUnsupported, "target does not support VLANs")
		}
		if n.Tag < MinVLANTag || n.Tag > MaxVLANTag {
			v.add(n.Name, RuleVLANTag, "tag %d outside %d-%d", n.Tag, MinVLANTag, MaxVLANTag)
		}
	}
}

func (v *validator) checkNames() {
	for _, n := range v.g.Nodes() {
		if err := validation.ValidateInterfaceName(n.Name); err != nil {
			v.add(n.Name, RuleInterfaceName, "%v", err)
		}
	}
}

func (v *validator) checkMACs() {
	seen := make(map[string]string)
	for _, n := range v.g.Physicals() {
		mac := n.MAC.String()
		if other, dup := seen[mac]; dup {
			v.add(n.Name, RuleDuplicateMAC, "hardware address %s already used by %s", mac, other)
			continue
		}
		seen[mac] = n.Name
	}
}

func (v *validator) checkAddresses() {
	owners := make(map[netip.Addr]string)
	for _, n := range v.g.Nodes() {
		for _, a := range n.Addresses {
			if !v.caps.SupportsFamily(a.Family) {
				v.add(n.Name, RuleFamily, "%s address %s is not supported by target", a.Family, a.Prefix)
			}

			ip := a.Addr()
			if other, dup := owners[ip]; dup {
				v.add(n.Name, RuleDuplicateAddress, "address %s already assigned to %s", ip, other)
			} else {
				owners[ip] = n.Name
			}

			if a.HasGateway() {
				v.checkGateway(n, a)
			}
		}
	}
}

func (v *validator) checkGateway(n *Node, a Address) {
	if a.Prefix.Bits() == a.Addr().BitLen() {
		v.add(n.Name, RuleGateway, "gateway %s on %s: host route has no network to reach it", a.Gateway, a.Prefix)
		return
	}
	if !a.Network().Contains(a.Gateway) {
		v.add(n.Name, RuleGateway, "gateway %s is outside network %s", a.Gateway, a.Network())
		return
	}
	if a.Gateway == a.Addr() {
		v.add(n.Name, RuleGateway, "gateway %s is the interface's own address", a.Gateway)
	}
}

func (v *validator) checkRoutes() {
	for _, n := range v.g.Nodes() {
		for _, r := range n.Routes {
			if !v.caps.SupportsFamily(r.Family()) {
				v.add(n.Name, RuleFamily, "%s route to %s is not supported by target", r.Family(), r.Destination)
			}
			if !onLink(n, r.Via) {
				v.add(n.Name, RuleRouteNextHop, "next hop %s for %s is not on a network of %s", r.Via, r.Destination, n.Name)
			}
		}
	}
}

func onLink(n *Node, ip netip.Addr) bool {
	for _, a := range n.Addresses {
		if a.Network().Contains(ip) && a.Addr() != ip {
			return true
		}
	}
	return false
}
