package metadata

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"
)

// DefaultPrivateSubnets is used when neither the metadata nor the caller
// names the private networks reachable through the private gateway.
var DefaultPrivateSubnets = []string{"10.0.0.0/8"}

// PacketOptions tunes the legacy metadata conversion.
type PacketOptions struct {
	// PrivateSubnets overrides DefaultPrivateSubnets when the metadata
	// carries no private_subnets list.
	PrivateSubnets []string
	// Resolvers are copied into the canonical document.
	Resolvers []string
}

var (
	packetInterfaces = jp.MustParseString("$.network.interfaces[*]")
	packetAddresses  = jp.MustParseString("$.network.addresses[*]")
	packetBondMode   = jp.MustParseString("$.network.bonding.mode")
	packetLinkAgg    = jp.MustParseString("$.network.bonding.link_aggregation")
	packetSubnets    = jp.MustParseString("$.private_subnets[*]")
	packetHostname   = jp.MustParseString("$.hostname")
	packetOS         = jp.MustParseString("$.operating_system")
)

// FromPacket converts a legacy Packet/Equinix Metal metadata document into
// the canonical shape accepted by Parse.
func FromPacket(raw map[string]any, opts PacketOptions) (map[string]any, error) {
	ifaceItems := packetInterfaces.Get(raw)
	if len(ifaceItems) == 0 {
		return nil, malformed("network.interfaces", -1, "", "", "missing or empty interface list")
	}

	linkAgg := "bonded"
	if s, ok := packetLinkAgg.First(raw).(string); ok && s != "" {
		linkAgg = s
	}
	bonded := linkAgg != "individual"

	var bondMode any = "active-backup"
	if v := packetBondMode.First(raw); v != nil {
		bondMode = v
	}

	var (
		interfaces []any
		bonds      []any
		bondSeen   = make(map[string]bool)
		firstIface string
		firstBond  string
	)
	for i, item := range ifaceItems {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, malformed("network.interfaces", i, "", "", "expected object, got %s", typeName(item))
		}
		name, _ := m["name"].(string)
		mac, _ := m["mac"].(string)
		if name == "" {
			name = "iface" + strconv.Itoa(i)
		}
		if mac == "" {
			return nil, malformed("network.interfaces", i, name, "mac", "missing required field")
		}
		out := map[string]any{"id": name, "mac": mac, "name": name}

		if bonded {
			if bond, _ := m["bond"].(string); bond != "" {
				out["bond_id"] = bond
				if !bondSeen[bond] {
					bondSeen[bond] = true
					bonds = append(bonds, map[string]any{"id": bond, "name": bond, "mode": bondMode})
					if firstBond == "" {
						firstBond = bond
					}
				}
			}
		}
		if firstIface == "" {
			firstIface = name
		}
		interfaces = append(interfaces, out)
	}

	owner := firstIface
	if bonded && firstBond != "" {
		owner = firstBond
	}

	subnets := opts.PrivateSubnets
	if items := packetSubnets.Get(raw); len(items) > 0 {
		subnets = subnets[:0:0]
		for _, s := range items {
			if str, ok := s.(string); ok {
				subnets = append(subnets, str)
			}
		}
	}
	if len(subnets) == 0 {
		subnets = DefaultPrivateSubnets
	}

	addrs, routes, err := packetAddressList(packetAddresses.Get(raw), owner, subnets)
	if err != nil {
		return nil, err
	}

	doc := map[string]any{
		SectionInterfaces: interfaces,
		SectionAddresses:  addrs,
	}
	if len(bonds) > 0 {
		doc[SectionBonds] = bonds
	}
	if len(routes) > 0 {
		doc[SectionRoutes] = routes
	}
	if hostname, ok := packetHostname.First(raw).(string); ok {
		doc["hostname"] = hostname
	}
	if m, ok := packetOS.First(raw).(map[string]any); ok {
		sys := make(map[string]any, 2)
		for _, k := range []string{"distro", "version"} {
			if v, ok := m[k]; ok && v != nil {
				sys[k] = v
			}
		}
		if len(sys) > 0 {
			doc[SectionOS] = sys
		}
	}
	if len(opts.Resolvers) > 0 {
		rs := make([]any, 0, len(opts.Resolvers))
		for _, r := range opts.Resolvers {
			rs = append(rs, r)
		}
		doc[SectionResolvers] = rs
	}
	return doc, nil
}

type packetAddress struct {
	addr    string
	cidr    int
	gateway string
	public  bool
	family  Family
}

func packetAddressList(items []any, owner string, privateSubnets []string) (addrs, routes []any, err error) {
	var parsed []packetAddress
	hasPublic4 := false

	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, nil, malformed("network.addresses", i, "", "", "expected object, got %s", typeName(item))
		}
		if mgmt, ok := m["management"].(bool); ok && !mgmt {
			continue
		}
		pa := packetAddress{}
		pa.addr, _ = m["address"].(string)
		if pa.addr == "" {
			return nil, nil, malformed("network.addresses", i, "", "address", "missing required field")
		}
		ip, perr := netip.ParseAddr(pa.addr)
		if perr != nil {
			return nil, nil, malformed("network.addresses", i, "", "address", "invalid IP address %q", pa.addr)
		}
		pa.family = FamilyOf(ip)
		if n, ok := asInt(m["cidr"]); ok {
			pa.cidr = n
		} else {
			return nil, nil, malformed("network.addresses", i, "", "cidr", "expected integer prefix length")
		}
		pa.gateway, _ = m["gateway"].(string)
		pa.public, _ = m["public"].(bool)
		if pa.public && pa.family == FamilyIPv4 {
			hasPublic4 = true
		}
		parsed = append(parsed, pa)
	}

	for _, pa := range parsed {
		scope := ScopePrivate
		if pa.public {
			scope = ScopePublic
		}
		rec := map[string]any{
			"owner_id": owner,
			"cidr":     fmt.Sprintf("%s/%d", pa.addr, pa.cidr),
			"family":   int(pa.family),
			"scope":    string(scope),
		}

		privateV4 := !pa.public && pa.family == FamilyIPv4
		switch {
		case pa.gateway == "":
		case privateV4 && hasPublic4:
			for _, subnet := range privateSubnets {
				routes = append(routes, map[string]any{
					"owner_id":    owner,
					"destination": strings.TrimSpace(subnet),
					"via":         pa.gateway,
				})
			}
		default:
			rec["gateway"] = pa.gateway
		}
		addrs = append(addrs, rec)
	}
	return addrs, routes, nil
}
