package network

import (
	"fmt"
	"net/netip"

	"github.com/miekg/dns"
)

// DefaultResolvConf is the file HostResolvers reads by default.
const DefaultResolvConf = "/etc/resolv.conf"

// HostResolvers returns the nameservers configured in a resolv.conf file,
// in file order and without duplicates.
func HostResolvers(path string) ([]netip.Addr, error) {
	if path == "" {
		path = DefaultResolvConf
	}
	cc, err := dns.ClientConfigFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	seen := make(map[netip.Addr]bool, len(cc.Servers))
	out := make([]netip.Addr, 0, len(cc.Servers))
	for _, s := range cc.Servers {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid nameserver %q", path, s)
		}
		addr = addr.WithZone("")
		if seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, addr)
	}
	return out, nil
}

// ResolverStrings formats addrs for a canonical metadata document.
func ResolverStrings(addrs []netip.Addr) []any {
	out := make([]any, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.String())
	}
	return out
}
