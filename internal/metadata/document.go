package metadata

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

// Document is the typed form of a provisioning metadata document. Records
// keep their declaration order; nothing here has been cross-referenced yet.
type Document struct {
	Hostname   string
	OS         OperatingSystem
	Interfaces []InterfaceRecord
	Bonds      []BondRecord
	VLANs      []VLANRecord
	Addresses  []AddressRecord
	Routes     []RouteRecord
	Resolvers  []netip.Addr
}

// OperatingSystem names the distribution the host was provisioned with.
// Both fields may be empty.
type OperatingSystem struct {
	Distro  string
	Version string
}

// InterfaceRecord describes one physical NIC.
type InterfaceRecord struct {
	Index    int
	ID       string
	MAC      net.HardwareAddr
	NameHint string
	Slot     int // -1 when not supplied
	BondID   string
}

// BondRecord describes one link aggregation.
type BondRecord struct {
	Index    int
	ID       string
	NameHint string
	Mode     BondMode
	Members  []string
}

// VLANRecord describes one 802.1Q sub-interface.
type VLANRecord struct {
	Index    int
	ID       string
	ParentID string
	Tag      int
}

// AddressRecord assigns a CIDR to a physical, bond or VLAN record.
type AddressRecord struct {
	Index   int
	OwnerID string
	Prefix  netip.Prefix // host bits preserved: 10.0.0.2/24
	Family  Family
	Scope   Scope
	Gateway netip.Addr // zero when absent
}

// RouteRecord is a static route attached to an owner record.
type RouteRecord struct {
	Index       int
	OwnerID     string
	Destination netip.Prefix
	Via         netip.Addr
}

// BondMode is the Linux bonding driver mode.
type BondMode int

const (
	BondBalanceRR BondMode = iota
	BondActiveBackup
	BondBalanceXOR
	BondBroadcast
	Bond8023AD
	BondBalanceTLB
	BondBalanceALB
)

var bondModeNames = [...]string{
	BondBalanceRR:    "balance-rr",
	BondActiveBackup: "active-backup",
	BondBalanceXOR:   "balance-xor",
	BondBroadcast:    "broadcast",
	Bond8023AD:       "802.3ad",
	BondBalanceTLB:   "balance-tlb",
	BondBalanceALB:   "balance-alb",
}

// AllBondModes lists every mode in kernel numbering order.
var AllBondModes = []BondMode{
	BondBalanceRR, BondActiveBackup, BondBalanceXOR, BondBroadcast,
	Bond8023AD, BondBalanceTLB, BondBalanceALB,
}

// String returns the kernel name of the mode.
func (m BondMode) String() string {
	if m < 0 || int(m) >= len(bondModeNames) {
		return "unknown(" + strconv.Itoa(int(m)) + ")"
	}
	return bondModeNames[m]
}

// Valid reports whether m is a known kernel mode.
func (m BondMode) Valid() bool {
	return m >= BondBalanceRR && m <= BondBalanceALB
}

// ParseBondMode accepts kernel names, the "lacp" alias, and numeric modes.
func ParseBondMode(s string) (BondMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "lacp", "802.3ad", "8023ad":
		return Bond8023AD, nil
	}
	for i, name := range bondModeNames {
		if s == name {
			return BondMode(i), nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil {
		m := BondMode(n)
		if m.Valid() {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown bonding mode %q", s)
}

// Family is an IP address family.
type Family int

const (
	FamilyIPv4 Family = 4
	FamilyIPv6 Family = 6
)

func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	}
	return "unknown"
}

// FamilyOf returns the family of addr.
func FamilyOf(addr netip.Addr) Family {
	if addr.Unmap().Is4() {
		return FamilyIPv4
	}
	return FamilyIPv6
}

// ParseFamily accepts 4, 6, v4, v6, ipv4, ipv6, inet and inet6.
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "4", "v4", "ipv4", "inet":
		return FamilyIPv4, nil
	case "6", "v6", "ipv6", "inet6":
		return FamilyIPv6, nil
	}
	return 0, fmt.Errorf("unknown address family %q", s)
}

// Scope classifies an address as publicly routable or private.
type Scope string

const (
	ScopePublic  Scope = "public"
	ScopePrivate Scope = "private"
)

// ParseScope accepts "public" and "private".
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case ScopePublic:
		return ScopePublic, nil
	case ScopePrivate:
		return ScopePrivate, nil
	}
	return "", fmt.Errorf("unknown address scope %q", s)
}

// DefaultScope infers the scope of an address when the document omits it.
func DefaultScope(addr netip.Addr) Scope {
	if addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsLoopback() {
		return ScopePrivate
	}
	return ScopePublic
}
