package topology

import "slices"

// Capabilities describes what a rendering target can express.
type Capabilities struct {
	Bonding   bool
	BondModes []BondMode // nil with Bonding set means every mode
	VLANs     bool
	IPv4      bool
	IPv6      bool
}

// FullCapabilities can express every shape the graph can hold.
func FullCapabilities() Capabilities {
	return Capabilities{Bonding: true, VLANs: true, IPv4: true, IPv6: true}
}

// SupportsBondMode reports whether bonds of mode m can be rendered.
func (c Capabilities) SupportsBondMode(m BondMode) bool {
	if !c.Bonding {
		return false
	}
	return c.BondModes == nil || slices.Contains(c.BondModes, m)
}

// SupportsFamily reports whether addresses of family f can be rendered.
func (c Capabilities) SupportsFamily(f Family) bool {
	switch f {
	case FamilyIPv4:
		return c.IPv4
	case FamilyIPv6:
		return c.IPv6
	}
	return false
}
