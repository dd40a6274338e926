package metadata

import (
	"net"
	"net/netip"
	"strconv"
	"strings"

	"github.com/mmlb/packethost-packet-networking/internal/validation"
)

// Section names as they appear in the canonical document.
const (
	SectionInterfaces = "interfaces"
	SectionBonds      = "bonds"
	SectionVLANs      = "vlans"
	SectionAddresses  = "addresses"
	SectionRoutes     = "routes"
	SectionResolvers  = "resolvers"
	SectionOS         = "operating_system"
)

// Parse checks the shape of a raw metadata document and converts it into a
// Document. It validates individual fields only; references between records
// are resolved by the topology builder.
func Parse(raw map[string]any) (*Document, error) {
	if raw == nil {
		return nil, malformed("", -1, "", "", "document is empty")
	}

	p := &parser{ids: make(map[string]string)}
	doc := &Document{}

	if v, ok := raw["hostname"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return nil, malformed("", -1, "", "hostname", "expected string, got %s", typeName(v))
		}
		s = strings.TrimSpace(s)
		if s != "" {
			if err := validation.ValidateHostname(s); err != nil {
				return nil, malformed("", -1, "", "hostname", "%v", err)
			}
		}
		doc.Hostname = s
	}

	sys, err := ParseOperatingSystem(raw)
	if err != nil {
		return nil, err
	}
	doc.OS = sys

	ifaces, err := section(raw, SectionInterfaces, true)
	if err != nil {
		return nil, err
	}
	for _, r := range ifaces {
		rec, err := p.iface(r)
		if err != nil {
			return nil, err
		}
		doc.Interfaces = append(doc.Interfaces, rec)
	}

	bonds, err := section(raw, SectionBonds, false)
	if err != nil {
		return nil, err
	}
	for _, r := range bonds {
		rec, err := p.bond(r)
		if err != nil {
			return nil, err
		}
		doc.Bonds = append(doc.Bonds, rec)
	}

	vlans, err := section(raw, SectionVLANs, false)
	if err != nil {
		return nil, err
	}
	for _, r := range vlans {
		rec, err := p.vlan(r)
		if err != nil {
			return nil, err
		}
		doc.VLANs = append(doc.VLANs, rec)
	}

	addrs, err := section(raw, SectionAddresses, false)
	if err != nil {
		return nil, err
	}
	for _, r := range addrs {
		rec, err := p.address(r)
		if err != nil {
			return nil, err
		}
		doc.Addresses = append(doc.Addresses, rec)
	}

	routes, err := section(raw, SectionRoutes, false)
	if err != nil {
		return nil, err
	}
	for _, r := range routes {
		rec, err := p.route(r)
		if err != nil {
			return nil, err
		}
		doc.Routes = append(doc.Routes, rec)
	}

	doc.Resolvers, err = resolvers(raw)
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// section extracts a list of objects from the document root.
func section(raw map[string]any, name string, required bool) ([]*record, error) {
	v, ok := raw[name]
	if !ok || v == nil {
		if required {
			return nil, malformed(name, -1, "", "", "missing required section")
		}
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, malformed(name, -1, "", "", "expected list, got %s", typeName(v))
	}
	if required && len(items) == 0 {
		return nil, malformed(name, -1, "", "", "section must not be empty")
	}

	out := make([]*record, 0, len(items))
	for i, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			return nil, malformed(name, i, "", "", "expected object, got %s", typeName(item))
		}
		r := &record{section: name, index: i, fields: fields}
		if id, ok := fields["id"].(string); ok {
			r.id = strings.TrimSpace(id)
		}
		out = append(out, r)
	}
	return out, nil
}

type parser struct {
	// ids maps every record identifier to the section that declared it.
	ids map[string]string
}

func (p *parser) claimID(r *record) (string, error) {
	id, err := r.requireString("id")
	if err != nil {
		return "", err
	}
	if err := validation.ValidateIdentifier(id); err != nil {
		return "", r.fail("id", "%v", err)
	}
	if prev, dup := p.ids[id]; dup {
		return "", r.fail("id", "duplicate identifier (already used in %s)", prev)
	}
	p.ids[id] = r.section
	return id, nil
}

func (p *parser) iface(r *record) (InterfaceRecord, error) {
	rec := InterfaceRecord{Index: r.index}

	id, err := p.claimID(r)
	if err != nil {
		return rec, err
	}
	rec.ID = id

	mac, err := r.requireString("mac")
	if err != nil {
		return rec, err
	}
	hw, err := net.ParseMAC(mac)
	if err != nil || len(hw) != 6 {
		return rec, r.fail("mac", "invalid hardware address %q", mac)
	}
	rec.MAC = hw

	if rec.NameHint, err = r.optionalString("name"); err != nil {
		return rec, err
	}
	if rec.Slot, err = r.optionalInt("slot", -1); err != nil {
		return rec, err
	}
	if r.has("slot") && rec.Slot < 0 {
		return rec, r.fail("slot", "must not be negative")
	}
	if rec.BondID, err = r.optionalString("bond_id"); err != nil {
		return rec, err
	}
	return rec, nil
}

func (p *parser) bond(r *record) (BondRecord, error) {
	rec := BondRecord{Index: r.index}

	id, err := p.claimID(r)
	if err != nil {
		return rec, err
	}
	rec.ID = id

	if !r.has("mode") {
		return rec, r.fail("mode", "missing required field")
	}
	s, ok := scalarString(r.fields["mode"])
	if !ok {
		return rec, r.fail("mode", "expected string or integer, got %s", typeName(r.fields["mode"]))
	}
	if rec.Mode, err = ParseBondMode(s); err != nil {
		return rec, r.fail("mode", "%v", err)
	}

	if rec.Members, err = r.stringList("members"); err != nil {
		return rec, err
	}
	seen := make(map[string]bool, len(rec.Members))
	for _, m := range rec.Members {
		if m == "" {
			return rec, r.fail("members", "empty member identifier")
		}
		if seen[m] {
			return rec, r.fail("members", "member %q listed twice", m)
		}
		seen[m] = true
	}

	if rec.NameHint, err = r.optionalString("name"); err != nil {
		return rec, err
	}
	return rec, nil
}

func (p *parser) vlan(r *record) (VLANRecord, error) {
	rec := VLANRecord{Index: r.index}

	id, err := p.claimID(r)
	if err != nil {
		return rec, err
	}
	rec.ID = id

	if rec.ParentID, err = r.requireString("parent_id"); err != nil {
		return rec, err
	}
	if rec.Tag, err = r.requireInt("tag"); err != nil {
		return rec, err
	}
	return rec, nil
}

func (p *parser) address(r *record) (AddressRecord, error) {
	rec := AddressRecord{Index: r.index}
	var err error

	if rec.OwnerID, err = r.requireString("owner_id"); err != nil {
		return rec, err
	}

	cidr, err := r.requireString("cidr")
	if err != nil {
		return rec, err
	}
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return rec, r.fail("cidr", "invalid CIDR %q", cidr)
	}
	if prefix.Addr().Is4In6() {
		return rec, r.fail("cidr", "IPv4-mapped address %q, use the IPv4 form", cidr)
	}
	rec.Prefix = prefix
	rec.Family = FamilyOf(prefix.Addr())

	if r.has("family") {
		s, ok := scalarString(r.fields["family"])
		if !ok {
			return rec, r.fail("family", "expected string or integer, got %s", typeName(r.fields["family"]))
		}
		fam, err := ParseFamily(s)
		if err != nil {
			return rec, r.fail("family", "%v", err)
		}
		if fam != rec.Family {
			return rec, r.fail("family", "declared %s but %s is %s", fam, cidr, rec.Family)
		}
	}

	rec.Scope = DefaultScope(prefix.Addr())
	if r.has("scope") {
		s, err := r.optionalString("scope")
		if err != nil {
			return rec, err
		}
		if rec.Scope, err = ParseScope(s); err != nil {
			return rec, r.fail("scope", "%v", err)
		}
	}

	gw, err := r.optionalString("gateway")
	if err != nil {
		return rec, err
	}
	if gw != "" {
		addr, err := netip.ParseAddr(gw)
		if err != nil {
			return rec, r.fail("gateway", "invalid IP address %q", gw)
		}
		if addr.Is4In6() {
			return rec, r.fail("gateway", "IPv4-mapped address %q, use the IPv4 form", gw)
		}
		if FamilyOf(addr) != rec.Family {
			return rec, r.fail("gateway", "gateway %s is not %s", gw, rec.Family)
		}
		rec.Gateway = addr
	}
	return rec, nil
}

func (p *parser) route(r *record) (RouteRecord, error) {
	rec := RouteRecord{Index: r.index}
	var err error

	if rec.OwnerID, err = r.requireString("owner_id"); err != nil {
		return rec, err
	}

	dst, err := r.requireString("destination")
	if err != nil {
		return rec, err
	}
	prefix, err := netip.ParsePrefix(dst)
	if err != nil {
		return rec, r.fail("destination", "invalid CIDR %q", dst)
	}
	if prefix.Addr().Is4In6() {
		return rec, r.fail("destination", "IPv4-mapped address %q, use the IPv4 form", dst)
	}
	rec.Destination = prefix.Masked()

	via, err := r.requireString("via")
	if err != nil {
		return rec, err
	}
	if rec.Via, err = netip.ParseAddr(via); err != nil {
		return rec, r.fail("via", "invalid IP address %q", via)
	}
	if rec.Via.Is4In6() {
		return rec, r.fail("via", "IPv4-mapped address %q, use the IPv4 form", via)
	}
	if FamilyOf(rec.Via) != FamilyOf(rec.Destination.Addr()) {
		return rec, r.fail("via", "next hop %s does not match destination family", via)
	}
	return rec, nil
}

// ParseOperatingSystem reads the optional operating_system object. The
// version may be given as a number.
func ParseOperatingSystem(raw map[string]any) (OperatingSystem, error) {
	var sys OperatingSystem
	v, ok := raw[SectionOS]
	if !ok || v == nil {
		return sys, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return sys, malformed(SectionOS, -1, "", "", "expected object, got %s", typeName(v))
	}
	for _, f := range []struct {
		name string
		dst  *string
	}{{"distro", &sys.Distro}, {"version", &sys.Version}} {
		fv, ok := m[f.name]
		if !ok || fv == nil {
			continue
		}
		s, ok := scalarString(fv)
		if fl, isFloat := fv.(float64); !ok && isFloat {
			s, ok = strconv.FormatFloat(fl, 'f', -1, 64), true
		}
		if !ok {
			return sys, malformed(SectionOS, -1, "", f.name, "expected string, got %s", typeName(fv))
		}
		*f.dst = strings.TrimSpace(s)
	}
	return sys, nil
}

func resolvers(raw map[string]any) ([]netip.Addr, error) {
	v, ok := raw[SectionResolvers]
	if !ok || v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, malformed(SectionResolvers, -1, "", "", "expected list, got %s", typeName(v))
	}
	out := make([]netip.Addr, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, malformed(SectionResolvers, i, "", "", "expected string, got %s", typeName(item))
		}
		addr, err := netip.ParseAddr(strings.TrimSpace(s))
		if err != nil {
			return nil, malformed(SectionResolvers, i, "", "", "invalid IP address %q", s)
		}
		if addr.Is4In6() {
			return nil, malformed(SectionResolvers, i, "", "", "IPv4-mapped address %q, use the IPv4 form", s)
		}
		out = append(out, addr)
	}
	return out, nil
}
