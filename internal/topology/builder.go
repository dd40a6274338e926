package topology

import (
	"bytes"
	"fmt"
	"math"
	"net/netip"
	"sort"

	"github.com/mmlb/packethost-packet-networking/internal/metadata"
)

// Build resolves the references of a parsed document and returns the
// interface graph. Nodes are created in dependency order: physical
// interfaces, bonds, VLANs, then the addresses and routes they own.
func Build(doc *metadata.Document) (*Graph, error) {
	b := &builder{
		doc: doc,
		g: &Graph{
			byID:      make(map[string]Handle),
			byName:    make(map[string]Handle),
			hostname:  doc.Hostname,
			resolvers: append([]netip.Addr(nil), doc.Resolvers...),
		},
	}

	b.addPhysicals()
	if err := b.addBonds(); err != nil {
		return nil, err
	}
	b.nameInterfaces()
	if err := b.addVLANs(); err != nil {
		return nil, err
	}
	if err := b.attachAddresses(); err != nil {
		return nil, err
	}
	if err := b.attachRoutes(); err != nil {
		return nil, err
	}
	return b.g, nil
}

type builder struct {
	doc *metadata.Document
	g   *Graph
}

func (b *builder) add(n Node) Handle {
	h := Handle(len(b.g.nodes))
	n.Handle = h
	b.g.nodes = append(b.g.nodes, n)
	b.g.byID[n.ID] = h
	return h
}

func (b *builder) warn(node, format string, args ...any) {
	b.g.warnings = append(b.g.warnings, Warning{Node: node, Message: fmt.Sprintf(format, args...)})
}

// addPhysicals creates physical nodes ordered by MAC, then slot, then
// declaration order. Interfaces without a slot sort after those with one.
func (b *builder) addPhysicals() {
	recs := append([]metadata.InterfaceRecord(nil), b.doc.Interfaces...)
	slot := func(r metadata.InterfaceRecord) int {
		if r.Slot < 0 {
			return math.MaxInt
		}
		return r.Slot
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if c := bytes.Compare(recs[i].MAC, recs[j].MAC); c != 0 {
			return c < 0
		}
		if si, sj := slot(recs[i]), slot(recs[j]); si != sj {
			return si < sj
		}
		return recs[i].Index < recs[j].Index
	})

	for _, r := range recs {
		b.add(Node{
			Kind:   KindPhysical,
			ID:     r.ID,
			MAC:    r.MAC,
			Slot:   r.Slot,
			Bond:   NoHandle,
			Parent: NoHandle,
		})
	}
}

func (b *builder) addBonds() error {
	claims := make(map[string][]string)
	claim := func(iface, bond string) {
		for _, existing := range claims[iface] {
			if existing == bond {
				return
			}
		}
		claims[iface] = append(claims[iface], bond)
	}

	bondIDs := make(map[string]bool, len(b.doc.Bonds))
	for _, br := range b.doc.Bonds {
		bondIDs[br.ID] = true
	}

	for _, br := range b.doc.Bonds {
		for _, m := range br.Members {
			h, ok := b.g.byID[m]
			if !ok {
				reason := ""
				if bondIDs[m] || b.isVLANID(m) {
					reason = "member is not a physical interface"
				}
				return &UnresolvedReferenceError{Kind: "bond member", From: br.ID, Ref: m, Reason: reason}
			}
			if b.g.nodes[h].Kind != KindPhysical {
				return &UnresolvedReferenceError{Kind: "bond member", From: br.ID, Ref: m, Reason: "member is not a physical interface"}
			}
			claim(m, br.ID)
		}
	}
	bondOf := make(map[string]string)
	for _, ir := range b.doc.Interfaces {
		if ir.BondID == "" {
			continue
		}
		if !bondIDs[ir.BondID] {
			return &UnresolvedReferenceError{Kind: "bond", From: ir.ID, Ref: ir.BondID}
		}
		claim(ir.ID, ir.BondID)
		bondOf[ir.ID] = ir.BondID
	}
	for _, ir := range b.doc.Interfaces {
		if bonds := claims[ir.ID]; len(bonds) > 1 {
			conflicting := append([]string(nil), bonds...)
			sort.Strings(conflicting)
			return &UnresolvedReferenceError{
				Kind:        "bond member",
				From:        conflicting[0],
				Ref:         ir.ID,
				Conflicting: conflicting,
				Reason:      "interface belongs to more than one bond",
			}
		}
	}

	for _, br := range b.doc.Bonds {
		h := b.add(Node{
			Kind:   KindBond,
			ID:     br.ID,
			Mode:   br.Mode,
			Bond:   NoHandle,
			Parent: NoHandle,
		})

		var members []Handle
		seen := make(map[Handle]bool)
		addMember := func(id string) {
			mh := b.g.byID[id]
			if seen[mh] {
				return
			}
			seen[mh] = true
			members = append(members, mh)
			b.g.nodes[mh].Bond = h
		}
		for _, m := range br.Members {
			addMember(m)
		}
		// Members named only through bond_id follow MAC order.
		for _, n := range b.g.nodes {
			if n.Kind == KindPhysical && bondOf[n.ID] == br.ID {
				addMember(n.ID)
			}
		}
		if len(members) == 0 {
			return &UnresolvedReferenceError{Kind: "bond member", From: br.ID, Reason: "bond has no members"}
		}
		b.g.nodes[h].Members = members
	}
	return nil
}

func (b *builder) isVLANID(id string) bool {
	for _, v := range b.doc.VLANs {
		if v.ID == id {
			return true
		}
	}
	return false
}

func (b *builder) nameInterfaces() {
	hints := make(map[string]string, len(b.doc.Interfaces)+len(b.doc.Bonds))
	for _, ir := range b.doc.Interfaces {
		hints[ir.ID] = ir.NameHint
	}
	for _, br := range b.doc.Bonds {
		hints[br.ID] = br.NameHint
	}

	var physicals, bonds []*Node
	for i := range b.g.nodes {
		n := &b.g.nodes[i]
		switch n.Kind {
		case KindPhysical:
			physicals = append(physicals, n)
		case KindBond:
			bonds = append(bonds, n)
		}
	}

	names := newNamer()
	ordered := append(append([]*Node(nil), physicals...), bonds...)
	for _, n := range ordered {
		hint := hints[n.ID]
		if hint == "" {
			continue
		}
		if names.reserve(hint) {
			n.Name = hint
		} else {
			b.warn(n.ID, "name hint %q is invalid or already taken", hint)
		}
	}
	for _, n := range physicals {
		if n.Name == "" {
			n.Name = names.next("eth")
		}
	}
	for _, n := range bonds {
		if n.Name == "" {
			n.Name = names.next("bond")
		}
	}
	for _, n := range ordered {
		b.g.byName[n.Name] = n.Handle
	}
}

func (b *builder) addVLANs() error {
	type pending struct {
		rec    metadata.VLANRecord
		parent Handle
	}
	list := make([]pending, 0, len(b.doc.VLANs))
	type key struct {
		parent Handle
		tag    int
	}
	seen := make(map[key]string)

	for _, vr := range b.doc.VLANs {
		ph, ok := b.g.byID[vr.ParentID]
		if !ok {
			reason := ""
			if b.isVLANID(vr.ParentID) {
				reason = "parent must be a physical interface or bond"
			}
			return &UnresolvedReferenceError{Kind: "vlan parent", From: vr.ID, Ref: vr.ParentID, Reason: reason}
		}
		k := key{ph, vr.Tag}
		if other, dup := seen[k]; dup {
			return &UnresolvedReferenceError{
				Kind:   "vlan parent",
				From:   vr.ID,
				Ref:    vr.ParentID,
				Reason: fmt.Sprintf("tag %d already used by %q", vr.Tag, other),
			}
		}
		seen[k] = vr.ID
		list = append(list, pending{vr, ph})
	}

	sort.SliceStable(list, func(i, j int) bool {
		pi, pj := b.g.nodes[list[i].parent].Name, b.g.nodes[list[j].parent].Name
		if pi != pj {
			return pi < pj
		}
		return list[i].rec.Tag < list[j].rec.Tag
	})

	for _, p := range list {
		parent := &b.g.nodes[p.parent]
		name := vlanName(parent.Name, p.rec.Tag)
		h := b.add(Node{
			Kind:   KindVLAN,
			ID:     p.rec.ID,
			Name:   name,
			Tag:    p.rec.Tag,
			Parent: p.parent,
			Bond:   NoHandle,
		})
		b.g.byName[name] = h
		// parent is stale once add has grown the arena.
		b.g.nodes[p.parent].VLANs = append(b.g.nodes[p.parent].VLANs, h)
	}
	return nil
}

// attachAddresses assigns addresses to their owners. A top-level interface
// and its VLANs keep at most one gateway per family: the first declared.
func (b *builder) attachAddresses() error {
	type key struct {
		root   Handle
		family Family
	}
	gateways := make(map[key]metadata.AddressRecord)

	for _, ar := range b.doc.Addresses {
		h, ok := b.g.byID[ar.OwnerID]
		if !ok {
			return &UnresolvedReferenceError{Kind: "address owner", From: ar.Prefix.String(), Ref: ar.OwnerID}
		}
		a := Address{Prefix: ar.Prefix, Family: ar.Family, Scope: ar.Scope, Gateway: ar.Gateway}

		if a.HasGateway() {
			root := b.g.TopLevel(&b.g.nodes[h])
			k := key{root.Handle, a.Family}
			if first, taken := gateways[k]; taken {
				b.warn(root.Name, "dropping %s gateway %s of %s: %s gateway %s declared first",
					a.Family, a.Gateway, a.Prefix, a.Family, first.Gateway)
				a.Gateway = netip.Addr{}
			} else {
				gateways[k] = ar
			}
		}
		b.g.nodes[h].Addresses = append(b.g.nodes[h].Addresses, a)
	}
	return nil
}

func (b *builder) attachRoutes() error {
	for _, rr := range b.doc.Routes {
		h, ok := b.g.byID[rr.OwnerID]
		if !ok {
			return &UnresolvedReferenceError{Kind: "route owner", From: rr.Destination.String(), Ref: rr.OwnerID}
		}
		b.g.nodes[h].Routes = append(b.g.nodes[h].Routes, Route{Destination: rr.Destination, Via: rr.Via})
	}
	return nil
}
