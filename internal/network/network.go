package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/vishvananda/netlink"

	"github.com/mmlb/packethost-packet-networking/internal/logging"
)

// ErrUnsupported is returned by discovery on platforms without netlink.
var ErrUnsupported = errors.New("link discovery is not supported on this platform")

// Netlinker is the subset of netlink discovery needs. *netlink.Handle
// satisfies it, which is how namespaced discovery works.
type Netlinker interface {
	LinkList() ([]netlink.Link, error)
}

// PermAddrReader reads the burned-in hardware address of a link.
type PermAddrReader interface {
	PermAddr(name string) (string, error)
	Close()
}

// Link is one host link as seen by discovery.
type Link struct {
	Name  string
	Index int
	Kind  string // netlink type: device, bond, vlan, ...
	MAC   net.HardwareAddr
	// PermMAC is the burned-in address. Bond members report the bond's
	// address as MAC, so matching must use this when known.
	PermMAC net.HardwareAddr
	Master  string
	Up      bool
}

// HardwareAddr returns the address to match metadata against.
func (l Link) HardwareAddr() net.HardwareAddr {
	if len(l.PermMAC) > 0 {
		return l.PermMAC
	}
	return l.MAC
}

// Discoverer lists host links.
type Discoverer struct {
	nl     Netlinker
	perm   PermAddrReader
	logger *logging.Logger
}

// NewDiscovererWith builds a Discoverer from explicit backends. perm may be nil.
func NewDiscovererWith(nl Netlinker, perm PermAddrReader, logger *logging.Logger) *Discoverer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Discoverer{nl: nl, perm: perm, logger: logger.WithComponent("network")}
}

// Close releases the permanent-address reader.
func (d *Discoverer) Close() {
	if d.perm != nil {
		d.perm.Close()
	}
}

// Discover returns every non-loopback link sorted by name.
func (d *Discoverer) Discover(ctx context.Context) ([]Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	nlinks, err := d.nl.LinkList()
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	names := make(map[int]string, len(nlinks))
	for _, l := range nlinks {
		names[l.Attrs().Index] = l.Attrs().Name
	}

	links := make([]Link, 0, len(nlinks))
	for _, l := range nlinks {
		attrs := l.Attrs()
		if attrs.Flags&net.FlagLoopback != 0 {
			continue
		}
		link := Link{
			Name:  attrs.Name,
			Index: attrs.Index,
			Kind:  l.Type(),
			MAC:   attrs.HardwareAddr,
			Up:    attrs.Flags&net.FlagUp != 0,
		}
		if attrs.MasterIndex > 0 {
			link.Master = names[attrs.MasterIndex]
		}
		if link.Kind == "device" && d.perm != nil {
			link.PermMAC = d.permAddr(attrs.Name)
		}
		links = append(links, link)
	}

	sort.Slice(links, func(i, j int) bool { return links[i].Name < links[j].Name })
	d.logger.Debug("discovered links", "count", len(links))
	return links, nil
}

func (d *Discoverer) permAddr(name string) net.HardwareAddr {
	s, err := d.perm.PermAddr(name)
	if err != nil {
		d.logger.Debug("no permanent address", "link", name, "error", err)
		return nil
	}
	mac, err := net.ParseMAC(s)
	if err != nil || isZero(mac) {
		return nil
	}
	return mac
}

func isZero(mac net.HardwareAddr) bool {
	for _, b := range mac {
		if b != 0 {
			return false
		}
	}
	return true
}

// ByMAC indexes physical links by lowercased hardware address.
func ByMAC(links []Link) map[string]Link {
	out := make(map[string]Link, len(links))
	for _, l := range links {
		if l.Kind != "device" || len(l.HardwareAddr()) == 0 {
			continue
		}
		out[strings.ToLower(l.HardwareAddr().String())] = l
	}
	return out
}
