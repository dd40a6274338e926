//go:build linux

package network

import (
	"fmt"
	"runtime"

	"github.com/safchain/ethtool"
	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"

	"github.com/mmlb/packethost-packet-networking/internal/logging"
)

type realNetlinker struct{}

func (realNetlinker) LinkList() ([]netlink.Link, error) {
	return netlink.LinkList()
}

// NewDiscoverer returns a Discoverer for the current network namespace.
// Permanent addresses are best effort: without an ethtool socket only the
// current addresses are reported.
func NewDiscoverer(logger *logging.Logger) (*Discoverer, error) {
	var perm PermAddrReader
	if h, err := ethtool.NewEthtool(); err == nil {
		perm = h
	} else if logger != nil {
		logger.Warn("ethtool unavailable, permanent addresses will not be read", "error", err)
	}
	return NewDiscovererWith(realNetlinker{}, perm, logger), nil
}

// NewNamespaceDiscoverer returns a Discoverer for the named network
// namespace. Sockets are opened inside the namespace and stay bound to it.
func NewNamespaceDiscoverer(name string, logger *logging.Logger) (*Discoverer, error) {
	if name == "" {
		return NewDiscoverer(logger)
	}

	ns, err := netns.GetFromName(name)
	if err != nil {
		return nil, fmt.Errorf("open netns %s: %w", name, err)
	}
	defer ns.Close()

	h, err := netlink.NewHandleAt(ns)
	if err != nil {
		return nil, fmt.Errorf("netlink handle in netns %s: %w", name, err)
	}

	perm, err := ethtoolIn(ns)
	if err != nil && logger != nil {
		logger.Warn("ethtool unavailable in namespace", "netns", name, "error", err)
	}
	d := NewDiscovererWith(h, perm, logger)
	return d, nil
}

// ethtoolIn opens an ethtool socket inside ns.
func ethtoolIn(ns netns.NsHandle) (PermAddrReader, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	orig, err := netns.Get()
	if err != nil {
		return nil, fmt.Errorf("get current netns: %w", err)
	}
	defer orig.Close()

	if err := netns.Set(ns); err != nil {
		return nil, fmt.Errorf("enter netns: %w", err)
	}
	h, ethErr := ethtool.NewEthtool()
	if err := netns.Set(orig); err != nil {
		// The thread is stuck in the wrong namespace; keep it locked so the
		// runtime discards it.
		runtime.LockOSThread()
		if h != nil {
			h.Close()
		}
		return nil, fmt.Errorf("restore netns: %w", err)
	}
	if ethErr != nil {
		return nil, ethErr
	}
	return h, nil
}
