//go:build !linux

package network

import "github.com/mmlb/packethost-packet-networking/internal/logging"

// NewDiscoverer is unavailable off Linux.
func NewDiscoverer(*logging.Logger) (*Discoverer, error) {
	return nil, ErrUnsupported
}

// NewNamespaceDiscoverer is unavailable off Linux.
func NewNamespaceDiscoverer(string, *logging.Logger) (*Discoverer, error) {
	return nil, ErrUnsupported
}
