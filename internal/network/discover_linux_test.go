//go:build linux

package network

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmlb/packethost-packet-networking/internal/logging"
	"github.com/mmlb/packethost-packet-networking/internal/testutil"
)

func TestDiscoverHost(t *testing.T) {
	testutil.RequireVM(t)

	d, err := NewDiscoverer(logging.Discard())
	require.NoError(t, err)
	defer d.Close()

	links, err := d.Discover(context.Background())
	require.NoError(t, err)
	for _, l := range links {
		assert.NotEqual(t, "lo", l.Name)
		assert.Positive(t, l.Index)
	}
}

func TestNamespaceDiscovererUnknown(t *testing.T) {
	testutil.RequireVM(t)
	testutil.RequireRoot(t)

	_, err := NewNamespaceDiscoverer("packet-networking-missing-ns", logging.Discard())
	assert.Error(t, err)
}
