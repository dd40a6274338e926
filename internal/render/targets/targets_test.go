package targets

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmlb/packethost-packet-networking/internal/render"
	"github.com/mmlb/packethost-packet-networking/internal/render/rendertest"
)

func TestDefault(t *testing.T) {
	reg := Default()
	assert.Same(t, reg, Default())
	assert.Equal(t, []string{"debian", "netplan", "redhat"}, reg.Targets())

	for alias, want := range map[string]string{
		"ubuntu":           "debian",
		"Debian":           "debian",
		"rhel":             "redhat",
		"centos":           "redhat",
		"redhatenterprise": "redhat",
		"netplan":          "netplan",
	} {
		r, err := reg.Lookup(alias)
		require.NoError(t, err, alias)
		assert.Equal(t, want, r.Target(), alias)
	}

	_, err := reg.Lookup("gentoo")
	var uerr *render.UnknownTargetError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "gentoo", uerr.Target)

	assert.Contains(t, reg.Aliases("redhat"), "rocky")
}

func TestRenderUnsupportedShapes(t *testing.T) {
	shapes := []struct {
		name  string
		raw   map[string]any
		iface string
	}{
		{"addressed bond member", rendertest.AddressedMember(), "eth1"},
		{"vlan on bond member", rendertest.VLANOnMember(), "eth0"},
	}

	for _, e := range Entries() {
		for _, sh := range shapes {
			t.Run(e.Renderer.Target()+"/"+sh.name, func(t *testing.T) {
				g := rendertest.Unvalidated(t, sh.raw)
				artifacts, err := e.Renderer.Render(g)
				assert.Nil(t, artifacts)

				var uerr *render.UnsupportedTopologyError
				require.True(t, errors.As(err, &uerr), "got %v", err)
				assert.Equal(t, e.Renderer.Target(), uerr.Target)
				assert.Equal(t, sh.iface, uerr.Interface)
			})
		}
	}
}

func TestRenderWithoutHostnameOrResolvers(t *testing.T) {
	g := rendertest.Graph(t, rendertest.VLANAddressed())

	for _, e := range Entries() {
		t.Run(e.Renderer.Target(), func(t *testing.T) {
			files := rendertest.Files(t, e.Renderer, g)
			assert.NotContains(t, files, render.PathHostname)
			assert.NotContains(t, files, render.PathResolv)
			assert.NotEmpty(t, files)
		})
	}
}
