package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmlb/packethost-packet-networking/internal/metadata"
	"github.com/mmlb/packethost-packet-networking/internal/metrics"
	"github.com/mmlb/packethost-packet-networking/internal/render"
	"github.com/mmlb/packethost-packet-networking/internal/render/rendertest"
	"github.com/mmlb/packethost-packet-networking/internal/render/targets"
	"github.com/mmlb/packethost-packet-networking/internal/topology"
)

// flatRenderer supports neither bonds nor VLANs.
type flatRenderer struct {
	target string
	err    error
	panics bool
}

func (f flatRenderer) Target() string {
	return f.target
}

func (flatRenderer) Capabilities() topology.Capabilities {
	return topology.Capabilities{IPv4: true, IPv6: true}
}

func (f flatRenderer) Render(g *topology.Graph) ([]render.Artifact, error) {
	if f.panics {
		panic("boom")
	}
	if f.err != nil {
		return nil, f.err
	}
	return []render.Artifact{
		{Path: "etc/z", Content: []byte(g.Hostname()), Mode: render.ModeConfig},
		{Path: "etc/a", Content: []byte("a\n"), Mode: render.ModeConfig},
	}, nil
}

func TestRunSingleNIC(t *testing.T) {
	m := metrics.New()
	p := New(targets.Default(), WithMetrics(m))

	res, err := p.Run(context.Background(), rendertest.SingleNIC(), "ubuntu")
	require.NoError(t, err)
	require.Len(t, res.Outputs, 1)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", res.RunID.String())

	out, ok := res.Output("debian")
	require.True(t, ok)
	assert.Contains(t, out.Manifest, "etc/network/interfaces")
	assert.IsNonDecreasing(t, out.Manifest)

	var iface string
	for _, a := range out.Artifacts {
		if a.Path == "etc/network/interfaces" {
			iface = string(a.Content)
		}
	}
	assert.Contains(t, iface, "iface eth0 inet static")
	assert.Contains(t, iface, "address 10.0.0.2/24")
	assert.Contains(t, iface, "gateway 10.0.0.1")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Renders.WithLabelValues("debian", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Interfaces.WithLabelValues("physical")))
}

func TestRunBondUnsupported(t *testing.T) {
	reg := render.MustRegistry(render.Entry{Renderer: flatRenderer{target: "flat"}})
	m := metrics.New()
	p := New(reg, WithMetrics(m))

	res, err := p.Run(context.Background(), rendertest.BondedVLAN(), "flat")
	require.Error(t, err)
	assert.Nil(t, res)

	var perr *PhaseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, PhaseValidate, perr.Phase)
	assert.Equal(t, "flat", perr.Target)

	var verr *topology.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "flat", verr.Target)
	assert.True(t, verr.Has(topology.RuleBondUnsupported))
	assert.True(t, verr.Has(topology.RuleVLANUnsupported))

	var named bool
	for _, v := range verr.Violations {
		if v.Rule == topology.RuleBondUnsupported && v.Node == "bond0" {
			named = true
		}
	}
	assert.True(t, named, "violation names the bond")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PhaseFailures.WithLabelValues("validate")))
}

func TestRunUnknownTargetBeforeParse(t *testing.T) {
	p := New(targets.Default())

	// Not even valid metadata: the target must fail first.
	_, err := p.Run(context.Background(), map[string]any{}, "debian", "gentoo")

	var perr *PhaseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, PhaseResolve, perr.Phase)
	assert.Equal(t, "gentoo", perr.Target)

	var uerr *render.UnknownTargetError
	require.ErrorAs(t, err, &uerr)
	assert.Contains(t, uerr.Known, "netplan")

	_, err = p.Run(context.Background(), rendertest.SingleNIC())
	assert.ErrorIs(t, err, ErrNoTargets)
}

func TestRunPhaseErrors(t *testing.T) {
	p := New(targets.Default())

	t.Run("malformed", func(t *testing.T) {
		_, err := p.Run(context.Background(), map[string]any{"interfaces": "nope"}, "debian")
		var perr *PhaseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, PhaseParse, perr.Phase)
		var merr *metadata.MalformedMetadataError
		assert.ErrorAs(t, err, &merr)
	})

	t.Run("unresolved vlan parent", func(t *testing.T) {
		raw := rendertest.SingleNIC()
		raw["vlans"] = []any{map[string]any{"id": "v7", "parent_id": "ghost", "tag": 7}}

		_, err := p.Run(context.Background(), raw, "debian")
		var perr *PhaseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, PhaseBuild, perr.Phase)

		var rerr *topology.UnresolvedReferenceError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, "ghost", rerr.Ref)
		assert.Contains(t, err.Error(), "ghost")
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.Run(ctx, rendertest.SingleNIC(), "debian")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRunMultiTarget(t *testing.T) {
	p := New(targets.Default())

	res, err := p.Run(context.Background(), rendertest.Bonded(), "netplan", "rhel", "debian", "centos")
	require.NoError(t, err)

	got := make([]string, 0, len(res.Outputs))
	for _, o := range res.Outputs {
		got = append(got, o.Target)
		assert.NotEmpty(t, o.Artifacts)
	}
	assert.Equal(t, []string{"netplan", "redhat", "debian"}, got, "request order, aliases collapsed")
}

func TestRunRenderFailureIsAllOrNothing(t *testing.T) {
	errFirst := errors.New("first failed")
	reg := render.MustRegistry(
		render.Entry{Renderer: flatRenderer{target: "good"}},
		render.Entry{Renderer: flatRenderer{target: "bad", err: errFirst}},
		render.Entry{Renderer: flatRenderer{target: "worse", err: errors.New("second failed")}},
		render.Entry{Renderer: flatRenderer{target: "crash", panics: true}},
	)
	p := New(reg)

	res, err := p.Run(context.Background(), rendertest.SingleNIC(), "good", "bad", "worse")
	assert.Nil(t, res)
	var perr *PhaseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, PhaseRender, perr.Phase)
	assert.Equal(t, "bad", perr.Target, "earliest target in request order")
	assert.ErrorIs(t, err, errFirst)

	_, err = p.Run(context.Background(), rendertest.SingleNIC(), "crash")
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, err.Error(), "panicked")
}

func TestRunDeterministic(t *testing.T) {
	p := New(targets.Default())

	a, err := p.Run(context.Background(), rendertest.BondedVLAN(), "debian", "redhat", "netplan")
	require.NoError(t, err)
	b, err := p.Run(context.Background(), rendertest.BondedVLAN(), "debian", "redhat", "netplan")
	require.NoError(t, err)

	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, a.Outputs, b.Outputs)
}

func TestRunSortsArtifactsAndWarns(t *testing.T) {
	reg := render.MustRegistry(render.Entry{Renderer: flatRenderer{target: "flat"}})
	p := New(reg)

	raw := map[string]any{
		"hostname": "h1",
		"interfaces": []any{
			map[string]any{"id": "nic0", "mac": "aa:bb:cc:00:00:01"},
		},
		"addresses": []any{
			map[string]any{"owner_id": "nic0", "cidr": "10.0.0.2/24", "gateway": "10.0.0.1"},
			map[string]any{"owner_id": "nic0", "cidr": "10.0.1.2/24", "gateway": "10.0.1.1"},
		},
	}
	res, err := p.Run(context.Background(), raw, "flat")
	require.NoError(t, err)
	assert.Equal(t, []string{"etc/a", "etc/z"}, res.Outputs[0].Manifest)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "eth0", res.Warnings[0].Node)
}

func TestCheck(t *testing.T) {
	p := New(targets.Default())
	g, err := p.Check(context.Background(), rendertest.BondedVLAN(), "debian")
	require.NoError(t, err)
	assert.Len(t, g.Bonds(), 1)
	assert.Len(t, g.VLANs(), 1)
}

func TestPhaseErrorMessage(t *testing.T) {
	err := &PhaseError{Phase: PhaseRender, Target: "debian", Err: errors.New("x")}
	assert.Equal(t, "render debian: x", err.Error())
	err = &PhaseError{Phase: PhaseParse, Err: errors.New("y")}
	assert.Equal(t, "parse: y", err.Error())
}
