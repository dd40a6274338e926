package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsIndependent(t *testing.T) {
	a, b := New(), New()
	a.RecordRun("", nil)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Runs.WithLabelValues("success")))
}

func TestRecordRun(t *testing.T) {
	r := New()
	r.RecordRun("", nil)
	r.RecordRun("validate", errors.New("boom"))
	r.RecordRun("validate", errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Runs.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Runs.WithLabelValues("failure")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.PhaseFailures.WithLabelValues("validate")))
}

func TestRecordRender(t *testing.T) {
	r := New()
	r.RecordRender("debian", time.Millisecond, 6, 1024, nil)
	r.RecordRender("debian", time.Millisecond, 0, 0, errors.New("unsupported"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Renders.WithLabelValues("debian", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Renders.WithLabelValues("debian", "failure")))
	assert.Equal(t, 6.0, testutil.ToFloat64(r.Artifacts.WithLabelValues("debian")))
	assert.Equal(t, 1024.0, testutil.ToFloat64(r.ArtifactBytes.WithLabelValues("debian")))
}

func TestSetTopologyAndApply(t *testing.T) {
	r := New()
	r.SetTopology(2, 1, 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(r.Interfaces.WithLabelValues("vlan")))

	at := time.Unix(1700000000, 0)
	r.RecordApply("redhat", 5, 1, at)
	assert.Equal(t, 5.0, testutil.ToFloat64(r.FilesWritten.WithLabelValues("redhat", "write")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.FilesWritten.WithLabelValues("redhat", "append")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(r.LastApplyEpoch))
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.RecordRun("", nil)

	path := filepath.Join(t.TempDir(), "packet_networking.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `packet_networking_runs_total{status="success"} 1`))

	assert.ErrorIs(t, r.WriteTextfile(""), errNoPath)
}
