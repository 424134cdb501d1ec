package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	gferrors "github.com/vnykmshr/goshape/pkg/common/errors"
	"github.com/vnykmshr/goshape/pkg/ratelimit/shaping"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRootHelp(t *testing.T) {
	out, _, err := execute(t)
	require.NoError(t, err)
	for _, name := range []string{"simulate", "run", "compare", "algorithms"} {
		assert.Contains(t, out, name)
	}
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "goshape version "+version)
}

func TestAlgorithms(t *testing.T) {
	out, _, err := execute(t, "algorithms")
	require.NoError(t, err)
	assert.Equal(t, strings.Join(shaping.Algorithms(), "\n")+"\n", out)

	out, _, err = execute(t, "algorithms", "--json")
	require.NoError(t, err)
	assert.Equal(t, int64(4), gjson.Get(out, "#").Int())
	assert.Equal(t, shaping.AlgorithmGCRALeakyBucket, gjson.Get(out, "3").String())
}

func TestSimulateDefaults(t *testing.T) {
	out, _, err := execute(t, "simulate")
	require.NoError(t, err)
	assert.Contains(t, out, "Scenario uniform (gcra_virtual_scheduling, sync, virtual time)")
	assert.Contains(t, out, "7 total, 7 admitted")
	assert.NotContains(t, out, "\x1b[")
}

func TestSimulateLeakyBucketJSON(t *testing.T) {
	out, _, err := execute(t, "simulate", "--json",
		"-a", "leaky_bucket", "-c", "4", "-p", "2s", "-n", "7")
	require.NoError(t, err)
	require.True(t, gjson.Valid(out))

	assert.True(t, gjson.Get(out, "virtual").Bool())
	assert.Equal(t, "leaky_bucket", gjson.Get(out, "algorithm").String())

	want := []float64{0, 0, 0, 0, 500, 1000, 1500}
	at := gjson.Get(out, "requests.#.at_ms").Array()
	require.Len(t, at, len(want))
	for i := range want {
		assert.InDelta(t, want[i], at[i].Float(), 0.001, "request %d", i)
	}
	assert.InDelta(t, 4.0, gjson.Get(out, "final.level").Float(), 1e-6)
}

func TestSimulateTimeoutFlag(t *testing.T) {
	out, _, err := execute(t, "simulate", "--json",
		"-a", "gcra_leaky_bucket", "-c", "1", "-p", "1s", "-n", "3", "--timeout", "1500ms")
	require.NoError(t, err)

	assert.Equal(t, int64(2), gjson.Get(out, "summary.admitted").Int())
	assert.Equal(t, int64(1), gjson.Get(out, "summary.outcomes.timeout").Int())
	assert.Equal(t, 1500.0, gjson.Get(out, "requests.2.at_ms").Float())
}

func TestSimulateErrors(t *testing.T) {
	_, _, err := execute(t, "simulate", "-a", "sliding_window")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown algorithm")

	_, _, err = execute(t, "simulate", "-n", "0")
	assert.ErrorIs(t, err, gferrors.ErrInvalidConfiguration)

	_, _, err = execute(t, "simulate", "-c", "0")
	assert.ErrorIs(t, err, gferrors.ErrInvalidConfiguration)

	_, _, err = execute(t, "simulate", "extra")
	assert.Error(t, err)
}

func TestSimulateFile(t *testing.T) {
	path := writeScenario(t, `
name: fourth
algorithm: gcra_virtual_scheduling
capacity: 3
period: 1500ms
mode: cooperative
requests:
  - repeat: 4
`)

	out, _, err := execute(t, "simulate", "-f", path, "--json")
	require.NoError(t, err)
	assert.Equal(t, "fourth", gjson.Get(out, "name").String())
	assert.Equal(t, 500.0, gjson.Get(out, "requests.3.at_ms").Float())
}

func TestRunScenario(t *testing.T) {
	path := writeScenario(t, `
name: live
algorithm: token_bucket
capacity: 5
period: 1s
mode: cooperative
max_concurrent: 2
requests:
  - gap: 2ms
    hold: 5ms
    repeat: 4
`)

	out, _, err := execute(t, "run", "-f", path, "--json")
	require.NoError(t, err)
	require.True(t, gjson.Valid(out))

	assert.False(t, gjson.Get(out, "virtual").Bool())
	assert.Equal(t, "cooperative", gjson.Get(out, "mode").String())
	assert.Equal(t, int64(4), gjson.Get(out, "summary.admitted").Int())
	assert.Equal(t, int64(4), gjson.Get(out, "coordinator.admitted").Int())
}

func TestRunWithDiagnosticsAndMetrics(t *testing.T) {
	path := writeScenario(t, `
name: observed
algorithm: leaky_bucket
capacity: 10
period: 1s
diagnostics: "@every 1h"
requests:
  - repeat: 3
`)

	out, stderr, err := execute(t, "run", "-f", path, "--diagnostics", "--metrics")
	require.NoError(t, err)
	assert.Contains(t, out, "Scenario observed (leaky_bucket, sync, real time)")
	assert.Contains(t, out, "observed     level")
	assert.Contains(t, out, `goshape_shaping_requests_total{algorithm="leaky_bucket",shaper="observed"} 3`)
	assert.Empty(t, stderr)

	out, stderr, err = execute(t, "run", "-f", path, "--diagnostics", "--metrics", "--json")
	require.NoError(t, err)
	assert.True(t, gjson.Valid(out))
	assert.Contains(t, stderr, "goshape_shaping_admitted_total")
}

func TestRunErrors(t *testing.T) {
	_, _, err := execute(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"file" not set`)

	_, _, err = execute(t, "run", "-f", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario file not found")

	path := writeScenario(t, "algorithm: leaky_bucket\ncapacity: 1\nperiod: soon\nrequests: [{}]\n")
	_, _, err = execute(t, "run", "-f", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/period")
}

func TestCompare(t *testing.T) {
	out, _, err := execute(t, "compare", "--sequences", "4", "--steps", "50")
	require.NoError(t, err)
	assert.Contains(t, out, "4 sequences x 50 steps")
	assert.Contains(t, out, "Equivalent")

	out, _, err = execute(t, "compare", "--json", "-c", "2.5", "-p", "700ms", "--max-weight", "4", "--seed", "9")
	require.NoError(t, err)
	assert.True(t, gjson.Get(out, "equivalent").Bool())
	assert.Equal(t, int64(9), gjson.Get(out, "seed").Int())
	assert.Equal(t, 2.5, gjson.Get(out, "capacity").Float())

	_, _, err = execute(t, "compare", "--steps", "0")
	assert.ErrorIs(t, err, gferrors.ErrInvalidConfiguration)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, ExitOK},
		{"invalid configuration", gferrors.NewValidationError("cli", "capacity", 0, "must be positive"), ExitPermanent},
		{"oversized request", gferrors.NewCapacityError("scenario", 5, 4), ExitPermanent},
		{"timeout", gferrors.FromContext("scenario", "Run", context.DeadlineExceeded), ExitRetryable},
		{"canceled", gferrors.FromContext("scenario", "Run", context.Canceled), ExitRetryable},
		{"other", errors.New("boom"), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}

	_, _, err := execute(t, "simulate", "-c", "0")
	assert.Equal(t, ExitPermanent, ExitCode(err))
}
