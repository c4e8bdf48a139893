package main

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

const testConfig = `
log_level: error
features:
  features: [a, b]
  labels: [y]
  lags: [0, 1]
split:
  test_size: 0.25
  seed: 3
model:
  kind: neural
  epochs: 10
`

func writeData(t *testing.T, dir string, n int) string {
	t.Helper()
	src := rand.NewPCG(9, 9)
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var b strings.Builder
	b.WriteString("Date,a,b,y\n")
	for i := 0; i < n; i++ {
		x1, x2 := normal.Rand(), normal.Rand()
		fmt.Fprintf(&b, "%s,%.6f,%.6f,%t\n", start.Add(time.Duration(i)*time.Hour).Format(time.RFC3339), x1, x2, x1+x2 > 0)
	}
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	data := writeData(t, dir, 120)
	cfgPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(testConfig), 0o644))
	modelPath := filepath.Join(dir, "model.gob")

	out, err := run(t, "fit", "--config", cfgPath, "--data", data, "--out", modelPath, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "== training ==")
	assert.Contains(t, out, "== test ==")
	assert.Contains(t, out, "model saved to")
	assert.FileExists(t, modelPath)

	t.Run("backtest", func(t *testing.T) {
		csvPath := filepath.Join(dir, "backtest.csv")
		out, err := run(t, "backtest", "--model", modelPath, "--data", data, "--csv", csvPath, "--log-level", "error")
		require.NoError(t, err)
		assert.Contains(t, out, "== backtest ==")
		assert.Contains(t, out, "rows=119")
		assert.FileExists(t, csvPath)
	})

	t.Run("predict", func(t *testing.T) {
		out, err := run(t, "predict", "--model", modelPath, "--data", data, "--tail", "4", "--log-level", "error")
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		assert.Greater(t, len(lines), 4)
	})

	t.Run("classify", func(t *testing.T) {
		out, err := run(t, "predict", "--model", modelPath, "--data", data, "--tail", "2", "--classify", "--log-level", "error")
		require.NoError(t, err)
		assert.Contains(t, out, "value_proba")
	})
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, "fit", "--config", filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	cfgPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(testConfig), 0o644))
	_, err = run(t, "fit", "--config", cfgPath, "--log-level", "error")
	assert.Error(t, err)

	_, err = run(t, "predict", "--model", filepath.Join(dir, "missing.gob"), "--log-level", "error")
	assert.Error(t, err)
}
