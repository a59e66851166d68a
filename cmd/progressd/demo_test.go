package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunDemoReachesTarget(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := runDemo(context.Background(), &out, demoOptions{workers: 3, steps: 4}, zap.NewNop())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	// One report for SetTarget plus one per increment.
	require.Len(t, lines, 13)
	require.True(t, strings.HasPrefix(lines[0], "[....."))
	require.True(t, strings.HasSuffix(lines[len(lines)-1], "12/12 (100%)"))
}

func TestRunDemoThrottled(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	opts := demoOptions{workers: 2, steps: 10, delay: time.Millisecond, minInterval: 20 * time.Millisecond}
	require.NoError(t, runDemo(context.Background(), &out, opts, zap.NewNop()))
	require.Contains(t, out.String(), "20/20 (100%)")
}

func TestRunDemoRejectsEmptyWork(t *testing.T) {
	t.Parallel()

	err := runDemo(context.Background(), &bytes.Buffer{}, demoOptions{workers: 0, steps: 1}, zap.NewNop())
	require.Error(t, err)
}

func TestDrawProgressBar(t *testing.T) {
	t.Parallel()

	require.Equal(t, "[..........]", drawProgressBar(0, 10))
	require.Equal(t, "[#####.....]", drawProgressBar(50, 10))
	require.Equal(t, "[##########]", drawProgressBar(250, 10))
	require.Equal(t, "[..........]", drawProgressBar(-5, 10))
}

func TestDemoCommandWithConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  development: false\n  level: error\n"), 0o600))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", path, "demo", "--workers", "2", "--steps", "2", "--delay", "0s"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	require.Contains(t, out.String(), "4/4 (100%)")
}
