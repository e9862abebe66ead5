package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"cavernlsd/config"
	"cavernlsd/services/monitor"
)

func writeProfile(t *testing.T, backend config.StoreBackend) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.StoreBackend = backend
	path := filepath.Join(dir, "lsdwrap.toml")
	require.NoError(t, config.Save(path, cfg))
	return path
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute(), errOut.String())
	return out.String()
}

// dayFields returns the columns printed for day.
func dayFields(t *testing.T, out, day string) []string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == day {
			return fields
		}
	}
	t.Fatalf("day %s missing from output:\n%s", day, out)
	return nil
}

func TestSimulateCapped(t *testing.T) {
	profile := writeProfile(t, config.StoreMemory)
	out := run(t, "--config", profile, "simulate", "--days", "2", "--daily-growth", "3")
	require.Equal(t, "272", dayFields(t, out, "1")[2])
	require.Contains(t, out, "total extracted:")
}

func TestSimulateUncappedOnBolt(t *testing.T) {
	profile := writeProfile(t, config.StoreBolt)
	out := run(t, "--config", profile, "simulate", "--days", "1", "--daily-growth", "3", "--ratio", "none", "--adapter", "lp")
	require.Equal(t, "749999", dayFields(t, out, "1")[2])
}

func TestSimulateRejectsUnknownAdapter(t *testing.T) {
	profile := writeProfile(t, config.StoreMemory)
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", profile, "simulate", "--adapter", "vault"})
	require.ErrorContains(t, cmd.Execute(), "unsupported adapter")
}

func TestVersion(t *testing.T) {
	profile := writeProfile(t, config.StoreMemory)
	require.Equal(t, "dev\n", run(t, "--config", profile, "version"))
}

func TestSelectWrappers(t *testing.T) {
	cfg := config.Default()
	_, err := selectWrappers(cfg, nil)
	require.Error(t, err)
	cfg.Wrappers = []config.Wrapper{{Name: "a"}, {Name: "b"}}
	got, err := selectWrappers(cfg, []string{"b"})
	require.NoError(t, err)
	require.Equal(t, "b", got[0].Name)
	_, err = selectWrappers(cfg, []string{"c"})
	require.Error(t, err)
}

func TestPrintViews(t *testing.T) {
	var buf bytes.Buffer
	printViews(&buf, []monitor.View{{
		Wrapper:            "ampluna",
		Contract:           "terra1wrapper",
		ExchangeRate:       "1.100000",
		MaxDecompoundRatio: "0.100000",
		UsedYearlyRatio:    "0.099553",
		Slashed:            true,
		Blocked:            "wrapper engine: cannot decompound twice in the same block",
	}})
	out := buf.String()
	require.Contains(t, out, "ampluna (terra1wrapper)")
	require.Contains(t, out, "yearly cap:         0.100000 (used 0.099553)")
	require.Contains(t, out, "SLASHED")
	require.Contains(t, out, "blocked:")
	require.True(t, wantJSON("json"))
	require.False(t, wantJSON("text"))
}

func TestExportWithoutSnapshots(t *testing.T) {
	profile := writeProfile(t, config.StoreMemory)
	dsn := filepath.Join(t.TempDir(), "monitord.sqlite")
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", profile, "export", "ampluna", "--database", dsn})
	require.ErrorContains(t, cmd.Execute(), "no snapshots recorded")
}
