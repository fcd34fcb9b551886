package status

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ripsline/job-scraper-node/internal/config"
)

type fakeRunner struct {
	outputs map[string]string
	errs    map[string]error
	paths   map[string]string
}

func (r fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	return []byte(r.outputs[line]), r.errs[line]
}

func (r fakeRunner) LookPath(name string) (string, error) {
	if p, ok := r.paths[name]; ok {
		return p, nil
	}
	return "", errors.New("not found")
}

func writeHostFile(t *testing.T, root, path, content string) {
	t.Helper()
	full := filepath.Join(root, path)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

// installedHost lays out a complete install under a temp root.
func installedHost(t *testing.T) (Collector, string) {
	t.Helper()
	root := t.TempDir()
	s := config.Default()

	writeHostFile(t, root, s.EnvFile(),
		"GOOGLE_SHEETS_KEY=1AbC\nSCHEDULE_TIME_1=08:00\nSCHEDULE_TIME_2=20:00\nRUN_ON_START=true\n")
	writeHostFile(t, root, s.CredentialsPath(), "{}")
	writeHostFile(t, root, s.Python(), "")
	writeHostFile(t, root, s.ServiceLog(), "started\nscraped 12 jobs\nsleeping\n")
	require.NoError(t, config.SaveRecord(filepath.Join(root, s.Paths.StateFile), &config.Record{
		Version:     "0.1.0",
		InstalledAt: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC),
		Service:     s.Service.Name,
	}))

	runner := fakeRunner{
		outputs: map[string]string{
			"systemctl is-active job-scraper.service":  "active\n",
			"systemctl is-enabled job-scraper.service": "enabled\n",
		},
		paths: map[string]string{"google-chrome": "/usr/bin/google-chrome"},
	}
	return Collector{Settings: s, Runner: runner, Root: root}, root
}

func TestCollect(t *testing.T) {
	c, _ := installedHost(t)

	snap := c.Collect(context.Background())
	assert.Equal(t, "active", snap.Active)
	assert.Equal(t, "enabled", snap.Enabled)
	require.NoError(t, snap.EnvErr)
	assert.Equal(t, "1AbC", snap.SheetKey())
	assert.Equal(t, "08:00", snap.Env["SCHEDULE_TIME_1"])
	assert.True(t, snap.Credentials)
	assert.True(t, snap.Venv)
	assert.Equal(t, []string{"started", "scraped 12 jobs", "sleeping"}, snap.LogLines)
	require.NotNil(t, snap.Record)
	assert.Equal(t, "0.1.0", snap.Record.Version)
}

func TestCollectEmptyHost(t *testing.T) {
	runner := fakeRunner{
		outputs: map[string]string{"systemctl is-active job-scraper.service": "inactive\n"},
		errs: map[string]error{
			"systemctl is-active job-scraper.service":  errors.New("exit status 3"),
			"systemctl is-enabled job-scraper.service": errors.New("exit status 1"),
		},
	}
	c := Collector{Settings: config.Default(), Runner: runner, Root: t.TempDir()}

	snap := c.Collect(context.Background())
	assert.Equal(t, "inactive", snap.Active)
	assert.Equal(t, "unknown", snap.Enabled)
	assert.Error(t, snap.EnvErr)
	assert.Empty(t, snap.SheetKey())
	assert.False(t, snap.Credentials)
	assert.Nil(t, snap.Record)
	assert.Nil(t, snap.LogLines)
}

func TestTailLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "svc.log")

	var b strings.Builder
	for n := 0; n < 50; n++ {
		fmt.Fprintf(&b, "line %d\n", n)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))

	lines := TailLines(path, 3)
	assert.Equal(t, []string{"line 47", "line 48", "line 49"}, lines)

	assert.Nil(t, TailLines(filepath.Join(dir, "missing.log"), 3))
}

func TestTailLinesLargeFileDropsPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.log")
	line := strings.Repeat("x", 99) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat(line, 5000)), 0644))

	lines := TailLines(path, 10000)
	require.NotEmpty(t, lines)
	for _, l := range lines {
		assert.Len(t, l, 99)
	}
}

func TestReadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GOOGLE_SHEETS_KEY=abc\nRUN_ON_START=false\n"), 0600))

	env, err := ReadEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", env["GOOGLE_SHEETS_KEY"])
	assert.Equal(t, "false", env["RUN_ON_START"])
}

func TestPrint(t *testing.T) {
	c, _ := installedHost(t)

	var buf bytes.Buffer
	Print(&buf, c.Collect(context.Background()))
	out := buf.String()

	assert.Contains(t, out, "[ok] job-scraper.service")
	assert.Contains(t, out, "active: active")
	assert.Contains(t, out, "Runs at: 08:00 and 20:00")
	assert.Contains(t, out, "Google Sheet: https://docs.google.com/spreadsheets/d/1AbC")
	assert.NotContains(t, out, "\x1b[")
}

func TestDoctorHealthy(t *testing.T) {
	c, _ := installedHost(t)

	checks := Doctor(context.Background(), c, func(ctx context.Context, path string) (string, error) {
		assert.Equal(t, "/usr/bin/google-chrome", path)
		return "HeadlessChrome", nil
	})
	assert.True(t, Healthy(checks), "%+v", checks)
	assert.Len(t, checks, 7)
}

func TestDoctorReportsProblems(t *testing.T) {
	c, root := installedHost(t)
	require.NoError(t, os.Remove(filepath.Join(root, c.Settings.CredentialsPath())))

	checks := Doctor(context.Background(), c, func(ctx context.Context, path string) (string, error) {
		return "", errors.New("chrome crashed")
	})
	assert.False(t, Healthy(checks))

	failed := map[string]string{}
	for _, ch := range checks {
		if !ch.OK {
			failed[ch.Name] = ch.Detail
		}
	}
	assert.Contains(t, failed, "credentials")
	assert.Equal(t, "chrome crashed", failed["headless launch"])

	var buf bytes.Buffer
	PrintChecks(&buf, checks)
	assert.Contains(t, buf.String(), "credentials")
}

func TestDoctorNoBrowser(t *testing.T) {
	c, _ := installedHost(t)
	r := c.Runner.(fakeRunner)
	r.paths = nil
	c.Runner = r

	probed := false
	checks := Doctor(context.Background(), c, func(ctx context.Context, path string) (string, error) {
		probed = true
		return "", nil
	})
	assert.False(t, probed)
	assert.False(t, Healthy(checks))
}

func TestModelTabs(t *testing.T) {
	c, _ := installedHost(t)
	m := NewModel(context.Background(), c, "0.1.0")

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = next.(Model)
	assert.Contains(t, m.View(), "job-scraper.service")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2")})
	m = next.(Model)
	assert.Equal(t, tabLogs, m.activeTab)
	assert.Contains(t, m.View(), "scraped 12 jobs")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	assert.Equal(t, tabSheet, m.activeTab)
	assert.Contains(t, m.View(), "https://docs.google.com/spreadsheets/d/1AbC")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
}

func TestRenderQRCode(t *testing.T) {
	qr := renderQRCode("https://docs.google.com/spreadsheets/d/1AbC")
	assert.NotEmpty(t, qr)
	assert.Greater(t, strings.Count(qr, "\n"), 5)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "São…", truncate("São Paulo, vaga remota", 4))
	assert.Equal(t, "vagas", truncate("vagas", 5))
}
