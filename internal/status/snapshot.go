package status

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ripsline/job-scraper-node/internal/config"
	"github.com/ripsline/job-scraper-node/internal/installer"
)

// Snapshot is everything the dashboard shows, collected in one pass.
type Snapshot struct {
	Settings    config.Settings
	Record      *config.Record
	Active      string
	Enabled     string
	Env         map[string]string
	EnvErr      error
	Credentials bool
	Venv        bool
	LogLines    []string
}

// SheetKey returns the configured Google Sheet key, if any.
func (s Snapshot) SheetKey() string {
	return s.Env[installer.EnvSheetsKey]
}

// Collector gathers snapshots. Root prefixes every path read, as for
// the installer.
type Collector struct {
	Settings config.Settings
	Runner   installer.Runner
	Root     string
	LogLines int
}

// Collect builds a Snapshot. Missing pieces are reported in the
// snapshot rather than as errors.
func (c Collector) Collect(ctx context.Context) Snapshot {
	runner := c.Runner
	if runner == nil {
		runner = installer.ExecRunner{}
	}
	n := c.LogLines
	if n <= 0 {
		n = 200
	}

	s := Snapshot{Settings: c.Settings}
	if rec, err := config.LoadRecord(c.path(c.Settings.Paths.StateFile)); err == nil {
		s.Record = rec
	}

	unit := c.Settings.UnitName()
	s.Active = systemctlState(ctx, runner, "is-active", unit)
	s.Enabled = systemctlState(ctx, runner, "is-enabled", unit)

	s.Env, s.EnvErr = ReadEnv(c.path(c.Settings.EnvFile()))
	s.Credentials = exists(c.path(c.Settings.CredentialsPath()))
	s.Venv = exists(c.path(c.Settings.Python()))
	s.LogLines = TailLines(c.path(c.Settings.ServiceLog()), n)
	return s
}

func (c Collector) path(p string) string {
	if c.Root == "" {
		return p
	}
	return filepath.Join(c.Root, p)
}

// systemctlState returns systemctl's one-word answer. is-active and
// is-enabled exit non-zero for inactive units but still print the state.
func systemctlState(ctx context.Context, r installer.Runner, verb, unit string) string {
	out, err := r.Run(ctx, "systemctl", verb, unit)
	state := strings.TrimSpace(string(out))
	if state == "" {
		if err != nil {
			return "unknown"
		}
		return "-"
	}
	return strings.Fields(state)[0]
}

// ReadEnv parses the service's environment file. Keys are returned in
// the upper-case form the service sees.
func ReadEnv(path string) (map[string]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	env := make(map[string]string)
	for _, k := range v.AllKeys() {
		env[strings.ToUpper(k)] = v.GetString(k)
	}
	return env, nil
}

// tailWindow bounds how much of a log file is read from the end.
const tailWindow = 256 * 1024

// TailLines returns up to n trailing lines of path.
func TailLines(path string, n int) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil
	}
	offset := info.Size() - tailWindow
	if offset < 0 {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil
	}

	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if offset > 0 && len(lines) > 1 {
		// first line is probably partial
		lines = lines[1:]
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
