package status

import (
	"context"
	"fmt"
	"io"

	"github.com/ripsline/job-scraper-node/internal/browser"
	"github.com/ripsline/job-scraper-node/internal/installer"
)

// Check is one health check result.
type Check struct {
	Name   string
	OK     bool
	Detail string
}

// ProbeFunc launches a browser binary headless.
type ProbeFunc func(ctx context.Context, execPath string) (string, error)

// Doctor runs the checks the scraper needs to pass before it can do
// useful work: credentials and sheet key present, interpreter and
// browser usable, unit enabled.
func Doctor(ctx context.Context, c Collector, probe ProbeFunc) []Check {
	s := c.Collect(ctx)
	runner := c.Runner
	if runner == nil {
		runner = installer.ExecRunner{}
	}

	checks := []Check{
		{Name: "credentials", OK: s.Credentials, Detail: s.Settings.CredentialsPath()},
		{Name: "environment file", OK: s.EnvErr == nil, Detail: s.Settings.EnvFile()},
		{Name: "sheet key", OK: s.SheetKey() != "", Detail: installer.EnvSheetsKey},
		{Name: "virtual environment", OK: s.Venv, Detail: s.Settings.Python()},
		{Name: "service enabled", OK: s.Enabled == "enabled", Detail: s.Settings.UnitName() + " is " + s.Enabled},
	}

	path, err := browser.Find(runner.LookPath, s.Settings.Browser.Binaries)
	if err != nil {
		checks = append(checks,
			Check{Name: "browser", Detail: err.Error()},
			Check{Name: "headless launch", Detail: "skipped"})
		return checks
	}
	checks = append(checks, Check{Name: "browser", OK: true, Detail: path})

	ua, err := probe(ctx, path)
	if err != nil {
		checks = append(checks, Check{Name: "headless launch", Detail: err.Error()})
	} else {
		checks = append(checks, Check{Name: "headless launch", OK: true, Detail: ua})
	}
	return checks
}

// Healthy returns true if every check passed.
func Healthy(checks []Check) bool {
	for _, c := range checks {
		if !c.OK {
			return false
		}
	}
	return true
}

// PrintChecks writes one line per check.
func PrintChecks(w io.Writer, checks []Check) {
	for _, c := range checks {
		mark := wGreenDotStyle.Render("✓")
		if !c.OK {
			mark = wRedDotStyle.Render("✗")
		}
		fmt.Fprintf(w, "  %s %-20s %s\n", mark, c.Name, wDimStyle.Render(c.Detail))
	}
}
