// Package installer provisions a Debian/Ubuntu host to run the job
// search scraper as a systemd service.
//
// installer.go wires the steps together and applies the error policy.
// Each step lives in the file named after its concern: system.go for
// apt and accounts, browser.go and verify.go for Chrome, app.go for
// the Python application, envfile.go and service.go for the files the
// service reads at start.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ripsline/job-scraper-node/internal/browser"
	"github.com/ripsline/job-scraper-node/internal/config"
)

// ErrNotRoot is returned before any action when the installer is not
// running with effective UID 0.
var ErrNotRoot = errors.New("installer must run as root")

// Options configures an Installer. Zero values select the host defaults.
type Options struct {
	Settings config.Settings
	Version  string

	// SheetKey answers the Google Sheet prompt without asking.
	SheetKey string
	// Strict stops at the first failed step and makes Run return an error.
	Strict bool
	// Interactive shows the bubbletea progress view instead of plain lines.
	Interactive bool

	Runner   Runner
	Prompter Prompter
	Logger   *zap.Logger
	Out      io.Writer

	// Root prefixes every path the installer writes. Tests point it at
	// a temporary directory; it is empty on a real host.
	Root   string
	TmpDir string

	Euid       func() int
	LookupUser func(name string) error
	ProbeFunc  func(ctx context.Context, execPath string) (string, error)
}

// Installer runs one provisioning pass.
type Installer struct {
	cfg         config.Settings
	version     string
	sheetKey    string
	strict      bool
	interactive bool

	runner   Runner
	prompter Prompter
	log      *zap.Logger
	out      io.Writer

	root   string
	tmpDir string

	euid       func() int
	lookupUser func(name string) error
	probe      func(ctx context.Context, execPath string) (string, error)

	report *Report
}

// New returns an Installer with host defaults for unset options.
func New(opts Options) *Installer {
	i := &Installer{
		cfg:         opts.Settings,
		version:     opts.Version,
		sheetKey:    opts.SheetKey,
		strict:      opts.Strict,
		interactive: opts.Interactive,
		runner:      opts.Runner,
		prompter:    opts.Prompter,
		log:         opts.Logger,
		out:         opts.Out,
		root:        opts.Root,
		tmpDir:      opts.TmpDir,
		euid:        opts.Euid,
		lookupUser:  opts.LookupUser,
		probe:       opts.ProbeFunc,
	}
	if i.runner == nil {
		i.runner = ExecRunner{}
	}
	if i.log == nil {
		i.log = zap.NewNop()
	}
	if i.out == nil {
		i.out = os.Stdout
	}
	if i.prompter == nil {
		i.prompter = NewLinePrompter(os.Stdin, i.out)
	}
	if i.tmpDir == "" {
		i.tmpDir = os.TempDir()
	}
	if i.euid == nil {
		i.euid = os.Geteuid
	}
	if i.lookupUser == nil {
		i.lookupUser = func(name string) error {
			_, err := user.Lookup(name)
			return err
		}
	}
	if i.probe == nil {
		i.probe = func(ctx context.Context, execPath string) (string, error) {
			return browser.Probe(ctx, execPath, 45*time.Second)
		}
	}
	return i
}

// ── Steps and results ────────────────────────────────────

type installStep struct {
	name string
	fn   func(ctx context.Context) error
}

// StepResult is the outcome of one step.
type StepResult struct {
	Name     string
	Err      error
	Duration time.Duration
}

// Report summarises a run.
type Report struct {
	Steps              []StepResult
	Warnings           []string
	Cancelled          bool
	CredentialsMissing bool
}

// Failed returns the steps that returned an error.
func (r *Report) Failed() []StepResult {
	var failed []StepResult
	for _, s := range r.Steps {
		if s.Err != nil {
			failed = append(failed, s)
		}
	}
	return failed
}

// StepErrors aggregates failed steps for strict runs.
type StepErrors []StepResult

func (e StepErrors) Error() string {
	names := make([]string, 0, len(e))
	for _, s := range e {
		names = append(names, fmt.Sprintf("%s: %v", s.Name, s.Err))
	}
	return strings.Join(names, "; ")
}

// Unwrap exposes every step error to errors.Is and errors.As.
func (e StepErrors) Unwrap() []error {
	errs := make([]error, 0, len(e))
	for _, s := range e {
		errs = append(errs, s.Err)
	}
	return errs
}

// ── Main install flow ────────────────────────────────────

// Run performs the install. The root check happens before anything
// else. Failed steps are recorded and the run continues unless the
// installer is strict.
func (i *Installer) Run(ctx context.Context) (*Report, error) {
	if i.euid() != 0 {
		fmt.Fprintln(i.out, warnStyle.Render("WARNING: this installer must be run as root."))
		fmt.Fprintln(i.out, "Run with: sudo job-scraper-install")
		return nil, ErrNotRoot
	}

	i.report = &Report{}
	i.log.Info("install.start",
		zap.String("version", i.version),
		zap.String("app_dir", i.cfg.Paths.AppDir),
		zap.String("service", i.cfg.Service.Name),
		zap.Bool("strict", i.strict))
	i.checkOS()

	key, cancelled, err := i.resolveSheetKey(ctx)
	if err != nil {
		return i.report, err
	}
	if cancelled {
		i.report.Cancelled = true
		fmt.Fprintln(i.out, "\n  Installation cancelled.")
		i.log.Info("install.cancelled")
		return i.report, nil
	}

	steps := i.buildSteps(key)
	if i.interactive {
		err = i.runProgressTUI(ctx, steps)
	} else {
		err = i.runPlain(ctx, steps)
	}
	if err != nil {
		return i.report, err
	}

	if err := i.saveRecord(); err != nil {
		i.log.Warn("record.save_failed", zap.Error(err))
		i.warn(fmt.Sprintf("could not save install record: %v", err))
	}

	i.finish()

	failed := i.report.Failed()
	i.log.Info("install.finished", zap.Int("failed_steps", len(failed)))
	if i.strict && len(failed) > 0 {
		return i.report, StepErrors(failed)
	}
	return i.report, nil
}

// buildSteps lists every provisioning step in execution order.
// A nil key means the environment file already exists.
func (i *Installer) buildSteps(key *string) []installStep {
	return []installStep{
		{name: "Updating package index", fn: i.updatePackageIndex},
		{name: "Installing system packages", fn: i.installBasePackages},
		{name: "Installing " + i.cfg.Browser.Package, fn: i.installBrowser},
		{name: "Creating system user", fn: i.createSystemUser},
		{name: "Creating application directory", fn: i.createAppDir},
		{name: "Copying application files", fn: i.copyAppFiles},
		{name: "Creating virtual environment", fn: i.createVenv},
		{name: "Installing Python dependencies", fn: i.installRequirements},
		{name: "Creating log directory", fn: i.createLogDir},
		{name: "Writing environment file", fn: func(ctx context.Context) error { return i.writeEnvFile(key) }},
		{name: "Setting permissions", fn: i.setPermissions},
		{name: "Writing systemd unit", fn: i.writeUnit},
		{name: "Reloading systemd", fn: i.reloadSystemd},
		{name: "Enabling " + i.cfg.Service.Name, fn: i.enableService},
		{name: "Checking headless browser", fn: i.verifyBrowser},
	}
}

// execStep runs one step and records its result.
func (i *Installer) execStep(ctx context.Context, s installStep) StepResult {
	i.log.Info("step.start", zap.String("step", s.name))
	start := time.Now()
	err := s.fn(ctx)
	res := StepResult{Name: s.name, Err: err, Duration: time.Since(start)}
	if err != nil {
		i.log.Error("step.failed", zap.String("step", s.name),
			zap.Duration("duration", res.Duration), zap.Error(err))
	} else {
		i.log.Info("step.done", zap.String("step", s.name),
			zap.Duration("duration", res.Duration))
	}
	i.report.Steps = append(i.report.Steps, res)
	return res
}

// runPlain prints one line per step. Used when stdout is not a terminal.
func (i *Installer) runPlain(ctx context.Context, steps []installStep) error {
	for n, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(i.out, "%s\n", runStyle.Render(fmt.Sprintf("[%d/%d] %s...", n+1, len(steps), s.name)))
		res := i.execStep(ctx, s)
		if res.Err != nil {
			fmt.Fprintf(i.out, "%s\n", failStyle.Render(fmt.Sprintf("  ✗ %v", res.Err)))
			if i.strict {
				return nil
			}
			continue
		}
		fmt.Fprintf(i.out, "%s\n", doneStyle.Render("  ✓ done"))
	}
	return nil
}

// finish prints the summary and the operator's next steps.
func (i *Installer) finish() {
	if _, err := os.Stat(i.path(i.cfg.CredentialsPath())); err != nil {
		i.report.CredentialsMissing = true
	}

	fmt.Fprintln(i.out)
	failed := i.report.Failed()
	if len(failed) == 0 {
		fmt.Fprintln(i.out, goodStyle.Render("✓ Installation complete"))
	} else {
		fmt.Fprintln(i.out, failStyle.Render(
			fmt.Sprintf("Installation finished with %d failed step(s):", len(failed))))
		for _, s := range failed {
			fmt.Fprintf(i.out, "  ✗ %s: %v\n", s.Name, s.Err)
		}
	}

	for _, w := range i.report.Warnings {
		fmt.Fprintln(i.out, warnStyle.Render("WARNING: "+w))
	}

	fmt.Fprintln(i.out)
	fmt.Fprintln(i.out, "Next steps:")
	fmt.Fprintf(i.out, "  sudo systemctl start %s\n", i.cfg.Service.Name)
	fmt.Fprintf(i.out, "  sudo systemctl status %s\n", i.cfg.Service.Name)
	fmt.Fprintf(i.out, "  tail -f %s\n", i.cfg.ServiceLog())
	fmt.Fprintf(i.out, "  Edit %s to change the schedule\n", i.cfg.EnvFile())

	if i.report.CredentialsMissing {
		fmt.Fprintln(i.out)
		fmt.Fprintln(i.out, warnStyle.Render(fmt.Sprintf(
			"WARNING: %s not found. Copy your Google service account key to %s before starting the service.",
			i.cfg.Files.Credentials, i.cfg.CredentialsPath())))
	}
}

func (i *Installer) saveRecord() error {
	rec := &config.Record{
		Version:     i.version,
		InstalledAt: time.Now().UTC(),
		Service:     i.cfg.Service.Name,
		User:        i.cfg.Service.User,
		AppDir:      i.cfg.Paths.AppDir,
		UnitPath:    i.cfg.UnitPath(),
		ServiceLog:  i.cfg.ServiceLog(),
	}
	for _, s := range i.report.Failed() {
		rec.FailedSteps = append(rec.FailedSteps, s.Name)
	}
	return config.SaveRecord(i.path(i.cfg.Paths.StateFile), rec)
}

// ── Helpers ──────────────────────────────────────────────

// path maps an absolute host path under the installer's root.
func (i *Installer) path(p string) string {
	if i.root == "" {
		return p
	}
	return filepath.Join(i.root, p)
}

// run executes a command, logging argv and failure output.
func (i *Installer) run(ctx context.Context, args ...string) error {
	i.log.Debug("exec", zap.Strings("argv", args))
	output, err := i.runner.Run(ctx, args[0], args[1:]...)
	if err != nil {
		i.log.Warn("exec.failed", zap.Strings("argv", args),
			zap.Error(err), zap.ByteString("output", output))
		return fmt.Errorf("%v: %s: %s", args, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// runAll executes commands in order and stops at the first failure.
func (i *Installer) runAll(ctx context.Context, commands [][]string) error {
	for _, args := range commands {
		if err := i.run(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

// note prints a progress detail. The progress view owns the terminal,
// so interactive runs only log it.
func (i *Installer) note(event, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	i.log.Info(event, zap.String("message", msg))
	if !i.interactive {
		fmt.Fprintf(i.out, "    %s\n", msg)
	}
}

func (i *Installer) warn(msg string) {
	i.log.Warn("install.warning", zap.String("message", msg))
	i.report.Warnings = append(i.report.Warnings, msg)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
