// Package cli wires the cobra commands: the bare command installs,
// status shows the dashboard and doctor checks the host.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/ripsline/job-scraper-node/internal/config"
	"github.com/ripsline/job-scraper-node/internal/installer"
	"github.com/ripsline/job-scraper-node/internal/logging"
)

// Execute runs the command line and exits 1 on any error.
func Execute(version string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd := NewRootCmd(version)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		// the installer has already told the operator how to re-run
		if !errors.Is(err, installer.ErrNotRoot) {
			fmt.Fprintf(os.Stderr, "\n  Error: %v\n", err)
		}
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
	sourceDir  string
	sheetKey   string
	strict     bool
	plain      bool
	debug      bool
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	var f rootFlags

	cmd := &cobra.Command{
		Use:           "job-scraper-install",
		Short:         "Provision this host to run the job search scraper as a systemd service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInstall(cmd.Context(), cmd.OutOrStdout(), f, version)
		},
	}

	cmd.PersistentFlags().StringVar(&f.configPath, "config", "", "installer settings file (default "+config.DefaultFile+" when present)")
	cmd.PersistentFlags().BoolVar(&f.plain, "plain", false, "plain line output even on a terminal")
	cmd.PersistentFlags().BoolVar(&f.debug, "debug", false, "log every step and command to stderr")

	cmd.Flags().StringVar(&f.sourceDir, "source-dir", "", "directory holding the scraper script and requirements (default: current directory)")
	cmd.Flags().StringVar(&f.sheetKey, "sheet-key", "", "Google Sheet key or URL; skips the prompt")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "stop at the first failed step and exit non-zero")

	cmd.AddCommand(statusCmd(&f, version), doctorCmd(&f))
	return cmd
}

// loadSettings reads settings and applies flag overrides.
func loadSettings(f rootFlags) (config.Settings, error) {
	s, err := config.Load(f.configPath)
	if err != nil {
		return config.Settings{}, err
	}
	if f.sourceDir != "" {
		s.Paths.SourceDir = f.sourceDir
	}
	if abs, err := filepath.Abs(s.Paths.SourceDir); err == nil {
		s.Paths.SourceDir = abs
	}
	return s, nil
}

func runInstall(ctx context.Context, out io.Writer, f rootFlags, version string) error {
	s, err := loadSettings(f)
	if err != nil {
		return err
	}

	interactive := !f.plain && isTerminal(os.Stdout) && isTerminal(os.Stdin)

	logOpts := logging.Options{Debug: f.debug && !interactive}
	// a non-root run must leave the host untouched, log file included
	if os.Geteuid() == 0 {
		logOpts.File = s.Paths.InstallLog
	}
	logger, closeLog, err := logging.New(logOpts)
	if err != nil {
		return err
	}
	defer closeLog() //nolint:errcheck

	opts := installer.Options{
		Settings:    s,
		Version:     version,
		SheetKey:    f.sheetKey,
		Strict:      f.strict,
		Interactive: interactive,
		Logger:      logger,
		Out:         out,
	}
	if interactive {
		opts.Prompter = installer.TUIPrompter{Summary: [][2]string{
			{"Service", s.UnitName()},
			{"Run as", s.Service.User},
			{"Install to", s.Paths.AppDir},
			{"Source", s.Paths.SourceDir},
			{"Schedule", s.Schedule.Time1 + " and " + s.Schedule.Time2},
		}}
	}

	if os.Geteuid() == 0 {
		printBanner(out, version)
	}

	report, err := installer.New(opts).Run(ctx)
	if err != nil {
		return err
	}
	if report != nil && !report.Cancelled {
		logger.Info("install.summary",
			zap.Int("steps", len(report.Steps)),
			zap.Int("warnings", len(report.Warnings)),
			zap.Bool("credentials_missing", report.CredentialsMissing))
	}
	return nil
}

func printBanner(w io.Writer, version string) {
	fmt.Fprintf(w, "\n  ╔══════════════════════════════════════════╗\n")
	fmt.Fprintf(w, "  ║  Job Scraper Installer v%-16s ║\n", version)
	fmt.Fprintf(w, "  ╚══════════════════════════════════════════╝\n\n")
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
