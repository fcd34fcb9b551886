package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// appFile is one file copied from the source directory.
type appFile struct {
	src      string
	dest     string
	mode     os.FileMode
	optional bool
}

// appFiles lists what gets copied. The dependency manifest is renamed
// to requirements.txt so pip can find it under its usual name.
func (i *Installer) appFiles() []appFile {
	src := i.cfg.Paths.SourceDir
	return []appFile{
		{src: filepath.Join(src, i.cfg.Files.Script), dest: i.cfg.ScriptPath(), mode: 0644},
		{src: filepath.Join(src, i.cfg.Files.Manifest), dest: i.cfg.RequirementsPath(), mode: 0644},
		{src: filepath.Join(src, i.cfg.Files.Credentials), dest: i.cfg.CredentialsPath(), mode: 0600, optional: true},
	}
}

// copyAppFiles copies the application into place. A missing optional
// file is skipped; a missing required file fails the step after every
// other file has been copied.
func (i *Installer) copyAppFiles(ctx context.Context) error {
	var errs []error
	for _, f := range i.appFiles() {
		err := copyFile(f.src, i.path(f.dest), f.mode)
		switch {
		case err == nil:
			i.log.Info("file.copied", zap.String("src", f.src), zap.String("dest", f.dest))
		case f.optional && errors.Is(err, fs.ErrNotExist):
			i.note("file.skipped", "%s not found in %s, skipping",
				filepath.Base(f.src), i.cfg.Paths.SourceDir)
		default:
			errs = append(errs, fmt.Errorf("copy %s: %w", f.src, err))
		}
	}
	return errors.Join(errs...)
}

// createVenv creates the application's virtual environment.
func (i *Installer) createVenv(ctx context.Context) error {
	return i.run(ctx, "python3", "-m", "venv", i.cfg.VenvDir())
}

// installRequirements upgrades pip and installs the manifest into the venv.
func (i *Installer) installRequirements(ctx context.Context) error {
	return i.runAll(ctx, [][]string{
		{i.cfg.Pip(), "install", "--upgrade", "pip"},
		{i.cfg.Pip(), "install", "-r", i.cfg.RequirementsPath()},
	})
}

// copyFile copies src to dest, replacing dest.
func copyFile(src, dest string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(dest, mode)
}
