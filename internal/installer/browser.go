package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ripsline/job-scraper-node/internal/browser"
)

// installBrowser adds the vendor apt repository and installs Chrome.
// Nothing happens when a Chrome binary is already on PATH.
func (i *Installer) installBrowser(ctx context.Context) error {
	if path, err := browser.Find(i.runner.LookPath, i.cfg.Browser.Binaries); err == nil {
		i.note("browser.exists", "%s already installed at %s, skipping", i.cfg.Browser.Package, path)
		return nil
	}

	// never a predictable name in a shared temp dir
	dir, err := os.MkdirTemp(i.tmpDir, "job-scraper-key-*")
	if err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}
	defer os.RemoveAll(dir)

	keyFile := filepath.Join(dir, "signing-key.pub")
	if err := i.download(ctx, i.cfg.Browser.KeyURL, keyFile); err != nil {
		return err
	}

	armored, err := os.ReadFile(keyFile)
	if err != nil {
		return fmt.Errorf("read signing key: %w", err)
	}
	keyring, err := verifySigningKey(armored, i.cfg.Browser.KeyFingerprints)
	if err != nil {
		return err
	}

	if err := writeFile(i.path(i.cfg.Browser.Keyring), keyring, 0644); err != nil {
		return fmt.Errorf("write keyring: %w", err)
	}
	if err := writeFile(i.path(i.cfg.Browser.SourceList), []byte(i.aptSourceLine()), 0644); err != nil {
		return fmt.Errorf("write apt source: %w", err)
	}

	return i.runAll(ctx, [][]string{
		{"apt-get", "update", "-qq"},
		{"apt-get", "install", "-y", "-qq", i.cfg.Browser.Package},
	})
}

// aptSourceLine is the sources.list entry for the vendor repository.
func (i *Installer) aptSourceLine() string {
	return fmt.Sprintf("deb [arch=amd64 signed-by=%s] %s stable main\n",
		i.cfg.Browser.Keyring, i.cfg.Browser.RepoURL)
}

// verifyBrowser starts the installed browser headless. A failure here
// is reported as a warning: the service may still work once the
// operator fixes the host, and nothing later depends on it.
func (i *Installer) verifyBrowser(ctx context.Context) error {
	path, err := browser.Find(i.runner.LookPath, i.cfg.Browser.Binaries)
	if err != nil {
		i.warn(fmt.Sprintf("%s is not on PATH; the scraper cannot start a browser", i.cfg.Browser.Package))
		return nil
	}

	ua, err := i.probe(ctx, path)
	if err != nil {
		i.warn(fmt.Sprintf("headless browser check failed: %v", err))
		return nil
	}
	i.log.Info("browser.probe", zap.String("path", path), zap.String("user_agent", ua))
	return nil
}

// download fetches a URL to a local path using wget or curl.
func (i *Installer) download(ctx context.Context, url, dest string) error {
	if _, err := i.runner.LookPath("wget"); err == nil {
		return i.run(ctx, "wget", "-q", "-O", dest, url)
	}
	return i.run(ctx, "curl", "-fsSL", "-o", dest, url)
}

// writeFile creates parent directories and writes data.
func writeFile(path string, data []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, mode)
}
