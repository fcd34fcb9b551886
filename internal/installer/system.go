package installer

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// checkOS warns unless /etc/os-release names Debian or a derivative.
// apt, adduser and the vendor repository are all Debian-specific.
func (i *Installer) checkOS() {
	data, err := os.ReadFile(i.path("/etc/os-release"))
	if err != nil {
		i.warn("cannot read /etc/os-release; this installer supports Debian and Ubuntu only")
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		key, val, ok := strings.Cut(line, "=")
		if !ok || (key != "ID" && key != "ID_LIKE") {
			continue
		}
		for _, id := range strings.Fields(strings.Trim(val, `"`)) {
			if id == "debian" || id == "ubuntu" {
				return
			}
		}
	}
	i.warn("unsupported OS; this installer supports Debian and Ubuntu only")
}

// updatePackageIndex refreshes apt's package lists.
func (i *Installer) updatePackageIndex(ctx context.Context) error {
	return i.run(ctx, "apt-get", "update", "-qq")
}

// installBasePackages installs Python, venv support and download tools.
func (i *Installer) installBasePackages(ctx context.Context) error {
	args := append([]string{"apt-get", "install", "-y", "-qq"}, i.cfg.Packages.Base...)
	return i.run(ctx, args...)
}

// createSystemUser creates the non-login account that runs the
// service. Its home is the application directory.
func (i *Installer) createSystemUser(ctx context.Context) error {
	username := i.cfg.Service.User
	if err := i.lookupUser(username); err == nil {
		i.note("user.exists", "User '%s' already exists, skipping", username)
		return nil
	}

	return i.run(ctx, "adduser",
		"--system", "--group",
		"--home", i.cfg.Paths.AppDir,
		"--no-create-home",
		"--shell", "/usr/sbin/nologin",
		username)
}

// createAppDir creates the application directory.
func (i *Installer) createAppDir(ctx context.Context) error {
	dir := i.path(i.cfg.Paths.AppDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", i.cfg.Paths.AppDir, err)
	}
	return nil
}

// createLogDir creates the directory systemd appends service output to.
func (i *Installer) createLogDir(ctx context.Context) error {
	dir := i.path(i.cfg.LogDir())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", i.cfg.LogDir(), err)
	}
	return nil
}

// setPermissions hands the application tree to the service account.
// The secrets inside keep their own tighter modes.
func (i *Installer) setPermissions(ctx context.Context) error {
	owner := i.cfg.Service.User + ":" + i.cfg.Service.User
	if err := i.run(ctx, "chown", "-R", owner, i.cfg.Paths.AppDir); err != nil {
		return err
	}
	if err := os.Chmod(i.path(i.cfg.Paths.AppDir), 0755); err != nil {
		return fmt.Errorf("chmod %s: %w", i.cfg.Paths.AppDir, err)
	}
	return nil
}
