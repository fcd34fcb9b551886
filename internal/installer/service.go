package installer

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/ripsline/job-scraper-node/internal/config"
)

const unitTemplate = `[Unit]
Description={{.Description}}
After=network.target

[Service]
Type=simple
User={{.User}}
Group={{.User}}
WorkingDirectory={{.WorkingDirectory}}
EnvironmentFile={{.EnvironmentFile}}
ExecStart={{.Python}} {{.Script}}
Restart=always
RestartSec=30
StandardOutput=append:{{.Log}}
StandardError=append:{{.Log}}

[Install]
WantedBy=multi-user.target
`

var unitTmpl = template.Must(template.New("unit").Parse(unitTemplate))

// RenderUnit returns the systemd unit that runs the scraper from its
// virtual environment and appends its output to the service log.
func RenderUnit(s config.Settings) (string, error) {
	data := struct {
		Description      string
		User             string
		WorkingDirectory string
		EnvironmentFile  string
		Python           string
		Script           string
		Log              string
	}{
		Description:      s.Service.Description,
		User:             s.Service.User,
		WorkingDirectory: s.Paths.AppDir,
		EnvironmentFile:  s.EnvFile(),
		Python:           s.Python(),
		Script:           s.ScriptPath(),
		Log:              s.ServiceLog(),
	}

	var buf bytes.Buffer
	if err := unitTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render unit: %w", err)
	}
	return buf.String(), nil
}

// writeUnit creates the systemd service file.
func (i *Installer) writeUnit(ctx context.Context) error {
	content, err := RenderUnit(i.cfg)
	if err != nil {
		return err
	}
	return writeFile(i.path(i.cfg.UnitPath()), []byte(content), 0644)
}

// reloadSystemd makes systemd pick up the new unit file.
func (i *Installer) reloadSystemd(ctx context.Context) error {
	return i.run(ctx, "systemctl", "daemon-reload")
}

// enableService starts the service at boot. It is not started now so
// the operator can put credentials.json in place first.
func (i *Installer) enableService(ctx context.Context) error {
	return i.run(ctx, "systemctl", "enable", i.cfg.UnitName())
}
