// Package config holds the installer settings and the install record.
//
// Settings are loaded once per run from defaults, an optional YAML
// file and JOBSCRAPER_* environment variables. The install record is
// written at the end of every install and read by the status and
// doctor commands.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// DefaultFile is read when present and no --config flag is given.
var DefaultFile = "/etc/job-scraper/installer.yaml"

// Settings stores everything the installer needs to know about the host.
type Settings struct {
	Service  ServiceSettings  `mapstructure:"service"`
	Paths    PathSettings     `mapstructure:"paths"`
	Files    FileSettings     `mapstructure:"files"`
	Packages PackageSettings  `mapstructure:"packages"`
	Browser  BrowserSettings  `mapstructure:"browser"`
	Schedule ScheduleSettings `mapstructure:"schedule"`
}

// ServiceSettings names the systemd unit and the account that runs it.
type ServiceSettings struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	User        string `mapstructure:"user"`
}

// PathSettings locates the application and the installer's own files.
type PathSettings struct {
	AppDir     string `mapstructure:"app_dir"`
	SourceDir  string `mapstructure:"source_dir"`
	UnitDir    string `mapstructure:"unit_dir"`
	LogFile    string `mapstructure:"log_file"` // relative to app_dir/logs
	InstallLog string `mapstructure:"install_log"`
	StateFile  string `mapstructure:"state_file"`
}

// FileSettings lists the application files copied from the source dir.
type FileSettings struct {
	Script      string `mapstructure:"script"`
	Manifest    string `mapstructure:"manifest"`
	Credentials string `mapstructure:"credentials"`
}

// PackageSettings lists the apt packages installed before anything else.
type PackageSettings struct {
	Base []string `mapstructure:"base"`
}

// BrowserSettings describes the vendor apt repository for the browser.
type BrowserSettings struct {
	Package         string   `mapstructure:"package"`
	Binaries        []string `mapstructure:"binaries"`
	KeyURL          string   `mapstructure:"key_url"`
	RepoURL         string   `mapstructure:"repo_url"`
	Keyring         string   `mapstructure:"keyring"`
	SourceList      string   `mapstructure:"source_list"`
	KeyFingerprints []string `mapstructure:"key_fingerprints"`
}

// ScheduleSettings are the non-secret values written to .env.
type ScheduleSettings struct {
	Time1      string `mapstructure:"time_1"`
	Time2      string `mapstructure:"time_2"`
	RunOnStart bool   `mapstructure:"run_on_start"`
}

// Default returns the settings used when nothing is overridden.
func Default() Settings {
	return Settings{
		Service: ServiceSettings{
			Name:        "job-scraper",
			Description: "Job Search Scraper (Selenium)",
			User:        "jobscraper",
		},
		Paths: PathSettings{
			AppDir:     "/opt/job-scraper",
			SourceDir:  ".",
			UnitDir:    "/etc/systemd/system",
			LogFile:    "job_search.log",
			InstallLog: "/var/log/job-scraper-install.log",
			StateFile:  "/etc/job-scraper/install.json",
		},
		Files: FileSettings{
			Script:      "job_search_selenium.py",
			Manifest:    "requirements_selenium.txt",
			Credentials: "credentials.json",
		},
		Packages: PackageSettings{
			Base: []string{
				"python3", "python3-pip", "python3-venv",
				"wget", "curl", "unzip", "gnupg", "ca-certificates",
			},
		},
		Browser: BrowserSettings{
			Package:    "google-chrome-stable",
			Binaries:   []string{"google-chrome-stable", "google-chrome"},
			KeyURL:     "https://dl.google.com/linux/linux_signing_key.pub",
			RepoURL:    "http://dl.google.com/linux/chrome/deb/",
			Keyring:    "/usr/share/keyrings/google-chrome.gpg",
			SourceList: "/etc/apt/sources.list.d/google-chrome.list",
			// Google Inc. (Linux Packages Signing Authority)
			KeyFingerprints: []string{
				"EB4C1BFD4F042F6DDDCCEC917721F63BD38B4796",
				"4CCA1EAF950CEE4AB83976DCA040830F7FAC5991",
			},
		},
		Schedule: ScheduleSettings{
			Time1:      "08:00",
			Time2:      "20:00",
			RunOnStart: true,
		},
	}
}

// Load builds Settings from defaults, the config file and the environment.
// An empty path falls back to DefaultFile when that file exists.
func Load(path string) (Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("JOBSCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		} else if !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}

	return s, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Settings) {
	v.SetDefault("service.name", d.Service.Name)
	v.SetDefault("service.description", d.Service.Description)
	v.SetDefault("service.user", d.Service.User)
	v.SetDefault("paths.app_dir", d.Paths.AppDir)
	v.SetDefault("paths.source_dir", d.Paths.SourceDir)
	v.SetDefault("paths.unit_dir", d.Paths.UnitDir)
	v.SetDefault("paths.log_file", d.Paths.LogFile)
	v.SetDefault("paths.install_log", d.Paths.InstallLog)
	v.SetDefault("paths.state_file", d.Paths.StateFile)
	v.SetDefault("files.script", d.Files.Script)
	v.SetDefault("files.manifest", d.Files.Manifest)
	v.SetDefault("files.credentials", d.Files.Credentials)
	v.SetDefault("packages.base", d.Packages.Base)
	v.SetDefault("browser.package", d.Browser.Package)
	v.SetDefault("browser.binaries", d.Browser.Binaries)
	v.SetDefault("browser.key_url", d.Browser.KeyURL)
	v.SetDefault("browser.repo_url", d.Browser.RepoURL)
	v.SetDefault("browser.keyring", d.Browser.Keyring)
	v.SetDefault("browser.source_list", d.Browser.SourceList)
	v.SetDefault("browser.key_fingerprints", d.Browser.KeyFingerprints)
	v.SetDefault("schedule.time_1", d.Schedule.Time1)
	v.SetDefault("schedule.time_2", d.Schedule.Time2)
	v.SetDefault("schedule.run_on_start", d.Schedule.RunOnStart)
}

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Validate rejects settings that would produce a broken install.
func (s Settings) Validate() error {
	required := map[string]string{
		"service.name":     s.Service.Name,
		"service.user":     s.Service.User,
		"paths.app_dir":    s.Paths.AppDir,
		"paths.unit_dir":   s.Paths.UnitDir,
		"paths.log_file":   s.Paths.LogFile,
		"files.script":     s.Files.Script,
		"files.manifest":   s.Files.Manifest,
		"browser.package":  s.Browser.Package,
		"browser.key_url":  s.Browser.KeyURL,
		"browser.repo_url": s.Browser.RepoURL,
	}
	for key, val := range required {
		if strings.TrimSpace(val) == "" {
			return fmt.Errorf("%s must not be empty", key)
		}
	}
	if !filepath.IsAbs(s.Paths.AppDir) {
		return fmt.Errorf("paths.app_dir must be absolute, got %q", s.Paths.AppDir)
	}
	if len(s.Browser.Binaries) == 0 {
		return fmt.Errorf("browser.binaries must list at least one binary")
	}
	if !clockPattern.MatchString(s.Schedule.Time1) {
		return fmt.Errorf("schedule.time_1 must be HH:MM, got %q", s.Schedule.Time1)
	}
	if !clockPattern.MatchString(s.Schedule.Time2) {
		return fmt.Errorf("schedule.time_2 must be HH:MM, got %q", s.Schedule.Time2)
	}
	return nil
}

// ── Derived paths ────────────────────────────────────────

// VenvDir is the application's virtual environment.
func (s Settings) VenvDir() string { return filepath.Join(s.Paths.AppDir, "venv") }

// Python is the interpreter inside the virtual environment.
func (s Settings) Python() string { return filepath.Join(s.VenvDir(), "bin", "python") }

// Pip is the pip inside the virtual environment.
func (s Settings) Pip() string { return filepath.Join(s.VenvDir(), "bin", "pip") }

// LogDir holds the service's stdout/stderr log.
func (s Settings) LogDir() string { return filepath.Join(s.Paths.AppDir, "logs") }

// ServiceLog is the file systemd appends the service output to.
func (s Settings) ServiceLog() string { return filepath.Join(s.LogDir(), s.Paths.LogFile) }

// EnvFile is the key=value file read by the service.
func (s Settings) EnvFile() string { return filepath.Join(s.Paths.AppDir, ".env") }

// ScriptPath is the installed application entry point.
func (s Settings) ScriptPath() string { return filepath.Join(s.Paths.AppDir, s.Files.Script) }

// RequirementsPath is the renamed dependency manifest.
func (s Settings) RequirementsPath() string {
	return filepath.Join(s.Paths.AppDir, "requirements.txt")
}

// CredentialsPath is where the service account key is expected.
func (s Settings) CredentialsPath() string {
	return filepath.Join(s.Paths.AppDir, s.Files.Credentials)
}

// UnitName is the systemd unit file name.
func (s Settings) UnitName() string { return s.Service.Name + ".service" }

// UnitPath is the absolute path of the unit file.
func (s Settings) UnitPath() string { return filepath.Join(s.Paths.UnitDir, s.UnitName()) }
