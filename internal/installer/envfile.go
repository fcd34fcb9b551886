package installer

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Keys written to the service's environment file, in file order.
const (
	EnvSheetsKey     = "GOOGLE_SHEETS_KEY"
	EnvScheduleTime1 = "SCHEDULE_TIME_1"
	EnvScheduleTime2 = "SCHEDULE_TIME_2"
	EnvRunOnStart    = "RUN_ON_START"
)

// EnvValues are the settings the scraping service reads at start.
type EnvValues struct {
	SheetsKey     string
	ScheduleTime1 string
	ScheduleTime2 string
	RunOnStart    bool
}

// RenderEnv returns the .env file content.
func RenderEnv(v EnvValues) string {
	return fmt.Sprintf("%s=%s\n%s=%s\n%s=%s\n%s=%t\n",
		EnvSheetsKey, v.SheetsKey,
		EnvScheduleTime1, v.ScheduleTime1,
		EnvScheduleTime2, v.ScheduleTime2,
		EnvRunOnStart, v.RunOnStart)
}

// resolveSheetKey gathers the Google Sheet key before any step runs,
// so the rest of the install needs no operator. It returns a nil key
// when the environment file already exists, and cancelled when the
// operator aborts the prompt.
func (i *Installer) resolveSheetKey(ctx context.Context) (*string, bool, error) {
	if fileExists(i.path(i.cfg.EnvFile())) {
		fmt.Fprintf(i.out, "  %s already exists, keeping it\n", i.cfg.EnvFile())
		return nil, false, nil
	}

	if i.sheetKey != "" {
		key := NormalizeSheetKey(i.sheetKey)
		return &key, false, nil
	}

	key, ok, err := i.prompter.SheetKey(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("read Google Sheet key: %w", err)
	}
	if !ok {
		return nil, true, nil
	}
	key = NormalizeSheetKey(key)
	return &key, false, nil
}

// writeEnvFile writes the environment file unless it already exists.
// The file holds a credential reference, so it is private to the owner.
func (i *Installer) writeEnvFile(key *string) error {
	path := i.path(i.cfg.EnvFile())
	if key == nil || fileExists(path) {
		i.note("env.exists", "%s already exists, skipping", i.cfg.EnvFile())
		return nil
	}

	if *key == "" {
		i.warn(fmt.Sprintf("%s is empty; set it in %s before starting the service",
			EnvSheetsKey, i.cfg.EnvFile()))
	}

	content := RenderEnv(EnvValues{
		SheetsKey:     *key,
		ScheduleTime1: i.cfg.Schedule.Time1,
		ScheduleTime2: i.cfg.Schedule.Time2,
		RunOnStart:    i.cfg.Schedule.RunOnStart,
	})
	if err := writeFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("write %s: %w", i.cfg.EnvFile(), err)
	}
	return nil
}

// NormalizeSheetKey trims whitespace and, when given a full Google
// Sheets URL, returns only the document key.
func NormalizeSheetKey(input string) string {
	input = strings.TrimSpace(input)
	raw := input
	if strings.HasPrefix(raw, "docs.google.com/") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return input
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for n := 0; n+1 < len(parts); n++ {
		if parts[n] == "d" {
			return parts[n+1]
		}
	}
	return input
}

// SheetURL is the browser URL of a sheet key.
func SheetURL(key string) string {
	return "https://docs.google.com/spreadsheets/d/" + key
}
