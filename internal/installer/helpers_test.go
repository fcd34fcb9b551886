package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
	"golang.org/x/crypto/openpgp/packet"

	"github.com/ripsline/job-scraper-node/internal/config"
)

// ── Signing key fixture ──────────────────────────────────

var (
	keyOnce        sync.Once
	keyArmored     []byte
	keyFingerprint string
	keyErr         error
)

// testSigningKey returns an armored public key and its fingerprint.
// Generated once per test binary.
func testSigningKey(t *testing.T) ([]byte, string) {
	t.Helper()
	keyOnce.Do(func() {
		e, err := openpgp.NewEntity("Test Packages", "", "packages@example.com",
			&packet.Config{RSABits: 1024})
		if err != nil {
			keyErr = err
			return
		}
		var buf bytes.Buffer
		w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
		if err != nil {
			keyErr = err
			return
		}
		if err := e.Serialize(w); err != nil {
			keyErr = err
			return
		}
		if err := w.Close(); err != nil {
			keyErr = err
			return
		}
		keyArmored = buf.Bytes()
		keyFingerprint = fmt.Sprintf("%X", e.PrimaryKey.Fingerprint[:])
	})
	require.NoError(t, keyErr)
	return keyArmored, keyFingerprint
}

// ── Fake runner ──────────────────────────────────────────

type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	paths map[string]string
	// fail maps a command line prefix to the error it returns.
	fail    map[string]error
	key     []byte
	browser string
	users   map[string]bool
}

func newFakeRunner(key []byte, users map[string]bool) *fakeRunner {
	return &fakeRunner{
		paths:   map[string]string{"wget": "/usr/bin/wget"},
		fail:    map[string]error{},
		key:     key,
		browser: "google-chrome-stable",
		users:   users,
	}
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	argv := append([]string{name}, args...)
	r.calls = append(r.calls, argv)
	line := strings.Join(argv, " ")
	for prefix, err := range r.fail {
		if strings.HasPrefix(line, prefix) {
			return []byte("simulated failure output"), err
		}
	}

	switch name {
	case "wget", "curl":
		// wget -q -O dest url / curl -fsSL -o dest url
		if err := os.WriteFile(args[2], r.key, 0644); err != nil {
			return nil, err
		}
	case "apt-get":
		if len(args) > 0 && args[0] == "install" && args[len(args)-1] == r.browser {
			r.paths[r.browser] = "/usr/bin/" + r.browser
		}
	case "adduser":
		r.users[args[len(args)-1]] = true
	}
	return nil, nil
}

func (r *fakeRunner) LookPath(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.paths[name]; ok {
		return p, nil
	}
	return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
}

func (r *fakeRunner) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// find returns the first command line starting with prefix.
func (r *fakeRunner) find(prefix string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if strings.HasPrefix(strings.Join(c, " "), prefix) {
			return c
		}
	}
	return nil
}

// called reports whether a command line starting with prefix ran.
func (r *fakeRunner) called(prefix string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if strings.HasPrefix(strings.Join(c, " "), prefix) {
			return true
		}
	}
	return false
}

// ── Fake prompter ────────────────────────────────────────

type fakePrompter struct {
	key   string
	ok    bool
	err   error
	calls int
}

func (p *fakePrompter) SheetKey(ctx context.Context) (string, bool, error) {
	p.calls++
	return p.key, p.ok, p.err
}

// ── Harness ──────────────────────────────────────────────

type harness struct {
	root     string
	src      string
	tmp      string
	settings config.Settings
	runner   *fakeRunner
	prompter *fakePrompter
	users    map[string]bool
	out      *bytes.Buffer
	euid     int
	probeErr error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	key, fp := testSigningKey(t)

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "job_search_selenium.py"),
		[]byte("print('scraping')\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "requirements_selenium.txt"),
		[]byte("selenium\ngspread\n"), 0644))

	s := config.Default()
	s.Paths.SourceDir = src
	s.Browser.KeyFingerprints = []string{fp}

	users := map[string]bool{}
	return &harness{
		root:     t.TempDir(),
		src:      src,
		tmp:      t.TempDir(),
		settings: s,
		runner:   newFakeRunner(key, users),
		prompter: &fakePrompter{key: "sheet-key-123", ok: true},
		users:    users,
		out:      &bytes.Buffer{},
	}
}

func (h *harness) installer(t *testing.T, strict bool) *Installer {
	t.Helper()
	return New(Options{
		Settings: h.settings,
		Version:  "test",
		Strict:   strict,
		Runner:   h.runner,
		Prompter: h.prompter,
		Out:      h.out,
		Root:     h.root,
		TmpDir:   h.tmp,
		Euid:     func() int { return h.euid },
		LookupUser: func(name string) error {
			if h.users[name] {
				return nil
			}
			return errors.New("unknown user " + name)
		},
		ProbeFunc: func(ctx context.Context, execPath string) (string, error) {
			if h.probeErr != nil {
				return "", h.probeErr
			}
			return "Mozilla/5.0 HeadlessChrome/120.0", nil
		},
	})
}

// hostPath maps an absolute host path into the harness root.
func (h *harness) hostPath(p string) string {
	return filepath.Join(h.root, p)
}

func (h *harness) read(t *testing.T, p string) string {
	t.Helper()
	data, err := os.ReadFile(h.hostPath(p))
	require.NoError(t, err)
	return string(data)
}
