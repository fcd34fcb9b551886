package installer

import (
	"context"
	"os"
	"os/exec"
)

// Runner executes external commands. The installer never calls
// os/exec directly so a whole install can be exercised in tests.
type Runner interface {
	// Run executes name with args and returns its combined output.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	// LookPath reports whether name is an executable on PATH.
	LookPath(name string) (string, error)
}

// ExecRunner runs commands on the host.
type ExecRunner struct{}

// Run implements Runner. apt is kept non-interactive so a package's
// debconf prompt cannot block the install.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), "DEBIAN_FRONTEND=noninteractive")
	return cmd.CombinedOutput()
}

// LookPath implements Runner.
func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
