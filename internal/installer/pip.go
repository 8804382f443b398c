package installer

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"dp-go/internal/dp"
)

// DefaultPipBinary is used when the config does not name a pip binary.
const DefaultPipBinary = "pip3"

// PipInstaller installs packages with the host's pip. Dependencies with
// compiled extensions built this way only work if the host matches the
// remote function's platform; use the docker installer otherwise.
type PipInstaller struct {
	binary string
}

// NewPipInstaller creates a pip installer using the given binary name.
// An empty binary falls back to DefaultPipBinary.
func NewPipInstaller(binary string) *PipInstaller {
	if binary == "" {
		binary = DefaultPipBinary
	}
	return &PipInstaller{binary: binary}
}

// Validate checks that the pip binary is on PATH.
func (p *PipInstaller) Validate(ctx context.Context) error {
	if _, err := exec.LookPath(p.binary); err != nil {
		return fmt.Errorf("pip binary %q not found: %w", p.binary, err)
	}
	return nil
}

// Install runs pip with --target pointed at the staging directory.
// Installer output goes straight to the operator's terminal.
func (p *PipInstaller) Install(ctx context.Context, packages []string, targetDir string) error {
	cmd := exec.CommandContext(ctx, p.binary, pipArgs(packages, targetDir)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s install failed: %w", p.binary, err)
	}
	return nil
}

// pipArgs builds the pip command line for installing packages into targetDir.
func pipArgs(packages []string, targetDir string) []string {
	args := []string{"install", "--target", targetDir, "--upgrade"}
	return append(args, packages...)
}

// Compile-time check that PipInstaller implements dp.Installer
var _ dp.Installer = (*PipInstaller)(nil)
