package installer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"dp-go/internal/dp"
)

// DefaultBuildImage matches the default Python Lambda runtime.
const DefaultBuildImage = "public.ecr.aws/sam/build-python3.12"

// stagingMount is where the staging directory appears inside the container.
const stagingMount = "/var/task"

// DockerInstaller runs pip inside a container image matching the remote
// function's runtime and architecture, so compiled dependencies resolve at
// invocation time regardless of the host platform.
type DockerInstaller struct {
	image    string
	platform string // e.g. "linux/amd64"; empty uses the image default
}

// NewDockerInstaller creates a docker-backed installer.
// An empty image falls back to DefaultBuildImage.
func NewDockerInstaller(image, platform string) *DockerInstaller {
	if image == "" {
		image = DefaultBuildImage
	}
	return &DockerInstaller{image: image, platform: platform}
}

// Validate checks that the docker binary is on PATH. This is the missing
// local prerequisite check: it runs once before anything is staged.
func (d *DockerInstaller) Validate(ctx context.Context) error {
	if _, err := exec.LookPath("docker"); err != nil {
		return fmt.Errorf("docker not found (required for isolated builds): %w", err)
	}
	return nil
}

// Install mounts the staging directory into the build image and runs pip
// against the mount, targeting the same directory the host archives later.
func (d *DockerInstaller) Install(ctx context.Context, packages []string, targetDir string) error {
	absTarget, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving staging directory: %w", err)
	}

	cmd := exec.CommandContext(ctx, "docker", d.dockerArgs(packages, absTarget)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker build install failed: %w", err)
	}
	return nil
}

// dockerArgs builds the docker run command line.
func (d *DockerInstaller) dockerArgs(packages []string, absTarget string) []string {
	args := []string{"run", "--rm"}
	if d.platform != "" {
		args = append(args, "--platform", d.platform)
	}
	args = append(args,
		"-v", fmt.Sprintf("%s:%s", absTarget, stagingMount),
		"--entrypoint", "pip",
		d.image,
	)
	args = append(args, pipArgs(packages, stagingMount)...)
	return args
}

// Compile-time check that DockerInstaller implements dp.Installer
var _ dp.Installer = (*DockerInstaller)(nil)
