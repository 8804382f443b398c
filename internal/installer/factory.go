package installer

import (
	"fmt"

	"dp-go/internal/config"
	"dp-go/internal/dp"
)

// NewInstallerFromConfig creates an Installer based on the installer config type.
// An empty type defaults to the host pip installer.
func NewInstallerFromConfig(cfg config.InstallerConfig) (dp.Installer, error) {
	switch cfg.Type {
	case "", "pip":
		return NewPipInstaller(cfg.Pip), nil
	case "docker":
		return NewDockerInstaller(cfg.Image, cfg.Platform), nil
	default:
		return nil, fmt.Errorf("unknown installer type: %s", cfg.Type)
	}
}
