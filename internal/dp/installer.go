package dp

import "context"

// Installer provides an interface for dependency installation backends.
// The host backend runs the package installer directly; the isolated backend
// runs it inside a container matching the remote function's platform, so
// compiled dependencies work at invocation time.
type Installer interface {
	// Validate checks that the backend's prerequisites are available
	// (installer binary, container runtime). Called once before any
	// install; a failure aborts the run immediately.
	Validate(ctx context.Context) error

	// Install installs the named packages into targetDir. A non-zero
	// installer exit is fatal; nothing is archived afterwards.
	Install(ctx context.Context, packages []string, targetDir string) error
}
