package dp

import "io"

// Workspace provides an interface for the local build workspace: the staging
// directory that collects dependencies and sources, and the archive built
// from it. Implementations own both paths exclusively for the duration of a
// run; there is no cross-process locking.
type Workspace interface {
	// Clean removes any staging directory and archive left by prior runs.
	// Missing paths are not an error; calling Clean twice is equivalent
	// to calling it once.
	Clean() error

	// EnsureStagingDir creates the staging directory if it does not exist.
	EnsureStagingDir() error

	// CopySources copies each listed file into the top level of the
	// staging directory, overwriting any colliding dependency file
	// (source wins). A missing source aborts the copy mid-way; files
	// copied before the failure are left in place.
	// Returns the number of files copied.
	CopySources(sources []string) (int, error)

	// MeasureArtifact stats the archive and computes its SHA-256.
	// Returns an error if no archive exists.
	MeasureArtifact() (*Artifact, error)

	// OpenArtifact opens the archive for reading.
	OpenArtifact() (io.ReadCloser, error)

	// StagingDir returns the staging directory path.
	StagingDir() string

	// ArtifactPath returns the archive output path.
	ArtifactPath() string
}
