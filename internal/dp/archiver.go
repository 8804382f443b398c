package dp

// Archiver provides an interface for building and inspecting deployment
// archives.
type Archiver interface {
	// Create compresses the full recursive contents of stagingDir into a
	// single archive at outPath. Entry names are relative to the staging
	// root (no nested top-level directory), so the remote runtime can
	// resolve top-level imports. On failure no archive is produced.
	Create(stagingDir, outPath string) (*Artifact, error)

	// List returns the entry names of an existing archive, in archive order.
	List(path string) ([]string, error)
}
