package staging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"dp-go/internal/dp"
)

// FilesystemWorkspace is the on-disk implementation of dp.Workspace.
// It owns two paths: the staging directory that collects dependencies and
// source files, and the archive built from it. Both are ephemeral; Clean
// removes them and the next run recreates them.
type FilesystemWorkspace struct {
	stagingDir   string
	artifactPath string
}

// NewFilesystemWorkspace creates a workspace over the given paths.
// Nothing is created until EnsureStagingDir is called.
func NewFilesystemWorkspace(stagingDir, artifactPath string) (*FilesystemWorkspace, error) {
	if stagingDir == "" {
		return nil, fmt.Errorf("staging directory path is empty")
	}
	if artifactPath == "" {
		return nil, fmt.Errorf("artifact path is empty")
	}
	return &FilesystemWorkspace{
		stagingDir:   stagingDir,
		artifactPath: artifactPath,
	}, nil
}

// Clean removes the staging directory and the archive. Missing paths are
// not an error, so a second Clean is a no-op.
func (w *FilesystemWorkspace) Clean() error {
	if err := os.RemoveAll(w.stagingDir); err != nil {
		return fmt.Errorf("removing staging directory: %w", err)
	}
	if err := os.Remove(w.artifactPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing archive: %w", err)
	}
	return nil
}

// EnsureStagingDir creates the staging directory if needed.
func (w *FilesystemWorkspace) EnsureStagingDir() error {
	if err := os.MkdirAll(w.stagingDir, 0755); err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	return nil
}

// CopySources copies each listed file into the top level of the staging
// directory. An existing file with the same name is overwritten, so sources
// take precedence over dependency files. A missing source aborts the copy;
// files copied before the failure stay in place.
func (w *FilesystemWorkspace) CopySources(sources []string) (int, error) {
	count := 0
	for _, src := range sources {
		if err := w.copyOne(src); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (w *FilesystemWorkspace) copyOne(src string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source %s: %w", src, err)
	}
	defer in.Close()

	dest := filepath.Join(w.stagingDir, filepath.Base(src))
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", dest, err)
	}
	return nil
}

// MeasureArtifact stats the archive and streams it through SHA-256.
func (w *FilesystemWorkspace) MeasureArtifact() (*dp.Artifact, error) {
	f, err := os.Open(w.artifactPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no archive at %s (run build first)", w.artifactPath)
		}
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("hashing archive: %w", err)
	}

	return &dp.Artifact{
		Path:     w.artifactPath,
		Size:     info.Size(),
		Checksum: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// OpenArtifact opens the archive for reading.
func (w *FilesystemWorkspace) OpenArtifact() (io.ReadCloser, error) {
	f, err := os.Open(w.artifactPath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	return f, nil
}

// StagingDir returns the staging directory path.
func (w *FilesystemWorkspace) StagingDir() string { return w.stagingDir }

// ArtifactPath returns the archive output path.
func (w *FilesystemWorkspace) ArtifactPath() string { return w.artifactPath }

// Compile-time check that FilesystemWorkspace implements dp.Workspace
var _ dp.Workspace = (*FilesystemWorkspace)(nil)
