package archive

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"dp-go/internal/dp"
)

// ZipArchiver builds standard zip archives from a staging directory.
// Entry names are relative to the staging root with forward slashes, so the
// archive has no nested top-level directory and the remote runtime can
// resolve top-level imports.
type ZipArchiver struct{}

// NewZipArchiver creates a new ZipArchiver.
func NewZipArchiver() *ZipArchiver {
	return &ZipArchiver{}
}

// Create compresses the full recursive contents of stagingDir into a zip at
// outPath. The archive is written to a temp file and renamed into place, so
// a failure leaves no archive behind.
func (a *ZipArchiver) Create(stagingDir, outPath string) (*dp.Artifact, error) {
	info, err := os.Stat(stagingDir)
	if err != nil {
		return nil, fmt.Errorf("stat staging directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("staging path is not a directory: %s", stagingDir)
	}

	// Temp file in the same directory so the final rename is atomic.
	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	h := sha256.New()
	zw := zip.NewWriter(io.MultiWriter(tmpFile, h))

	err = filepath.WalkDir(stagingDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(stagingDir, p)
		if err != nil {
			return fmt.Errorf("computing relative path: %w", err)
		}

		fi, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}

		header, err := zip.FileInfoHeader(fi)
		if err != nil {
			return fmt.Errorf("building header for %s: %w", rel, err)
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate

		entry, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("creating entry %s: %w", header.Name, err)
		}

		f, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("opening %s: %w", p, err)
		}
		defer f.Close()

		if _, err := io.Copy(entry, f); err != nil {
			return fmt.Errorf("compressing %s: %w", header.Name, err)
		}
		return nil
	})
	if err != nil {
		tmpFile.Close()
		return nil, fmt.Errorf("walking staging directory: %w", err)
	}

	if err := zw.Close(); err != nil {
		tmpFile.Close()
		return nil, fmt.Errorf("finalizing archive: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return nil, fmt.Errorf("closing temp file: %w", err)
	}

	tmpInfo, err := os.Stat(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return nil, fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true

	return &dp.Artifact{
		Path:     outPath,
		Size:     tmpInfo.Size(),
		Checksum: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// List returns the entry names of an existing archive, in archive order.
func (a *ZipArchiver) List(path string) ([]string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	defer r.Close()

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names, nil
}

// Compile-time check that ZipArchiver implements dp.Archiver
var _ dp.Archiver = (*ZipArchiver)(nil)
