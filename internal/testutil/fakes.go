package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"dp-go/internal/dp"
)

// RecordingInstaller implements dp.Installer without running anything.
// It records calls and can be told to fail validation or installation.
// Installed packages appear in the target directory as "<pkg>/__init__.py"
// so archives built afterwards look like real dependency trees.
type RecordingInstaller struct {
	ValidateErr error
	InstallErr  error

	ValidateCalls int
	InstallCalls  int
	Installed     []string
	TargetDir     string
}

func (r *RecordingInstaller) Validate(ctx context.Context) error {
	r.ValidateCalls++
	return r.ValidateErr
}

func (r *RecordingInstaller) Install(ctx context.Context, packages []string, targetDir string) error {
	r.InstallCalls++
	if r.InstallErr != nil {
		return r.InstallErr
	}
	r.Installed = append(r.Installed, packages...)
	r.TargetDir = targetDir

	for _, pkg := range packages {
		dir := filepath.Join(targetDir, pkg)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating fake package dir: %w", err)
		}
		content := fmt.Sprintf("# %s\n", pkg)
		if err := os.WriteFile(filepath.Join(dir, "__init__.py"), []byte(content), 0644); err != nil {
			return fmt.Errorf("writing fake package file: %w", err)
		}
	}
	return nil
}

// FakeUpdater implements dp.FunctionUpdater and records what it was asked
// to do.
type FakeUpdater struct {
	UpdateErr error

	DirectCalls int
	BucketCalls int
	LastRef     dp.FunctionRef
	LastZip     []byte
	LastBucket  string
	LastKey     string
}

func (f *FakeUpdater) UpdateCode(ctx context.Context, ref dp.FunctionRef, zipData []byte) error {
	f.DirectCalls++
	f.LastRef = ref
	f.LastZip = zipData
	return f.UpdateErr
}

func (f *FakeUpdater) UpdateCodeFromBucket(ctx context.Context, ref dp.FunctionRef, bucket, key string) error {
	f.BucketCalls++
	f.LastRef = ref
	f.LastBucket = bucket
	f.LastKey = key
	return f.UpdateErr
}

// Compile-time checks
var (
	_ dp.Installer       = (*RecordingInstaller)(nil)
	_ dp.FunctionUpdater = (*FakeUpdater)(nil)
)
