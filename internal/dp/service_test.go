package dp_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"dp-go/internal/archive"
	"dp-go/internal/database"
	"dp-go/internal/dp"
	"dp-go/internal/staging"
	"dp-go/internal/storage"
	"dp-go/internal/testutil"
)

type serviceFixture struct {
	svc       *dp.DeployService
	workspace *staging.FilesystemWorkspace
	installer *testutil.RecordingInstaller
	updater   *testutil.FakeUpdater
	store     *storage.MemoryBucketStore
	db        *database.MemoryDatabase
	dir       string
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	dir := t.TempDir()

	w, err := staging.NewFilesystemWorkspace(filepath.Join(dir, "staging"), filepath.Join(dir, "function.zip"))
	if err != nil {
		t.Fatalf("NewFilesystemWorkspace() error = %v", err)
	}

	f := &serviceFixture{
		workspace: w,
		installer: &testutil.RecordingInstaller{},
		updater:   &testutil.FakeUpdater{},
		store:     storage.NewMemoryBucketStore(),
		db:        database.NewMemoryDatabase(),
		dir:       dir,
	}
	f.svc = dp.NewDeployService(w, f.installer, archive.NewZipArchiver(), f.updater, f.store,
		f.db, dp.NewNopLogger(), dp.RealClock{}, testutil.NewStubIDGenerator())
	return f
}

// writeSources creates source files in the fixture dir and returns their paths.
func (f *serviceFixture) writeSources(t *testing.T, names ...string) []string {
	t.Helper()
	var paths []string
	for _, name := range names {
		p := filepath.Join(f.dir, name)
		if err := os.WriteFile(p, []byte("print('"+name+"')\n"), 0644); err != nil {
			t.Fatalf("writing source %s: %v", name, err)
		}
		paths = append(paths, p)
	}
	return paths
}

// buildArchive runs the full staging pipeline and returns the artifact.
func (f *serviceFixture) buildArchive(t *testing.T, packages []string, sources []string) *dp.Artifact {
	t.Helper()
	ctx := context.Background()

	if err := f.svc.StageDependencies(ctx, packages); err != nil {
		t.Fatalf("StageDependencies() error = %v", err)
	}
	if _, err := f.svc.StageSources(sources); err != nil {
		t.Fatalf("StageSources() error = %v", err)
	}
	art, err := f.svc.BuildArchive()
	if err != nil {
		t.Fatalf("BuildArchive() error = %v", err)
	}
	return art
}

func TestDeployService_Pipeline(t *testing.T) {
	t.Run("archive holds dependencies and sources flat", func(t *testing.T) {
		f := newFixture(t)
		sources := f.writeSources(t, "a.py", "b.py")

		f.buildArchive(t, []string{"requests"}, sources)

		entries, err := f.svc.ListArchive()
		if err != nil {
			t.Fatalf("ListArchive() error = %v", err)
		}
		sort.Strings(entries)

		want := []string{"a.py", "b.py", "requests/__init__.py"}
		if len(entries) != len(want) {
			t.Fatalf("entries = %v, want %v", entries, want)
		}
		for i := range want {
			if entries[i] != want[i] {
				t.Errorf("entry[%d] = %q, want %q", i, entries[i], want[i])
			}
		}
	})

	t.Run("measure matches built artifact", func(t *testing.T) {
		f := newFixture(t)
		sources := f.writeSources(t, "a.py")

		built := f.buildArchive(t, nil, sources)

		measured, err := f.svc.Measure()
		if err != nil {
			t.Fatalf("Measure() error = %v", err)
		}
		if measured.Size != built.Size {
			t.Errorf("measured Size = %d, want %d", measured.Size, built.Size)
		}
		if measured.Checksum != built.Checksum {
			t.Errorf("measured Checksum = %q, want %q", measured.Checksum, built.Checksum)
		}
	})

	t.Run("installer prerequisite failure aborts before install", func(t *testing.T) {
		f := newFixture(t)
		f.installer.ValidateErr = errors.New("docker not found")

		err := f.svc.StageDependencies(context.Background(), []string{"requests"})
		if err == nil {
			t.Fatal("StageDependencies() expected error")
		}
		if f.installer.InstallCalls != 0 {
			t.Errorf("InstallCalls = %d, want 0", f.installer.InstallCalls)
		}
	})

	t.Run("installer failure is fatal", func(t *testing.T) {
		f := newFixture(t)
		f.installer.InstallErr = errors.New("exit status 1")

		err := f.svc.StageDependencies(context.Background(), []string{"requests"})
		if err == nil {
			t.Fatal("StageDependencies() expected error")
		}
	})

	t.Run("empty package list skips the installer", func(t *testing.T) {
		f := newFixture(t)

		if err := f.svc.StageDependencies(context.Background(), nil); err != nil {
			t.Fatalf("StageDependencies() error = %v", err)
		}
		if f.installer.InstallCalls != 0 {
			t.Errorf("InstallCalls = %d, want 0", f.installer.InstallCalls)
		}
	})

	t.Run("missing source aborts and no archive is produced", func(t *testing.T) {
		f := newFixture(t)
		sources := f.writeSources(t, "a.py")
		sources = append(sources, filepath.Join(f.dir, "missing.py"))

		if _, err := f.svc.StageSources(sources); err == nil {
			t.Fatal("StageSources() expected error for missing file")
		}
		if _, err := f.svc.Measure(); err == nil {
			t.Error("Measure() expected error: no archive should exist")
		}
	})

	t.Run("clean removes staging and archive and is idempotent", func(t *testing.T) {
		f := newFixture(t)
		sources := f.writeSources(t, "a.py")
		f.buildArchive(t, []string{"requests"}, sources)

		if err := f.svc.Clean(); err != nil {
			t.Fatalf("Clean() error = %v", err)
		}
		if _, err := os.Stat(f.workspace.StagingDir()); !os.IsNotExist(err) {
			t.Errorf("staging dir still exists, stat err = %v", err)
		}
		if _, err := os.Stat(f.workspace.ArtifactPath()); !os.IsNotExist(err) {
			t.Errorf("archive still exists, stat err = %v", err)
		}

		if err := f.svc.Clean(); err != nil {
			t.Fatalf("second Clean() error = %v", err)
		}
	})
}

func TestDeployService_Publish(t *testing.T) {
	ref := dp.FunctionRef{Name: "market-sentiment", Region: "eu-west-1"}
	ctx := context.Background()

	t.Run("direct path below threshold creates no bucket", func(t *testing.T) {
		f := newFixture(t)
		sources := f.writeSources(t, "a.py")
		art := f.buildArchive(t, nil, sources)

		res, err := f.svc.Publish(ctx, ref, dp.PublishOptions{DirectUploadLimit: art.Size + 1})
		if err != nil {
			t.Fatalf("Publish() error = %v", err)
		}

		if res.Strategy != dp.StrategyDirect {
			t.Errorf("Strategy = %q, want %q", res.Strategy, dp.StrategyDirect)
		}
		if f.updater.DirectCalls != 1 {
			t.Errorf("DirectCalls = %d, want 1", f.updater.DirectCalls)
		}
		if f.updater.BucketCalls != 0 {
			t.Errorf("BucketCalls = %d, want 0", f.updater.BucketCalls)
		}
		if f.store.CreateCalls() != 0 {
			t.Errorf("CreateCalls = %d, want 0", f.store.CreateCalls())
		}
		if f.updater.LastRef != ref {
			t.Errorf("LastRef = %+v, want %+v", f.updater.LastRef, ref)
		}
		if testutil.SHA256Hex(f.updater.LastZip) != art.Checksum {
			t.Error("uploaded bytes do not match the built archive")
		}
	})

	t.Run("archive at exactly the threshold goes direct", func(t *testing.T) {
		f := newFixture(t)
		sources := f.writeSources(t, "a.py")
		art := f.buildArchive(t, nil, sources)

		res, err := f.svc.Publish(ctx, ref, dp.PublishOptions{DirectUploadLimit: art.Size})
		if err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		if res.Strategy != dp.StrategyDirect {
			t.Errorf("Strategy = %q, want %q", res.Strategy, dp.StrategyDirect)
		}
	})

	t.Run("staged path creates exactly one bucket and cleans it up", func(t *testing.T) {
		f := newFixture(t)
		sources := f.writeSources(t, "a.py")
		art := f.buildArchive(t, nil, sources)

		res, err := f.svc.Publish(ctx, ref, dp.PublishOptions{
			DirectUploadLimit: art.Size - 1,
			BucketPrefix:      "test-staging",
		})
		if err != nil {
			t.Fatalf("Publish() error = %v", err)
		}

		if res.Strategy != dp.StrategyBucket {
			t.Errorf("Strategy = %q, want %q", res.Strategy, dp.StrategyBucket)
		}
		if res.Bucket != "test-staging-id-1" {
			t.Errorf("Bucket = %q, want %q", res.Bucket, "test-staging-id-1")
		}
		if res.Key != "function.zip" {
			t.Errorf("Key = %q, want %q", res.Key, "function.zip")
		}
		if !res.CleanedUp {
			t.Error("CleanedUp = false, want true")
		}

		if f.store.CreateCalls() != 1 {
			t.Errorf("CreateCalls = %d, want 1", f.store.CreateCalls())
		}
		if f.store.PutCalls() != 1 {
			t.Errorf("PutCalls = %d, want 1", f.store.PutCalls())
		}
		if names := f.store.BucketNames(); len(names) != 0 {
			t.Errorf("BucketNames = %v, want empty after cleanup", names)
		}
		if f.updater.BucketCalls != 1 {
			t.Errorf("BucketCalls = %d, want 1", f.updater.BucketCalls)
		}
		if f.updater.DirectCalls != 0 {
			t.Errorf("DirectCalls = %d, want 0", f.updater.DirectCalls)
		}
	})

	t.Run("keep-bucket leaves object and bucket in place", func(t *testing.T) {
		f := newFixture(t)
		sources := f.writeSources(t, "a.py")
		art := f.buildArchive(t, nil, sources)

		res, err := f.svc.Publish(ctx, ref, dp.PublishOptions{
			DirectUploadLimit: art.Size - 1,
			BucketPrefix:      "test-staging",
			KeepBucket:        true,
		})
		if err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		if res.CleanedUp {
			t.Error("CleanedUp = true, want false")
		}

		data, ok := f.store.Object(res.Bucket, res.Key)
		if !ok {
			t.Fatal("staged object missing")
		}
		if testutil.SHA256Hex(data) != art.Checksum {
			t.Error("staged object does not match the built archive")
		}
	})

	t.Run("update failure on staged path leaves the bucket behind", func(t *testing.T) {
		f := newFixture(t)
		sources := f.writeSources(t, "a.py")
		art := f.buildArchive(t, nil, sources)
		f.updater.UpdateErr = errors.New("AccessDenied")

		_, err := f.svc.Publish(ctx, ref, dp.PublishOptions{
			DirectUploadLimit: art.Size - 1,
			BucketPrefix:      "test-staging",
		})
		if err == nil {
			t.Fatal("Publish() expected error")
		}

		// No rollback: the bucket and its object stay.
		names := f.store.BucketNames()
		if len(names) != 1 {
			t.Fatalf("BucketNames = %v, want one leftover bucket", names)
		}
		if _, ok := f.store.Object(names[0], "function.zip"); !ok {
			t.Error("staged object should still exist after failed update")
		}
	})

	t.Run("publish without archive fails", func(t *testing.T) {
		f := newFixture(t)

		if _, err := f.svc.Publish(ctx, ref, dp.PublishOptions{}); err == nil {
			t.Error("Publish() expected error when no archive exists")
		}
	})
}

func TestDeployService_GetHistory(t *testing.T) {
	f := newFixture(t)

	op, err := f.db.CreateDeployOperation("Deploy", "", "market-sentiment", "eu-west-1")
	if err != nil {
		t.Fatalf("CreateDeployOperation() error = %v", err)
	}
	if err := f.db.FinishDeployOperation(op.ID, dp.OperationResult{Status: "success", Strategy: "direct"}); err != nil {
		t.Fatalf("FinishDeployOperation() error = %v", err)
	}

	ops, err := f.svc.GetHistory(10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("len(ops) = %d, want 1", len(ops))
	}
	if ops[0].Status != "success" {
		t.Errorf("Status = %q, want %q", ops[0].Status, "success")
	}
}
