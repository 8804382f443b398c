package dp

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
)

// DeployService is the orchestration layer that coordinates the packaging
// pipeline: clean, stage dependencies, stage sources, archive, publish.
// Each step is a plain method returning an explicit error; the CLI decides
// which steps to run and in what order.
type DeployService struct {
	workspace Workspace
	installer Installer
	archiver  Archiver
	updater   FunctionUpdater
	store     BucketStore
	database  Database
	logger    Logger
	clock     Clock
	idgen     IDGenerator
}

// NewDeployService creates a new DeployService with the provided dependencies.
func NewDeployService(workspace Workspace, installer Installer, archiver Archiver, updater FunctionUpdater, store BucketStore, database Database, logger Logger, clock Clock, idgen IDGenerator) *DeployService {
	return &DeployService{
		workspace: workspace,
		installer: installer,
		archiver:  archiver,
		updater:   updater,
		store:     store,
		database:  database,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
	}
}

// Clean removes the staging directory and archive left by prior runs.
// Missing paths are not an error, so Clean is idempotent.
func (s *DeployService) Clean() error {
	if err := s.workspace.Clean(); err != nil {
		return fmt.Errorf("cleaning workspace: %w", err)
	}
	s.logger.Info("workspace cleaned",
		"staging_dir", s.workspace.StagingDir(),
		"artifact", s.workspace.ArtifactPath())
	return nil
}

// StageDependencies installs the configured packages into the staging
// directory. The installer's prerequisites are validated first; a missing
// prerequisite aborts before anything is written. An installer failure is
// fatal and nothing is archived afterwards.
func (s *DeployService) StageDependencies(ctx context.Context, packages []string) error {
	if err := s.installer.Validate(ctx); err != nil {
		return fmt.Errorf("checking installer prerequisites: %w", err)
	}

	if err := s.workspace.EnsureStagingDir(); err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}

	if len(packages) == 0 {
		s.logger.Info("no dependencies configured, skipping install")
		return nil
	}

	if err := s.installer.Install(ctx, packages, s.workspace.StagingDir()); err != nil {
		return fmt.Errorf("installing dependencies: %w", err)
	}

	s.logger.Info("dependencies staged", "count", len(packages))
	return nil
}

// StageSources copies the configured source files into the top level of the
// staging directory. Sources overwrite colliding dependency files. A missing
// source file aborts the copy; earlier files stay in staging but no archive
// is produced this run. Returns the number of files copied.
func (s *DeployService) StageSources(sources []string) (int, error) {
	if len(sources) == 0 {
		return 0, fmt.Errorf("no source files configured")
	}

	if err := s.workspace.EnsureStagingDir(); err != nil {
		return 0, fmt.Errorf("creating staging directory: %w", err)
	}

	count, err := s.workspace.CopySources(sources)
	if err != nil {
		return count, fmt.Errorf("staging sources: %w", err)
	}

	s.logger.Info("sources staged", "count", count)
	return count, nil
}

// BuildArchive compresses the staging directory into the archive. The
// staging directory must already hold both dependencies and sources; the
// pipeline enforces ordering, not content.
func (s *DeployService) BuildArchive() (*Artifact, error) {
	artifact, err := s.archiver.Create(s.workspace.StagingDir(), s.workspace.ArtifactPath())
	if err != nil {
		return nil, fmt.Errorf("building archive: %w", err)
	}

	s.logger.Info("archive built",
		"path", artifact.Path,
		"size", artifact.Size,
		"sha256", artifact.Checksum)
	return artifact, nil
}

// Measure stats the current archive and computes its checksum.
func (s *DeployService) Measure() (*Artifact, error) {
	artifact, err := s.workspace.MeasureArtifact()
	if err != nil {
		return nil, fmt.Errorf("measuring archive: %w", err)
	}
	return artifact, nil
}

// ListArchive returns the entry names of the current archive.
func (s *DeployService) ListArchive() ([]string, error) {
	entries, err := s.archiver.List(s.workspace.ArtifactPath())
	if err != nil {
		return nil, fmt.Errorf("listing archive: %w", err)
	}
	return entries, nil
}

// Publish replaces the remote function's deployed code with the current
// archive. The archive size selects exactly one of two paths: at or below
// the limit the bytes go inline with the update call; above it the archive
// is staged through a uniquely named transient bucket.
//
// There is no retry and no rollback: if the update call fails after the
// bucket was created, the bucket and object are left in place and reported.
// On the staged path the object and bucket are deleted after a successful
// update unless opts.KeepBucket is set.
func (s *DeployService) Publish(ctx context.Context, ref FunctionRef, opts PublishOptions) (*PublishResult, error) {
	start := s.clock.Now()

	artifact, err := s.Measure()
	if err != nil {
		return nil, err
	}

	strategy := SelectStrategy(artifact.Size, opts.DirectUploadLimit)
	result := &PublishResult{Artifact: artifact, Strategy: strategy}

	s.logger.Info("publishing",
		"function", ref.Name,
		"region", ref.Region,
		"size", artifact.Size,
		"strategy", string(strategy))

	switch strategy {
	case StrategyDirect:
		if err := s.publishDirect(ctx, ref, artifact); err != nil {
			return nil, err
		}
	case StrategyBucket:
		if err := s.publishViaBucket(ctx, ref, artifact, opts, result); err != nil {
			return nil, err
		}
	}

	s.logger.Info("function updated",
		"function", ref.Name,
		"sha256", artifact.Checksum,
		"elapsed", s.clock.Now().Sub(start).String())
	return result, nil
}

func (s *DeployService) publishDirect(ctx context.Context, ref FunctionRef, artifact *Artifact) error {
	f, err := s.workspace.OpenArtifact()
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	zipData, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}

	if err := s.updater.UpdateCode(ctx, ref, zipData); err != nil {
		return fmt.Errorf("updating function %s: %w", ref.Name, err)
	}
	return nil
}

func (s *DeployService) publishViaBucket(ctx context.Context, ref FunctionRef, artifact *Artifact, opts PublishOptions, result *PublishResult) error {
	prefix := opts.BucketPrefix
	if prefix == "" {
		prefix = "dp-staging"
	}
	bucket := fmt.Sprintf("%s-%s", prefix, s.idgen.New())
	key := filepath.Base(artifact.Path)

	if err := s.store.CreateBucket(ctx, bucket); err != nil {
		return fmt.Errorf("creating transient bucket %s: %w", bucket, err)
	}
	result.Bucket = bucket
	result.Key = key

	f, err := s.workspace.OpenArtifact()
	if err != nil {
		s.logger.Warn("transient bucket left in place", "bucket", bucket)
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	if err := s.store.PutObject(ctx, bucket, key, f, artifact.Size); err != nil {
		s.logger.Warn("transient bucket left in place", "bucket", bucket)
		return fmt.Errorf("uploading archive to bucket %s: %w", bucket, err)
	}
	s.logger.Info("archive uploaded", "bucket", bucket, "key", key)

	if err := s.updater.UpdateCodeFromBucket(ctx, ref, bucket, key); err != nil {
		s.logger.Warn("transient bucket left in place", "bucket", bucket, "key", key)
		return fmt.Errorf("updating function %s from bucket: %w", ref.Name, err)
	}

	if opts.KeepBucket {
		return nil
	}

	if err := s.store.DeleteObject(ctx, bucket, key); err != nil {
		return fmt.Errorf("deleting staged object %s/%s: %w", bucket, key, err)
	}
	if err := s.store.DeleteBucket(ctx, bucket); err != nil {
		return fmt.Errorf("deleting transient bucket %s: %w", bucket, err)
	}
	result.CleanedUp = true
	s.logger.Info("transient bucket removed", "bucket", bucket)
	return nil
}

// GetHistory returns the most recent deploy operations, newest first.
func (s *DeployService) GetHistory(limit int) ([]*DeployOperation, error) {
	ops, err := s.database.ListDeployOperations(limit)
	if err != nil {
		return nil, fmt.Errorf("listing deploy operations: %w", err)
	}
	return ops, nil
}
