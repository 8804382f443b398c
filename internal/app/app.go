package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"dp-go/internal/archive"
	"dp-go/internal/awsutil"
	"dp-go/internal/config"
	"dp-go/internal/database"
	"dp-go/internal/dp"
	"dp-go/internal/installer"
	"dp-go/internal/lambda"
	"dp-go/internal/staging"
	"dp-go/internal/storage"
)

// DPApp is the application layer between the CLI and DeployService.
// It constructs all dependencies from config, exposes high-level operations,
// and manages the DB and log file lifecycle on Close.
type DPApp struct {
	cfg       *config.Config
	db        dp.Database
	workspace *staging.FilesystemWorkspace
	service   *dp.DeployService
	op        *DeployOperation
	logFile   *os.File
}

// NewDPApp creates a fully wired DPApp from the given config.
// operation identifies the CLI command being run (e.g. "Build", "Publish").
// The remote clients are only constructed when a function is configured, so
// local commands work without any AWS setup. The caller must call Close when
// done.
func NewDPApp(ctx context.Context, cfg *config.Config, operation string) (*DPApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	workspace, err := staging.NewFilesystemWorkspace(cfg.Package.StagingDir, cfg.Package.ArtifactPath)
	if err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}

	inst, err := installer.NewInstallerFromConfig(cfg.Dependencies.Installer)
	if err != nil {
		return nil, fmt.Errorf("creating installer: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	var updater dp.FunctionUpdater
	var store dp.BucketStore
	if cfg.ValidateFunction() == nil {
		awsCfg, err := awsutil.LoadConfig(ctx, cfg.Function.Region, cfg.AWS)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("resolving AWS configuration: %w", err)
		}
		updater = lambda.NewUpdater(awsCfg)
		store = storage.NewS3BucketStore(awsCfg)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	svc := dp.NewDeployService(workspace, inst, archive.NewZipArchiver(), updater, store,
		db, &slogAdapter{l: logger}, dp.RealClock{}, dp.UUIDGenerator{})
	op := NewDeployOperation(operation, "")

	return &DPApp{
		cfg:       cfg,
		db:        db,
		workspace: workspace,
		service:   svc,
		op:        op,
		logFile:   logFile,
	}, nil
}

// persistOperation saves the deploy operation to the database, giving it an
// auto-increment ID. This should only be called for history-mutating commands.
func (a *DPApp) persistOperation() error {
	if a.op.Persisted() {
		return nil // already persisted
	}
	dbOp, err := a.db.CreateDeployOperation(a.op.Operation, a.op.Parameters,
		a.cfg.Function.Name, a.cfg.Function.Region)
	if err != nil {
		return fmt.Errorf("persisting deploy operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// MarkFailed records that the current operation ended in error. Close writes
// the final status to the history record.
func (a *DPApp) MarkFailed() {
	a.op.Status = "error"
}

// Clean removes the staging directory and archive from previous runs.
func (a *DPApp) Clean() error {
	return a.service.Clean()
}

// Build runs the local packaging pipeline: stage the configured dependencies,
// copy the configured sources over them, and compress the result into the
// archive. Returns the built artifact.
func (a *DPApp) Build(ctx context.Context) (*dp.Artifact, error) {
	if err := a.persistOperation(); err != nil {
		return nil, err
	}

	if err := a.service.StageDependencies(ctx, a.cfg.Dependencies.Packages); err != nil {
		return nil, err
	}
	if _, err := a.service.StageSources(a.cfg.Package.Sources); err != nil {
		return nil, err
	}

	artifact, err := a.service.BuildArchive()
	if err != nil {
		return nil, err
	}

	// The history row carries what was built even when nothing is published.
	a.op.ArtifactSize = artifact.Size
	a.op.ArtifactSHA256 = artifact.Checksum
	return artifact, nil
}

// Measure stats the current archive and reports its size, checksum, and the
// publish path that size selects.
func (a *DPApp) Measure() (*dp.Artifact, dp.Strategy, error) {
	artifact, err := a.service.Measure()
	if err != nil {
		return nil, "", err
	}
	return artifact, dp.SelectStrategy(artifact.Size, a.cfg.Package.DirectUploadLimit), nil
}

// ListArchive returns the entry names of the current archive.
func (a *DPApp) ListArchive() ([]string, error) {
	return a.service.ListArchive()
}

// Publish replaces the remote function's code with the current archive.
// keepBucket retains the transient bucket after a staged publish.
func (a *DPApp) Publish(ctx context.Context, keepBucket bool) (*dp.PublishResult, error) {
	if err := a.cfg.ValidateFunction(); err != nil {
		return nil, err
	}
	if err := a.persistOperation(); err != nil {
		return nil, err
	}

	ref := dp.FunctionRef{Name: a.cfg.Function.Name, Region: a.cfg.Function.Region}
	opts := dp.PublishOptions{
		DirectUploadLimit: a.cfg.Package.DirectUploadLimit,
		BucketPrefix:      a.cfg.Storage.BucketPrefix,
		KeepBucket:        keepBucket,
	}

	result, err := a.service.Publish(ctx, ref, opts)
	if err != nil {
		return nil, err
	}

	a.op.Strategy = string(result.Strategy)
	a.op.ArtifactSize = result.Artifact.Size
	a.op.ArtifactSHA256 = result.Artifact.Checksum
	return result, nil
}

// FunctionName returns the configured remote function name, for display.
func (a *DPApp) FunctionName() string {
	return a.cfg.Function.Name
}

// GetHistory returns the most recent deploy operations, newest first.
func (a *DPApp) GetHistory(limit int) ([]*dp.DeployOperation, error) {
	return a.service.GetHistory(limit)
}

// Close finalizes the operation record (when one was persisted) and closes
// all resources.
func (a *DPApp) Close() error {
	var firstErr error

	if a.op.Persisted() {
		result := dp.OperationResult{
			Status:         a.op.Status,
			Strategy:       a.op.Strategy,
			ArtifactSize:   a.op.ArtifactSize,
			ArtifactSHA256: a.op.ArtifactSHA256,
		}
		if err := a.db.FinishDeployOperation(a.op.ID, result); err != nil {
			firstErr = fmt.Errorf("finishing deploy operation: %w", err)
		}
	}

	if err := a.db.Close(); err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("closing database: %w", err)
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
