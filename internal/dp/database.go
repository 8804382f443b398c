package dp

import (
	"database/sql"
	"time"
)

// DeployOperation is a single recorded run of a mutating command.
type DeployOperation struct {
	ID             int64
	Operation      string // CLI command, e.g. "Deploy", "BuildArchive"
	Parameters     string
	FunctionName   string
	Region         string
	Strategy       string // "", "direct", or "bucket"
	ArtifactSize   int64  // 0 until an archive was measured
	ArtifactSHA256 string
	Status         string // "running", "success", or "error"
	StartedAt      time.Time
	FinishedAt     sql.NullTime
}

// OperationResult carries the final state written when an operation finishes.
type OperationResult struct {
	Status         string
	Strategy       string
	ArtifactSize   int64
	ArtifactSHA256 string
}

// Database provides an interface for the deploy history store.
type Database interface {
	// CreateDeployOperation records the start of a mutating run and
	// returns the operation with its assigned ID.
	CreateDeployOperation(operation, parameters, functionName, region string) (*DeployOperation, error)

	// FinishDeployOperation stamps the finish time and final state on an
	// operation.
	FinishDeployOperation(id int64, result OperationResult) error

	// ListDeployOperations returns the most recent operations, newest
	// first, up to limit.
	ListDeployOperations(limit int) ([]*DeployOperation, error)

	// CheckMigrations verifies the schema is at the latest version.
	CheckMigrations() error

	// Close closes the database connection.
	Close() error
}
