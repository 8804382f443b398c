package database

import (
	"database/sql"
	"fmt"
	"time"

	"dp-go/internal/dp"
	"dp-go/internal/database/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements the deploy history store using SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase opens (and migrates) a SQLite deploy history database.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history database: %w", err)
	}

	return &SQLiteDatabase{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection with the PRAGMAs
// this tool relies on. Exported for tests that need a raw connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// CreateDeployOperation records the start of a mutating run.
func (s *SQLiteDatabase) CreateDeployOperation(operation, parameters, functionName, region string) (*dp.DeployOperation, error) {
	startedAt := time.Now().UTC()

	res, err := s.db.Exec(`
		INSERT INTO deploy_operations (operation, parameters, function_name, region, status, started_at)
		VALUES (?, ?, ?, ?, 'running', ?)`,
		operation, parameters, functionName, region, startedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting deploy operation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}

	return &dp.DeployOperation{
		ID:           id,
		Operation:    operation,
		Parameters:   parameters,
		FunctionName: functionName,
		Region:       region,
		Status:       "running",
		StartedAt:    startedAt,
	}, nil
}

// FinishDeployOperation stamps the finish time and final state.
func (s *SQLiteDatabase) FinishDeployOperation(id int64, result dp.OperationResult) error {
	res, err := s.db.Exec(`
		UPDATE deploy_operations
		SET status = ?, strategy = ?, artifact_size = ?, artifact_sha256 = ?, finished_at = ?
		WHERE id = ?`,
		result.Status, result.Strategy, result.ArtifactSize, result.ArtifactSHA256, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("finishing deploy operation: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("deploy operation not found: %d", id)
	}
	return nil
}

// ListDeployOperations returns the most recent operations, newest first.
func (s *SQLiteDatabase) ListDeployOperations(limit int) ([]*dp.DeployOperation, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, operation, parameters, function_name, region, strategy,
		       artifact_size, artifact_sha256, status, started_at, finished_at
		FROM deploy_operations
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying deploy operations: %w", err)
	}
	defer rows.Close()

	var ops []*dp.DeployOperation
	for rows.Next() {
		var op dp.DeployOperation
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.FunctionName,
			&op.Region, &op.Strategy, &op.ArtifactSize, &op.ArtifactSHA256,
			&op.Status, &op.StartedAt, &op.FinishedAt); err != nil {
			return nil, fmt.Errorf("scanning deploy operation: %w", err)
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating deploy operations: %w", err)
	}
	return ops, nil
}

// CheckMigrations verifies the schema is at the latest version.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}

// Compile-time check that SQLiteDatabase implements dp.Database
var _ dp.Database = (*SQLiteDatabase)(nil)
