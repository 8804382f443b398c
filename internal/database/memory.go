package database

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"dp-go/internal/dp"
)

// MemoryDatabase is an in-memory implementation of the deploy history store,
// useful for testing and for runs that do not want a persistent history.
// It is safe for concurrent use.
type MemoryDatabase struct {
	mu     sync.Mutex
	nextID int64
	ops    []*dp.DeployOperation
}

// NewMemoryDatabase creates an empty in-memory history store.
func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{nextID: 1}
}

// CreateDeployOperation records the start of a mutating run.
func (m *MemoryDatabase) CreateDeployOperation(operation, parameters, functionName, region string) (*dp.DeployOperation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	op := &dp.DeployOperation{
		ID:           m.nextID,
		Operation:    operation,
		Parameters:   parameters,
		FunctionName: functionName,
		Region:       region,
		Status:       "running",
		StartedAt:    time.Now().UTC(),
	}
	m.nextID++
	m.ops = append(m.ops, op)
	return op, nil
}

// FinishDeployOperation stamps the finish time and final state.
func (m *MemoryDatabase) FinishDeployOperation(id int64, result dp.OperationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, op := range m.ops {
		if op.ID == id {
			op.Status = result.Status
			op.Strategy = result.Strategy
			op.ArtifactSize = result.ArtifactSize
			op.ArtifactSHA256 = result.ArtifactSHA256
			op.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
			return nil
		}
	}
	return fmt.Errorf("deploy operation not found: %d", id)
}

// ListDeployOperations returns the most recent operations, newest first.
func (m *MemoryDatabase) ListDeployOperations(limit int) ([]*dp.DeployOperation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}

	var ops []*dp.DeployOperation
	for i := len(m.ops) - 1; i >= 0 && len(ops) < limit; i-- {
		cp := *m.ops[i]
		ops = append(ops, &cp)
	}
	return ops, nil
}

// CheckMigrations always succeeds; there is no schema to migrate.
func (m *MemoryDatabase) CheckMigrations() error { return nil }

// Close is a no-op.
func (m *MemoryDatabase) Close() error { return nil }

// Compile-time check that MemoryDatabase implements dp.Database
var _ dp.Database = (*MemoryDatabase)(nil)
