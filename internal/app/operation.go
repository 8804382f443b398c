package app

// DeployOperation tracks a CLI operation that may mutate the deploy history.
// Operations are created in memory with ID=0. Only history-mutating commands
// persist them (giving them an auto-increment ID from the database).
type DeployOperation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string // "success" or "error"

	// Filled in by publish before Close finalizes the record.
	Strategy       string
	ArtifactSize   int64
	ArtifactSHA256 string
}

// NewDeployOperation creates a new in-memory deploy operation.
func NewDeployOperation(operation, parameters string) *DeployOperation {
	return &DeployOperation{
		Operation:  operation,
		Parameters: parameters,
		Status:     "success",
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *DeployOperation) Persisted() bool {
	return op.ID != 0
}
