package dp

import "fmt"

// DefaultDirectUploadLimit is the largest archive, in bytes, that is sent
// inline with the update call. Anything larger goes through a transient
// storage bucket.
const DefaultDirectUploadLimit int64 = 50_000_000

// Artifact describes a built deployment archive on disk.
type Artifact struct {
	Path     string
	Size     int64
	Checksum string // SHA-256 of the archive bytes, lowercase hex
}

// Strategy identifies which publish path an artifact takes.
type Strategy string

const (
	// StrategyDirect sends the archive bytes inline with the update call.
	StrategyDirect Strategy = "direct"
	// StrategyBucket stages the archive in a transient storage bucket
	// and updates the function from the bucket object.
	StrategyBucket Strategy = "bucket"
)

// SelectStrategy chooses the publish path for an artifact of the given size.
// limit <= 0 falls back to DefaultDirectUploadLimit. The two paths are
// mutually exclusive; there is no mixed path.
func SelectStrategy(size, limit int64) Strategy {
	if limit <= 0 {
		limit = DefaultDirectUploadLimit
	}
	if size <= limit {
		return StrategyDirect
	}
	return StrategyBucket
}

// String formats the artifact for operator messages.
func (a *Artifact) String() string {
	return fmt.Sprintf("%s (%d bytes, sha256:%s)", a.Path, a.Size, a.Checksum)
}
