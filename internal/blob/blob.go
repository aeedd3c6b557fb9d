// Package blob reads candidate artifacts (resumes, BFQ answer documents,
// the BFQ questions schema) from object storage.
package blob

import "context"

// Object is a downloaded blob with its user metadata.
type Object struct {
	Data     []byte
	Metadata map[string]string
}

// Store is the narrow consumer interface for object storage. A missing
// object returns (nil, nil): downloads race object deletion and a missing
// blob is a per-item condition, not a failure.
type Store interface {
	Download(ctx context.Context, key string) (*Object, error)
}
