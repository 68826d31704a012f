// Package artifacts stores downloadable summary and extracted-text files.
package artifacts

import (
	"context"
	"errors"
	"time"
)

// Artifact kinds.
const (
	KindSummary       = "summary"
	KindExtractedText = "extracted_text"
)

// ErrNotFound is returned for unknown or expired artifacts.
var ErrNotFound = errors.New("artifact not found")

// Artifact is a text file offered for download.
type Artifact struct {
	ID          string
	Kind        string
	FileName    string
	ContentType string
	Content     []byte
	CreatedAt   time.Time
	// ExpiresAt is zero for artifacts that never expire.
	ExpiresAt time.Time
}

// Expired reports whether the artifact is past its expiry at now.
func (a *Artifact) Expired(now time.Time) bool {
	return !a.ExpiresAt.IsZero() && !now.Before(a.ExpiresAt)
}

// Store defines the interface for storing and retrieving artifacts.
type Store interface {
	// Initialize opens the store at path.
	Initialize(path string) error

	// Close closes the store and releases any resources.
	Close() error

	// Put stores an artifact, assigning an ID and creation time when missing,
	// and returns the stored artifact.
	Put(ctx context.Context, a Artifact) (*Artifact, error)

	// Get returns a stored artifact that has not expired.
	Get(ctx context.Context, id string) (*Artifact, error)

	// PurgeExpired deletes artifacts expired at now and returns how many were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}
