// Package ingest reads documents from the local filesystem and submits them
// to the processing queue.
package ingest

import (
	"context"
	"time"

	"github.com/joseph-ayodele/invoice-scanner/internal/async"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	DocumentID   string
	HashHex      string
	Deduplicated bool
	QueuedAt     time.Time
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Submitter accepts jobs for processing; async.ProcessorQueue satisfies it.
type Submitter interface {
	Enqueue(ctx context.Context, job async.Job) error
}

// Ingestor is the behavior the binaries depend on.
type Ingestor interface {
	// IngestPath submits a single file.
	IngestPath(ctx context.Context, path string) (IngestionResult, error)
	// IngestDirectory submits all matching files under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}
