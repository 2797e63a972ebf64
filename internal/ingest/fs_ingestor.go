package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/async"
	"github.com/joseph-ayodele/invoice-scanner/internal/entity"
)

// FSIngestor reads from the local filesystem.
type FSIngestor struct {
	Queue  Submitter
	Logger *slog.Logger
	// Dedupe skips content already submitted by this ingestor. The watcher
	// sets it, since one save can fire several events.
	Dedupe bool

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewFSIngestor(q Submitter, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{Queue: q, Logger: logger, seen: map[string]struct{}{}}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	out := IngestionResult{SourcePath: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		i.Logger.Error("abs path error", "path", path, "error", err)
		return out, err
	}
	out.SourcePath = abs

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		i.Logger.Warn("unsupported or missing extension", "path", abs, "ext", ext)
		return out, fmt.Errorf("unsupported or missing extension %q", ext)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		i.Logger.Error("read error", "path", abs, "error", err)
		return out, err
	}
	sum := sha256.Sum256(data)
	out.HashHex = hex.EncodeToString(sum[:])

	if i.Dedupe && !i.markSeen(out.HashHex) {
		i.Logger.Debug("skipping already submitted content", "path", abs, "sha256", out.HashHex)
		out.Deduplicated = true
		return out, nil
	}

	doc := entity.Document{ID: uuid.New(), Name: filepath.Base(abs), Data: data}
	job := async.Job{Document: doc, SubmittedAt: time.Now().UTC(), TraceID: out.HashHex[:12]}
	if err := i.Queue.Enqueue(ctx, job); err != nil {
		i.forget(out.HashHex)
		i.Logger.Error("enqueue failed", "path", abs, "error", err)
		return out, err
	}

	out.DocumentID = doc.ID.String()
	out.QueuedAt = job.SubmittedAt
	return out, nil
}

// IngestDirectory walks root, skips hidden if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			r.Err = err.Error()
			results = append(results, r)
			stats.Failed++
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	i.Logger.Info("directory ingested", "root", root,
		"scanned", stats.Scanned, "matched", stats.Matched, "succeeded", stats.Succeeded, "failed", stats.Failed)
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

func (i *FSIngestor) markSeen(hash string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.seen == nil {
		i.seen = map[string]struct{}{}
	}
	if _, ok := i.seen[hash]; ok {
		return false
	}
	i.seen[hash] = struct{}{}
	return true
}

func (i *FSIngestor) forget(hash string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.seen, hash)
}

// AllowedExt checks if a file extension is in constants.AllowedExtensions.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
