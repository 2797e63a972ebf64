package async

import (
	"context"
	"time"

	"github.com/joseph-ayodele/invoice-scanner/internal/entity"
)

// Job is one document waiting for the pipeline.
type Job struct {
	Document    entity.Document
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
