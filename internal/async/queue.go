package async

import (
	"context"
	"time"

	"github.com/joseph-ayodele/permits-ledger/constants"
)

// Job is one document waiting in an intake folder.
type Job struct {
	Category    constants.Category
	Path        string
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
