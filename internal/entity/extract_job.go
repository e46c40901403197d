package entity

import (
	"time"

	"github.com/google/uuid"
)

// ExtractJob records one processing attempt of a document.
type ExtractJob struct {
	ID           uuid.UUID  `json:"id"`
	DocumentID   uuid.UUID  `json:"document_id"`
	BatchID      uuid.UUID  `json:"batch_id"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Status       string     `json:"status"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	Pages        int        `json:"pages"`
	Passes       int        `json:"passes"`
	Link         *string    `json:"link,omitempty"`
}
