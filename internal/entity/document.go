package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document is a submitted permit PDF staged in its category's intake folder.
type Document struct {
	ID          uuid.UUID `json:"id"`
	Category    string    `json:"category"`
	Filename    string    `json:"filename"`
	SourcePath  string    `json:"source_path"`
	ContentHash []byte    `json:"content_hash"`
	FileSize    int64     `json:"file_size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
