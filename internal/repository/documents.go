package repository

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/permits-ledger/internal/entity"
)

type DocumentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	GetByHash(ctx context.Context, category string, hash []byte) (*entity.Document, error)
	Create(ctx context.Context, category, sourcePath, filename string, size int64, hash []byte, uploadedAt time.Time) (*entity.Document, error)
	UpsertByHash(ctx context.Context, category, sourcePath, filename string, size int64, hash []byte, uploadedAt time.Time) (*entity.Document, bool, error)
}

type documentRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewDocumentRepository(db *DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepo{db: db, logger: logger}
}

const documentColumns = `id, category, filename, source_path, content_hash, file_size, uploaded_at`

func (r *documentRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	row := r.db.sql.QueryRowContext(ctx,
		r.db.rebind(`SELECT `+documentColumns+` FROM documents WHERE id = ?`), id.String())
	return scanDocument(row)
}

func (r *documentRepo) GetByHash(ctx context.Context, category string, hash []byte) (*entity.Document, error) {
	row := r.db.sql.QueryRowContext(ctx,
		r.db.rebind(`SELECT `+documentColumns+` FROM documents WHERE category = ? AND content_hash = ?`),
		category, hex.EncodeToString(hash))
	doc, err := scanDocument(row)
	if err != nil && !errors.Is(err, ErrNotFound) {
		r.logger.Error("failed to get document by hash", "category", category, "error", err)
	}
	return doc, err
}

func (r *documentRepo) Create(ctx context.Context, category, sourcePath, filename string, size int64, hash []byte, uploadedAt time.Time) (*entity.Document, error) {
	doc := &entity.Document{
		ID:          uuid.New(),
		Category:    category,
		Filename:    filename,
		SourcePath:  sourcePath,
		ContentHash: hash,
		FileSize:    size,
		UploadedAt:  uploadedAt.UTC(),
	}
	_, err := r.db.sql.ExecContext(ctx,
		r.db.rebind(`INSERT INTO documents (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		doc.ID.String(), doc.Category, doc.Filename, doc.SourcePath,
		hex.EncodeToString(doc.ContentHash), doc.FileSize, doc.UploadedAt)
	if err != nil {
		r.logger.Error("failed to create document", "category", category, "source_path", sourcePath, "filename", filename, "error", err)
		return nil, err
	}
	return doc, nil
}

// UpsertByHash returns the document already registered with this content
// in category, or registers a new one. The bool reports a duplicate.
func (r *documentRepo) UpsertByHash(ctx context.Context, category, sourcePath, filename string, size int64, hash []byte, uploadedAt time.Time) (*entity.Document, bool, error) {
	if existing, err := r.GetByHash(ctx, category, hash); err == nil {
		return existing, true, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	doc, err := r.Create(ctx, category, sourcePath, filename, size, hash, uploadedAt)
	if err != nil {
		r.logger.Error("failed to upsert document by hash", "category", category, "source_path", sourcePath, "error", err)
		return nil, false, err
	}
	return doc, false, nil
}

func scanDocument(row *sql.Row) (*entity.Document, error) {
	var (
		doc     entity.Document
		id      string
		hashHex string
	)
	err := row.Scan(&id, &doc.Category, &doc.Filename, &doc.SourcePath, &hashHex, &doc.FileSize, &doc.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if doc.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if doc.ContentHash, err = hex.DecodeString(hashHex); err != nil {
		return nil, err
	}
	return &doc, nil
}
