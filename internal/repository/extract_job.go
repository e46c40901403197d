package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/permits-ledger/constants"
	"github.com/joseph-ayodele/permits-ledger/internal/entity"
)

type ExtractJobRepository interface {
	Start(ctx context.Context, documentID, batchID uuid.UUID) (*entity.ExtractJob, error)
	Finish(ctx context.Context, jobID uuid.UUID, status constants.JobStatus, pages, passes int, link string) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]entity.ExtractJob, error)
}

type extractJobRepo struct {
	db  *DB
	log *slog.Logger
}

func NewExtractJobRepository(db *DB, log *slog.Logger) ExtractJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractJobRepo{db: db, log: log}
}

func (r *extractJobRepo) Start(ctx context.Context, documentID, batchID uuid.UUID) (*entity.ExtractJob, error) {
	job := &entity.ExtractJob{
		ID:         uuid.New(),
		DocumentID: documentID,
		BatchID:    batchID,
		StartedAt:  time.Now().UTC(),
		Status:     string(constants.JobStatusRunning),
	}
	_, err := r.db.sql.ExecContext(ctx,
		r.db.rebind(`INSERT INTO extract_jobs (id, document_id, batch_id, started_at, status) VALUES (?, ?, ?, ?, ?)`),
		job.ID.String(), documentID.String(), batchID.String(), job.StartedAt, job.Status)
	if err != nil {
		r.log.Error("extract_job start failed", "document_id", documentID, "err", err)
		return nil, err
	}
	r.log.Debug("extract_job started", "job_id", job.ID, "document_id", documentID)
	return job, nil
}

func (r *extractJobRepo) Finish(ctx context.Context, jobID uuid.UUID, status constants.JobStatus, pages, passes int, link string) error {
	var linkArg any
	if link != "" {
		linkArg = link
	}
	res, err := r.db.sql.ExecContext(ctx,
		r.db.rebind(`UPDATE extract_jobs SET finished_at = ?, status = ?, pages = ?, passes = ?, link = ? WHERE id = ?`),
		time.Now().UTC(), string(status), pages, passes, linkArg, jobID.String())
	if err == nil {
		err = expectOne(res)
	}
	if err != nil {
		r.log.Error("extract_job finish failed", "job_id", jobID, "status", status, "err", err)
		return err
	}
	r.log.Debug("extract_job finished", "job_id", jobID, "status", status)
	return nil
}

func (r *extractJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error {
	res, err := r.db.sql.ExecContext(ctx,
		r.db.rebind(`UPDATE extract_jobs SET finished_at = ?, status = ?, error_message = ? WHERE id = ?`),
		time.Now().UTC(), string(constants.JobStatusFailed), message, jobID.String())
	if err == nil {
		err = expectOne(res)
	}
	if err != nil {
		r.log.Error("extract_job finish(FAILED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Warn("extract_job finished (FAILED)", "job_id", jobID, "error", message)
	return nil
}

func (r *extractJobRepo) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]entity.ExtractJob, error) {
	rows, err := r.db.sql.QueryContext(ctx,
		r.db.rebind(`SELECT id, document_id, batch_id, started_at, finished_at, status, error_message, pages, passes, link
			FROM extract_jobs WHERE batch_id = ? ORDER BY started_at, id`),
		batchID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.ExtractJob
	for rows.Next() {
		var (
			job              entity.ExtractJob
			id, docID, batch string
			finished         sql.NullTime
			errMsg, link     sql.NullString
		)
		if err := rows.Scan(&id, &docID, &batch, &job.StartedAt, &finished, &job.Status, &errMsg, &job.Pages, &job.Passes, &link); err != nil {
			return nil, err
		}
		if job.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if job.DocumentID, err = uuid.Parse(docID); err != nil {
			return nil, err
		}
		if job.BatchID, err = uuid.Parse(batch); err != nil {
			return nil, err
		}
		if finished.Valid {
			t := finished.Time
			job.FinishedAt = &t
		}
		if errMsg.Valid {
			job.ErrorMessage = &errMsg.String
		}
		if link.Valid {
			job.Link = &link.String
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
