package storage

import (
	"context"
	"database/sql"
	"errors"
)

// JobRepo handles backup_jobs.
type JobRepo struct {
	db *sql.DB
}

const jobSelect = `
SELECT j.id, j.repository_id, COALESCE(r.full_name, ''), j.status, j.started_at, j.completed_at,
       j.error_message, j.backup_file_path, j.file_size
FROM backup_jobs j
LEFT JOIN repositories r ON r.id = j.repository_id`

func scanJob(row interface{ Scan(...any) error }) (BackupJob, error) {
	var (
		job         BackupJob
		repoID      sql.NullInt64
		completedAt sql.NullTime
	)
	if err := row.Scan(&job.ID, &repoID, &job.RepositoryName, &job.Status, &job.StartedAt, &completedAt,
		&job.ErrorMessage, &job.BackupFilePath, &job.FileSize); err != nil {
		return BackupJob{}, err
	}
	if repoID.Valid {
		id := repoID.Int64
		job.RepositoryID = &id
	}
	job.CompletedAt = nullTimePtr(completedAt)
	return job, nil
}

func (r *JobRepo) query(ctx context.Context, q string, args ...any) ([]BackupJob, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BackupJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// Create inserts a running job for the repository.
func (r *JobRepo) Create(ctx context.Context, repositoryID int64) (*BackupJob, error) {
	now := Now()
	res, err := r.db.ExecContext(ctx, `
	INSERT INTO backup_jobs(repository_id, status, started_at) VALUES (?, ?, ?)`,
		repositoryID, JobRunning, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &BackupJob{ID: id, RepositoryID: &repositoryID, Status: JobRunning, StartedAt: now}, nil
}

// Complete marks a job completed with its archive location and size.
func (r *JobRepo) Complete(ctx context.Context, id int64, path string, size int64) error {
	return r.finish(ctx, `
	UPDATE backup_jobs SET status = ?, completed_at = ?, backup_file_path = ?, file_size = ?
	WHERE id = ?`, JobCompleted, Now(), path, size, id)
}

// Fail marks a job failed with the error message.
func (r *JobRepo) Fail(ctx context.Context, id int64, message string) error {
	return r.finish(ctx, `
	UPDATE backup_jobs SET status = ?, completed_at = ?, error_message = ? WHERE id = ?`,
		JobFailed, Now(), message, id)
}

func (r *JobRepo) finish(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns a job by id or ErrNotFound.
func (r *JobRepo) Get(ctx context.Context, id int64) (*BackupJob, error) {
	job, err := scanJob(r.db.QueryRowContext(ctx, jobSelect+` WHERE j.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Recent returns the newest jobs first.
func (r *JobRepo) Recent(ctx context.Context, limit int) ([]BackupJob, error) {
	return r.query(ctx, jobSelect+` ORDER BY j.started_at DESC, j.id DESC LIMIT ?`, limit)
}

// Running returns jobs currently in progress.
func (r *JobRepo) Running(ctx context.Context) ([]BackupJob, error) {
	return r.query(ctx, jobSelect+` WHERE j.status = ? ORDER BY j.started_at`, JobRunning)
}

// CountRunning returns the number of jobs in progress.
func (r *JobRepo) CountRunning(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM backup_jobs WHERE status = ?`, JobRunning).Scan(&n)
	return n, err
}

// CompletedForRepository returns completed jobs of a repository, newest first.
func (r *JobRepo) CompletedForRepository(ctx context.Context, repositoryID int64) ([]BackupJob, error) {
	return r.query(ctx, jobSelect+` WHERE j.repository_id = ? AND j.status = ?
	ORDER BY j.completed_at DESC, j.id DESC`, repositoryID, JobCompleted)
}

// Delete removes a job row.
func (r *JobRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM backup_jobs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// FailInterrupted marks every running job failed. Used on startup after a crash.
func (r *JobRepo) FailInterrupted(ctx context.Context, message string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
	UPDATE backup_jobs SET status = ?, completed_at = ?, error_message = ? WHERE status = ?`,
		JobFailed, Now(), message, JobRunning)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// TotalArchiveSize sums the size of completed archives.
func (r *JobRepo) TotalArchiveSize(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(file_size), 0) FROM backup_jobs WHERE status = ?`, JobCompleted).Scan(&n)
	return n, err
}
