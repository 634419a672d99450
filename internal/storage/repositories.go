package storage

import (
	"context"
	"database/sql"
	"errors"
)

// RepositoryRepo handles repositories.
type RepositoryRepo struct {
	db *sql.DB
}

const repositoryColumns = `id, name, full_name, clone_url, enabled, last_backup, created_at`

func scanRepository(row interface{ Scan(...any) error }) (Repository, error) {
	var (
		repo       Repository
		lastBackup sql.NullTime
	)
	if err := row.Scan(&repo.ID, &repo.Name, &repo.FullName, &repo.CloneURL, &repo.Enabled, &lastBackup, &repo.CreatedAt); err != nil {
		return Repository{}, err
	}
	repo.LastBackup = nullTimePtr(lastBackup)
	return repo, nil
}

func (r *RepositoryRepo) query(ctx context.Context, q string, args ...any) ([]Repository, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, repo)
	}
	return out, rows.Err()
}

// List returns every repository ordered by full name.
func (r *RepositoryRepo) List(ctx context.Context) ([]Repository, error) {
	return r.query(ctx, `SELECT `+repositoryColumns+` FROM repositories ORDER BY full_name`)
}

// ListEnabled returns repositories selected for backup.
func (r *RepositoryRepo) ListEnabled(ctx context.Context) ([]Repository, error) {
	return r.query(ctx, `SELECT `+repositoryColumns+` FROM repositories WHERE enabled = 1 ORDER BY full_name`)
}

// CountEnabled returns the number of repositories selected for backup.
func (r *RepositoryRepo) CountEnabled(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM repositories WHERE enabled = 1`).Scan(&n)
	return n, err
}

// Count returns the total number of repositories.
func (r *RepositoryRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM repositories`).Scan(&n)
	return n, err
}

// Get returns a repository by id or ErrNotFound.
func (r *RepositoryRepo) Get(ctx context.Context, id int64) (*Repository, error) {
	repo, err := scanRepository(r.db.QueryRowContext(ctx, `SELECT `+repositoryColumns+` FROM repositories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &repo, nil
}

// InsertIfMissing adds an enabled repository unless one with the same full name exists.
// It reports whether a row was inserted.
func (r *RepositoryRepo) InsertIfMissing(ctx context.Context, name, fullName, cloneURL string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
	INSERT INTO repositories(name, full_name, clone_url, enabled, created_at)
	VALUES (?, ?, ?, 1, ?)
	ON CONFLICT(full_name) DO NOTHING;
	`, name, fullName, cloneURL, Now())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Toggle flips the enabled flag and returns the updated repository.
func (r *RepositoryRepo) Toggle(ctx context.Context, id int64) (*Repository, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE repositories SET enabled = 1 - enabled WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, id)
}

// SetAllEnabled enables or disables every repository and returns the affected count.
func (r *RepositoryRepo) SetAllEnabled(ctx context.Context, enabled bool) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE repositories SET enabled = ?`, boolToInt(enabled))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// TouchLastBackup records a successful backup time.
func (r *RepositoryRepo) TouchLastBackup(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE repositories SET last_backup = ? WHERE id = ?`, Now(), id)
	return err
}
