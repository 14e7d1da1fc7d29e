// internal/database/commits.go
package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/indrek8/ai-git-analyzer/internal/model"
)

const commitColumns = `id, sha, message, author_name, author_email, committer_name, committer_email, commit_date,
	repository_id, developer_id, lines_added, lines_removed, files_changed, files_modified, files_added,
	files_deleted, branch, parent_shas, is_merge, is_analyzed, created_at, updated_at`

func scanCommit(row pgx.Row) (model.Commit, error) {
	var c model.Commit
	err := row.Scan(&c.ID, &c.SHA, &c.Message, &c.AuthorName, &c.AuthorEmail, &c.CommitterName,
		&c.CommitterEmail, &c.CommitDate, &c.RepositoryID, &c.DeveloperID, &c.LinesAdded, &c.LinesRemoved,
		&c.FilesChanged, &c.FilesModified, &c.FilesAdded, &c.FilesDeleted, &c.Branch, &c.ParentSHAs,
		&c.IsMerge, &c.IsAnalyzed, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

type CreateCommitsParams struct {
	SHA            string
	Message        string
	AuthorName     string
	AuthorEmail    string
	CommitterName  *string
	CommitterEmail *string
	CommitDate     time.Time
	RepositoryID   int64
	DeveloperID    *int64
	LinesAdded     int32
	LinesRemoved   int32
	FilesChanged   int32
	FilesModified  []string
	FilesAdded     []string
	FilesDeleted   []string
	Branch         *string
	ParentSHAs     []string
	IsMerge        bool
}

const insertCommit = `
INSERT INTO commits (sha, message, author_name, author_email, committer_name, committer_email, commit_date,
	repository_id, developer_id, lines_added, lines_removed, files_changed, files_modified, files_added,
	files_deleted, branch, parent_shas, is_merge)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
ON CONFLICT (repository_id, sha) DO NOTHING`

// CreateCommits bulk-inserts commits, skipping SHAs the repository already
// has. Returns the number of rows actually inserted.
func (q *Queries) CreateCommits(ctx context.Context, args []CreateCommitsParams) (int64, error) {
	if len(args) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, arg := range args {
		batch.Queue(insertCommit,
			arg.SHA, arg.Message, arg.AuthorName, arg.AuthorEmail, arg.CommitterName, arg.CommitterEmail,
			arg.CommitDate, arg.RepositoryID, arg.DeveloperID, arg.LinesAdded, arg.LinesRemoved,
			arg.FilesChanged, arg.FilesModified, arg.FilesAdded, arg.FilesDeleted, arg.Branch,
			arg.ParentSHAs, arg.IsMerge)
	}

	results := q.db.SendBatch(ctx, batch)
	defer results.Close()

	var inserted int64
	for range args {
		tag, err := results.Exec()
		if err != nil {
			return inserted, err
		}
		inserted += tag.RowsAffected()
	}
	return inserted, results.Close()
}

type CommitExistsParams struct {
	RepositoryID int64
	SHA          string
}

// CommitExists reports whether a commit SHA has already been ingested for the
// repository. The sync pipeline checks this before fetching commit detail.
func (q *Queries) CommitExists(ctx context.Context, arg CommitExistsParams) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM commits WHERE repository_id = $1 AND sha = $2)`,
		arg.RepositoryID, arg.SHA).Scan(&exists)
	return exists, err
}

type ListCommitsByRepositoryParams struct {
	RepositoryID int64
	Limit        int32
	Offset       int32
}

func (q *Queries) ListCommitsByRepository(ctx context.Context, arg ListCommitsByRepositoryParams) ([]model.Commit, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+commitColumns+` FROM commits
		WHERE repository_id = $1
		ORDER BY commit_date DESC
		LIMIT $2 OFFSET $3`,
		arg.RepositoryID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Commit
	for rows.Next() {
		c, err := scanCommit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *Queries) CountCommitsByRepository(ctx context.Context, repositoryID int64) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx,
		`SELECT count(*) FROM commits WHERE repository_id = $1`, repositoryID).Scan(&n)
	return n, err
}
