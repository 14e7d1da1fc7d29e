// internal/database/developers.go
package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/model"
)

const developerColumns = `id, name, email, user_id, git_name, git_email, is_merged, merged_with_id, is_active,
	created_at, updated_at`

func scanDeveloper(row pgx.Row) (model.Developer, error) {
	var d model.Developer
	err := row.Scan(&d.ID, &d.Name, &d.Email, &d.UserID, &d.GitName, &d.GitEmail, &d.IsMerged,
		&d.MergedWithID, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

// GetDeveloperByEmail resolves an author email to a developer. When several
// rows share an email the oldest wins.
func (q *Queries) GetDeveloperByEmail(ctx context.Context, email string) (model.Developer, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+developerColumns+` FROM developers WHERE email = $1 ORDER BY id LIMIT 1`, email)
	d, err := scanDeveloper(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Developer{}, apperror.NotFound("developer", email)
	}
	return d, err
}

type CreateDeveloperParams struct {
	Name     string
	Email    string
	GitName  *string
	GitEmail *string
}

func (q *Queries) CreateDeveloper(ctx context.Context, arg CreateDeveloperParams) (model.Developer, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO developers (name, email, git_name, git_email)
		VALUES ($1, $2, $3, $4)
		RETURNING `+developerColumns,
		arg.Name, arg.Email, arg.GitName, arg.GitEmail)
	return scanDeveloper(row)
}

func (q *Queries) ListDevelopers(ctx context.Context) ([]model.Developer, error) {
	rows, err := q.db.Query(ctx, `SELECT `+developerColumns+` FROM developers WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Developer
	for rows.Next() {
		d, err := scanDeveloper(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
