// internal/syncer/ingest.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/database"
	"github.com/indrek8/ai-git-analyzer/internal/model"
	"github.com/indrek8/ai-git-analyzer/internal/tasks"
)

// SyncResult summarizes one repository ingestion run.
type SyncResult struct {
	RepositoryID    int64      `json:"repository_id"`
	Repository      string     `json:"repository"`
	CommitsListed   int        `json:"commits_listed"`
	CommitsInserted int        `json:"commits_inserted"`
	Since           *time.Time `json:"since,omitempty"`
}

// SyncRepository ingests new commit history for one repository: list refs
// since the checkpoint, fetch details, resolve developers, insert in
// batches, then advance the checkpoint. Transient upstream failures retry
// the whole run; the run is idempotent, so a retry re-covers the same
// window without duplicating commits.
func (s *Syncer) SyncRepository(ctx context.Context, repositoryID int64, job *tasks.Job) (*SyncResult, error) {
	if err := s.acquire(repositoryID); err != nil {
		return nil, err
	}
	defer s.release(repositoryID)

	logger := s.logger.With("repository_id", repositoryID)

	result, err := withRetry(ctx, logger, func() (*SyncResult, error) {
		return s.syncOnce(ctx, repositoryID, job)
	})
	if err != nil {
		s.markSyncFailed(ctx, repositoryID, err)
		return nil, err
	}
	return result, nil
}

func (s *Syncer) syncOnce(ctx context.Context, repositoryID int64, job *tasks.Job) (*SyncResult, error) {
	report := progressReporter(job)

	repo, err := s.store.GetRepository(ctx, repositoryID)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With("repository", repo.FullName, "repository_id", repo.ID)
	report(5, "preparing sync")

	owner, name, err := ownerAndName(repo)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.UpdateRepositorySyncStatus(ctx, database.UpdateRepositorySyncStatusParams{
		ID:         repo.ID,
		SyncStatus: model.SyncSyncing,
	}); err != nil {
		return nil, err
	}

	client, err := s.sources.ClientFor(repo.Provider, s.resolveToken(ctx, repo))
	if err != nil {
		return nil, err
	}

	report(10, "refreshing repository metadata")
	info, err := client.RepositoryInfo(ctx, owner, name)
	if err != nil {
		return nil, err
	}
	repo, err = s.store.UpdateRepositoryMetadata(ctx, database.UpdateRepositoryMetadataParams{
		ID:            repo.ID,
		Description:   info.Description,
		DefaultBranch: info.DefaultBranch,
		IsPrivate:     info.IsPrivate,
	})
	if err != nil {
		return nil, err
	}

	since := repo.LastSyncedAt
	refs, err := client.ListCommits(ctx, owner, name, since)
	if err != nil {
		return nil, err
	}
	logger.Info("commit listing complete", "count", len(refs), "since", since)

	result := &SyncResult{
		RepositoryID:  repo.ID,
		Repository:    repo.FullName,
		CommitsListed: len(refs),
		Since:         since,
	}

	report(40, "fetching commit details")

	devCache := make(map[string]int64)
	processed := 0
	for start := 0; start < len(refs); start += commitBatchSize {
		end := min(start+commitBatchSize, len(refs))

		params := make([]database.CreateCommitsParams, 0, end-start)
		for _, ref := range refs[start:end] {
			exists, err := s.store.CommitExists(ctx, database.CommitExistsParams{
				RepositoryID: repo.ID,
				SHA:          ref.SHA,
			})
			if err != nil {
				return nil, err
			}
			if exists {
				processed++
				continue
			}

			detail, err := client.CommitDetail(ctx, owner, name, ref.SHA)
			if err != nil {
				// A listed commit can vanish before the detail fetch
				// (force push). Skip it rather than failing the run.
				if errors.Is(err, apperror.ErrUpstreamNotFound) {
					logger.Warn("commit disappeared upstream, skipping", "sha", ref.SHA)
					processed++
					continue
				}
				return nil, err
			}

			developerID, err := s.resolveDeveloper(ctx, devCache, detail.AuthorName, detail.AuthorEmail)
			if err != nil {
				return nil, err
			}
			params = append(params, toCreateCommitsParams(repo, detail, developerID))
			processed++
		}

		var inserted int64
		if err := s.store.WithTx(ctx, func(q database.Querier) error {
			n, err := q.CreateCommits(ctx, params)
			inserted = n
			return err
		}); err != nil {
			return nil, err
		}
		result.CommitsInserted += int(inserted)

		pct := 40 + int(float64(processed)/float64(len(refs))*50)
		report(pct, fmt.Sprintf("ingested %d/%d commits", processed, len(refs)))
	}

	report(95, "finalizing")
	if _, err := s.store.CompleteRepositorySync(ctx, repo.ID); err != nil {
		return nil, err
	}

	logger.Info("repository sync complete", "listed", result.CommitsListed, "inserted", result.CommitsInserted)
	return result, nil
}

// resolveDeveloper maps an author email to a developer id, creating the
// developer on first sight. Creation happens outside the commit batch
// transaction so a later batch failure does not orphan the mapping.
func (s *Syncer) resolveDeveloper(ctx context.Context, cache map[string]int64, name, email string) (int64, error) {
	if id, ok := cache[email]; ok {
		return id, nil
	}

	dev, err := s.store.GetDeveloperByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		gitName, gitEmail := name, email
		dev, err = s.store.CreateDeveloper(ctx, database.CreateDeveloperParams{
			Name:     name,
			Email:    email,
			GitName:  &gitName,
			GitEmail: &gitEmail,
		})
	}
	if err != nil {
		return 0, err
	}
	cache[email] = dev.ID
	return dev.ID, nil
}

func (s *Syncer) markSyncFailed(ctx context.Context, repositoryID int64, cause error) {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, apperror.ErrSyncInProgress) ||
		errors.Is(cause, apperror.ErrNotFound) {
		return
	}
	if _, err := s.store.UpdateRepositorySyncStatus(ctx, database.UpdateRepositorySyncStatusParams{
		ID:         repositoryID,
		SyncStatus: model.SyncFailed,
		SyncError:  errMsg(cause),
	}); err != nil {
		s.logger.Error("failed to record sync failure", "repository_id", repositoryID, "error", err)
	}
}

func toCreateCommitsParams(repo model.Repository, d model.CommitDetail, developerID int64) database.CreateCommitsParams {
	devID := developerID
	branch := repo.DefaultBranch
	return database.CreateCommitsParams{
		SHA:            d.SHA,
		Message:        d.Message,
		AuthorName:     d.AuthorName,
		AuthorEmail:    d.AuthorEmail,
		CommitterName:  optStr(d.CommitterName),
		CommitterEmail: optStr(d.CommitterEmail),
		CommitDate:     d.CommitDate,
		RepositoryID:   repo.ID,
		DeveloperID:    &devID,
		LinesAdded:     d.LinesAdded,
		LinesRemoved:   d.LinesRemoved,
		FilesChanged:   d.FilesChanged,
		FilesModified:  d.FilesModified,
		FilesAdded:     d.FilesAdded,
		FilesDeleted:   d.FilesDeleted,
		Branch:         optStr(branch),
		ParentSHAs:     d.ParentSHAs,
		IsMerge:        d.IsMerge,
	}
}

func progressReporter(job *tasks.Job) func(int, string) {
	if job == nil {
		return func(int, string) {}
	}
	return job.ReportProgress
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
