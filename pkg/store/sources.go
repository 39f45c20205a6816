package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sitewatch/sitewatch/internal/models"
	"github.com/sitewatch/sitewatch/internal/types"
)

// SourceStore persists crawl source configurations.
type SourceStore struct {
	store *Store
}

// Insert stores a new source and returns its id, assigning one if unset.
func (ss *SourceStore) Insert(ctx context.Context, src *models.Source) (string, error) {
	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now()
	}
	if src.Status == "" {
		src.Status = models.StatusPending
	}

	_, err := ss.store.pool.Exec(ctx,
		`INSERT INTO sources
			(id, url, source_type, frequency, schedule_time, max_hits, content_types, enabled, status, last_crawl, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		src.ID, src.URL, src.Type, string(src.Frequency), src.ScheduleTime, src.MaxHits,
		contentTypesToStrings(src.ContentTypes), src.Enabled, string(src.Status), src.LastCrawl, src.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert source: %w", err)
	}
	return src.ID, nil
}

// Get loads one source. Unknown ids return types.ErrSourceNotFound.
func (ss *SourceStore) Get(ctx context.Context, id string) (*models.Source, error) {
	row := ss.store.pool.QueryRow(ctx,
		`SELECT id, url, source_type, frequency, schedule_time, max_hits, content_types, enabled, status, last_crawl, created_at
		 FROM sources WHERE id = $1`, id)

	src, err := scanSource(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrSourceNotFound
		}
		return nil, fmt.Errorf("get source %s: %w", id, err)
	}
	return src, nil
}

// List returns sources ordered by creation time, optionally enabled only.
func (ss *SourceStore) List(ctx context.Context, enabledOnly bool) ([]models.Source, error) {
	query := `SELECT id, url, source_type, frequency, schedule_time, max_hits, content_types, enabled, status, last_crawl, created_at
		FROM sources`
	if enabledOnly {
		query += ` WHERE enabled`
	}
	query += ` ORDER BY created_at`

	rows, err := ss.store.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []models.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("list sources: %w", err)
		}
		sources = append(sources, *src)
	}
	return sources, rows.Err()
}

// UpdateStatus sets a source's status and, when non-nil, its last crawl time.
func (ss *SourceStore) UpdateStatus(ctx context.Context, id string, status models.Status, lastCrawl *time.Time) error {
	var err error
	if lastCrawl != nil {
		_, err = ss.store.pool.Exec(ctx,
			`UPDATE sources SET status = $2, last_crawl = $3 WHERE id = $1`,
			id, string(status), *lastCrawl)
	} else {
		_, err = ss.store.pool.Exec(ctx,
			`UPDATE sources SET status = $2 WHERE id = $1`,
			id, string(status))
	}
	if err != nil {
		return fmt.Errorf("update source %s status: %w", id, err)
	}
	return nil
}

// Delete removes a source record, reporting whether it existed. Documents
// referencing the source are cascaded by the orchestrator before this call.
func (ss *SourceStore) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := ss.store.pool.Exec(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete source %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Count returns the number of sources, optionally enabled only.
func (ss *SourceStore) Count(ctx context.Context, enabledOnly bool) (int64, error) {
	query := `SELECT count(*) FROM sources`
	if enabledOnly {
		query += ` WHERE enabled`
	}

	var count int64
	if err := ss.store.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count sources: %w", err)
	}
	return count, nil
}

func scanSource(row pgx.Row) (*models.Source, error) {
	var (
		src          models.Source
		frequency    string
		status       string
		contentTypes []string
	)
	err := row.Scan(&src.ID, &src.URL, &src.Type, &frequency, &src.ScheduleTime, &src.MaxHits,
		&contentTypes, &src.Enabled, &status, &src.LastCrawl, &src.CreatedAt)
	if err != nil {
		return nil, err
	}
	src.Frequency = models.Frequency(frequency)
	src.Status = models.Status(status)
	src.ContentTypes = stringsToContentTypes(contentTypes)
	return &src, nil
}

func contentTypesToStrings(cts []models.ContentType) []string {
	out := make([]string, len(cts))
	for i, ct := range cts {
		out[i] = string(ct)
	}
	return out
}

func stringsToContentTypes(values []string) []models.ContentType {
	out := make([]models.ContentType, len(values))
	for i, v := range values {
		out[i] = models.ContentType(v)
	}
	return out
}
