package repository

import (
	"context"

	"github.com/sysu-ecnc-dev/floor-board/backend/internal/domain"
)

// ReplaceRoster 用新名单整体替换某现场某天的名单
func (r *Repository) ReplaceRoster(ctx context.Context, roster *domain.Roster) error {
	ctx, cancel := r.transactionContext(ctx)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		DELETE FROM roster_entries WHERE site_id = $1 AND date = $2::date
	`
	if _, err := tx.ExecContext(ctx, query, roster.SiteID, roster.Date); err != nil {
		return classify(err)
	}

	query = `
		INSERT INTO roster_entries (site_id, date, worker_id, position)
		VALUES ($1, $2::date, $3, $4)
		ON CONFLICT (site_id, date, worker_id) DO NOTHING
	`
	for i, workerID := range roster.WorkerIDs {
		if _, err := tx.ExecContext(ctx, query, roster.SiteID, roster.Date, workerID, i); err != nil {
			return classify(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return classify(err)
	}

	return nil
}

func (r *Repository) GetRoster(ctx context.Context, siteID, date string) (*domain.Roster, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		SELECT worker_id FROM roster_entries
		WHERE site_id = $1 AND date = $2::date
		ORDER BY position
	`

	rows, err := r.dbpool.QueryContext(ctx, query, siteID, date)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	roster := &domain.Roster{
		SiteID:    siteID,
		Date:      date,
		WorkerIDs: make([]string, 0),
	}
	for rows.Next() {
		var workerID string
		if err := rows.Scan(&workerID); err != nil {
			return nil, classify(err)
		}
		roster.WorkerIDs = append(roster.WorkerIDs, workerID)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	return roster, nil
}
