package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sysu-ecnc-dev/floor-board/backend/internal/domain"
)

const assignmentColumns = `
	id::text, site_id, floor_id, area_id, worker_id, to_char(date, 'YYYY-MM-DD'),
	in_at, out_at, created_at, updated_at
`

func scanAssignment(row scanner, a *domain.Assignment) error {
	var outAt sql.NullTime

	dst := []any{&a.ID, &a.SiteID, &a.FloorID, &a.AreaID, &a.WorkerID, &a.Date, &a.InAt, &outAt, &a.CreatedAt, &a.UpdatedAt}
	if err := row.Scan(dst...); err != nil {
		return err
	}

	a.OutAt = nil
	if outAt.Valid {
		t := outAt.Time
		a.OutAt = &t
	}
	return nil
}

// CreateAssignment 插入在场记录，日期和所有时间戳都由数据库生成
func (r *Repository) CreateAssignment(ctx context.Context, a *domain.Assignment) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		INSERT INTO assignments (site_id, floor_id, area_id, worker_id, date)
		VALUES ($1, $2, $3, $4, (now() AT TIME ZONE $5)::date)
		RETURNING ` + assignmentColumns

	args := []any{a.SiteID, a.FloorID, a.AreaID, a.WorkerID, r.cfg.Site.Timezone}
	if err := scanAssignment(r.dbpool.QueryRowContext(ctx, query, args...), a); err != nil {
		if isUniqueViolation(err, activeWorkerConstraint) {
			return r.activeConflict(ctx, a.SiteID, a.FloorID, a.WorkerID)
		}
		return classify(err)
	}

	return nil
}

// activeConflict 查出已经存在的在场记录所在区域，用于提示操作员
func (r *Repository) activeConflict(ctx context.Context, siteID, floorID, workerID string) error {
	query := `
		SELECT area_id FROM assignments
		WHERE site_id = $1 AND floor_id = $2 AND worker_id = $3 AND out_at IS NULL
		LIMIT 1
	`

	conflictErr := &domain.ConflictError{WorkerID: workerID}
	// 查询失败也要返回冲突，只是没有区域信息
	_ = r.dbpool.QueryRowContext(ctx, query, siteID, floorID, workerID).Scan(&conflictErr.AreaID)
	return conflictErr
}

func (r *Repository) RelocateAssignment(ctx context.Context, assignmentID, areaID string) (*domain.Assignment, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		UPDATE assignments
		SET area_id = $2, updated_at = now()
		WHERE id = $1 AND out_at IS NULL
		RETURNING ` + assignmentColumns

	a := &domain.Assignment{}
	if err := scanAssignment(r.dbpool.QueryRowContext(ctx, query, assignmentID, areaID), a); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.explainMissing(ctx, assignmentID)
		}
		return nil, classify(err)
	}

	return a, nil
}

func (r *Repository) CloseAssignment(ctx context.Context, assignmentID string) (*domain.Assignment, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		UPDATE assignments
		SET out_at = now(), updated_at = now()
		WHERE id = $1 AND out_at IS NULL
		RETURNING ` + assignmentColumns

	a := &domain.Assignment{}
	if err := scanAssignment(r.dbpool.QueryRowContext(ctx, query, assignmentID), a); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.explainMissing(ctx, assignmentID)
		}
		return nil, classify(err)
	}

	return a, nil
}

// explainMissing 区分记录不存在和已经签出两种情况
func (r *Repository) explainMissing(ctx context.Context, assignmentID string) error {
	query := `
		SELECT out_at IS NOT NULL FROM assignments WHERE id = $1
	`

	closed := false
	if err := r.dbpool.QueryRowContext(ctx, query, assignmentID).Scan(&closed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return classify(err)
	}

	if closed {
		return domain.ErrAlreadyClosed
	}
	// 在两次查询之间被重新打开是不可能的，只可能是并发删除
	return domain.ErrNotFound
}

func (r *Repository) GetAssignment(ctx context.Context, assignmentID string) (*domain.Assignment, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`

	a := &domain.Assignment{}
	if err := scanAssignment(r.dbpool.QueryRowContext(ctx, query, assignmentID), a); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, classify(err)
	}

	return a, nil
}

// ListActiveAssignments 返回某楼层所有 out_at 为空的分配
func (r *Repository) ListActiveAssignments(ctx context.Context, siteID, floorID string) ([]domain.Assignment, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		SELECT ` + assignmentColumns + `
		FROM assignments
		WHERE site_id = $1 AND floor_id = $2 AND out_at IS NULL
		ORDER BY in_at
	`

	rows, err := r.dbpool.QueryContext(ctx, query, siteID, floorID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	assignments := make([]domain.Assignment, 0)
	for rows.Next() {
		var a domain.Assignment
		if err := scanAssignment(rows, &a); err != nil {
			return nil, classify(err)
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	return assignments, nil
}
