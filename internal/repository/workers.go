package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/sysu-ecnc-dev/floor-board/backend/internal/domain"
)

const workerColumns = `
	worker_id, name, company, employment_type, agency, skills,
	default_start_time, default_end_time, active, panel, created_at, updated_at, version
`

func scanWorker(row scanner, w *domain.Worker) error {
	var skills, panel []byte

	dst := []any{
		&w.WorkerID, &w.Name, &w.Company, &w.EmploymentType, &w.Agency, &skills,
		&w.DefaultStartTime, &w.DefaultEndTime, &w.Active, &panel, &w.CreatedAt, &w.UpdatedAt, &w.Version,
	}
	if err := row.Scan(dst...); err != nil {
		return err
	}

	w.Skills = make([]string, 0)
	if len(skills) > 0 {
		if err := json.Unmarshal(skills, &w.Skills); err != nil {
			return err
		}
	}
	w.Panel = domain.WorkerPanel{Badges: make([]string, 0)}
	if len(panel) > 0 {
		if err := json.Unmarshal(panel, &w.Panel); err != nil {
			return err
		}
	}
	return nil
}

// workerUpsertArgs 生成合并写入的参数，nil 参数在 SQL 中表示保留原值
func workerUpsertArgs(workerID string, patch *domain.WorkerPatch) ([]any, error) {
	var skills, panel any
	if patch.Skills != nil {
		b, err := json.Marshal(patch.Skills)
		if err != nil {
			return nil, err
		}
		skills = string(b)
	}
	if patch.Panel != nil {
		if patch.Panel.Badges == nil {
			patch.Panel.Badges = make([]string, 0)
		}
		b, err := json.Marshal(patch.Panel)
		if err != nil {
			return nil, err
		}
		panel = string(b)
	}

	return []any{
		workerID,
		patch.Name,
		patch.Company,
		patch.EmploymentType,
		patch.Agency,
		skills,
		patch.DefaultStartTime,
		patch.DefaultEndTime,
		patch.Active,
		panel,
	}, nil
}

// UpsertWorker 按 workerId 合并写入：没有给出的字段保持原值，给出的字段覆盖
func (r *Repository) UpsertWorker(ctx context.Context, workerID string, patch *domain.WorkerPatch) (*domain.Worker, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		INSERT INTO workers (
			worker_id, name, company, employment_type, agency, skills,
			default_start_time, default_end_time, active, panel
		)
		VALUES (
			$1,
			COALESCE($2::text, ''),
			COALESCE($3::text, ''),
			COALESCE($4::text, ''),
			COALESCE($5::text, ''),
			COALESCE($6::jsonb, '[]'::jsonb),
			COALESCE($7::text, ''),
			COALESCE($8::text, ''),
			COALESCE($9::boolean, TRUE),
			COALESCE($10::jsonb, '{"color": "", "badges": []}'::jsonb)
		)
		ON CONFLICT (worker_id) DO UPDATE SET
			name = COALESCE($2::text, workers.name),
			company = COALESCE($3::text, workers.company),
			employment_type = COALESCE($4::text, workers.employment_type),
			agency = COALESCE($5::text, workers.agency),
			skills = COALESCE($6::jsonb, workers.skills),
			default_start_time = COALESCE($7::text, workers.default_start_time),
			default_end_time = COALESCE($8::text, workers.default_end_time),
			active = COALESCE($9::boolean, workers.active),
			panel = COALESCE($10::jsonb, workers.panel),
			updated_at = now(),
			version = workers.version + 1
		RETURNING ` + workerColumns

	args, err := workerUpsertArgs(workerID, patch)
	if err != nil {
		return nil, err
	}

	w := &domain.Worker{}
	if err := scanWorker(r.dbpool.QueryRowContext(ctx, query, args...), w); err != nil {
		return nil, classify(err)
	}

	return w, nil
}

func (r *Repository) GetWorker(ctx context.Context, workerID string) (*domain.Worker, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `SELECT ` + workerColumns + ` FROM workers WHERE worker_id = $1`

	w := &domain.Worker{}
	if err := scanWorker(r.dbpool.QueryRowContext(ctx, query, workerID), w); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, classify(err)
	}

	return w, nil
}

func (r *Repository) GetAllWorkers(ctx context.Context) ([]*domain.Worker, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `SELECT ` + workerColumns + ` FROM workers ORDER BY worker_id`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	workers := make([]*domain.Worker, 0)
	for rows.Next() {
		w := &domain.Worker{}
		if err := scanWorker(rows, w); err != nil {
			return nil, classify(err)
		}
		workers = append(workers, w)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	return workers, nil
}

func (r *Repository) DeleteWorker(ctx context.Context, workerID string) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		DELETE FROM workers WHERE worker_id = $1
	`

	res, err := r.dbpool.ExecContext(ctx, query, workerID)
	if err != nil {
		return classify(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}

	return nil
}
