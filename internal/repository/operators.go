package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sysu-ecnc-dev/floor-board/backend/internal/domain"
)

func (r *Repository) GetOperatorByID(ctx context.Context, id int64) (*domain.Operator, error) {
	query := `
		SELECT username, password_hash, full_name, email, role, is_active, created_at, version
		FROM operators WHERE id = $1
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	op := &domain.Operator{
		ID: id,
	}

	dst := []any{&op.Username, &op.PasswordHash, &op.FullName, &op.Email, &op.Role, &op.IsActive, &op.CreatedAt, &op.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, classify(err)
	}

	return op, nil
}

func (r *Repository) GetOperatorByUsername(ctx context.Context, username string) (*domain.Operator, error) {
	query := `
		SELECT id, password_hash, full_name, email, role, is_active, created_at, version
		FROM operators WHERE username = $1
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	op := &domain.Operator{
		Username: username,
	}

	dst := []any{&op.ID, &op.PasswordHash, &op.FullName, &op.Email, &op.Role, &op.IsActive, &op.CreatedAt, &op.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, username).Scan(dst...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, classify(err)
	}

	return op, nil
}

// EnsureOperator 创建操作员，用户名已存在时不做修改并返回 false
func (r *Repository) EnsureOperator(ctx context.Context, op *domain.Operator) (bool, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		INSERT INTO operators (username, password_hash, full_name, email, role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (username) DO NOTHING
		RETURNING id, is_active, created_at, version
	`

	args := []any{op.Username, op.PasswordHash, op.FullName, op.Email, op.Role}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&op.ID, &op.IsActive, &op.CreatedAt, &op.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, classify(err)
	}

	return true, nil
}
