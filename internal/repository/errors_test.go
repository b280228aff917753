package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/domain"
)

func TestClassify(t *testing.T) {
	require.NoError(t, classify(nil))

	require.ErrorIs(t, classify(context.DeadlineExceeded), domain.ErrTransient)
	// 会话关闭时取消的写入，结果未知
	canceled := classify(fmt.Errorf("query: %w", context.Canceled))
	require.ErrorIs(t, canceled, domain.ErrTransient)
	require.ErrorIs(t, canceled, context.Canceled)
	require.ErrorIs(t, classify(fmt.Errorf("exec: %w", driver.ErrBadConn)), domain.ErrTransient)
	require.ErrorIs(t, classify(&pgconn.PgError{Code: "57014"}), domain.ErrTransient)
	require.ErrorIs(t, classify(&pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"}), domain.ErrNotFound)

	require.ErrorIs(t, classify(&pgconn.PgError{Code: "55000"}), domain.ErrAlreadyClosed)

	other := &pgconn.PgError{Code: "42P01"}
	require.Same(t, other, classify(other))

	plain := errors.New("boom")
	require.Equal(t, plain, classify(plain))
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: activeWorkerConstraint})
	require.True(t, isUniqueViolation(err, activeWorkerConstraint))
	require.False(t, isUniqueViolation(err, workersPrimaryKey))
	require.False(t, isUniqueViolation(errors.New("boom"), activeWorkerConstraint))
}
