package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/config"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/domain"
)

var assignmentRowColumns = []string{"id", "site_id", "floor_id", "area_id", "worker_id", "date", "in_at", "out_at", "created_at", "updated_at"}

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{}
	cfg.Database.QueryTimeout = 2
	cfg.Database.TransactionTimeout = 2
	cfg.Site.Timezone = "Asia/Shanghai"

	return NewRepository(cfg, db), mock
}

func assignmentRow(id, areaID, workerID string, outAt any) *sqlmock.Rows {
	at := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(assignmentRowColumns).
		AddRow(id, "site1", "1F", areaID, workerID, "2026-10-14", at, outAt, at, at)
}

func TestCreateAssignment(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO assignments")).
		WithArgs("site1", "1F", "A", "W1", "Asia/Shanghai").
		WillReturnRows(assignmentRow("as-1", "A", "W1", nil))

	a := &domain.Assignment{SiteID: "site1", FloorID: "1F", AreaID: "A", WorkerID: "W1"}
	require.NoError(t, repo.CreateAssignment(context.Background(), a))
	require.Equal(t, "as-1", a.ID)
	require.Equal(t, "2026-10-14", a.Date)
	require.True(t, a.Active())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAssignment_ActiveWorkerConflict(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO assignments")).
		WithArgs("site1", "1F", "B", "W1", "Asia/Shanghai").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: activeWorkerConstraint})
	mock.ExpectQuery(regexp.QuoteMeta("SELECT area_id FROM assignments")).
		WithArgs("site1", "1F", "W1").
		WillReturnRows(sqlmock.NewRows([]string{"area_id"}).AddRow("A"))

	a := &domain.Assignment{SiteID: "site1", FloorID: "1F", AreaID: "B", WorkerID: "W1"}
	err := repo.CreateAssignment(context.Background(), a)

	var conflictErr *domain.ConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Equal(t, "W1", conflictErr.WorkerID)
	require.Equal(t, "A", conflictErr.AreaID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAssignment_ConflictLookupFails(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO assignments")).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: activeWorkerConstraint})
	mock.ExpectQuery(regexp.QuoteMeta("SELECT area_id FROM assignments")).
		WillReturnError(context.DeadlineExceeded)

	err := repo.CreateAssignment(context.Background(), &domain.Assignment{SiteID: "site1", FloorID: "1F", AreaID: "B", WorkerID: "W1"})
	require.True(t, domain.IsConflict(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAssignment_OtherUniqueViolation(t *testing.T) {
	repo, mock := newMockRepository(t)

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "assignments_pkey"}
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO assignments")).WillReturnError(pgErr)

	err := repo.CreateAssignment(context.Background(), &domain.Assignment{SiteID: "site1", FloorID: "1F", AreaID: "B", WorkerID: "W1"})
	require.False(t, domain.IsConflict(err))
	require.ErrorIs(t, err, pgErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseAssignment(t *testing.T) {
	repo, mock := newMockRepository(t)

	out := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`UPDATE assignments\s+SET out_at = now\(\)`).
		WithArgs("as-1").
		WillReturnRows(assignmentRow("as-1", "A", "W1", out))

	a, err := repo.CloseAssignment(context.Background(), "as-1")
	require.NoError(t, err)
	require.False(t, a.Active())
	require.Equal(t, out, *a.OutAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseAssignment_AlreadyClosed(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`UPDATE assignments\s+SET out_at = now\(\)`).
		WithArgs("as-1").
		WillReturnRows(sqlmock.NewRows(assignmentRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT out_at IS NOT NULL FROM assignments WHERE id = $1")).
		WithArgs("as-1").
		WillReturnRows(sqlmock.NewRows([]string{"closed"}).AddRow(true))

	_, err := repo.CloseAssignment(context.Background(), "as-1")
	require.ErrorIs(t, err, domain.ErrAlreadyClosed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseAssignment_Missing(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`UPDATE assignments\s+SET out_at = now\(\)`).
		WithArgs("as-404").
		WillReturnRows(sqlmock.NewRows(assignmentRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT out_at IS NOT NULL FROM assignments WHERE id = $1")).
		WithArgs("as-404").
		WillReturnRows(sqlmock.NewRows([]string{"closed"}))

	_, err := repo.CloseAssignment(context.Background(), "as-404")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NotErrorIs(t, err, domain.ErrAlreadyClosed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRelocateAssignment_AlreadyClosed(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`UPDATE assignments\s+SET area_id = \$2`).
		WithArgs("as-1", "B").
		WillReturnRows(sqlmock.NewRows(assignmentRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT out_at IS NOT NULL FROM assignments WHERE id = $1")).
		WithArgs("as-1").
		WillReturnRows(sqlmock.NewRows([]string{"closed"}).AddRow(true))

	_, err := repo.RelocateAssignment(context.Background(), "as-1", "B")
	require.ErrorIs(t, err, domain.ErrAlreadyClosed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseAssignment_FrozenByTrigger(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`UPDATE assignments\s+SET out_at = now\(\)`).
		WithArgs("as-1").
		WillReturnError(&pgconn.PgError{Code: "55000"})

	_, err := repo.CloseAssignment(context.Background(), "as-1")
	require.ErrorIs(t, err, domain.ErrAlreadyClosed)
	require.NoError(t, mock.ExpectationsWereMet())
}
