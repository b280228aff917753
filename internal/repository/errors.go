package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/domain"
)

const (
	// 同一楼层同一人员最多只有一条 out_at 为空的记录
	activeWorkerConstraint = "assignments_active_worker_key"
	workersPrimaryKey      = "workers_pkey"
)

// 连接、超时、资源不足一类的 SQLSTATE
var transientCodes = map[string]bool{
	"08000": true, // connection_exception
	"08001": true, // sqlclient_unable_to_establish_sqlconnection
	"08003": true, // connection_does_not_exist
	"08006": true, // connection_failure
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"53300": true, // too_many_connections
	"57014": true, // query_canceled
	"57P01": true, // admin_shutdown
	"57P03": true, // cannot_connect_now
}

func transient(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrTransient, err)
}

// classify 把驱动返回的错误归类为 domain 中的错误，无法归类的原样返回
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "22P02":
			// 非法的 uuid 之类，说明记录不可能存在
			return fmt.Errorf("%w: %s", domain.ErrNotFound, pgErr.Message)
		case pgErr.Code == "55000":
			// 由 assignments_freeze_closed 触发器抛出
			return domain.ErrAlreadyClosed
		case transientCodes[pgErr.Code]:
			return transient(err)
		}
		return err
	}

	var connectErr *pgconn.ConnectError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn),
		pgconn.Timeout(err),
		pgconn.SafeToRetry(err),
		errors.As(err, &connectErr),
		errors.As(err, &netErr):
		return transient(err)
	}

	return err
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}
