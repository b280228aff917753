package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation 表示调用方输入不合法，写入之前就被拒绝
	ErrValidation = errors.New("输入参数不合法")
	// ErrTransient 表示存储超时或连接失败，由操作员决定是否重试
	ErrTransient = errors.New("存储暂时不可用")
	// ErrNotFound 表示操作的记录不存在
	ErrNotFound = errors.New("记录不存在")
	// ErrAlreadyClosed 表示分配已经签出，签出后不允许再修改
	ErrAlreadyClosed = fmt.Errorf("%w: 该人员已签出", ErrNotFound)
)

// ConflictError 表示该人员已经在某个区域中，没有发出写入
type ConflictError struct {
	WorkerID string
	AreaID   string
}

func (e *ConflictError) Error() string {
	if e.AreaID == "" {
		return fmt.Sprintf("人员 %s 已经在场", e.WorkerID)
	}
	return fmt.Sprintf("人员 %s 已经在区域 %s 中", e.WorkerID, e.AreaID)
}

// IsConflict 判断 err 链中是否存在 ConflictError
func IsConflict(err error) bool {
	var conflictErr *ConflictError
	return errors.As(err, &conflictErr)
}
