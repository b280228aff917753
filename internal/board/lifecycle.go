package board

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/domain"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/metrics"
)

// Lifecycle 把入场、换区、签出转换为对 Gateway 的写入，是分配记录唯一的写入方。
// 写入失败会立即返回给调用方，不做重试。
type Lifecycle struct {
	gateway  Gateway
	validate *validator.Validate
}

func NewLifecycle(gateway Gateway, validate *validator.Validate) *Lifecycle {
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return &Lifecycle{
		gateway:  gateway,
		validate: validate,
	}
}

type openInput struct {
	SiteID   string `validate:"required,max=64"`
	FloorID  string `validate:"required,max=64"`
	AreaID   string `validate:"required,max=64"`
	WorkerID string `validate:"required,max=64"`
}

type relocateInput struct {
	AssignmentID string `validate:"required"`
	AreaID       string `validate:"required,max=64"`
}

type closeInput struct {
	AssignmentID string `validate:"required"`
}

func (l *Lifecycle) check(v any) error {
	if err := l.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	return nil
}

// Open 创建一条新的在场分配并返回其 ID。
//
// 调用方需要事先在本地确认该人员没有在场的分配，这里不会再次检查；
// 如果存储拒绝了重复的在场记录，返回 *domain.ConflictError。
func (l *Lifecycle) Open(ctx context.Context, siteID, floorID, areaID, workerID string) (id string, err error) {
	defer func() { metrics.ObserveLifecycle("open", err) }()

	in := openInput{
		SiteID:   strings.TrimSpace(siteID),
		FloorID:  strings.TrimSpace(floorID),
		AreaID:   strings.TrimSpace(areaID),
		WorkerID: strings.TrimSpace(workerID),
	}
	if err := l.check(in); err != nil {
		return "", err
	}

	a := &domain.Assignment{
		SiteID:   in.SiteID,
		FloorID:  in.FloorID,
		AreaID:   in.AreaID,
		WorkerID: in.WorkerID,
	}
	if err := l.gateway.CreateAssignment(ctx, a); err != nil {
		return "", err
	}

	return a.ID, nil
}

// Relocate 把仍在场的分配移动到新的区域。
// newAreaID 与当前区域相同时应由调用方跳过调用。
func (l *Lifecycle) Relocate(ctx context.Context, assignmentID, newAreaID string) (err error) {
	defer func() { metrics.ObserveLifecycle("relocate", err) }()

	in := relocateInput{
		AssignmentID: strings.TrimSpace(assignmentID),
		AreaID:       strings.TrimSpace(newAreaID),
	}
	if err := l.check(in); err != nil {
		return err
	}

	_, err = l.gateway.RelocateAssignment(ctx, in.AssignmentID, in.AreaID)
	return err
}

// Close 签出分配。签出是终态，再次签出返回 domain.ErrAlreadyClosed。
func (l *Lifecycle) Close(ctx context.Context, assignmentID string) (err error) {
	defer func() { metrics.ObserveLifecycle("close", err) }()

	in := closeInput{AssignmentID: strings.TrimSpace(assignmentID)}
	if err := l.check(in); err != nil {
		return err
	}

	_, err = l.gateway.CloseAssignment(ctx, in.AssignmentID)
	return err
}
