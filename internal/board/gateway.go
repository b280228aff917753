// Package board 实现人员在场看板的核心：分配的生命周期（入场、换区、签出）、
// 基于快照的在场视图重建，以及待分配池与在场人员的划分。
//
// 一个 Board 对应一个连接的看板客户端，所有状态只在 Board.Run 的 goroutine 中读写。
// 存储写入在独立的 goroutine 中完成，完成后以事件的形式回到 Run 中处理，
// 因此 Run 从不阻塞在存储上。
package board

import (
	"context"

	"github.com/sysu-ecnc-dev/floor-board/backend/internal/domain"
)

// Gateway 是分配记录的写入接口。
//
// 实现需要把存储错误归类为 domain.ErrNotFound、domain.ErrAlreadyClosed、
// domain.ErrTransient 或 *domain.ConflictError，并且不做自动重试。
type Gateway interface {
	// CreateAssignment 创建一条 outAt 为空的分配，回填 ID、Date 以及各个服务器时间戳
	CreateAssignment(ctx context.Context, a *domain.Assignment) error
	// RelocateAssignment 修改仍在场的分配的 areaId
	RelocateAssignment(ctx context.Context, assignmentID, areaID string) (*domain.Assignment, error)
	// CloseAssignment 设置 outAt，签出之后记录不可再修改
	CloseAssignment(ctx context.Context, assignmentID string) (*domain.Assignment, error)
}

// Snapshot 是某个楼层当前所有在场分配（outAt 为空）的完整结果集，而不是增量。
// 新的快照总是完全取代旧的快照。
type Snapshot struct {
	SiteID      string
	FloorID     string
	Assignments []domain.Assignment
}

// SnapshotSource 提供在场分配的实时查询，每次变化都推送完整快照。
// 同一个订阅者看到的快照顺序与服务器接受写入的顺序一致，订阅结束时关闭 channel。
type SnapshotSource interface {
	SubscribeActive(ctx context.Context, siteID, floorID string) (<-chan Snapshot, error)
}

// RosterSource 提供某个现场某一天名单的实时查询
type RosterSource interface {
	SubscribeRoster(ctx context.Context, siteID, date string) (<-chan domain.Roster, error)
}
