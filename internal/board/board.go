package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sysu-ecnc-dev/floor-board/backend/internal/domain"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/metrics"
)

var (
	// ErrBoardStopped 表示 Run 已经退出
	ErrBoardStopped = errors.New("看板会话已结束")
	// ErrBoardNotReady 表示还没有收到第一个快照，无法在本地检查人员是否已经在场
	ErrBoardNotReady = fmt.Errorf("%w: 看板尚未同步完成", domain.ErrTransient)
	// ErrSnapshotFeedClosed 表示实时查询已经结束
	ErrSnapshotFeedClosed = errors.New("实时查询已关闭")
)

// Renderer 接收看板的渲染模型。Render 返回错误或者 panic 只会记录警告，不影响后续事件。
type Renderer interface {
	Render(ctx context.Context, v View) error
}

type RendererFunc func(ctx context.Context, v View) error

func (f RendererFunc) Render(ctx context.Context, v View) error {
	return f(ctx, v)
}

// Action 是操作员在看板上可以发出的命令
type Action int

const (
	ActionPlace Action = iota
	ActionMove
	ActionCheckout
)

func (k Action) String() string {
	switch k {
	case ActionPlace:
		return "place"
	case ActionMove:
		return "move"
	case ActionCheckout:
		return "checkout"
	default:
		return "unknown"
	}
}

// ParseAction 解析客户端发来的操作名
func ParseAction(s string) (Action, bool) {
	switch s {
	case "place":
		return ActionPlace, true
	case "move":
		return ActionMove, true
	case "checkout":
		return ActionCheckout, true
	default:
		return 0, false
	}
}

type commandResult struct {
	assignmentID string
	err          error
}

type command struct {
	kind     Action
	workerID string
	areaID   string
	reply    chan commandResult
}

type completion struct {
	cmd    command
	result commandResult
}

// Board 是一个看板客户端的会话，拥有在场视图和待分配池。
//
// 所有状态只在 Run 的 goroutine 中修改：快照、名单更新、操作员命令以及写入完成都是
// 依次处理的离散事件。写入在单独的 goroutine 中进行，期间其他事件照常处理。
type Board struct {
	siteID  string
	floorID string
	date    string

	lifecycle *Lifecycle
	renderer  Renderer
	directory Directory
	logger    *slog.Logger

	commands    chan command
	completions chan completion
	stopped     chan struct{}
	stopOnce    sync.Once
	writes      sync.WaitGroup

	reconciler *Reconciler
	roster     []string
	ready      bool
	revision   uint64
}

type Option func(*Board)

// WithDirectory 设置用于显示姓名的人员查找表
func WithDirectory(d Directory) Option {
	return func(b *Board) {
		b.directory = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Board) {
		b.logger = logger
	}
}

func New(siteID, floorID, date string, lifecycle *Lifecycle, renderer Renderer, opts ...Option) *Board {
	b := &Board{
		siteID:      siteID,
		floorID:     floorID,
		date:        date,
		lifecycle:   lifecycle,
		renderer:    renderer,
		directory:   Directory{},
		logger:      slog.Default(),
		commands:    make(chan command),
		completions: make(chan completion),
		stopped:     make(chan struct{}),
		reconciler:  NewReconciler(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("site", siteID, "floor", floorID)
	return b
}

// Run 处理事件直到 ctx 结束或者快照 channel 被关闭。
// rosters 可以为 nil，此时名单视为空。
func (b *Board) Run(ctx context.Context, snapshots <-chan Snapshot, rosters <-chan domain.Roster) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		b.writes.Wait()
		b.stopOnce.Do(func() { close(b.stopped) })
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-snapshots:
			if !ok {
				return ErrSnapshotFeedClosed
			}
			view := b.reconciler.Apply(s)
			metrics.ObserveDuplicates(b.siteID, b.floorID, len(view.Duplicates()))
			b.ready = true
			b.render(ctx)
		case r, ok := <-rosters:
			if !ok {
				rosters = nil
				continue
			}
			b.roster = r.WorkerIDs
			if b.ready {
				b.render(ctx)
			}
		case cmd := <-b.commands:
			b.handleCommand(ctx, cmd)
		case c := <-b.completions:
			b.handleCompletion(ctx, c)
		}
	}
}

// Place 把待分配池中的人员放入区域，返回新分配的 ID。
// 如果该人员已经在最近的视图中，直接返回 *domain.ConflictError，不发出写入。
func (b *Board) Place(ctx context.Context, areaID, workerID string) (string, error) {
	return b.do(ctx, ActionPlace, workerID, areaID)
}

// Move 把在场人员移动到另一个区域，目标区域与当前区域相同时不发出写入
func (b *Board) Move(ctx context.Context, workerID, areaID string) error {
	_, err := b.do(ctx, ActionMove, workerID, areaID)
	return err
}

// Checkout 签出在场人员
func (b *Board) Checkout(ctx context.Context, workerID string) error {
	_, err := b.do(ctx, ActionCheckout, workerID, "")
	return err
}

func (b *Board) do(ctx context.Context, action Action, workerID, areaID string) (string, error) {
	p, err := b.Enqueue(ctx, action, workerID, areaID)
	if err != nil {
		return "", err
	}
	return p.Wait(ctx)
}

// Pending 是已经被 Run 接收的命令
type Pending struct {
	b   *Board
	cmd command
}

// Enqueue 把命令交给 Run，在 Run 接收之后立即返回，不等待写入完成。
// 同一个调用方依次 Enqueue 的命令按顺序处理。
func (b *Board) Enqueue(ctx context.Context, action Action, workerID, areaID string) (*Pending, error) {
	cmd := command{
		kind:     action,
		workerID: strings.TrimSpace(workerID),
		areaID:   strings.TrimSpace(areaID),
		reply:    make(chan commandResult, 1),
	}

	select {
	case b.commands <- cmd:
		return &Pending{b: b, cmd: cmd}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.stopped:
		return nil, ErrBoardStopped
	}
}

// Wait 等待命令的结果。入场成功时返回新分配的 ID，移动和签出返回被修改的分配 ID。
func (p *Pending) Wait(ctx context.Context) (string, error) {
	select {
	case res := <-p.cmd.reply:
		return res.assignmentID, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-p.b.stopped:
		// 写入可能恰好在退出前完成
		select {
		case res := <-p.cmd.reply:
			return res.assignmentID, res.err
		default:
			return "", ErrBoardStopped
		}
	}
}

func (b *Board) reject(cmd command, err error) {
	metrics.ObserveLocalRejection(cmd.kind.String(), err)
	cmd.reply <- commandResult{err: err}
}

func (b *Board) handleCommand(ctx context.Context, cmd command) {
	if cmd.workerID == "" {
		b.reject(cmd, fmt.Errorf("%w: 缺少 workerId", domain.ErrValidation))
		return
	}
	if cmd.kind != ActionCheckout && cmd.areaID == "" {
		b.reject(cmd, fmt.Errorf("%w: 缺少 areaId", domain.ErrValidation))
		return
	}
	if !b.ready {
		b.reject(cmd, ErrBoardNotReady)
		return
	}

	view := b.reconciler.View()
	current, placed := view.Lookup(cmd.workerID)

	switch cmd.kind {
	case ActionPlace:
		if placed {
			b.reject(cmd, &domain.ConflictError{WorkerID: cmd.workerID, AreaID: current.AreaID})
			return
		}
		b.reconciler.AddPending(Placement{AreaID: cmd.areaID, WorkerID: cmd.workerID})
		b.render(ctx)
		b.write(ctx, cmd, func(ctx context.Context) (string, error) {
			return b.lifecycle.Open(ctx, b.siteID, b.floorID, cmd.areaID, cmd.workerID)
		})
	case ActionMove:
		if !placed {
			b.reject(cmd, fmt.Errorf("%w: 人员 %s 不在场", domain.ErrNotFound, cmd.workerID))
			return
		}
		if current.AreaID == cmd.areaID {
			cmd.reply <- commandResult{assignmentID: current.AssignmentID}
			return
		}
		if current.Pending {
			b.reject(cmd, ErrBoardNotReady)
			return
		}
		b.write(ctx, cmd, func(ctx context.Context) (string, error) {
			return current.AssignmentID, b.lifecycle.Relocate(ctx, current.AssignmentID, cmd.areaID)
		})
	case ActionCheckout:
		if !placed {
			b.reject(cmd, fmt.Errorf("%w: 人员 %s 不在场", domain.ErrNotFound, cmd.workerID))
			return
		}
		if current.Pending {
			b.reject(cmd, ErrBoardNotReady)
			return
		}
		b.write(ctx, cmd, func(ctx context.Context) (string, error) {
			return current.AssignmentID, b.lifecycle.Close(ctx, current.AssignmentID)
		})
	}
}

// write 在单独的 goroutine 中执行写入，完成后把结果交回 Run
func (b *Board) write(ctx context.Context, cmd command, fn func(ctx context.Context) (string, error)) {
	b.writes.Add(1)
	go func() {
		defer b.writes.Done()

		id, err := fn(ctx)
		c := completion{cmd: cmd, result: commandResult{assignmentID: id, err: err}}

		select {
		case b.completions <- c:
		case <-ctx.Done():
			cmd.reply <- c.result
		}
	}()
}

func (b *Board) handleCompletion(ctx context.Context, c completion) {
	defer func() { c.cmd.reply <- c.result }()

	if c.cmd.kind != ActionPlace {
		if c.result.err != nil {
			b.logger.Warn("写入失败", "operation", c.cmd.kind.String(), "worker", c.cmd.workerID, "error", c.result.err)
		}
		return
	}

	if c.result.err != nil {
		b.logger.Warn("入场失败", "worker", c.cmd.workerID, "area", c.cmd.areaID, "error", c.result.err)
		if b.reconciler.DropPending(c.cmd.workerID) {
			b.render(ctx)
		}
		return
	}

	b.reconciler.ConfirmPending(c.cmd.workerID, c.result.assignmentID)
}

func (b *Board) render(ctx context.Context) {
	b.revision++
	v := MakeView(b.siteID, b.floorID, b.date, b.reconciler.View(), b.roster, b.directory)
	v.Revision = b.revision

	defer func() {
		if r := recover(); r != nil {
			metrics.ObserveRenderFailure()
			b.logger.Warn("重绘失败", "revision", v.Revision, "panic", r)
		}
	}()

	if err := b.renderer.Render(ctx, v); err != nil {
		metrics.ObserveRenderFailure()
		b.logger.Warn("重绘失败", "revision", v.Revision, "error", err)
	}
}
