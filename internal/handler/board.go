package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/board"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/livequery"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsReadLimit  = 4096
)

type clientMessage struct {
	RequestID string `json:"requestId"`
	Action    string `json:"action"`
	WorkerID  string `json:"workerId"`
	AreaID    string `json:"areaId"`
}

type sessionMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

type viewMessage struct {
	Type string     `json:"type"`
	View board.View `json:"view"`
}

type resultMessage struct {
	Type         string `json:"type"`
	RequestID    string `json:"requestId"`
	OK           bool   `json:"ok"`
	Message      string `json:"message"`
	AssignmentID string `json:"assignmentId,omitempty"`
}

var errUnknownAction = errors.New("未知的操作")

func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

func (h *Handler) boardDate(r *http.Request) string {
	if date := r.URL.Query().Get("date"); date != "" {
		if _, err := time.Parse(time.DateOnly, date); err == nil {
			return date
		}
	}
	return h.config.Today(time.Now())
}

func (h *Handler) loadDirectory(ctx context.Context) (board.Directory, error) {
	workers, err := h.repository.GetAllWorkers(ctx)
	if err != nil {
		return nil, err
	}

	directory := make(board.Directory, len(workers))
	for _, w := range workers {
		directory[w.WorkerID] = *w
	}
	return directory, nil
}

// GetBoardView 返回某楼层当前的渲染模型，不建立会话
func (h *Handler) GetBoardView(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteId")
	floorID := chi.URLParam(r, "floorId")
	date := h.boardDate(r)

	active, err := h.repository.ListActiveAssignments(r.Context(), siteID, floorID)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	roster, err := h.repository.GetRoster(r.Context(), siteID, date)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	directory, err := h.loadDirectory(r.Context())
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	view := board.NewReconciler().Apply(board.Snapshot{SiteID: siteID, FloorID: floorID, Assignments: active})
	h.successResponse(w, r, "获取看板成功", board.MakeView(siteID, floorID, date, view, roster.WorkerIDs, directory))
}

// ServeBoard 通过 websocket 建立看板会话。
//
// 服务器推送 view（每次重绘）和 result（每个命令的结果），客户端发送 place、move、checkout 命令。
// 会话只有一个写 goroutine，view 只保留最新的一份。
func (h *Handler) ServeBoard(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteId")
	floorID := chi.URLParam(r, "floorId")
	date := h.boardDate(r)

	directory, err := h.loadDirectory(r.Context())
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade 已经写入了错误响应
		slog.Warn("无法升级 websocket 连接", "error", err)
		return
	}
	defer conn.Close()

	sessionID := uuid.New().String()
	logger := slog.With("session", sessionID, "site", siteID, "floor", floorID, "date", date)
	logger.Info("看板会话已建立")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// 会话结束时关闭连接，使阻塞中的 ReadJSON 返回
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	views := make(chan board.View, 1)
	results := make(chan resultMessage, h.config.Board.OutboxSize)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		h.writeLoop(ctx, conn, logger, sessionID, views, results)
	}()

	snapshots, err := h.store.SubscribeActive(ctx, siteID, floorID)
	if err != nil {
		logger.Warn("无法订阅在场记录", "error", err)
		closeSession(conn, websocket.CloseTryAgainLater, "实时查询暂时不可用")
		cancel()
		wg.Wait()
		return
	}
	rosters, err := h.store.SubscribeRoster(ctx, siteID, date)
	if err != nil {
		logger.Warn("无法订阅名单", "error", err)
		closeSession(conn, websocket.CloseTryAgainLater, "实时查询暂时不可用")
		cancel()
		wg.Wait()
		return
	}

	renderer := board.RendererFunc(func(ctx context.Context, v board.View) error {
		livequery.OfferLatest(views, v)
		return nil
	})
	b := board.New(siteID, floorID, date, h.lifecycle, renderer,
		board.WithDirectory(directory),
		board.WithLogger(logger),
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		if err := b.Run(ctx, snapshots, rosters); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("看板会话异常结束", "error", err)
			closeSession(conn, websocket.CloseTryAgainLater, err.Error())
		}
	}()

	h.readLoop(ctx, conn, logger, b, results, &wg)

	cancel()
	wg.Wait()
	logger.Info("看板会话已结束")
}

func closeSession(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, logger *slog.Logger, b *board.Board, results chan<- resultMessage, wg *sync.WaitGroup) {
	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	timeout := time.Duration(h.config.Board.WriteTimeout) * time.Second

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("读取 websocket 消息失败", "error", err)
			}
			return
		}

		action, ok := board.ParseAction(msg.Action)
		if !ok {
			h.deliver(ctx, logger, results, msg, h.commandResult(msg, "", errUnknownAction))
			continue
		}

		// 按接收顺序交给看板，只有等待写入结果是并发的
		cmdCtx, cancel := context.WithTimeout(ctx, timeout)
		pending, err := b.Enqueue(cmdCtx, action, msg.WorkerID, msg.AreaID)
		if err != nil {
			cancel()
			h.deliver(ctx, logger, results, msg, h.commandResult(msg, "", err))
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer cancel()

			id, err := pending.Wait(cmdCtx)
			h.deliver(ctx, logger, results, msg, h.commandResult(msg, id, err))
		}()
	}
}

func (h *Handler) deliver(ctx context.Context, logger *slog.Logger, results chan<- resultMessage, msg clientMessage, res resultMessage) {
	if !res.OK {
		logger.Info("命令被拒绝", "action", msg.Action, "worker", msg.WorkerID, "area", msg.AreaID, "message", res.Message)
	}

	select {
	case results <- res:
	case <-ctx.Done():
	}
}

func (h *Handler) commandResult(msg clientMessage, assignmentID string, err error) resultMessage {
	res := resultMessage{Type: "result", RequestID: msg.RequestID}

	if err == nil {
		res.OK = true
		res.AssignmentID = assignmentID
		res.Message = "操作成功"
		return res
	}

	switch {
	case errors.Is(err, errUnknownAction):
		res.Message = err.Error()
	case errors.Is(err, board.ErrBoardStopped):
		res.Message = err.Error()
	case errors.Is(err, context.Canceled):
		// 会话正在关闭
		res.Message = board.ErrBoardStopped.Error()
	case errors.Is(err, context.DeadlineExceeded):
		res.Message = transientMessage
	default:
		text, kind := describeError(h.translator, err)
		if kind == kindInternal {
			slog.Error("看板命令执行失败", "action", msg.Action, "worker", msg.WorkerID, "error", err)
		}
		res.Message = text
	}
	return res
}

func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, logger *slog.Logger, sessionID string, views <-chan board.View, results <-chan resultMessage) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	write := func(v any) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(v); err != nil {
			logger.Warn("写入 websocket 消息失败", "error", err)
			return false
		}
		return true
	}

	if !write(sessionMessage{Type: "session", SessionID: sessionID}) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case v := <-views:
			if !write(viewMessage{Type: "view", View: v}) {
				return
			}
		case res := <-results:
			if !write(res) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				logger.Warn("发送 ping 失败", "error", err)
				return
			}
		}
	}
}
