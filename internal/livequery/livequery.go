// Package livequery 在 Postgres 之上提供带实时订阅的文档存储。
//
// 每次写入之后通过 Redis 发布变更通知，订阅者收到通知后重新查询完整结果集再推送，
// 因此推送的总是快照而不是增量。通知丢失时由定时重新同步兜底。
package livequery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/board"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/config"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/domain"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/metrics"
)

type AssignmentRepository interface {
	CreateAssignment(ctx context.Context, a *domain.Assignment) error
	RelocateAssignment(ctx context.Context, assignmentID, areaID string) (*domain.Assignment, error)
	CloseAssignment(ctx context.Context, assignmentID string) (*domain.Assignment, error)
	ListActiveAssignments(ctx context.Context, siteID, floorID string) ([]domain.Assignment, error)
}

type RosterRepository interface {
	GetRoster(ctx context.Context, siteID, date string) (*domain.Roster, error)
}

type Store struct {
	cfg         *config.Config
	assignments AssignmentRepository
	rosters     RosterRepository
	redisClient *redis.Client
}

var (
	_ board.Gateway        = (*Store)(nil)
	_ board.SnapshotSource = (*Store)(nil)
	_ board.RosterSource   = (*Store)(nil)
)

func NewStore(cfg *config.Config, assignments AssignmentRepository, rosters RosterRepository, rdb *redis.Client) *Store {
	return &Store{
		cfg:         cfg,
		assignments: assignments,
		rosters:     rosters,
		redisClient: rdb,
	}
}

// ChangeEvent 是发布到 Redis 的变更通知，订阅者只把它当作“需要重新查询”的信号
type ChangeEvent struct {
	Kind         string `json:"kind"`
	AssignmentID string `json:"assignmentId,omitempty"`
	WorkerID     string `json:"workerId,omitempty"`
	AreaID       string `json:"areaId,omitempty"`
}

func assignmentsChannel(prefix, siteID, floorID string) string {
	return fmt.Sprintf("%s:assignments:%s:%s", prefix, siteID, floorID)
}

func rosterChannel(prefix, siteID, date string) string {
	return fmt.Sprintf("%s:roster:%s:%s", prefix, siteID, date)
}

func (s *Store) publish(ctx context.Context, channel string, event ChangeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("无法序列化变更通知", "channel", channel, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Duration(s.cfg.Redis.OperationTimeout)*time.Second)
	defer cancel()

	// 写入已经成功，通知失败时只记录警告，订阅者会在下次重新同步时收敛
	if err := s.redisClient.Publish(ctx, channel, payload).Err(); err != nil {
		slog.Warn("无法发布变更通知", "channel", channel, "error", err)
	}
}

func (s *Store) notifyAssignment(ctx context.Context, kind string, a *domain.Assignment) {
	s.publish(ctx, assignmentsChannel(s.cfg.Redis.ChannelPrefix, a.SiteID, a.FloorID), ChangeEvent{
		Kind:         kind,
		AssignmentID: a.ID,
		WorkerID:     a.WorkerID,
		AreaID:       a.AreaID,
	})
}

// NotifyRoster 通知名单已经被替换
func (s *Store) NotifyRoster(ctx context.Context, siteID, date string) {
	s.publish(ctx, rosterChannel(s.cfg.Redis.ChannelPrefix, siteID, date), ChangeEvent{Kind: "roster"})
}

func (s *Store) CreateAssignment(ctx context.Context, a *domain.Assignment) error {
	if err := s.assignments.CreateAssignment(ctx, a); err != nil {
		return err
	}
	s.notifyAssignment(ctx, "open", a)
	return nil
}

func (s *Store) RelocateAssignment(ctx context.Context, assignmentID, areaID string) (*domain.Assignment, error) {
	a, err := s.assignments.RelocateAssignment(ctx, assignmentID, areaID)
	if err != nil {
		return nil, err
	}
	s.notifyAssignment(ctx, "relocate", a)
	return a, nil
}

func (s *Store) CloseAssignment(ctx context.Context, assignmentID string) (*domain.Assignment, error) {
	a, err := s.assignments.CloseAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	s.notifyAssignment(ctx, "close", a)
	return a, nil
}

// SubscribeActive 订阅某楼层的在场分配，订阅成功后立即推送一次当前快照
func (s *Store) SubscribeActive(ctx context.Context, siteID, floorID string) (<-chan board.Snapshot, error) {
	channel := assignmentsChannel(s.cfg.Redis.ChannelPrefix, siteID, floorID)
	load := func(ctx context.Context) (board.Snapshot, error) {
		rows, err := s.assignments.ListActiveAssignments(ctx, siteID, floorID)
		if err != nil {
			return board.Snapshot{}, err
		}
		return board.Snapshot{SiteID: siteID, FloorID: floorID, Assignments: rows}, nil
	}
	return subscribe(ctx, s, "assignments", channel, load)
}

// SubscribeRoster 订阅某现场某天的名单
func (s *Store) SubscribeRoster(ctx context.Context, siteID, date string) (<-chan domain.Roster, error) {
	channel := rosterChannel(s.cfg.Redis.ChannelPrefix, siteID, date)
	load := func(ctx context.Context) (domain.Roster, error) {
		roster, err := s.rosters.GetRoster(ctx, siteID, date)
		if err != nil {
			return domain.Roster{}, err
		}
		return *roster, nil
	}
	return subscribe(ctx, s, "roster", channel, load)
}

func subscribe[T any](ctx context.Context, s *Store, kind, channel string, load func(context.Context) (T, error)) (<-chan T, error) {
	ps := s.redisClient.Subscribe(ctx, channel)

	// 等待订阅确认，确保之后的通知不会丢失
	subCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Redis.ConnectTimeout)*time.Second)
	defer cancel()
	if _, err := ps.Receive(subCtx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}

	first, err := load(ctx)
	if err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan T, 1)
	out <- first
	metrics.SubscriptionOpened(kind)
	metrics.ObserveSnapshot(kind)

	go func() {
		defer func() {
			_ = ps.Close()
			close(out)
			metrics.SubscriptionClosed(kind)
		}()

		var resync <-chan time.Time
		if interval := time.Duration(s.cfg.Board.ResyncInterval) * time.Second; interval > 0 {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			resync = ticker.C
		}

		messages := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
			case <-resync:
			}

			v, err := load(ctx)
			if err != nil {
				// 本次查询失败不影响下一次通知或重新同步
				slog.Warn("实时查询失败", "channel", channel, "error", err)
				continue
			}
			OfferLatest(out, v)
			metrics.ObserveSnapshot(kind)
		}
	}()

	return out, nil
}

// OfferLatest 向容量为 1 的 channel 投递最新值，消费方来不及处理时丢弃旧值。
// 每个值都是完整快照，丢弃旧快照不会丢失信息。只能有一个发送方。
func OfferLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
