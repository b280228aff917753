package livequery

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/board"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/config"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/domain"
)

// fakeRepository 只在内存中保存记录，写入时不会发布任何通知
type fakeRepository struct {
	mu      sync.Mutex
	seq     int
	rows    []domain.Assignment
	rosters map[string]domain.Roster
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{rosters: make(map[string]domain.Roster)}
}

func (f *fakeRepository) CreateAssignment(ctx context.Context, a *domain.Assignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	now := time.Now()
	a.ID = fmt.Sprintf("as-%d", f.seq)
	a.InAt, a.CreatedAt, a.UpdatedAt = now, now, now
	f.rows = append(f.rows, *a)
	return nil
}

func (f *fakeRepository) RelocateAssignment(ctx context.Context, assignmentID, areaID string) (*domain.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.rows {
		if f.rows[i].ID == assignmentID && f.rows[i].Active() {
			f.rows[i].AreaID = areaID
			a := f.rows[i]
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRepository) CloseAssignment(ctx context.Context, assignmentID string) (*domain.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.rows {
		if f.rows[i].ID == assignmentID {
			if !f.rows[i].Active() {
				return nil, domain.ErrAlreadyClosed
			}
			now := time.Now()
			f.rows[i].OutAt = &now
			a := f.rows[i]
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRepository) ListActiveAssignments(ctx context.Context, siteID, floorID string) ([]domain.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rows := make([]domain.Assignment, 0)
	for _, a := range f.rows {
		if a.SiteID == siteID && a.FloorID == floorID && a.Active() {
			rows = append(rows, a)
		}
	}
	return rows, nil
}

func (f *fakeRepository) GetRoster(ctx context.Context, siteID, date string) (*domain.Roster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.rosters[siteID+"/"+date]
	if !ok {
		return &domain.Roster{SiteID: siteID, Date: date, WorkerIDs: []string{}}, nil
	}
	return &r, nil
}

func (f *fakeRepository) setRoster(r domain.Roster) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rosters[r.SiteID+"/"+r.Date] = r
}

func newTestStore(t *testing.T, resync int) (*Store, *fakeRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{}
	cfg.Redis.ConnectTimeout = 2
	cfg.Redis.OperationTimeout = 1
	cfg.Redis.ChannelPrefix = "floorboard"
	cfg.Board.ResyncInterval = resync

	repo := newFakeRepository()
	return NewStore(cfg, repo, repo, rdb), repo, mr
}

// nextValue 读取推送，直到满足条件
func nextValue[T any](t *testing.T, ch <-chan T, cond func(T) bool) T {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case v, ok := <-ch:
			require.True(t, ok, "订阅提前关闭")
			if cond(v) {
				return v
			}
		case <-timeout:
			t.Fatal("等待推送超时")
		}
	}
}

func rows(n int) func(board.Snapshot) bool {
	return func(s board.Snapshot) bool { return len(s.Assignments) == n }
}

func TestChannelNames(t *testing.T) {
	require.Equal(t, "floorboard:assignments:site1:1F", assignmentsChannel("floorboard", "site1", "1F"))
	require.Equal(t, "floorboard:roster:site1:2026-10-14", rosterChannel("floorboard", "site1", "2026-10-14"))
}

func TestSubscribeActive_PushesSnapshotAfterWrite(t *testing.T) {
	store, _, _ := newTestStore(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots, err := store.SubscribeActive(ctx, "site1", "1F")
	require.NoError(t, err)

	// 订阅后立即推送当前结果集
	first := <-snapshots
	require.Equal(t, "site1", first.SiteID)
	require.Equal(t, "1F", first.FloorID)
	require.Empty(t, first.Assignments)

	a := &domain.Assignment{SiteID: "site1", FloorID: "1F", AreaID: "A", WorkerID: "W1"}
	require.NoError(t, store.CreateAssignment(ctx, a))

	s := nextValue(t, snapshots, rows(1))
	require.Equal(t, a.ID, s.Assignments[0].ID)
	require.Equal(t, "A", s.Assignments[0].AreaID)

	_, err = store.RelocateAssignment(ctx, a.ID, "B")
	require.NoError(t, err)
	s = nextValue(t, snapshots, func(s board.Snapshot) bool {
		return len(s.Assignments) == 1 && s.Assignments[0].AreaID == "B"
	})
	require.Equal(t, "W1", s.Assignments[0].WorkerID)

	_, err = store.CloseAssignment(ctx, a.ID)
	require.NoError(t, err)
	nextValue(t, snapshots, rows(0))
}

func TestSubscribeActive_IgnoresOtherFloors(t *testing.T) {
	store, _, _ := newTestStore(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots, err := store.SubscribeActive(ctx, "site1", "1F")
	require.NoError(t, err)
	<-snapshots

	require.NoError(t, store.CreateAssignment(ctx, &domain.Assignment{SiteID: "site1", FloorID: "2F", AreaID: "A", WorkerID: "W1"}))
	require.NoError(t, store.CreateAssignment(ctx, &domain.Assignment{SiteID: "site1", FloorID: "1F", AreaID: "A", WorkerID: "W2"}))

	s := nextValue(t, snapshots, rows(1))
	require.Equal(t, "W2", s.Assignments[0].WorkerID)
}

func TestSubscribeActive_ResyncWithoutNotification(t *testing.T) {
	store, repo, _ := newTestStore(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots, err := store.SubscribeActive(ctx, "site1", "1F")
	require.NoError(t, err)
	require.Empty(t, (<-snapshots).Assignments)

	// 绕过 Store 直接写入，不会有任何通知
	require.NoError(t, repo.CreateAssignment(ctx, &domain.Assignment{SiteID: "site1", FloorID: "1F", AreaID: "C", WorkerID: "W3"}))

	s := nextValue(t, snapshots, rows(1))
	require.Equal(t, "W3", s.Assignments[0].WorkerID)
}

func TestSubscribeActive_ClosesOnCancel(t *testing.T) {
	store, _, _ := newTestStore(t, 0)
	ctx, cancel := context.WithCancel(context.Background())

	snapshots, err := store.SubscribeActive(ctx, "site1", "1F")
	require.NoError(t, err)
	<-snapshots

	cancel()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-snapshots:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("取消之后订阅没有关闭")
		}
	}
}

func TestSubscribeActive_RedisUnavailable(t *testing.T) {
	store, _, mr := newTestStore(t, 0)
	mr.Close()

	_, err := store.SubscribeActive(context.Background(), "site1", "1F")
	require.ErrorIs(t, err, domain.ErrTransient)
}

func TestCreateAssignment_NotificationFailureIsNotSurfaced(t *testing.T) {
	store, repo, mr := newTestStore(t, 0)
	mr.Close()

	a := &domain.Assignment{SiteID: "site1", FloorID: "1F", AreaID: "A", WorkerID: "W1"}
	require.NoError(t, store.CreateAssignment(context.Background(), a))
	require.NotEmpty(t, a.ID)

	active, err := repo.ListActiveAssignments(context.Background(), "site1", "1F")
	require.NoError(t, err)
	require.Len(t, active, 1)
}

func TestSubscribeRoster_PushesAfterNotify(t *testing.T) {
	store, repo, _ := newTestStore(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rosters, err := store.SubscribeRoster(ctx, "site1", "2026-10-14")
	require.NoError(t, err)
	require.Empty(t, (<-rosters).WorkerIDs)

	repo.setRoster(domain.Roster{SiteID: "site1", Date: "2026-10-14", WorkerIDs: []string{"W1", "W2"}})
	store.NotifyRoster(ctx, "site1", "2026-10-14")

	r := nextValue(t, rosters, func(r domain.Roster) bool { return len(r.WorkerIDs) == 2 })
	require.Equal(t, []string{"W1", "W2"}, r.WorkerIDs)
}

func TestOfferLatest_ReplacesUnconsumedSnapshot(t *testing.T) {
	ch := make(chan board.Snapshot, 1)

	OfferLatest(ch, board.Snapshot{FloorID: "old"})
	OfferLatest(ch, board.Snapshot{FloorID: "new"})

	require.Len(t, ch, 1)
	require.Equal(t, "new", (<-ch).FloorID)
}

func TestOfferLatest_EmptyChannel(t *testing.T) {
	ch := make(chan int, 1)
	OfferLatest(ch, 7)
	require.Equal(t, 7, <-ch)
}
