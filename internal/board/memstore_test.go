package board

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sysu-ecnc-dev/floor-board/backend/internal/domain"
)

// memStore 是测试用的内存存储，实现 Gateway 和 SnapshotSource，
// 每次写入之后向所有订阅者推送完整快照。
type memStore struct {
	mu       sync.Mutex
	seq      int
	now      time.Time
	docs     map[string]*domain.Assignment
	subs     []memSub
	failNext error
	// 为 false 时模拟没有唯一索引的存储，允许重复的在场记录
	unique bool

	creates   int
	relocates int
	closes    int
}

type memSub struct {
	siteID  string
	floorID string
	ch      chan Snapshot
}

func newMemStore() *memStore {
	return &memStore{
		now:    time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC),
		docs:   make(map[string]*domain.Assignment),
		unique: true,
	}
}

func (m *memStore) tick() time.Time {
	m.now = m.now.Add(time.Second)
	return m.now
}

func (m *memStore) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *memStore) CreateAssignment(ctx context.Context, a *domain.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return err
	}
	if m.unique {
		for _, doc := range m.docs {
			if doc.Active() && doc.SiteID == a.SiteID && doc.FloorID == a.FloorID && doc.WorkerID == a.WorkerID {
				return &domain.ConflictError{WorkerID: a.WorkerID, AreaID: doc.AreaID}
			}
		}
	}

	m.seq++
	now := m.tick()
	a.ID = fmt.Sprintf("as-%d", m.seq)
	a.Date = now.Format(time.DateOnly)
	a.InAt, a.CreatedAt, a.UpdatedAt = now, now, now
	a.OutAt = nil

	doc := *a
	m.docs[a.ID] = &doc
	m.creates++
	m.publishLocked(a.SiteID, a.FloorID)
	return nil
}

func (m *memStore) RelocateAssignment(ctx context.Context, assignmentID, areaID string) (*domain.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	doc, ok := m.docs[assignmentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !doc.Active() {
		return nil, domain.ErrAlreadyClosed
	}

	doc.AreaID = areaID
	doc.UpdatedAt = m.tick()
	m.relocates++
	m.publishLocked(doc.SiteID, doc.FloorID)

	a := *doc
	return &a, nil
}

func (m *memStore) CloseAssignment(ctx context.Context, assignmentID string) (*domain.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	doc, ok := m.docs[assignmentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !doc.Active() {
		return nil, domain.ErrAlreadyClosed
	}

	now := m.tick()
	doc.OutAt = &now
	doc.UpdatedAt = now
	m.closes++
	m.publishLocked(doc.SiteID, doc.FloorID)

	a := *doc
	return &a, nil
}

func (m *memStore) SubscribeActive(ctx context.Context, siteID, floorID string) (<-chan Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan Snapshot, 64)
	m.subs = append(m.subs, memSub{siteID: siteID, floorID: floorID, ch: ch})
	ch <- m.snapshotLocked(siteID, floorID)
	return ch, nil
}

func (m *memStore) publishLocked(siteID, floorID string) {
	for _, sub := range m.subs {
		if sub.siteID == siteID && sub.floorID == floorID {
			sub.ch <- m.snapshotLocked(siteID, floorID)
		}
	}
}

func (m *memStore) snapshotLocked(siteID, floorID string) Snapshot {
	s := Snapshot{SiteID: siteID, FloorID: floorID}
	for _, doc := range m.docs {
		if doc.Active() && doc.SiteID == siteID && doc.FloorID == floorID {
			s.Assignments = append(s.Assignments, *doc)
		}
	}
	return s
}

// insertActive 直接写入一条在场记录，用于模拟其他客户端并发入场
func (m *memStore) insertActive(siteID, floorID, areaID, workerID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	now := m.tick()
	id := fmt.Sprintf("as-%d", m.seq)
	m.docs[id] = &domain.Assignment{
		ID: id, SiteID: siteID, FloorID: floorID, AreaID: areaID, WorkerID: workerID,
		Date: now.Format(time.DateOnly), InAt: now, CreatedAt: now, UpdatedAt: now,
	}
	m.publishLocked(siteID, floorID)
	return id
}

func (m *memStore) counts() (creates, relocates, closes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates, m.relocates, m.closes
}

func (m *memStore) get(id string) domain.Assignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.docs[id]
}

func (m *memStore) failWith(err error) {
	m.mu.Lock()
	m.failNext = err
	m.mu.Unlock()
}
