package board

import (
	"slices"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/floor-board/backend/internal/metrics"
)

// Placement 是视图中的一条在场记录
type Placement struct {
	AssignmentID string    `json:"assignmentId"`
	AreaID       string    `json:"areaId"`
	WorkerID     string    `json:"workerId"`
	InAt         time.Time `json:"inAt"`
	// Pending 表示本客户端已经发出写入但还没有被快照确认
	Pending bool `json:"pending"`
}

// PlacementView 是某一时刻“谁在哪个区域”的只读视图
type PlacementView struct {
	placements []Placement
	byArea     map[string][]Placement
	byWorker   map[string][]Placement
}

func comparePlacement(a, b Placement) int {
	if c := strings.Compare(a.AreaID, b.AreaID); c != 0 {
		return c
	}
	if c := a.InAt.Compare(b.InAt); c != 0 {
		return c
	}
	if c := strings.Compare(a.WorkerID, b.WorkerID); c != 0 {
		return c
	}
	return strings.Compare(a.AssignmentID, b.AssignmentID)
}

func buildView(placements []Placement) *PlacementView {
	sorted := slices.Clone(placements)
	slices.SortFunc(sorted, comparePlacement)

	v := &PlacementView{
		placements: sorted,
		byArea:     make(map[string][]Placement),
		byWorker:   make(map[string][]Placement),
	}
	for _, p := range sorted {
		v.byArea[p.AreaID] = append(v.byArea[p.AreaID], p)
		v.byWorker[p.WorkerID] = append(v.byWorker[p.WorkerID], p)
	}
	return v
}

// Len 返回视图中的记录数，重复在场的人员每条记录都计入
func (v *PlacementView) Len() int {
	return len(v.placements)
}

// Placements 按 (区域, 入场时间, workerId) 排序返回所有记录
func (v *PlacementView) Placements() []Placement {
	return slices.Clone(v.placements)
}

// Areas 返回有人在场的区域，按 areaId 排序
func (v *PlacementView) Areas() []string {
	areas := make([]string, 0, len(v.byArea))
	for areaID := range v.byArea {
		areas = append(areas, areaID)
	}
	slices.Sort(areas)
	return areas
}

func (v *PlacementView) Area(areaID string) []Placement {
	return slices.Clone(v.byArea[areaID])
}

// Lookup 返回该人员最早的一条在场记录
func (v *PlacementView) Lookup(workerID string) (Placement, bool) {
	ps := v.byWorker[workerID]
	if len(ps) == 0 {
		return Placement{}, false
	}
	earliest := ps[0]
	for _, p := range ps[1:] {
		if p.InAt.Before(earliest.InAt) {
			earliest = p
		}
	}
	return earliest, true
}

func (v *PlacementView) Contains(workerID string) bool {
	return len(v.byWorker[workerID]) > 0
}

// Duplicates 返回同时拥有多条在场记录的人员，按 workerId 排序。
// 视图只负责展示，不会自动处理这种情况。
func (v *PlacementView) Duplicates() map[string][]Placement {
	dups := make(map[string][]Placement)
	for workerID, ps := range v.byWorker {
		if len(ps) > 1 {
			dups[workerID] = slices.Clone(ps)
		}
	}
	return dups
}

// Reconciler 根据每次到达的快照重建在场视图。
//
// 每次 Apply 都丢弃整个旧视图并从快照重新构建，不与旧状态做差异比较，
// 因此同一个快照应用多少次结果都相同。本地乐观添加的记录在下一次快照到达时被丢弃，
// 即使这个快照还没有包含本客户端的写入。
type Reconciler struct {
	view    *PlacementView
	pending map[string]Placement
}

func NewReconciler() *Reconciler {
	return &Reconciler{
		view:    buildView(nil),
		pending: make(map[string]Placement),
	}
}

// Apply 以快照为唯一依据重建视图
func (r *Reconciler) Apply(s Snapshot) *PlacementView {
	start := time.Now()

	placements := make([]Placement, 0, len(s.Assignments))
	for _, a := range s.Assignments {
		// 实时查询只应该返回在场记录
		if !a.Active() {
			continue
		}
		placements = append(placements, Placement{
			AssignmentID: a.ID,
			AreaID:       a.AreaID,
			WorkerID:     a.WorkerID,
			InAt:         a.InAt,
		})
	}

	clear(r.pending)
	r.view = buildView(placements)

	metrics.ObserveRebuild(start)
	return r.view
}

// View 返回当前视图，包含尚未确认的乐观记录
func (r *Reconciler) View() *PlacementView {
	return r.view
}

// AddPending 在快照确认之前乐观地记录一次入场
func (r *Reconciler) AddPending(p Placement) {
	p.Pending = true
	r.pending[p.WorkerID] = p
	r.rebuildWithPending()
}

// ConfirmPending 在写入成功后补上存储生成的 ID，快照已经到达时不做任何事
func (r *Reconciler) ConfirmPending(workerID, assignmentID string) {
	p, ok := r.pending[workerID]
	if !ok {
		return
	}
	p.AssignmentID = assignmentID
	r.pending[workerID] = p
	r.rebuildWithPending()
}

// DropPending 在写入失败后撤销乐观记录，返回是否确实撤销了
func (r *Reconciler) DropPending(workerID string) bool {
	if _, ok := r.pending[workerID]; !ok {
		return false
	}
	delete(r.pending, workerID)
	r.rebuildWithPending()
	return true
}

func (r *Reconciler) rebuildWithPending() {
	confirmed := make([]Placement, 0, r.view.Len())
	for _, p := range r.view.placements {
		if !p.Pending {
			confirmed = append(confirmed, p)
		}
	}
	for _, p := range r.pending {
		confirmed = append(confirmed, p)
	}
	r.view = buildView(confirmed)
}
