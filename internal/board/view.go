package board

import (
	"slices"

	"github.com/sysu-ecnc-dev/floor-board/backend/internal/domain"
)

// View 是推送给前端的渲染模型
type View struct {
	SiteID     string      `json:"siteId"`
	FloorID    string      `json:"floorId"`
	Date       string      `json:"date"`
	Revision   uint64      `json:"revision"`
	Areas      []AreaView  `json:"areas"`
	Pool       []PoolEntry `json:"pool"`
	Duplicates []Duplicate `json:"duplicates"`
}

type AreaView struct {
	AreaID  string         `json:"areaId"`
	Workers []PlacedWorker `json:"workers"`
}

type PlacedWorker struct {
	Placement
	Name string `json:"name"`
}

type PoolEntry struct {
	WorkerID string `json:"workerId"`
	Name     string `json:"name"`
}

// Duplicate 表示同一人员在同一楼层有多条在场记录，需要操作员手动签出多余的记录
type Duplicate struct {
	WorkerID string   `json:"workerId"`
	AreaIDs  []string `json:"areaIds"`
}

// Directory 是人员信息的查找表，只用于显示
type Directory map[string]domain.Worker

func (d Directory) name(workerID string) string {
	if w, ok := d[workerID]; ok {
		return w.Name
	}
	return ""
}

// MakeView 由视图和名单组装渲染模型
func MakeView(siteID, floorID, date string, view *PlacementView, roster []string, directory Directory) View {
	v := View{
		SiteID:     siteID,
		FloorID:    floorID,
		Date:       date,
		Areas:      make([]AreaView, 0),
		Pool:       make([]PoolEntry, 0),
		Duplicates: make([]Duplicate, 0),
	}

	for _, areaID := range view.Areas() {
		area := AreaView{AreaID: areaID}
		for _, p := range view.Area(areaID) {
			area.Workers = append(area.Workers, PlacedWorker{Placement: p, Name: directory.name(p.WorkerID)})
		}
		v.Areas = append(v.Areas, area)
	}

	for _, workerID := range ComputePool(roster, view) {
		v.Pool = append(v.Pool, PoolEntry{WorkerID: workerID, Name: directory.name(workerID)})
	}

	dups := view.Duplicates()
	workerIDs := make([]string, 0, len(dups))
	for workerID := range dups {
		workerIDs = append(workerIDs, workerID)
	}
	slices.Sort(workerIDs)
	for _, workerID := range workerIDs {
		d := Duplicate{WorkerID: workerID}
		for _, p := range dups[workerID] {
			d.AreaIDs = append(d.AreaIDs, p.AreaID)
		}
		v.Duplicates = append(v.Duplicates, d)
	}

	return v
}
