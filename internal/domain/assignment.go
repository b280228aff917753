package domain

import "time"

type Assignment struct {
	ID        string     `json:"assignmentId"`
	SiteID    string     `json:"siteId"`
	FloorID   string     `json:"floorId"`
	AreaID    string     `json:"areaId"`
	WorkerID  string     `json:"workerId"`
	Date      string     `json:"date"`  // 创建时现场时区的日期，YYYY-MM-DD
	InAt      time.Time  `json:"inAt"`  // 由服务器在创建时设置，之后不再改变
	OutAt     *time.Time `json:"outAt"` // 为 nil 表示仍在场
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Active 表示该分配尚未签出
func (a *Assignment) Active() bool {
	return a.OutAt == nil
}
