package domain

import "time"

type WorkerPanel struct {
	Color  string   `json:"color"`
	Badges []string `json:"badges"`
}

type Worker struct {
	WorkerID         string      `json:"workerId"`
	Name             string      `json:"name"`
	Company          string      `json:"company"`
	EmploymentType   string      `json:"employmentType"`
	Agency           string      `json:"agency"`
	Skills           []string    `json:"skills"`
	DefaultStartTime string      `json:"defaultStartTime"`
	DefaultEndTime   string      `json:"defaultEndTime"`
	Active           bool        `json:"active"`
	Panel            WorkerPanel `json:"panel"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
	Version          int32       `json:"-"`
}

// WorkerPatch 用于按 workerId 合并写入，nil 字段表示保持原值
type WorkerPatch struct {
	Name             *string
	Company          *string
	EmploymentType   *string
	Agency           *string
	Skills           []string // nil 表示保持原值，空切片表示清空
	DefaultStartTime *string
	DefaultEndTime   *string
	Active           *bool
	Panel            *WorkerPanel
}
