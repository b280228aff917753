package domain

// Roster 是某个现场某一天预计到场的人员名单
type Roster struct {
	SiteID    string   `json:"siteId"`
	Date      string   `json:"date"`
	WorkerIDs []string `json:"workerIds"`
}
