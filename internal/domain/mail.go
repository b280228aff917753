package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type RosterImportMailData struct {
	SiteID     string `json:"siteId"`
	Date       string `json:"date"`
	SourceURL  string `json:"sourceUrl"`
	Imported   int    `json:"imported"`
	Duplicates int    `json:"duplicates"`
	Skipped    int    `json:"skipped"`
	Error      string `json:"error,omitempty"`
}
