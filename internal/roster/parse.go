package roster

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"time"
)

var (
	idHeaders   = []string{"workerid", "id", "社员番号", "工号", "人员编号"}
	dateHeaders = []string{"date", "日期"}
)

// ParseResult 是从表格中解析出的名单
type ParseResult struct {
	WorkerIDs []string `json:"workerIds"`
	// Duplicates 是被合并掉的重复 workerId 数量
	Duplicates int `json:"duplicates"`
	// Skipped 是空行或者日期不匹配而被跳过的行数
	Skipped int `json:"skipped"`
}

func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

func indexOf(header []string, names []string) int {
	for i, h := range header {
		for _, name := range names {
			if normalizeHeader(h) == name {
				return i
			}
		}
	}
	return -1
}

// normalizeDate 接受 2006-01-02、2006/01/02、2006/1/2 等写法
func normalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.DateOnly, "2006/01/02", "2006/1/2", "2006-1-2", "2006.01.02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.DateOnly), true
		}
	}
	return "", false
}

// ParseCSV 从 CSV 文本中解析某一天的 workerId 列表。
//
// 如果第一行包含 workerId 一类的列名则按列名取值，否则取第一列且第一行也是数据。
// 存在日期列时只保留日期等于 date 的行。重复的 workerId 只保留第一次出现的位置。
func ParseCSV(text, date string) (*ParseResult, error) {
	text = strings.TrimPrefix(text, "\ufeff")

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	result := &ParseResult{WorkerIDs: make([]string, 0)}
	if len(records) == 0 {
		return result, nil
	}

	idCol, dateCol := 0, -1
	if i := indexOf(records[0], idHeaders); i >= 0 {
		idCol = i
		dateCol = indexOf(records[0], dateHeaders)
		records = records[1:]
	}

	seen := make(map[string]struct{})
	for _, record := range records {
		if idCol >= len(record) {
			result.Skipped++
			continue
		}

		workerID := strings.TrimSpace(record[idCol])
		if workerID == "" {
			result.Skipped++
			continue
		}

		if dateCol >= 0 {
			if dateCol >= len(record) {
				result.Skipped++
				continue
			}
			rowDate, ok := normalizeDate(record[dateCol])
			if !ok || rowDate != date {
				result.Skipped++
				continue
			}
		}

		if _, ok := seen[workerID]; ok {
			result.Duplicates++
			continue
		}
		seen[workerID] = struct{}{}
		result.WorkerIDs = append(result.WorkerIDs, workerID)
	}

	return result, nil
}
