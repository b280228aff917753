package seed

import (
	"context"
	"log/slog"
	"os"

	"github.com/sysu-ecnc-dev/floor-board/backend/internal/domain"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/roster"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/utils"
)

type WorkerSaver interface {
	UpsertWorker(ctx context.Context, workerID string, patch *domain.WorkerPatch) (*domain.Worker, error)
}

type RosterSaver interface {
	ReplaceRoster(ctx context.Context, roster *domain.Roster) error
}

// SeedRandomWorkers 插入 n 个随机人员，返回成功插入的 workerId
func SeedRandomWorkers(ctx context.Context, r WorkerSaver, n int) []string {
	workerIDs := make([]string, 0, n)
	for i := 0; i < n; i++ {
		workerID, patch := utils.GenerateRandomWorker()
		if _, err := r.UpsertWorker(ctx, workerID, patch); err != nil {
			slog.Error("无法插入人员", "worker", workerID, "error", err)
			continue
		}
		workerIDs = append(workerIDs, workerID)
	}

	slog.Info("插入人员成功", "count", len(workerIDs))
	return workerIDs
}

// SeedRandomRoster 从 workerIDs 中随机抽取当天的名单
func SeedRandomRoster(ctx context.Context, r RosterSaver, siteID, date string, workerIDs []string) (*domain.Roster, error) {
	rs := &domain.Roster{
		SiteID:    siteID,
		Date:      date,
		WorkerIDs: utils.GenerateRandomRoster(workerIDs),
	}
	if err := r.ReplaceRoster(ctx, rs); err != nil {
		return nil, err
	}

	slog.Info("插入名单成功", "site", siteID, "date", date, "count", len(rs.WorkerIDs))
	return rs, nil
}

// SeedRosterFromFile 从本地 CSV 文件导入名单，格式与远程表格相同
func SeedRosterFromFile(ctx context.Context, r RosterSaver, siteID, date, path string) (*roster.ParseResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	res, err := roster.ParseCSV(string(content), date)
	if err != nil {
		return nil, err
	}

	if err := r.ReplaceRoster(ctx, &domain.Roster{SiteID: siteID, Date: date, WorkerIDs: res.WorkerIDs}); err != nil {
		return nil, err
	}

	slog.Info("从文件导入名单成功", "path", path, "site", siteID, "date", date, "count", len(res.WorkerIDs), "duplicates", res.Duplicates, "skipped", res.Skipped)
	return res, nil
}
