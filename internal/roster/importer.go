package roster

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/floor-board/backend/internal/domain"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/mailqueue"
)

type Saver interface {
	ReplaceRoster(ctx context.Context, roster *domain.Roster) error
}

type Notifier interface {
	NotifyRoster(ctx context.Context, siteID, date string)
}

type ReportPublisher interface {
	Publish(ctx context.Context, msg domain.MailMessage) error
}

// Importer 从远程表格导入某现场某天的名单
type Importer struct {
	client    *http.Client
	opts      FetchOptions
	saver     Saver
	notifier  Notifier
	reports   ReportPublisher
	recipient string
}

type ImporterOption func(*Importer)

func WithHTTPClient(client *http.Client) ImporterOption {
	return func(i *Importer) {
		i.client = client
	}
}

func WithFetchOptions(opts FetchOptions) ImporterOption {
	return func(i *Importer) {
		i.opts = opts
	}
}

// WithReports 在每次导入之后向 recipient 发送导入报告
func WithReports(publisher ReportPublisher, recipient string) ImporterOption {
	return func(i *Importer) {
		i.reports = publisher
		i.recipient = recipient
	}
}

func NewImporter(saver Saver, notifier Notifier, opts ...ImporterOption) *Importer {
	i := &Importer{
		client:   http.DefaultClient,
		opts:     DefaultFetchOptions(),
		saver:    saver,
		notifier: notifier,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import 获取、解析并替换名单。失败时也会发送导入报告。
func (i *Importer) Import(ctx context.Context, siteID, date, url string) (*ParseResult, error) {
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return nil, fmt.Errorf("%w: 日期格式应为 YYYY-MM-DD", domain.ErrValidation)
	}

	result, err := i.importRoster(ctx, siteID, date, url)

	report := domain.RosterImportMailData{SiteID: siteID, Date: date, SourceURL: url}
	if err != nil {
		report.Error = err.Error()
	} else {
		report.Imported = len(result.WorkerIDs)
		report.Duplicates = result.Duplicates
		report.Skipped = result.Skipped
	}
	i.sendReport(ctx, report)

	return result, err
}

func (i *Importer) importRoster(ctx context.Context, siteID, date, url string) (*ParseResult, error) {
	text, err := FetchText(ctx, i.client, url, i.opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}

	result, err := ParseCSV(text, date)
	if err != nil {
		return nil, fmt.Errorf("%w: 无法解析名单: %w", domain.ErrValidation, err)
	}

	roster := &domain.Roster{SiteID: siteID, Date: date, WorkerIDs: result.WorkerIDs}
	if err := i.saver.ReplaceRoster(ctx, roster); err != nil {
		return nil, err
	}

	if i.notifier != nil {
		i.notifier.NotifyRoster(ctx, siteID, date)
	}

	slog.Info("名单导入成功", "site", siteID, "date", date, "imported", len(result.WorkerIDs), "duplicates", result.Duplicates, "skipped", result.Skipped)
	return result, nil
}

func (i *Importer) sendReport(ctx context.Context, report domain.RosterImportMailData) {
	if i.reports == nil || i.recipient == "" {
		return
	}

	msg := domain.MailMessage{
		Type: mailqueue.TypeRosterImportReport,
		To:   i.recipient,
		Data: report,
	}
	if err := i.reports.Publish(context.WithoutCancel(ctx), msg); err != nil {
		slog.Warn("无法发送名单导入报告", "site", report.SiteID, "date", report.Date, "error", err)
	}
}
