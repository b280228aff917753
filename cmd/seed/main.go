package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/floor-board/backend/internal/config"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/repository"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/seed"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var siteID string
	var date string
	var file string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机人员, 2: 插入随机人员和当天名单, 3: 从 CSV 文件导入名单)")
	flag.IntVar(&n, "n", 0, "要插入的人员数量，默认使用 SEED_WORKERS")
	flag.StringVar(&siteID, "site", "site-1", "名单所属的现场")
	flag.StringVar(&date, "date", "", "名单日期 (YYYY-MM-DD)，默认为现场时区的当天")
	flag.StringVar(&file, "file", "", "要导入的 CSV 文件")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if n <= 0 {
		n = cfg.Seed.Workers
	}
	if date == "" {
		date = cfg.Today(time.Now())
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		seed.SeedRandomWorkers(context.Background(), repo, n)
	case 2:
		workerIDs := seed.SeedRandomWorkers(context.Background(), repo, n)
		if _, err := seed.SeedRandomRoster(context.Background(), repo, siteID, date, workerIDs); err != nil {
			slog.Error("无法插入名单", slog.String("error", err.Error()))
		}
	case 3:
		if file == "" {
			slog.Error("请指定要导入的 CSV 文件")
			return
		}
		if _, err := seed.SeedRosterFromFile(context.Background(), repo, siteID, date, file); err != nil {
			slog.Error("无法从文件导入名单", slog.String("error", err.Error()))
		}
	default:
		slog.Error("指定的操作非法")
	}
}
