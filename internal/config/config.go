package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	InitialAdmin struct {
		Username string `env:"USERNAME" envDefault:"admin"`
		Password string `env:"PASSWORD,required"`
		FullName string `env:"FULL_NAME" envDefault:"管理员"`
		Email    string `env:"EMAIL,required"`
	} `envPrefix:"INITIAL_ADMIN_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"336"` // 小时，14 天
		Secret     string `env:"SECRET,required"`
	} `envPrefix:"JWT_"`
	Seed struct {
		Workers int `env:"WORKERS" envDefault:"30"`
	} `envPrefix:"SEED_"`
	Email struct {
		// 为空时不发送名单导入报告
		ReportRecipient string `env:"REPORT_RECIPIENT"`
		SMTP            struct {
			Username    string `env:"USERNAME"`
			Password    string `env:"PASSWORD"`
			Host        string `env:"HOST"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host             string `env:"HOST" envDefault:"localhost"`
		Port             int    `env:"PORT" envDefault:"6379"`
		Password         string `env:"PASSWORD"`
		ConnectTimeout   int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		OperationTimeout int    `env:"OPERATION_TIMEOUT" envDefault:"5"`
		ChannelPrefix    string `env:"CHANNEL_PREFIX" envDefault:"floorboard"`
	} `envPrefix:"REDIS_"`
	Site struct {
		// 日期（assignments.date、名单日期）按照现场所在时区计算
		Timezone string `env:"TIMEZONE" envDefault:"Asia/Shanghai"`
	} `envPrefix:"SITE_"`
	Roster struct {
		FetchTimeout int `env:"FETCH_TIMEOUT" envDefault:"8000"` // 毫秒
		FetchRetries int `env:"FETCH_RETRIES" envDefault:"2"`
		BackoffStep  int `env:"BACKOFF_STEP" envDefault:"400"` // 毫秒，第 n 次重试等待 n 倍
	} `envPrefix:"ROSTER_"`
	Board struct {
		ResyncInterval int `env:"RESYNC_INTERVAL" envDefault:"30"` // 秒，0 表示不做定时重新同步
		WriteTimeout   int `env:"WRITE_TIMEOUT" envDefault:"10"`   // 秒
		OutboxSize     int `env:"OUTBOX_SIZE" envDefault:"16"`
	} `envPrefix:"BOARD_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	if _, err := cfg.SiteLocation(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SiteLocation 返回现场所在时区
func (c *Config) SiteLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		return nil, fmt.Errorf("无效的时区 %q: %w", c.Site.Timezone, err)
	}
	return loc, nil
}

// Today 返回现场时区下的当天日期（YYYY-MM-DD）
func (c *Config) Today(now time.Time) string {
	loc, err := c.SiteLocation()
	if err != nil {
		loc = time.UTC
	}
	return now.In(loc).Format(time.DateOnly)
}
