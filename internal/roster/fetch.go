package roster

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/floor-board/backend/internal/metrics"
)

// FetchOptions 控制远程文本的获取：每次请求的超时、失败后的重试次数，
// 以及线性退避的步长（第 n 次重试前等待 n 倍步长）
type FetchOptions struct {
	Timeout     time.Duration
	Retries     int
	BackoffStep time.Duration
}

func DefaultFetchOptions() FetchOptions {
	return FetchOptions{
		Timeout:     8000 * time.Millisecond,
		Retries:     2,
		BackoffStep: 400 * time.Millisecond,
	}
}

// StatusError 表示服务器返回了非 2xx 状态码
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("远程服务器返回状态码 %d", e.StatusCode)
}

// FetchText 获取 url 的响应正文，失败时按 opts 重试，所有尝试都失败时返回最后一次的错误
func FetchText(ctx context.Context, client *http.Client, url string, opts FetchOptions) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * opts.BackoffStep
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}

		text, err := fetchOnce(ctx, client, url, opts.Timeout)
		metrics.ObserveRosterFetch(err)
		if err == nil {
			return text, nil
		}

		lastErr = err
		slog.Warn("获取名单失败", "url", url, "attempt", attempt+1, "error", err)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	return "", lastErr
}

func fetchOnce(ctx context.Context, client *http.Client, url string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return string(body), nil
}
