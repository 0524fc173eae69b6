package analyzer

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"google.golang.org/genai"
)

// isRetryableAPIError 判断错误是否值得重试
// 仅限流(429)和服务不可用(503)重试，其他错误立即上抛
// genai在不同调用路径下可能返回值类型或指针类型的APIError，两种都识别
func isRetryableAPIError(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return isRetryableCode(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return isRetryableCode(apiErrPtr.Code)
	}
	return false
}

func isRetryableCode(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}

// callWithRetry 带指数退避的API调用辅助函数
// 首次重试等待baseDelay，之后每次翻倍，重试maxRetries次后放弃
func callWithRetry[T any](ctx context.Context, logger *log.Logger, maxRetries int, baseDelay time.Duration, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if attempt >= maxRetries || !isRetryableAPIError(err) {
			return zero, err
		}

		if logger != nil {
			logger.Printf("API调用失败: %v, %s后重试 (第%d/%d次)", err, delay, attempt+1, maxRetries)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}
