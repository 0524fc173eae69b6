package analyzer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// TestCallWithRetry_SucceedsAfterRateLimit 验证限流错误会重试直到成功
func TestCallWithRetry_SucceedsAfterRateLimit(t *testing.T) {
	attempts := 0
	result, err := callWithRetry(context.Background(), nil, 3, time.Millisecond, func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", &genai.APIError{Code: 429, Message: "rate limited"}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, attempts, "前两次限流后第三次应成功")
}

// TestCallWithRetry_RetriesServiceUnavailable 验证503错误会重试
func TestCallWithRetry_RetriesServiceUnavailable(t *testing.T) {
	attempts := 0
	_, err := callWithRetry(context.Background(), nil, 2, time.Millisecond, func(ctx context.Context) (int, error) {
		attempts++
		return 0, &genai.APIError{Code: 503, Message: "unavailable"}
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts, "初次调用加2次重试共3次")
}

// TestCallWithRetry_NonRetryableFailsImmediately 验证其他错误立即上抛
func TestCallWithRetry_NonRetryableFailsImmediately(t *testing.T) {
	attempts := 0
	_, err := callWithRetry(context.Background(), nil, 3, time.Millisecond, func(ctx context.Context) (string, error) {
		attempts++
		return "", fmt.Errorf("解析失败")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts, "非限流错误不应重试")
}

// TestCallWithRetry_BadRequestNotRetried 验证400类API错误不重试
func TestCallWithRetry_BadRequestNotRetried(t *testing.T) {
	attempts := 0
	_, err := callWithRetry(context.Background(), nil, 3, time.Millisecond, func(ctx context.Context) (string, error) {
		attempts++
		return "", &genai.APIError{Code: 400, Message: "bad request"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

// TestCallWithRetry_ContextCancelled 验证等待期间响应取消
func TestCallWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := callWithRetry(ctx, nil, 3, time.Hour, func(ctx context.Context) (string, error) {
		return "", &genai.APIError{Code: 429}
	})

	require.ErrorIs(t, err, context.Canceled)
}

// TestIsRetryableAPIError 验证错误分类
func TestIsRetryableAPIError(t *testing.T) {
	assert.True(t, isRetryableAPIError(&genai.APIError{Code: 429}))
	assert.True(t, isRetryableAPIError(&genai.APIError{Code: 503}))
	assert.True(t, isRetryableAPIError(genai.APIError{Code: 429}), "值类型的APIError也应识别")
	assert.True(t, isRetryableAPIError(genai.APIError{Code: 503}), "值类型的APIError也应识别")
	assert.False(t, isRetryableAPIError(&genai.APIError{Code: 500}))
	assert.False(t, isRetryableAPIError(fmt.Errorf("普通错误")))
	assert.False(t, isRetryableAPIError(fmt.Errorf("包装错误: %w", &genai.APIError{Code: 400})))
	assert.True(t, isRetryableAPIError(fmt.Errorf("包装错误: %w", &genai.APIError{Code: 429})), "包装后的限流错误也应识别")
}
