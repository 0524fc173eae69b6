package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTokenBucket_Allow 验证容量内的突发请求全部放行，超出后拒绝
func TestTokenBucket_Allow(t *testing.T) {
	tb := NewTokenBucket(60, 3)

	assert.True(t, tb.Allow(), "第1个请求应放行")
	assert.True(t, tb.Allow(), "第2个请求应放行")
	assert.True(t, tb.Allow(), "第3个请求应放行")
	assert.False(t, tb.Allow(), "超出桶容量的请求应被拒绝")
}

// TestTokenBucket_DefaultCapacity 验证未指定容量时取QPM的一半
func TestTokenBucket_DefaultCapacity(t *testing.T) {
	tb := NewTokenBucket(60, 0)
	assert.Equal(t, 30.0, tb.capacity)

	// QPM很小也至少保证容量为1
	tb = NewTokenBucket(1, 0)
	assert.Equal(t, 1.0, tb.capacity)
}

// TestTokenBucket_Refill 验证令牌随时间补充
func TestTokenBucket_Refill(t *testing.T) {
	// 600 QPM = 每秒10个令牌
	tb := NewTokenBucket(600, 1)
	require.True(t, tb.Allow())
	require.False(t, tb.Allow())

	time.Sleep(150 * time.Millisecond)
	assert.True(t, tb.Allow(), "等待后应补充出新令牌")
}

// TestTokenBucket_WaitCancelled 验证Wait尊重上下文取消
func TestTokenBucket_WaitCancelled(t *testing.T) {
	// 极低的速率保证令牌耗尽后需要长时间等待
	tb := NewTokenBucket(1, 1)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := tb.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// countingModel 记录调用次数的模型桩
type countingModel struct {
	generateCalls int
}

func (c *countingModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	c.generateCalls++
	return &schema.Message{Role: schema.Assistant, Content: "ok"}, nil
}

func (c *countingModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, nil
}

func (c *countingModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return c, nil
}

// TestRateLimitedChatModel_Generate 验证代理转发调用
func TestRateLimitedChatModel_Generate(t *testing.T) {
	inner := &countingModel{}
	rl := NewRateLimitedChatModel(inner, 600)

	resp, err := rl.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 1, inner.generateCalls)
}

// TestRateLimitedChatModel_GenerateCancelled 验证取消的上下文不会穿透到底层模型
func TestRateLimitedChatModel_GenerateCancelled(t *testing.T) {
	inner := &countingModel{}
	rl := NewRateLimitedChatModel(inner, 1)
	// 耗尽唯一的令牌
	require.True(t, rl.rateLimiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := rl.Generate(ctx, []*schema.Message{schema.UserMessage("hi")})
	require.Error(t, err)
	assert.Equal(t, 0, inner.generateCalls, "限流等待失败时不应调用底层模型")
}

// TestWrapWithQPMLimit 验证按模型名取配置QPM的90%
func TestWrapWithQPMLimit(t *testing.T) {
	inner := &countingModel{}
	limits := map[string]int{"gemini-2.0-flash": 100}

	wrapped := WrapWithQPMLimit(inner, "gemini-2.0-flash", limits, 30)
	rl, ok := wrapped.(*RateLimitedChatModel)
	require.True(t, ok)
	assert.InDelta(t, 90.0/60.0, rl.rateLimiter.rate, 1e-9)

	// 未配置的模型使用默认QPM
	wrapped = WrapWithQPMLimit(inner, "unknown-model", limits, 60)
	rl = wrapped.(*RateLimitedChatModel)
	assert.InDelta(t, 1.0, rl.rateLimiter.rate, 1e-9)
}
