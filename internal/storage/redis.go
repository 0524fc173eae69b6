package storage

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resume-match-go/internal/config"
	"resume-match-go/internal/constants"
	"resume-match-go/internal/tracing"
	"resume-match-go/internal/types"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotFound 键不存在时返回，封装底层的redis.Nil
var ErrNotFound = redis.Nil

// 为Redis操作定义专用tracer
var redisTracer = otel.Tracer("resume-match-go/storage/redis")

// Redis 封装go-redis客户端，提供分析报告缓存
// 同一份简历搭配同一份JD重复提交时直接命中缓存，不再调用LLM
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter 创建Redis客户端连接
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis配置不能为空")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis地址不能为空")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 2,

		// 超时设置
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	client := redis.NewClient(opt)

	// 注册OpenTelemetry追踪钩子
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("注册Redis追踪钩子失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("连接Redis失败: %w", err)
	}

	return &Redis{
		Client: client,
		config: cfg,
	}, nil
}

// Close 关闭Redis连接
func (r *Redis) Close() error {
	return r.Client.Close()
}

// Ping 检查Redis连接
func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// ReportCacheKey 根据简历文件内容和JD文本计算缓存键
// 文件用MD5，JD文本用SHA256，两者共同唯一确定一份报告
func ReportCacheKey(fileData []byte, jobDescription string) string {
	fileSum := md5.Sum(fileData)
	jdSum := sha256.Sum256([]byte(jobDescription))
	return constants.KeyReportCachePrefix + hex.EncodeToString(fileSum[:]) + ":" + hex.EncodeToString(jdSum[:8])
}

// GetCachedReport 读取缓存的分析报告，未命中时返回ErrNotFound
func (r *Redis) GetCachedReport(ctx context.Context, key string) (*types.MatchReport, error) {
	ctx, span := redisTracer.Start(ctx, "Redis.GetCachedReport",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "GET"),
		attribute.String("cache.key", key),
	)

	data, err := r.Client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			span.SetAttributes(attribute.Bool("cache.hit", false))
			span.SetStatus(codes.Ok, "cache miss")
			return nil, ErrNotFound
		}
		tracing.RecordError(span, err, tracing.ErrorTypeCache)
		return nil, fmt.Errorf("读取报告缓存失败: %w", err)
	}

	var report types.MatchReport
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeCache)
		return nil, fmt.Errorf("解析缓存的报告失败: %w", err)
	}

	span.SetAttributes(attribute.Bool("cache.hit", true))
	span.SetStatus(codes.Ok, "")
	return &report, nil
}

// SetCachedReport 写入分析报告缓存
func (r *Redis) SetCachedReport(ctx context.Context, key string, report *types.MatchReport, ttl time.Duration) error {
	ctx, span := redisTracer.Start(ctx, "Redis.SetCachedReport",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "SET"),
		attribute.String("cache.key", key),
		attribute.Int64("cache.ttl_ms", ttl.Milliseconds()),
	)

	data, err := json.Marshal(report)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeCache)
		return fmt.Errorf("序列化报告失败: %w", err)
	}

	if err := r.Client.Set(ctx, key, data, ttl).Err(); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeCache)
		return fmt.Errorf("写入报告缓存失败: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}
