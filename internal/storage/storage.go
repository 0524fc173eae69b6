package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"resume-match-go/internal/config"
)

// Storage 存储管理器，聚合所有存储相关依赖
// Qdrant是分析流水线的必需组件，Redis和MinIO按配置可选
type Storage struct {
	// 向量数据库
	Qdrant *Qdrant

	// 报告缓存
	Redis *Redis

	// 简历归档
	MinIO *MinIO
}

// NewStorage 创建存储管理器
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	storage := &Storage{}
	var err error

	// 初始化Qdrant，失败则直接返回错误
	storage.Qdrant, err = NewQdrant(&cfg.Qdrant, WithHTTPTimeout(cfg.QdrantTimeout()))
	if err != nil {
		return nil, fmt.Errorf("初始化Qdrant失败: %w", err)
	}
	log.Printf("Qdrant客户端初始化成功: %s", cfg.Qdrant.Endpoint)

	// 初始化Redis（如果配置了），失败时降级为无缓存运行
	if cfg.Redis.Address != "" {
		storage.Redis, err = NewRedisAdapter(&cfg.Redis)
		if err != nil {
			log.Printf("警告: 初始化Redis失败: %v, 报告缓存不可用", err)
		} else {
			log.Printf("Redis客户端初始化成功: %s", cfg.Redis.Address)
		}
	} else {
		log.Printf("Redis未配置, 跳过初始化")
	}

	// 初始化MinIO（如果配置了），失败时降级为不归档
	if cfg.MinIO.Endpoint != "" {
		var minioLogger *log.Logger
		if cfg.Logger.Level == "debug" {
			minioLogger = log.New(os.Stderr, "[MinIOStorage] ", log.LstdFlags|log.Lshortfile)
		} else {
			minioLogger = log.New(io.Discard, "", 0)
		}
		storage.MinIO, err = NewMinIO(&cfg.MinIO, minioLogger)
		if err != nil {
			log.Printf("警告: 初始化MinIO失败: %v, 简历归档不可用", err)
		} else {
			log.Printf("MinIO客户端初始化成功: %s", cfg.MinIO.Endpoint)
		}
	} else {
		log.Printf("MinIO未配置, 跳过初始化")
	}

	return storage, nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Printf("关闭Redis连接失败: %v", err)
		}
	}
	// Qdrant和MinIO基于HTTP客户端，无需显式关闭
}
