package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 应用程序配置
type Config struct {
	// Gemini API配置
	Gemini GeminiConfig `yaml:"gemini"`

	// Qdrant向量数据库配置
	Qdrant QdrantConfig `yaml:"qdrant"`

	// PDF解析配置
	PDF PDFConfig `yaml:"pdf"`

	// 分析器配置
	Analyzer AnalyzerConfig `yaml:"analyzer"`

	// 文本清洗与分块配置
	Chunker ChunkerConfig `yaml:"chunker"`

	// HTTP服务器配置
	Server ServerConfig `yaml:"server"`

	// Redis缓存配置（可选，address为空时禁用）
	Redis RedisConfig `yaml:"redis"`

	// MinIO归档配置（可选，endpoint为空时禁用）
	MinIO MinIOConfig `yaml:"minio"`

	// 日志配置
	Logger LoggerConfig `yaml:"logger"`

	// OpenTelemetry导出配置（endpoint为空时不导出）
	Tracing TracingConfig `yaml:"tracing"`

	// 模型QPM限制配置
	ModelQPMLimits map[string]int `yaml:"model_qpm_limits"`
}

// GeminiConfig Gemini API配置结构
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"` // 默认聊天模型
	// 任务专用模型，例如 {"skill_extraction": "gemini-2.5-flash"}
	TaskModels map[string]string `yaml:"task_models"`
	Embedding  EmbeddingConfig   `yaml:"embedding"`
}

// EmbeddingConfig Gemini Embedding配置
type EmbeddingConfig struct {
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// QdrantConfig Qdrant向量数据库配置
type QdrantConfig struct {
	Endpoint         string  `yaml:"endpoint"`
	Dimension        int     `yaml:"dimension"`
	APIKey           string  `yaml:"api_key,omitempty"`  // (可选) Qdrant API Key
	SearchLimit      int     `yaml:"search_limit"`       // 每个技能检索的证据条数
	MinEvidenceScore float32 `yaml:"min_evidence_score"` // 证据命中的最低相似度，0表示不过滤
	TimeoutSeconds   int     `yaml:"timeout_seconds"`
}

// PDFConfig PDF解析配置结构
type PDFConfig struct {
	Engine         string `yaml:"engine"`          // "eino" (进程内) 或 "tika"
	TikaServerURL  string `yaml:"tika_server_url"` // Tika服务器URL
	TimeoutSeconds int    `yaml:"timeout_seconds"` // 超时时间(秒)
}

// AnalyzerConfig 分析器配置结构
type AnalyzerConfig struct {
	MaxRetries       int     `yaml:"max_retries"`        // 最大重试次数
	RetryBaseSeconds int     `yaml:"retry_base_seconds"` // 首次重试等待时间(秒)
	Temperature      float64 `yaml:"temperature"`
	// 用于招聘启发式评审的简历文本截断长度（字符数）
	CritiqueTextLimit int `yaml:"critique_text_limit"`
	// 综合报告提示中JD摘要的截断长度（字符数）
	SynthesisJDLimit int `yaml:"synthesis_jd_limit"`
}

// ChunkerConfig 文本清洗与分块配置
type ChunkerConfig struct {
	ChunkSize int `yaml:"chunk_size"` // 每个分块的字节数
}

// ServerConfig HTTP服务器配置
type ServerConfig struct {
	Address        string `yaml:"address"`          // 例如 ":8000"
	MaxUploadBytes int64  `yaml:"max_upload_bytes"` // 上传文件大小限制
}

// RedisConfig Redis缓存配置
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	// 报告缓存过期时间(分钟)
	ReportTTLMinutes int `yaml:"report_ttl_minutes"`
}

// MinIOConfig MinIO归档配置
type MinIOConfig struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	UseSSL          bool   `yaml:"useSSL"`
	Bucket          string `yaml:"bucket"`
	Location        string `yaml:"location"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level        string `yaml:"level"`         // debug, info, warn, error
	Format       string `yaml:"format"`        // json, pretty
	TimeFormat   string `yaml:"time_format"`   // 时间格式
	ReportCaller bool   `yaml:"report_caller"` // 是否报告调用位置
}

// TracingConfig OpenTelemetry导出配置
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint"` // OTLP gRPC端点，例如 "localhost:4317"
	ServiceName string `yaml:"service_name"`
}

// LoadConfig 从文件加载配置，并应用环境变量覆盖与默认值
func LoadConfig(configPath string) (*Config, error) {
	// 如果未指定配置文件路径，则尝试在默认位置查找
	if configPath == "" {
		searchPaths := []string{
			"config.yaml",
			"./config.yaml",
			"../config.yaml",
			filepath.Join(os.Getenv("HOME"), ".resume-match", "config.yaml"),
		}

		if execPath, err := os.Executable(); err == nil {
			searchPaths = append(searchPaths, filepath.Join(filepath.Dir(execPath), "config.yaml"))
		}

		for _, path := range searchPaths {
			if _, err := os.Stat(path); err == nil {
				configPath = path
				break
			}
		}

		// 找不到配置文件时使用纯默认配置，密钥仍可来自环境变量
		if configPath == "" {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// applyEnvOverrides 从环境变量覆盖敏感配置
func applyEnvOverrides(cfg *Config) {
	if envKey := os.Getenv("GEMINI_API_KEY"); envKey != "" {
		cfg.Gemini.APIKey = envKey
	}
	if envModel := os.Getenv("GEMINI_MODEL"); envModel != "" {
		cfg.Gemini.Model = envModel
	}
	if envQdrant := os.Getenv("QDRANT_ENDPOINT"); envQdrant != "" {
		cfg.Qdrant.Endpoint = envQdrant
	}
}

// applyDefaults 补齐YAML中缺失的字段
func applyDefaults(cfg *Config) {
	def := defaultConfig()
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = def.Gemini.Model
	}
	if cfg.Gemini.Embedding.Model == "" {
		cfg.Gemini.Embedding.Model = def.Gemini.Embedding.Model
	}
	if cfg.Gemini.Embedding.Dimensions <= 0 {
		cfg.Gemini.Embedding.Dimensions = def.Gemini.Embedding.Dimensions
	}
	if cfg.Qdrant.Endpoint == "" {
		cfg.Qdrant.Endpoint = def.Qdrant.Endpoint
	}
	if cfg.Qdrant.Dimension <= 0 {
		cfg.Qdrant.Dimension = cfg.Gemini.Embedding.Dimensions
	}
	if cfg.Qdrant.SearchLimit <= 0 {
		cfg.Qdrant.SearchLimit = def.Qdrant.SearchLimit
	}
	if cfg.Qdrant.TimeoutSeconds <= 0 {
		cfg.Qdrant.TimeoutSeconds = def.Qdrant.TimeoutSeconds
	}
	if cfg.PDF.Engine == "" {
		cfg.PDF.Engine = def.PDF.Engine
	}
	if cfg.PDF.TimeoutSeconds <= 0 {
		cfg.PDF.TimeoutSeconds = def.PDF.TimeoutSeconds
	}
	if cfg.Analyzer.MaxRetries <= 0 {
		cfg.Analyzer.MaxRetries = def.Analyzer.MaxRetries
	}
	if cfg.Analyzer.RetryBaseSeconds <= 0 {
		cfg.Analyzer.RetryBaseSeconds = def.Analyzer.RetryBaseSeconds
	}
	if cfg.Analyzer.CritiqueTextLimit <= 0 {
		cfg.Analyzer.CritiqueTextLimit = def.Analyzer.CritiqueTextLimit
	}
	if cfg.Analyzer.SynthesisJDLimit <= 0 {
		cfg.Analyzer.SynthesisJDLimit = def.Analyzer.SynthesisJDLimit
	}
	if cfg.Chunker.ChunkSize <= 0 {
		cfg.Chunker.ChunkSize = def.Chunker.ChunkSize
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = def.Server.Address
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		cfg.Server.MaxUploadBytes = def.Server.MaxUploadBytes
	}
	if cfg.Redis.ReportTTLMinutes <= 0 {
		cfg.Redis.ReportTTLMinutes = def.Redis.ReportTTLMinutes
	}
	if cfg.Redis.PoolSize <= 0 {
		cfg.Redis.PoolSize = def.Redis.PoolSize
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = def.Tracing.ServiceName
	}
	if cfg.ModelQPMLimits == nil {
		cfg.ModelQPMLimits = def.ModelQPMLimits
	}
}

// defaultConfig 创建默认配置
func defaultConfig() *Config {
	cfg := &Config{}

	cfg.Gemini.Model = "gemini-2.5-flash"
	cfg.Gemini.Embedding.Model = "text-embedding-004"
	cfg.Gemini.Embedding.Dimensions = 768

	cfg.Qdrant.Endpoint = "http://localhost:6333"
	cfg.Qdrant.Dimension = 768
	cfg.Qdrant.SearchLimit = 1
	cfg.Qdrant.MinEvidenceScore = 0
	cfg.Qdrant.TimeoutSeconds = 30

	cfg.PDF.Engine = "eino"
	cfg.PDF.TikaServerURL = "http://localhost:9998"
	cfg.PDF.TimeoutSeconds = 60

	cfg.Analyzer.MaxRetries = 3
	cfg.Analyzer.RetryBaseSeconds = 2
	cfg.Analyzer.Temperature = 0.2
	cfg.Analyzer.CritiqueTextLimit = 3000
	cfg.Analyzer.SynthesisJDLimit = 500

	cfg.Chunker.ChunkSize = 500

	cfg.Server.Address = ":8000"
	cfg.Server.MaxUploadBytes = 10 << 20 // 10 MB

	cfg.Redis.ReportTTLMinutes = 60
	cfg.Redis.PoolSize = 10

	cfg.Logger.Level = "info"
	cfg.Logger.Format = "pretty"
	cfg.Logger.TimeFormat = "2006-01-02 15:04:05"
	cfg.Logger.ReportCaller = true

	cfg.Tracing.ServiceName = "resume-match-go"

	cfg.ModelQPMLimits = map[string]int{
		"gemini-2.5-flash": 1000,
		"gemini-2.5-pro":   150,
	}

	return cfg
}

// GetModelForTask 根据任务名称获取合适的模型
// 如果任务专用模型存在则返回专用模型，否则返回默认模型
func (c *Config) GetModelForTask(taskName string) string {
	if c.Gemini.TaskModels != nil {
		if model, ok := c.Gemini.TaskModels[taskName]; ok && model != "" {
			return model
		}
	}
	return c.Gemini.Model
}

// QdrantTimeout 返回Qdrant HTTP客户端超时
func (c *Config) QdrantTimeout() time.Duration {
	return time.Duration(c.Qdrant.TimeoutSeconds) * time.Second
}

// RetryBaseDelay 返回分析器首次重试的等待时间
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Analyzer.RetryBaseSeconds) * time.Second
}

// ReportTTL 返回报告缓存的过期时间
func (c *Config) ReportTTL() time.Duration {
	return time.Duration(c.Redis.ReportTTLMinutes) * time.Minute
}
