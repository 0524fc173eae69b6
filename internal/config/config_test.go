package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfigFromYAML 验证YAML配置能被正确加载且缺省字段被补齐
func TestLoadConfigFromYAML(t *testing.T) {
	yamlContent := `
gemini:
  model: "gemini-2.5-pro"
  task_models:
    skill_extraction: "gemini-2.5-flash"
  embedding:
    model: "text-embedding-004"
    dimensions: 768
qdrant:
  endpoint: "http://qdrant:6333"
  search_limit: 3
chunker:
  chunk_size: 800
server:
  address: ":9000"
`
	tmpDir, err := os.MkdirTemp("", "config-test")
	require.NoError(t, err, "无法创建临时目录")
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	err = os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err, "无法写入临时配置文件")

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err, "加载合法配置不应返回错误")
	require.NotNil(t, cfg, "配置对象不应为 nil")

	assert.Equal(t, "gemini-2.5-pro", cfg.Gemini.Model)
	assert.Equal(t, "http://qdrant:6333", cfg.Qdrant.Endpoint)
	assert.Equal(t, 3, cfg.Qdrant.SearchLimit)
	assert.Equal(t, 800, cfg.Chunker.ChunkSize)
	assert.Equal(t, ":9000", cfg.Server.Address)

	// 未出现在YAML中的字段应被默认值补齐
	assert.Equal(t, "eino", cfg.PDF.Engine, "PDF引擎应使用默认值")
	assert.Equal(t, 3, cfg.Analyzer.MaxRetries, "重试次数应使用默认值")
	assert.Equal(t, 768, cfg.Qdrant.Dimension, "向量维度应继承Embedding维度")
}

// TestGetModelForTask 验证任务专用模型的选择逻辑
func TestGetModelForTask(t *testing.T) {
	cfg := defaultConfig()
	cfg.Gemini.Model = "gemini-2.5-flash"
	cfg.Gemini.TaskModels = map[string]string{
		"synthesis": "gemini-2.5-pro",
	}

	assert.Equal(t, "gemini-2.5-pro", cfg.GetModelForTask("synthesis"), "应返回任务专用模型")
	assert.Equal(t, "gemini-2.5-flash", cfg.GetModelForTask("skill_extraction"), "未配置的任务应回退到默认模型")
}

// TestEnvOverrides 验证环境变量对密钥的覆盖
func TestEnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")

	tmpDir, err := os.MkdirTemp("", "config-test-env")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	err = os.WriteFile(configPath, []byte("gemini:\n  api_key: \"file-key\"\n"), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Gemini.APIKey, "环境变量应覆盖配置文件中的密钥")
}
