package parser

import (
	"context"
	"fmt"
	"log"
	"os"

	"resume-match-go/internal/config"

	"github.com/cloudwego/eino/components/embedding"
	"google.golang.org/genai"
)

// GeminiEmbedder 实现 embedding.Embedder 接口，基于Gemini的文本嵌入API
type GeminiEmbedder struct {
	client     *genai.Client
	model      string
	dimensions int
	logger     *log.Logger

	// embedFunc 实际的API调用，测试时可替换
	embedFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// 确保GeminiEmbedder实现了embedding.Embedder接口
var _ embedding.Embedder = (*GeminiEmbedder)(nil)

// NewGeminiEmbedder 创建新的Gemini Embedder
func NewGeminiEmbedder(ctx context.Context, apiKey string, embeddingCfg config.EmbeddingConfig) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API密钥不能为空")
	}

	model := embeddingCfg.Model
	if model == "" {
		model = "text-embedding-004"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("创建Gemini客户端失败: %w", err)
	}

	embedder := &GeminiEmbedder{
		client:     client,
		model:      model,
		dimensions: embeddingCfg.Dimensions,
		logger:     log.New(os.Stderr, "[GeminiEmbedder] ", log.LstdFlags),
	}
	embedder.embedFunc = func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
		return client.Models.EmbedContent(ctx, model, contents, cfg)
	}

	return embedder, nil
}

// GetDimensions 返回嵌入器配置的维度
func (g *GeminiEmbedder) GetDimensions() int {
	return g.dimensions
}

// EmbedStrings 将文本转换为向量, 实现 cloudwego/eino embedding.Embedder 接口
func (g *GeminiEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	options := &embedding.Options{}
	embedding.GetCommonOptions(options, opts...)

	effectiveModel := g.model
	if options.Model != nil && *options.Model != "" {
		effectiveModel = *options.Model
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}

	var embedCfg *genai.EmbedContentConfig
	if g.dimensions > 0 {
		dim := int32(g.dimensions)
		embedCfg = &genai.EmbedContentConfig{OutputDimensionality: &dim}
	}

	result, err := g.embedFunc(ctx, effectiveModel, contents, embedCfg)
	if err != nil {
		g.logger.Printf("嵌入请求失败 (model=%s, texts=%d): %v", effectiveModel, len(texts), err)
		return nil, fmt.Errorf("gemini嵌入请求失败: %w", err)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("嵌入结果数量不匹配: 期望 %d, 实际 %d", len(texts), len(result.Embeddings))
	}

	vectors := make([][]float64, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("第 %d 个嵌入结果为空", i)
		}
		vec := make([]float64, len(emb.Values))
		for j, v := range emb.Values {
			vec[j] = float64(v)
		}
		vectors[i] = vec
	}

	g.logger.Printf("嵌入完成: %d 条文本, 向量维度 %d", len(texts), len(vectors[0]))
	return vectors, nil
}
