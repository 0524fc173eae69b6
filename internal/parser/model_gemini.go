package parser

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

// GeminiChatModel 基于Gemini API的聊天模型，实现 model.ToolCallingChatModel 接口
// 本服务的提示词都要求JSON输出，默认将响应MIME类型固定为application/json
type GeminiChatModel struct {
	client      *genai.Client
	model       string
	temperature float32
	logger      *log.Logger

	// generateFunc 实际的API调用，测试时可替换
	generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiModelOption 聊天模型的配置选项
type GeminiModelOption func(*GeminiChatModel)

// WithGeminiTemperature 配置采样温度
func WithGeminiTemperature(t float32) GeminiModelOption {
	return func(m *GeminiChatModel) {
		m.temperature = t
	}
}

// WithGeminiModelLogger 配置自定义日志记录器
func WithGeminiModelLogger(logger *log.Logger) GeminiModelOption {
	return func(m *GeminiChatModel) {
		m.logger = logger
	}
}

// 确保GeminiChatModel实现了model.ToolCallingChatModel接口
var _ model.ToolCallingChatModel = (*GeminiChatModel)(nil)

// NewGeminiChatModel 创建新的Gemini聊天模型
func NewGeminiChatModel(ctx context.Context, apiKey string, modelName string, options ...GeminiModelOption) (*GeminiChatModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API密钥不能为空")
	}
	if modelName == "" {
		return nil, fmt.Errorf("模型名称不能为空")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("创建Gemini客户端失败: %w", err)
	}

	m := &GeminiChatModel{
		client:      client,
		model:       modelName,
		temperature: 0.1,
		logger:      log.New(os.Stderr, "[GeminiChat] ", log.LstdFlags),
	}
	m.generateFunc = func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return client.Models.GenerateContent(ctx, model, contents, cfg)
	}

	// 应用选项
	for _, option := range options {
		option(m)
	}

	return m, nil
}

// Generate 实现 model.BaseChatModel 接口
func (m *GeminiChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("消息列表不能为空")
	}

	options := model.GetCommonOptions(&model.Options{}, opts...)

	effectiveModel := m.model
	if options.Model != nil && *options.Model != "" {
		effectiveModel = *options.Model
	}
	temperature := m.temperature
	if options.Temperature != nil {
		temperature = *options.Temperature
	}

	// system消息汇入SystemInstruction，其余消息按角色转换
	var systemParts []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case schema.System:
			systemParts = append(systemParts, msg.Content)
		case schema.Assistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("除system消息外至少需要一条对话消息")
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
	}
	if len(systemParts) > 0 {
		genCfg.SystemInstruction = genai.NewContentFromText(joinSystemParts(systemParts), genai.RoleUser)
	}

	resp, err := m.generateFunc(ctx, effectiveModel, contents, genCfg)
	if err != nil {
		m.logger.Printf("生成请求失败 (model=%s): %v", effectiveModel, err)
		return nil, fmt.Errorf("gemini生成请求失败: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini返回了空响应 (model=%s)", effectiveModel)
	}

	m.logger.Printf("生成完成 (model=%s): %d 个字符", effectiveModel, len(text))
	return &schema.Message{
		Role:    schema.Assistant,
		Content: text,
	}, nil
}

// Stream 实现 model.BaseChatModel 接口
// 当前流水线全部使用同步调用，流式暂不支持
func (m *GeminiChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("GeminiChatModel暂不支持流式输出")
}

// WithTools 实现 model.ToolCallingChatModel 接口
// 分析流水线不使用工具调用，直接返回自身
func (m *GeminiChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

func joinSystemParts(parts []string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	joined := parts[0]
	for _, p := range parts[1:] {
		joined += "\n\n" + p
	}
	return joined
}
