package analyzer

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"resume-match-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
)

// 技能提取的提示词模板，要求LLM只输出JSON
const skillExtractionPromptTemplate = `Analyze the following Job Description and extract the key skills required.
Return ONLY a JSON object with two keys: "hard_skills" (list of strings) and "soft_skills" (list of strings).
Do not include any markdown formatting or explanations.

Job Description:
%s`

// SkillExtractor 从岗位描述中提取硬技能和软技能
type SkillExtractor struct {
	llmModel   model.ToolCallingChatModel
	taskModel  string // 非空时覆盖默认聊天模型
	maxRetries int
	baseDelay  time.Duration
	logger     *log.Logger
}

// NewSkillExtractor 创建技能提取器
func NewSkillExtractor(llmModel model.ToolCallingChatModel, taskModel string, maxRetries int, baseDelay time.Duration, logger *log.Logger) *SkillExtractor {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &SkillExtractor{
		llmModel:   llmModel,
		taskModel:  taskModel,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Extract 提取岗位描述中的技能清单
// 技能清单是后续取证环节的输入，提取失败时直接报错而不是降级为空结果
func (e *SkillExtractor) Extract(ctx context.Context, jobDescription string) (*types.ExtractedSkills, error) {
	if e.llmModel == nil {
		return nil, fmt.Errorf("SkillExtractor: llmModel未初始化")
	}
	if jobDescription == "" {
		return nil, fmt.Errorf("SkillExtractor: 岗位描述不能为空")
	}

	prompt := fmt.Sprintf(skillExtractionPromptTemplate, jobDescription)
	messages := []*einoschema.Message{einoschema.UserMessage(prompt)}

	response, err := callWithRetry(ctx, e.logger, e.maxRetries, e.baseDelay, func(ctx context.Context) (*einoschema.Message, error) {
		return e.llmModel.Generate(ctx, messages, taskModelOptions(e.taskModel)...)
	})
	if err != nil {
		return nil, fmt.Errorf("技能提取调用失败: %w", err)
	}
	if response == nil || response.Content == "" {
		return nil, fmt.Errorf("技能提取返回了空响应")
	}

	var skills types.ExtractedSkills
	if err := decodeModelJSON(response.Content, &skills); err != nil {
		return nil, fmt.Errorf("技能提取结果解析失败: %w", err)
	}

	e.logger.Printf("[SkillExtractor] 提取完成: %d 项硬技能, %d 项软技能", len(skills.HardSkills), len(skills.SoftSkills))
	return &skills, nil
}
