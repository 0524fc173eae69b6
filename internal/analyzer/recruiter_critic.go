package analyzer

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"
	"unicode/utf8"

	"resume-match-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
)

// 招聘启发式评审的提示词模板
// 规则来自多位资深招聘官的反馈清单，要求LLM按固定结构输出JSON
const recruiterCritiquePromptTemplate = `You are a panel of strict, expert recruiters reviewing a resume.
You need to evaluate this resume based on specific heuristics and 'pet peeves' collected from top recruiters.

Resume Text (First %d chars approx):
%s...

Metadata:
Filename: %s
Page Count: %d

EVALUATION CRITERIA:

1. **Basics & Formatting**:
   - **Email**: Must be professional (gmail/outlook/domain). NO HOTMAIL.
   - **Length**: Should be 1 page unless experience > 20 years.
   - **Address**: "City, State" only. No full addresses.
   - **Filename**: Should be "FirstName LastName Resume". No "Version 1", "Final", or role names in title.
   - **Objective/Summary**: Should NOT exist.
   - **Layout**: Single column preference (hard to tell from text, but infer if reading order seems jumping).

2. **Content Style**:
   - **Tone**: Plain, direct style. No fluff/thesaurus words.
   - **Quantifiable**: Achievements must have numbers/metrics.
   - **Methodology**: Explain HOW success was achieved, not just what.

3. **The 7-Point Tick List** (Rate these as TRUE/FALSE based on evidence):
   - Job Title Match (Are titles clear/standard?)
   - Industry Match (Is industry experience obvious?)
   - Product Knowledge (Specific products/tools mentioned?)
   - Specialist Technical (Deep technical skills?)
   - Relevant Qualifications (Degrees/Certs visible?)
   - Ability to Add Value (Clear wins/revenue/growth?)
   - No. Years Experience (Easy to find total years?)

TASK:
Generate a JSON report with this EXACT structure:
{
    "seven_point_summary": {
        "job_title_match": boolean,
        "industry_match": boolean,
        "product_knowledge": boolean,
        "specialist_technical": boolean,
        "relevant_qualifications": boolean,
        "ability_to_add_value": boolean,
        "years_experience_visible": boolean
    },
    "heuristic_warnings": [
        // List of strings. Only include if a rule is VIOLATED.
        // Examples: "Filename 'resume_final_v2.pdf' is unprofessional. Rename to 'First Last Resume'.",
        // "Found a Hotmail address. Use Gmail or Outlook.",
        // "Resume is 3 pages long. condense to 1 page.",
        // "Found an 'Objective' section. Delete it and save space."
    ],
    "content_critique": [
        // List of strings. Critiques on writing style, lack of metrics, etc.
        // Example: "Bullet points under 'Software Engineer' lack quantifiable metrics."
    ]
}

Return ONLY valid JSON.`

// RecruiterCritic 按招聘官启发式规则评审简历
type RecruiterCritic struct {
	llmModel   model.ToolCallingChatModel
	taskModel  string // 非空时覆盖默认聊天模型
	textLimit  int
	maxRetries int
	baseDelay  time.Duration
	logger     *log.Logger
}

// NewRecruiterCritic 创建招聘启发式评审器
// textLimit限制送入提示词的简历文本长度，避免超出上下文窗口
func NewRecruiterCritic(llmModel model.ToolCallingChatModel, taskModel string, textLimit int, maxRetries int, baseDelay time.Duration, logger *log.Logger) *RecruiterCritic {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if textLimit <= 0 {
		textLimit = 3000
	}
	return &RecruiterCritic{
		llmModel:   llmModel,
		taskModel:  taskModel,
		textLimit:  textLimit,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Critique 评审简历文本和文件元信息
// 评审属于锦上添花环节，失败时返回空结果而不是让整个请求失败
func (c *RecruiterCritic) Critique(ctx context.Context, resumeText string, meta types.FileMetadata) (*types.RecruiterCritique, error) {
	if c.llmModel == nil {
		return nil, fmt.Errorf("RecruiterCritic: llmModel未初始化")
	}

	truncated := truncateOnRuneBoundary(resumeText, c.textLimit)

	filename := meta.Filename
	if filename == "" {
		filename = "Unknown"
	}
	pageCount := meta.PageCount
	if pageCount <= 0 {
		pageCount = 1
	}

	prompt := fmt.Sprintf(recruiterCritiquePromptTemplate, len(truncated), truncated, filename, pageCount)
	messages := []*einoschema.Message{einoschema.UserMessage(prompt)}

	response, err := callWithRetry(ctx, c.logger, c.maxRetries, c.baseDelay, func(ctx context.Context) (*einoschema.Message, error) {
		return c.llmModel.Generate(ctx, messages, taskModelOptions(c.taskModel)...)
	})
	if err != nil {
		return nil, fmt.Errorf("启发式评审调用失败: %w", err)
	}
	if response == nil || response.Content == "" {
		return nil, fmt.Errorf("启发式评审返回了空响应")
	}

	var critique types.RecruiterCritique
	if err := decodeModelJSON(response.Content, &critique); err != nil {
		return nil, fmt.Errorf("启发式评审结果解析失败: %w", err)
	}

	c.logger.Printf("[RecruiterCritic] 评审完成: %d 条红线警告, %d 条文风批评",
		len(critique.HeuristicWarnings), len(critique.ContentCritique))
	return &critique, nil
}

// truncateOnRuneBoundary 截断到不超过limit字节，且不切断多字节字符
func truncateOnRuneBoundary(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
