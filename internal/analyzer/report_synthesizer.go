package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"resume-match-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
)

// 最终报告合成的提示词模板
const reportSynthesisPromptTemplate = `You are an expert technical recruiter. I have analyzed a candidate's resume against a job description using semantic search AND a strict recruiter heuristics check.

Here is the raw analysis data:
%s

Job Description Summary:
%s... (truncated)

Task:
Generate a structured JSON report evaluating the candidate.
The JSON must have this exact structure:
{
    "match_score": <integer_0_to_100>,
    "analysis": {
        "strong_matches": [{"skill": string, "evidence": string}],
        "missing_skills": [{"skill": string, "recommendation": string}]
    },
    "recruiter_feedback": {
        "tick_list": {
             // Copy directly from recruiter_heuristics.seven_point_summary, but ensure keys match exactly
             "Job Title Match": boolean,
             "Industry Match": boolean,
             "Product Knowledge": boolean,
             "Specialist Technical": boolean,
             "Relevant Qualifications": boolean,
             "Ability to Add Value": boolean,
             "Years Experience": boolean
        },
        "red_flags": [<list of string warnings from heuristic_warnings>],
        "style_critique": [<list of string critiques from content_critique>]
    },
    "interview_prep": [<list of 3 tough interview questions based on the gaps or weak matches>]
}

Be fair but strict.
If 'red_flags' has many items, lower the match_score significantly (e.g. -5 points per red flag).
Return ONLY valid JSON.`

// tick_list在最终报告中的展示键名
var tickListDisplayKeys = []string{
	"Job Title Match",
	"Industry Match",
	"Product Knowledge",
	"Specialist Technical",
	"Relevant Qualifications",
	"Ability to Add Value",
	"Years Experience",
}

// synthesisContext 传给合成提示词的原始分析数据
type synthesisContext struct {
	HardSkills          []types.SkillEvidence    `json:"hard_skills"`
	SoftSkills          []types.SkillEvidence    `json:"soft_skills"`
	RecruiterHeuristics *types.RecruiterCritique `json:"recruiter_heuristics"`
}

// ReportSynthesizer 汇总各环节分析结果，生成最终的结构化报告
type ReportSynthesizer struct {
	llmModel   model.ToolCallingChatModel
	taskModel  string // 非空时覆盖默认聊天模型
	jdLimit    int
	maxRetries int
	baseDelay  time.Duration
	logger     *log.Logger
}

// NewReportSynthesizer 创建报告合成器
// jdLimit限制提示词中岗位描述摘要的长度
func NewReportSynthesizer(llmModel model.ToolCallingChatModel, taskModel string, jdLimit int, maxRetries int, baseDelay time.Duration, logger *log.Logger) *ReportSynthesizer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if jdLimit <= 0 {
		jdLimit = 500
	}
	return &ReportSynthesizer{
		llmModel:   llmModel,
		taskModel:  taskModel,
		jdLimit:    jdLimit,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Synthesize 合成最终匹配报告
func (s *ReportSynthesizer) Synthesize(ctx context.Context, jobDescription string, hardSkills, softSkills []types.SkillEvidence, critique *types.RecruiterCritique) (*types.MatchReport, error) {
	if s.llmModel == nil {
		return nil, fmt.Errorf("ReportSynthesizer: llmModel未初始化")
	}

	analysisCtx := synthesisContext{
		HardSkills:          hardSkills,
		SoftSkills:          softSkills,
		RecruiterHeuristics: critique,
	}
	contextJSON, err := json.MarshalIndent(analysisCtx, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("序列化分析上下文失败: %w", err)
	}

	jdSummary := truncateOnRuneBoundary(jobDescription, s.jdLimit)

	prompt := fmt.Sprintf(reportSynthesisPromptTemplate, string(contextJSON), jdSummary)
	messages := []*einoschema.Message{einoschema.UserMessage(prompt)}

	response, err := callWithRetry(ctx, s.logger, s.maxRetries, s.baseDelay, func(ctx context.Context) (*einoschema.Message, error) {
		return s.llmModel.Generate(ctx, messages, taskModelOptions(s.taskModel)...)
	})
	if err != nil {
		return nil, fmt.Errorf("报告合成调用失败: %w", err)
	}
	if response == nil || response.Content == "" {
		return nil, fmt.Errorf("报告合成返回了空响应")
	}

	var report types.MatchReport
	if err := decodeModelJSON(response.Content, &report); err != nil {
		return nil, fmt.Errorf("报告合成结果解析失败: %w", err)
	}

	if err := validateMatchReport(&report, critique); err != nil {
		return nil, fmt.Errorf("报告合成结果校验失败: %w", err)
	}

	s.logger.Printf("[ReportSynthesizer] 合成完成: match_score=%d, %d 项匹配, %d 项缺失",
		report.MatchScore, len(report.Analysis.StrongMatches), len(report.Analysis.MissingSkills))
	return &report, nil
}

// validateMatchReport 校验并修补LLM生成的报告
// tick_list可能缺键或使用了错误键名，统一按七项清单补齐
func validateMatchReport(report *types.MatchReport, critique *types.RecruiterCritique) error {
	if report.MatchScore < 0 || report.MatchScore > 100 {
		return fmt.Errorf("match_score必须在0到100之间, 实际为 %d", report.MatchScore)
	}

	if report.RecruiterFeedback.TickList == nil {
		report.RecruiterFeedback.TickList = make(map[string]bool, len(tickListDisplayKeys))
	}
	fallback := fallbackTickValues(critique)
	for i, key := range tickListDisplayKeys {
		if _, ok := report.RecruiterFeedback.TickList[key]; !ok {
			report.RecruiterFeedback.TickList[key] = fallback[i]
		}
	}

	if report.Analysis.StrongMatches == nil {
		report.Analysis.StrongMatches = []types.StrongMatch{}
	}
	if report.Analysis.MissingSkills == nil {
		report.Analysis.MissingSkills = []types.MissingSkill{}
	}
	if report.RecruiterFeedback.RedFlags == nil {
		report.RecruiterFeedback.RedFlags = []string{}
	}
	if report.RecruiterFeedback.StyleCritique == nil {
		report.RecruiterFeedback.StyleCritique = []string{}
	}
	if report.InterviewPrep == nil {
		report.InterviewPrep = []string{}
	}

	return nil
}

// fallbackTickValues 按展示键顺序返回评审结果中的七项布尔值
func fallbackTickValues(critique *types.RecruiterCritique) []bool {
	if critique == nil {
		return make([]bool, len(tickListDisplayKeys))
	}
	s := critique.SevenPointSummary
	return []bool{
		s.JobTitleMatch,
		s.IndustryMatch,
		s.ProductKnowledge,
		s.SpecialistTechnical,
		s.RelevantQualifications,
		s.AbilityToAddValue,
		s.YearsExperienceVisible,
	}
}
