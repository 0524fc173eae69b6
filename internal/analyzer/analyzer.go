package analyzer

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"resume-match-go/internal/config"
	"resume-match-go/internal/storage"
	"resume-match-go/internal/tracing"
	"resume-match-go/internal/types"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// 定义分析器的专用tracer
var analyzerTracer = otel.Tracer("resume-match-go/analyzer")

// 任务专用模型在配置task_models中的键名
const (
	TaskSkillExtraction   = "skill_extraction"
	TaskRecruiterCritique = "recruiter_critique"
	TaskReportSynthesis   = "report_synthesis"
)

// taskModelOptions 按任务模型名构造Generate调用选项
// 未配置专用模型时返回空，走默认模型
func taskModelOptions(taskModel string) []model.Option {
	if taskModel == "" {
		return nil
	}
	return []model.Option{model.WithModel(taskModel)}
}

// taskModelOverride 返回任务的专用模型名，和默认模型相同时返回空串
func taskModelOverride(cfg *config.Config, task string) string {
	m := cfg.GetModelForTask(task)
	if m == cfg.Gemini.Model {
		return ""
	}
	return m
}

// AnalyzeRequest 一次简历匹配分析的全部输入
type AnalyzeRequest struct {
	JobDescription string
	ResumeText     string   // 提取出的简历全文，供启发式评审使用
	Chunks         []string // 分块后的简历文本，作为向量索引的内容
	FileMetadata   types.FileMetadata
}

// Analyzer 简历匹配分析流水线的编排器
// 每次请求走: 建临时集合 -> 写入分块向量 -> 并发提取技能+启发式评审 -> 逐技能取证 -> 合成报告
type Analyzer struct {
	extractor   *SkillExtractor
	critic      *RecruiterCritic
	verifier    *EvidenceVerifier
	synthesizer *ReportSynthesizer

	embedder embedding.Embedder
	vectorDB storage.VectorDatabase

	maxRetries int
	baseDelay  time.Duration
	logger     *log.Logger
}

// AnalyzerOption 定义分析器构造选项
type AnalyzerOption func(*Analyzer)

// WithAnalyzerLogger 配置自定义日志记录器
func WithAnalyzerLogger(logger *log.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// NewAnalyzer 创建分析器
func NewAnalyzer(llmModel model.ToolCallingChatModel, embedder embedding.Embedder, vectorDB storage.VectorDatabase, cfg *config.Config, opts ...AnalyzerOption) (*Analyzer, error) {
	if llmModel == nil {
		return nil, fmt.Errorf("llmModel不能为空")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder不能为空")
	}
	if vectorDB == nil {
		return nil, fmt.Errorf("vectorDB不能为空")
	}
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	a := &Analyzer{
		embedder:   embedder,
		vectorDB:   vectorDB,
		maxRetries: cfg.Analyzer.MaxRetries,
		baseDelay:  cfg.RetryBaseDelay(),
		logger:     log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.extractor = NewSkillExtractor(llmModel, taskModelOverride(cfg, TaskSkillExtraction), a.maxRetries, a.baseDelay, a.logger)
	a.critic = NewRecruiterCritic(llmModel, taskModelOverride(cfg, TaskRecruiterCritique), cfg.Analyzer.CritiqueTextLimit, a.maxRetries, a.baseDelay, a.logger)
	a.verifier = NewEvidenceVerifier(embedder, vectorDB, cfg.Qdrant.SearchLimit, cfg.Qdrant.MinEvidenceScore, a.maxRetries, a.baseDelay, a.logger)
	a.synthesizer = NewReportSynthesizer(llmModel, taskModelOverride(cfg, TaskReportSynthesis), cfg.Analyzer.SynthesisJDLimit, a.maxRetries, a.baseDelay, a.logger)

	return a, nil
}

// Analyze 执行完整的简历匹配分析
func (a *Analyzer) Analyze(ctx context.Context, req AnalyzeRequest) (*types.MatchReport, error) {
	ctx, span := analyzerTracer.Start(ctx, "Analyzer.Analyze")
	defer span.End()

	span.SetAttributes(
		attribute.Int("resume.text_length", len(req.ResumeText)),
		attribute.Int("resume.chunk_count", len(req.Chunks)),
		attribute.Int("resume.page_count", req.FileMetadata.PageCount),
		attribute.Int("jd.text_length", len(req.JobDescription)),
	)

	if req.JobDescription == "" {
		err := fmt.Errorf("岗位描述不能为空")
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}
	if len(req.Chunks) == 0 {
		err := fmt.Errorf("简历分块为空，无法建立向量索引")
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}

	// 1. 建立本次请求的临时向量索引
	collection, err := a.buildEphemeralIndex(ctx, req.Chunks)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return nil, err
	}
	span.SetAttributes(attribute.String("vector.collection", collection))

	// 无论分析成败，请求结束时删除临时集合
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := a.vectorDB.DeleteCollection(cleanupCtx, collection); err != nil {
			a.logger.Printf("[Analyzer] 清理临时集合 %s 失败: %v", collection, err)
		}
	}()

	// 2. 并发执行技能提取和启发式评审
	var skills *types.ExtractedSkills
	var critique *types.RecruiterCritique

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		skills, err = a.extractor.Extract(gctx, req.JobDescription)
		return err
	})
	g.Go(func() error {
		result, err := a.critic.Critique(gctx, req.ResumeText, req.FileMetadata)
		if err != nil {
			// 评审失败降级为空结果，技能分析仍然有价值
			a.logger.Printf("[Analyzer] 启发式评审失败, 使用空结果继续: %v", err)
			critique = &types.RecruiterCritique{
				HeuristicWarnings: []string{},
				ContentCritique:   []string{},
			}
			return nil
		}
		critique = result
		return nil
	})
	if err := g.Wait(); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, fmt.Errorf("技能提取失败: %w", err)
	}

	span.SetAttributes(
		attribute.Int("skills.hard_count", len(skills.HardSkills)),
		attribute.Int("skills.soft_count", len(skills.SoftSkills)),
	)

	// 3. 逐技能在向量索引中取证
	hardVerified := a.verifier.VerifySkills(ctx, collection, skills.HardSkills)
	softVerified := a.verifier.VerifySkills(ctx, collection, skills.SoftSkills)

	// 4. 合成最终报告
	report, err := a.synthesizer.Synthesize(ctx, req.JobDescription, hardVerified, softVerified, critique)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		return nil, err
	}

	span.SetAttributes(attribute.Int("report.match_score", report.MatchScore))
	span.SetStatus(codes.Ok, "")
	return report, nil
}

// buildEphemeralIndex 创建临时集合并写入简历分块向量
func (a *Analyzer) buildEphemeralIndex(ctx context.Context, chunks []string) (string, error) {
	ctx, span := analyzerTracer.Start(ctx, "Analyzer.BuildEphemeralIndex")
	defer span.End()

	// 嵌入整批分块，限流时走重试
	vectors, err := callWithRetry(ctx, a.logger, a.maxRetries, a.baseDelay, func(ctx context.Context) ([][]float64, error) {
		return a.embedder.EmbedStrings(ctx, chunks)
	})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeEmbedding)
		return "", fmt.Errorf("简历分块嵌入失败: %w", err)
	}

	collection, err := a.vectorDB.CreateEphemeralCollection(ctx)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return "", fmt.Errorf("创建临时集合失败: %w", err)
	}

	if _, err := a.vectorDB.UpsertPassages(ctx, collection, chunks, vectors); err != nil {
		// 写入失败时立即清理刚创建的集合
		if delErr := a.vectorDB.DeleteCollection(ctx, collection); delErr != nil {
			a.logger.Printf("[Analyzer] 回滚删除集合 %s 失败: %v", collection, delErr)
		}
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return "", fmt.Errorf("写入分块向量失败: %w", err)
	}

	span.SetAttributes(
		attribute.String("vector.collection", collection),
		attribute.Int("vector.count", len(vectors)),
	)
	span.SetStatus(codes.Ok, "")
	return collection, nil
}
