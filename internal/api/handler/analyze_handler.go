package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resume-match-go/internal/analyzer"
	"resume-match-go/internal/config"
	"resume-match-go/internal/logger"
	"resume-match-go/internal/parser"
	"resume-match-go/internal/storage"
	"resume-match-go/internal/types"
)

// ErrUnreadableResume 表示PDF无法提取出任何可用文本
// 路由层将其映射为400而不是500
var ErrUnreadableResume = errors.New("无法从PDF中提取文本")

// AnalyzeHandler 简历匹配分析处理器，协调完整的分析流程
type AnalyzeHandler struct {
	cfg       *config.Config
	storage   *storage.Storage
	extractor parser.PDFExtractor
	analyzer  *analyzer.Analyzer
}

// NewAnalyzeHandler 创建分析处理器
func NewAnalyzeHandler(cfg *config.Config, st *storage.Storage, extractor parser.PDFExtractor, an *analyzer.Analyzer) *AnalyzeHandler {
	return &AnalyzeHandler{
		cfg:       cfg,
		storage:   st,
		extractor: extractor,
		analyzer:  an,
	}
}

// HandleAnalyze 处理一次简历与岗位描述的匹配分析
func (h *AnalyzeHandler) HandleAnalyze(ctx context.Context, fileData []byte, filename string, jobDescription string) (*types.MatchReport, error) {
	startTime := time.Now()

	// 1. 缓存命中时直接返回，完全跳过LLM调用
	cacheKey := storage.ReportCacheKey(fileData, jobDescription)
	if h.storage != nil && h.storage.Redis != nil {
		if report, err := h.storage.Redis.GetCachedReport(ctx, cacheKey); err == nil {
			logger.Info().
				Str("filename", filename).
				Str("cache_key", cacheKey).
				Msg("报告缓存命中, 跳过分析")
			return report, nil
		} else if !errors.Is(err, storage.ErrNotFound) {
			logger.Warn().Err(err).Msg("读取报告缓存失败, 继续执行分析")
		}
	}

	// 2. 归档简历原件（尽力而为，失败不阻塞分析）
	if h.storage != nil && h.storage.MinIO != nil {
		if objectName, err := h.storage.MinIO.ArchiveResume(ctx, filename, fileData); err != nil {
			logger.Warn().Err(err).Str("filename", filename).Msg("归档简历原件失败")
		} else {
			logger.Debug().Str("object", objectName).Msg("简历原件已归档")
		}
	}

	// 3. 提取PDF文本和页数
	rawText, metadata, err := h.extractor.ExtractTextFromBytes(ctx, fileData, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableResume, err)
	}

	// 4. 清洗和分块
	cleaned := parser.CleanText(rawText)
	chunks := parser.ChunkText(cleaned, h.cfg.Chunker.ChunkSize)
	if len(chunks) == 0 {
		return nil, ErrUnreadableResume
	}

	fileMeta := types.FileMetadata{
		Filename:  filename,
		PageCount: parser.PageCountFromMetadata(metadata),
	}

	logger.Info().
		Str("filename", filename).
		Int("page_count", fileMeta.PageCount).
		Int("text_length", len(cleaned)).
		Int("chunk_count", len(chunks)).
		Msg("简历解析完成, 开始分析")

	// 5. 执行分析流水线
	// 启发式评审使用原始提取文本，与向量索引使用的清洗文本有意区分
	report, err := h.analyzer.Analyze(ctx, analyzer.AnalyzeRequest{
		JobDescription: jobDescription,
		ResumeText:     rawText,
		Chunks:         chunks,
		FileMetadata:   fileMeta,
	})
	if err != nil {
		return nil, err
	}

	// 6. 写入报告缓存（尽力而为）
	if h.storage != nil && h.storage.Redis != nil {
		if err := h.storage.Redis.SetCachedReport(ctx, cacheKey, report, h.cfg.ReportTTL()); err != nil {
			logger.Warn().Err(err).Msg("写入报告缓存失败")
		}
	}

	logger.Info().
		Str("filename", filename).
		Int("match_score", report.MatchScore).
		Dur("duration", time.Since(startTime)).
		Msg("分析完成")
	return report, nil
}
