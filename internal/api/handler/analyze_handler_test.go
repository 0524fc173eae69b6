package handler

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"resume-match-go/internal/analyzer"
	"resume-match-go/internal/config"
	"resume-match-go/internal/storage"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePDFExtractor 返回固定文本，绕过真实PDF解析
type fakePDFExtractor struct {
	text      string
	pageCount int
	err       error
}

func (f *fakePDFExtractor) ExtractText(ctx context.Context, reader io.Reader, uri string) (string, map[string]interface{}, error) {
	panic("测试中只使用ExtractTextFromBytes")
}

func (f *fakePDFExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, map[string]interface{}, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return f.text, map[string]interface{}{"page_count": f.pageCount}, nil
}

// fakeChatModel 按提示词内容路由固定响应
type fakeChatModel struct{}

func (f *fakeChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	prompt := messages[len(messages)-1].Content
	switch {
	case strings.Contains(prompt, "extract the key skills"):
		return &schema.Message{Role: schema.Assistant, Content: `{"hard_skills": ["Go"], "soft_skills": []}`}, nil
	case strings.Contains(prompt, "panel of strict"):
		return &schema.Message{Role: schema.Assistant, Content: `{"seven_point_summary": {"job_title_match": true}, "heuristic_warnings": [], "content_critique": []}`}, nil
	default:
		return &schema.Message{Role: schema.Assistant, Content: `{
			"match_score": 80,
			"analysis": {"strong_matches": [{"skill": "Go", "evidence": "built Go services"}], "missing_skills": []},
			"recruiter_feedback": {"tick_list": {}, "red_flags": [], "style_critique": []},
			"interview_prep": ["Q1", "Q2", "Q3"]
		}`}, nil
	}
}

func (f *fakeChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("不支持流式输出")
}

func (f *fakeChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return f, nil
}

// fakeEmbedder 返回固定维度向量
type fakeEmbedder struct{ dim int }

func (f *fakeEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i := range vectors {
		vectors[i] = make([]float64, f.dim)
	}
	return vectors, nil
}

// fakeVectorDB 内存实现
type fakeVectorDB struct {
	created []string
	deleted []string
}

func (f *fakeVectorDB) CreateEphemeralCollection(ctx context.Context) (string, error) {
	name := fmt.Sprintf("resume_fake_%d", len(f.created))
	f.created = append(f.created, name)
	return name, nil
}

func (f *fakeVectorDB) UpsertPassages(ctx context.Context, collection string, passages []string, embeddings [][]float64) ([]string, error) {
	return make([]string, len(passages)), nil
}

func (f *fakeVectorDB) Search(ctx context.Context, collection string, queryVector []float64, limit int) ([]storage.SearchResult, error) {
	return []storage.SearchResult{{ID: "p", Score: 0.9, Payload: map[string]interface{}{"content_text": "built Go services"}}}, nil
}

func (f *fakeVectorDB) DeleteCollection(ctx context.Context, collection string) error {
	f.deleted = append(f.deleted, collection)
	return nil
}

func newTestHandler(t *testing.T, extractor *fakePDFExtractor) (*AnalyzeHandler, *fakeVectorDB) {
	t.Helper()
	cfg := &config.Config{
		Qdrant:   config.QdrantConfig{SearchLimit: 1},
		Analyzer: config.AnalyzerConfig{MaxRetries: 1, CritiqueTextLimit: 3000, SynthesisJDLimit: 500},
		Chunker:  config.ChunkerConfig{ChunkSize: 500},
	}
	vectorDB := &fakeVectorDB{}
	an, err := analyzer.NewAnalyzer(&fakeChatModel{}, &fakeEmbedder{dim: 4}, vectorDB, cfg)
	require.NoError(t, err)
	return NewAnalyzeHandler(cfg, &storage.Storage{}, extractor, an), vectorDB
}

// TestHandleAnalyze_Success 验证端到端分析流程
func TestHandleAnalyze_Success(t *testing.T) {
	extractor := &fakePDFExtractor{
		text:      "John Doe\nSoftware Engineer\nBuilt Go services at scale",
		pageCount: 1,
	}
	h, vectorDB := newTestHandler(t, extractor)

	report, err := h.HandleAnalyze(context.Background(), []byte("%PDF-fake"), "John Doe Resume.pdf", "Senior Go engineer")
	require.NoError(t, err)

	assert.Equal(t, 80, report.MatchScore)
	require.Len(t, report.Analysis.StrongMatches, 1)
	assert.Equal(t, "Go", report.Analysis.StrongMatches[0].Skill)
	assert.Equal(t, vectorDB.created, vectorDB.deleted, "临时集合应被清理")
}

// TestHandleAnalyze_UnreadablePDF 验证解析失败映射为ErrUnreadableResume
func TestHandleAnalyze_UnreadablePDF(t *testing.T) {
	extractor := &fakePDFExtractor{err: fmt.Errorf("损坏的PDF")}
	h, _ := newTestHandler(t, extractor)

	_, err := h.HandleAnalyze(context.Background(), []byte("not a pdf"), "resume.pdf", "Go engineer")
	require.ErrorIs(t, err, ErrUnreadableResume)
}

// TestHandleAnalyze_EmptyText 验证提取出空文本时报ErrUnreadableResume
func TestHandleAnalyze_EmptyText(t *testing.T) {
	extractor := &fakePDFExtractor{text: "   \n\n  ", pageCount: 1}
	h, _ := newTestHandler(t, extractor)

	_, err := h.HandleAnalyze(context.Background(), []byte("%PDF-fake"), "resume.pdf", "Go engineer")
	require.ErrorIs(t, err, ErrUnreadableResume, "清洗后无文本应视为不可读")
}
