package analyzer

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"resume-match-go/internal/storage"
	"resume-match-go/internal/types"

	"github.com/cloudwego/eino/components/embedding"
)

// EvidenceVerifier 通过向量检索为每个技能在简历中寻找证据
type EvidenceVerifier struct {
	embedder    embedding.Embedder
	vectorDB    storage.VectorDatabase
	searchLimit int
	minScore    float32
	maxRetries  int
	baseDelay   time.Duration
	logger      *log.Logger
}

// NewEvidenceVerifier 创建技能取证器
// minScore为0时不做相似度过滤，任何最近邻命中都算找到证据
func NewEvidenceVerifier(embedder embedding.Embedder, vectorDB storage.VectorDatabase, searchLimit int, minScore float32, maxRetries int, baseDelay time.Duration, logger *log.Logger) *EvidenceVerifier {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if searchLimit <= 0 {
		searchLimit = 1
	}
	return &EvidenceVerifier{
		embedder:    embedder,
		vectorDB:    vectorDB,
		searchLimit: searchLimit,
		minScore:    minScore,
		maxRetries:  maxRetries,
		baseDelay:   baseDelay,
		logger:      logger,
	}
}

// VerifySkills 逐个技能检索证据
// 单个技能的检索失败降级为"未找到"，不影响其余技能和整体请求
func (v *EvidenceVerifier) VerifySkills(ctx context.Context, collection string, skills []string) []types.SkillEvidence {
	results := make([]types.SkillEvidence, 0, len(skills))
	for _, skill := range skills {
		evidence, err := v.verifyOne(ctx, collection, skill)
		if err != nil {
			v.logger.Printf("[EvidenceVerifier] 技能 '%s' 取证失败: %v", skill, err)
			results = append(results, types.SkillEvidence{Skill: skill, Found: false})
			continue
		}
		results = append(results, evidence)
	}
	return results
}

// verifyOne 为单个技能检索最近邻证据
func (v *EvidenceVerifier) verifyOne(ctx context.Context, collection string, skill string) (types.SkillEvidence, error) {
	evidence := types.SkillEvidence{Skill: skill}

	// 嵌入调用也受配额限制，同样走重试
	vectors, err := callWithRetry(ctx, v.logger, v.maxRetries, v.baseDelay, func(ctx context.Context) ([][]float64, error) {
		return v.embedder.EmbedStrings(ctx, []string{skill})
	})
	if err != nil {
		return evidence, fmt.Errorf("技能嵌入失败: %w", err)
	}
	if len(vectors) == 0 {
		return evidence, fmt.Errorf("技能嵌入返回了空向量")
	}

	matches, err := v.vectorDB.Search(ctx, collection, vectors[0], v.searchLimit)
	if err != nil {
		return evidence, fmt.Errorf("向量检索失败: %w", err)
	}

	for _, match := range matches {
		if v.minScore > 0 && match.Score < v.minScore {
			continue
		}
		evidence.Found = true
		evidence.Evidence = match.Content()
		evidence.Score = match.Score
		break
	}

	return evidence, nil
}
