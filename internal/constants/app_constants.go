package constants

// Redis Key 前缀常量
// 统一的命名规范: {entity}:{file_md5}:{jd_hash}
const (
	// KeyReportCachePrefix 匹配报告缓存键前缀 (STRING, JSON值)
	// 格式: report:{file_md5}:{jd_sha256前8字节}
	KeyReportCachePrefix = "report:"
)

// Qdrant 集合与负载字段常量
const (
	// EphemeralCollectionPrefix 一次性简历集合的名称前缀
	// 格式: resume_{uuid}
	EphemeralCollectionPrefix = "resume_"

	// PayloadChunkID 分块在简历中的序号
	PayloadChunkID = "chunk_id"
	// PayloadContentText 分块的原始文本
	PayloadContentText = "content_text"
	// PayloadSource 负载来源标记
	PayloadSource = "source"

	// SourceResume 简历来源标记值
	SourceResume = "resume"
)
