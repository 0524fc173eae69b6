package types

// ExtractedSkills 从岗位描述中提取出的技能清单
type ExtractedSkills struct {
	HardSkills []string `json:"hard_skills"`
	SoftSkills []string `json:"soft_skills"`
}

// SkillEvidence 单个技能在简历中的取证结果
type SkillEvidence struct {
	Skill    string  `json:"skill"`
	Found    bool    `json:"found"`
	Evidence string  `json:"evidence"`
	Score    float32 `json:"score,omitempty"` // 最近邻相似度，仅命中时有值
}

// SevenPointSummary 招聘官七项核对清单
type SevenPointSummary struct {
	JobTitleMatch          bool `json:"job_title_match"`
	IndustryMatch          bool `json:"industry_match"`
	ProductKnowledge       bool `json:"product_knowledge"`
	SpecialistTechnical    bool `json:"specialist_technical"`
	RelevantQualifications bool `json:"relevant_qualifications"`
	AbilityToAddValue      bool `json:"ability_to_add_value"`
	YearsExperienceVisible bool `json:"years_experience_visible"`
}

// RecruiterCritique 招聘启发式评审结果
type RecruiterCritique struct {
	SevenPointSummary SevenPointSummary `json:"seven_point_summary"`
	HeuristicWarnings []string          `json:"heuristic_warnings"`
	ContentCritique   []string          `json:"content_critique"`
}

// FileMetadata 上传文件的元信息，供启发式评审使用
type FileMetadata struct {
	Filename  string `json:"filename"`
	PageCount int    `json:"page_count"`
}

// StrongMatch 最终报告中的技能匹配项
type StrongMatch struct {
	Skill    string `json:"skill"`
	Evidence string `json:"evidence"`
}

// MissingSkill 最终报告中的缺失技能项
type MissingSkill struct {
	Skill          string `json:"skill"`
	Recommendation string `json:"recommendation"`
}

// ReportAnalysis 最终报告的技能分析部分
type ReportAnalysis struct {
	StrongMatches []StrongMatch  `json:"strong_matches"`
	MissingSkills []MissingSkill `json:"missing_skills"`
}

// RecruiterFeedback 最终报告的招聘官反馈部分。
// tick_list 的键为展示用的英文标题，与原有客户端的报告格式保持兼容。
type RecruiterFeedback struct {
	TickList      map[string]bool `json:"tick_list"`
	RedFlags      []string        `json:"red_flags"`
	StyleCritique []string        `json:"style_critique"`
}

// MatchReport 最终的结构化匹配报告
type MatchReport struct {
	MatchScore        int               `json:"match_score"`
	Analysis          ReportAnalysis    `json:"analysis"`
	RecruiterFeedback RecruiterFeedback `json:"recruiter_feedback"`
	InterviewPrep     []string          `json:"interview_prep"`
}
