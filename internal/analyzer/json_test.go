package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDecodeModelJSON_Plain 验证纯JSON直接解析
func TestDecodeModelJSON_Plain(t *testing.T) {
	var result struct {
		HardSkills []string `json:"hard_skills"`
	}
	err := decodeModelJSON(`{"hard_skills": ["Go", "Kubernetes"]}`, &result)

	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "Kubernetes"}, result.HardSkills)
}

// TestDecodeModelJSON_MarkdownFence 验证能从Markdown代码块中提取JSON
func TestDecodeModelJSON_MarkdownFence(t *testing.T) {
	content := "```json\n{\"match_score\": 85}\n```"
	var result struct {
		MatchScore int `json:"match_score"`
	}
	err := decodeModelJSON(content, &result)

	require.NoError(t, err)
	assert.Equal(t, 85, result.MatchScore)
}

// TestDecodeModelJSON_BOM 验证BOM前缀被清理
func TestDecodeModelJSON_BOM(t *testing.T) {
	var result map[string]interface{}
	err := decodeModelJSON("\uFEFF{\"key\": \"value\"}", &result)

	require.NoError(t, err)
	assert.Equal(t, "value", result["key"])
}

// TestDecodeModelJSON_InnerQuotes 验证字符串内部未转义引号被自动修复
func TestDecodeModelJSON_InnerQuotes(t *testing.T) {
	content := `{"evidence": "Led the "Phoenix" project migration"}`
	var result struct {
		Evidence string `json:"evidence"`
	}
	err := decodeModelJSON(content, &result)

	require.NoError(t, err)
	assert.Contains(t, result.Evidence, "Phoenix")
}

// TestDecodeModelJSON_NoJSON 验证无JSON时报错
func TestDecodeModelJSON_NoJSON(t *testing.T) {
	var result map[string]interface{}
	err := decodeModelJSON("抱歉，我无法处理这个请求。", &result)

	require.Error(t, err)
}

// TestExtractJSON 验证括号配平提取
func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a": {"b": 1}}`, extractJSON(`prefix {"a": {"b": 1}} suffix`))
	assert.Equal(t, "", extractJSON("no json here"))
	assert.Equal(t, "", extractJSON(`{"unclosed": `))
}

// TestSanitizeJSON 验证内嵌引号转义
func TestSanitizeJSON(t *testing.T) {
	input := `{"key": "value with "quotes" inside"}`
	fixed := sanitizeJSON(input)
	assert.Equal(t, `{"key": "value with \"quotes\" inside"}`, fixed)

	// 已经合法的JSON不应被改动
	valid := `{"key": "normal value", "arr": ["a", "b"]}`
	assert.Equal(t, valid, sanitizeJSON(valid))
}
