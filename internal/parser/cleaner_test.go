package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCleanText_StripNonASCII 验证非ASCII字符被移除
func TestCleanText_StripNonASCII(t *testing.T) {
	input := "Go开发者 engineer\nRésumé text"
	got := CleanText(input)

	assert.Equal(t, "Go engineer\nRsum text", got, "非ASCII字符应被移除")
}

// TestCleanText_CollapseBlankLines 验证空行和行首尾空白被清理
func TestCleanText_CollapseBlankLines(t *testing.T) {
	input := "  line one  \n\n\n\tline two\t\n   \nline three"
	got := CleanText(input)

	assert.Equal(t, "line one\nline two\nline three", got)
}

// TestCleanText_Empty 验证空输入
func TestCleanText_Empty(t *testing.T) {
	assert.Equal(t, "", CleanText(""))
	assert.Equal(t, "", CleanText("\n\n  \n"))
}

// TestChunkText_FixedSize 验证固定大小分块
func TestChunkText_FixedSize(t *testing.T) {
	text := strings.Repeat("a", 1200)
	chunks := ChunkText(text, 500)

	assert.Len(t, chunks, 3, "1200字节按500分块应得到3块")
	assert.Len(t, chunks[0], 500)
	assert.Len(t, chunks[1], 500)
	assert.Len(t, chunks[2], 200, "最后一个分块可以不足size")
}

// TestChunkText_ShortInput 验证不足一个分块的输入
func TestChunkText_ShortInput(t *testing.T) {
	chunks := ChunkText("short", 500)

	assert.Equal(t, []string{"short"}, chunks)
}

// TestChunkText_Empty 验证空文本返回零分块
func TestChunkText_Empty(t *testing.T) {
	assert.Empty(t, ChunkText("", 500))
}

// TestChunkText_DefaultSize 验证非法size回退到默认值
func TestChunkText_DefaultSize(t *testing.T) {
	text := strings.Repeat("b", 600)
	chunks := ChunkText(text, 0)

	assert.Len(t, chunks, 2, "size<=0时应使用默认500")
	assert.Len(t, chunks[0], 500)
}
