package parser

import (
	"strings"
)

// CleanText 清洗PDF提取出的原始文本：去除非ASCII字节、裁剪每行首尾空白并丢弃空行。
// 嵌入API对控制字符和私有区Unicode的容忍度不稳定，统一清洗后再分块。
func CleanText(text string) string {
	var ascii strings.Builder
	ascii.Grow(len(text))
	for _, r := range text {
		if r < 128 {
			ascii.WriteRune(r)
		}
	}

	lines := strings.Split(ascii.String(), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, "\n")
}

// ChunkText 将文本按固定字节数切分为嵌入用的段落。
// 最后一个分块可能不足size；空文本返回空切片。
func ChunkText(text string, size int) []string {
	if size <= 0 {
		size = 500
	}
	if text == "" {
		return nil
	}

	chunks := make([]string, 0, len(text)/size+1)
	for start := 0; start < len(text); start += size {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
	}
	return chunks
}
