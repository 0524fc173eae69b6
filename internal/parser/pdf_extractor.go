package parser

import (
	"context"
	"io"
)

// PDFExtractor PDF提取器接口，分析流水线只依赖这一层抽象
type PDFExtractor interface {
	// ExtractText 从io.Reader提取纯文本和元数据
	// 元数据中保证包含 "page_count" (int)
	ExtractText(ctx context.Context, reader io.Reader, uri string) (string, map[string]interface{}, error)

	// ExtractTextFromBytes 从字节数组提取纯文本和元数据
	ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, map[string]interface{}, error)
}

// 元数据约定键名
const (
	MetaPageCount  = "page_count"
	MetaTextLength = "text_length"
	MetaSourceURI  = "source_uri"
)

// PageCountFromMetadata 从元数据中读取页数，缺失或类型不符时返回0
func PageCountFromMetadata(metadata map[string]interface{}) int {
	if metadata == nil {
		return 0
	}
	switch v := metadata[MetaPageCount].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
