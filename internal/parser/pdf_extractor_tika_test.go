package parser

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFakeTikaServer 模拟Tika的 /tika 和 /meta 接口
func newFakeTikaServer(t *testing.T, text string, metaJSON string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method, "Tika接口应使用PUT方法")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.NotEmpty(t, body, "请求体应包含PDF数据")

		switch r.URL.Path {
		case "/tika":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte(text))
		case "/meta":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(metaJSON))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// TestTikaExtractText 验证文本和页数提取
func TestTikaExtractText(t *testing.T) {
	server := newFakeTikaServer(t, "John Doe\nSoftware Engineer", `{"xmpTPg:NPages": 2, "Content-Type": "application/pdf"}`)
	defer server.Close()

	extractor := NewTikaPDFExtractor(server.URL)
	text, metadata, err := extractor.ExtractText(context.Background(), strings.NewReader("%PDF-fake"), "resume.pdf")

	require.NoError(t, err)
	assert.Equal(t, "John Doe\nSoftware Engineer", text)
	assert.Equal(t, 2, PageCountFromMetadata(metadata), "页数应来自xmpTPg:NPages")
}

// TestTikaExtractText_StringPageCount 验证字符串形式的页数字段也能解析
func TestTikaExtractText_StringPageCount(t *testing.T) {
	server := newFakeTikaServer(t, "text", `{"xmpTPg:NPages": "3"}`)
	defer server.Close()

	extractor := NewTikaPDFExtractor(server.URL)
	_, metadata, err := extractor.ExtractText(context.Background(), strings.NewReader("%PDF-fake"), "resume.pdf")

	require.NoError(t, err)
	assert.Equal(t, 3, PageCountFromMetadata(metadata))
}

// TestTikaExtractText_MetaFailure 验证元数据失败时文本提取仍然成功
func TestTikaExtractText_MetaFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/tika" {
			_, _ = w.Write([]byte("resume text"))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	extractor := NewTikaPDFExtractor(server.URL)
	text, metadata, err := extractor.ExtractText(context.Background(), strings.NewReader("%PDF-fake"), "resume.pdf")

	require.NoError(t, err, "元数据失败不应影响文本提取")
	assert.Equal(t, "resume text", text)
	assert.Equal(t, 0, PageCountFromMetadata(metadata), "元数据缺失时页数记为0")
}

// TestTikaExtractText_ServerError 验证文本接口失败时返回错误
func TestTikaExtractText_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	extractor := NewTikaPDFExtractor(server.URL)
	_, _, err := extractor.ExtractText(context.Background(), strings.NewReader("%PDF-fake"), "resume.pdf")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503", "错误信息应包含状态码")
}

// TestPageCountFromMetadata 验证各类型页数取值
func TestPageCountFromMetadata(t *testing.T) {
	assert.Equal(t, 0, PageCountFromMetadata(nil))
	assert.Equal(t, 5, PageCountFromMetadata(map[string]interface{}{MetaPageCount: 5}))
	assert.Equal(t, 5, PageCountFromMetadata(map[string]interface{}{MetaPageCount: float64(5)}))
	assert.Equal(t, 0, PageCountFromMetadata(map[string]interface{}{MetaPageCount: "5"}))
}
