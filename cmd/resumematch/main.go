package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"resume-match-go/internal/analyzer"
	"resume-match-go/internal/api/handler"
	"resume-match-go/internal/config"
	appCoreLogger "resume-match-go/internal/logger"
	"resume-match-go/internal/parser"
	"resume-match-go/internal/storage"
	"resume-match-go/pkg/ratelimit"

	"github.com/cloudwego/eino/components/model"
	"github.com/spf13/pflag"
)

// 命令行一次性分析工具：输入一份PDF简历和一段岗位描述，输出匹配报告JSON
func main() {
	var (
		configPath string
		resumePath string
		jdPath     string
		jdText     string
	)
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径")
	pflag.StringVarP(&resumePath, "resume", "r", "", "简历PDF文件路径")
	pflag.StringVarP(&jdPath, "jd-file", "j", "", "岗位描述文本文件路径")
	pflag.StringVar(&jdText, "jd", "", "岗位描述文本（与--jd-file二选一）")
	pflag.Parse()

	if resumePath == "" {
		fmt.Fprintln(os.Stderr, "用法: resumematch -r resume.pdf (-j jd.txt | --jd \"岗位描述\") [-c config.yaml]")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	appCoreLogger.Init(appCoreLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})

	jobDescription := jdText
	if jobDescription == "" {
		if jdPath == "" {
			fmt.Fprintln(os.Stderr, "必须通过 --jd 或 --jd-file 提供岗位描述")
			os.Exit(2)
		}
		data, err := os.ReadFile(jdPath)
		if err != nil {
			log.Fatalf("读取岗位描述文件失败: %v", err)
		}
		jobDescription = strings.TrimSpace(string(data))
	}

	fileData, err := os.ReadFile(resumePath)
	if err != nil {
		log.Fatalf("读取简历文件失败: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()

	var llmChatModel model.ToolCallingChatModel
	llmChatModel, err = parser.NewGeminiChatModel(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model,
		parser.WithGeminiTemperature(float32(cfg.Analyzer.Temperature)),
	)
	if err != nil {
		log.Fatalf("初始化Gemini聊天模型失败: %v", err)
	}
	llmChatModel = ratelimit.WrapWithQPMLimit(llmChatModel, cfg.Gemini.Model, cfg.ModelQPMLimits, 30)

	geminiEmbedder, err := parser.NewGeminiEmbedder(ctx, cfg.Gemini.APIKey, cfg.Gemini.Embedding)
	if err != nil {
		log.Fatalf("初始化Gemini Embedder失败: %v", err)
	}

	var pdfExtractor parser.PDFExtractor
	if cfg.PDF.Engine == "tika" && cfg.PDF.TikaServerURL != "" {
		pdfExtractor = parser.NewTikaPDFExtractor(cfg.PDF.TikaServerURL,
			parser.WithTikaLogger(log.New(io.Discard, "", 0)))
	} else {
		pdfExtractor, err = parser.NewEinoPDFExtractor(ctx,
			parser.WithEinoLogger(log.New(io.Discard, "", 0)))
		if err != nil {
			log.Fatalf("创建Eino PDF提取器失败: %v", err)
		}
	}

	resumeAnalyzer, err := analyzer.NewAnalyzer(llmChatModel, geminiEmbedder, storageManager.Qdrant, cfg)
	if err != nil {
		log.Fatalf("初始化分析器失败: %v", err)
	}

	analyzeHandler := handler.NewAnalyzeHandler(cfg, storageManager, pdfExtractor, resumeAnalyzer)

	report, err := analyzeHandler.HandleAnalyze(ctx, fileData, filepath.Base(resumePath), jobDescription)
	if err != nil {
		log.Fatalf("分析失败: %v", err)
	}

	output, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("序列化报告失败: %v", err)
	}
	fmt.Println(string(output))
}
