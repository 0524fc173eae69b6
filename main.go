package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resume-match-go/internal/analyzer"
	"resume-match-go/internal/api/handler"
	"resume-match-go/internal/api/router"
	"resume-match-go/internal/config"
	appCoreLogger "resume-match-go/internal/logger"
	"resume-match-go/internal/parser"
	"resume-match-go/internal/storage"
	"resume-match-go/internal/tracing"
	"resume-match-go/pkg/ratelimit"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/hertz-contrib/cors"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"
)

var (
	version     = "1.0.0"           //nolint:gochecknoglobals
	serviceName = "resume-match-go" //nolint:gochecknoglobals
)

// @title Resume Match API
// @version 1.0
// @description 简历与岗位描述匹配分析服务
// @BasePath /api/v1
func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	initLogger(cfg)
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 初始化链路追踪
	if cfg.Tracing.Endpoint != "" {
		tracingServiceName := cfg.Tracing.ServiceName
		if tracingServiceName == "" {
			tracingServiceName = serviceName
		}
		shutdownTracing, err := tracing.InitProvider(ctx, cfg.Tracing.Endpoint, tracingServiceName)
		if err != nil {
			glog.Warnf("初始化链路追踪失败: %v, 将在无追踪导出的情况下运行", err)
		} else {
			defer func() {
				shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelShutdown()
				if err := shutdownTracing(shutdownCtx); err != nil {
					glog.Warnf("关闭链路追踪失败: %v", err)
				}
			}()
			glog.Info("链路追踪初始化成功")
		}
	}

	// 初始化存储层，Qdrant必需，Redis/MinIO可降级
	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	// 初始化Gemini聊天模型，并按配置的QPM限额包装限流代理
	var llmChatModel model.ToolCallingChatModel
	llmChatModel, err = parser.NewGeminiChatModel(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model,
		parser.WithGeminiTemperature(float32(cfg.Analyzer.Temperature)),
		parser.WithGeminiModelLogger(log.New(appCoreLogger.Logger, "[GeminiModel] ", log.LstdFlags)),
	)
	if err != nil {
		glog.Fatalf("初始化Gemini聊天模型失败: %v", err)
	}
	llmChatModel = ratelimit.WrapWithQPMLimit(llmChatModel, cfg.Gemini.Model, cfg.ModelQPMLimits, 30)
	glog.Infof("Gemini聊天模型初始化成功: %s", cfg.Gemini.Model)

	// 初始化Gemini Embedder
	geminiEmbedder, err := parser.NewGeminiEmbedder(ctx, cfg.Gemini.APIKey, cfg.Gemini.Embedding)
	if err != nil {
		glog.Fatalf("初始化Gemini Embedder失败: %v", err)
	}
	glog.Infof("Gemini Embedder初始化成功: %s", cfg.Gemini.Embedding.Model)

	// 按配置选择PDF解析引擎
	var pdfExtractor parser.PDFExtractor
	if cfg.PDF.Engine == "tika" && cfg.PDF.TikaServerURL != "" {
		var tikaOptions []parser.TikaOption
		if cfg.PDF.TimeoutSeconds > 0 {
			tikaOptions = append(tikaOptions, parser.WithTikaTimeout(time.Duration(cfg.PDF.TimeoutSeconds)*time.Second))
		}
		tikaOptions = append(tikaOptions, parser.WithTikaLogger(log.New(os.Stderr, "[TikaPDF] ", log.LstdFlags)))
		pdfExtractor = parser.NewTikaPDFExtractor(cfg.PDF.TikaServerURL, tikaOptions...)
		glog.Info("使用Tika PDF解析器")
	} else {
		var einoOptions []parser.EinoPDFOption
		if cfg.PDF.TimeoutSeconds > 0 {
			einoOptions = append(einoOptions, parser.WithEinoTimeout(time.Duration(cfg.PDF.TimeoutSeconds)*time.Second))
		}
		einoOptions = append(einoOptions, parser.WithEinoLogger(log.New(os.Stderr, "[EinoPDF] ", log.LstdFlags)))
		pdfExtractor, err = parser.NewEinoPDFExtractor(ctx, einoOptions...)
		if err != nil {
			glog.Fatalf("创建Eino PDF提取器失败: %v", err)
		}
		glog.Info("使用Eino PDF解析器")
	}

	// 分析器内部组件的调试日志
	var analyzerLogger *log.Logger
	if cfg.Logger.Level == "debug" {
		analyzerLogger = log.New(os.Stderr, "[Analyzer] ", log.LstdFlags|log.Lshortfile)
	} else {
		analyzerLogger = log.New(io.Discard, "", 0)
	}

	resumeAnalyzer, err := analyzer.NewAnalyzer(llmChatModel, geminiEmbedder, storageManager.Qdrant, cfg,
		analyzer.WithAnalyzerLogger(analyzerLogger),
	)
	if err != nil {
		glog.Fatalf("初始化分析器失败: %v", err)
	}
	glog.Info("分析器初始化成功")

	analyzeHandler := handler.NewAnalyzeHandler(cfg, storageManager, pdfExtractor, resumeAnalyzer)

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		tracer,
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		server.WithMaxRequestBodySize(int(cfg.Server.MaxUploadBytes)+1<<20),
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))
	// 浏览器前端直接调用, 放开跨域
	h.Use(cors.Default())

	router.RegisterRoutes(h, analyzeHandler, cfg.Server.MaxUploadBytes)
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP服务器启动中，监听地址: %s", cfg.Server.Address)
	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Fatalf("服务器关闭失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

// initLogger 初始化zerolog并把Hertz的日志接到同一个输出上
func initLogger(cfg *config.Config) {
	appCoreLogger.Init(appCoreLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})
	appCoreLogger.Logger = appCoreLogger.Logger.With().
		Str("app", serviceName).
		Str("version", version).
		Logger()

	hertzCompatibleLogger := hertzadapter.From(appCoreLogger.Logger)
	glog.SetLogger(hertzCompatibleLogger)
}
