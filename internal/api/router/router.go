package router

import (
	"context"
	"errors"
	"io"

	"resume-match-go/internal/api/handler"
	"resume-match-go/internal/logger"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, analyzeHandler *handler.AnalyzeHandler, maxUploadBytes int64) {
	api := h.Group("/api/v1")

	api.POST("/analyze", func(c context.Context, ctx *app.RequestContext) {
		// 获取上传的简历文件
		fileHeader, err := ctx.FormFile("file")
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "文件未找到"})
			return
		}
		if maxUploadBytes > 0 && fileHeader.Size > maxUploadBytes {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "文件超出大小限制"})
			return
		}

		// 获取岗位描述
		jobDescription := ctx.PostForm("job_description")
		if jobDescription == "" {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "job_description不能为空"})
			return
		}

		// 读取文件内容
		file, err := fileHeader.Open()
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "打开文件失败"})
			return
		}
		defer file.Close()

		fileData, err := io.ReadAll(file)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "读取文件失败"})
			return
		}

		// 执行分析
		report, err := analyzeHandler.HandleAnalyze(c, fileData, fileHeader.Filename, jobDescription)
		if err != nil {
			if errors.Is(err, handler.ErrUnreadableResume) {
				ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
				return
			}
			logger.Error().Err(err).Str("filename", fileHeader.Filename).Msg("简历分析失败")
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}

		ctx.JSON(consts.StatusOK, report)
	})

	// 健康检查
	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})
}
