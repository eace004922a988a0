package controllers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/contractqa/backend-go/app/bootstrap"
	"github.com/contractqa/backend-go/internal/config"
	apperrors "github.com/contractqa/backend-go/internal/errors"
	"github.com/contractqa/backend-go/internal/logger"
	"github.com/contractqa/backend-go/internal/services"
)

// DocumentController 合同文档管理控制器
// 上传语料保存在data.upload_path，知识库也从该目录构建
type DocumentController struct {
	BaseController
	docService *services.DocumentService
}

// Prepare 初始化控制器
func (c *DocumentController) Prepare() {
	c.docService = services.NewDocumentService(config.AppConfig)
}

// List 列出上传目录下的合同文件
func (c *DocumentController) List() {
	files, err := c.docService.List()
	if err != nil {
		logger.Error("Failed to list documents", zap.Error(err))
		c.JSONError(http.StatusInternalServerError, "Failed to list documents")
		return
	}
	c.JSONSuccess(map[string]interface{}{"files": files})
}

// Upload 上传合同文件并全量重建知识库
func (c *DocumentController) Upload() {
	app := bootstrap.GetApp()
	if app == nil || app.QAService() == nil {
		c.JSONError(http.StatusInternalServerError, "QA service not initialized")
		return
	}

	headers, err := c.GetFiles("files")
	if err != nil || len(headers) == 0 {
		c.JSONError(http.StatusBadRequest, "No files uploaded")
		return
	}

	saved, err := c.docService.SaveUploads(headers)
	if err != nil {
		c.JSONError(apperrors.HTTPStatus(err), err.Error())
		return
	}

	// 重建知识库，把新文件纳入索引
	count, err := app.QAService().BuildKnowledgeBase(c.Ctx.Request.Context(), c.docService.Dir())
	if err != nil {
		logger.Error("Knowledge base rebuild failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "Failed to rebuild knowledge base",
			"saved":   saved,
		})
		return
	}

	logger.Info("Documents uploaded and knowledge base rebuilt",
		zap.Strings("saved", saved),
		zap.Int("chunks", count))
	c.JSONSuccess(map[string]interface{}{
		"saved":  saved,
		"chunks": count,
	})
}

// Rebuild 不上传新文件，直接用上传目录重建知识库
func (c *DocumentController) Rebuild() {
	app := bootstrap.GetApp()
	if app == nil || app.QAService() == nil {
		c.JSONError(http.StatusInternalServerError, "QA service not initialized")
		return
	}

	count, err := app.QAService().BuildKnowledgeBase(c.Ctx.Request.Context(), c.docService.Dir())
	if err != nil {
		if apperrors.IsNotFound(err) {
			c.JSONError(http.StatusNotFound, "No contract documents found")
			return
		}
		logger.Error("Knowledge base rebuild failed", zap.Error(err))
		c.JSONError(http.StatusInternalServerError, "Failed to rebuild knowledge base")
		return
	}

	c.JSONSuccess(map[string]interface{}{"chunks": count})
}
