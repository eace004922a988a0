package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/contractqa/backend-go/app/bootstrap"
	"github.com/contractqa/backend-go/internal/logger"
)

// maxQuestionLength 问题长度上限（rune数）
const maxQuestionLength = 500

// QAController 合同问答控制器
type QAController struct {
	BaseController
}

// AskRequest 问答请求
type AskRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

// Ask 回答关于合同的问题
func (c *QAController) Ask() {
	app := bootstrap.GetApp()
	if app == nil || app.QAService() == nil {
		c.JSONError(http.StatusInternalServerError, "QA service not initialized")
		return
	}

	var req AskRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "Invalid request body")
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		c.JSONError(http.StatusBadRequest, "Question cannot be empty")
		return
	}
	if len([]rune(question)) > maxQuestionLength {
		c.JSONError(http.StatusBadRequest, "Question too long (max 500 characters)")
		return
	}

	if app.QAService().KnowledgeBaseSize() == 0 {
		c.JSONError(http.StatusServiceUnavailable, "Knowledge base not initialized. Upload documents first.")
		return
	}

	logger.Info("Processing question",
		zap.String("question", question),
		zap.String("ip", c.getClientIP()))

	result := app.QAService().AnswerQuestion(c.Ctx.Request.Context(), question, req.TopK)

	c.JSON(http.StatusOK, map[string]interface{}{
		"success":    true,
		"answer":     result.Answer,
		"confidence": result.Confidence,
		"sources":    result.Sources,
		"context":    result.Context,
	})
}

// Search 只检索不生成答案，用于调试检索质量
func (c *QAController) Search() {
	app := bootstrap.GetApp()
	if app == nil || app.QAService() == nil {
		c.JSONError(http.StatusInternalServerError, "QA service not initialized")
		return
	}

	query := strings.TrimSpace(c.GetString("q"))
	if query == "" {
		c.JSONError(http.StatusBadRequest, "Query parameter 'q' is required")
		return
	}
	topK, _ := c.GetInt("top_k", 0)

	results, err := app.QAService().Retrieve(c.Ctx.Request.Context(), query, topK)
	if err != nil {
		logger.Error("Search failed", zap.Error(err))
		c.JSONError(http.StatusInternalServerError, "Search failed")
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"query":   query,
		"results": results,
	})
}
