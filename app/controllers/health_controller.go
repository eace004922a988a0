package controllers

import (
	"github.com/contractqa/backend-go/app/bootstrap"
	"github.com/contractqa/backend-go/internal/inference"
)

// RootController 根控制器
type RootController struct {
	BaseController
}

func (c *RootController) Index() {
	c.JSONSuccess(map[string]string{"message": "Contract QA Service API"})
}

// HealthController 健康检查控制器
type HealthController struct {
	BaseController
}

func (c *HealthController) Health() {
	status := map[string]interface{}{
		"status":            "healthy",
		"inference_service": inference.IsGlobalServiceReady(),
	}
	if app := bootstrap.GetApp(); app != nil && app.QAService() != nil {
		status["knowledge_base_chunks"] = app.QAService().KnowledgeBaseSize()
	}
	c.JSONSuccess(status)
}
