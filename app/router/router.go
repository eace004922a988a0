package router

import (
	"github.com/beego/beego/v2/server/web"

	"github.com/contractqa/backend-go/app/controllers"
)

// Init registers all routes. Must be called after config is loaded.
func Init() {
	web.Router("/", &controllers.RootController{}, "get:Index")
	web.Router("/health", &controllers.HealthController{}, "get:Health")
	web.Router("/metrics", &controllers.MetricsController{}, "get:Metrics")

	// 文档管理路由
	documentController := &controllers.DocumentController{}
	web.Router("/api/documents", documentController, "get:List")
	web.Router("/api/documents/upload", documentController, "post:Upload")
	web.Router("/api/documents/rebuild", documentController, "post:Rebuild")

	// 问答路由
	qaController := &controllers.QAController{}
	web.Router("/api/qa/ask", qaController, "post:Ask")
	web.Router("/api/qa/search", qaController, "get:Search")
}
