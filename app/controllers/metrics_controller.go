package controllers

import (
	"net/http"

	"github.com/beego/beego/v2/server/web"

	"github.com/contractqa/backend-go/app/bootstrap"
)

// MetricsController 指标控制器
type MetricsController struct {
	web.Controller
}

// Metrics 返回Prometheus格式的指标
func (c *MetricsController) Metrics() {
	app := bootstrap.GetApp()
	if app == nil || app.MetricsService() == nil {
		c.Ctx.Output.SetStatus(http.StatusServiceUnavailable)
		return
	}

	c.Ctx.Output.Header("Content-Type", "text/plain; charset=utf-8")
	app.MetricsService().ServeHTTP(c.Ctx.ResponseWriter, c.Ctx.Request)
}
