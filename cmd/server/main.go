package main

import (
	"log"
	"strconv"

	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	"github.com/contractqa/backend-go/app/bootstrap"
	"github.com/contractqa/backend-go/app/router"
	"github.com/contractqa/backend-go/internal/config"
	"github.com/contractqa/backend-go/internal/logger"
)

func main() {
	app, err := bootstrap.Init()
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer app.Shutdown()
	bootstrap.SetGlobalApp(app)

	router.Init()

	// 配置Beego全局设置
	web.BConfig.AppName = "Contract QA Service"
	web.BConfig.CopyRequestBody = true
	web.BConfig.MaxMemory = config.AppConfig.FileUpload.MaxSize
	if port, err := strconv.Atoi(config.AppConfig.Server.Port); err == nil {
		web.BConfig.Listen.HTTPPort = port
	}

	logger.Info("🚀 Starting Contract QA Service", zap.Int("port", web.BConfig.Listen.HTTPPort))
	web.Run()
}
