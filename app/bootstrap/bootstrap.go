package bootstrap

import (
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/contractqa/backend-go/internal/cache"
	"github.com/contractqa/backend-go/internal/config"
	apperrors "github.com/contractqa/backend-go/internal/errors"
	"github.com/contractqa/backend-go/internal/inference"
	"github.com/contractqa/backend-go/internal/knowledge"
	"github.com/contractqa/backend-go/internal/logger"
	"github.com/contractqa/backend-go/internal/services"
)

// App encapsulates lifecycle resources that need to be cleaned up on shutdown.
type App struct {
	cleanupTasks []func() error

	qaService      *services.ContractQAService
	metricsService *services.MetricsService
	answerCache    *cache.AnswerCache
}

// Global app instance for controllers to access
var globalApp *App

// GetApp returns the global app instance
func GetApp() *App {
	return globalApp
}

// SetGlobalApp sets the global app instance
func SetGlobalApp(app *App) {
	globalApp = app
}

// QAService returns the contract QA service instance
func (a *App) QAService() *services.ContractQAService {
	return a.qaService
}

// MetricsService returns the metrics service instance
func (a *App) MetricsService() *services.MetricsService {
	return a.metricsService
}

// Init bootstraps configuration, logger, model clients and the QA service.
func Init() (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize structured logger.
	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	// Load dynamic configuration.
	if err := config.LoadConfig(); err != nil {
		return nil, err
	}
	cfg := config.AppConfig

	app := &App{}

	// 初始化全局推理服务，问答模型和inference模式的嵌入都走这里
	if cfg.QA.BaseURL != "" {
		inference.InitGlobalService(cfg.QA.BaseURL)
		logger.Info("Global inference service initialized", zap.String("base_url", cfg.QA.BaseURL))
	} else {
		logger.Warn("Inference base URL not configured, QA model will not be available")
	}

	embedder := newEmbedder(cfg)
	if !embedder.Ready() {
		logger.Warn("Embedder not configured, knowledge base operations will fail",
			zap.String("provider", cfg.Embedding.Provider))
	}

	qaModel := knowledge.NewInferenceQAModel(cfg.QA.ModelName, cfg.Model.Device)

	retriever, err := knowledge.NewRetriever(knowledge.RetrieverConfig{
		ChunkSize:           cfg.Data.ChunkSize,
		ChunkOverlap:        cfg.Data.ChunkOverlap,
		TopK:                cfg.Rag.TopK,
		SimilarityThreshold: cfg.Rag.SimilarityThreshold,
		VectorPath:          cfg.Embedding.IndexPath,
		MetadataPath:        cfg.Embedding.MetadataPath,
	}, embedder)
	if err != nil {
		return nil, err
	}

	// Redis答案缓存（可选），连不上不阻塞启动
	app.answerCache = cache.NewAnswerCache(cfg.Cache)
	if app.answerCache != nil {
		app.cleanupTasks = append(app.cleanupTasks, app.answerCache.Close)
	}

	app.metricsService = services.NewMetricsService()
	app.qaService = services.NewContractQAService(retriever, qaModel, app.answerCache, app.metricsService)

	// 启动时尝试加载已有知识库，没有就等构建接口触发
	if err := app.qaService.LoadKnowledgeBase(); err != nil {
		if apperrors.IsNotFound(err) {
			logger.Warn("No persisted knowledge base found, upload documents to build one")
		} else {
			logger.Error("Failed to load knowledge base", zap.Error(err))
		}
	} else {
		logger.Info("Knowledge base loaded", zap.Int("chunks", app.qaService.KnowledgeBaseSize()))
	}

	return app, nil
}

// newEmbedder 按配置选择嵌入后端
func newEmbedder(cfg *config.Config) knowledge.Embedder {
	switch cfg.Embedding.Provider {
	case "inference":
		return knowledge.NewInferenceEmbedder(cfg.Embedding.ModelName, cfg.Model.Device)
	default:
		return knowledge.NewOpenAIEmbedder(cfg.Embedding.APIKey, cfg.Embedding.BaseURL, cfg.Embedding.ModelName)
	}
}

// Shutdown flushes logs and closes resources gracefully.
func (a *App) Shutdown() {
	// Execute cleanup tasks in reverse order (best effort).
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			log.Printf("Cleanup error: %v\n", err)
		}
	}

	// Flush logger buffers.
	logger.Sync()
}
