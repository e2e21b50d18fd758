// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"indialaw-go/internal/config"
	"indialaw-go/internal/handler"
	"indialaw-go/internal/middleware"
	"indialaw-go/internal/pipeline"
	"indialaw-go/internal/repository"
	"indialaw-go/internal/service"
	"indialaw-go/pkg/compliance"
	"indialaw-go/pkg/database"
	"indialaw-go/pkg/embedding"
	"indialaw-go/pkg/es"
	"indialaw-go/pkg/extraction"
	"indialaw-go/pkg/kafka"
	"indialaw-go/pkg/llm"
	"indialaw-go/pkg/log"
	"indialaw-go/pkg/metrics"
	"indialaw-go/pkg/storage"
	"indialaw-go/pkg/tika"
	"indialaw-go/pkg/token"
	"indialaw-go/pkg/translate"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	configPath := "./configs/config.yaml"
	if p := os.Getenv("INDIALAW_CONFIG"); p != "" {
		configPath = p
	}
	config.Init(configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// 3. 初始化基础设施
	db, err := database.NewMySQL(cfg.Database.MySQL.DSN)
	if err != nil {
		log.Fatal("MySQL 初始化失败", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal("数据表迁移失败", err)
	}
	rdb, err := database.NewRedis(rootCtx, cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err != nil {
		log.Fatal("Redis 初始化失败", err)
	}
	store, err := storage.NewMinIOStore(rootCtx, cfg.MinIO)
	if err != nil {
		log.Fatal("MinIO 初始化失败", err)
	}
	esClient, err := es.NewClient(cfg.Elasticsearch, cfg.Embedding.Dimensions)
	if err != nil {
		log.Fatal("Elasticsearch 初始化失败", err)
	}
	if err := esClient.EnsureIndex(rootCtx); err != nil {
		log.Fatal("知识库索引初始化失败", err)
	}
	producer := kafka.NewProducer(cfg.Kafka)

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	analysisRepo := repository.NewAnalysisRepository(db)
	qaRepo := repository.NewQARepository(db)
	knowledgeSourceRepo := repository.NewKnowledgeSourceRepository(db)

	// 5. 初始化外部服务适配器
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	tikaClient := tika.NewClient(cfg.Tika)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)
	translator := translate.NewTranslator(tikaClient, llmClient, llm.FromConfig(cfg.LLM.Translation))
	extractor := extraction.NewExtractor(tikaClient, translator)
	analyzer := compliance.NewAnalyzer(llmClient, llm.FromConfig(cfg.LLM.Analysis), cfg.Analysis.MaxChars)
	guard := service.NewReanalysisGuard(rdb)
	blacklist := service.NewTokenBlacklist(rdb)

	// 6. 初始化 Service (依赖注入)
	indexer := pipeline.NewKnowledgeIndexer(tikaClient, embeddingClient, esClient, knowledgeSourceRepo, cfg.Embedding.Model, cfg.Knowledge)
	knowledgeService := service.NewKnowledgeService(embeddingClient, esClient, indexer)
	userService := service.NewUserService(userRepo, jwtManager, blacklist)
	uploadService := service.NewUploadService(docRepo, store, producer, cfg.Upload.MaxSizeMB*1024*1024)
	documentService := service.NewDocumentService(docRepo, store)
	analysisService := service.NewAnalysisService(docRepo, analysisRepo, producer, guard)
	qaService := service.NewQAService(docRepo, analysisRepo, qaRepo, knowledgeService, llmClient, translator,
		llm.FromConfig(cfg.LLM.QA), cfg.QA)
	reportService := service.NewReportService(docRepo, analysisRepo, store, time.Duration(cfg.Report.URLExpiryMinutes)*time.Minute)

	// 7. 文档处理流水线与后台 Kafka 消费者
	processor := pipeline.NewProcessor(docRepo, analysisRepo, store, extractor, analyzer, knowledgeService, guard, cfg.Analysis)
	var background sync.WaitGroup
	background.Add(2)
	go func() {
		defer background.Done()
		kafka.StartConsumer(rootCtx, cfg.Kafka, processor)
	}()

	// 7.1 后台导入知识库目录，已导入的文件按 MD5 跳过
	go func() {
		defer background.Done()
		indexer.SeedDirectory(rootCtx, cfg.Knowledge.SeedDir)
	}()

	// 8. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := setupRouter(cfg, jwtManager, routeHandlers{
		user:     handler.NewUserHandler(userService),
		auth:     handler.NewAuthHandler(userService),
		upload:   handler.NewUploadHandler(uploadService),
		document: handler.NewDocumentHandler(documentService),
		analysis: handler.NewAnalysisHandler(analysisService),
		qa:       handler.NewQAHandler(qaService),
		report:   handler.NewReportHandler(reportService),
		admin:    handler.NewAdminHandler(knowledgeService),
		watch:    handler.NewWatchHandler(documentService, userService, jwtManager, time.Duration(cfg.Watch.IntervalSeconds)*time.Second),
	}, userService)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}

	// 停止消费者与知识库导入，等待当前任务结束
	cancelRoot()
	background.Wait()
	if err := producer.Close(); err != nil {
		log.Errorf("关闭 Kafka 生产者失败: %v", err)
	}
	if err := rdb.Close(); err != nil {
		log.Errorf("关闭 Redis 连接失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}

type routeHandlers struct {
	user     *handler.UserHandler
	auth     *handler.AuthHandler
	upload   *handler.UploadHandler
	document *handler.DocumentHandler
	analysis *handler.AnalysisHandler
	qa       *handler.QAHandler
	report   *handler.ReportHandler
	admin    *handler.AdminHandler
	watch    *handler.WatchHandler
}

func setupRouter(cfg config.Config, jwtManager *token.JWTManager, h routeHandlers, userService service.UserService) *gin.Engine {
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.MaxMultipartMemory = (cfg.Upload.MaxSizeMB + 1) << 20
	r.Use(middleware.Recovery(), middleware.CORS(cfg.Server.AllowedOrigins), middleware.Metrics(), middleware.RequestLogger())

	r.GET("/health", handler.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/ws/documents/:token/:documentId", h.watch.Handle)

	authRequired := middleware.AuthMiddleware(jwtManager, userService)

	api := r.Group("/api")
	{
		api.POST("/auth/refreshToken", h.auth.RefreshToken)

		users := api.Group("/users")
		{
			// 无需认证的路由
			users.POST("/register", h.user.Register)
			users.POST("/login", h.user.Login)

			authed := users.Group("/")
			authed.Use(authRequired)
			{
				authed.GET("/me", h.user.GetProfile)
				authed.POST("/logout", h.user.Logout)
			}
		}

		upload := api.Group("/upload", authRequired)
		{
			upload.POST("", h.upload.Upload)
			upload.GET("/supported-types", h.upload.SupportedTypes)
		}

		documents := api.Group("/documents", authRequired)
		{
			documents.GET("", h.document.List)
			documents.GET("/:id", h.document.Get)
			documents.GET("/:id/download", h.document.Download)
			documents.DELETE("/:id", h.document.Delete)
		}

		analysis := api.Group("/analysis", authRequired)
		{
			analysis.GET("/:documentId", h.analysis.GetLatest)
			analysis.GET("/:documentId/history", h.analysis.History)
			analysis.POST("/:documentId/analyze", h.analysis.Analyze)
		}

		qa := api.Group("/qa", authRequired)
		{
			qa.GET("/session/:documentId", h.qa.GetSession)
			qa.POST("/ask", h.qa.Ask)
		}

		api.GET("/report/:analysisId/pdf", authRequired, h.report.GeneratePDF)

		// 管理员路由需要同时通过认证和管理员授权
		admin := api.Group("/admin", authRequired, middleware.AdminAuthMiddleware())
		{
			admin.POST("/knowledge", h.admin.UploadKnowledge)
		}
	}
	return r
}
