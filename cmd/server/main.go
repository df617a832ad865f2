// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"research-pilot-go/internal/config"
	"research-pilot-go/internal/handler"
	"research-pilot-go/internal/middleware"
	"research-pilot-go/internal/pipeline"
	"research-pilot-go/internal/rag"
	"research-pilot-go/internal/repository"
	"research-pilot-go/internal/service"
	"research-pilot-go/internal/study"
	"research-pilot-go/internal/vectorstore"
	"research-pilot-go/pkg/database"
	"research-pilot-go/pkg/embedding"
	"research-pilot-go/pkg/es"
	"research-pilot-go/pkg/llm"
	"research-pilot-go/pkg/log"
	"research-pilot-go/pkg/pdf"
	"research-pilot-go/pkg/queue"
	"research-pilot-go/pkg/storage"
	"research-pilot-go/pkg/token"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis 和对象存储
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(database.DB)
	paperRepo := repository.NewPaperRepository(database.DB)
	studyRepo := repository.NewStudyRepository(database.DB)
	conversationRepo := repository.NewConversationRepository(database.RDB)

	// 5. 初始化外部客户端与向量索引
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)

	var backend vectorstore.Backend
	if cfg.Vector.Driver == "memory" {
		backend = vectorstore.NewMemoryBackend()
		log.Info("向量索引使用进程内存储")
	} else {
		if err := es.InitES(cfg.Elasticsearch, cfg.Embedding.Dimensions); err != nil {
			log.Errorf("es 初始化失败 %s", err)
			return
		}
		backend = vectorstore.NewESBackend(es.ESClient, cfg.Elasticsearch.IndexName)
	}
	index := vectorstore.NewIndex(embeddingClient, backend)

	// 6. 初始化文件处理管道
	generator := study.NewGenerator(llmClient)
	pdfExtractor := pdf.NewExtractor()
	fetcher := pipeline.ObjectFetcherFunc(func(ctx context.Context, objectName string) ([]byte, error) {
		return storage.GetObjectBytes(ctx, cfg.MinIO.BucketName, objectName)
	})
	processor := pipeline.NewProcessor(fetcher, pdfExtractor, generator, index, paperRepo, studyRepo, cfg.Pipeline)

	var taskQueue pipeline.Queue
	if cfg.Queue.Driver == "kafka" {
		kq := queue.NewKafkaQueue(cfg.Queue.Kafka)
		defer kq.Close()
		taskQueue = kq
	} else {
		taskQueue = pipeline.NewMemoryQueue(cfg.Queue.BufferSize)
	}
	paperPipeline := pipeline.New(taskQueue, processor, paperRepo, time.Duration(cfg.Pipeline.DequeueWaitMS)*time.Millisecond)
	paperPipeline.Start()

	// 7. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	assembler := rag.NewAssembler(index, llmClient, cfg.Pipeline.RetrieveTopK)
	userService := service.NewUserService(userRepo, jwtManager)
	paperService := service.NewPaperService(paperRepo, studyRepo, index, paperPipeline, cfg.MinIO)
	searchService := service.NewSearchService(index, paperRepo)
	qaService := service.NewQAService(assembler, conversationRepo)
	studyService := service.NewStudyService(studyRepo, paperRepo, generator)
	chatService := service.NewChatService(assembler, llmClient, conversationRepo)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	userHandler := handler.NewUserHandler(userService)
	paperHandler := handler.NewPaperHandler(paperService)
	searchHandler := handler.NewSearchHandler(searchService)
	qaHandler := handler.NewQAHandler(qaService)
	studyHandler := handler.NewStudyHandler(studyService)
	chatHandler := handler.NewChatHandler(chatService, userService, jwtManager)

	apiV1 := r.Group("/api/v1")
	{
		auth := apiV1.Group("/auth")
		{
			auth.POST("/refreshToken", handler.NewAuthHandler(userService).Refresh)
		}

		users := apiV1.Group("/users")
		{
			// 无需认证的路由 (公开访问)
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)

			// 需要认证的路由 (仅限登录用户访问)
			authed := users.Group("/")
			authed.Use(middleware.AuthMiddleware(jwtManager, userService))
			{
				authed.GET("/me", userHandler.Profile)
				authed.PUT("/learning-goals", userHandler.UpdateGoals)
				authed.POST("/logout", userHandler.Logout)
			}
		}

		// Paper 路由组，需要认证
		papers := apiV1.Group("/papers")
		papers.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			papers.POST("/upload", paperHandler.Upload)
			papers.GET("", paperHandler.List)
			papers.GET("/stats", paperHandler.Stats)
			papers.GET("/:id", paperHandler.Get)
			papers.DELETE("/:id", paperHandler.Delete)
			papers.POST("/:id/reprocess", paperHandler.Reprocess)
			papers.GET("/:id/download", paperHandler.Download)

			// 论文学习材料
			papers.GET("/:id/note", studyHandler.Note)
			papers.GET("/:id/flashcards", studyHandler.Flashcards)
			papers.GET("/:id/mindmap", studyHandler.MindMap)
		}

		// Search 路由组，需要认证
		search := apiV1.Group("/search")
		search.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			search.GET("", searchHandler.Search)
			search.POST("", searchHandler.Search)
		}

		// QA 路由组，需要认证
		qa := apiV1.Group("/qa")
		qa.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			qa.POST("/ask", qaHandler.Ask)
			qa.GET("/history", qaHandler.History)
			qa.DELETE("/history", qaHandler.ClearHistory)
		}

		// Study 路由组，需要认证
		studyGroup := apiV1.Group("/study")
		studyGroup.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			studyGroup.POST("/plans", studyHandler.CreatePlan)
			studyGroup.GET("/plans", studyHandler.ListPlans)
			studyGroup.POST("/insights", studyHandler.GenerateInsights)
			studyGroup.GET("/insights", studyHandler.ListInsights)
		}

		// Chat 路由 (WebSocket)
		chatGroup := apiV1.Group("/chat")
		chatGroup.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			chatGroup.GET("/websocket-token", chatHandler.GetWebsocketStopToken)
		}
	}
	r.GET("/chat/:token", chatHandler.Handle)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	// 停止处理管道：worker 会先清空队列中剩余的任务再退出
	paperPipeline.Stop()

	log.Info("服务已优雅关闭")
}
