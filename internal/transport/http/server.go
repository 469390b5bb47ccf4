package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"docchat/internal/ai"
	appsvc "docchat/internal/app"
	"docchat/internal/bootstrap"
	"docchat/internal/cache"
	"docchat/internal/extract"
	rabbitmqClient "docchat/internal/platform/rabbitmq"
	"docchat/internal/repository"
	"docchat/internal/transport/http/handler"
	"docchat/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.MaxMultipartMemory = 16 << 20

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	documentRepo := repository.NewDocumentRepository(app.MySQL)
	conversationRepo := repository.NewConversationRepository(app.MySQL)
	messageRepo := repository.NewMessageRepository(app.MySQL)

	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	indexPublisher := rabbitmqClient.NewIndexPublisher(app.MQConn, app.Config.RabbitMQ.IndexQueue)

	chatCfg := ai.ChatConfig{
		BaseURL:     app.Config.LLM.BaseURL,
		APIKey:      app.Config.LLM.APIKey,
		Model:       app.Config.LLM.Model,
		Temperature: app.Config.LLM.ChatTemperature,
	}
	summaryCfg := chatCfg
	summaryCfg.Temperature = app.Config.LLM.SummaryTemperature
	summaryCfg.MaxTokens = app.Config.LLM.SummaryMaxTokens

	extractor := extract.NewExtractor(
		extract.NewTesseractEngine(app.Config.OCR.Language),
		app.Config.OCR.MinWidth,
	)
	summarizer := appsvc.NewSummarizer(app.LLMClient, summaryCfg)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)
	chatService := appsvc.NewChatService(
		conversationRepo,
		messageRepo,
		documentRepo,
		historyCache,
		app.LLMClient,
		chatCfg,
	)
	documentService := appsvc.NewDocumentService(
		documentRepo,
		conversationRepo,
		messageRepo,
		extractor,
		summarizer,
		app.VectorIndex,
		indexPublisher,
		historyCache,
	)

	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService)
	documentHandler := handler.NewDocumentHandler(documentService, app.Config.LLM.SearchTopK)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	documentGroup := v1.Group("/documents")
	documentGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	documentGroup.POST("", documentHandler.Upload)
	documentGroup.GET("", documentHandler.List)
	documentGroup.GET("/:id/file", documentHandler.GetFile)
	documentGroup.DELETE("/:id", documentHandler.Delete)

	chatGroup := v1.Group("/chat")
	chatGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	chatGroup.POST("/messages", chatHandler.SendTurn)
	chatGroup.GET("/history", chatHandler.GetHistory)

	v1.GET("/search", middleware.AuthJWT(app.Config.Auth.JWTSecret), documentHandler.Search)

	return router
}
