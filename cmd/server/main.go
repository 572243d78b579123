package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"interviewai/internal/ai"
	"interviewai/internal/cache"
	"interviewai/internal/config"
	"interviewai/internal/queue"
	"interviewai/internal/repository"
	"interviewai/internal/service"
	"interviewai/internal/transport/rest"
	"interviewai/internal/worker"
)

func main() {
	log.Println("started")
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	cfg := config.Load()

	// Load AI config and log model settings
	aiConfig := config.DefaultAIConfig()
	log.Printf("AI Config:")
	log.Printf("  Dialogue: %s", aiConfig.Models.Dialogue)
	log.Printf("  Eval:     %s", aiConfig.Models.Eval)
	log.Printf("  Summary:  %s", aiConfig.Models.Summary)
	if aiConfig.IsEnabled() {
		log.Println("  API Key:  configured ✓")
	} else {
		log.Println("  API Key:  NOT SET (using mock interviewer)")
	}
	if aiConfig.CodeRunnerEnabled() {
		log.Println("  Code runner: configured ✓")
	} else {
		log.Println("  Code runner: NOT SET (code submissions disabled)")
	}

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(context.Background())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB:", err)
	}
	log.Println("Connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDB)

	// Redis connection
	redisAddr := cfg.RedisURI
	if len(redisAddr) > 8 && redisAddr[:8] == "redis://" {
		redisAddr = redisAddr[8:]
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}
	log.Println("Connected to Redis")

	// Initialize repositories
	sessionRepo := repository.NewSessionRepo(db)
	questionRepo := repository.NewQuestionRepo(db)
	reportRepo := repository.NewReportRepo(db)
	if err := questionRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal("Failed to create question indexes:", err)
	}
	if err := reportRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal("Failed to create report indexes:", err)
	}

	// Initialize cache and queue
	statusCache := cache.NewReportStatusCache(rdb)
	reportQueue := queue.NewReportQueue(rdb)

	// Initialize AI collaborators
	aiClient := ai.NewClient(aiConfig)
	orchestrator := ai.NewOrchestrator(aiClient, aiConfig)
	evaluator := ai.NewEvaluator(aiClient, aiConfig)
	codeRunner := ai.NewCodeRunner(aiConfig)

	// Initialize services
	finalizer := service.NewFinalizer(sessionRepo, reportRepo, reportQueue, statusCache)
	interviewSvc := service.NewInterviewService(sessionRepo, questionRepo, orchestrator, codeRunner, finalizer)
	reportSvc := service.NewReportService(sessionRepo, reportRepo, statusCache, finalizer)

	// Start background loops
	reportWorker := worker.NewReportWorker(reportQueue, sessionRepo, reportRepo, questionRepo, evaluator, statusCache)
	go reportWorker.Run(ctx)

	reaper := service.NewReaper(sessionRepo, finalizer, cfg.SessionIdleTimeout, cfg.ReaperInterval)
	go reaper.Run(ctx)

	// Create router with container
	container := &rest.Container{
		InterviewService: interviewSvc,
		ReportService:    reportSvc,
	}
	router := rest.NewRouter(container)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		log.Println("Endpoints:")
		log.Println("  POST /api/interview/start")
		log.Println("  POST /api/interview/next-step")
		log.Println("  POST /api/interview/end")
		log.Println("  GET  /api/interview/session/{id}")
		log.Println("  POST /api/interview/code/submit")
		log.Println("  GET  /api/report/session/{sessionId}")
		log.Println("  GET  /api/report/status/{reportId}")
		log.Println("  WS   /api/ws/interview/{sessionId}")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	stop() // stops the worker and the reaper

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
