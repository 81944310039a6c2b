// main.go - The entry point and router setup.

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bosocmputer/ocr_answer_compare/configs"
	"github.com/bosocmputer/ocr_answer_compare/internal/ai"
	"github.com/bosocmputer/ocr_answer_compare/internal/api"
	"github.com/bosocmputer/ocr_answer_compare/internal/compare"
	"github.com/bosocmputer/ocr_answer_compare/internal/ratelimit"
	"github.com/bosocmputer/ocr_answer_compare/internal/storage"
	"github.com/gin-gonic/gin"
)

func main() {
	// Step 0: Load configuration from environment variables
	configs.LoadConfig()

	// Step 0.5: Set production mode
	if ginMode := os.Getenv("GIN_MODE"); ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Step 1: Build providers
	providers, err := ai.CreateAnswerProviders(configs.EnabledModels())
	if err != nil {
		log.Fatalf("Failed to create answer providers: %v", err)
	}
	if len(providers) == 0 {
		log.Println("⚠️  No answer model has a usable API key, every comparison will be rejected")
	}

	ocrPrimary, ocrFallback, err := ai.CreateOCRProviderWithFallback()
	if err != nil {
		log.Fatalf("Failed to create OCR provider: %v", err)
	}

	// Step 2: Optional MongoDB history
	var history api.HistoryStore
	if configs.MONGO_URI != "" {
		store, err := storage.InitMongoDB(configs.MONGO_URI, configs.MONGO_DB_NAME)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer store.Close()
		history = store
	} else {
		log.Println("⚠️  MONGO_URI not set, comparison history disabled")
	}

	cache := storage.NewResponseCache()
	limiter := ratelimit.NewLimiter(configs.RATE_LIMIT_RPM)
	comparer := compare.NewComparer(providers, cache, limiter, compare.SettingsFromConfig())
	handler := api.NewHandler(comparer, ocrPrimary, ocrFallback, cache, history, api.OptionsFromConfig())

	// Step 3: Initialize the Gin router
	router := gin.Default()
	router.MaxMultipartMemory = configs.MaxImageSizeBytes() + 1<<20

	// Add CORS middleware - configure allowed origins for production
	router.Use(api.CORSMiddleware(configs.ALLOWED_ORIGINS))

	// Root endpoint for SSL verification
	router.GET("/", func(c *gin.Context) {
		c.String(200, "ok")
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":        "ok",
			"service":       configs.APP_NAME,
			"version":       configs.APP_VERSION,
			"answer_models": comparer.ProviderNames(),
		})
	})

	// Step 4: Define the API routes
	handler.RegisterRoutes(router)

	// Step 5: Setup HTTP server with timeouts
	srv := &http.Server{
		Addr:           ":" + configs.PORT,
		Handler:        router,
		ReadTimeout:    30 * time.Second, // uploads can take a while on slow links
		WriteTimeout:   5 * time.Minute,  // OCR plus one call per model
		MaxHeaderBytes: 1 << 20,
	}

	log.Printf("Starting %s v%s on :%s", configs.APP_NAME, configs.APP_VERSION, configs.PORT)
	log.Printf("Answer models: %s", strings.Join(comparer.ProviderNames(), ", "))
	log.Println("API Endpoints:")
	log.Println("  POST   /api/v1/analyze-image")
	log.Println("  POST   /api/v1/analyze-text")
	log.Println("  POST   /api/v1/summarize")
	log.Println("  POST   /api/v1/similarity")
	log.Println("  GET    /api/v1/models")
	log.Println("  GET    /api/v1/cache/stats")
	log.Println("  DELETE /api/v1/cache")
	log.Println("  GET    /api/v1/history")

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// return, never log.Fatal: the deferred MongoDB close must run
	if err := runServer(srv, quit, 30*time.Second); err != nil {
		log.Printf("❌ %v", err)
		return
	}

	log.Println("Server exited")
}

// runServer serves until quit fires or the listener fails, then shuts down gracefully
func runServer(srv *http.Server, quit <-chan os.Signal, shutdownTimeout time.Duration) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	}

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
