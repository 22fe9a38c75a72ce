package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CorrelAid/sbv2_web/engine"
	"github.com/CorrelAid/sbv2_web/handlers"
	"github.com/CorrelAid/sbv2_web/inits"
	"github.com/CorrelAid/sbv2_web/middleware"
	"github.com/CorrelAid/sbv2_web/validators"
	"github.com/CorrelAid/sbv2_web/views"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	cfg, err := inits.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inits.DBInit(ctx, cfg.CleanupInterval)

	runtime := engine.NewRuntime(engine.NewRemote(cfg.EngineURL, cfg.EngineTimeout), cfg.OnnxRuntimeLib)
	defer runtime.Close()
	if err := runtime.Init(ctx); err != nil {
		// Retried on the first submission.
		log.Printf("Engine not ready yet: %v", err)
	}

	h := &handlers.Handler{
		DB:     inits.DB,
		Engine: runtime,
		Verifier: validators.Verifier{
			Secret:    cfg.TurnstileSecret,
			TestToken: cfg.TestToken,
			Release:   cfg.Release(),
		},
		Limits: validators.Limits{
			MaxFileSize:  cfg.MaxFileSize,
			MaxTextRunes: cfg.MaxTextRunes,
		},
		SiteKey:       cfg.TurnstileSiteKey,
		ClipTTL:       cfg.ClipTTL,
		EngineTimeout: cfg.EngineTimeout,
	}

	router := gin.Default()
	// Larger parts spill to temporary files.
	router.MaxMultipartMemory = cfg.MultipartMemory
	router.SetHTMLTemplate(views.Templates())
	router.Use(middleware.DomainWhitelistMiddleware(cfg.AllowedHosts))
	h.Register(router,
		middleware.RateLimitMiddleware(cfg.RateLimit),
		middleware.BodyLimitMiddleware(cfg.MaxRequestBytes()),
	)

	srv := &http.Server{Addr: cfg.Addr, Handler: router}
	go func() {
		<-ctx.Done()
		log.Println("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown: %v", err)
		}
	}()

	log.Printf("Listening on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server stopped: %v", err)
	}
}
