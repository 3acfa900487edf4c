package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/harliandi/go-sizefit/internal/codec"
	"github.com/harliandi/go-sizefit/internal/config"
	"github.com/harliandi/go-sizefit/internal/handler"
	"github.com/harliandi/go-sizefit/internal/middleware"
	"github.com/harliandi/go-sizefit/internal/search"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()

	engines := map[string]*search.Engine{
		codec.FormatJPEG: search.NewEngine(codec.New(codec.FormatJPEG)),
		codec.FormatWebP: search.NewEngine(codec.New(codec.FormatWebP)),
	}
	pool := search.NewPool(engines, cfg.WorkerCount)
	pool.Start()

	defaults := search.Range{MinKB: cfg.MinSizeKB, MaxKB: cfg.MaxSizeKB}
	h := handler.New(pool, defaults, cfg.MaxUploadMB, cfg.OutputFormat)

	mux := http.NewServeMux()
	mux.HandleFunc("/fit", h.Fit)
	mux.HandleFunc("/health", h.Health)
	mux.Handle("/metrics", promhttp.Handler())

	// Middleware order, outermost first: security headers, per-IP rate
	// limit, global concurrency cap, request IDs, panic recovery, logging.
	chain := middleware.Security(
		middleware.RateLimit(cfg.RateLimitPerSec, cfg.RateLimitBurst)(
			middleware.ConcurrencyLimit(cfg.MaxConcurrent)(
				middleware.WithRequestID(
					middleware.Recovery(
						middleware.Logger(mux),
					),
				),
			),
		),
	)

	// Timeouts guard against slowloris and hanging connections
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      chain,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Starting size-targeting image API on %s", server.Addr)
	log.Printf("Default range: [%d,%d]KB, format: %s, max upload: %dMB, max concurrent: %d, rate limit: %d/sec, workers: %d",
		cfg.MinSizeKB, cfg.MaxSizeKB, cfg.OutputFormat, cfg.MaxUploadMB, cfg.MaxConcurrent, cfg.RateLimitPerSec, cfg.WorkerCount)

	if err := server.ListenAndServe(); err != nil {
		log.Printf("Server error: %v", err)
		os.Exit(1)
	}
}
