package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/api"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/config"
	"github.com/imissmat/DigitalTwin-PowerDistribution/internal/sim"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (optional; defaults apply)")
	tickMS := flag.Int("tick-ms", 50, "Wall-clock milliseconds per simulation tick")
	flag.Parse()

	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}
	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}

	loop, err := sim.New(cfg)
	if err != nil {
		log.Fatalf("build simulation: %v", err)
	}
	defer loop.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		err := loop.Run(ctx, 0, time.Duration(*tickMS)*time.Millisecond)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("simulation stopped: %v", err)
			stop()
		}
	}()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: api.NewRouter(loop),
	}
	go func() {
		log.Printf("Starting API server on %s (tick every %dms)", srv.Addr, *tickMS)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
