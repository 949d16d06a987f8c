package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/quality-gate/internal/bootstrap"
	"github.com/bryanwahyu/quality-gate/internal/config"
	"github.com/bryanwahyu/quality-gate/internal/infra/httpserver"
)

func main() {
	// load config (.env, then config.yaml or CONFIG_PATH)
	cfg, err := config.Resolve()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	// connect database + wire services
	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()
	log.Printf("database ready driver=%s", cfg.Database.Driver)

	// init router
	mux := chi.NewRouter()
	mux.Mount("/", httpserver.NewRouter(app.Service, httpserver.Options{
		APIKeys:     cfg.Server.APIKeys,
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimit:   cfg.Server.RateLimit.Requests,
		RateWindow:  cfg.Server.RateLimit.Window,
		Checks:      app.Checks(),
		Context:     ctx,
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
