package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/kaikteck/Mult-Function/internal/controller"
	"github.com/kaikteck/Mult-Function/internal/errorhandler"
	"github.com/kaikteck/Mult-Function/internal/metrics"
	"github.com/kaikteck/Mult-Function/internal/server"
	"github.com/kaikteck/Mult-Function/internal/speedfmt"
	"github.com/kaikteck/Mult-Function/internal/taskstore"
	"github.com/kaikteck/Mult-Function/internal/tester"
	"github.com/kaikteck/Mult-Function/internal/yamlconfig"
)

//go:embed static
var staticFS embed.FS

func main() {
	// Get the directory of the running binary
	exePath, err := os.Executable()
	if err != nil {
		log.Fatalf("Failed to get executable path: %v", err)
	}
	exeDir := filepath.Dir(exePath)

	configPath := filepath.Join(exeDir, "config.yaml")
	cfg, err := yamlconfig.LoadAndValidate(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	fmt.Printf("Configuration loaded from: %s\n", configPath)

	policy, err := speedfmt.ParsePingRounding(cfg.Speed.PingRounding)
	if err != nil {
		log.Fatalf("Invalid ping rounding: %v", err)
	}

	runner := tester.NewRunner(
		tester.NewOoklaProbe(cfg.Speed.Candidates),
		policy,
		time.Duration(cfg.Speed.TimeoutSeconds)*time.Second,
	)
	runner.OnStage = func(stage tester.Stage) {
		fmt.Printf("Speed test stage: %s\n", stage)
	}

	store := taskstore.NewFileStore(cfg.TasksPath(exeDir))
	ctrl := controller.New(store, runner, controller.Options{
		MaxTasks:     cfg.Tasks.MaxTasks,
		Cooldown:     time.Duration(cfg.Speed.CooldownSeconds) * time.Second,
		Metrics:      metrics.New(100),
		ErrorHandler: errorhandler.New(),
	})
	if err := ctrl.Load(); err != nil {
		log.Fatalf("Failed to load tasks from %s: %v", store.Path(), err)
	}

	gin.SetMode(gin.ReleaseMode)
	srv, err := server.New(cfg, ctrl, staticFS)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Task file: %s\n", store.Path())
	fmt.Printf("Open http://localhost%s in your browser\n", cfg.Server.Addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server stopped")
}
