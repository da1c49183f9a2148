package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kaikteck/Mult-Function/internal/console"
	"github.com/kaikteck/Mult-Function/internal/controller"
	"github.com/kaikteck/Mult-Function/internal/errorhandler"
	"github.com/kaikteck/Mult-Function/internal/metrics"
	"github.com/kaikteck/Mult-Function/internal/speedfmt"
	"github.com/kaikteck/Mult-Function/internal/taskstore"
	"github.com/kaikteck/Mult-Function/internal/tester"
	"github.com/kaikteck/Mult-Function/internal/yamlconfig"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := yamlconfig.LoadAndValidate(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	policy, err := speedfmt.ParsePingRounding(cfg.Speed.PingRounding)
	if err != nil {
		log.Fatalf("Invalid ping rounding: %v", err)
	}

	runner := tester.NewRunner(
		tester.NewOoklaProbe(cfg.Speed.Candidates),
		policy,
		time.Duration(cfg.Speed.TimeoutSeconds)*time.Second,
	)

	store := taskstore.NewFileStore(cfg.TasksPath(filepath.Dir(*configPath)))
	ctrl := controller.New(store, runner, controller.Options{
		MaxTasks:     cfg.Tasks.MaxTasks,
		Cooldown:     time.Duration(cfg.Speed.CooldownSeconds) * time.Second,
		Metrics:      metrics.New(20),
		ErrorHandler: errorhandler.New(),
	})
	if err := ctrl.Load(); err != nil {
		log.Fatalf("Failed to load tasks from %s: %v", store.Path(), err)
	}

	con := console.New(ctrl, os.Stdout, runner.Policy())
	con.ShowProgress = true
	runner.OnStage = con.StageHook()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() { done <- con.Run(ctx, os.Stdin) }()

	select {
	case err := <-done:
		if err != nil {
			log.Fatalf("Console error: %v", err)
		}
	case <-ctx.Done():
		fmt.Println()
	}
	fmt.Println("Bye.")
}
