package main

import (
	"flag"
	"log"
	"os"

	"github.com/danielhafezi/BetaAnalysisTool/internal/di"
	"github.com/danielhafezi/BetaAnalysisTool/pkg/config"

	"github.com/joho/godotenv"
)

func main() {
	// Optional .env for local runs
	_ = godotenv.Load()

	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s cache_backend=%s refs=%v", cfg.Environment, cfg.Cache.Backend, cfg.Analysis.ReferenceSymbols)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
