package main

import (
	"context"
	"embed"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"learnerdash/adapters/excel"
	"learnerdash/app"
	"learnerdash/internal/config"
	"learnerdash/internal/session"
	"learnerdash/ui"
)

//go:embed ui/templates/* ui/static/*
var embeddedFiles embed.FS

// janitorInterval is how often expired sessions are swept
const janitorInterval = 10 * time.Minute

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	gin.SetMode(appConfig.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := session.NewStore(appConfig.Server.SessionTTL)
	go store.RunJanitor(ctx, janitorInterval)

	analysis := app.NewAnalysisService(excel.NewDataReader(), appConfig.Markers, appConfig.Thresholds)
	server := ui.NewServer(embeddedFiles, appConfig, store, analysis)
	if err := server.Initialize(); err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	// Optional markbook every new session starts with
	if appConfig.Data.ExcelFile != "" {
		log.Printf("Preloading markbook: %s", appConfig.Data.ExcelFile)
		state, err := analysis.AnalyzeFile(ctx, appConfig.Data.ExcelFile)
		if err != nil {
			log.Fatalf("Failed to load %s: %v", appConfig.Data.ExcelFile, err)
		}
		server.Preload(state)
	}

	// Start pprof server for performance profiling
	if appConfig.Profiling.Enabled {
		go func() {
			log.Printf("Performance profiling server starting on :%s", appConfig.Profiling.Port)
			if err := http.ListenAndServe(":"+appConfig.Profiling.Port, nil); err != nil {
				log.Printf("pprof server failed: %v", err)
			}
		}()
	}

	log.Fatal(server.Start(":" + appConfig.Server.Port))
}
