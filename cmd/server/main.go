package main

import (
	"flag"
	"log"
	"strings"

	"github.com/himanishpuri/KaraokeScore/internal/config"
	"github.com/himanishpuri/KaraokeScore/pkg/karaoke"
	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/storage"
	"github.com/himanishpuri/KaraokeScore/pkg/logger"
)

var (
	configPath string
	port       string
)

func init() {
	flag.StringVar(&configPath, "config", "", "Path to a YAML config file (optional)")
	flag.StringVar(&port, "port", "", "HTTP server port (overrides config)")
}

func main() {
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if port != "" {
		cfg.Port = port
	}

	appLog := logger.GetLogger()
	appLog.SetLevel(cfg.LogLevel)
	if strings.EqualFold(cfg.LogFormat, "json") {
		appLog = logger.New(logger.Config{Level: cfg.LogLevel, JSON: true})
	}

	db, err := storage.NewDBClientWithPath(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer db.Close()

	opts := append(cfg.ServiceOptions(),
		karaoke.WithCatalog(db),
		karaoke.WithLogger(appLog),
	)
	service, err := karaoke.NewService(opts...)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	server := NewServer(service, db, &ServerConfig{
		Port:                cfg.Port,
		DBPath:              cfg.DBPath,
		ChunkSeconds:        cfg.ChunkSeconds,
		MinRecordingSeconds: cfg.MinRecordingSeconds,
		AllowedOrigins:      cfg.AllowedOrigins,
	})
	server.log = appLog

	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
