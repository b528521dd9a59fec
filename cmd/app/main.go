package main

import (
	"flag"
	"log"
	"os"

	"github.com/romkarus000/analytics-product/internal/di"
	"github.com/romkarus000/analytics-product/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s timezone=%s", cfg.Environment, cfg.Analytics.Timezone)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	log.Printf("clickhouse: connected - db: %s table: %s", cfg.ClickHouse.Database, cfg.ClickHouse.Table)
	if cfg.Kafka.Enabled {
		log.Printf("kafka: brokers=%v imports=%s", cfg.Kafka.Brokers, cfg.Kafka.ImportsTopic)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
