// cmd/tools/directory-warmer/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"finsight/internal/analytics"
	"finsight/internal/common/config"
	"finsight/internal/common/database"
	"finsight/internal/common/logger"
	"finsight/internal/directory"
	"finsight/internal/models"
)

// directory-warmer fetches a fresh symbol directory snapshot and stores
// it in the Redis cache, so worker startup does not depend on the
// analytics provider. Run it from a cron job or an init container.
func main() {
	configPath := flag.String("config", "", "Path to config file (default: standard search paths)")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall refresh timeout")
	verbose := flag.Bool("verbose", false, "Print per-namespace symbol counts")
	flag.Parse()

	zapLog := logger.New("info", "console")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	redis, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		zapLog.Fatal("redis init failed", zap.Error(err))
	}
	defer redis.Close()
	if err := redis.Ping(ctx); err != nil {
		zapLog.Fatal("redis unreachable", zap.Error(err))
	}

	provider := analytics.NewClient(cfg.Analytics, log)
	dir := directory.NewService(provider, redis, cfg.Directory, log)

	start := time.Now()
	snap, err := dir.Refresh(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "directory refresh failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Directory refreshed: %d symbols in %s\n", snap.Size(), time.Since(start).Round(time.Millisecond))

	if *verbose {
		for _, ns := range models.KnownNamespaces {
			entries := snap.InNamespace(ns)
			if len(entries) > 0 {
				fmt.Printf("  %-6s %d\n", ns, len(entries))
			}
		}
	}
}
