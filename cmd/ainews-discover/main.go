package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"ainews/internal/discover"
	"ainews/internal/logger"
)

func main() {
	logger.Init()

	discoveryPath := flag.String("config", "configs/discovery.yaml", "discovery config YAML")
	feedsPath := flag.String("feeds", "configs/feeds.yaml", "feed list YAML to append to")
	flag.Parse()

	cfg, err := discover.LoadConfig(*discoveryPath)
	if err != nil {
		log.Fatalf("load discovery config: %v", err)
	}
	if len(cfg.Domains) == 0 {
		log.Fatalf("no domains configured in %s", *discoveryPath)
	}

	d := discover.New(10*time.Second, cfg.Rules.TryPaths, cfg.Rules.MinRecentDays)
	valid := d.Run(context.Background(), cfg.Domains)
	if len(valid) == 0 {
		fmt.Println("no new valid feeds found")
		return
	}

	added, err := discover.AppendFeeds(*feedsPath, valid)
	if err != nil {
		log.Fatalf("append feeds: %v", err)
	}
	if len(added) == 0 {
		fmt.Println("all discovered feeds already configured")
		return
	}

	fmt.Printf("added %d feeds to %s:\n", len(added), *feedsPath)
	for _, u := range added {
		fmt.Printf("  + %s\n", u)
	}
}
