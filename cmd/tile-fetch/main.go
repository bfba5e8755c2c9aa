// Command tile-fetch downloads OpenStreetMap tiles covering the campus
// bounding box for offline serving by the air-monitor daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nitk/air-monitor/internal/config"
	"github.com/nitk/air-monitor/internal/tiles"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults apply when empty or missing)")
	out := flag.String("out", "", "tile output directory (overrides config)")
	minZoom := flag.Int("min-zoom", 0, "minimum zoom level (overrides config)")
	maxZoom := flag.Int("max-zoom", 0, "maximum zoom level (overrides config)")
	quiet := flag.Bool("quiet", false, "suppress per-tile progress output")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if *out != "" {
		cfg.Tiles.Dir = *out
	}
	if *minZoom > 0 {
		cfg.Tiles.MinZoom = *minZoom
	}
	if *maxZoom > 0 {
		cfg.Tiles.MaxZoom = *maxZoom
	}
	if cfg.Tiles.MinZoom > cfg.Tiles.MaxZoom {
		log.Fatalf("fatal: min zoom %d above max zoom %d", cfg.Tiles.MinZoom, cfg.Tiles.MaxZoom)
	}

	bounds := tiles.Bounds{
		North: cfg.Bounds.North, South: cfg.Bounds.South,
		East: cfg.Bounds.East, West: cfg.Bounds.West,
	}

	total := tiles.Count(bounds, cfg.Tiles.MinZoom, cfg.Tiles.MaxZoom)
	existing := tiles.CountDownloaded(cfg.Tiles.Dir)
	log.Printf("fetching tiles: zoom %d-%d, %d total, %d already on disk",
		cfg.Tiles.MinZoom, cfg.Tiles.MaxZoom, total, existing)

	// Ctrl-C stops cleanly; already-downloaded tiles are kept and the
	// next run resumes where this one stopped.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetched, err := tiles.NewDownloader(!*quiet).Fetch(ctx, cfg.Tiles.Dir, bounds, cfg.Tiles.MinZoom, cfg.Tiles.MaxZoom)
	if err != nil {
		log.Printf("stopped after %d tiles: %v", fetched, err)
		os.Exit(1)
	}

	fmt.Printf("done: fetched %d new tiles, %d available in %s\n",
		fetched, tiles.CountDownloaded(cfg.Tiles.Dir), cfg.Tiles.Dir)
}
