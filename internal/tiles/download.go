package tiles

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	defaultTileURL = "https://tile.openstreetmap.org/%d/%d/%d.png"
	userAgent      = "NITK-AQ-System"
	// OSM's usage policy asks for throttled bulk downloads.
	downloadDelay = 100 * time.Millisecond
)

// Downloader fetches map tiles for offline serving.
type Downloader struct {
	client  *http.Client
	urlFmt  string
	delay   time.Duration
	verbose bool
}

// NewDownloader creates a downloader against the public OSM tile server.
func NewDownloader(verbose bool) *Downloader {
	return &Downloader{
		client:  &http.Client{Timeout: 30 * time.Second},
		urlFmt:  defaultTileURL,
		delay:   downloadDelay,
		verbose: verbose,
	}
}

// Fetch downloads every tile covering the box across the zoom range into
// dir, skipping tiles already on disk, and writes metadata.json. It
// returns the number of tiles fetched from the network.
func (d *Downloader) Fetch(ctx context.Context, dir string, b Bounds, minZoom, maxZoom int) (int, error) {
	total := Count(b, minZoom, maxZoom)
	fetched, visited := 0, 0

	for z := minZoom; z <= maxZoom; z++ {
		xMin, xMax, yMin, yMax := Range(b, z)
		for x := xMin; x <= xMax; x++ {
			if err := os.MkdirAll(filepath.Join(dir, fmt.Sprint(z), fmt.Sprint(x)), 0755); err != nil {
				return fetched, fmt.Errorf("create tile dir: %w", err)
			}
			for y := yMin; y <= yMax; y++ {
				if err := ctx.Err(); err != nil {
					return fetched, err
				}
				visited++
				path := filepath.Join(dir, fmt.Sprint(z), fmt.Sprint(x), fmt.Sprintf("%d.png", y))
				if _, err := os.Stat(path); err == nil {
					continue
				}
				if err := d.fetchOne(ctx, path, z, x, y); err != nil {
					// A missed tile is not fatal; the map degrades to a
					// blank square there.
					log.Printf("tiles: fetch %d/%d/%d: %v", z, x, y, err)
					continue
				}
				fetched++
				if d.verbose {
					log.Printf("tiles: %d/%d (%.1f%%)", visited, total, float64(visited)/float64(total)*100)
				}
				time.Sleep(d.delay)
			}
		}
	}

	if err := WriteMetadata(dir, Metadata{Bounds: b, Total: total}); err != nil {
		return fetched, err
	}
	return fetched, nil
}

func (d *Downloader) fetchOne(ctx context.Context, path string, z, x, y int) error {
	url := fmt.Sprintf(d.urlFmt, z, x, y)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %s", resp.Status)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}
