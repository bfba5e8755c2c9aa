// Package tiles handles the offline slippy-map tile set: coordinate math,
// bounds intersection, download, and availability metadata.
package tiles

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Bounds is a geographic bounding box in degrees.
type Bounds struct {
	North float64 `json:"north" yaml:"north"`
	South float64 `json:"south" yaml:"south"`
	East  float64 `json:"east" yaml:"east"`
	West  float64 `json:"west" yaml:"west"`
}

// Contains reports whether a coordinate lies inside the box.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.South && lat <= b.North && lon >= b.West && lon <= b.East
}

// TileForLatLon returns the slippy-map tile containing a coordinate at
// the given zoom.
func TileForLatLon(lat, lon float64, zoom int) (x, y int) {
	n := math.Exp2(float64(zoom))
	x = int((lon + 180.0) / 360.0 * n)
	y = int((1.0 - math.Asinh(math.Tan(lat*math.Pi/180))/math.Pi) / 2.0 * n)
	return x, y
}

// TileBounds returns the geographic box a tile covers.
func TileBounds(zoom, x, y int) Bounds {
	n := math.Exp2(float64(zoom))
	lonMin := float64(x)/n*360.0 - 180.0
	lonMax := float64(x+1)/n*360.0 - 180.0
	latMax := math.Atan(math.Sinh(math.Pi*(1-2*float64(y)/n))) * 180 / math.Pi
	latMin := math.Atan(math.Sinh(math.Pi*(1-2*float64(y+1)/n))) * 180 / math.Pi
	return Bounds{North: latMax, South: latMin, East: lonMax, West: lonMin}
}

// InBounds reports whether a tile intersects the bounding box; tiles that
// merely touch the edge count as inside.
func InBounds(zoom, x, y int, b Bounds) bool {
	t := TileBounds(zoom, x, y)
	return !(t.East < b.West || t.West > b.East || t.North < b.South || t.South > b.North)
}

// Range returns the inclusive tile index ranges covering the box at one
// zoom level.
func Range(b Bounds, zoom int) (xMin, xMax, yMin, yMax int) {
	xMin, yMax = TileForLatLon(b.South, b.West, zoom)
	xMax, yMin = TileForLatLon(b.North, b.East, zoom)
	return xMin, xMax, yMin, yMax
}

// Count returns how many tiles cover the box across a zoom range.
func Count(b Bounds, minZoom, maxZoom int) int {
	total := 0
	for z := minZoom; z <= maxZoom; z++ {
		xMin, xMax, yMin, yMax := Range(b, z)
		total += (xMax - xMin + 1) * (yMax - yMin + 1)
	}
	return total
}

// CountDownloaded walks the tile directory and counts stored .png tiles.
func CountDownloaded(dir string) int {
	count := 0
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".png") {
			count++
		}
		return nil
	})
	return count
}

// Metadata describes a downloaded tile set.
type Metadata struct {
	Bounds Bounds `json:"bounds"`
	Total  int    `json:"total"`
	Date   string `json:"date"`
}

// WriteMetadata records the tile set description alongside the tiles.
func WriteMetadata(dir string, m Metadata) error {
	if m.Date == "" {
		m.Date = time.Now().Format("2006-01-02")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	path := filepath.Join(dir, "metadata.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// ReadMetadata loads the tile set description; a missing file yields a
// zero Metadata without error.
func ReadMetadata(dir string) (Metadata, error) {
	var m Metadata
	data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return m, fmt.Errorf("read metadata: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse metadata: %w", err)
	}
	return m, nil
}
