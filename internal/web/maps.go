package web

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nitk/air-monitor/internal/tiles"
)

func (s *Server) handleMapStatus(w http.ResponseWriter, r *http.Request) {
	downloaded := tiles.CountDownloaded(s.tilesDir)
	meta, err := tiles.ReadMetadata(s.tilesDir)
	if err != nil {
		log.Printf("web: read tile metadata: %v", err)
	}

	var pct float64
	if meta.Total > 0 {
		pct = 100 * float64(downloaded) / float64(meta.Total)
		if pct > 100 {
			pct = 100
		}
	}

	writeJSON(w, http.StatusOK, MapStatusResponse{
		Ready:          meta.Total > 0 && downloaded >= meta.Total,
		AvailableTiles: downloaded,
		Metadata:       meta,
		Progress: MapProgress{
			Downloaded: downloaded,
			Total:      meta.Total,
			Percentage: pct,
		},
		Bounds: s.bounds,
	})
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	z, errZ := strconv.Atoi(r.PathValue("z"))
	x, errX := strconv.Atoi(r.PathValue("x"))
	y, errY := strconv.Atoi(strings.TrimSuffix(r.PathValue("y"), ".png"))
	if errZ != nil || errX != nil || errY != nil {
		http.NotFound(w, r)
		return
	}

	// Only serve tiles inside the campus area. Anything else 404s even
	// if a stray file exists on disk.
	if !tiles.InBounds(z, x, y, s.bounds) {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(s.tilesDir, strconv.Itoa(z), strconv.Itoa(x), strconv.Itoa(y)+".png")
	if _, err := os.Stat(path); err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, path)
}
