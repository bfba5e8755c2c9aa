package web

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/nitk/air-monitor/internal/store"
	"github.com/nitk/air-monitor/internal/tiles"
)

// RealtimeJSON is the response shape for /api/realtime.
type RealtimeJSON struct {
	PM25        float64 `json:"pm25"`
	PM10        float64 `json:"pm10"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	AQI         int     `json:"aqi"`
	AQILevel    string  `json:"aqi_level"`
	Timestamp   string  `json:"timestamp"`
	Status      string  `json:"status"` // "active" once the first cycle completed
}

// CollectRequest is the body of POST /api/collect.
type CollectRequest struct {
	LocationName   string         `json:"locationName"`
	Latitude       *float64       `json:"latitude"`
	Longitude      *float64       `json:"longitude"`
	CollectionData []CollectPoint `json:"collectionData"`
}

// CollectPoint is one raw sample captured by the surveying UI.
type CollectPoint struct {
	PM25        float64 `json:"pm25"`
	PM10        float64 `json:"pm10"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Timestamp   float64 `json:"timestamp"`
}

// CollectResponse is the stored summary returned by /api/collect.
type CollectResponse struct {
	ID               int64   `json:"id"`
	AQI              int     `json:"aqi"`
	PM25             float64 `json:"pm25"`
	PM10             float64 `json:"pm10"`
	Temperature      float64 `json:"temperature"`
	Humidity         float64 `json:"humidity"`
	Timestamp        string  `json:"timestamp"`
	Location         string  `json:"location"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	CollectionPoints int     `json:"collection_points,omitempty"`
	Status           string  `json:"status"`
}

// ReadingJSON is one stored reading in /api/readings.
type ReadingJSON struct {
	ID                int64   `json:"id"`
	LocationName      string  `json:"location_name"`
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	AQI               int     `json:"aqi"`
	PM25              float64 `json:"pm25"`
	PM10              float64 `json:"pm10"`
	Temperature       float64 `json:"temp"`
	Humidity          float64 `json:"humidity"`
	Timestamp         float64 `json:"timestamp"`
	CreatedAt         string  `json:"created_at"`
	HasCollectionData bool    `json:"has_collection_data"`
	CollectionPoints  int     `json:"collection_points"`
}

// ReadingsResponse is the envelope for /api/readings.
type ReadingsResponse struct {
	Readings []ReadingJSON `json:"readings"`
	Count    int           `json:"count"`
	Status   string        `json:"status"`
}

// PointJSON is one time-series sample in a reading's collection data.
type PointJSON struct {
	PM25        float64 `json:"pm25"`
	PM10        float64 `json:"pm10"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Timestamp   float64 `json:"timestamp"`
	Sequence    int     `json:"sequence"`
}

// PointsResponse is the envelope for /api/readings/{id}/points.
type PointsResponse struct {
	ReadingID      int64       `json:"reading_id"`
	CollectionData []PointJSON `json:"collection_data"`
	Count          int         `json:"count"`
	Status         string      `json:"status"`
}

// StatusResponse is the health report for /api/status.
type StatusResponse struct {
	Sensors          string        `json:"sensors"` // "hardware" or "simulation"
	Cycle            string        `json:"cycle_state"`
	Database         string        `json:"database"`
	Environment      string        `json:"environment"`
	ReadingCount     int64         `json:"reading_count"`
	CollectionPoints int64         `json:"collection_points"`
	LatestReading    string        `json:"latest_reading,omitempty"`
	SensorStatus     string        `json:"sensor_status"`
	Current          *RealtimeJSON `json:"current_values,omitempty"`
	Bounds           tiles.Bounds  `json:"bounds"`
	UptimeSeconds    int64         `json:"uptime_seconds"`
	Status           string        `json:"status"`
	Error            string        `json:"error,omitempty"`
}

// MapStatusResponse reports offline tile availability.
type MapStatusResponse struct {
	Ready          bool           `json:"ready"`
	AvailableTiles int            `json:"available_tiles"`
	Metadata       tiles.Metadata `json:"metadata"`
	Progress       MapProgress    `json:"progress"`
	Bounds         tiles.Bounds   `json:"bounds"`
}

// MapProgress is the download progress summary inside the map status.
type MapProgress struct {
	Downloaded int     `json:"downloaded"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg})
}

func toReadingJSON(r store.Reading) ReadingJSON {
	return ReadingJSON{
		ID:                r.ID,
		LocationName:      r.Location,
		Latitude:          r.Latitude,
		Longitude:         r.Longitude,
		AQI:               r.AQI,
		PM25:              r.PM25,
		PM10:              r.PM10,
		Temperature:       r.Temperature,
		Humidity:          r.Humidity,
		Timestamp:         r.Timestamp,
		CreatedAt:         r.CreatedAt,
		HasCollectionData: r.PointCount > 0,
		CollectionPoints:  r.PointCount,
	}
}
