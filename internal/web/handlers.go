package web

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nitk/air-monitor/internal/aqi"
	"github.com/nitk/air-monitor/internal/fusion"
	"github.com/nitk/air-monitor/internal/store"
)

func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	reading, ok := s.engine.Latest()
	if !ok {
		// Before the first cycle completes there is nothing to report;
		// this is not an error state.
		writeJSON(w, http.StatusOK, RealtimeJSON{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Status:    "initializing",
		})
		return
	}

	writeJSON(w, http.StatusOK, RealtimeJSON{
		PM25:        reading.PM25,
		PM10:        reading.PM10,
		Temperature: reading.Temperature,
		Humidity:    reading.Humidity,
		AQI:         reading.AQI,
		AQILevel:    aqi.Level(reading.AQI),
		Timestamp:   reading.Timestamp.UTC().Format(time.RFC3339),
		Status:      "active",
	})
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	var req CollectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request must be JSON")
		return
	}

	req.LocationName = strings.TrimSpace(req.LocationName)
	if req.LocationName == "" || req.Latitude == nil || req.Longitude == nil {
		writeError(w, http.StatusBadRequest, "missing required fields: locationName, latitude, longitude")
		return
	}

	lat, lon := *req.Latitude, *req.Longitude
	if !s.bounds.Contains(lat, lon) {
		writeError(w, http.StatusBadRequest, "coordinates outside campus bounds")
		return
	}

	var summary fusion.Reading
	if len(req.CollectionData) > 0 {
		points := make([]fusion.Point, len(req.CollectionData))
		for i, p := range req.CollectionData {
			points[i] = fusion.Point{
				PM25:        p.PM25,
				PM10:        p.PM10,
				Temperature: p.Temperature,
				Humidity:    p.Humidity,
				Timestamp:   p.Timestamp,
			}
		}
		summary = s.engine.Summarize(points)
	} else {
		var ok bool
		summary, ok = s.engine.Latest()
		if !ok {
			writeError(w, http.StatusServiceUnavailable, "no sensor data yet")
			return
		}
	}

	id, err := s.store.InsertReading(store.Reading{
		Location:    req.LocationName,
		Latitude:    lat,
		Longitude:   lon,
		AQI:         summary.AQI,
		PM25:        summary.PM25,
		PM10:        summary.PM10,
		Temperature: summary.Temperature,
		Humidity:    summary.Humidity,
		Timestamp:   float64(summary.Timestamp.Unix()),
	})
	if err != nil {
		log.Printf("web: insert reading: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store reading")
		return
	}

	if len(req.CollectionData) > 0 {
		points := make([]store.Point, len(req.CollectionData))
		for i, p := range req.CollectionData {
			points[i] = store.Point{
				PM25:        p.PM25,
				PM10:        p.PM10,
				Temperature: p.Temperature,
				Humidity:    p.Humidity,
				Timestamp:   p.Timestamp,
			}
		}
		if err := s.store.InsertPoints(id, points); err != nil {
			log.Printf("web: insert points for reading %d: %v", id, err)
			writeError(w, http.StatusInternalServerError, "failed to store collection points")
			return
		}
	}

	writeJSON(w, http.StatusOK, CollectResponse{
		ID:               id,
		AQI:              summary.AQI,
		PM25:             summary.PM25,
		PM10:             summary.PM10,
		Temperature:      summary.Temperature,
		Humidity:         summary.Humidity,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		Location:         req.LocationName,
		Latitude:         lat,
		Longitude:        lon,
		CollectionPoints: len(req.CollectionData),
		Status:           "success",
	})
}

func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	readings, err := s.store.ListReadings()
	if err != nil {
		log.Printf("web: list readings: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to retrieve readings")
		return
	}

	out := make([]ReadingJSON, 0, len(readings))
	for _, rd := range readings {
		out = append(out, toReadingJSON(rd))
	}
	writeJSON(w, http.StatusOK, ReadingsResponse{
		Readings: out,
		Count:    len(out),
		Status:   "success",
	})
}

func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reading id")
		return
	}

	points, err := s.store.Points(id)
	if err != nil {
		log.Printf("web: points for reading %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to retrieve collection data")
		return
	}

	out := make([]PointJSON, 0, len(points))
	for _, p := range points {
		out = append(out, PointJSON{
			PM25:        p.PM25,
			PM10:        p.PM10,
			Temperature: p.Temperature,
			Humidity:    p.Humidity,
			Timestamp:   p.Timestamp,
			Sequence:    p.Seq,
		})
	}
	writeJSON(w, http.StatusOK, PointsResponse{
		ReadingID:      id,
		CollectionData: out,
		Count:          len(out),
		Status:         "success",
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reading id")
		return
	}

	deleted, err := s.store.DeleteReading(id)
	if err != nil {
		log.Printf("web: delete reading %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to delete reading")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "reading not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Sensors:       s.engine.Mode(),
		Cycle:         string(s.engine.State()),
		Environment:   string(s.engine.Environment()),
		Bounds:        s.bounds,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	}

	reading, ok := s.engine.Latest()
	if ok {
		resp.SensorStatus = "active"
		resp.Current = &RealtimeJSON{
			PM25:        reading.PM25,
			PM10:        reading.PM10,
			Temperature: reading.Temperature,
			Humidity:    reading.Humidity,
			AQI:         reading.AQI,
			AQILevel:    aqi.Level(reading.AQI),
			Timestamp:   reading.Timestamp.UTC().Format(time.RFC3339),
			Status:      "active",
		}
	} else {
		resp.SensorStatus = "initializing"
	}

	// A store failure degrades the health report but is distinct from
	// sensor state: the in-memory reading above is still valid.
	readings, points, err := s.store.Counts()
	if err != nil {
		log.Printf("web: status counts: %v", err)
		resp.Database = "error"
		resp.Status = "degraded"
		resp.Error = "failed to query database"
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	latest, err := s.store.LatestCreatedAt()
	if err != nil {
		log.Printf("web: status latest: %v", err)
		resp.Database = "error"
		resp.Status = "degraded"
		resp.Error = "failed to query database"
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	resp.Database = "connected"
	resp.ReadingCount = readings
	resp.CollectionPoints = points
	resp.LatestReading = latest
	resp.Status = "healthy"
	writeJSON(w, http.StatusOK, resp)
}
