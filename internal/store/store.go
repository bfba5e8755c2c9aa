// Package store persists fused readings and their per-cycle collection
// points in SQLite. One reading row summarizes one location submission;
// its ordered collection points carry the raw time series behind it.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS readings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	location_name TEXT NOT NULL,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL,
	aqi INTEGER NOT NULL,
	pm25 REAL NOT NULL,
	pm10 REAL NOT NULL,
	temp REAL NOT NULL,
	humidity REAL NOT NULL,
	timestamp REAL NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS collection_points (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	reading_id INTEGER NOT NULL,
	pm25 REAL NOT NULL,
	pm10 REAL NOT NULL,
	temperature REAL NOT NULL,
	humidity REAL NOT NULL,
	timestamp REAL NOT NULL,
	seq INTEGER NOT NULL,
	FOREIGN KEY (reading_id) REFERENCES readings (id)
);

CREATE INDEX IF NOT EXISTS idx_readings_timestamp ON readings(timestamp);
CREATE INDEX IF NOT EXISTS idx_readings_location ON readings(location_name);
CREATE INDEX IF NOT EXISTS idx_points_reading_id ON collection_points(reading_id);
`

// Reading is one stored location submission.
type Reading struct {
	ID          int64
	Location    string
	Latitude    float64
	Longitude   float64
	AQI         int
	PM25        float64
	PM10        float64
	Temperature float64
	Humidity    float64
	Timestamp   float64 // unix seconds
	CreatedAt   string
	PointCount  int
}

// Point is one stored collection time-series sample.
type Point struct {
	PM25        float64
	PM10        float64
	Temperature float64
	Humidity    float64
	Timestamp   float64 // unix seconds
	Seq         int
}

// Store wraps the SQLite database. The mutex serializes writers; SQLite
// itself is single-writer and this keeps transactions predictable under
// concurrent API calls.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and
// initializes the schema. The parent directory is created if missing.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// InsertReading stores a summary reading and returns its id.
func (s *Store) InsertReading(r Reading) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT INTO readings
		 (location_name, latitude, longitude, aqi, pm25, pm10, temp, humidity, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Location, r.Latitude, r.Longitude, r.AQI,
		r.PM25, r.PM10, r.Temperature, r.Humidity, r.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("insert reading: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading id: %w", err)
	}
	return id, nil
}

// InsertPoints stores the ordered collection points behind a reading.
func (s *Store) InsertPoints(readingID int64, points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.Prepare(
		`INSERT INTO collection_points
		 (reading_id, pm25, pm10, temperature, humidity, timestamp, seq)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i, p := range points {
		ts := p.Timestamp
		if ts == 0 {
			ts = float64(time.Now().Unix())
		}
		if _, err := stmt.Exec(readingID, p.PM25, p.PM10, p.Temperature, p.Humidity, ts, i); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert point %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListReadings returns all readings, newest first, each annotated with
// its collection-point count.
func (s *Store) ListReadings() ([]Reading, error) {
	rows, err := s.db.Query(
		`SELECT r.id, r.location_name, r.latitude, r.longitude, r.aqi,
		        r.pm25, r.pm10, r.temp, r.humidity, r.timestamp, r.created_at,
		        COUNT(c.id)
		 FROM readings r
		 LEFT JOIN collection_points c ON r.id = c.reading_id
		 GROUP BY r.id
		 ORDER BY r.created_at DESC, r.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	defer rows.Close()

	var readings []Reading
	for rows.Next() {
		var r Reading
		if err := rows.Scan(&r.ID, &r.Location, &r.Latitude, &r.Longitude, &r.AQI,
			&r.PM25, &r.PM10, &r.Temperature, &r.Humidity, &r.Timestamp,
			&r.CreatedAt, &r.PointCount); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

// Points returns the ordered collection time series for one reading.
func (s *Store) Points(readingID int64) ([]Point, error) {
	rows, err := s.db.Query(
		`SELECT pm25, pm10, temperature, humidity, timestamp, seq
		 FROM collection_points
		 WHERE reading_id = ?
		 ORDER BY seq`, readingID)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var p Point
		if err := rows.Scan(&p.PM25, &p.PM10, &p.Temperature, &p.Humidity, &p.Timestamp, &p.Seq); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// DeleteReading removes a reading and its collection points. It reports
// whether a reading with that id existed.
func (s *Store) DeleteReading(id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM collection_points WHERE reading_id = ?`, id); err != nil {
		tx.Rollback()
		return false, fmt.Errorf("delete points: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM readings WHERE id = ?`, id)
	if err != nil {
		tx.Rollback()
		return false, fmt.Errorf("delete reading: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return n > 0, nil
}

// Counts returns the total numbers of readings and collection points,
// for the health endpoint.
func (s *Store) Counts() (readings, points int64, err error) {
	if err = s.db.QueryRow(`SELECT COUNT(*) FROM readings`).Scan(&readings); err != nil {
		return 0, 0, fmt.Errorf("count readings: %w", err)
	}
	if err = s.db.QueryRow(`SELECT COUNT(*) FROM collection_points`).Scan(&points); err != nil {
		return 0, 0, fmt.Errorf("count points: %w", err)
	}
	return readings, points, nil
}

// LatestCreatedAt returns the created_at of the newest reading, or ""
// when the store is empty.
func (s *Store) LatestCreatedAt() (string, error) {
	var created string
	err := s.db.QueryRow(
		`SELECT created_at FROM readings ORDER BY created_at DESC, id DESC LIMIT 1`).Scan(&created)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest created_at: %w", err)
	}
	return created, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
