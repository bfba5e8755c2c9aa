// Command air-monitor fuses particulate and climate sensor readings into
// EPA AQI values, serves them over HTTP, and optionally publishes each
// fused reading to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nitk/air-monitor/internal/config"
	"github.com/nitk/air-monitor/internal/fusion"
	"github.com/nitk/air-monitor/internal/mqtt"
	"github.com/nitk/air-monitor/internal/sensor"
	"github.com/nitk/air-monitor/internal/store"
	"github.com/nitk/air-monitor/internal/tiles"
	"github.com/nitk/air-monitor/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults apply when empty or missing)")
	httpAddr := flag.String("http", "", "HTTP API address (overrides config)")
	broker := flag.String("broker", "", `MQTT broker address, e.g. tcp://192.168.1.200:1883 ("off" disables)`)
	hardware := flag.Bool("hardware", false, "attempt hardware sensor acquisition at startup")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	tilesDir := flag.String("tiles", "", "offline map tiles directory (overrides config)")
	period := flag.Duration("period", 0, "acquisition cycle period (overrides config)")
	printReading := flag.Bool("print-reading", false, "run one cycle, print the fused reading, and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	// Flags win over the file.
	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}
	if *broker != "" {
		if *broker == "off" {
			cfg.MQTT.Broker = ""
		} else {
			cfg.MQTT.Broker = *broker
		}
	}
	if *hardware {
		cfg.Sensors.Hardware = true
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *tilesDir != "" {
		cfg.Tiles.Dir = *tilesDir
	}
	if *period > 0 {
		cfg.Fusion.Period = *period
	}

	if err := run(cfg, *printReading); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config, printReading bool) error {
	// Capability probe: try the hardware path when asked, fall back to
	// simulation when the GPIO chip is not there. The engine keeps the
	// simulated acquirer around either way for per-cycle fallback.
	var hw sensor.Acquirer
	if cfg.Sensors.Hardware {
		acquirer, err := sensor.NewHardwareAcquirer(
			cfg.Sensors.PinPM25, cfg.Sensors.PinPM10, cfg.Sensors.PinDHT, cfg.Sensors.Window)
		if err != nil {
			log.Printf("hardware sensors unavailable, using simulation: %v", err)
		} else {
			hw = acquirer
			defer acquirer.Close()
		}
	}

	engine := fusion.NewEngine(hw, sensor.NewSimAcquirer(), cfg.Calibration, cfg.Fusion)

	if printReading {
		reading := engine.Cycle()
		fmt.Printf("PM2.5: %.1f µg/m³  PM10: %.1f µg/m³  Temp: %.1f°C  Humidity: %.0f%%  AQI: %d\n",
			reading.PM25, reading.PM10, reading.Temperature, reading.Humidity, reading.AQI)
		return nil
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	var publisher mqtt.Publisher
	if cfg.MQTT.Broker != "" {
		real, err := mqtt.NewRealPublisher(cfg.MQTT.Broker)
		if err != nil {
			log.Printf("mqtt connect failed, publishing disabled: %v", err)
		} else {
			publisher = real
			defer real.Close()
		}
	}

	if publisher != nil {
		startup := mqtt.SystemEvent{
			Timestamp: time.Now(),
			Event:     "STARTUP",
			Mode:      engine.Mode(),
			Retained:  true,
		}
		if err := publisher.PublishSystem(startup); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		}
	}

	bounds := tiles.Bounds{
		North: cfg.Bounds.North, South: cfg.Bounds.South,
		East: cfg.Bounds.East, West: cfg.Bounds.West,
	}
	srv := web.New(cfg.HTTP.Addr, engine, st, bounds, cfg.Tiles.Dir)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()
	defer srv.Shutdown(context.Background())
	log.Printf("http api listening on %s", cfg.HTTP.Addr)

	log.Printf("started: mode=%s period=%v db=%s tiles=%s",
		engine.Mode(), cfg.Fusion.Period, cfg.Database.Path, cfg.Tiles.Dir)

	ticker := time.NewTicker(cfg.Fusion.Period)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(engine, publisher, time.Now, ticker.C, sigCh)
}

func runLoop(engine *fusion.Engine, publisher mqtt.Publisher, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	// First cycle immediately so the API has data before the first tick.
	cycle(engine, publisher)

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			if publisher != nil {
				signalName := "UNKNOWN"
				if s == syscall.SIGINT {
					signalName = "SIGINT"
				} else if s == syscall.SIGTERM {
					signalName = "SIGTERM"
				}
				event := mqtt.SystemEvent{
					Timestamp: now(),
					Event:     "SHUTDOWN",
					Reason:    signalName,
					Mode:      engine.Mode(),
					Retained:  true,
				}
				if err := publisher.PublishSystem(event); err != nil {
					log.Printf("failed to publish shutdown event: %v", err)
				}
			}
			return nil

		case <-tick:
			cycle(engine, publisher)
		}
	}
}

func cycle(engine *fusion.Engine, publisher mqtt.Publisher) {
	reading := engine.Cycle()
	log.Printf("reading: pm25=%.1f pm10=%.1f temp=%.1f humidity=%.0f aqi=%d env=%s",
		reading.PM25, reading.PM10, reading.Temperature, reading.Humidity,
		reading.AQI, engine.Environment())

	if publisher == nil {
		return
	}
	if err := publisher.Publish(reading); err != nil {
		log.Printf("publish error: %v", err)
		// Keep cycling; the publisher buffers while disconnected.
	}
}
