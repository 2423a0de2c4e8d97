// Command waymark-map renders the memory map as marker images: it groups
// memories by location, rasterizes one pin per group and writes the PNGs
// next to a text summary of what each pin contains.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/scrypster/waymark/internal/cluster"
	"github.com/scrypster/waymark/internal/config"
	"github.com/scrypster/waymark/internal/engine"
	"github.com/scrypster/waymark/internal/media"
	"github.com/scrypster/waymark/internal/storage"
	"github.com/scrypster/waymark/internal/storage/sqlite"
)

var (
	configPath = flag.String("config", "", "Path to YAML config file (optional, env vars apply on top)")
	dataPath   = flag.String("data", "", "Data directory (overrides config)")
	fromDate   = flag.String("from", "", "Start of date filter (YYYY-MM-DD)")
	toDate     = flag.String("to", "", "End of date filter (YYYY-MM-DD)")
	outDir     = flag.String("out", "./markers", "Directory for rendered marker images")
	density    = flag.Float64("density", 0, "Display density for rasterization (overrides config)")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *dataPath != "" {
		cfg.Storage.DataPath = *dataPath
	}
	if *density > 0 {
		cfg.Map.DisplayDensity = *density
	}

	dateRange, err := parseRange(*fromDate, *toDate)
	if err != nil {
		log.Fatalf("Invalid date filter: %v", err)
	}

	dbPath := filepath.Join(cfg.Storage.DataPath, "waymark.db")
	handle, err := storage.NewHandle(func() (storage.MemoryStore, error) {
		return sqlite.Open(dbPath)
	})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer handle.Close()

	deviceID, err := media.InstallationID(filepath.Join(cfg.Storage.DataPath, "device-id"))
	if err != nil {
		log.Fatalf("Failed to read device id: %v", err)
	}

	eng, err := engine.NewMapEngine(handle, nil, deviceID)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	markers, err := eng.Markers(context.Background(), dateRange)
	if err != nil {
		log.Fatalf("Failed to build markers: %v", err)
	}
	if len(markers) == 0 {
		fmt.Println("No memories in the selected range")
		return
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	for i, m := range markers {
		name := fmt.Sprintf("marker-%03d.png", i+1)
		if err := writePNG(filepath.Join(*outDir, name), &m, cfg.Map.DisplayDensity); err != nil {
			log.Fatalf("Failed to write %s: %v", name, err)
		}
		fmt.Printf("%s  (%.5f, %.5f)  %d memories\n", name, m.Latitude, m.Longitude, m.Count())
		for _, rec := range m.Members {
			fmt.Printf("    %s  %s\n", rec.FormattedDate(), rec.Title)
		}
	}
	fmt.Printf("Rendered %d markers to %s\n", len(markers), *outDir)
}

func parseRange(from, to string) (cluster.DateRange, error) {
	var r cluster.DateRange
	if from == "" && to == "" {
		return r, nil
	}
	if from == "" || to == "" {
		return r, fmt.Errorf("both -from and -to are required for a date filter")
	}

	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return r, err
	}
	end, err := time.Parse("2006-01-02", to)
	if err != nil {
		return r, err
	}
	if end.Before(start) {
		return r, fmt.Errorf("-to is before -from")
	}
	return cluster.DateRange{Start: start, End: end}, nil
}

func writePNG(path string, m *engine.Marker, density float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, m.Image(density)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
