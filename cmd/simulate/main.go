// Package main provides a one-shot what-if scoring run: every persisted
// event is rescored under the given economic stress parameters and the
// result is written as a GeoJSON FeatureCollection.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"conflict-signal/internal/domain"
	"conflict-signal/internal/predict"
	"conflict-signal/internal/refdata"
	"conflict-signal/internal/risk"
	"conflict-signal/internal/storage/migrations"
	pgstore "conflict-signal/internal/storage/postgres"
)

func main() {
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	dataDir := flag.String("data-dir", "data", "Reference data directory")
	output := flag.String("output", "", "Output file for the GeoJSON (default stdout)")
	fuelIndex := flag.Float64("fuel-price-index", 50, "Fuel price stress index (0-100)")
	inflation := flag.Float64("inflation-rate", 25, "Inflation rate percent (0-100)")
	chatter := flag.Float64("chatter-intensity", 30, "Unrest chatter intensity (0-100)")

	flag.Parse()

	logger := log.New(os.Stderr, "[simulate] ", log.LstdFlags)

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}

	params := domain.SimulationParams{
		FuelPriceIndex:   *fuelIndex,
		InflationRate:    *inflation,
		ChatterIntensity: *chatter,
	}
	if err := params.Validate(); err != nil {
		logger.Fatalf("Invalid parameters: %v", err)
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("Connect to postgres: %v", err)
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("Postgres migrations: %v", err)
	}

	ref := refdata.Load(*dataDir, refdata.Options{Logger: logger})
	if len(ref.Missing) > 0 {
		logger.Printf("Reference data incomplete, missing: %v", ref.Missing)
	}

	engine := risk.NewEngine(risk.EngineOptions{Reference: ref, Logger: logger})
	processor := predict.NewProcessor(predict.ProcessorOptions{
		Engine: engine,
		Events: pgstore.NewEventStore(pool),
		Logger: logger,
	})

	fc, err := processor.Simulate(ctx, params)
	if err != nil {
		logger.Fatalf("Simulation failed: %v", err)
	}

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			logger.Fatalf("Create %s: %v", *output, err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fc); err != nil {
		logger.Fatalf("Write GeoJSON: %v", err)
	}

	fmt.Fprintf(os.Stderr, "Simulated %d events (fuel=%.0f inflation=%.0f chatter=%.0f)\n",
		len(fc.Features), params.FuelPriceIndex, params.InflationRate, params.ChatterIntensity)
}
