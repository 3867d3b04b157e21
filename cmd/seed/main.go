package main

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/airepert/airepert/pkg/log"
	"github.com/airepert/airepert/pkg/storage"
	"github.com/airepert/airepert/pkg/types"
	"github.com/levenlabs/go-lflag"
)

// initialLoads mirrors the five relay channels of the board.
var initialLoads = []types.Load{
	{Name: "Charge 1", Class: types.LoadClassPriority, RatedPowerW: 100},     // lighting
	{Name: "Charge 2", Class: types.LoadClassSemiPriority, RatedPowerW: 80},  // electronics
	{Name: "Charge 3", Class: types.LoadClassNonPriority, RatedPowerW: 200},  // appliances
	{Name: "Charge 4", Class: types.LoadClassNonPriority, RatedPowerW: 50},   // other
	{Name: "Charge 5", Class: types.LoadClassSemiPriority, RatedPowerW: 150}, // reserve
}

func main() {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	}
	s := storage.Configured()
	samples := lflag.Int("seed-samples", 24, "Number of hourly telemetry samples to generate")
	lflag.Configure()

	ctx := context.Background()
	defer s.Close()

	log.Ctx(ctx).InfoContext(ctx, "seeding loads")

	existing, err := s.ListLoads(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list loads", slog.Any("error", err))
		os.Exit(1)
	}
	byName := make(map[string]types.Load, len(existing))
	for _, l := range existing {
		byName[l.Name] = l
	}

	var ids []int64
	for _, l := range initialLoads {
		if cur, ok := byName[l.Name]; ok {
			log.Ctx(ctx).InfoContext(ctx, "load already exists", slog.Int64("id", cur.ID), slog.String("name", cur.Name))
			ids = append(ids, cur.ID)
			continue
		}
		created, err := s.CreateLoad(ctx, l)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to create load", slog.String("name", l.Name), slog.Any("error", err))
			os.Exit(1)
		}
		log.Ctx(ctx).InfoContext(ctx, "created load", slog.Int64("id", created.ID), slog.String("name", created.Name))
		ids = append(ids, created.ID)
	}

	log.Ctx(ctx).InfoContext(ctx, "seeding telemetry", slog.Int("samples", *samples))

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now()
	soc := 60.0
	for i := *samples; i > 0; i-- {
		t := now.Add(-time.Duration(i) * time.Hour)
		hour := float64(t.Hour())

		// peak at noon
		production := math.Max(0, (500+rng.NormFloat64()*200)*(1-math.Abs(12-hour)/12))

		m := types.Measurement{
			Timestamp:  t,
			Production: types.ProductionReading{Timestamp: t, ProductionW: production},
		}
		var load float64
		for _, id := range ids {
			w := 0.0
			// 70% chance of being on
			if rng.Float64() > 0.3 {
				w = math.Max(0, 50+rng.NormFloat64()*20)
			}
			load += w
			m.Consumptions = append(m.Consumptions, types.ConsumptionReading{Timestamp: t, LoadID: id, Watts: w})
		}

		// 48V bank, roughly 5kWh
		current := (production - load) / 48
		soc = math.Min(100, math.Max(20, soc+current*48/5000*100))
		m.Battery = types.BatteryReading{
			Timestamp: t,
			SOCPct:    soc,
			VoltageV:  48 + soc/100*6,
			CurrentA:  current,
		}

		if err := s.InsertMeasurement(ctx, m); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to insert measurement", slog.Any("error", err))
			os.Exit(1)
		}
	}

	log.Ctx(ctx).InfoContext(ctx, "seeding complete")
}
