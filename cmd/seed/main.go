// Command seed loads the baseline facilities and, optionally, demo people.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"jeevandhara/internal/config"
	"jeevandhara/internal/database"
	"jeevandhara/internal/seed"
)

func main() {
	facilitiesFile := flag.String("facilities", "", "YAML facility file (defaults to the built-in list)")
	demo := flag.Int("demo", 0, "Number of demo donors and requesters to create")
	fakerSeed := flag.Int64("seed", time.Now().UnixNano(), "Faker seed for demo data")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg, database.Options{})
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	s := seed.NewSeeder(db, seed.Options{})

	var report *seed.Report
	if *facilitiesFile != "" {
		raw, err := os.ReadFile(*facilitiesFile)
		if err != nil {
			log.Fatalf("read facilities: %v", err)
		}
		f, err := seed.LoadFacilities(raw)
		if err != nil {
			log.Fatalf("parse facilities: %v", err)
		}
		report, err = s.SeedFacilities(ctx, f)
		if err != nil {
			log.Fatalf("seed facilities: %v", err)
		}
	} else if report, err = s.Facilities(ctx); err != nil {
		log.Fatalf("seed facilities: %v", err)
	}
	log.Printf("facilities: %d hospitals, %d blood banks, %d stock rows added",
		report.HospitalsAdded, report.BloodBanksAdded, report.StockRows)

	if *demo > 0 {
		r, err := s.Demo(ctx, seed.NewFactory(*fakerSeed, nil), *demo)
		if err != nil {
			log.Fatalf("seed demo people: %v", err)
		}
		log.Printf("demo: %d donors, %d requesters added, %d duplicates skipped",
			r.DonorsAdded, r.RequestersAdded, r.DuplicateSkipped)
	}
}
