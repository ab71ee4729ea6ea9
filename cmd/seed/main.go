// Command main runs the database seeder for Fabricate.
package main

import (
	"flag"
	"log"

	"github.com/Geometrically/fabricate/internal/config"
	"github.com/Geometrically/fabricate/internal/database"
	"github.com/Geometrically/fabricate/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 25, "Number of users to create")
	numProjects := flag.Int("projects", 50, "Number of projects to create")
	shouldClean := flag.Bool("clean", false, "Clean database before seeding")
	lookupsOnly := flag.Bool("lookups-only", false, "Only seed the lookup tables")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.SeedLookups(db); err != nil {
		log.Fatalf("Lookup seeding failed: %v", err)
	}
	log.Println("Lookup tables seeded")

	if *lookupsOnly {
		return
	}

	opts := seed.Options{
		NumUsers:    *numUsers,
		NumProjects: *numProjects,
		ShouldClean: *shouldClean,
	}
	if err := seed.Seed(db, opts); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
