// Command main runs the database seeder for the Food App backend.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/RingdingdongJeter/Food-App-Backend/internal/config"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/database"
	"github.com/RingdingdongJeter/Food-App-Backend/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numRecords := flag.Int("records", 15, "Number of food records per user")
	maxDays := flag.Int("days", 30, "Spread record timestamps over the last N days")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fast := flag.Bool("fast", false, "Skip bcrypt hashing (development only)")
	flag.Parse()

	log.Printf("Target: %d users, %d records each, clean=%v", *numUsers, *numRecords, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	if err := database.ApplySchema(ctx, db); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	s := seed.NewSeeder(db, seed.Options{
		NumUsers:       *numUsers,
		RecordsPerUser: *numRecords,
		MaxDays:        *maxDays,
		SkipBcrypt:     *fast,
	})

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	summary, err := s.Seed(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Created %d users, %d records, %d friendships, %d pending requests",
		summary.Users, summary.Records, summary.Friends, summary.Requests)
	if !*fast {
		log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
	}
}
