// Command main runs the database seeder for Solcast.
package main

import (
	"flag"
	"log"

	"solcast/internal/config"
	"solcast/internal/database"
	"solcast/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numStreamers := flag.Int("streamers", 10, "Number of users to promote to streamers")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	skipBcrypt := flag.Bool("skip-bcrypt", false, "Store plaintext passwords (fast, dev only)")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d users, %d streamers, clean=%v\n", *numUsers, *numStreamers, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Seed(db, seed.Options{
		NumUsers:     *numUsers,
		NumStreamers: *numStreamers,
		ShouldClean:  *shouldClean,
		SkipBcrypt:   *skipBcrypt,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("All done! Test users have the password: password123")
}
